// Package render turns statistics into artifacts: box-plot charts, XLSX
// workbooks and plain-text tables.
package render

import (
	"errors"
	"fmt"
	"io"
	"math"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/kjstillabower/solar-dashboard-service/internal/models"
)

// ErrNoData is returned when there is nothing to plot.
var ErrNoData = errors.New("no data to plot")

// Default chart size.
const (
	ChartWidth  = 8 * vg.Inch
	ChartHeight = 5 * vg.Inch
)

// BoxPlot writes a PNG box plot of metric with one box per country, in the
// order given. Countries without values are skipped.
func BoxPlot(w io.Writer, metric models.Metric, countries []string, values map[string][]float64) error {
	p := plot.New()
	p.Title.Text = fmt.Sprintf("%s distribution by country", metric)
	p.X.Label.Text = "Country"
	p.Y.Label.Text = fmt.Sprintf("%s (kWh/m²/day)", metric)

	var labels []string
	for _, c := range countries {
		vals := finite(values[c])
		if len(vals) == 0 {
			continue
		}
		box, err := plotter.NewBoxPlot(vg.Points(20), float64(len(labels)), vals)
		if err != nil {
			return fmt.Errorf("box plot %s: %w", c, err)
		}
		p.Add(box)
		labels = append(labels, c)
	}
	if len(labels) == 0 {
		return ErrNoData
	}
	p.NominalX(labels...)
	p.Add(plotter.NewGrid())

	wt, err := p.WriterTo(ChartWidth, ChartHeight, "png")
	if err != nil {
		return fmt.Errorf("render chart: %w", err)
	}
	if _, err := wt.WriteTo(w); err != nil {
		return fmt.Errorf("write chart: %w", err)
	}
	return nil
}

// finite drops NaN and infinite values, which plotter rejects.
func finite(in []float64) plotter.Values {
	out := make(plotter.Values, 0, len(in))
	for _, v := range in {
		if !math.IsNaN(v) && !math.IsInf(v, 0) {
			out = append(out, v)
		}
	}
	return out
}
