package stats

import (
	"sort"

	"github.com/kjstillabower/solar-dashboard-service/internal/models"
)

// Describe summarizes the distribution of m for each country in ds, ordered
// by country label. Count excludes NaN cells.
func Describe(ds models.Dataset, m models.Metric) []models.MetricSummary {
	groups := groupByCountry(ds)
	out := make([]models.MetricSummary, 0, len(groups))
	for _, g := range groups {
		vals := g.values(m)
		lo, hi := minMax(vals)
		out = append(out, models.MetricSummary{
			Country: g.country,
			Metric:  m,
			Count:   len(vals),
			Mean:    mean(vals),
			Std:     stdDev(vals),
			Min:     lo,
			Q25:     quantile(vals, 0.25),
			Median:  quantile(vals, 0.5),
			Q75:     quantile(vals, 0.75),
			Max:     hi,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Country < out[j].Country })
	return out
}

// Values returns the non-NaN values of m per country, keyed by label.
// Used by chart rendering.
func Values(ds models.Dataset, m models.Metric) ([]string, map[string][]float64) {
	groups := groupByCountry(ds)
	names := make([]string, 0, len(groups))
	out := make(map[string][]float64, len(groups))
	for _, g := range groups {
		names = append(names, g.country)
		out[g.country] = g.values(m)
	}
	return names, out
}
