// Package stats derives per-country summaries from a combined irradiance dataset.
package stats

import (
	"errors"
	"math"
	"sort"
	"strings"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/kjstillabower/solar-dashboard-service/internal/models"
)

// ErrUnknownMetric is returned by ParseMetric for anything but GHI, DNI or DHI.
var ErrUnknownMetric = errors.New("unknown metric")

// ParseMetric accepts a metric name case-insensitively.
func ParseMetric(s string) (models.Metric, error) {
	s = strings.ToUpper(strings.TrimSpace(s))
	for _, m := range models.Metrics {
		if string(m) == s {
			return m, nil
		}
	}
	return "", ErrUnknownMetric
}

// group holds one country's rows in source order.
type group struct {
	country string
	records []models.Record
}

// groupByCountry groups records by country, keeping first-appearance order.
func groupByCountry(ds models.Dataset) []group {
	index := make(map[string]int)
	var groups []group
	for _, r := range ds.Records {
		i, ok := index[r.Country]
		if !ok {
			i = len(groups)
			index[r.Country] = i
			groups = append(groups, group{country: r.Country})
		}
		groups[i].records = append(groups[i].records, r)
	}
	return groups
}

// values returns the non-NaN values of m, sorted ascending.
func (g group) values(m models.Metric) []float64 {
	out := make([]float64, 0, len(g.records))
	for _, r := range g.records {
		if v := r.Value(m); !math.IsNaN(v) {
			out = append(out, v)
		}
	}
	sort.Float64s(out)
	return out
}

// RegionStats returns one row per country with the mean and median of GHI,
// DNI and DHI and the standard deviation of GHI, sorted by descending GHI mean.
// An empty dataset yields an empty table.
func RegionStats(ds models.Dataset) models.StatsTable {
	if ds.Len() == 0 {
		return models.StatsTable{}
	}
	groups := groupByCountry(ds)
	rows := make([]models.RegionStats, 0, len(groups))
	for _, g := range groups {
		ghi, dni, dhi := g.values(models.GHI), g.values(models.DNI), g.values(models.DHI)
		rows = append(rows, models.RegionStats{
			Country:   g.country,
			GHIMean:   mean(ghi),
			GHIMedian: quantile(ghi, 0.5),
			GHIStd:    stdDev(ghi),
			DNIMean:   mean(dni),
			DNIMedian: quantile(dni, 0.5),
			DHIMean:   mean(dhi),
			DHIMedian: quantile(dhi, 0.5),
		})
	}
	sort.SliceStable(rows, func(i, j int) bool {
		return descending(rows[i].GHIMean, rows[j].GHIMean)
	})
	return models.StatsTable{
		Columns: append([]string(nil), models.StatsColumns...),
		Rows:    rows,
	}
}

// Top returns the first n rows of t. n <= 0 returns t unchanged.
func Top(t models.StatsTable, n int) models.StatsTable {
	if n <= 0 || n >= len(t.Rows) {
		return t
	}
	t.Rows = t.Rows[:n]
	return t
}

// FilterCountries returns the rows of ds whose country is in countries.
// An empty selection keeps every row.
func FilterCountries(ds models.Dataset, countries []string) models.Dataset {
	if len(countries) == 0 {
		return ds
	}
	keep := make(map[string]struct{}, len(countries))
	for _, c := range countries {
		keep[c] = struct{}{}
	}
	out := ds
	out.Records = make([]models.Record, 0, len(ds.Records))
	for _, r := range ds.Records {
		if _, ok := keep[r.Country]; ok {
			out.Records = append(out.Records, r)
		}
	}
	return out
}

// descending orders a before b when a is larger; NaN sorts last.
func descending(a, b float64) bool {
	switch {
	case math.IsNaN(a):
		return false
	case math.IsNaN(b):
		return true
	}
	return a > b
}

func mean(sorted []float64) float64 {
	if len(sorted) == 0 {
		return math.NaN()
	}
	return stat.Mean(sorted, nil)
}

// stdDev is the sample standard deviation; fewer than two values give NaN.
func stdDev(sorted []float64) float64 {
	if len(sorted) < 2 {
		return math.NaN()
	}
	return stat.StdDev(sorted, nil)
}

func minMax(sorted []float64) (float64, float64) {
	if len(sorted) == 0 {
		return math.NaN(), math.NaN()
	}
	return floats.Min(sorted), floats.Max(sorted)
}

// quantile interpolates linearly between the closest ranks of sorted,
// so the 0.5 quantile of an even-length slice is the mean of the middle pair.
func quantile(sorted []float64, p float64) float64 {
	n := len(sorted)
	if n == 0 {
		return math.NaN()
	}
	h := p * float64(n-1)
	lo := math.Floor(h)
	i := int(lo)
	if i+1 >= n {
		return sorted[n-1]
	}
	return sorted[i] + (h-lo)*(sorted[i+1]-sorted[i])
}
