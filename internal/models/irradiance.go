package models

import (
	"encoding/json"
	"math"
	"time"
)

// Metric names one of the irradiance components carried by every source file.
type Metric string

const (
	GHI Metric = "GHI"
	DNI Metric = "DNI"
	DHI Metric = "DHI"
)

// Metrics lists the required numeric columns in display order.
var Metrics = []Metric{GHI, DNI, DHI}

// CountryColumn is the column added to every row during load.
const CountryColumn = "Country"

// Record is one row of a source CSV tagged with its country.
// Numeric fields hold NaN when the cell is blank or not a number.
type Record struct {
	Country string
	GHI     float64
	DNI     float64
	DHI     float64
	// Fields holds the ancillary columns as read, keyed by header name.
	Fields map[string]string
}

// Value returns the record's value for m, or NaN for an unknown metric.
func (r Record) Value(m Metric) float64 {
	switch m {
	case GHI:
		return r.GHI
	case DNI:
		return r.DNI
	case DHI:
		return r.DHI
	}
	return math.NaN()
}

// Dataset is the combined, country-tagged table built from the source files.
type Dataset struct {
	Columns     []string
	Records     []Record
	Dir         string
	Fingerprint string
	LoadedAt    time.Time
}

// Len returns the number of rows.
func (d Dataset) Len() int {
	return len(d.Records)
}

// Countries returns the distinct country labels in first-appearance order.
func (d Dataset) Countries() []string {
	seen := make(map[string]struct{})
	var out []string
	for _, r := range d.Records {
		if _, ok := seen[r.Country]; ok {
			continue
		}
		seen[r.Country] = struct{}{}
		out = append(out, r.Country)
	}
	return out
}

// RegionStats is one aggregate row per country.
// DNI and DHI carry no standard deviation.
type RegionStats struct {
	Country   string
	GHIMean   float64
	GHIMedian float64
	GHIStd    float64
	DNIMean   float64
	DNIMedian float64
	DHIMean   float64
	DHIMedian float64
}

// StatsColumns is the flattened column layout of a RegionStats row.
var StatsColumns = []string{
	CountryColumn,
	"GHI_mean", "GHI_median", "GHI_std",
	"DNI_mean", "DNI_median",
	"DHI_mean", "DHI_median",
}

// Values returns the numeric cells in StatsColumns order, Country excluded.
func (s RegionStats) Values() []float64 {
	return []float64{s.GHIMean, s.GHIMedian, s.GHIStd, s.DNIMean, s.DNIMedian, s.DHIMean, s.DHIMedian}
}

// MarshalJSON writes the flattened column names and encodes NaN as null.
func (s RegionStats) MarshalJSON() ([]byte, error) {
	out := make(map[string]interface{}, len(StatsColumns))
	out[CountryColumn] = s.Country
	for i, v := range s.Values() {
		out[StatsColumns[i+1]] = jsonFloat(v)
	}
	return json.Marshal(out)
}

// StatsTable is the aggregator output. An empty table has no columns.
type StatsTable struct {
	Columns []string      `json:"columns"`
	Rows    []RegionStats `json:"rows"`
}

// Empty reports whether the table has no rows.
func (t StatsTable) Empty() bool {
	return len(t.Rows) == 0
}

// MetricSummary describes the distribution of one metric for one country.
type MetricSummary struct {
	Country string
	Metric  Metric
	Count   int
	Mean    float64
	Std     float64
	Min     float64
	Q25     float64
	Median  float64
	Q75     float64
	Max     float64
}

// MarshalJSON encodes NaN as null; count/mean/std/min/25%/50%/75%/max keys.
func (m MetricSummary) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string]interface{}{
		"country": m.Country,
		"metric":  m.Metric,
		"count":   m.Count,
		"mean":    jsonFloat(m.Mean),
		"std":     jsonFloat(m.Std),
		"min":     jsonFloat(m.Min),
		"25%":     jsonFloat(m.Q25),
		"50%":     jsonFloat(m.Median),
		"75%":     jsonFloat(m.Q75),
		"max":     jsonFloat(m.Max),
	})
}

func jsonFloat(v float64) interface{} {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return v
}
