package observability

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// FlushTelemetry logs a summary of dataset activity and flushes log buffers
// before process exit. Prometheus is pull-based, so nothing else is pushed.
// Call during graceful shutdown after in-flight requests have drained.
func FlushTelemetry(ctx context.Context, logger *zap.Logger) error {
	if logger == nil {
		return nil
	}
	summary, err := counterTotals("datasetLoadsTotal", "cacheHitsTotal", "statsQueriesTotal")
	if err != nil {
		logger.Warn("telemetry summary", zap.Error(err))
	} else {
		logger.Info("telemetry summary",
			zap.Float64("dataset_loads", summary["datasetLoadsTotal"]),
			zap.Float64("cache_hits", summary["cacheHitsTotal"]),
			zap.Float64("stats_queries", summary["statsQueriesTotal"]))
	}
	if err := logger.Sync(); err != nil {
		return fmt.Errorf("flush logs: %w", err)
	}
	return nil
}

// counterTotals sums every series of the named counters in the registry.
func counterTotals(names ...string) (map[string]float64, error) {
	families, err := registry.Gather()
	if err != nil {
		return nil, err
	}
	want := make(map[string]struct{}, len(names))
	for _, n := range names {
		want[n] = struct{}{}
	}
	out := make(map[string]float64, len(names))
	for _, mf := range families {
		if _, ok := want[mf.GetName()]; !ok {
			continue
		}
		for _, m := range mf.GetMetric() {
			out[mf.GetName()] += m.GetCounter().GetValue()
		}
	}
	return out, nil
}
