package cache

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kjstillabower/solar-dashboard-service/internal/models"
	"github.com/kjstillabower/solar-dashboard-service/internal/observability"
)

// DatasetFetcher is implemented by the service layer to load (or return the memoized) dataset.
// Used by CacheWarmer to avoid a circular dependency on the service package.
type DatasetFetcher interface {
	Dataset(ctx context.Context) (models.Dataset, error)
}

// CacheWarmer populates the memo ahead of the first request and refreshes it
// when the source files change.
type CacheWarmer struct {
	fetcher DatasetFetcher
	logger  *zap.Logger
}

// NewCacheWarmer creates a CacheWarmer that uses the given fetcher and logger.
func NewCacheWarmer(fetcher DatasetFetcher, logger *zap.Logger) *CacheWarmer {
	return &CacheWarmer{fetcher: fetcher, logger: logger}
}

// Warm loads the dataset once through the fetcher.
func (w *CacheWarmer) Warm(ctx context.Context) error {
	start := time.Now()
	observability.CacheWarmingTotal.Inc()
	if w.logger != nil {
		w.logger.Info("warming dataset cache")
	}
	ds, err := w.fetcher.Dataset(ctx)
	duration := time.Since(start).Seconds()
	observability.CacheWarmingDurationSeconds.Observe(duration)
	if err != nil {
		observability.CacheWarmingErrorsTotal.Inc()
		return fmt.Errorf("cache warming: %w", err)
	}
	if w.logger != nil {
		w.logger.Info("cache warming complete", zap.Int("rows", ds.Len()), zap.String("fingerprint", ds.Fingerprint), zap.Float64("duration_seconds", duration))
	}
	return nil
}

// WarmPeriodic runs an initial Warm, then re-warms at the given interval until ctx is done.
// Because the memo is keyed on the source fingerprint, each tick picks up edited files.
func (w *CacheWarmer) WarmPeriodic(ctx context.Context, interval time.Duration) error {
	if err := w.Warm(ctx); err != nil && w.logger != nil {
		w.logger.Warn("initial cache warm failed", zap.Error(err))
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := w.Warm(ctx); err != nil && w.logger != nil {
				w.logger.Warn("periodic cache warm failed", zap.Error(err))
			}
		}
	}
}
