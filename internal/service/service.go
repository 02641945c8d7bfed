package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/kjstillabower/solar-dashboard-service/internal/cache"
	"github.com/kjstillabower/solar-dashboard-service/internal/circuitbreaker"
	"github.com/kjstillabower/solar-dashboard-service/internal/dataset"
	"github.com/kjstillabower/solar-dashboard-service/internal/lifecycle"
	"github.com/kjstillabower/solar-dashboard-service/internal/models"
	"github.com/kjstillabower/solar-dashboard-service/internal/observability"
	"github.com/kjstillabower/solar-dashboard-service/internal/stats"
)

// DatasetLoader reads the combined dataset from disk. Implemented by *dataset.Loader.
type DatasetLoader interface {
	Load(ctx context.Context) (models.Dataset, error)
	Fingerprint() (string, error)
}

// DashboardService memoizes the combined dataset using cache-aside keyed on the
// source fingerprint and derives statistics from it on every call.
type DashboardService struct {
	loader DatasetLoader
	cache  cache.Cache
	ttl    time.Duration
	logger *zap.Logger
	group  singleflight.Group

	mu      sync.Mutex
	lastKey string
}

// NewDashboardService creates a DashboardService. ttl bounds how long a memoized
// dataset is trusted even when the fingerprint is unchanged. logger may be nil.
func NewDashboardService(loader DatasetLoader, cache cache.Cache, ttl time.Duration, logger *zap.Logger) *DashboardService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DashboardService{
		loader: loader,
		cache:  cache,
		ttl:    ttl,
		logger: logger,
	}
}

// loggerFromContext extracts the request-scoped zap.Logger if present, else the service logger.
func (s *DashboardService) loggerFromContext(ctx context.Context) *zap.Logger {
	if v := ctx.Value("logger"); v != nil {
		if l, ok := v.(*zap.Logger); ok && l != nil {
			return l
		}
	}
	return s.logger
}

// Dataset returns the memoized dataset, loading it from disk on a miss.
// Concurrent misses for the same fingerprint share one load. Any success
// marks the process ready.
func (s *DashboardService) Dataset(ctx context.Context) (models.Dataset, error) {
	logger := s.loggerFromContext(ctx)

	key, err := s.loader.Fingerprint()
	if err != nil {
		observability.RecordDatasetLoad(dataset.ErrorKind(err), 0)
		return models.Dataset{}, fmt.Errorf("load dataset: %w", err)
	}

	getStart := time.Now()
	cached, ok, err := s.cache.Get(ctx, key)
	if err != nil {
		observability.CacheErrorsTotal.WithLabelValues("get", categorizeCacheError(err)).Inc()
		logger.Warn("cache get failed", zap.String("fingerprint", key), zap.Error(err))
	} else if ok {
		observability.CacheHitsTotal.WithLabelValues("dataset").Inc()
		logger.Debug("cache hit", zap.String("fingerprint", key), zap.Duration("duration", time.Since(getStart)))
		lifecycle.SetReady(true)
		return cached, nil
	}

	logger.Debug("cache miss, loading from disk", zap.String("fingerprint", key))
	// The shared load outlives any single caller; each caller waits on its own ctx.
	loadCtx := context.WithoutCancel(ctx)
	ch := s.group.DoChan(key, func() (interface{}, error) {
		return s.load(loadCtx, key, logger)
	})
	select {
	case <-ctx.Done():
		return models.Dataset{}, fmt.Errorf("load dataset: %w", ctx.Err())
	case res := <-ch:
		if res.Err != nil {
			return models.Dataset{}, fmt.Errorf("load dataset: %w", res.Err)
		}
		if res.Shared {
			logger.Debug("dataset load shared", zap.String("fingerprint", key))
		}
		return res.Val.(models.Dataset), nil
	}
}

// load reads the dataset, populates the cache and evicts the entry of the
// previous fingerprint. Cache failures are logged, not returned.
func (s *DashboardService) load(ctx context.Context, key string, logger *zap.Logger) (models.Dataset, error) {
	start := time.Now()
	ds, err := s.loader.Load(ctx)
	elapsed := time.Since(start)
	if err != nil {
		observability.RecordDatasetLoad(dataset.ErrorKind(err), elapsed.Seconds())
		logger.Error("dataset load failed", zap.String("kind", dataset.ErrorKind(err)), zap.Error(err))
		return models.Dataset{}, err
	}
	observability.RecordDatasetLoad("success", elapsed.Seconds())
	observability.SetDatasetRows(ds)
	logger.Info("dataset loaded",
		zap.String("dir", ds.Dir),
		zap.Int("rows", ds.Len()),
		zap.Strings("countries", ds.Countries()),
		zap.Duration("duration", elapsed))

	if setErr := s.cache.Set(ctx, key, ds, s.ttl); setErr != nil {
		observability.CacheErrorsTotal.WithLabelValues("set", categorizeCacheError(setErr)).Inc()
		logger.Warn("cache set failed", zap.String("fingerprint", key), zap.Error(setErr))
	}
	s.mu.Lock()
	prev := s.lastKey
	s.lastKey = key
	s.mu.Unlock()
	if prev != "" && prev != key {
		if delErr := s.cache.Delete(ctx, prev); delErr != nil {
			observability.CacheErrorsTotal.WithLabelValues("delete", categorizeCacheError(delErr)).Inc()
			logger.Warn("stale dataset eviction failed", zap.String("fingerprint", prev), zap.Error(delErr))
		}
	}
	lifecycle.SetReady(true)
	return ds, nil
}

// Invalidate drops the memoized dataset so the next call re-reads disk.
func (s *DashboardService) Invalidate(ctx context.Context) error {
	keys := make(map[string]struct{}, 2)
	s.mu.Lock()
	if s.lastKey != "" {
		keys[s.lastKey] = struct{}{}
	}
	s.lastKey = ""
	s.mu.Unlock()
	if key, err := s.loader.Fingerprint(); err == nil {
		keys[key] = struct{}{}
	}

	observability.CacheInvalidationsTotal.Inc()
	for key := range keys {
		s.group.Forget(key)
		if err := s.cache.Delete(ctx, key); err != nil {
			observability.CacheErrorsTotal.WithLabelValues("delete", categorizeCacheError(err)).Inc()
			return fmt.Errorf("invalidate %s: %w", key, err)
		}
	}
	s.loggerFromContext(ctx).Info("dataset cache invalidated", zap.Int("keys", len(keys)))
	return nil
}

// Reload invalidates the memo and loads the dataset again.
func (s *DashboardService) Reload(ctx context.Context) (models.Dataset, error) {
	if err := s.Invalidate(ctx); err != nil {
		return models.Dataset{}, err
	}
	return s.Dataset(ctx)
}

// Countries returns the country labels present in the dataset.
func (s *DashboardService) Countries(ctx context.Context) ([]string, error) {
	ds, err := s.Dataset(ctx)
	if err != nil {
		return nil, err
	}
	return ds.Countries(), nil
}

// Filtered returns the dataset restricted to countries (all when empty).
func (s *DashboardService) Filtered(ctx context.Context, countries []string) (models.Dataset, error) {
	ds, err := s.Dataset(ctx)
	if err != nil {
		return models.Dataset{}, err
	}
	return stats.FilterCountries(ds, countries), nil
}

// RegionStats returns the per-country summary for the selected countries,
// truncated to limit rows when limit > 0.
func (s *DashboardService) RegionStats(ctx context.Context, countries []string, limit int) (models.StatsTable, error) {
	ds, err := s.Filtered(ctx, countries)
	if err != nil {
		return models.StatsTable{}, err
	}
	observability.StatsQueriesTotal.WithLabelValues("stats").Inc()
	return stats.Top(stats.RegionStats(ds), limit), nil
}

// Describe returns the distribution summary of metric for the selected countries.
func (s *DashboardService) Describe(ctx context.Context, metric models.Metric, countries []string) ([]models.MetricSummary, error) {
	ds, err := s.Filtered(ctx, countries)
	if err != nil {
		return nil, err
	}
	observability.StatsQueriesTotal.WithLabelValues("summary").Inc()
	return stats.Describe(ds, metric), nil
}

// categorizeCacheError returns a stable label for cache error metrics
// (circuit_open, timeout, connection, unknown).
func categorizeCacheError(err error) string {
	if err == nil {
		return "unknown"
	}
	if errors.Is(err, circuitbreaker.ErrOpen) {
		return "circuit_open"
	}
	errStr := err.Error()
	if strings.Contains(errStr, "timeout") {
		return "timeout"
	}
	if strings.Contains(errStr, "connection") || strings.Contains(errStr, "network") {
		return "connection"
	}
	return "unknown"
}
