package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/kjstillabower/solar-dashboard-service/internal/models"
)

var (
	registry *prometheus.Registry

	// HTTP request rate. Watch for: sudden drops (service down) or spikes (traffic surge).
	HTTPRequestsTotal *prometheus.CounterVec

	// HTTP request latency per request. Watch for: p95/p99 latency increases on chart rendering.
	HTTPRequestDuration *prometheus.HistogramVec

	// Concurrent requests in flight. Watch for: saturation, capacity limits.
	HTTPRequestsInFlight prometheus.Gauge

	// Dataset loads from disk by outcome (success or loader error kind).
	DatasetLoadsTotal *prometheus.CounterVec

	// Time to read and combine the source files. Watch for: growth as files grow.
	DatasetLoadDurationSeconds prometheus.Histogram

	// Rows in the currently memoized dataset, per country.
	DatasetRows *prometheus.GaugeVec

	// Memo hits. Misses = datasetLoadsTotal.
	CacheHitsTotal *prometheus.CounterVec

	// Cache backend errors by operation and category. Watch for: memcached connectivity.
	CacheErrorsTotal *prometheus.CounterVec

	// Memcached circuit breaker state: 0 closed, 1 open, 2 half-open.
	CacheCircuitState prometheus.Gauge

	// Explicit memo invalidations (reload endpoint, CLI).
	CacheInvalidationsTotal prometheus.Counter

	CacheWarmingTotal           prometheus.Counter
	CacheWarmingErrorsTotal     prometheus.Counter
	CacheWarmingDurationSeconds prometheus.Histogram

	// Stats queries by kind (stats, summary, chart, export).
	StatsQueriesTotal *prometheus.CounterVec

	// Rate limit denials. Watch for: overload, capacity exceeded.
	RateLimitDeniedTotal prometheus.Counter
)

func init() {
	registry = prometheus.NewRegistry()

	registry.MustRegister(
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		collectors.NewGoCollector(),
	)

	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "httpRequestsTotal",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "statusCode"},
	)
	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "httpRequestDurationSeconds",
			Help:    "HTTP request latency in seconds (per request)",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)
	HTTPRequestsInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "httpRequestsInFlight",
			Help: "Number of HTTP requests currently being served",
		},
	)
	DatasetLoadsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "datasetLoadsTotal",
			Help: "Total number of dataset loads from disk by outcome",
		},
		[]string{"outcome"},
	)
	DatasetLoadDurationSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "datasetLoadDurationSeconds",
			Help:    "Time to read, validate and combine the source files",
			Buckets: []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
	)
	DatasetRows = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "datasetRows",
			Help: "Rows in the memoized dataset per country",
		},
		[]string{"country"},
	)
	CacheHitsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cacheHitsTotal",
			Help: "Total number of cache hits. Cache misses = datasetLoadsTotal.",
		},
		[]string{"cacheType"},
	)
	CacheErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cacheErrorsTotal",
			Help: "Cache backend errors by operation and category",
		},
		[]string{"operation", "category"},
	)
	CacheCircuitState = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "cacheCircuitState",
			Help: "Memcached circuit breaker state (0 closed, 1 open, 2 half-open)",
		},
	)
	CacheInvalidationsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "cacheInvalidationsTotal",
			Help: "Total number of explicit dataset cache invalidations",
		},
	)
	CacheWarmingTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "cacheWarmingTotal",
			Help: "Total number of cache warming runs",
		},
	)
	CacheWarmingErrorsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "cacheWarmingErrorsTotal",
			Help: "Total number of failed cache warming runs",
		},
	)
	CacheWarmingDurationSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "cacheWarmingDurationSeconds",
			Help:    "Duration of cache warming runs in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)
	StatsQueriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "statsQueriesTotal",
			Help: "Total number of statistics queries by kind",
		},
		[]string{"kind"},
	)
	RateLimitDeniedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "rateLimitDeniedTotal",
			Help: "Total number of requests denied by rate limiter (429)",
		},
	)

	registry.MustRegister(
		HTTPRequestsTotal, HTTPRequestDuration, HTTPRequestsInFlight,
		DatasetLoadsTotal, DatasetLoadDurationSeconds, DatasetRows,
		CacheHitsTotal, CacheErrorsTotal, CacheCircuitState, CacheInvalidationsTotal,
		CacheWarmingTotal, CacheWarmingErrorsTotal, CacheWarmingDurationSeconds,
		StatsQueriesTotal,
		RateLimitDeniedTotal,
	)
}

// RecordDatasetLoad records one load attempt. outcome is "success" or a loader error kind.
func RecordDatasetLoad(outcome string, seconds float64) {
	DatasetLoadsTotal.WithLabelValues(outcome).Inc()
	DatasetLoadDurationSeconds.Observe(seconds)
}

// SetDatasetRows replaces the per-country row gauges with the counts in ds.
func SetDatasetRows(ds models.Dataset) {
	counts := make(map[string]int)
	for _, r := range ds.Records {
		counts[r.Country]++
	}
	DatasetRows.Reset()
	for country, n := range counts {
		DatasetRows.WithLabelValues(country).Set(float64(n))
	}
}

// MetricsHandler returns an http.Handler that serves application and runtime metrics.
func MetricsHandler() http.Handler {
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
}
