package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/kjstillabower/solar-dashboard-service/internal/dataset"
	"github.com/kjstillabower/solar-dashboard-service/internal/lifecycle"
	"github.com/kjstillabower/solar-dashboard-service/internal/models"
	"github.com/kjstillabower/solar-dashboard-service/internal/observability"
	"github.com/kjstillabower/solar-dashboard-service/internal/render"
	"github.com/kjstillabower/solar-dashboard-service/internal/service"
	"github.com/kjstillabower/solar-dashboard-service/internal/stats"
	"github.com/kjstillabower/solar-dashboard-service/internal/validation"
)

// maxLimit caps the limit query parameter.
const maxLimit = 1000

// HealthConfig holds inputs for the health handler.
type HealthConfig struct {
	StartTime time.Time
	// CachePing, when set, is called to check cache reachability. Used when backend is memcached.
	CachePing func() error
}

// Handler holds dependencies for HTTP handlers.
type Handler struct {
	dashboard        *service.DashboardService
	healthConfig     *HealthConfig
	logger           *zap.Logger
	topN             int
	healthStatusMu   sync.Mutex
	healthStatusPrev string
}

// NewHandler returns a new Handler. topN is the default row limit for /api/stats.
func NewHandler(
	dashboard *service.DashboardService,
	healthConfig *HealthConfig,
	logger *zap.Logger,
	topN int,
) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		dashboard:    dashboard,
		healthConfig: healthConfig,
		logger:       logger,
		topN:         topN,
	}
}

// GetCountries handles GET /api/countries.
func (h *Handler) GetCountries(w http.ResponseWriter, r *http.Request) {
	countries, err := h.dashboard.Countries(r.Context())
	if err != nil {
		writeDataError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"countries": countries})
}

// GetStats handles GET /api/stats?country=..&limit=..
func (h *Handler) GetStats(w http.ResponseWriter, r *http.Request) {
	limit, err := validation.ValidateLimit(r.URL.Query().Get("limit"), h.topN, maxLimit)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "INVALID_LIMIT", err.Error())
		return
	}
	countries, ok := h.selectedCountries(w, r)
	if !ok {
		return
	}
	table, err := h.dashboard.RegionStats(r.Context(), countries, limit)
	if err != nil {
		writeDataError(w, r, err)
		return
	}
	if table.Columns == nil {
		table.Columns = []string{}
	}
	if table.Rows == nil {
		table.Rows = []models.RegionStats{}
	}
	writeJSON(w, http.StatusOK, table)
}

// GetSummary handles GET /api/summary/{metric}?country=..
func (h *Handler) GetSummary(w http.ResponseWriter, r *http.Request) {
	metric, ok := parseMetricVar(w, r)
	if !ok {
		return
	}
	countries, ok := h.selectedCountries(w, r)
	if !ok {
		return
	}
	summaries, err := h.dashboard.Describe(r.Context(), metric, countries)
	if err != nil {
		writeDataError(w, r, err)
		return
	}
	if summaries == nil {
		summaries = []models.MetricSummary{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"metric":    metric,
		"summaries": summaries,
	})
}

// GetChart handles GET /charts/{metric}.png?country=..
func (h *Handler) GetChart(w http.ResponseWriter, r *http.Request) {
	metric, ok := parseMetricVar(w, r)
	if !ok {
		return
	}
	countries, ok := h.selectedCountries(w, r)
	if !ok {
		return
	}
	ds, err := h.dashboard.Filtered(r.Context(), countries)
	if err != nil {
		writeDataError(w, r, err)
		return
	}
	observability.StatsQueriesTotal.WithLabelValues("chart").Inc()

	order, values := stats.Values(ds, metric)
	var buf bytes.Buffer
	if err := render.BoxPlot(&buf, metric, order, values); err != nil {
		if errors.Is(err, render.ErrNoData) {
			writeError(w, r, http.StatusNotFound, "NO_DATA", "no values to plot for "+string(metric))
			return
		}
		loggerFrom(r).Error("chart render failed", zap.String("metric", string(metric)), zap.Error(err))
		writeError(w, r, http.StatusInternalServerError, "RENDER_FAILED", "Unable to render chart")
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}

// GetExport handles GET /export/stats.xlsx?country=..
func (h *Handler) GetExport(w http.ResponseWriter, r *http.Request) {
	countries, ok := h.selectedCountries(w, r)
	if !ok {
		return
	}
	table, err := h.dashboard.RegionStats(r.Context(), countries, 0)
	if err != nil {
		writeDataError(w, r, err)
		return
	}
	observability.StatsQueriesTotal.WithLabelValues("export").Inc()

	var buf bytes.Buffer
	if err := render.WriteStatsXLSX(&buf, table); err != nil {
		loggerFrom(r).Error("xlsx export failed", zap.Error(err))
		writeError(w, r, http.StatusInternalServerError, "RENDER_FAILED", "Unable to build workbook")
		return
	}
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="solar_region_stats.xlsx"`)
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}

// PostReload handles POST /api/reload. Drops the memo and re-reads the source files.
func (h *Handler) PostReload(w http.ResponseWriter, r *http.Request) {
	ds, err := h.dashboard.Reload(r.Context())
	if err != nil {
		writeDataError(w, r, err)
		return
	}
	loggerFrom(r).Info("dataset reloaded", zap.Int("rows", ds.Len()), zap.String("fingerprint", ds.Fingerprint))
	writeJSON(w, http.StatusOK, datasetInfo(ds))
}

// healthResult holds the computed health status and metadata for logging.
type healthResult struct {
	status     string
	statusCode int
	reason     string
	dataset    *models.Dataset
}

// GetHealth handles GET /health.
func (h *Handler) GetHealth(w http.ResponseWriter, r *http.Request) {
	result := h.computeHealthStatus(r.Context())

	h.healthStatusMu.Lock()
	prev := h.healthStatusPrev
	if prev != "" && prev != result.status {
		h.logger.Info("health status transition",
			zap.String("previous_status", prev),
			zap.String("current_status", result.status),
			zap.String("reason", result.reason))
	}
	h.healthStatusPrev = result.status
	h.healthStatusMu.Unlock()

	checks := make(map[string]string)
	if result.dataset != nil {
		checks["dataset"] = "healthy"
	} else if result.status != "shutting-down" {
		checks["dataset"] = "unhealthy"
	}
	if h.healthConfig != nil && h.healthConfig.CachePing != nil {
		if h.healthConfig.CachePing() == nil {
			checks["cache"] = "healthy"
		} else {
			checks["cache"] = "unhealthy"
		}
	}
	resp := map[string]interface{}{
		"status":    result.status,
		"service":   "solar-dashboard-service",
		"version":   "dev",
		"checks":    checks,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}
	if result.reason != "" {
		resp["reason"] = result.reason
	}
	if result.dataset != nil {
		resp["dataset"] = datasetInfo(*result.dataset)
	}
	if h.healthConfig != nil && !h.healthConfig.StartTime.IsZero() {
		resp["uptimeSeconds"] = int64(time.Since(h.healthConfig.StartTime).Seconds())
	}
	writeJSON(w, result.statusCode, resp)
}

// computeHealthStatus determines the current health status.
// Decision order: shutting-down > dataset unavailable > healthy.
func (h *Handler) computeHealthStatus(ctx context.Context) healthResult {
	if lifecycle.IsShuttingDown() {
		return healthResult{status: "shutting-down", statusCode: http.StatusServiceUnavailable, reason: "signal"}
	}
	ds, err := h.dashboard.Dataset(ctx)
	if err != nil {
		reason := dataset.ErrorKind(err)
		if !lifecycle.IsReady() {
			return healthResult{status: "starting", statusCode: http.StatusServiceUnavailable, reason: reason}
		}
		return healthResult{status: "degraded", statusCode: http.StatusServiceUnavailable, reason: reason}
	}
	return healthResult{status: "healthy", statusCode: http.StatusOK, dataset: &ds}
}

// selectedCountries validates the country query values against the loaded dataset.
// Writes the error response and returns false on failure.
func (h *Handler) selectedCountries(w http.ResponseWriter, r *http.Request) ([]string, bool) {
	raw := r.URL.Query()["country"]
	if len(raw) == 0 {
		return nil, true
	}
	known, err := h.dashboard.Countries(r.Context())
	if err != nil {
		writeDataError(w, r, err)
		return nil, false
	}
	countries, err := validation.ValidateCountries(raw, known)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "INVALID_COUNTRY", err.Error())
		return nil, false
	}
	return countries, true
}

func parseMetricVar(w http.ResponseWriter, r *http.Request) (models.Metric, bool) {
	metric, err := stats.ParseMetric(mux.Vars(r)["metric"])
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "INVALID_METRIC", "metric must be one of GHI, DNI, DHI")
		return "", false
	}
	return metric, true
}

func datasetInfo(ds models.Dataset) map[string]interface{} {
	return map[string]interface{}{
		"rows":        ds.Len(),
		"countries":   ds.Countries(),
		"columns":     ds.Columns,
		"dir":         ds.Dir,
		"fingerprint": ds.Fingerprint,
		"loadedAt":    ds.LoadedAt.Format(time.RFC3339),
	}
}

// writeJSON writes a JSON response with the specified HTTP status code.
// Sets Content-Type header to application/json and encodes the provided value.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError writes an error response in the standard error format with code, message,
// and requestId (correlation ID) if available in request context.
func writeError(w http.ResponseWriter, r *http.Request, status int, code, message string) {
	writeJSON(w, status, map[string]interface{}{
		"error": map[string]string{
			"code":      code,
			"message":   message,
			"requestId": correlationID(r),
		},
	})
}

// writeDataError maps service errors to responses. Loader errors become
// 503 DATA_UNAVAILABLE carrying the error kind; deadline overruns become 504.
func writeDataError(w http.ResponseWriter, r *http.Request, err error) {
	logger := loggerFrom(r)
	switch {
	case dataset.IsLoadError(err):
		logger.Warn("dataset unavailable", zap.String("kind", dataset.ErrorKind(err)), zap.Error(err))
		writeJSON(w, http.StatusServiceUnavailable, map[string]interface{}{
			"error": map[string]string{
				"code":      "DATA_UNAVAILABLE",
				"kind":      dataset.ErrorKind(err),
				"message":   err.Error(),
				"requestId": correlationID(r),
			},
		})
	case errors.Is(err, context.DeadlineExceeded):
		logger.Warn("request timed out", zap.Error(err))
		writeError(w, r, http.StatusGatewayTimeout, "TIMEOUT", "Request timed out")
	default:
		logger.Error("internal error", zap.Error(err))
		writeError(w, r, http.StatusInternalServerError, "INTERNAL", "Internal server error")
	}
}

func correlationID(r *http.Request) string {
	if v, ok := r.Context().Value("correlation_id").(string); ok {
		return v
	}
	return ""
}

// loggerFrom returns the request-scoped logger or a no-op logger.
func loggerFrom(r *http.Request) *zap.Logger {
	if logger, ok := r.Context().Value("logger").(*zap.Logger); ok && logger != nil {
		return logger
	}
	return zap.NewNop()
}
