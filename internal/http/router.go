package http

import (
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/kjstillabower/solar-dashboard-service/internal/observability"
)

// NewRouter wires the dashboard routes. Data routes are rate limited and carry
// a request deadline; /health and /metrics are not.
func NewRouter(handler *Handler, logger *zap.Logger, limiter *rate.Limiter, requestTimeout time.Duration) *mux.Router {
	router := mux.NewRouter()
	router.Use(CorrelationIDMiddleware(logger))
	router.Use(MetricsMiddleware)
	router.HandleFunc("/health", handler.GetHealth).Methods("GET")
	router.Handle("/metrics", observability.MetricsHandler())

	data := router.NewRoute().Subrouter()
	data.Use(RateLimitMiddleware(limiter))
	data.Use(TimeoutMiddleware(requestTimeout))
	data.HandleFunc("/api/countries", handler.GetCountries).Methods("GET")
	data.HandleFunc("/api/stats", handler.GetStats).Methods("GET")
	data.HandleFunc("/api/summary/{metric}", handler.GetSummary).Methods("GET")
	data.HandleFunc("/api/reload", handler.PostReload).Methods("POST")
	data.HandleFunc("/charts/{metric:[A-Za-z]+}.png", handler.GetChart).Methods("GET")
	data.HandleFunc("/export/stats.xlsx", handler.GetExport).Methods("GET")
	return router
}
