package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/kjstillabower/solar-dashboard-service/internal/observability"
	"github.com/kjstillabower/solar-dashboard-service/internal/testhelpers"
)

func okHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

func TestMiddleware_CorrelationIDGenerated(t *testing.T) {
	router, _ := newTestRouter(t)
	w := serve(t, router, "GET", "/api/countries")
	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", w.Code, http.StatusOK)
	}
	if w.Header().Get("X-Correlation-ID") == "" {
		t.Error("X-Correlation-ID header missing")
	}
}

func TestMiddleware_CorrelationIDPropagated(t *testing.T) {
	var seenID string
	var seenLogger bool
	router := mux.NewRouter()
	router.Use(CorrelationIDMiddleware(zap.NewNop()))
	router.HandleFunc("/probe", func(w http.ResponseWriter, r *http.Request) {
		seenID, _ = r.Context().Value("correlation_id").(string)
		_, seenLogger = r.Context().Value("logger").(*zap.Logger)
		w.WriteHeader(http.StatusOK)
	})

	req := httptest.NewRequest("GET", "/probe", nil)
	req.Header.Set("X-Correlation-ID", "client-provided-id")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if got := w.Header().Get("X-Correlation-ID"); got != "client-provided-id" {
		t.Errorf("X-Correlation-ID = %q, want client-provided-id", got)
	}
	if seenID != "client-provided-id" || !seenLogger {
		t.Errorf("context correlation_id = %q, logger present = %v", seenID, seenLogger)
	}
}

// TestTimeoutMiddleware_SetsDeadline verifies that handlers behind TimeoutMiddleware
// observe a context deadline.
func TestTimeoutMiddleware_SetsDeadline(t *testing.T) {
	var hasDeadline bool
	var ctxErr error
	router := mux.NewRouter()
	router.Use(TimeoutMiddleware(20 * time.Millisecond))
	router.HandleFunc("/slow", func(w http.ResponseWriter, r *http.Request) {
		_, hasDeadline = r.Context().Deadline()
		<-r.Context().Done()
		ctxErr = r.Context().Err()
		writeDataError(w, r, ctxErr)
	})

	w := serve(t, router, "GET", "/slow")
	if !hasDeadline {
		t.Error("request context has no deadline")
	}
	if ctxErr != context.DeadlineExceeded {
		t.Errorf("ctx.Err() = %v, want DeadlineExceeded", ctxErr)
	}
	if w.Code != http.StatusGatewayTimeout {
		t.Errorf("status = %d, want 504", w.Code)
	}
}

func TestRateLimitMiddleware_Returns429WhenExceeded(t *testing.T) {
	limiter := rate.NewLimiter(1, 2)

	router := mux.NewRouter()
	router.Use(CorrelationIDMiddleware(zap.NewNop()))
	router.Use(MetricsMiddleware)
	router.Use(RateLimitMiddleware(limiter))
	router.HandleFunc("/api/countries", okHandler)

	for i := 0; i < 3; i++ {
		w := serve(t, router, "GET", "/api/countries")

		if i < 2 {
			if w.Code != http.StatusOK {
				t.Errorf("request %d: status = %d, want 200", i, w.Code)
			}
			continue
		}
		if w.Code != http.StatusTooManyRequests {
			t.Fatalf("request %d: status = %d, want 429", i, w.Code)
		}
		var errResp errorResponse
		if err := json.NewDecoder(w.Body).Decode(&errResp); err != nil {
			t.Fatalf("decode 429 response: %v", err)
		}
		if errResp.Error.Code != "RATE_LIMITED" {
			t.Errorf("error.code = %q, want RATE_LIMITED", errResp.Error.Code)
		}
	}
}

func TestRateLimitMiddleware_NilLimiterPassesThrough(t *testing.T) {
	router := mux.NewRouter()
	router.Use(RateLimitMiddleware(nil))
	router.HandleFunc("/api/stats", okHandler)

	if w := serve(t, router, "GET", "/api/stats"); w.Code != http.StatusOK {
		t.Errorf("status = %d, want 200 (nil limiter should allow)", w.Code)
	}
}

// TestNewRouter_HealthNotRateLimited verifies that the limiter applies to data
// routes only.
func TestNewRouter_HealthNotRateLimited(t *testing.T) {
	svc, _ := testhelpers.NewFixtureService(t)
	handler := NewHandler(svc, nil, zap.NewNop(), 10)
	router := NewRouter(handler, zap.NewNop(), rate.NewLimiter(rate.Every(time.Hour), 1), time.Second)

	if w := serve(t, router, "GET", "/api/countries"); w.Code != http.StatusOK {
		t.Fatalf("first data request status = %d, want 200", w.Code)
	}
	if w := serve(t, router, "GET", "/api/countries"); w.Code != http.StatusTooManyRequests {
		t.Errorf("second data request status = %d, want 429", w.Code)
	}
	if w := serve(t, router, "GET", "/metrics"); w.Code != http.StatusOK {
		t.Errorf("/metrics status = %d, want 200", w.Code)
	}
}

func TestGetRoute(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"/health", "/health"},
		{"/metrics", "/metrics"},
		{"/api/stats", "/api/stats"},
		{"/api/summary/GHI", "/api/summary/{metric}"},
		{"/charts/DNI.png", "/charts/{metric}.png"},
		{"/export/stats.xlsx", "/export/stats.xlsx"},
		{"/wp-admin", "other"},
	}
	for _, tt := range tests {
		req := httptest.NewRequest("GET", tt.path, nil)
		if got := getRoute(req); got != tt.want {
			t.Errorf("getRoute(%q) = %q, want %q", tt.path, got, tt.want)
		}
	}
}

func TestMiddleware_MetricsRoute(t *testing.T) {
	router := mux.NewRouter()
	router.Use(CorrelationIDMiddleware(zap.NewNop()))
	router.Use(MetricsMiddleware)
	router.Handle("/metrics", observability.MetricsHandler())

	if w := serve(t, router, "GET", "/metrics"); w.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", w.Code)
	}
}
