package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/kjstillabower/solar-dashboard-service/internal/cache"
	"github.com/kjstillabower/solar-dashboard-service/internal/circuitbreaker"
	"github.com/kjstillabower/solar-dashboard-service/internal/config"
	"github.com/kjstillabower/solar-dashboard-service/internal/dataset"
	httphandler "github.com/kjstillabower/solar-dashboard-service/internal/http"
	"github.com/kjstillabower/solar-dashboard-service/internal/lifecycle"
	"github.com/kjstillabower/solar-dashboard-service/internal/observability"
	"github.com/kjstillabower/solar-dashboard-service/internal/service"
)

func main() {
	logger, err := observability.NewLogger()
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("config", zap.Error(err))
	}

	cacheSvc, memcacheCloser, err := newCache(cfg, logger)
	if err != nil {
		logger.Fatal("memcached cache", zap.Error(err))
	}
	logger.Info("cache backend", zap.String("backend", cfg.CacheBackend), zap.Duration("ttl", cfg.CacheTTL))

	loader := dataset.NewLoader(cfg.DataCandidates, cfg.DataFiles, logger)
	logger.Info("data sources",
		zap.Strings("candidates", loader.Candidates()),
		zap.Strings("files", loader.Files()))
	dashboard := service.NewDashboardService(loader, cacheSvc, cfg.CacheTTL, logger)

	healthConfig := &httphandler.HealthConfig{StartTime: time.Now()}
	if memcacheCloser != nil {
		healthConfig.CachePing = memcacheCloser.Ping
	}

	var limiter *rate.Limiter
	if cfg.RateLimitRPS > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RateLimitRPS), cfg.RateLimitBurst)
	}
	handler := httphandler.NewHandler(dashboard, healthConfig, logger, cfg.StatsTopN)

	warmCtx, warmCancel := context.WithCancel(context.Background())
	defer warmCancel()
	if cfg.WarmCache {
		warmer := cache.NewCacheWarmer(dashboard, logger)
		if cfg.WarmInterval > 0 {
			go func() {
				if err := warmer.WarmPeriodic(warmCtx, cfg.WarmInterval); err != nil && !errors.Is(err, context.Canceled) {
					logger.Error("periodic cache warming stopped", zap.Error(err))
				}
			}()
		} else {
			ctx, cancel := context.WithTimeout(warmCtx, 30*time.Second)
			if err := warmer.Warm(ctx); err != nil {
				logger.Warn("cache warming failed", zap.Error(err))
			}
			cancel()
		}
	}

	router := httphandler.NewRouter(handler, logger, limiter, cfg.RequestTimeout)
	srv := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: cfg.RequestTimeout + 5*time.Second,
	}

	go func() {
		logger.Info("server starting", zap.String("addr", ":"+cfg.ServerPort))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server", zap.Error(err))
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	<-ctx.Done()
	stop()

	logger.Info("graceful shutdown triggered")
	lifecycle.SetShuttingDown(true)
	warmCancel()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", zap.Error(err))
	}

	inFlight := httphandler.InFlightCount()
	logger.Info("waiting for in-flight requests", zap.Int64("count", inFlight))
	waitCtx, waitCancel := context.WithTimeout(context.Background(), cfg.ShutdownInFlightTimeout)
	defer waitCancel()
	if err := httphandler.WaitForInFlight(waitCtx, cfg.ShutdownInFlightCheckInterval); err != nil {
		logger.Warn("in-flight requests not completed", zap.Error(err), zap.Int64("remaining", httphandler.InFlightCount()))
	}

	if err := observability.FlushTelemetry(context.Background(), logger); err != nil {
		logger.Error("telemetry flush", zap.Error(err))
	}

	if memcacheCloser != nil {
		if err := memcacheCloser.Close(); err != nil {
			logger.Error("memcached close", zap.Error(err))
		}
	}
	logger.Info("shutdown complete")
}

// newCache builds the configured cache backend. Memcached is wrapped in a circuit
// breaker; the returned *MemcachedCache is nil for the in-memory backend.
func newCache(cfg *config.Config, logger *zap.Logger) (cache.Cache, *cache.MemcachedCache, error) {
	if cfg.CacheBackend != "memcached" {
		return cache.NewInMemoryCache(), nil, nil
	}
	mc, err := cache.NewMemcachedCache(cfg.MemcachedAddrs, cfg.MemcachedTimeout, cfg.MemcachedMaxIdleConns)
	if err != nil {
		return nil, nil, err
	}
	breaker := circuitbreaker.New(circuitbreaker.Config{
		FailureThreshold: cfg.MemcachedBreakerFailures,
		Timeout:          cfg.MemcachedBreakerTimeout,
		OnStateChange: func(from, to circuitbreaker.State) {
			observability.CacheCircuitState.Set(float64(to))
			logger.Warn("memcached circuit breaker transition",
				zap.String("from", from.String()),
				zap.String("to", to.String()))
		},
	})
	return cache.NewBreakerCache(mc, breaker), mc, nil
}
