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

	"github.com/kjstillabower/dashboard-feed-service/internal/cache"
	"github.com/kjstillabower/dashboard-feed-service/internal/client"
	"github.com/kjstillabower/dashboard-feed-service/internal/config"
	httphandler "github.com/kjstillabower/dashboard-feed-service/internal/http"
	"github.com/kjstillabower/dashboard-feed-service/internal/lifecycle"
	"github.com/kjstillabower/dashboard-feed-service/internal/observability"
	"github.com/kjstillabower/dashboard-feed-service/internal/refresh"
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

	backend, memcacheCloser, err := newCacheBackend(cfg)
	if err != nil {
		logger.Fatal("cache backend", zap.Error(err))
	}
	logger.Info("cache backend", zap.String("backend", cfg.CacheBackend))
	store := cache.NewStore(backend)

	status := refresh.NewStatusRegistry()
	scheduler, err := refresh.NewScheduler(status, logger)
	if err != nil {
		logger.Fatal("scheduler", zap.Error(err))
	}
	jobs, err := buildFetchers(cfg, store, logger)
	if err != nil {
		logger.Fatal("fetchers", zap.Error(err))
	}
	for _, job := range jobs {
		if err := scheduler.Add(job.fetcher, job.interval); err != nil {
			logger.Fatal("schedule fetcher", zap.Error(err))
		}
	}
	observability.RegisterFetchQueueGauge(scheduler.JobCount)

	healthConfig := &httphandler.HealthConfig{
		DegradedWindow:   cfg.DegradedWindow,
		DegradedErrorPct: cfg.DegradedErrorPct,
		StartTime:        time.Now(),
	}
	if memcacheCloser != nil {
		healthConfig.CachePing = memcacheCloser.Ping
	}

	var limiter *rate.Limiter
	if cfg.RateLimitRPS > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RateLimitRPS), cfg.RateLimitBurst)
	}
	catalog := httphandler.Catalog{
		Locations:     cfg.Locations,
		CryptoSymbols: cfg.CryptoSymbols,
		ExchangeBases: cfg.ExchangeBases,
	}
	handler := httphandler.NewHandler(store, status, catalog, healthConfig, logger)
	router := httphandler.NewRouter(handler, httphandler.RouterOptions{
		Limiter:        limiter,
		RequestTimeout: cfg.RequestTimeout,
		StaticDir:      cfg.StaticDir,
		Logger:         logger,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	scheduler.Start()
	go func() {
		logger.Info("server starting", zap.String("addr", srv.Addr))
		lifecycle.Set(lifecycle.Serving)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server", zap.Error(err))
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	<-ctx.Done()
	stop()

	logger.Info("graceful shutdown triggered")
	lifecycle.SetShuttingDown(true)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", zap.Error(err))
	}

	logger.Info("waiting for in-flight requests", zap.Int64("count", httphandler.InFlightCount()))
	waitCtx, waitCancel := context.WithTimeout(context.Background(), cfg.ShutdownInFlightTimeout)
	defer waitCancel()
	if err := httphandler.WaitForInFlight(waitCtx, cfg.ShutdownInFlightCheckInterval); err != nil {
		logger.Warn("in-flight requests not completed", zap.Error(err), zap.Int64("remaining", httphandler.InFlightCount()))
	}

	if err := scheduler.Shutdown(); err != nil {
		logger.Error("scheduler shutdown", zap.Error(err))
	}

	if memcacheCloser != nil {
		if err := memcacheCloser.Close(); err != nil {
			logger.Error("memcached close", zap.Error(err))
		}
	}
	logger.Info("shutdown complete")
	if err := observability.FlushTelemetry(context.Background(), logger); err != nil {
		fmt.Fprintf(os.Stderr, "telemetry flush: %v\n", err)
	}
}

// newCacheBackend returns the configured backend. The second value is non-nil
// only for memcached and is used for health pings and shutdown.
func newCacheBackend(cfg *config.Config) (cache.Cache, *cache.MemcachedCache, error) {
	switch cfg.CacheBackend {
	case "memcached":
		mc, err := cache.NewMemcachedCache(cfg.MemcachedAddrs, cfg.MemcachedTimeout, cfg.MemcachedMaxIdleConns)
		if err != nil {
			return nil, nil, err
		}
		return mc, mc, nil
	default:
		return cache.NewInMemoryCache(), nil, nil
	}
}

type fetcherJob struct {
	fetcher  refresh.Fetcher
	interval time.Duration
}

// buildFetchers creates one fetcher per upstream in startup order: news,
// weather, crypto, exchange.
func buildFetchers(cfg *config.Config, store *cache.Store, logger *zap.Logger) ([]fetcherJob, error) {
	relay, err := client.NewRelayFeedClient(cfg.NewsProxyURL, cfg.NewsFeedURL, cfg.UserAgent, cfg.UpstreamTimeout)
	if err != nil {
		return nil, fmt.Errorf("news client: %w", err)
	}
	met, err := client.NewMetClient(cfg.WeatherAPIURL, cfg.UserAgent, cfg.UpstreamTimeout)
	if err != nil {
		return nil, fmt.Errorf("weather client: %w", err)
	}
	binance, err := client.NewBinanceClient(cfg.CryptoAPIURL, cfg.UserAgent, cfg.UpstreamTimeout)
	if err != nil {
		return nil, fmt.Errorf("crypto client: %w", err)
	}
	rates, err := client.NewExchangeRateHostClient(cfg.ExchangeAPIURL, cfg.UserAgent, cfg.UpstreamTimeout)
	if err != nil {
		return nil, fmt.Errorf("exchange client: %w", err)
	}

	return []fetcherJob{
		{refresh.NewNewsFetcher(relay, store, cfg.NewsMaxItems, logger), cfg.NewsInterval},
		{refresh.NewWeatherFetcher(met, store, cfg.Locations, logger), cfg.WeatherInterval},
		{refresh.NewCryptoFetcher(binance, store, cfg.CryptoSymbols, logger), cfg.CryptoInterval},
		{refresh.NewExchangeFetcher(rates, store, cfg.ExchangeBases, cfg.ExchangeTarget, logger), cfg.ExchangeInterval},
	}, nil
}
