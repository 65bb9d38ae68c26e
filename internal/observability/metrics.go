package observability

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	registry *prometheus.Registry

	// HTTP request rate. Watch for: sudden drops (service down) or spikes (dashboard reload storms).
	HTTPRequestsTotal *prometheus.CounterVec

	// HTTP request latency per request. Reads are served from cache so p99 should stay flat.
	HTTPRequestDuration *prometheus.HistogramVec

	// Concurrent requests in flight.
	HTTPRequestsInFlight prometheus.Gauge

	// Upstream call rate per provider (weather, crypto, exchange, news). Watch for: error vs success ratio.
	UpstreamCallsTotal *prometheus.CounterVec

	// Upstream latency per provider. Watch for: p95 creeping toward the client timeout.
	UpstreamDuration *prometheus.HistogramVec

	// Upstream failures per provider and error category (timeout, upstream_status, parsing, ...).
	UpstreamErrorsTotal *prometheus.CounterVec

	// Fetch cycles per fetcher and result (success, partial, error).
	FetchCyclesTotal *prometheus.CounterVec

	// Cycles dropped because the previous cycle of the same fetcher was still running.
	FetchCyclesSkippedTotal *prometheus.CounterVec

	// Fetch cycle duration per fetcher.
	FetchCycleDuration *prometheus.HistogramVec

	// Unix time of the last cycle that completed without error, per fetcher. Watch for: staleness.
	FetchLastSuccessTimestamp *prometheus.GaugeVec

	// Cache operation latency by operation and result.
	CacheOperationDurationSeconds *prometheus.HistogramVec

	// Cache backend errors by operation and category.
	CacheErrorsTotal *prometheus.CounterVec

	// Weather placeholders written after a non-2xx forecast response, per location.
	WeatherPlaceholdersTotal *prometheus.CounterVec

	// Rate limit denials on the public API.
	RateLimitDeniedTotal prometheus.Counter

	registerOnce sync.Once
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
	UpstreamCallsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "upstreamCallsTotal",
			Help: "Total number of upstream API calls",
		},
		[]string{"provider", "status"},
	)
	UpstreamDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "upstreamDurationSeconds",
			Help:    "Upstream API latency in seconds (per request)",
			Buckets: []float64{.1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"provider", "status"},
	)
	UpstreamErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "upstreamErrorsTotal",
			Help: "Upstream failures by provider and error category",
		},
		[]string{"provider", "category"},
	)
	FetchCyclesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fetchCyclesTotal",
			Help: "Completed fetch cycles by fetcher and result",
		},
		[]string{"fetcher", "result"},
	)
	FetchCyclesSkippedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fetchCyclesSkippedTotal",
			Help: "Fetch cycles skipped because the previous cycle was still running",
		},
		[]string{"fetcher"},
	)
	FetchCycleDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "fetchCycleDurationSeconds",
			Help:    "Fetch cycle duration in seconds",
			Buckets: []float64{.25, .5, 1, 2.5, 5, 10, 30, 60},
		},
		[]string{"fetcher"},
	)
	FetchLastSuccessTimestamp = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "fetchLastSuccessTimestampSeconds",
			Help: "Unix time of the last fetch cycle that completed without error",
		},
		[]string{"fetcher"},
	)
	CacheOperationDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "cacheOperationDurationSeconds",
			Help:    "Cache backend operation latency in seconds",
			Buckets: []float64{.0005, .001, .005, .01, .05, .1, .5},
		},
		[]string{"operation", "result"},
	)
	CacheErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cacheErrorsTotal",
			Help: "Cache backend errors by operation and category",
		},
		[]string{"operation", "category"},
	)
	WeatherPlaceholdersTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "weatherPlaceholdersTotal",
			Help: "Placeholder readings written after a non-2xx forecast response",
		},
		[]string{"location"},
	)
	RateLimitDeniedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "rateLimitDeniedTotal",
			Help: "Total number of requests denied by rate limiter (429)",
		},
	)

	registry.MustRegister(
		HTTPRequestsTotal, HTTPRequestDuration, HTTPRequestsInFlight,
		UpstreamCallsTotal, UpstreamDuration, UpstreamErrorsTotal,
		FetchCyclesTotal, FetchCyclesSkippedTotal, FetchCycleDuration, FetchLastSuccessTimestamp,
		CacheOperationDurationSeconds, CacheErrorsTotal,
		WeatherPlaceholdersTotal,
		RateLimitDeniedTotal,
	)
}

// RegisterFetchQueueGauge registers a gauge reporting the number of scheduled
// fetch jobs. Call once from main after the scheduler is built.
func RegisterFetchQueueGauge(jobs func() int) {
	registerOnce.Do(func() {
		registry.MustRegister(prometheus.NewGaugeFunc(
			prometheus.GaugeOpts{
				Name: "fetchJobsScheduled",
				Help: "Fetch jobs registered with the scheduler",
			},
			func() float64 { return float64(jobs()) },
		))
	})
}

// MetricsHandler returns an http.Handler that serves application and runtime metrics.
func MetricsHandler() http.Handler {
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
}
