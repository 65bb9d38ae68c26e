package http

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/mmcdole/gofeed"
	"go.uber.org/zap"

	"github.com/kjstillabower/dashboard-feed-service/internal/cache"
	"github.com/kjstillabower/dashboard-feed-service/internal/lifecycle"
	"github.com/kjstillabower/dashboard-feed-service/internal/models"
	"github.com/kjstillabower/dashboard-feed-service/internal/observability"
	"github.com/kjstillabower/dashboard-feed-service/internal/refresh"
	"github.com/kjstillabower/dashboard-feed-service/internal/traffic"
	"github.com/kjstillabower/dashboard-feed-service/internal/validation"
)

// Error messages returned in the {"error": "..."} body.
const (
	msgSymbolNotFound   = "Symbol not found"
	msgBaseNotFound     = "Base currency not found"
	msgNewsNotAvailable = "News data not yet available"
	msgCacheUnavailable = "Cache unavailable"
	msgTooManyRequests  = "Too many requests"
)

// Catalog lists what the aggregate endpoints report, in response order.
type Catalog struct {
	Locations     []models.Location
	CryptoSymbols []string
	ExchangeBases []string
}

// HealthConfig holds thresholds for the health handler.
type HealthConfig struct {
	DegradedWindow   time.Duration
	DegradedErrorPct int
	StartTime        time.Time
	// CachePing, when set, is called to check cache reachability. Used when backend is memcached.
	CachePing func() error
}

// Handler holds dependencies for HTTP handlers. Handlers only read the store;
// no request ever triggers or waits for an upstream fetch.
type Handler struct {
	store            *cache.Store
	status           *refresh.StatusRegistry
	catalog          Catalog
	healthConfig     *HealthConfig
	logger           *zap.Logger
	healthStatusMu   sync.Mutex
	healthStatusPrev string
}

// NewHandler returns a new Handler. status and healthConfig may be nil.
func NewHandler(
	store *cache.Store,
	status *refresh.StatusRegistry,
	catalog Catalog,
	healthConfig *HealthConfig,
	logger *zap.Logger,
) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		store:        store,
		status:       status,
		catalog:      catalog,
		healthConfig: healthConfig,
		logger:       logger,
	}
}

// GetCryptoSymbol handles GET /crypto/{symbol}. Responds with the ticker
// payload exactly as the provider sent it.
func (h *Handler) GetCryptoSymbol(w http.ResponseWriter, r *http.Request) {
	symbol := mux.Vars(r)["symbol"]
	if err := validation.ValidateKey(symbol); err != nil {
		writeError(w, http.StatusNotFound, msgSymbolNotFound)
		return
	}
	q, ok, err := h.store.Quote(r.Context(), symbol)
	if err != nil {
		writeCacheError(w, r, err)
		return
	}
	if !ok {
		writeError(w, http.StatusNotFound, msgSymbolNotFound)
		return
	}
	loggerFrom(r).Debug("crypto lookup", zap.String("symbol", symbol))
	writeRaw(w, q.Raw, q)
}

// GetWeatherLocation handles GET /weather/{location}. An unknown location is
// not an error: the body is JSON null.
func (h *Handler) GetWeatherLocation(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["location"]
	if err := validation.ValidateKey(name); err != nil {
		writeJSON(w, http.StatusOK, nil)
		return
	}
	reading, ok, err := h.store.Weather(r.Context(), name)
	if err != nil {
		writeCacheError(w, r, err)
		return
	}
	if !ok {
		writeJSON(w, http.StatusOK, nil)
		return
	}
	writeJSON(w, http.StatusOK, reading.Summary())
}

// GetExchangeBase handles GET /exchange/{base}.
func (h *Handler) GetExchangeBase(w http.ResponseWriter, r *http.Request) {
	base := mux.Vars(r)["base"]
	if err := validation.ValidateKey(base); err != nil {
		writeError(w, http.StatusNotFound, msgBaseNotFound)
		return
	}
	rate, ok, err := h.store.Rate(r.Context(), base)
	if err != nil {
		writeCacheError(w, r, err)
		return
	}
	if !ok {
		writeError(w, http.StatusNotFound, msgBaseNotFound)
		return
	}
	writeRaw(w, rate.Raw, rate)
}

// GetNews handles GET /news.
func (h *Handler) GetNews(w http.ResponseWriter, r *http.Request) {
	snap, ok, err := h.store.News(r.Context())
	if err != nil {
		writeCacheError(w, r, err)
		return
	}
	if !ok {
		writeError(w, http.StatusServiceUnavailable, msgNewsNotAvailable)
		return
	}
	items := snap.Items
	if items == nil {
		items = []*gofeed.Item{}
	}
	writeJSON(w, http.StatusOK, items)
}

// GetCryptoList handles GET /crypto: configured symbols in order, then the
// exchange bases. Entries not yet fetched are left out.
func (h *Handler) GetCryptoList(w http.ResponseWriter, r *http.Request) {
	prices, err := h.store.Prices(r.Context(), h.catalog.CryptoSymbols, h.catalog.ExchangeBases)
	if err != nil {
		writeCacheError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, prices)
}

// GetWeatherList handles GET /weather in configured location order.
func (h *Handler) GetWeatherList(w http.ResponseWriter, r *http.Request) {
	readings, err := h.store.WeatherFor(r.Context(), h.catalog.Locations)
	if err != nil {
		writeCacheError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, readings)
}

// healthResult holds the computed health status and metadata for logging.
type healthResult struct {
	status     string
	statusCode int
	reason     string
}

// fetcherHealth is a fetcher's status plus its cycle outcomes over the
// health window.
type fetcherHealth struct {
	refresh.FetcherStatus
	RecentCycles   int `json:"recentCycles"`
	RecentFailures int `json:"recentFailures"`
}

// healthWindow is the lookback for error rates and denial counts.
func (h *Handler) healthWindow() time.Duration {
	if h.healthConfig != nil && h.healthConfig.DegradedWindow > 0 {
		return h.healthConfig.DegradedWindow
	}
	return traffic.DefaultRetention
}

// GetHealth handles GET /health.
func (h *Handler) GetHealth(w http.ResponseWriter, r *http.Request) {
	result, checks := h.computeHealthStatus()

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

	resp := map[string]interface{}{
		"status":    result.status,
		"service":   observability.ServiceName,
		"version":   "dev",
		"lifecycle": lifecycle.Current().String(),
		"checks":    checks,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}
	window := h.healthWindow()
	if h.status != nil {
		snap := h.status.Snapshot()
		fetchers := make([]fetcherHealth, 0, len(snap))
		for _, st := range snap {
			failed, total := traffic.FetcherErrorRate(st.Name, window)
			fetchers = append(fetchers, fetcherHealth{FetcherStatus: st, RecentCycles: total, RecentFailures: failed})
		}
		resp["fetchers"] = fetchers
	}
	resp["rateLimitDenials"] = traffic.DenialCount(window)
	if h.healthConfig != nil && !h.healthConfig.StartTime.IsZero() {
		resp["uptimeSeconds"] = int64(time.Since(h.healthConfig.StartTime).Seconds())
	}
	writeJSON(w, result.statusCode, resp)
}

// computeHealthStatus evaluates conditions in priority order:
// shutting-down > cache unreachable > fetch error rate > healthy.
func (h *Handler) computeHealthStatus() (healthResult, map[string]string) {
	checks := map[string]string{"upstreams": "healthy"}
	if lifecycle.IsShuttingDown() {
		return healthResult{"shutting-down", http.StatusServiceUnavailable, "signal"}, checks
	}
	if h.healthConfig == nil {
		return healthResult{"healthy", http.StatusOK, ""}, checks
	}
	if h.healthConfig.CachePing != nil {
		if err := h.healthConfig.CachePing(); err != nil {
			checks["cache"] = "unhealthy"
			return healthResult{"degraded", http.StatusServiceUnavailable, "cache_unreachable"}, checks
		}
		checks["cache"] = "healthy"
	}
	if h.healthConfig.DegradedWindow > 0 && h.healthConfig.DegradedErrorPct > 0 {
		failed, total := traffic.ErrorRate(h.healthConfig.DegradedWindow)
		if total > 0 && float64(failed)*100/float64(total) >= float64(h.healthConfig.DegradedErrorPct) {
			checks["upstreams"] = "unhealthy"
			return healthResult{"degraded", http.StatusServiceUnavailable, "error_rate_breach"}, checks
		}
	}
	return healthResult{"healthy", http.StatusOK, ""}, checks
}

// writeJSON writes a JSON response with the specified HTTP status code.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeRaw writes a stored provider payload verbatim, falling back to
// encoding v when no payload was kept.
func writeRaw(w http.ResponseWriter, raw json.RawMessage, v interface{}) {
	if len(raw) == 0 {
		writeJSON(w, http.StatusOK, v)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(raw)
}

// writeError writes the {"error": message} body.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// writeCacheError answers 503 when the cache backend fails.
func writeCacheError(w http.ResponseWriter, r *http.Request, err error) {
	loggerFrom(r).Error("cache read failed", zap.Error(err))
	writeError(w, http.StatusServiceUnavailable, msgCacheUnavailable)
}
