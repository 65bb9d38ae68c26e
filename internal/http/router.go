package http

import (
	"net/http"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/kjstillabower/dashboard-feed-service/internal/observability"
)

// RouterOptions configures NewRouter.
type RouterOptions struct {
	Limiter        *rate.Limiter
	RequestTimeout time.Duration
	// StaticDir is served at / when non-empty.
	StaticDir string
	Logger    *zap.Logger
}

// NewRouter wires the API, /health, /metrics and static assets behind CORS.
func NewRouter(h *Handler, opts RouterOptions) http.Handler {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	router := mux.NewRouter()
	router.Use(CorrelationIDMiddleware(logger))
	router.Use(MetricsMiddleware)
	router.HandleFunc("/health", h.GetHealth).Methods(http.MethodGet)
	router.Handle("/metrics", observability.MetricsHandler())

	api := router.NewRoute().Subrouter()
	api.Use(RateLimitMiddleware(opts.Limiter))
	if opts.RequestTimeout > 0 {
		api.Use(TimeoutMiddleware(opts.RequestTimeout))
	}
	api.HandleFunc("/crypto", h.GetCryptoList).Methods(http.MethodGet)
	api.HandleFunc("/crypto/{symbol}", h.GetCryptoSymbol).Methods(http.MethodGet)
	api.HandleFunc("/weather", h.GetWeatherList).Methods(http.MethodGet)
	api.HandleFunc("/weather/{location}", h.GetWeatherLocation).Methods(http.MethodGet)
	api.HandleFunc("/exchange/{base}", h.GetExchangeBase).Methods(http.MethodGet)
	api.HandleFunc("/news", h.GetNews).Methods(http.MethodGet)

	if opts.StaticDir != "" {
		router.PathPrefix("/").Handler(http.FileServer(http.Dir(opts.StaticDir))).Methods(http.MethodGet, http.MethodHead)
	}

	return handlers.CORS(
		handlers.AllowedOrigins([]string{"*"}),
		handlers.AllowedMethods([]string{http.MethodGet, http.MethodHead, http.MethodOptions}),
		handlers.AllowedHeaders([]string{"Content-Type", "X-Correlation-ID"}),
		handlers.ExposedHeaders([]string{"X-Correlation-ID"}),
	)(router)
}
