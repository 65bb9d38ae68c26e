package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kjstillabower/dashboard-feed-service/internal/models"
	"github.com/kjstillabower/dashboard-feed-service/internal/observability"
)

const (
	weatherPrefix  = "weather:"
	cryptoPrefix   = "crypto:"
	exchangePrefix = "exchange:"
	newsKey        = "news"
)

// Store is the service's snapshot of upstream data. Fetchers write into it and
// HTTP handlers read from it. Every entity lives under its own key, so a
// write replaces exactly one location, symbol, base or the news list and
// never touches the others.
type Store struct {
	backend Cache
}

// NewStore wraps a backend.
func NewStore(backend Cache) *Store {
	return &Store{backend: backend}
}

func weatherKey(name string) string { return weatherPrefix + url.QueryEscape(name) }
func cryptoKey(symbol string) string { return cryptoPrefix + url.QueryEscape(symbol) }
func exchangeKey(base string) string { return exchangePrefix + url.QueryEscape(base) }

// PutWeather overwrites the reading for r.Name.
func (s *Store) PutWeather(ctx context.Context, r models.WeatherReading) error {
	return s.put(ctx, weatherKey(r.Name), r)
}

// Weather returns the reading for a location name.
func (s *Store) Weather(ctx context.Context, name string) (models.WeatherReading, bool, error) {
	var r models.WeatherReading
	ok, err := s.get(ctx, weatherKey(name), &r)
	return r, ok, err
}

// WeatherFor returns the readings present for locs, in locs order.
// Locations that were never fetched are omitted.
func (s *Store) WeatherFor(ctx context.Context, locs []models.Location) ([]models.WeatherReading, error) {
	out := make([]models.WeatherReading, 0, len(locs))
	for _, loc := range locs {
		r, ok, err := s.Weather(ctx, loc.Name)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, r)
		}
	}
	return out, nil
}

// PutQuote overwrites the quote for q.Symbol.
func (s *Store) PutQuote(ctx context.Context, q models.CryptoQuote) error {
	return s.put(ctx, cryptoKey(q.Symbol), q)
}

// Quote returns the quote for a trading symbol.
func (s *Store) Quote(ctx context.Context, symbol string) (models.CryptoQuote, bool, error) {
	var q models.CryptoQuote
	ok, err := s.get(ctx, cryptoKey(symbol), &q)
	return q, ok, err
}

// PutRate overwrites the rate for r.Base.
func (s *Store) PutRate(ctx context.Context, r models.ExchangeRate) error {
	return s.put(ctx, exchangeKey(r.Base), r)
}

// Rate returns the rate for a base currency.
func (s *Store) Rate(ctx context.Context, base string) (models.ExchangeRate, bool, error) {
	var r models.ExchangeRate
	ok, err := s.get(ctx, exchangeKey(base), &r)
	return r, ok, err
}

// Prices returns symbols' quotes followed by bases' rates as one price list,
// in argument order. Missing entries are omitted.
func (s *Store) Prices(ctx context.Context, symbols, bases []string) ([]models.PricePoint, error) {
	out := make([]models.PricePoint, 0, len(symbols)+len(bases))
	for _, sym := range symbols {
		q, ok, err := s.Quote(ctx, sym)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, q.Point())
		}
	}
	for _, base := range bases {
		r, ok, err := s.Rate(ctx, base)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, r.Point())
		}
	}
	return out, nil
}

// PutNews replaces the news snapshot.
func (s *Store) PutNews(ctx context.Context, n models.NewsSnapshot) error {
	return s.put(ctx, newsKey, n)
}

// News returns the news snapshot; false until the first successful fetch.
func (s *Store) News(ctx context.Context) (models.NewsSnapshot, bool, error) {
	var n models.NewsSnapshot
	ok, err := s.get(ctx, newsKey, &n)
	return n, ok, err
}

func (s *Store) put(ctx context.Context, key string, v interface{}) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("cache encode %s: %w", key, err)
	}
	start := time.Now()
	if err := s.backend.Set(ctx, key, raw); err != nil {
		observability.CacheErrorsTotal.WithLabelValues("set", categorizeCacheError(err)).Inc()
		observability.CacheOperationDurationSeconds.WithLabelValues("set", "error").Observe(time.Since(start).Seconds())
		return fmt.Errorf("cache set %s: %w", key, err)
	}
	observability.CacheOperationDurationSeconds.WithLabelValues("set", "success").Observe(time.Since(start).Seconds())
	return nil
}

func (s *Store) get(ctx context.Context, key string, v interface{}) (bool, error) {
	start := time.Now()
	raw, ok, err := s.backend.Get(ctx, key)
	if err != nil {
		observability.CacheErrorsTotal.WithLabelValues("get", categorizeCacheError(err)).Inc()
		observability.CacheOperationDurationSeconds.WithLabelValues("get", "error").Observe(time.Since(start).Seconds())
		return false, fmt.Errorf("cache get %s: %w", key, err)
	}
	observability.CacheOperationDurationSeconds.WithLabelValues("get", "success").Observe(time.Since(start).Seconds())
	if !ok {
		return false, nil
	}
	if err := json.Unmarshal(raw, v); err != nil {
		observability.CacheErrorsTotal.WithLabelValues("get", "decode").Inc()
		return false, fmt.Errorf("cache decode %s: %w", key, err)
	}
	return true, nil
}

// categorizeCacheError returns a stable label for cache error metrics.
func categorizeCacheError(err error) string {
	if err == nil {
		return "unknown"
	}
	if err == context.Canceled || err == context.DeadlineExceeded {
		return "context"
	}
	errStr := err.Error()
	if strings.Contains(errStr, "timeout") {
		return "timeout"
	}
	if strings.Contains(errStr, "connection") || strings.Contains(errStr, "network") || strings.Contains(errStr, "no servers") {
		return "connection"
	}
	return "unknown"
}
