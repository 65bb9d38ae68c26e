//go:build integration
// +build integration

package testhelpers

import (
	"os"
	"testing"
	"time"

	"github.com/kjstillabower/dashboard-feed-service/internal/cache"
	"github.com/kjstillabower/dashboard-feed-service/internal/client"
	"github.com/kjstillabower/dashboard-feed-service/internal/config"
	"github.com/kjstillabower/dashboard-feed-service/internal/refresh"
)

// IntegrationTestConfig holds configuration for integration tests.
type IntegrationTestConfig struct {
	UserAgent     string
	CacheBackend  string // "in_memory" or "memcached"
	MemcachedAddr string
}

// GetIntegrationConfig loads integration test configuration from environment.
// Skips test if UPSTREAM_USER_AGENT is not set; met.no rejects anonymous clients.
func GetIntegrationConfig(t *testing.T) IntegrationTestConfig {
	ua := os.Getenv("UPSTREAM_USER_AGENT")
	if ua == "" {
		t.Skip("UPSTREAM_USER_AGENT not set, skipping integration test")
	}
	memcachedAddr := os.Getenv("MEMCACHED_ADDRS")
	if memcachedAddr == "" {
		memcachedAddr = "localhost:11211"
	}
	return IntegrationTestConfig{
		UserAgent:     ua,
		CacheBackend:  os.Getenv("INTEGRATION_CACHE_BACKEND"),
		MemcachedAddr: memcachedAddr,
	}
}

// SetupIntegrationStore returns a store on the configured backend and a cleanup function.
// Falls back to in-memory when memcached is unreachable.
func SetupIntegrationStore(t *testing.T, cfg IntegrationTestConfig) (*cache.Store, func()) {
	if cfg.CacheBackend == "memcached" {
		mc, err := cache.NewMemcachedCache(cfg.MemcachedAddr, 500*time.Millisecond, 2)
		if err == nil && mc.Ping() == nil {
			t.Logf("Using Memcached cache at %s", cfg.MemcachedAddr)
			return cache.NewStore(mc), func() { _ = mc.Close() }
		}
		t.Logf("Memcached not available, using in-memory cache")
	}
	return cache.NewStore(cache.NewInMemoryCache()), func() {}
}

// SetupIntegrationFetchers builds the four fetchers against the live default upstreams.
func SetupIntegrationFetchers(t *testing.T, cfg IntegrationTestConfig, store *cache.Store) []refresh.Fetcher {
	defaults, err := config.LoadFile("testdata/does-not-exist.yaml")
	if err != nil {
		t.Fatalf("config defaults: %v", err)
	}
	timeout := 10 * time.Second

	met, err := client.NewMetClient(defaults.WeatherAPIURL, cfg.UserAgent, timeout)
	if err != nil {
		t.Fatalf("NewMetClient() error = %v", err)
	}
	binance, err := client.NewBinanceClient(defaults.CryptoAPIURL, cfg.UserAgent, timeout)
	if err != nil {
		t.Fatalf("NewBinanceClient() error = %v", err)
	}
	rates, err := client.NewExchangeRateHostClient(defaults.ExchangeAPIURL, cfg.UserAgent, timeout)
	if err != nil {
		t.Fatalf("NewExchangeRateHostClient() error = %v", err)
	}
	relay, err := client.NewRelayFeedClient(defaults.NewsProxyURL, defaults.NewsFeedURL, cfg.UserAgent, timeout)
	if err != nil {
		t.Fatalf("NewRelayFeedClient() error = %v", err)
	}

	return []refresh.Fetcher{
		refresh.NewNewsFetcher(relay, store, defaults.NewsMaxItems, nil),
		refresh.NewWeatherFetcher(met, store, defaults.Locations, nil),
		refresh.NewCryptoFetcher(binance, store, defaults.CryptoSymbols, nil),
		refresh.NewExchangeFetcher(rates, store, defaults.ExchangeBases, defaults.ExchangeTarget, nil),
	}
}
