package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/kjstillabower/dashboard-feed-service/internal/models"
	"github.com/kjstillabower/dashboard-feed-service/internal/validation"
)

// Config holds service configuration loaded from YAML and env.
type Config struct {
	ServerPort string
	StaticDir  string

	UserAgent       string
	UpstreamTimeout time.Duration

	WeatherAPIURL   string
	Locations       []models.Location
	WeatherInterval time.Duration

	CryptoAPIURL   string
	CryptoSymbols  []string
	CryptoInterval time.Duration

	ExchangeAPIURL   string
	ExchangeBases    []string
	ExchangeTarget   string
	ExchangeInterval time.Duration

	NewsFeedURL  string
	NewsProxyURL string
	NewsMaxItems int
	NewsInterval time.Duration

	CacheBackend          string // "in_memory" or "memcached"
	MemcachedAddrs        string
	MemcachedTimeout      time.Duration
	MemcachedMaxIdleConns int

	RequestTimeout time.Duration
	RateLimitRPS   int
	RateLimitBurst int

	ShutdownTimeout               time.Duration
	ShutdownInFlightTimeout       time.Duration
	ShutdownInFlightCheckInterval time.Duration

	DegradedWindow   time.Duration
	DegradedErrorPct int
}

type fileConfig struct {
	Server struct {
		Port      string `yaml:"port"`
		StaticDir string `yaml:"static_dir"`
	} `yaml:"server"`

	Upstream struct {
		UserAgent string `yaml:"user_agent"`
		Timeout   string `yaml:"timeout"`
	} `yaml:"upstream"`

	Weather struct {
		URL       string            `yaml:"url"`
		Interval  string            `yaml:"interval"`
		Locations []models.Location `yaml:"locations"`
	} `yaml:"weather"`

	Crypto struct {
		URL      string   `yaml:"url"`
		Interval string   `yaml:"interval"`
		Symbols  []string `yaml:"symbols"`
	} `yaml:"crypto"`

	Exchange struct {
		URL      string   `yaml:"url"`
		Interval string   `yaml:"interval"`
		Bases    []string `yaml:"bases"`
		Target   string   `yaml:"target"`
	} `yaml:"exchange"`

	News struct {
		FeedURL  string `yaml:"feed_url"`
		ProxyURL string `yaml:"proxy_url"`
		MaxItems int    `yaml:"max_items"`
		Interval string `yaml:"interval"`
	} `yaml:"news"`

	Request struct {
		Timeout string `yaml:"timeout"`
	} `yaml:"request"`

	Cache struct {
		Backend   string `yaml:"backend"`
		Memcached struct {
			Addrs        string `yaml:"addrs"`
			Timeout      string `yaml:"timeout"`
			MaxIdleConns int    `yaml:"max_idle_conns"`
		} `yaml:"memcached"`
	} `yaml:"cache"`

	Reliability struct {
		RateLimitRPS   int `yaml:"rate_limit_rps"`
		RateLimitBurst int `yaml:"rate_limit_burst"`
	} `yaml:"reliability"`

	Shutdown struct {
		Timeout               string `yaml:"timeout"`
		InFlightTimeout       string `yaml:"in_flight_timeout"`
		InFlightCheckInterval string `yaml:"in_flight_check_interval"`
	} `yaml:"shutdown"`

	Health struct {
		DegradedWindow   string `yaml:"degraded_window"`
		DegradedErrorPct int    `yaml:"degraded_error_pct"`
	} `yaml:"health"`
}

// DefaultLocations are polled when the config file lists none.
func DefaultLocations() []models.Location {
	return []models.Location{
		{Name: "oslo", Latitude: 59.9139, Longitude: 10.7522},
		{Name: "sarpsborg", Latitude: 59.2831, Longitude: 11.1097},
		{Name: "copenhagen", Latitude: 55.6761, Longitude: 12.5683},
		{Name: "nice", Latitude: 43.7102, Longitude: 7.2620},
		{Name: "monaco", Latitude: 43.7384, Longitude: 7.4246},
	}
}

// DefaultCryptoSymbols are polled when the config file lists none.
func DefaultCryptoSymbols() []string {
	return []string{"BTCUSDT", "ETHUSDT", "LTCUSDT"}
}

// Load reads configuration from config/{ENV_NAME}.yaml (default dev) relative
// to the working directory. A missing file yields defaults; PORT, CACHE_BACKEND
// and MEMCACHED_ADDRS override the file.
func Load() (*Config, error) {
	env := os.Getenv("ENV_NAME")
	if env == "" {
		env = "dev"
	}

	cwd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("config: get working directory: %w", err)
	}
	return LoadFile(filepath.Join(cwd, "config", env+".yaml"))
}

// LoadFile loads configuration from the given path. A missing file is not an error.
func LoadFile(configPath string) (*Config, error) {
	var fc fileConfig
	data, err := os.ReadFile(configPath)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &fc); err != nil {
			return nil, fmt.Errorf("parse config file: %w", err)
		}
	case os.IsNotExist(err):
	default:
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg := fromFile(fc)
	if err := validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func fromFile(fc fileConfig) *Config {
	cfg := &Config{}

	cfg.ServerPort = strings.TrimSpace(os.Getenv("PORT"))
	if cfg.ServerPort == "" {
		cfg.ServerPort = fc.Server.Port
	}
	if cfg.ServerPort == "" {
		cfg.ServerPort = "5000"
	}
	cfg.StaticDir = stringOr(fc.Server.StaticDir, "public")

	cfg.UserAgent = stringOr(fc.Upstream.UserAgent, "dashboard-feed-service/1.0 github.com/kjstillabower/dashboard-feed-service")
	cfg.UpstreamTimeout = parseDuration(fc.Upstream.Timeout, 10*time.Second)

	cfg.WeatherAPIURL = stringOr(fc.Weather.URL, "https://api.met.no/weatherapi/locationforecast/2.0/compact")
	cfg.WeatherInterval = parseDuration(fc.Weather.Interval, 30*time.Minute)
	cfg.Locations = fc.Weather.Locations
	if len(cfg.Locations) == 0 {
		cfg.Locations = DefaultLocations()
	}
	for i := range cfg.Locations {
		cfg.Locations[i].Name = strings.TrimSpace(cfg.Locations[i].Name)
	}

	cfg.CryptoAPIURL = stringOr(fc.Crypto.URL, "https://api.binance.com/api/v3/ticker/24hr")
	cfg.CryptoInterval = parseDuration(fc.Crypto.Interval, 5*time.Minute)
	cfg.CryptoSymbols = upperAll(fc.Crypto.Symbols)
	if len(cfg.CryptoSymbols) == 0 {
		cfg.CryptoSymbols = DefaultCryptoSymbols()
	}

	cfg.ExchangeAPIURL = stringOr(fc.Exchange.URL, "https://api.exchangerate.host/latest")
	cfg.ExchangeInterval = parseDuration(fc.Exchange.Interval, 5*time.Minute)
	cfg.ExchangeBases = upperAll(fc.Exchange.Bases)
	if len(cfg.ExchangeBases) == 0 {
		cfg.ExchangeBases = []string{"USD", "EUR"}
	}
	cfg.ExchangeTarget = strings.ToUpper(stringOr(fc.Exchange.Target, "NOK"))

	cfg.NewsFeedURL = stringOr(fc.News.FeedURL, "https://www.nrk.no/nyheter/siste.rss")
	cfg.NewsProxyURL = stringOr(fc.News.ProxyURL, "https://api.allorigins.win/get")
	cfg.NewsMaxItems = fc.News.MaxItems
	if cfg.NewsMaxItems <= 0 {
		cfg.NewsMaxItems = 5
	}
	cfg.NewsInterval = parseDuration(fc.News.Interval, 10*time.Minute)

	cfg.CacheBackend = strings.TrimSpace(strings.ToLower(os.Getenv("CACHE_BACKEND")))
	if cfg.CacheBackend == "" {
		cfg.CacheBackend = strings.TrimSpace(strings.ToLower(fc.Cache.Backend))
	}
	if cfg.CacheBackend == "" {
		cfg.CacheBackend = "in_memory"
	}
	cfg.MemcachedAddrs = strings.TrimSpace(os.Getenv("MEMCACHED_ADDRS"))
	if cfg.MemcachedAddrs == "" {
		cfg.MemcachedAddrs = strings.TrimSpace(fc.Cache.Memcached.Addrs)
	}
	if cfg.MemcachedAddrs == "" {
		cfg.MemcachedAddrs = "localhost:11211"
	}
	cfg.MemcachedTimeout = parseDuration(fc.Cache.Memcached.Timeout, 500*time.Millisecond)
	cfg.MemcachedMaxIdleConns = fc.Cache.Memcached.MaxIdleConns
	if cfg.MemcachedMaxIdleConns <= 0 {
		cfg.MemcachedMaxIdleConns = 2
	}

	cfg.RequestTimeout = parseDuration(fc.Request.Timeout, 5*time.Second)
	cfg.RateLimitRPS = fc.Reliability.RateLimitRPS
	if cfg.RateLimitRPS <= 0 {
		cfg.RateLimitRPS = 50
	}
	cfg.RateLimitBurst = fc.Reliability.RateLimitBurst
	if cfg.RateLimitBurst <= 0 {
		cfg.RateLimitBurst = 100
	}

	cfg.ShutdownTimeout = parseDuration(fc.Shutdown.Timeout, 30*time.Second)
	cfg.ShutdownInFlightTimeout = parseDuration(fc.Shutdown.InFlightTimeout, 10*time.Second)
	cfg.ShutdownInFlightCheckInterval = parseDuration(fc.Shutdown.InFlightCheckInterval, 100*time.Millisecond)

	cfg.DegradedWindow = parseDuration(fc.Health.DegradedWindow, time.Hour)
	cfg.DegradedErrorPct = fc.Health.DegradedErrorPct
	if cfg.DegradedErrorPct <= 0 {
		cfg.DegradedErrorPct = 50
	}
	return cfg
}

func stringOr(s, defaultVal string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return defaultVal
	}
	return s
}

func upperAll(in []string) []string {
	var out []string
	for _, s := range in {
		s = strings.ToUpper(strings.TrimSpace(s))
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}

// parseDuration parses a duration string and returns defaultVal if parsing fails or result is <= 0.
func parseDuration(s string, defaultVal time.Duration) time.Duration {
	s = strings.TrimSpace(s)
	if s == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return defaultVal
	}
	return d
}

// validate performs post-load validation of configuration values.
func validate(cfg *Config) error {
	switch cfg.CacheBackend {
	case "in_memory", "memcached":
	default:
		return fmt.Errorf("cache.backend must be in_memory or memcached, got %q", cfg.CacheBackend)
	}
	seen := make(map[string]struct{}, len(cfg.Locations))
	for _, loc := range cfg.Locations {
		if loc.Name == "" {
			return fmt.Errorf("weather.locations: location name is required")
		}
		if err := validation.ValidateKey(loc.Name); err != nil {
			return fmt.Errorf("weather.locations: %q: %w", loc.Name, err)
		}
		if _, dup := seen[loc.Name]; dup {
			return fmt.Errorf("weather.locations: duplicate location %q", loc.Name)
		}
		seen[loc.Name] = struct{}{}
		if loc.Latitude < -90 || loc.Latitude > 90 || loc.Longitude < -180 || loc.Longitude > 180 {
			return fmt.Errorf("weather.locations: %q has out-of-range coordinates", loc.Name)
		}
	}
	for _, sym := range cfg.CryptoSymbols {
		if err := validation.ValidateKey(sym); err != nil {
			return fmt.Errorf("crypto.symbols: %q: %w", sym, err)
		}
	}
	for _, base := range cfg.ExchangeBases {
		if err := validation.ValidateKey(base); err != nil {
			return fmt.Errorf("exchange.bases: %q: %w", base, err)
		}
	}
	if cfg.DegradedErrorPct > 100 {
		return fmt.Errorf("health.degraded_error_pct must be <= 100, got %d", cfg.DegradedErrorPct)
	}
	return nil
}
