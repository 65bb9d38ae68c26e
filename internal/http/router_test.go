package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/kjstillabower/dashboard-feed-service/internal/cache"
	"github.com/kjstillabower/dashboard-feed-service/internal/client"
	"github.com/kjstillabower/dashboard-feed-service/internal/refresh"
)

const testRSS = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0"><channel><title>Siste nytt</title>
<item><title>Sak 1</title><link>https://www.nrk.no/1</link></item>
<item><title>Sak 2</title><link>https://www.nrk.no/2</link></item>
</channel></rss>`

// fakeUpstreams serves every provider from one httptest server, one path each.
func fakeUpstreams(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/met", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("lat") == "43.7102" {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"properties":{"timeseries":[{"data":{"instant":{"details":{"air_temperature":5.5}},"next_1_hours":{"summary":{"symbol_code":"cloudy"}}}}]}}`))
	})
	mux.HandleFunc("/binance", func(w http.ResponseWriter, r *http.Request) {
		sym := r.URL.Query().Get("symbol")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"symbol":"` + sym + `","lastPrice":"100.25"}`))
	})
	mux.HandleFunc("/rates", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if r.URL.Query().Get("base") == "USD" {
			_, _ = w.Write([]byte(`{"base":"USD","rates":{"NOK":10.5}}`))
			return
		}
		_, _ = w.Write([]byte(`{"base":"EUR","rates":{"NOK":11.7}}`))
	})
	mux.HandleFunc("/relay", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{"contents": testRSS})
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

// newTestStack fetches once from the fake upstreams and returns the router.
func newTestStack(t *testing.T, staticDir string) http.Handler {
	t.Helper()
	srv := fakeUpstreams(t)
	ua := "dashboard-test/1.0"

	met, err := client.NewMetClient(srv.URL+"/met", ua, time.Second)
	if err != nil {
		t.Fatal(err)
	}
	binance, err := client.NewBinanceClient(srv.URL+"/binance", ua, time.Second)
	if err != nil {
		t.Fatal(err)
	}
	rates, err := client.NewExchangeRateHostClient(srv.URL+"/rates", ua, time.Second)
	if err != nil {
		t.Fatal(err)
	}
	relay, err := client.NewRelayFeedClient(srv.URL+"/relay", "https://www.nrk.no/nyheter/siste.rss", ua, time.Second)
	if err != nil {
		t.Fatal(err)
	}

	store := cache.NewStore(cache.NewInMemoryCache())
	ctx := context.Background()
	fetchers := []refresh.Fetcher{
		refresh.NewNewsFetcher(relay, store, 5, nil),
		refresh.NewWeatherFetcher(met, store, testCatalog.Locations, nil),
		refresh.NewCryptoFetcher(binance, store, testCatalog.CryptoSymbols, nil),
		refresh.NewExchangeFetcher(rates, store, testCatalog.ExchangeBases, "NOK", nil),
	}
	for _, f := range fetchers {
		_ = f.Fetch(ctx)
	}

	h := NewHandler(store, refresh.NewStatusRegistry(), testCatalog, nil, nil)
	return NewRouter(h, RouterOptions{RequestTimeout: time.Second, StaticDir: staticDir})
}

func get(router http.Handler, path string) *httptest.ResponseRecorder {
	req := httptest.NewRequest("GET", path, nil)
	req.Header.Set("Origin", "https://dashboard.example")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestRouter_EndToEnd(t *testing.T) {
	router := newTestStack(t, "")

	tests := []struct {
		path     string
		wantCode int
		wantBody string
	}{
		{"/crypto/ETHUSDT", http.StatusOK, `{"symbol":"ETHUSDT","lastPrice":"100.25"}`},
		{"/crypto/DOGEUSDT", http.StatusNotFound, `{"error":"Symbol not found"}`},
		{"/exchange/EUR", http.StatusOK, `{"base":"EUR","rates":{"NOK":11.7}}`},
		{"/exchange/SEK", http.StatusNotFound, `{"error":"Base currency not found"}`},
		{"/weather/oslo", http.StatusOK, `{"temperature":5.5,"symbolCode":"cloudy"}`},
		{"/weather/nice", http.StatusOK, `{"temperature":0,"symbolCode":0}`},
		{"/weather/bergen", http.StatusOK, `null`},
		{"/crypto", http.StatusOK, `[{"symbol":"BTCUSDT","price":100.25},{"symbol":"ETHUSDT","price":100.25},{"symbol":"LTCUSDT","price":100.25},{"symbol":"USD","price":10.5},{"symbol":"EUR","price":11.7}]`},
		{"/weather", http.StatusOK, `[{"name":"oslo","temperature":5.5,"symbolCode":"cloudy"},{"name":"sarpsborg","temperature":5.5,"symbolCode":"cloudy"},{"name":"nice","temperature":0,"symbolCode":0}]`},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			w := get(router, tt.path)
			if w.Code != tt.wantCode {
				t.Fatalf("status = %d, want %d (body %s)", w.Code, tt.wantCode, w.Body.String())
			}
			if got := strings.TrimSpace(w.Body.String()); got != tt.wantBody {
				t.Errorf("body = %s\nwant   %s", got, tt.wantBody)
			}
			if got := w.Header().Get("Access-Control-Allow-Origin"); got != "*" {
				t.Errorf("Access-Control-Allow-Origin = %q, want *", got)
			}
		})
	}
}

func TestRouter_News(t *testing.T) {
	router := newTestStack(t, "")
	w := get(router, "/news")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	var got []map[string]interface{}
	if err := json.NewDecoder(w.Body).Decode(&got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(got) != 2 || got[0]["title"] != "Sak 1" || got[1]["link"] != "https://www.nrk.no/2" {
		t.Errorf("items = %v", got)
	}
}

func TestRouter_HealthAndMetrics(t *testing.T) {
	router := newTestStack(t, "")
	if w := get(router, "/health"); w.Code != http.StatusOK {
		t.Errorf("/health status = %d, want 200", w.Code)
	}
	w := get(router, "/metrics")
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "httpRequestsTotal") {
		t.Errorf("/metrics status = %d", w.Code)
	}
}

func TestRouter_StaticFiles(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "index.html"), []byte("<h1>dashboard</h1>"), 0o644); err != nil {
		t.Fatal(err)
	}
	router := newTestStack(t, dir)

	w := get(router, "/")
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "dashboard") {
		t.Errorf("GET / status = %d, body = %q", w.Code, w.Body.String())
	}
	if w := get(router, "/crypto/BTCUSDT"); w.Code != http.StatusOK {
		t.Errorf("API route shadowed by static handler: status %d", w.Code)
	}
}

func TestRouter_CORSPreflight(t *testing.T) {
	router := newTestStack(t, "")
	req := httptest.NewRequest(http.MethodOptions, "/crypto", nil)
	req.Header.Set("Origin", "https://dashboard.example")
	req.Header.Set("Access-Control-Request-Method", "GET")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("preflight status = %d, want 200", w.Code)
	}
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Errorf("Access-Control-Allow-Origin = %q, want *", got)
	}
}
