package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/kjstillabower/dashboard-feed-service/internal/models"
)

// CryptoClient fetches the 24h ticker for a trading symbol.
type CryptoClient interface {
	GetTicker(ctx context.Context, symbol string) (models.CryptoQuote, error)
}

// BinanceClient talks to the Binance 24hr ticker endpoint.
type BinanceClient struct {
	up *upstream
}

func NewBinanceClient(apiURL, userAgent string, timeout time.Duration) (*BinanceClient, error) {
	up, err := newUpstream(ProviderCrypto, apiURL, userAgent, timeout)
	if err != nil {
		return nil, err
	}
	return &BinanceClient{up: up}, nil
}

type binanceTicker struct {
	Symbol    string  `json:"symbol"`
	LastPrice *string `json:"lastPrice"`
}

// GetTicker returns the normalized price plus the raw ticker body.
func (c *BinanceClient) GetTicker(ctx context.Context, symbol string) (models.CryptoQuote, error) {
	params := url.Values{}
	params.Set("symbol", symbol)

	resp, err := c.up.getOK(ctx, params, nil)
	if err != nil {
		return models.CryptoQuote{}, c.up.fail(err)
	}
	q, err := parseBinanceTicker(symbol, resp.Body)
	if err != nil {
		return models.CryptoQuote{}, c.up.fail(err)
	}
	return q, nil
}

func parseBinanceTicker(symbol string, body []byte) (models.CryptoQuote, error) {
	var t binanceTicker
	if err := json.Unmarshal(body, &t); err != nil {
		return models.CryptoQuote{}, &ParseError{Provider: ProviderCrypto, Err: err}
	}
	if t.LastPrice == nil {
		return models.CryptoQuote{}, missingField(ProviderCrypto, "lastPrice")
	}
	price, err := strconv.ParseFloat(*t.LastPrice, 64)
	if err != nil {
		return models.CryptoQuote{}, &ParseError{Provider: ProviderCrypto, Field: "lastPrice", Err: fmt.Errorf("not a number: %q", *t.LastPrice)}
	}
	if t.Symbol != "" && t.Symbol != symbol {
		return models.CryptoQuote{}, &ParseError{Provider: ProviderCrypto, Field: "symbol", Err: fmt.Errorf("got %q, want %q", t.Symbol, symbol)}
	}
	return models.CryptoQuote{
		Symbol:    symbol,
		Price:     price,
		Raw:       json.RawMessage(body),
		FetchedAt: time.Now(),
	}, nil
}
