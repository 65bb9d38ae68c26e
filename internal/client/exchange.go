package client

import (
	"context"
	"encoding/json"
	"net/url"
	"time"

	"github.com/kjstillabower/dashboard-feed-service/internal/models"
)

// ExchangeClient fetches a single currency rate.
type ExchangeClient interface {
	GetRate(ctx context.Context, base, target string) (models.ExchangeRate, error)
}

// ExchangeRateHostClient talks to an exchangerate.host compatible /latest endpoint.
type ExchangeRateHostClient struct {
	up *upstream
}

func NewExchangeRateHostClient(apiURL, userAgent string, timeout time.Duration) (*ExchangeRateHostClient, error) {
	up, err := newUpstream(ProviderExchange, apiURL, userAgent, timeout)
	if err != nil {
		return nil, err
	}
	return &ExchangeRateHostClient{up: up}, nil
}

type latestRates struct {
	Base  string              `json:"base"`
	Rates map[string]*float64 `json:"rates"`
}

// GetRate requests ?base=<base>&symbols=<target> and extracts rates[target].
func (c *ExchangeRateHostClient) GetRate(ctx context.Context, base, target string) (models.ExchangeRate, error) {
	params := url.Values{}
	params.Set("base", base)
	params.Set("symbols", target)

	resp, err := c.up.getOK(ctx, params, nil)
	if err != nil {
		return models.ExchangeRate{}, c.up.fail(err)
	}
	rate, err := parseLatestRates(base, target, resp.Body)
	if err != nil {
		return models.ExchangeRate{}, c.up.fail(err)
	}
	return rate, nil
}

func parseLatestRates(base, target string, body []byte) (models.ExchangeRate, error) {
	var r latestRates
	if err := json.Unmarshal(body, &r); err != nil {
		return models.ExchangeRate{}, &ParseError{Provider: ProviderExchange, Err: err}
	}
	if r.Rates == nil {
		return models.ExchangeRate{}, missingField(ProviderExchange, "rates")
	}
	rate, ok := r.Rates[target]
	if !ok || rate == nil {
		return models.ExchangeRate{}, missingField(ProviderExchange, "rates."+target)
	}
	return models.ExchangeRate{
		Base:      base,
		Target:    target,
		Rate:      *rate,
		Raw:       json.RawMessage(body),
		FetchedAt: time.Now(),
	}, nil
}
