package models

import (
	"encoding/json"
	"time"
)

// CryptoQuote holds the latest ticker for one trading symbol. Raw is the
// provider body as received and backs the per-symbol lookup endpoint.
type CryptoQuote struct {
	Symbol    string          `json:"symbol"`
	Price     float64         `json:"price"`
	Raw       json.RawMessage `json:"raw,omitempty"`
	FetchedAt time.Time       `json:"fetchedAt"`
}

// ExchangeRate holds the latest Base->Target rate.
type ExchangeRate struct {
	Base      string          `json:"base"`
	Target    string          `json:"target"`
	Rate      float64         `json:"rate"`
	Raw       json.RawMessage `json:"raw,omitempty"`
	FetchedAt time.Time       `json:"fetchedAt"`
}

// PricePoint is one element of the aggregated GET /crypto response. Crypto
// symbols and exchange bases share the shape.
type PricePoint struct {
	Symbol string  `json:"symbol"`
	Price  float64 `json:"price"`
}

// Point projects a quote onto the aggregate shape.
func (q CryptoQuote) Point() PricePoint {
	return PricePoint{Symbol: q.Symbol, Price: q.Price}
}

// Point projects a rate onto the aggregate shape, keyed by base currency.
func (r ExchangeRate) Point() PricePoint {
	return PricePoint{Symbol: r.Base, Price: r.Rate}
}
