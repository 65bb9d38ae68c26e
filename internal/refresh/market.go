package refresh

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/kjstillabower/dashboard-feed-service/internal/cache"
	"github.com/kjstillabower/dashboard-feed-service/internal/client"
)

// CryptoFetcher refreshes each ticker symbol in order. A failed symbol keeps
// its previous quote and the loop moves on.
type CryptoFetcher struct {
	client  client.CryptoClient
	store   *cache.Store
	symbols []string
	logger  *zap.Logger
}

// NewCryptoFetcher creates a CryptoFetcher for symbols.
func NewCryptoFetcher(c client.CryptoClient, store *cache.Store, symbols []string, logger *zap.Logger) *CryptoFetcher {
	return &CryptoFetcher{client: c, store: store, symbols: symbols, logger: loggerOrNop(logger)}
}

func (f *CryptoFetcher) Name() string { return FetcherCrypto }

// Fetch implements Fetcher.
func (f *CryptoFetcher) Fetch(ctx context.Context) error {
	c := &cycle{fetcher: FetcherCrypto}
	for _, sym := range f.symbols {
		if ctx.Err() != nil {
			c.fail(ctx.Err())
			break
		}
		q, err := f.client.GetTicker(ctx, sym)
		if err == nil {
			err = f.store.PutQuote(ctx, q)
		}
		if err != nil {
			f.logger.Warn("ticker fetch failed, keeping previous quote", zap.String("symbol", sym), zap.Error(err))
			c.fail(fmt.Errorf("%s: %w", sym, err))
			continue
		}
		c.ok()
	}
	return c.err()
}

// ExchangeFetcher refreshes base->target rates in order. The bases form one
// unit: the first failure is logged and the remaining bases are not
// attempted. Bases already written in this cycle stay written.
type ExchangeFetcher struct {
	client client.ExchangeClient
	store  *cache.Store
	bases  []string
	target string
	logger *zap.Logger
}

// NewExchangeFetcher creates an ExchangeFetcher.
func NewExchangeFetcher(c client.ExchangeClient, store *cache.Store, bases []string, target string, logger *zap.Logger) *ExchangeFetcher {
	return &ExchangeFetcher{client: c, store: store, bases: bases, target: target, logger: loggerOrNop(logger)}
}

func (f *ExchangeFetcher) Name() string { return FetcherExchange }

// Fetch implements Fetcher.
func (f *ExchangeFetcher) Fetch(ctx context.Context) error {
	c := &cycle{fetcher: FetcherExchange}
	for i, base := range f.bases {
		r, err := f.client.GetRate(ctx, base, f.target)
		if err == nil {
			err = f.store.PutRate(ctx, r)
		}
		if err != nil {
			f.logger.Warn("exchange fetch failed, abandoning remaining bases",
				zap.String("base", base),
				zap.Strings("skipped", f.bases[i+1:]),
				zap.Error(err))
			c.fail(fmt.Errorf("%s: %w", base, err))
			break
		}
		c.ok()
	}
	return c.err()
}
