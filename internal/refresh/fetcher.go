package refresh

import (
	"context"
	"errors"
	"fmt"
)

// Fetcher names, used as job names, metric labels and health keys.
const (
	FetcherNews     = "news"
	FetcherWeather  = "weather"
	FetcherCrypto   = "crypto"
	FetcherExchange = "exchange"
)

// Fetcher performs one refresh cycle against an upstream and writes the
// results into the store. A non-nil error means at least one item failed;
// whatever was written before the failure stays written.
type Fetcher interface {
	Name() string
	Fetch(ctx context.Context) error
}

// CycleError reports the items of a cycle that failed.
type CycleError struct {
	Fetcher string
	Failed  int
	Total   int
	Errs    []error
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("%s: %d of %d failed: %v", e.Fetcher, e.Failed, e.Total, errors.Join(e.Errs...))
}

func (e *CycleError) Unwrap() []error { return e.Errs }

// Partial is true when some items of the cycle succeeded.
func (e *CycleError) Partial() bool {
	return e.Failed < e.Total
}

// cycle accumulates per-item outcomes of one Fetch call.
type cycle struct {
	fetcher string
	total   int
	errs    []error
}

func (c *cycle) ok() { c.total++ }

func (c *cycle) fail(err error) {
	c.total++
	c.errs = append(c.errs, err)
}

func (c *cycle) err() error {
	if len(c.errs) == 0 {
		return nil
	}
	return &CycleError{Fetcher: c.fetcher, Failed: len(c.errs), Total: c.total, Errs: c.errs}
}
