package cache

import (
	"context"

	gocache "github.com/patrickmn/go-cache"
)

// Cache is a byte-level key/value backend. Entries never expire: a cached
// snapshot lives until the next successful fetch overwrites it.
// Get returns (nil, false, nil) on a miss.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte) error
}

// InMemoryCache implements Cache on top of go-cache. Safe for concurrent use.
type InMemoryCache struct {
	data *gocache.Cache
}

// NewInMemoryCache creates an in-process cache with no expiry and no janitor.
func NewInMemoryCache() *InMemoryCache {
	return &InMemoryCache{
		data: gocache.New(gocache.NoExpiration, 0),
	}
}

// Get returns a copy of the stored value.
func (c *InMemoryCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}
	v, ok := c.data.Get(key)
	if !ok {
		return nil, false, nil
	}
	b := v.([]byte)
	out := make([]byte, len(b))
	copy(out, b)
	return out, true, nil
}

// Set stores a copy of value under key, replacing any previous value.
func (c *InMemoryCache) Set(ctx context.Context, key string, value []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	b := make([]byte, len(value))
	copy(b, value)
	c.data.Set(key, b, gocache.NoExpiration)
	return nil
}
