package query

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"
)

const (
	DefaultTTL          = 5 * time.Minute
	DefaultFetchTimeout = 30 * time.Second
)

// Client is the shared request cache. Reads go through Fetch; writes only
// invalidate and never place entity data into the cache.
type Client struct {
	store        Store
	ttl          time.Duration
	fetchTimeout time.Duration
	group        singleflight.Group

	hits, misses, fetches atomic.Int64
}

type Option func(*Client)

func WithTTL(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.ttl = d
		}
	}
}

// WithFetchTimeout bounds a shared fetch that outlives the caller that started it.
func WithFetchTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.fetchTimeout = d
		}
	}
}

func New(store Store, opts ...Option) *Client {
	if store == nil {
		store = NewMemoryStore()
	}
	c := &Client{store: store, ttl: DefaultTTL, fetchTimeout: DefaultFetchTimeout}
	for _, o := range opts {
		o(c)
	}
	return c
}

// CacheStats counts lookups since the client was built.
type CacheStats struct {
	Hits    int64 `json:"hits"`
	Misses  int64 `json:"misses"`
	Fetches int64 `json:"fetches"`
}

func (c *Client) Stats() CacheStats {
	return CacheStats{Hits: c.hits.Load(), Misses: c.misses.Load(), Fetches: c.fetches.Load()}
}

// Fetch returns the cached value for key or runs fn once for all concurrent
// callers of the same key. The shared fetch is detached from the caller's
// cancellation: a caller that gives up gets ctx.Err() while the others keep
// waiting. A result is stored only when the entity was not invalidated while
// the fetch was in flight.
func Fetch[T any](ctx context.Context, c *Client, key Key, fn func(context.Context) (T, error)) (T, error) {
	var zero T
	if err := ctx.Err(); err != nil {
		return zero, err
	}

	ver, err := c.store.Version(ctx, key.Entity)
	if err != nil {
		c.fetches.Add(1)
		return fn(ctx)
	}
	vk := versioned(key, ver)

	if b, ok, _ := c.store.Get(ctx, vk); ok {
		var v T
		if err := json.Unmarshal(b, &v); err == nil {
			c.hits.Add(1)
			return v, nil
		}
	}
	c.misses.Add(1)

	ch := c.group.DoChan(vk, func() (any, error) {
		c.fetches.Add(1)
		fctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.fetchTimeout)
		defer cancel()
		v, err := fn(fctx)
		if err != nil {
			return nil, err
		}
		b, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("query: encode %s: %w", key, err)
		}
		if cur, verr := c.store.Version(fctx, key.Entity); verr == nil && cur == ver {
			_ = c.store.Set(fctx, vk, b, c.ttl)
		}
		return b, nil
	})

	select {
	case <-ctx.Done():
		return zero, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return zero, res.Err
		}
		var v T
		if err := json.Unmarshal(res.Val.([]byte), &v); err != nil {
			return zero, fmt.Errorf("query: decode %s: %w", key, err)
		}
		return v, nil
	}
}

// Invalidate bumps the versions of the given entities.
func (c *Client) Invalidate(ctx context.Context, entities ...Entity) error {
	return c.store.Bump(ctx, entities...)
}

func (c *Client) InvalidateAll(ctx context.Context) error {
	return c.Invalidate(ctx, AllEntities()...)
}

// Mutated invalidates everything m affects. Call it only after the write succeeded.
func (c *Client) Mutated(ctx context.Context, m Mutation) {
	entities, ok := Affects[m]
	if !ok {
		log.Printf("[query] unknown mutation %q; invalidating everything", m)
		entities = AllEntities()
	}
	if err := c.Invalidate(context.WithoutCancel(ctx), entities...); err != nil {
		log.Printf("[query] invalidate after %s failed: %v", m, err)
	}
}
