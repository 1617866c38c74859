package cache

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"propfirm/internal/provider"
)

// DefaultFetchTimeout bounds a coalesced upstream call.
const DefaultFetchTimeout = 15 * time.Second

// entry stores a cached rate with expiry.
type entry struct {
	expiresAt time.Time
	rate      provider.Rate
}

// Source caches rates per pair for a TTL.
// Concurrent misses for the same pair share one upstream call.
//
// The shared upstream call is detached from any single caller's
// cancellation and bounded by FetchTimeout (DefaultFetchTimeout when zero).
// A caller whose context ends stops waiting; the others still get the rate.
type Source struct {
	S            provider.Source
	TTL          time.Duration
	MaxItems     int
	FetchTimeout time.Duration
	Now          func() time.Time

	mu    sync.RWMutex
	items map[provider.Pair]entry

	sf singleflight.Group
}

func (c *Source) Name() string { return c.S.Name() }

func (c *Source) now() time.Time {
	if c.Now != nil {
		return c.Now()
	}
	return time.Now()
}

// Rate returns the cached rate for pair when still valid, otherwise fetches it.
func (c *Source) Rate(ctx context.Context, pair provider.Pair) (provider.Rate, error) {
	if c.TTL <= 0 {
		return c.S.Rate(ctx, pair)
	}

	c.mu.RLock()
	e, ok := c.items[pair]
	c.mu.RUnlock()
	if ok && c.now().Before(e.expiresAt) {
		return e.rate, nil
	}

	ch := c.sf.DoChan(pair.String(), func() (any, error) {
		fctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.fetchTimeout())
		defer cancel()
		r, err := c.S.Rate(fctx, pair)
		if err != nil {
			return provider.Rate{}, err
		}
		c.store(pair, r)
		return r, nil
	})
	select {
	case <-ctx.Done():
		return provider.Rate{}, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return provider.Rate{}, res.Err
		}
		return res.Val.(provider.Rate), nil
	}
}

func (c *Source) fetchTimeout() time.Duration {
	if c.FetchTimeout > 0 {
		return c.FetchTimeout
	}
	return DefaultFetchTimeout
}

func (c *Source) store(pair provider.Pair, r provider.Rate) {
	now := c.now()
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.items == nil {
		c.items = make(map[provider.Pair]entry)
	}
	c.items[pair] = entry{expiresAt: now.Add(c.TTL), rate: r}

	// best-effort cap: expired first, then arbitrary
	if c.MaxItems > 0 && len(c.items) > c.MaxItems {
		for k, v := range c.items {
			if now.After(v.expiresAt) {
				delete(c.items, k)
			}
		}
		for k := range c.items {
			if len(c.items) <= c.MaxItems {
				break
			}
			if k != pair {
				delete(c.items, k)
			}
		}
	}
}

// Len reports the number of cached pairs, expired or not.
func (c *Source) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}
