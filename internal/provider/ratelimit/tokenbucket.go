package ratelimit

import (
	"context"
	"sync"
	"time"

	"propfirm/internal/provider"
)

// TokenBucket admits Burst calls at once and then one call per Every.
// It keeps a single theoretical arrival time instead of a token count:
// each call reserves the next slot under the lock and then sleeps until its
// slot opens, the same reserve-then-wait shape as MinInterval.
type TokenBucket struct {
	Every time.Duration
	Burst int
	Now   func() time.Time

	mu  sync.Mutex
	tat time.Time
}

// NewTokenBucket builds a bucket from a rate in tokens per second.
// Non-positive rates fall back to one token per hour.
func NewTokenBucket(tokensPerSecond float64, burst int) *TokenBucket {
	if tokensPerSecond <= 0 {
		tokensPerSecond = 1.0 / 3600
	}
	if burst <= 0 {
		burst = 1
	}
	return &TokenBucket{
		Every: time.Duration(float64(time.Second) / tokensPerSecond),
		Burst: burst,
	}
}

// PerMinute builds a bucket from a requests-per-minute budget.
func PerMinute(rpm, burst int) *TokenBucket {
	return NewTokenBucket(float64(rpm)/60.0, burst)
}

func (tb *TokenBucket) now() time.Time {
	if tb.Now != nil {
		return tb.Now()
	}
	return time.Now()
}

// reserve claims the next slot and returns when it opens and the arrival
// time recorded for it.
func (tb *TokenBucket) reserve(now time.Time) (at, tat time.Time) {
	tb.mu.Lock()
	defer tb.mu.Unlock()
	if tb.tat.Before(now) {
		tb.tat = now
	}
	tb.tat = tb.tat.Add(tb.Every)
	at = tb.tat.Add(-time.Duration(tb.Burst) * tb.Every)
	return at, tb.tat
}

// release hands back a slot whose caller gave up, when no later caller
// has reserved behind it.
func (tb *TokenBucket) release(tat time.Time) {
	tb.mu.Lock()
	defer tb.mu.Unlock()
	if tb.tat.Equal(tat) {
		tb.tat = tat.Add(-tb.Every)
	}
}

// Wait blocks until the caller's slot opens or ctx is done.
func (tb *TokenBucket) Wait(ctx context.Context) error {
	now := tb.now()
	at, tat := tb.reserve(now)
	d := at.Sub(now)
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		tb.release(tat)
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// TokenBucketSource gates every pair of a source with one shared bucket.
type TokenBucketSource struct {
	S  provider.Source
	TB *TokenBucket
}

func (t *TokenBucketSource) Name() string { return t.S.Name() }

func (t *TokenBucketSource) Rate(ctx context.Context, pair provider.Pair) (provider.Rate, error) {
	if t.TB != nil {
		if err := t.TB.Wait(ctx); err != nil {
			return provider.Rate{}, err
		}
	}
	return t.S.Rate(ctx, pair)
}
