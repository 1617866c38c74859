package ratelimit

import (
	"context"
	"sync"
	"time"

	"propfirm/internal/provider"
)

// MinInterval wraps a source and enforces a minimum time between upstream calls.
// The slot is reserved before waiting, so concurrent callers queue one
// interval apart instead of all firing once the first wait ends.
type MinInterval struct {
	S        provider.Source
	Interval time.Duration
	Now      func() time.Time

	mu   sync.Mutex
	next time.Time
}

func (m *MinInterval) Name() string { return m.S.Name() }

func (m *MinInterval) Rate(ctx context.Context, pair provider.Pair) (provider.Rate, error) {
	if m.Interval > 0 {
		if err := m.wait(ctx); err != nil {
			return provider.Rate{}, err
		}
	}
	return m.S.Rate(ctx, pair)
}

func (m *MinInterval) wait(ctx context.Context) error {
	now := time.Now
	if m.Now != nil {
		now = m.Now
	}
	m.mu.Lock()
	t := now()
	at := m.next
	if at.Before(t) {
		at = t
	}
	m.next = at.Add(m.Interval)
	m.mu.Unlock()

	d := at.Sub(t)
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
