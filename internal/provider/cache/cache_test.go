package cache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"propfirm/internal/provider"
)

var eurusd = provider.Pair{Base: "EUR", Quote: "USD"}

func rate(pair provider.Pair, v string) provider.Rate {
	return provider.Rate{Pair: pair, Value: decimal.RequireFromString(v)}
}

func TestCache_HitWithinTTL(t *testing.T) {
	ctrl := gomock.NewController(t)
	src := provider.NewMockSource(ctrl)
	src.EXPECT().Rate(gomock.Any(), eurusd).Return(rate(eurusd, "1.1"), nil).Times(1)

	now := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	c := &Source{S: src, TTL: time.Minute, Now: func() time.Time { return now }}

	for i := 0; i < 3; i++ {
		r, err := c.Rate(t.Context(), eurusd)
		require.NoError(t, err)
		require.Equal(t, "1.1", r.Value.String())
	}
}

func TestCache_ExpiresAfterTTL(t *testing.T) {
	ctrl := gomock.NewController(t)
	src := provider.NewMockSource(ctrl)
	gomock.InOrder(
		src.EXPECT().Rate(gomock.Any(), eurusd).Return(rate(eurusd, "1.1"), nil),
		src.EXPECT().Rate(gomock.Any(), eurusd).Return(rate(eurusd, "1.2"), nil),
	)

	now := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	c := &Source{S: src, TTL: time.Minute, Now: func() time.Time { return now }}

	r, err := c.Rate(t.Context(), eurusd)
	require.NoError(t, err)
	require.Equal(t, "1.1", r.Value.String())

	now = now.Add(2 * time.Minute)
	r, err = c.Rate(t.Context(), eurusd)
	require.NoError(t, err)
	require.Equal(t, "1.2", r.Value.String())
}

func TestCache_ErrorsAreNotCached(t *testing.T) {
	ctrl := gomock.NewController(t)
	src := provider.NewMockSource(ctrl)
	boom := errors.New("boom")
	gomock.InOrder(
		src.EXPECT().Rate(gomock.Any(), eurusd).Return(provider.Rate{}, boom),
		src.EXPECT().Rate(gomock.Any(), eurusd).Return(rate(eurusd, "1.1"), nil),
	)

	c := &Source{S: src, TTL: time.Minute}
	_, err := c.Rate(t.Context(), eurusd)
	require.ErrorIs(t, err, boom)
	require.Equal(t, 0, c.Len())

	r, err := c.Rate(t.Context(), eurusd)
	require.NoError(t, err)
	require.Equal(t, "1.1", r.Value.String())
}

func TestCache_ZeroTTLPassesThrough(t *testing.T) {
	ctrl := gomock.NewController(t)
	src := provider.NewMockSource(ctrl)
	src.EXPECT().Rate(gomock.Any(), eurusd).Return(rate(eurusd, "1.1"), nil).Times(2)

	c := &Source{S: src}
	for i := 0; i < 2; i++ {
		_, err := c.Rate(t.Context(), eurusd)
		require.NoError(t, err)
	}
	require.Equal(t, 0, c.Len())
}

func TestCache_MaxItems(t *testing.T) {
	ctrl := gomock.NewController(t)
	src := provider.NewMockSource(ctrl)
	src.EXPECT().Rate(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, p provider.Pair) (provider.Rate, error) {
			return rate(p, "1"), nil
		}).
		AnyTimes()

	c := &Source{S: src, TTL: time.Minute, MaxItems: 2}
	for _, q := range []string{"USD", "JPY", "GBP", "CHF"} {
		p := provider.Pair{Base: "EUR", Quote: q}
		_, err := c.Rate(t.Context(), p)
		require.NoError(t, err)
	}
	require.LessOrEqual(t, c.Len(), 2)
}

type slowSource struct {
	calls   atomic.Int32
	release chan struct{}
}

func (s *slowSource) Name() string { return "slow" }
func (s *slowSource) Rate(_ context.Context, pair provider.Pair) (provider.Rate, error) {
	s.calls.Add(1)
	<-s.release
	return rate(pair, "1.1"), nil
}

func TestCache_CoalescesConcurrentMisses(t *testing.T) {
	src := &slowSource{release: make(chan struct{})}
	c := &Source{S: src, TTL: time.Minute}
	require.Equal(t, "slow", c.Name())

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r, err := c.Rate(context.Background(), eurusd)
			require.NoError(t, err)
			require.Equal(t, "1.1", r.Value.String())
		}()
	}
	require.Eventually(t, func() bool { return src.calls.Load() >= 1 }, time.Second, time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	close(src.release)
	wg.Wait()
	require.Equal(t, int32(1), src.calls.Load())
}

// blockingSource honours its context and returns once released.
type blockingSource struct {
	calls   atomic.Int32
	release chan struct{}
}

func (s *blockingSource) Name() string { return "blocking" }
func (s *blockingSource) Rate(ctx context.Context, pair provider.Pair) (provider.Rate, error) {
	s.calls.Add(1)
	select {
	case <-ctx.Done():
		return provider.Rate{}, ctx.Err()
	case <-s.release:
		return rate(pair, "1.1"), nil
	}
}

func TestCache_CancelledCallerDoesNotFailOthers(t *testing.T) {
	src := &blockingSource{release: make(chan struct{})}
	c := &Source{S: src, TTL: time.Minute}

	ctxA, cancelA := context.WithCancel(context.Background())
	errA := make(chan error, 1)
	go func() {
		_, err := c.Rate(ctxA, eurusd)
		errA <- err
	}()
	require.Eventually(t, func() bool { return src.calls.Load() == 1 }, time.Second, time.Millisecond)

	type result struct {
		r   provider.Rate
		err error
	}
	resB := make(chan result, 1)
	go func() {
		r, err := c.Rate(context.Background(), eurusd)
		resB <- result{r, err}
	}()
	time.Sleep(20 * time.Millisecond)

	cancelA()
	require.ErrorIs(t, <-errA, context.Canceled)

	close(src.release)
	got := <-resB
	require.NoError(t, got.err)
	require.Equal(t, "1.1", got.r.Value.String())
	require.Equal(t, int32(1), src.calls.Load())
	require.Equal(t, 1, c.Len())
}

func TestCache_FetchTimeoutBoundsSharedCall(t *testing.T) {
	src := &blockingSource{release: make(chan struct{})}
	c := &Source{S: src, TTL: time.Minute, FetchTimeout: 20 * time.Millisecond}

	_, err := c.Rate(context.Background(), eurusd)
	require.ErrorIs(t, err, context.DeadlineExceeded)
	require.Equal(t, 0, c.Len())
}
