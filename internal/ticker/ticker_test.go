package ticker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"propfirm/internal/quote"
)

type fakeQuoter struct {
	mu     sync.Mutex
	prices map[string]float64
	fail   map[string]bool
	now    time.Time
}

func (f *fakeQuoter) Quote(_ context.Context, symbol string) (quote.Quote, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail[symbol] {
		return quote.Quote{}, errors.New("upstream down")
	}
	p := f.prices[symbol]
	return quote.Quote{Symbol: symbol, Bid: p - 0.0002, Ask: p + 0.0002, Timestamp: f.now}, nil
}

func (f *fakeQuoter) set(symbol string, price float64, fail bool, now time.Time) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.prices[symbol] = price
	f.fail[symbol] = fail
	f.now = now
}

func newFake() *fakeQuoter {
	return &fakeQuoter{prices: map[string]float64{}, fail: map[string]bool{}}
}

func TestRefresh_BuildsSortedBoard(t *testing.T) {
	f := newFake()
	t0 := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	f.set("USDJPY", 150, false, t0)
	f.set("EURUSD", 1.1, false, t0)

	tk := New(Config{Symbols: []string{"USDJPY", "EURUSD"}, MaxConcurrency: 2}, f, nil)
	board := tk.Refresh(t.Context())

	require.Len(t, board, 2)
	require.Equal(t, "EURUSD", board[0].Symbol)
	require.Equal(t, "USDJPY", board[1].Symbol)
	require.Equal(t, board, tk.Snapshot())
}

func TestRefresh_FailedSymbolKeepsPreviousQuote(t *testing.T) {
	f := newFake()
	t0 := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	f.set("EURUSD", 1.1, false, t0)
	f.set("GBPUSD", 1.27, false, t0)

	tk := New(Config{Symbols: []string{"EURUSD", "GBPUSD"}}, f, nil)
	tk.Refresh(t.Context())

	t1 := t0.Add(time.Minute)
	f.set("EURUSD", 1.2, false, t1)
	f.set("GBPUSD", 1.3, true, t1)
	board := tk.Refresh(t.Context())

	require.Len(t, board, 2)
	require.InDelta(t, 1.2-0.0002, board[0].Bid, 1e-9)
	require.Equal(t, t1, board[0].Timestamp)
	require.InDelta(t, 1.27-0.0002, board[1].Bid, 1e-9)
	require.Equal(t, t0, board[1].Timestamp)
}

func TestRefresh_AllFailingLeavesBoardEmpty(t *testing.T) {
	f := newFake()
	f.set("EURUSD", 0, true, time.Now())
	tk := New(Config{Symbols: []string{"EURUSD"}}, f, nil)
	require.Empty(t, tk.Refresh(t.Context()))
}

func TestSubscribe_ReceivesLatestSnapshot(t *testing.T) {
	f := newFake()
	t0 := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	f.set("EURUSD", 1.1, false, t0)
	tk := New(Config{Symbols: []string{"EURUSD"}}, f, nil)

	ch, cancel := tk.Subscribe()
	defer cancel()

	// two refreshes without reading: only the newest is pending
	tk.Refresh(t.Context())
	f.set("EURUSD", 1.2, false, t0.Add(time.Second))
	tk.Refresh(t.Context())

	select {
	case snap := <-ch:
		require.Len(t, snap, 1)
		require.InDelta(t, 1.2+0.0002, snap[0].Ask, 1e-9)
	case <-time.After(time.Second):
		t.Fatal("no snapshot")
	}
	select {
	case snap := <-ch:
		t.Fatalf("unexpected extra snapshot: %+v", snap)
	default:
	}
}

func TestSubscribe_CancelClosesChannel(t *testing.T) {
	tk := New(Config{}, newFake(), nil)
	ch, cancel := tk.Subscribe()
	cancel()
	cancel()
	_, ok := <-ch
	require.False(t, ok)

	// publishing after cancel must not panic
	tk.Refresh(t.Context())
}

func TestRun_StopsOnContextCancel(t *testing.T) {
	f := newFake()
	f.set("EURUSD", 1.1, false, time.Now())
	tk := New(Config{Symbols: []string{"EURUSD"}, Interval: 5 * time.Millisecond}, f, nil)

	ch, cancel := tk.Subscribe()
	defer cancel()

	ctx, stop := context.WithCancel(t.Context())
	done := make(chan struct{})
	go func() {
		tk.Run(ctx)
		close(done)
	}()

	for i := 0; i < 2; i++ {
		select {
		case <-ch:
		case <-time.After(time.Second):
			t.Fatal("ticker did not publish")
		}
	}
	stop()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return")
	}
}
