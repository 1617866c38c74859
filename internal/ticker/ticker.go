// Package ticker keeps a board of the latest quotes for a fixed set of
// symbols and fans every refresh out to subscribers. It feeds the
// dashboard's scrolling price marquee.
package ticker

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"propfirm/internal/aggregate"
	"propfirm/internal/quote"
)

// Quoter prices a single symbol.
type Quoter interface {
	Quote(ctx context.Context, symbol string) (quote.Quote, error)
}

type Config struct {
	Symbols        []string
	Interval       time.Duration
	MaxConcurrency int
}

type Ticker struct {
	cfg    Config
	quoter Quoter
	logger *slog.Logger

	mu    sync.RWMutex
	board []quote.Quote

	subMu sync.Mutex
	subs  map[chan []quote.Quote]struct{}
}

func New(cfg Config, q Quoter, logger *slog.Logger) *Ticker {
	if cfg.Interval <= 0 {
		cfg.Interval = 15 * time.Second
	}
	if cfg.MaxConcurrency <= 0 {
		cfg.MaxConcurrency = 1
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Ticker{
		cfg:    cfg,
		quoter: q,
		logger: logger.With("component", "ticker"),
		subs:   make(map[chan []quote.Quote]struct{}),
	}
}

// Run refreshes the board immediately and then every interval until ctx is done.
func (t *Ticker) Run(ctx context.Context) {
	t.logger.Info("ticker started", "symbols", t.cfg.Symbols, "interval", t.cfg.Interval)
	t.Refresh(ctx)

	tick := time.NewTicker(t.cfg.Interval)
	defer tick.Stop()
	for {
		select {
		case <-ctx.Done():
			t.logger.Info("ticker stopped")
			return
		case <-tick.C:
			t.Refresh(ctx)
		}
	}
}

// Refresh quotes every symbol once and publishes the merged board.
// Symbols that fail keep their previous quote.
func (t *Ticker) Refresh(ctx context.Context) []quote.Quote {
	results := make([]*quote.Quote, len(t.cfg.Symbols))

	var g errgroup.Group
	g.SetLimit(t.cfg.MaxConcurrency)
	for i, sym := range t.cfg.Symbols {
		g.Go(func() error {
			q, err := t.quoter.Quote(ctx, sym)
			if err != nil {
				t.logger.Warn("quote failed", "symbol", sym, "error", err)
				return nil
			}
			results[i] = &q
			return nil
		})
	}
	_ = g.Wait()

	fresh := make([]quote.Quote, 0, len(results))
	for _, r := range results {
		if r != nil {
			fresh = append(fresh, *r)
		}
	}

	t.mu.Lock()
	t.board = aggregate.Merge(t.board, fresh)
	snap := append([]quote.Quote(nil), t.board...)
	t.mu.Unlock()

	t.logger.Debug("board refreshed", "fresh", len(fresh), "total", len(snap))
	t.publish(snap)
	return snap
}

// Snapshot returns a copy of the current board.
func (t *Ticker) Snapshot() []quote.Quote {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return append([]quote.Quote(nil), t.board...)
}

// Subscribe registers for board updates. The channel holds at most one
// pending snapshot; a slow reader sees only the newest. Call cancel to
// unsubscribe; the channel is closed afterwards.
func (t *Ticker) Subscribe() (<-chan []quote.Quote, func()) {
	ch := make(chan []quote.Quote, 1)
	t.subMu.Lock()
	t.subs[ch] = struct{}{}
	t.subMu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			t.subMu.Lock()
			delete(t.subs, ch)
			close(ch)
			t.subMu.Unlock()
		})
	}
	return ch, cancel
}

func (t *Ticker) publish(snap []quote.Quote) {
	t.subMu.Lock()
	defer t.subMu.Unlock()
	for ch := range t.subs {
		select {
		case ch <- snap:
			continue
		default:
		}
		// drop the stale pending snapshot
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- snap:
		default:
		}
	}
}
