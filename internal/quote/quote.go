// Package quote turns a mid-rate into a bid/ask quote with a fixed spread.
package quote

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"propfirm/internal/provider"
)

// DefaultSymbol is quoted when the caller does not name one.
const DefaultSymbol = "EURUSD"

// Spread is subtracted from the mid-rate for the bid and added for the ask.
var Spread = decimal.RequireFromString("0.0002")

// Quote is the response shape of the price endpoint.
type Quote struct {
	Symbol    string    `json:"symbol"`
	Bid       float64   `json:"bid"`
	Ask       float64   `json:"ask"`
	Timestamp time.Time `json:"timestamp"`
}

// SplitSymbol splits a pair code into base and quote currency.
// It does not validate: indices are clamped to the symbol's length and
// anything after the sixth byte is ignored.
func SplitSymbol(symbol string) provider.Pair {
	return provider.Pair{Base: substr(symbol, 0, 3), Quote: substr(symbol, 3, 6)}
}

func substr(s string, from, to int) string {
	if from > len(s) {
		from = len(s)
	}
	if to > len(s) {
		to = len(s)
	}
	return s[from:to]
}

// Quoter prices symbols from a rate source.
type Quoter struct {
	Source provider.Source
	Now    func() time.Time
}

func NewQuoter(src provider.Source) *Quoter {
	return &Quoter{Source: src, Now: time.Now}
}

// Quote fetches the mid-rate for symbol once and applies Spread on both sides.
// Timestamp is when the quote was built, not when the upstream sampled the rate.
func (q *Quoter) Quote(ctx context.Context, symbol string) (Quote, error) {
	pair := SplitSymbol(symbol)
	r, err := q.Source.Rate(ctx, pair)
	if err != nil {
		return Quote{}, fmt.Errorf("quote %s: %w", symbol, err)
	}
	now := time.Now
	if q.Now != nil {
		now = q.Now
	}
	return Quote{
		Symbol:    symbol,
		Bid:       r.Value.Sub(Spread).InexactFloat64(),
		Ask:       r.Value.Add(Spread).InexactFloat64(),
		Timestamp: now().UTC(),
	}, nil
}
