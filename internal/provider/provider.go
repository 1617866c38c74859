package provider

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// Pair is a base/quote currency pair, e.g. EUR/USD.
type Pair struct {
	Base  string
	Quote string
}

func (p Pair) String() string { return p.Base + "/" + p.Quote }

// Rate is a mid-rate for a pair as reported by a source.
// SampledAt is the upstream's own update time when it reports one.
type Rate struct {
	Pair      Pair
	Value     decimal.Decimal
	SampledAt time.Time
}

//go:generate mockgen -package=provider -destination=mock_source.go -source=provider.go Source
type Source interface {
	Name() string
	Rate(ctx context.Context, pair Pair) (Rate, error)
}
