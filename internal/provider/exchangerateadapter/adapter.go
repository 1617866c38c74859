package exchangerateadapter

import (
	"context"
	"fmt"

	"propfirm/internal/provider"
	"propfirm/internal/provider/exchangerate"
)

type Config struct {
	Name string // display name, default: ExchangeRateAPI
}

// LatestGetter is the part of the exchange-rate client the adapter needs.
type LatestGetter interface {
	GetLatest(ctx context.Context, base string, opts ...exchangerate.ClientOption) (exchangerate.Latest, error)
}

// Adapter exposes the exchange-rate client as a provider.Source.
// Every call is one upstream request; caching is left to decorators.
type Adapter struct {
	cfg    Config
	client LatestGetter
}

func New(cfg Config, client LatestGetter) *Adapter {
	if cfg.Name == "" {
		cfg.Name = "ExchangeRateAPI"
	}
	return &Adapter{cfg: cfg, client: client}
}

func (a *Adapter) Name() string { return a.cfg.Name }

func (a *Adapter) Rate(ctx context.Context, pair provider.Pair) (provider.Rate, error) {
	latest, err := a.client.GetLatest(ctx, pair.Base)
	if err != nil {
		return provider.Rate{}, fmt.Errorf("%s: latest %s: %w", a.cfg.Name, pair.Base, err)
	}
	v, err := latest.Rate(pair.Quote)
	if err != nil {
		return provider.Rate{}, fmt.Errorf("%s: %w", a.cfg.Name, err)
	}
	return provider.Rate{Pair: pair, Value: v, SampledAt: latest.UpdatedAt}, nil
}
