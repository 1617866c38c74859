// Package sources assembles the rate source chain from configuration:
// upstream adapter, then rate limiting, then caching.
package sources

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"propfirm/internal/config"
	"propfirm/internal/httpx"
	"propfirm/internal/provider"
	"propfirm/internal/provider/cache"
	"propfirm/internal/provider/exchangerate"
	"propfirm/internal/provider/exchangerateadapter"
	"propfirm/internal/provider/ratelimit"
	"propfirm/internal/provider/rediscache"
)

// Build returns the configured source and a cleanup func releasing any
// connections it opened.
func Build(ctx context.Context, cfg config.Rates, hc *httpx.Client, logger *slog.Logger) (provider.Source, func(), error) {
	client, err := exchangerate.NewClient(
		exchangerate.WithBaseURL(cfg.BaseURL),
		exchangerate.WithHTTPClient(hc),
		exchangerate.WithAPIKey(cfg.APIKey),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("exchange-rate client: %w", err)
	}
	var src provider.Source = exchangerateadapter.New(exchangerateadapter.Config{}, client)
	src = Decorate(src, cfg)

	cleanup := func() {}
	if cfg.RedisAddr != "" && cfg.CacheTTLSeconds > 0 {
		rc, err := rediscache.Connect(ctx, rediscache.Config{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err != nil {
			return nil, nil, err
		}
		logger.Info("redis rate cache enabled", "addr", cfg.RedisAddr)
		src = &rediscache.Source{
			S:      src,
			Client: rc,
			TTL:    time.Duration(cfg.CacheTTLSeconds) * time.Second,
			Logger: logger,
		}
		cleanup = func() { _ = rc.Close() }
	}
	return src, cleanup, nil
}

// Decorate wraps src with the rate limiter and in-memory cache cfg asks for.
// Token bucket wins over min-interval when both are set.
func Decorate(src provider.Source, cfg config.Rates) provider.Source {
	if cfg.MaxRequestsPerMinute > 0 {
		src = &ratelimit.TokenBucketSource{S: src, TB: ratelimit.PerMinute(cfg.MaxRequestsPerMinute, cfg.Burst)}
	} else if cfg.MinRequestIntervalSec > 0 {
		src = &ratelimit.MinInterval{S: src, Interval: time.Duration(cfg.MinRequestIntervalSec) * time.Second}
	}
	if cfg.CacheTTLSeconds > 0 && cfg.RedisAddr == "" {
		src = &cache.Source{S: src, TTL: time.Duration(cfg.CacheTTLSeconds) * time.Second, MaxItems: cfg.CacheMaxItems}
	}
	return src
}
