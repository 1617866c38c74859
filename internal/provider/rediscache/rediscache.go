package rediscache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"propfirm/internal/provider"
)

// Config describes the Redis connection.
type Config struct {
	Addr     string
	Password string
	DB       int
}

// Connect opens a client and verifies it with PING.
func Connect(ctx context.Context, cfg Config) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return client, nil
}

// storedRate is the JSON value kept under each key.
type storedRate struct {
	Base      string          `json:"base"`
	Quote     string          `json:"quote"`
	Value     decimal.Decimal `json:"value"`
	SampledAt time.Time       `json:"sampled_at"`
}

// Source is a rate cache shared between server instances.
// Redis failures are logged and fall through to the wrapped source.
type Source struct {
	S      provider.Source
	Client redis.Cmdable
	TTL    time.Duration
	Logger *slog.Logger
}

func (c *Source) Name() string { return c.S.Name() }

// Key returns the Redis key for pair.
func Key(pair provider.Pair) string {
	return fmt.Sprintf("rate:%s:%s", pair.Base, pair.Quote)
}

func (c *Source) logger() *slog.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	return slog.Default()
}

func (c *Source) Rate(ctx context.Context, pair provider.Pair) (provider.Rate, error) {
	if c.Client == nil || c.TTL <= 0 {
		return c.S.Rate(ctx, pair)
	}
	key := Key(pair)

	data, err := c.Client.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var sr storedRate
		if err := json.Unmarshal(data, &sr); err == nil {
			return provider.Rate{
				Pair:      provider.Pair{Base: sr.Base, Quote: sr.Quote},
				Value:     sr.Value,
				SampledAt: sr.SampledAt,
			}, nil
		}
		c.logger().Warn("discarding unreadable cached rate", "key", key)
	case errors.Is(err, redis.Nil):
	default:
		c.logger().Warn("redis get failed", "key", key, "error", err)
	}

	r, err := c.S.Rate(ctx, pair)
	if err != nil {
		return provider.Rate{}, err
	}

	data, err = json.Marshal(storedRate{Base: pair.Base, Quote: pair.Quote, Value: r.Value, SampledAt: r.SampledAt})
	if err != nil {
		return r, nil
	}
	if err := c.Client.Set(ctx, key, data, c.TTL).Err(); err != nil {
		c.logger().Warn("redis set failed", "key", key, "error", err)
	}
	return r, nil
}
