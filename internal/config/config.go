package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"
)

type Server struct {
	Port               string `json:"port"`
	RequestTimeoutSec  int    `json:"request_timeout_sec"`
	ShutdownTimeoutSec int    `json:"shutdown_timeout_sec"`
}

type Log struct {
	Level  string `json:"level"`
	Format string `json:"format"`
}

// Rates configures the upstream exchange-rate API and the optional
// decorators in front of it. Zero values leave a decorator off.
type Rates struct {
	BaseURL               string `json:"base_url"`
	APIKey                string `json:"api_key"`
	MaxRequestsPerMinute  int    `json:"max_requests_per_minute"`
	MinRequestIntervalSec int    `json:"min_request_interval_sec"`
	Burst                 int    `json:"burst"`
	CacheTTLSeconds       int    `json:"cache_ttl_sec"`
	CacheMaxItems         int    `json:"cache_max_items"`
	RedisAddr             string `json:"redis_addr"`
	RedisPassword         string `json:"redis_password"`
	RedisDB               int    `json:"redis_db"`
}

type Quotes struct {
	DefaultSymbol string `json:"default_symbol"`
}

type Ticker struct {
	Enabled        bool     `json:"enabled"`
	Symbols        []string `json:"symbols"`
	IntervalSec    int      `json:"interval_sec"`
	MaxConcurrency int      `json:"max_concurrency"`
}

type Theme struct {
	Path string `json:"path"`
}

type Config struct {
	Server Server `json:"server"`
	Log    Log    `json:"log"`
	Rates  Rates  `json:"rates"`
	Quotes Quotes `json:"quotes"`
	Ticker Ticker `json:"ticker"`
	Theme  Theme  `json:"theme"`
}

func Default() Config {
	return Config{
		Server: Server{Port: "8080", RequestTimeoutSec: 10, ShutdownTimeoutSec: 5},
		Log:    Log{Level: "info", Format: "json"},
		Rates: Rates{
			BaseURL:       "https://api.exchangerate-api.com/v4/latest",
			Burst:         1,
			CacheMaxItems: 1000,
		},
		Quotes: Quotes{DefaultSymbol: "EURUSD"},
		Ticker: Ticker{
			Enabled:        true,
			Symbols:        []string{"EURUSD", "GBPUSD", "USDJPY", "AUDUSD", "USDCAD"},
			IntervalSec:    15,
			MaxConcurrency: 2,
		},
	}
}

// RequestTimeout bounds a single outbound upstream call.
func (c Config) RequestTimeout() time.Duration {
	return time.Duration(c.Server.RequestTimeoutSec) * time.Second
}

func (c Config) ShutdownTimeout() time.Duration {
	return time.Duration(c.Server.ShutdownTimeoutSec) * time.Second
}

// Load reads JSON config from path. If path is empty or file does not exist,
// it returns defaults. Environment variables override select fields for secrecy.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		if _, err := os.Stat("config.json"); err == nil {
			path = "config.json"
		}
	}
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			return cfg, fmt.Errorf("read config: %w", err)
		}
		if err == nil {
			if err := json.Unmarshal(b, &cfg); err != nil {
				return cfg, fmt.Errorf("parse config: %w", err)
			}
		}
	}
	applyEnv(&cfg)
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("validate config: %w", err)
	}
	return cfg, nil
}

func (c Config) Validate() error {
	var errs []error
	if c.Server.Port == "" {
		errs = append(errs, errors.New("server.port is required"))
	}
	if c.Server.RequestTimeoutSec <= 0 {
		errs = append(errs, errors.New("server.request_timeout_sec must be positive"))
	}
	if c.Rates.BaseURL == "" {
		errs = append(errs, errors.New("rates.base_url is required"))
	}
	if c.Ticker.Enabled {
		if len(c.Ticker.Symbols) == 0 {
			errs = append(errs, errors.New("ticker.symbols must not be empty when the ticker is enabled"))
		}
		if c.Ticker.IntervalSec <= 0 {
			errs = append(errs, errors.New("ticker.interval_sec must be positive"))
		}
	}
	return errors.Join(errs...)
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("PORT"); v != "" {
		cfg.Server.Port = v
	}
	envInt("REQUEST_TIMEOUT_SEC", &cfg.Server.RequestTimeoutSec, 1)
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("LOG_FORMAT"); v != "" {
		cfg.Log.Format = v
	}

	if v := os.Getenv("RATES_BASE_URL"); v != "" {
		cfg.Rates.BaseURL = v
	}
	if v := os.Getenv("RATES_API_KEY"); v != "" {
		cfg.Rates.APIKey = v
	}
	envInt("RATES_MAX_RPM", &cfg.Rates.MaxRequestsPerMinute, 0)
	envInt("RATES_MIN_INTERVAL_SEC", &cfg.Rates.MinRequestIntervalSec, 0)
	envInt("RATES_BURST", &cfg.Rates.Burst, 1)
	envInt("RATES_CACHE_TTL_SEC", &cfg.Rates.CacheTTLSeconds, 0)
	envInt("RATES_CACHE_MAX_ITEMS", &cfg.Rates.CacheMaxItems, 1)
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		cfg.Rates.RedisAddr = v
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		cfg.Rates.RedisPassword = v
	}
	envInt("REDIS_DB", &cfg.Rates.RedisDB, 0)

	if v := os.Getenv("DEFAULT_SYMBOL"); v != "" {
		cfg.Quotes.DefaultSymbol = v
	}

	if v := os.Getenv("TICKER_ENABLED"); v != "" {
		switch strings.ToLower(v) {
		case "1", "true", "yes", "y":
			cfg.Ticker.Enabled = true
		case "0", "false", "no", "n":
			cfg.Ticker.Enabled = false
		}
	}
	if v := os.Getenv("TICKER_SYMBOLS"); v != "" {
		cfg.Ticker.Symbols = SplitCSV(v)
	}
	envInt("TICKER_INTERVAL_SEC", &cfg.Ticker.IntervalSec, 1)

	if v := os.Getenv("THEME_FILE"); v != "" {
		cfg.Theme.Path = v
	}
}

// envInt overrides *dst with the integer in key when it parses and is >= min.
func envInt(key string, dst *int, min int) {
	v := os.Getenv(key)
	if v == "" {
		return
	}
	var x int
	if _, err := fmt.Sscanf(v, "%d", &x); err != nil {
		return
	}
	if x >= min {
		*dst = x
	}
}

func SplitCSV(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
