package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"propfirm/internal/config"
	"propfirm/internal/httpx"
	"propfirm/internal/logging"
	"propfirm/internal/quote"
	"propfirm/internal/sources"
	"propfirm/internal/ticker"
)

func main() {
	var (
		symbolsCSV  string
		configPath  string
		timeout     int
		concurrency int
	)
	flag.StringVar(&symbolsCSV, "symbols", quote.DefaultSymbol, "comma-separated symbols, e.g. EURUSD,USDJPY")
	flag.StringVar(&configPath, "config", os.Getenv("CONFIG_FILE"), "path to config.json (optional)")
	flag.IntVar(&timeout, "timeout", 0, "overall timeout seconds (0 = config request timeout)")
	flag.IntVar(&concurrency, "concurrency", 4, "parallel upstream requests")
	flag.Parse()

	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	logger := logging.NewWithWriter(os.Stderr, cfg.Log.Level, "text")

	symbols := config.SplitCSV(symbolsCSV)
	if len(symbols) == 0 {
		logger.Error("no symbols provided")
		os.Exit(2)
	}

	d := cfg.RequestTimeout()
	if timeout > 0 {
		d = time.Duration(timeout) * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), d)
	defer cancel()

	src, cleanup, err := sources.Build(ctx, cfg.Rates, httpx.New(cfg.RequestTimeout()), logger)
	if err != nil {
		logger.Error("rate source", "error", err)
		os.Exit(1)
	}
	defer cleanup()

	board := ticker.New(ticker.Config{Symbols: symbols, MaxConcurrency: concurrency}, quote.NewQuoter(src), logger)
	quotes := board.Refresh(ctx)
	if len(quotes) == 0 {
		logger.Error("no quotes received")
		os.Exit(1)
	}
	logger.Info("fetched", "quotes", len(quotes), "symbols", len(symbols))

	b, _ := json.MarshalIndent(struct {
		Quotes []quote.Quote `json:"quotes"`
	}{Quotes: quotes}, "", "  ")
	fmt.Println(string(b))
}
