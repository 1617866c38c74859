package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"propfirm/internal/config"
	"propfirm/internal/httpx"
	"propfirm/internal/logging"
	"propfirm/internal/quote"
	"propfirm/internal/sources"
	"propfirm/internal/theme"
	"propfirm/internal/ticker"
	"propfirm/internal/web"
)

func main() {
	cfg, err := config.Load(os.Getenv("CONFIG_FILE"))
	if err != nil {
		logging.New("error", "json").Error("config", "error", err)
		os.Exit(1)
	}
	logger := logging.New(cfg.Log.Level, cfg.Log.Format)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	httpClient := httpx.New(cfg.RequestTimeout())
	src, cleanup, err := sources.Build(ctx, cfg.Rates, httpClient, logger)
	if err != nil {
		logger.Error("rate source", "error", err)
		os.Exit(1)
	}
	defer cleanup()

	th, err := theme.Load(cfg.Theme.Path)
	if err != nil {
		logger.Error("theme", "error", err)
		os.Exit(1)
	}

	quoter := quote.NewQuoter(src)
	board := ticker.New(ticker.Config{
		Symbols:        cfg.Ticker.Symbols,
		Interval:       time.Duration(cfg.Ticker.IntervalSec) * time.Second,
		MaxConcurrency: cfg.Ticker.MaxConcurrency,
	}, quoter, logger)
	if cfg.Ticker.Enabled {
		go board.Run(ctx)
	}

	pages, err := web.New(th, board, cfg.Ticker.Symbols, logger)
	if err != nil {
		logger.Error("pages", "error", err)
		os.Exit(1)
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           routes(cfg, quoter, board, pages, logger),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout())
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("shutdown", "error", err)
	}
}
