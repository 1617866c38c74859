package main

import (
	"log/slog"
	"net/http"

	"propfirm/internal/api"
	"propfirm/internal/config"
	"propfirm/internal/httpx"
	"propfirm/internal/web"
)

// routes mounts the JSON API and the dashboard pages and wraps them in the
// shared middleware chain.
func routes(cfg config.Config, q api.Quoter, board api.Board, pages *web.Pages, logger *slog.Logger) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", api.Healthz)
	mux.Handle("/api/prices", httpx.WithJSONHeaders(
		api.NewPricesHandler(q, cfg.Quotes.DefaultSymbol, cfg.RequestTimeout(), logger)))
	mux.Handle("GET /api/prices/ticker", httpx.WithJSONHeaders(api.TickerHandler(board)))
	mux.Handle("GET /api/prices/stream", api.NewStreamHandler(board, api.StreamConfig{}, logger))
	pages.Register(mux)

	var h http.Handler = mux
	h = httpx.WithMaxBody(h)
	// recover sits inside gzip: the 500 must go through the gzip writer
	h = httpx.RecoverPanic(logger)(h)
	h = httpx.WithGzip(h)
	h = httpx.AccessLog(logger)(h)
	h = httpx.WithRequestID(h)
	return h
}
