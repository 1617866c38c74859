package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"propfirm/internal/httpx"
	"propfirm/internal/quote"
)

// fetchFailed is the only error text the price endpoint ever returns.
const fetchFailed = "Failed to fetch price"

// Quoter prices a single symbol.
type Quoter interface {
	Quote(ctx context.Context, symbol string) (quote.Quote, error)
}

type errorResponse struct {
	Error string `json:"error"`
}

// PricesHandler serves GET /api/prices?symbol=EURUSD.
type PricesHandler struct {
	quoter        Quoter
	defaultSymbol string
	timeout       time.Duration
	logger        *slog.Logger
}

// NewPricesHandler creates the price handler. A zero timeout leaves the
// upstream call bounded only by the request context and HTTP client.
func NewPricesHandler(q Quoter, defaultSymbol string, timeout time.Duration, logger *slog.Logger) *PricesHandler {
	if defaultSymbol == "" {
		defaultSymbol = quote.DefaultSymbol
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &PricesHandler{quoter: q, defaultSymbol: defaultSymbol, timeout: timeout, logger: logger}
}

func (h *PricesHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, errorResponse{Error: "method not allowed"})
		return
	}

	symbol := r.URL.Query().Get("symbol")
	if symbol == "" {
		symbol = h.defaultSymbol
	}

	ctx := r.Context()
	if h.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.timeout)
		defer cancel()
	}

	q, err := h.quoter.Quote(ctx, symbol)
	if err != nil {
		h.logger.Error("price fetch failed",
			"request_id", httpx.RequestID(r.Context()),
			"symbol", symbol,
			"error", err,
		)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: fetchFailed})
		return
	}
	writeJSON(w, http.StatusOK, q)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(v)
}
