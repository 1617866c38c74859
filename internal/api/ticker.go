package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"propfirm/internal/httpx"
	"propfirm/internal/quote"
)

// Board is the ticker as seen by the HTTP layer.
type Board interface {
	Snapshot() []quote.Quote
	Subscribe() (<-chan []quote.Quote, func())
}

type boardResponse struct {
	Quotes []quote.Quote `json:"quotes"`
}

// TickerHandler serves GET /api/prices/ticker.
func TickerHandler(b Board) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			writeJSON(w, http.StatusMethodNotAllowed, errorResponse{Error: "method not allowed"})
			return
		}
		quotes := b.Snapshot()
		if quotes == nil {
			quotes = []quote.Quote{}
		}
		writeJSON(w, http.StatusOK, boardResponse{Quotes: quotes})
	}
}

// StreamConfig tunes the websocket feed.
type StreamConfig struct {
	WriteTimeout time.Duration
	PingInterval time.Duration
	PongTimeout  time.Duration
}

func (c *StreamConfig) applyDefaults() {
	if c.WriteTimeout <= 0 {
		c.WriteTimeout = 5 * time.Second
	}
	if c.PongTimeout <= 0 {
		c.PongTimeout = 60 * time.Second
	}
	if c.PingInterval <= 0 || c.PingInterval >= c.PongTimeout {
		c.PingInterval = c.PongTimeout * 9 / 10
	}
}

// StreamHandler serves GET /api/prices/stream: the board on connect and
// after every refresh, one JSON text frame each.
type StreamHandler struct {
	board    Board
	cfg      StreamConfig
	logger   *slog.Logger
	upgrader websocket.Upgrader
}

func NewStreamHandler(b Board, cfg StreamConfig, logger *slog.Logger) *StreamHandler {
	cfg.applyDefaults()
	if logger == nil {
		logger = slog.Default()
	}
	return &StreamHandler{
		board:  b,
		cfg:    cfg,
		logger: logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

func (h *StreamHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written the error response.
		h.logger.Debug("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	log := h.logger.With("request_id", httpx.RequestID(r.Context()), "remote", r.RemoteAddr)
	log.Debug("stream opened")

	updates, cancel := h.board.Subscribe()
	defer cancel()

	// The reader only services control frames and notices the close.
	closed := make(chan struct{})
	conn.SetReadLimit(512)
	_ = conn.SetReadDeadline(time.Now().Add(h.cfg.PongTimeout))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(h.cfg.PongTimeout))
	})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	if err := h.send(conn, h.board.Snapshot()); err != nil {
		log.Debug("stream write failed", "error", err)
		return
	}

	ping := time.NewTicker(h.cfg.PingInterval)
	defer ping.Stop()
	for {
		select {
		case <-r.Context().Done():
			return
		case <-closed:
			log.Debug("stream closed by peer")
			return
		case snap, ok := <-updates:
			if !ok {
				return
			}
			if err := h.send(conn, snap); err != nil {
				log.Debug("stream write failed", "error", err)
				return
			}
		case <-ping.C:
			deadline := time.Now().Add(h.cfg.WriteTimeout)
			if err := conn.WriteControl(websocket.PingMessage, nil, deadline); err != nil {
				log.Debug("stream ping failed", "error", err)
				return
			}
		}
	}
}

func (h *StreamHandler) send(conn *websocket.Conn, quotes []quote.Quote) error {
	if quotes == nil {
		quotes = []quote.Quote{}
	}
	_ = conn.SetWriteDeadline(time.Now().Add(h.cfg.WriteTimeout))
	return conn.WriteJSON(boardResponse{Quotes: quotes})
}

// Healthz answers liveness probes.
func Healthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}
