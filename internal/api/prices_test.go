package api

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"propfirm/internal/provider/exchangerate"
	"propfirm/internal/provider/exchangerateadapter"
	"propfirm/internal/quote"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// newUpstream serves the v4 latest endpoint with the given handler.
func newUpstream(t *testing.T, h http.HandlerFunc) *quote.Quoter {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	client, err := exchangerate.NewClient(
		exchangerate.WithBaseURL(srv.URL+"/v4/latest"),
		exchangerate.WithHTTPClient(srv.Client()),
	)
	require.NoError(t, err)
	q := quote.NewQuoter(exchangerateadapter.New(exchangerateadapter.Config{}, client))
	q.Now = func() time.Time { return time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC) }
	return q
}

type quoteBody struct {
	Symbol    string    `json:"symbol"`
	Bid       float64   `json:"bid"`
	Ask       float64   `json:"ask"`
	Timestamp time.Time `json:"timestamp"`
	Error     string    `json:"error"`
}

func get(t *testing.T, h http.Handler, target string) (int, quoteBody) {
	t.Helper()
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, target, nil))
	var body quoteBody
	require.NoErrorf(t, json.Unmarshal(rr.Body.Bytes(), &body), "body: %s", rr.Body.String())
	return rr.Code, body
}

func TestPrices_AppliesSpread(t *testing.T) {
	q := newUpstream(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v4/latest/GBP", r.URL.Path)
		_, _ = io.WriteString(w, `{"base":"GBP","time_last_updated":1,"rates":{"USD":1.2745,"EUR":1.18}}`)
	})
	h := NewPricesHandler(q, "", 0, discardLogger())

	code, body := get(t, h, "/api/prices?symbol=GBPUSD")
	require.Equal(t, http.StatusOK, code)
	require.Equal(t, "GBPUSD", body.Symbol)
	require.Equal(t, 1.2743, body.Bid)
	require.Equal(t, 1.2747, body.Ask)
	// response time, not the upstream's time_last_updated
	require.Equal(t, time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC), body.Timestamp)
	require.Empty(t, body.Error)
}

func TestPrices_DefaultSymbol(t *testing.T) {
	q := newUpstream(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v4/latest/EUR", r.URL.Path)
		_, _ = io.WriteString(w, `{"base":"EUR","rates":{"USD":1.1}}`)
	})
	h := NewPricesHandler(q, "", 0, discardLogger())

	for _, target := range []string{"/api/prices", "/api/prices?symbol="} {
		code, body := get(t, h, target)
		require.Equal(t, http.StatusOK, code)
		require.Equal(t, "EURUSD", body.Symbol)
		require.Equal(t, 1.0998, body.Bid)
		require.Equal(t, 1.1002, body.Ask)
	}
}

func TestPrices_FailuresCollapseTo500(t *testing.T) {
	cases := map[string]http.HandlerFunc{
		"upstream 500": func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		},
		"upstream 404": func(w http.ResponseWriter, r *http.Request) {
			http.NotFound(w, r)
		},
		"malformed json": func(w http.ResponseWriter, r *http.Request) {
			_, _ = io.WriteString(w, `{"rates":`)
		},
		"missing currency key": func(w http.ResponseWriter, r *http.Request) {
			_, _ = io.WriteString(w, `{"base":"EUR","rates":{"GBP":0.85}}`)
		},
		"non-numeric rate": func(w http.ResponseWriter, r *http.Request) {
			_, _ = io.WriteString(w, `{"base":"EUR","rates":{"USD":"n/a"}}`)
		},
	}
	for name, upstream := range cases {
		t.Run(name, func(t *testing.T) {
			h := NewPricesHandler(newUpstream(t, upstream), "", 0, discardLogger())
			code, body := get(t, h, "/api/prices?symbol=EURUSD")
			require.Equal(t, http.StatusInternalServerError, code)
			require.Equal(t, "Failed to fetch price", body.Error)
			require.Empty(t, body.Symbol)
		})
	}
}

func TestPrices_NetworkError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	client, err := exchangerate.NewClient(exchangerate.WithBaseURL(url))
	require.NoError(t, err)
	h := NewPricesHandler(quote.NewQuoter(exchangerateadapter.New(exchangerateadapter.Config{}, client)), "", 0, discardLogger())

	code, body := get(t, h, "/api/prices")
	require.Equal(t, http.StatusInternalServerError, code)
	require.Equal(t, "Failed to fetch price", body.Error)
}

func TestPrices_ShortSymbolIsNotValidated(t *testing.T) {
	var path string
	q := newUpstream(t, func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		_, _ = io.WriteString(w, `{"base":"EU","rates":{}}`)
	})
	h := NewPricesHandler(q, "", 0, discardLogger())

	code, body := get(t, h, "/api/prices?symbol=EU")
	require.Equal(t, "/v4/latest/EU", path)
	require.Equal(t, http.StatusInternalServerError, code)
	require.Equal(t, "Failed to fetch price", body.Error)
}

type blockingQuoter struct{}

func (blockingQuoter) Quote(ctx context.Context, _ string) (quote.Quote, error) {
	<-ctx.Done()
	return quote.Quote{}, ctx.Err()
}

func TestPrices_Timeout(t *testing.T) {
	h := NewPricesHandler(blockingQuoter{}, "", 10*time.Millisecond, discardLogger())
	code, body := get(t, h, "/api/prices")
	require.Equal(t, http.StatusInternalServerError, code)
	require.Equal(t, "Failed to fetch price", body.Error)
}

func TestPrices_MethodNotAllowed(t *testing.T) {
	h := NewPricesHandler(blockingQuoter{}, "", 0, discardLogger())
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/prices", nil))
	require.Equal(t, http.StatusMethodNotAllowed, rr.Code)
}
