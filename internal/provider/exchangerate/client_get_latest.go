package exchangerate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// ErrRateNotFound is returned when the payload has no rate for the quote currency.
var ErrRateNotFound = errors.New("rate not found")

// Latest is the latest rates payload for one base currency.
type Latest struct {
	Base      string
	Date      string
	UpdatedAt time.Time
	Rates     map[string]decimal.Decimal
}

// Rate returns the rate for quote, keyed exactly as the upstream returned it.
func (l Latest) Rate(quote string) (decimal.Decimal, error) {
	r, ok := l.Rates[quote]
	if !ok {
		return decimal.Decimal{}, fmt.Errorf("%s/%s: %w", l.Base, quote, ErrRateNotFound)
	}
	return r, nil
}

// {
//   "base": "EUR",
//   "date": "2024-07-17",
//   "time_last_updated": 1721174401,
//   "rates": { "EUR": 1, "USD": 1.0891, ... }
// }
type latestResponse struct {
	Base            string                 `json:"base"`
	Date            string                 `json:"date"`
	TimeLastUpdated int64                  `json:"time_last_updated"`
	Rates           map[string]json.Number `json:"rates"`
}

// GetLatest retrieves the latest rates quoted against base.
func (c *Client) GetLatest(ctx context.Context, base string, opts ...ClientOption) (Latest, error) {
	var override = &Client{
		baseURL:    c.baseURL,
		httpClient: c.httpClient,
		header:     c.header.Clone(),
	}
	for _, opt := range opts {
		opt(override)
	}

	u := fmt.Sprintf("%s/%s", strings.TrimRight(override.baseURL, "/"), url.PathEscape(base))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, http.NoBody)
	if err != nil {
		return Latest{}, fmt.Errorf("creating request: %w", err)
	}
	req.Header = override.header
	req.Header.Set("Accept", "application/json")

	res, err := override.httpClient.Do(req)
	if err != nil {
		return Latest{}, fmt.Errorf("performing request: %w", err)
	}
	defer res.Body.Close()

	switch res.StatusCode {
	case http.StatusOK:
		break

	case http.StatusBadRequest:
		return Latest{}, fmt.Errorf("bad request with base=%q", base)

	case http.StatusUnauthorized, http.StatusForbidden:
		return Latest{}, fmt.Errorf("unauthorized")

	case http.StatusNotFound:
		return Latest{}, fmt.Errorf("unknown base currency %q", base)

	case http.StatusTooManyRequests:
		return Latest{}, fmt.Errorf("rate limited")

	default:
		return Latest{}, fmt.Errorf("unexpected status code: %d", res.StatusCode)
	}

	var body latestResponse
	dec := json.NewDecoder(res.Body)
	dec.UseNumber()
	if err := dec.Decode(&body); err != nil {
		return Latest{}, fmt.Errorf("decoding latest response: %w", err)
	}

	rates := make(map[string]decimal.Decimal, len(body.Rates))
	for code, n := range body.Rates {
		d, err := decimal.NewFromString(n.String())
		if err != nil {
			return Latest{}, fmt.Errorf("decoding rate %s: %w", code, err)
		}
		rates[code] = d
	}

	var updated time.Time
	if body.TimeLastUpdated > 0 {
		updated = time.Unix(body.TimeLastUpdated, 0).UTC()
	}

	return Latest{
		Base:      body.Base,
		Date:      body.Date,
		UpdatedAt: updated,
		Rates:     rates,
	}, nil
}
