package aggregate

import (
	"sort"

	"propfirm/internal/quote"
)

// LatestBySymbol collapses quotes to the newest one per symbol, sorted by symbol.
// For equal timestamps, later input wins.
func LatestBySymbol(quotes []quote.Quote) []quote.Quote {
	latest := make(map[string]quote.Quote, len(quotes))
	for _, q := range quotes {
		if cur, ok := latest[q.Symbol]; ok && q.Timestamp.Before(cur.Timestamp) {
			continue
		}
		latest[q.Symbol] = q
	}

	out := make([]quote.Quote, 0, len(latest))
	for _, v := range latest {
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Symbol < out[j].Symbol })
	return out
}

// Merge overlays fresh quotes on a previous board. Symbols missing from
// fresh keep their previous quote.
func Merge(prev, fresh []quote.Quote) []quote.Quote {
	all := make([]quote.Quote, 0, len(prev)+len(fresh))
	all = append(all, prev...)
	all = append(all, fresh...)
	return LatestBySymbol(all)
}
