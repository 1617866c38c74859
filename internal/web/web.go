// Package web renders the dashboard: the root layout with fonts and theme
// CSS, the sidebar, the price marquee and the section pages.
package web

import (
	"bytes"
	"fmt"
	"html/template"
	"io/fs"
	"log/slog"
	"net/http"
	"strings"

	"github.com/Rhymond/go-money"

	"propfirm/internal/nav"
	"propfirm/internal/quote"
	"propfirm/internal/theme"
)

// Board supplies the quotes shown in the marquee.
type Board interface {
	Snapshot() []quote.Quote
}

// Pages serves the HTML side of the dashboard.
type Pages struct {
	tmpl     *template.Template
	theme    theme.Theme
	css      []byte
	board    Board
	symbols  []string
	sidebar  []nav.Item
	logger   *slog.Logger
	staticFS fs.FS
}

// layoutData is what every page template receives.
type layoutData struct {
	Title    string
	Section  string
	Path     string
	FontsURL string
	Marquee  string
	Nav      []nav.Entry
	Ticker   []tickerItem
	// Loops repeats the marquee track so the -50% keyframe wraps seamlessly.
	Loops    []int
}

type tickerItem struct {
	Symbol string
	Label  string
	Bid    string
	Ask    string
}

// New parses the embedded templates. symbols are shown in the marquee even
// before the board has a quote for them.
func New(th theme.Theme, board Board, symbols []string, logger *slog.Logger) (*Pages, error) {
	tmpl, err := template.New("").ParseFS(ContentFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}
	static, err := fs.Sub(ContentFS, "static")
	if err != nil {
		return nil, fmt.Errorf("static fs: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Pages{
		tmpl:     tmpl,
		theme:    th,
		css:      []byte(th.CSS()),
		board:    board,
		symbols:  symbols,
		sidebar:  nav.Sidebar,
		logger:   logger,
		staticFS: static,
	}, nil
}

// Register mounts the page routes on mux.
func (p *Pages) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /{$}", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/dashboard", http.StatusFound)
	})
	mux.HandleFunc("GET /dashboard", p.serveDashboard)
	mux.HandleFunc("GET /dashboard/", p.serveDashboard)
	mux.HandleFunc("GET /static/theme.css", p.serveThemeCSS)
	mux.Handle("GET /static/", http.StripPrefix("/static/", http.FileServerFS(p.staticFS)))
}

func (p *Pages) serveThemeCSS(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/css; charset=utf-8")
	w.Header().Set("Cache-Control", "public, max-age=300")
	_, _ = w.Write(p.css)
}

func (p *Pages) serveDashboard(w http.ResponseWriter, r *http.Request) {
	item, child := nav.Trail(p.sidebar, r.URL.Path)
	if item == nil {
		http.NotFound(w, r)
		return
	}
	title := item.Label
	if child != nil {
		title = child.Label
	}

	data := layoutData{
		Title:    title,
		Section:  item.Label,
		Path:     r.URL.Path,
		FontsURL: p.theme.FontsURL(),
		Marquee:  p.theme.Marquee().Name,
		Nav:      nav.Build(p.sidebar, r.URL.Path),
		Ticker:   p.tickerItems(),
		Loops:    []int{0, 1},
	}

	var buf bytes.Buffer
	if err := p.tmpl.ExecuteTemplate(&buf, "layout.html", data); err != nil {
		p.logger.Error("render page", "path", r.URL.Path, "error", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = buf.WriteTo(w)
}

// tickerItems lists configured symbols in order, filled from the board when quoted.
func (p *Pages) tickerItems() []tickerItem {
	bySymbol := map[string]quote.Quote{}
	if p.board != nil {
		for _, q := range p.board.Snapshot() {
			bySymbol[q.Symbol] = q
		}
	}
	out := make([]tickerItem, 0, len(p.symbols))
	for _, s := range p.symbols {
		it := tickerItem{Symbol: s, Label: PairLabel(s), Bid: "-", Ask: "-"}
		if q, ok := bySymbol[s]; ok {
			it.Bid = FormatPrice(s, q.Bid)
			it.Ask = FormatPrice(s, q.Ask)
		}
		out = append(out, it)
	}
	return out
}

// PairLabel renders EURUSD as "€ EUR/USD $", leaving out graphemes for
// codes go-money does not know.
func PairLabel(symbol string) string {
	pair := quote.SplitSymbol(symbol)
	parts := make([]string, 0, 3)
	if g := grapheme(pair.Base); g != "" {
		parts = append(parts, g)
	}
	parts = append(parts, pair.Base+"/"+pair.Quote)
	if g := grapheme(pair.Quote); g != "" {
		parts = append(parts, g)
	}
	return strings.Join(parts, " ")
}

func grapheme(code string) string {
	if code == "" {
		return ""
	}
	c := money.GetCurrency(strings.ToUpper(code))
	if c == nil {
		return ""
	}
	return c.Grapheme
}

// FormatPrice uses 3 decimals for yen-quoted pairs and 5 otherwise.
func FormatPrice(symbol string, v float64) string {
	if strings.EqualFold(quote.SplitSymbol(symbol).Quote, "JPY") {
		return fmt.Sprintf("%.3f", v)
	}
	return fmt.Sprintf("%.5f", v)
}
