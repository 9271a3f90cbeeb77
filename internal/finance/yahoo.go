package finance

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/tidwall/gjson"
)

// ErrUnknownSymbol is returned when the quote service has no data for a
// symbol.
var ErrUnknownSymbol = errors.New("unknown symbol")

const userAgent = "Mozilla/5.0 (compatible; briefbot)"

// Quote is a daily snapshot of one ticker.
type Quote struct {
	Symbol        string
	Name          string
	Open          float64
	High          float64
	Low           float64
	Current       float64
	PreviousClose float64
	YearLow       float64
	YearHigh      float64
}

// Client reads quotes from the Yahoo Finance chart API.
type Client struct {
	baseURL string
	client  *http.Client
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
	}
}

// QueryTickers formats one line per symbol. Symbols are trimmed and
// upper-cased; blanks are skipped.
func (c *Client) QueryTickers(ctx context.Context, symbols []string) string {
	lines := make([]string, 0, len(symbols))
	for _, s := range symbols {
		sym := strings.ToUpper(strings.TrimSpace(s))
		if sym == "" {
			continue
		}
		q, err := c.Quote(ctx, sym)
		if err != nil {
			if !errors.Is(err, ErrUnknownSymbol) {
				log.Warn().Err(err).Str("symbol", sym).Msg("quote lookup failed")
			}
			lines = append(lines, fmt.Sprintf("%s not found.", sym))
			continue
		}
		lines = append(lines, FormatQuote(q))
	}
	return strings.Join(lines, "\n")
}

func (c *Client) Quote(ctx context.Context, symbol string) (Quote, error) {
	endpoint := fmt.Sprintf("%s/v8/finance/chart/%s?range=1d&interval=1d", c.baseURL, url.PathEscape(symbol))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return Quote{}, err
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.client.Do(req)
	if err != nil {
		return Quote{}, fmt.Errorf("failed to query %s: %w", symbol, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return Quote{}, fmt.Errorf("failed to read quote for %s: %w", symbol, err)
	}

	if resp.StatusCode == http.StatusNotFound {
		return Quote{}, fmt.Errorf("%w: %s", ErrUnknownSymbol, symbol)
	}
	if resp.StatusCode != http.StatusOK {
		return Quote{}, fmt.Errorf("quote service returned status %d", resp.StatusCode)
	}

	return parseChart(body, symbol)
}

func parseChart(body []byte, symbol string) (Quote, error) {
	if !gjson.ValidBytes(body) {
		return Quote{}, errors.New("invalid quote response")
	}

	meta := gjson.GetBytes(body, "chart.result.0.meta")
	if !meta.Exists() || !meta.Get("symbol").Exists() {
		return Quote{}, fmt.Errorf("%w: %s", ErrUnknownSymbol, symbol)
	}

	name := meta.Get("shortName").String()
	if name == "" {
		name = meta.Get("longName").String()
	}

	prev := meta.Get("previousClose")
	if !prev.Exists() {
		prev = meta.Get("chartPreviousClose")
	}

	return Quote{
		Symbol:        meta.Get("symbol").String(),
		Name:          name,
		Open:          gjson.GetBytes(body, "chart.result.0.indicators.quote.0.open.0").Float(),
		High:          meta.Get("regularMarketDayHigh").Float(),
		Low:           meta.Get("regularMarketDayLow").Float(),
		Current:       meta.Get("regularMarketPrice").Float(),
		PreviousClose: prev.Float(),
		YearLow:       meta.Get("fiftyTwoWeekLow").Float(),
		YearHigh:      meta.Get("fiftyTwoWeekHigh").Float(),
	}, nil
}

// FormatQuote renders q as a single chat line. Net change is omitted when
// either the current price or the previous close is unknown.
func FormatQuote(q Quote) string {
	var b strings.Builder
	fmt.Fprintf(&b, "▪️%s(%s)", q.Name, q.Symbol)
	fmt.Fprintf(&b, ", Open: %s", price(q.Open))
	fmt.Fprintf(&b, ", High: %s", price(q.High))
	fmt.Fprintf(&b, ", Low: %s", price(q.Low))
	if q.Current != 0 {
		fmt.Fprintf(&b, ", Current: %s", price(q.Current))
		if q.PreviousClose != 0 {
			change := (q.Current - q.PreviousClose) / q.PreviousClose * 100
			fmt.Fprintf(&b, ", Net Change: %.2f%%", change)
		}
	}
	fmt.Fprintf(&b, ", 52 Week Low: %s", price(q.YearLow))
	fmt.Fprintf(&b, ", 52 Week High: %s", price(q.YearHigh))
	return b.String()
}

func price(v float64) string {
	if v == 0 {
		return "N/A"
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}
