package finance

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const appleChart = `{"chart":{"result":[{"meta":{"currency":"USD","symbol":"AAPL","shortName":"Apple Inc.","longName":"Apple Inc.","regularMarketPrice":110,"regularMarketDayHigh":112.5,"regularMarketDayLow":108,"fiftyTwoWeekLow":90.25,"fiftyTwoWeekHigh":150,"chartPreviousClose":100},"timestamp":[1700000000],"indicators":{"quote":[{"open":[109],"high":[112.5],"low":[108],"close":[110],"volume":[1000]}]}}],"error":null}}`

const notFoundChart = `{"chart":{"result":null,"error":{"code":"Not Found","description":"No data found, symbol may be delisted"}}}`

func newYahooServer(t *testing.T, paths *[]string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*paths = append(*paths, r.URL.Path)
		assert.NotEmpty(t, r.Header.Get("User-Agent"))
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/v8/finance/chart/AAPL":
			_, _ = w.Write([]byte(appleChart))
		case "/v8/finance/chart/BROKEN":
			w.WriteHeader(http.StatusInternalServerError)
		default:
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(notFoundChart))
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestQueryTickers(t *testing.T) {
	var paths []string
	srv := newYahooServer(t, &paths)
	c := NewClient(srv.URL+"/", 5*time.Second)

	got := c.QueryTickers(context.Background(), []string{" aapl ", "nope", "", "broken"})

	lines := strings.Split(got, "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "▪️Apple Inc.(AAPL), Open: 109, High: 112.5, Low: 108, Current: 110, Net Change: 10.00%, 52 Week Low: 90.25, 52 Week High: 150", lines[0])
	assert.Equal(t, "NOPE not found.", lines[1])
	assert.Equal(t, "BROKEN not found.", lines[2])
	assert.Equal(t, []string{"/v8/finance/chart/AAPL", "/v8/finance/chart/NOPE", "/v8/finance/chart/BROKEN"}, paths)
}

func TestQuote_UnknownSymbol(t *testing.T) {
	var paths []string
	srv := newYahooServer(t, &paths)
	c := NewClient(srv.URL, 5*time.Second)

	_, err := c.Quote(context.Background(), "NOPE")
	assert.ErrorIs(t, err, ErrUnknownSymbol)
}

func TestParseChart_EmptyResult(t *testing.T) {
	_, err := parseChart([]byte(`{"chart":{"result":[],"error":null}}`), "X")
	assert.ErrorIs(t, err, ErrUnknownSymbol)

	_, err = parseChart([]byte(`not json`), "X")
	assert.Error(t, err)
}

func TestFormatQuote(t *testing.T) {
	tests := []struct {
		name string
		q    Quote
		want string
	}{
		{
			name: "negative change",
			q:    Quote{Symbol: "TSM", Name: "TSMC", Open: 100, High: 101, Low: 95, Current: 97, PreviousClose: 100, YearLow: 80, YearHigh: 120},
			want: "▪️TSMC(TSM), Open: 100, High: 101, Low: 95, Current: 97, Net Change: -3.00%, 52 Week Low: 80, 52 Week High: 120",
		},
		{
			name: "no current price",
			q:    Quote{Symbol: "X", Name: "Ex", Open: 1.5, High: 2, Low: 1, PreviousClose: 1, YearLow: 0.5, YearHigh: 3},
			want: "▪️Ex(X), Open: 1.5, High: 2, Low: 1, 52 Week Low: 0.5, 52 Week High: 3",
		},
		{
			name: "no previous close",
			q:    Quote{Symbol: "X", Name: "Ex", Current: 2},
			want: "▪️Ex(X), Open: N/A, High: N/A, Low: N/A, Current: 2, 52 Week Low: N/A, 52 Week High: N/A",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatQuote(tt.q))
		})
	}
}
