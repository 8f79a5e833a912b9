package yahoo

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arthasutra/backend/pkg/httputil"
	"github.com/arthasutra/backend/pkg/logger"
)

func TestYahooSymbol(t *testing.T) {
	assert.Equal(t, "INFY.NS", YahooSymbol("INFY", "NSE"))
	assert.Equal(t, "INFY.NS", YahooSymbol("INFY", "nse"))
	assert.Equal(t, "INFY.NS", YahooSymbol("INFY", ""))
	assert.Equal(t, "500112.BO", YahooSymbol("500112", "BSE"))
	assert.Equal(t, "AAPL", YahooSymbol("AAPL", "NASDAQ"))
}

const chartPayload = `{
  "chart": {
    "result": [{
      "meta": {"regularMarketPrice": 2845.5},
      "timestamp": [1770000000, 1770086400, 1770172800],
      "indicators": {"quote": [{
        "open":   [2800.0, 2850.0, null],
        "high":   [2860.0, 2910.0, null],
        "low":    [2790.0, 2840.0, null],
        "close":  [2845.0, 2900.0, null],
        "volume": [125000.0, null, null]
      }]}
    }],
    "error": null
  }
}`

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(httputil.New(logger.Nop()).DisableRetry(), srv.URL, logger.Nop())
}

func TestFetchDailyBars(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Contains(t, r.URL.Path, "/v8/finance/chart/BSE.NS")
		assert.Equal(t, "1d", r.URL.Query().Get("interval"))
		w.Write([]byte(chartPayload))
	})

	start := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2026, 2, 5, 0, 0, 0, 0, time.UTC)
	bars, err := client.FetchDailyBars(context.Background(), "BSE", "NSE", start, end)
	require.NoError(t, err)

	// Third timestamp has a null close and is dropped.
	require.Len(t, bars, 2)
	assert.Equal(t, 2845.0, bars[0].Close)
	assert.Equal(t, 2800.0, bars[0].Open)
	require.NotNil(t, bars[0].Volume)
	assert.Equal(t, 125000.0, *bars[0].Volume)
	assert.Nil(t, bars[1].Volume)
}

func TestFetchQuote(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(chartPayload))
	})

	price, err := client.FetchQuote(context.Background(), "BSE", "NSE")
	require.NoError(t, err)
	assert.Equal(t, 2845.5, price)
}

func TestFetchQuote_APIError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"chart":{"result":null,"error":{"code":"Not Found","description":"No data found"}}}`))
	})

	_, err := client.FetchQuote(context.Background(), "NOPE", "NSE")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "No data found")
}
