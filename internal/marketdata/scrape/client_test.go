package scrape

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arthasutra/backend/pkg/httputil"
	"github.com/arthasutra/backend/pkg/logger"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(httputil.New(logger.Nop()).DisableRetry(), srv.URL, logger.Nop())
}

func TestFetchLTP(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/quote/INFY:NSE", r.URL.Path)
		w.Write([]byte(`<html><body>
			<div class="zzDege">Infosys Ltd</div>
			<div class="YMlKec fxKbKc">₹2,845.50</div>
		</body></html>`))
	})

	price, err := client.FetchLTP(context.Background(), "INFY", "NSE")
	require.NoError(t, err)
	assert.Equal(t, 2845.5, price)
}

func TestFetchLTP_MissingElement(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html><body><p>captcha</p></body></html>`))
	})

	_, err := client.FetchLTP(context.Background(), "INFY", "NSE")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "price element not found")
}

func TestParsePrice(t *testing.T) {
	for _, tc := range []struct {
		in   string
		want float64
	}{
		{"₹2,845.50", 2845.5},
		{"1500", 1500},
		{"$12.30", 12.3},
	} {
		got, err := parsePrice(tc.in)
		require.NoError(t, err, tc.in)
		assert.Equal(t, tc.want, got)
	}

	_, err := parsePrice("—")
	assert.Error(t, err)
	_, err = parsePrice("-10")
	assert.Error(t, err)
}
