// Package yahoo fetches daily OHLCV history and delayed quotes from the
// Yahoo Finance chart API.
package yahoo

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/arthasutra/backend/pkg/httputil"
	"github.com/arthasutra/backend/pkg/logger"
)

const DefaultBaseURL = "https://query1.finance.yahoo.com"

// Bar is one daily OHLCV row as returned by the chart API, before it is
// bound to a stored security.
type Bar struct {
	Date   time.Time
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume *float64
}

// Client wraps the Yahoo chart API.
type Client struct {
	http    *httputil.Client
	baseURL string
	logger  *logger.Logger
}

func NewClient(http *httputil.Client, baseURL string, log *logger.Logger) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		http:    http,
		baseURL: strings.TrimRight(baseURL, "/"),
		logger:  log,
	}
}

// YahooSymbol maps an (symbol, exchange) pair to Yahoo's ticker form:
// NSE listings get a .NS suffix, BSE listings .BO, anything else passes
// through unchanged.
func YahooSymbol(symbol, exchange string) string {
	switch strings.ToUpper(exchange) {
	case "", "NSE":
		return symbol + ".NS"
	case "BSE":
		return symbol + ".BO"
	default:
		return symbol
	}
}

// chartResponse mirrors the subset of the chart payload we read.
type chartResponse struct {
	Chart struct {
		Result []struct {
			Meta struct {
				RegularMarketPrice float64 `json:"regularMarketPrice"`
			} `json:"meta"`
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Open   []*float64 `json:"open"`
					High   []*float64 `json:"high"`
					Low    []*float64 `json:"low"`
					Close  []*float64 `json:"close"`
					Volume []*float64 `json:"volume"`
				} `json:"quote"`
			} `json:"indicators"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

func (c *Client) fetchChart(ctx context.Context, yahooSym string, params url.Values) (*chartResponse, error) {
	u := fmt.Sprintf("%s/v8/finance/chart/%s?%s", c.baseURL, url.PathEscape(yahooSym), params.Encode())

	resp, err := c.http.Get(ctx, u)
	if err != nil {
		return nil, fmt.Errorf("yahoo chart request for %s: %w", yahooSym, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("yahoo chart for %s: unexpected status %d", yahooSym, resp.StatusCode)
	}

	var payload chartResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode yahoo chart for %s: %w", yahooSym, err)
	}
	if payload.Chart.Error != nil {
		return nil, fmt.Errorf("yahoo chart for %s: %s (%s)",
			yahooSym, payload.Chart.Error.Description, payload.Chart.Error.Code)
	}
	if len(payload.Chart.Result) == 0 {
		return nil, fmt.Errorf("yahoo chart for %s: empty result", yahooSym)
	}
	return &payload, nil
}

// FetchDailyBars returns the daily bars between start and end inclusive.
// Rows with a null close (holidays, halted sessions) are dropped.
func (c *Client) FetchDailyBars(ctx context.Context, symbol, exchange string, start, end time.Time) ([]Bar, error) {
	params := url.Values{}
	params.Set("interval", "1d")
	params.Set("period1", fmt.Sprintf("%d", start.Unix()))
	// period2 is exclusive on Yahoo's side, push it past end of day.
	params.Set("period2", fmt.Sprintf("%d", end.AddDate(0, 0, 1).Unix()))

	yahooSym := YahooSymbol(symbol, exchange)
	payload, err := c.fetchChart(ctx, yahooSym, params)
	if err != nil {
		return nil, err
	}

	result := payload.Chart.Result[0]
	if len(result.Indicators.Quote) == 0 {
		return nil, nil
	}
	quote := result.Indicators.Quote[0]

	bars := make([]Bar, 0, len(result.Timestamp))
	for i, ts := range result.Timestamp {
		if i >= len(quote.Close) || quote.Close[i] == nil {
			continue
		}
		bar := Bar{
			Date:  time.Unix(ts, 0).UTC().Truncate(24 * time.Hour),
			Close: *quote.Close[i],
		}
		if i < len(quote.Open) && quote.Open[i] != nil {
			bar.Open = *quote.Open[i]
		}
		if i < len(quote.High) && quote.High[i] != nil {
			bar.High = *quote.High[i]
		}
		if i < len(quote.Low) && quote.Low[i] != nil {
			bar.Low = *quote.Low[i]
		}
		if i < len(quote.Volume) && quote.Volume[i] != nil {
			v := *quote.Volume[i]
			bar.Volume = &v
		}
		bars = append(bars, bar)
	}

	c.logger.WithFields(map[string]interface{}{
		"symbol": yahooSym,
		"bars":   len(bars),
	}).Debug("Fetched daily bars")
	return bars, nil
}

// FetchQuote returns the most recent regular-market price for the symbol.
func (c *Client) FetchQuote(ctx context.Context, symbol, exchange string) (float64, error) {
	params := url.Values{}
	params.Set("interval", "1d")
	params.Set("range", "1d")

	yahooSym := YahooSymbol(symbol, exchange)
	payload, err := c.fetchChart(ctx, yahooSym, params)
	if err != nil {
		return 0, err
	}

	price := payload.Chart.Result[0].Meta.RegularMarketPrice
	if price <= 0 {
		return 0, fmt.Errorf("yahoo quote for %s: no regular market price", yahooSym)
	}
	return price, nil
}
