// Package scrape is the last-resort quote source: it pulls the last traded
// price off the Google Finance quote page. Used only when the broker feed
// and the Yahoo poller are both unavailable.
package scrape

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/arthasutra/backend/pkg/httputil"
	"github.com/arthasutra/backend/pkg/logger"
)

const DefaultBaseURL = "https://www.google.com/finance"

// priceSelector matches the headline price element on the quote page.
const priceSelector = "div.YMlKec.fxKbKc"

// Client scrapes last traded prices from quote pages.
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

// FetchLTP scrapes the current price for the security. The page quotes NSE
// listings in rupees with thousands separators, e.g. "₹2,845.50".
func (c *Client) FetchLTP(ctx context.Context, symbol, exchange string) (float64, error) {
	url := fmt.Sprintf("%s/quote/%s:%s", c.baseURL, symbol, exchange)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, fmt.Errorf("create request failed: %w", err)
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36")

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, fmt.Errorf("quote page request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("quote page for %s:%s: unexpected status %d", symbol, exchange, resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return 0, fmt.Errorf("parse quote page failed: %w", err)
	}

	text := strings.TrimSpace(doc.Find(priceSelector).First().Text())
	if text == "" {
		return 0, fmt.Errorf("quote page for %s:%s: price element not found", symbol, exchange)
	}

	price, err := parsePrice(text)
	if err != nil {
		return 0, fmt.Errorf("quote page for %s:%s: %w", symbol, exchange, err)
	}

	c.logger.WithFields(map[string]interface{}{
		"symbol":   symbol,
		"exchange": exchange,
		"price":    price,
	}).Debug("Scraped quote")
	return price, nil
}

func parsePrice(s string) (float64, error) {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "₹")
	s = strings.TrimPrefix(s, "$")
	s = strings.ReplaceAll(s, ",", "")
	if s == "" {
		return 0, fmt.Errorf("empty price text")
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("unparseable price %q", s)
	}
	if v <= 0 {
		return 0, fmt.Errorf("non-positive price %q", s)
	}
	return v, nil
}
