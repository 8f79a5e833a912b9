package feed

import (
	"context"
	"time"

	"golang.org/x/time/rate"

	"github.com/arthasutra/backend/internal/contracts"
	"github.com/arthasutra/backend/internal/marketdata/scrape"
	"github.com/arthasutra/backend/internal/marketdata/yahoo"
	"github.com/arthasutra/backend/pkg/logger"
)

// SessionClock reports whether the trading session is open.
type SessionClock interface {
	IsOpen() bool
}

// YahooPoller refreshes quotes for every held security on a fixed interval
// while the session is open. When Yahoo fails for a symbol the quote-page
// scraper fills in, tagged with its own source.
type YahooPoller struct {
	yahoo      *yahoo.Client
	scraper    *scrape.Client
	securities contracts.SecurityRepository
	quotes     contracts.QuoteStore
	clock      SessionClock
	limiter    *rate.Limiter
	interval   time.Duration
	logger     *logger.Logger

	stopCh chan struct{}
	doneCh chan struct{}
}

// NewYahooPoller builds a poller. scraper may be nil to disable the
// fallback. rateLimit is requests per second against Yahoo.
func NewYahooPoller(
	yahooClient *yahoo.Client,
	scraper *scrape.Client,
	securities contracts.SecurityRepository,
	quotes contracts.QuoteStore,
	clock SessionClock,
	interval time.Duration,
	rateLimit int,
	log *logger.Logger,
) *YahooPoller {
	if interval <= 0 {
		interval = 60 * time.Second
	}
	if rateLimit <= 0 {
		rateLimit = 2
	}
	return &YahooPoller{
		yahoo:      yahooClient,
		scraper:    scraper,
		securities: securities,
		quotes:     quotes,
		clock:      clock,
		limiter:    rate.NewLimiter(rate.Limit(rateLimit), rateLimit),
		interval:   interval,
		logger:     log,
		stopCh:     make(chan struct{}),
		doneCh:     make(chan struct{}),
	}
}

// Start launches the polling loop.
func (p *YahooPoller) Start(ctx context.Context) {
	p.logger.WithField("interval", p.interval).Info("Starting Yahoo quote poller")
	go p.run(ctx)
}

// Stop terminates the loop and waits for it to exit.
func (p *YahooPoller) Stop() {
	close(p.stopCh)
	<-p.doneCh
}

func (p *YahooPoller) run(ctx context.Context) {
	defer close(p.doneCh)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-p.stopCh:
			return
		case <-ticker.C:
			if !p.clock.IsOpen() {
				continue
			}
			p.PollOnce(ctx)
		}
	}
}

// PollOnce fetches a quote for every held security. Failures are logged
// per symbol and do not stop the sweep.
func (p *YahooPoller) PollOnce(ctx context.Context) {
	secs, err := p.securities.ListHeld(ctx)
	if err != nil {
		p.logger.WithError(err).Error("Failed to list held securities")
		return
	}

	var updated int
	for _, sec := range secs {
		if err := p.limiter.Wait(ctx); err != nil {
			return
		}

		price, err := p.yahoo.FetchQuote(ctx, sec.Symbol, sec.Exchange)
		if err == nil {
			p.quotes.Upsert(sec.ID, price, SourceYahoo)
			updated++
			continue
		}
		p.logger.WithError(err).WithField("symbol", sec.Key()).Warn("Yahoo quote failed")

		if p.scraper == nil {
			continue
		}
		price, scrapeErr := p.scraper.FetchLTP(ctx, sec.Symbol, sec.Exchange)
		if scrapeErr != nil {
			p.logger.WithError(scrapeErr).WithField("symbol", sec.Key()).Warn("Scrape fallback failed")
			continue
		}
		p.quotes.Upsert(sec.ID, price, SourceScrape)
		updated++
	}

	p.logger.WithFields(map[string]interface{}{
		"tracked": len(secs),
		"updated": updated,
	}).Debug("Quote poll sweep finished")
}
