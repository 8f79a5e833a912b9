package feed

import (
	"context"
	"time"

	"github.com/arthasutra/backend/internal/contracts"
	"github.com/arthasutra/backend/internal/live"
	"github.com/arthasutra/backend/internal/marketdata/scrape"
	"github.com/arthasutra/backend/internal/marketdata/yahoo"
	"github.com/arthasutra/backend/pkg/config"
	"github.com/arthasutra/backend/pkg/logger"
)

// Manager owns the live feed sources and their lifecycle. The Kite stream
// only runs when credentials are configured; the Yahoo poller always runs.
type Manager struct {
	kite      *KiteWS
	poller    *YahooPoller
	cache     *live.Cache
	freshness time.Duration
	logger    *logger.Logger
}

// Stats is the payload of the feed diagnostics endpoint.
type Stats struct {
	KiteEnabled   bool            `json:"kite_enabled"`
	PollerEnabled bool            `json:"poller_enabled"`
	Quotes        live.CacheStats `json:"quotes"`
}

func NewManager(
	cfg *config.Config,
	cache *live.Cache,
	securities contracts.SecurityRepository,
	yahooClient *yahoo.Client,
	scraper *scrape.Client,
	clock SessionClock,
	log *logger.Logger,
) *Manager {
	m := &Manager{
		cache:     cache,
		freshness: cfg.Market.Freshness(),
		logger:    log,
	}

	if cfg.Kite.Enabled() {
		m.kite = NewKiteWS(cfg.Kite, cache, securities, log)
	} else {
		log.Info("Kite credentials absent, ticker feed disabled")
	}

	m.poller = NewYahooPoller(
		yahooClient, scraper, securities, cache, clock,
		cfg.Yahoo.PollInterval, cfg.Yahoo.RateLimit, log,
	)

	return m
}

// Start brings up the configured sources. A Kite connection failure is
// downgraded to a warning: the poller still covers the snapshot tier.
func (m *Manager) Start(ctx context.Context) {
	if m.kite != nil {
		if err := m.kite.Start(ctx); err != nil {
			m.logger.WithError(err).Warn("Kite ticker failed to start, continuing with poller only")
			m.kite = nil
		}
	}
	m.poller.Start(ctx)
}

// Stop shuts the sources down in reverse start order.
func (m *Manager) Stop() {
	m.poller.Stop()
	if m.kite != nil {
		m.kite.Stop()
	}
	m.logger.Info("Feed manager stopped")
}

// RefreshSubscriptions re-reads the tracked security set. Called after a
// holdings import.
func (m *Manager) RefreshSubscriptions(ctx context.Context) {
	if m.kite == nil {
		return
	}
	if err := m.kite.RefreshSubscriptions(ctx); err != nil {
		m.logger.WithError(err).Warn("Failed to refresh ticker subscriptions")
	}
}

// Stats reports source state and quote cache counters.
func (m *Manager) Stats() Stats {
	return Stats{
		KiteEnabled:   m.kite != nil,
		PollerEnabled: m.poller != nil,
		Quotes:        m.cache.Stats(m.freshness),
	}
}
