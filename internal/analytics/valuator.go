// Package analytics derives mark-to-market valuation from holdings, EOD
// bars and live quotes. Read-only: nothing here mutates storage.
package analytics

import (
	"context"
	"time"

	"github.com/arthasutra/backend/internal/contracts"
	"github.com/arthasutra/backend/pkg/logger"
)

// SessionClock reports whether the trading session is currently open.
// market.Clock satisfies it; tests substitute a fixed answer.
type SessionClock interface {
	IsOpen() bool
}

// PositionStats is the valuation snapshot for one holding.
type PositionStats struct {
	Symbol      string                    `json:"symbol"`
	Exchange    string                    `json:"exchange"`
	Qty         float64                   `json:"qty"`
	AvgPrice    float64                   `json:"avg_price"`
	LastPrice   float64                   `json:"last_price"`
	PrevClose   *float64                  `json:"prev_close"`
	PnlINR      float64                   `json:"pnl_inr"`
	PctToday    *float64                  `json:"pct_today"`
	PriceSource contracts.PriceSourceTier `json:"price_source"`
}

// Valuator computes per-position and per-portfolio valuation.
type Valuator struct {
	securities contracts.SecurityRepository
	holdings   contracts.HoldingRepository
	bars       contracts.PriceBarRepository
	quotes     contracts.QuoteStore
	clock      SessionClock
	freshness  time.Duration
	logger     *logger.Logger
}

// NewValuator wires the valuator to its read-only collaborators.
func NewValuator(
	securities contracts.SecurityRepository,
	holdings contracts.HoldingRepository,
	bars contracts.PriceBarRepository,
	quotes contracts.QuoteStore,
	clock SessionClock,
	freshness time.Duration,
	log *logger.Logger,
) *Valuator {
	if freshness <= 0 {
		freshness = 120 * time.Second
	}
	return &Valuator{
		securities: securities,
		holdings:   holdings,
		bars:       bars,
		quotes:     quotes,
		clock:      clock,
		freshness:  freshness,
		logger:     log,
	}
}

// ComputePositionStats values a single holding. Returns nil when the
// holding references a missing security; that inconsistency is logged and
// the caller skips the position.
//
// Price resolution runs three tiers, first match wins:
//  1. live: session open and a fresh LTP in the quote cache.
//  2. snapshot: any cached quote with a positive price, fresh or not.
//  3. eod: the latest bar close.
//
// When all three miss, valuation degrades to the average cost price and
// P&L reads zero.
func (v *Valuator) ComputePositionStats(ctx context.Context, holding *contracts.Holding) (*PositionStats, error) {
	sec, err := v.securities.GetByID(ctx, holding.SecurityID)
	if err != nil {
		return nil, err
	}
	if sec == nil {
		v.logger.WithFields(map[string]interface{}{
			"holding_id":  holding.ID,
			"security_id": holding.SecurityID,
		}).Warn("Holding references missing security, skipping")
		return nil, nil
	}

	recent, err := v.bars.RecentBars(ctx, sec.ID, 2)
	if err != nil {
		return nil, err
	}

	var latestClose, prevClose *float64
	if len(recent) > 0 {
		c := recent[0].Close
		latestClose = &c
	}
	if len(recent) > 1 {
		c := recent[1].Close
		prevClose = &c
	}

	lastPrice, source, resolved := v.resolveLastPrice(sec.ID, latestClose)
	if !resolved {
		lastPrice = holding.AvgPrice
	}

	pnl := holding.QtyTotal * (lastPrice - holding.AvgPrice)

	// Day change base: previous close when available, else the latest
	// close stands in for itself (a single-bar security reads 0%).
	var pct *float64
	base := prevClose
	if base == nil {
		base = latestClose
	}
	if resolved && base != nil && *base != 0 {
		p := (lastPrice - *base) / *base * 100.0
		pct = &p
	}

	return &PositionStats{
		Symbol:      sec.Symbol,
		Exchange:    sec.Exchange,
		Qty:         holding.QtyTotal,
		AvgPrice:    holding.AvgPrice,
		LastPrice:   lastPrice,
		PrevClose:   prevClose,
		PnlINR:      pnl,
		PctToday:    pct,
		PriceSource: source,
	}, nil
}

// resolveLastPrice walks the live > snapshot > eod tiers. The boolean is
// false only when no tier produced a price.
func (v *Valuator) resolveLastPrice(securityID int64, latestClose *float64) (float64, contracts.PriceSourceTier, bool) {
	if v.clock.IsOpen() {
		if fresh := v.quotes.FreshPrice(securityID, v.freshness); fresh != nil {
			return *fresh, contracts.TierLive, true
		}
	}

	if q := v.quotes.Get(securityID); q != nil && q.Price > 0 {
		return q.Price, contracts.TierSnapshot, true
	}

	if latestClose != nil {
		return *latestClose, contracts.TierEOD, true
	}

	return 0, contracts.TierEOD, false
}

// PortfolioEquityAndPnL sums position valuations across a portfolio.
// Holdings with missing securities are skipped.
func (v *Valuator) PortfolioEquityAndPnL(ctx context.Context, portfolioID int64) (totalEquity, totalPnl float64, err error) {
	holdings, err := v.holdings.ListByPortfolio(ctx, portfolioID)
	if err != nil {
		return 0, 0, err
	}

	for _, h := range holdings {
		stats, err := v.ComputePositionStats(ctx, h)
		if err != nil {
			return 0, 0, err
		}
		if stats == nil {
			continue
		}
		totalEquity += stats.Qty * stats.LastPrice
		totalPnl += stats.PnlINR
	}

	return totalEquity, totalPnl, nil
}
