// Package dashboard assembles the portfolio dashboard payload from the
// valuation and decision layers.
package dashboard

import (
	"context"

	"github.com/arthasutra/backend/internal/analytics"
	"github.com/arthasutra/backend/internal/contracts"
	"github.com/arthasutra/backend/internal/decision"
	"github.com/arthasutra/backend/pkg/logger"
)

// Response is the full dashboard document for one portfolio.
type Response struct {
	PortfolioID   int64                     `json:"portfolio_id"`
	PortfolioName string                    `json:"portfolio_name"`
	EquityValue   float64                   `json:"equity_value"`
	PnlINR        float64                   `json:"pnl_inr"`
	Positions     []analytics.PositionStats `json:"positions"`
	Actions       []contracts.Action        `json:"actions"`
}

// Composer builds dashboard responses.
type Composer struct {
	portfolios contracts.PortfolioRepository
	holdings   contracts.HoldingRepository
	valuator   *analytics.Valuator
	engine     *decision.Engine
	logger     *logger.Logger
}

func NewComposer(
	portfolios contracts.PortfolioRepository,
	holdings contracts.HoldingRepository,
	valuator *analytics.Valuator,
	engine *decision.Engine,
	log *logger.Logger,
) *Composer {
	return &Composer{
		portfolios: portfolios,
		holdings:   holdings,
		valuator:   valuator,
		engine:     engine,
		logger:     log,
	}
}

// Positions values every holding of the portfolio. Holdings referencing a
// missing security are dropped from the result.
func (c *Composer) Positions(ctx context.Context, portfolioID int64) ([]analytics.PositionStats, error) {
	holdings, err := c.holdings.ListByPortfolio(ctx, portfolioID)
	if err != nil {
		return nil, err
	}

	positions := make([]analytics.PositionStats, 0, len(holdings))
	for _, h := range holdings {
		stats, err := c.valuator.ComputePositionStats(ctx, h)
		if err != nil {
			return nil, err
		}
		if stats == nil {
			continue
		}
		positions = append(positions, *stats)
	}
	return positions, nil
}

// Compose returns the dashboard for a portfolio, or nil when the portfolio
// does not exist.
func (c *Composer) Compose(ctx context.Context, portfolioID int64) (*Response, error) {
	pf, err := c.portfolios.GetByID(ctx, portfolioID)
	if err != nil {
		return nil, err
	}
	if pf == nil {
		return nil, nil
	}

	positions, err := c.Positions(ctx, portfolioID)
	if err != nil {
		return nil, err
	}

	var equity, pnl float64
	for _, p := range positions {
		equity += p.Qty * p.LastPrice
		pnl += p.PnlINR
	}

	actions, err := c.engine.ProposeActions(ctx, portfolioID)
	if err != nil {
		return nil, err
	}

	return &Response{
		PortfolioID:   pf.ID,
		PortfolioName: pf.Name,
		EquityValue:   equity,
		PnlINR:        pnl,
		Positions:     positions,
		Actions:       actions,
	}, nil
}
