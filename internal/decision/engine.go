// Package decision turns price history into trading recommendations.
// A deliberately simple trend-following heuristic: moving-average
// positioning as a cheap, explainable signal, not a forecasting model.
package decision

import (
	"context"
	"math"

	"github.com/arthasutra/backend/internal/contracts"
	"github.com/arthasutra/backend/pkg/logger"
)

const (
	// closesWindow is how much history the rules look at: enough for a
	// 200-day average plus a margin.
	closesWindow = 220

	baseScore = 50

	// extendedFactor flags a price stretched 8% above its 50-day average.
	extendedFactor = 1.08

	// trimFraction is the slice of the position suggested for TRIM/ADD.
	trimFraction = 0.1
)

// Engine proposes KEEP/ADD/TRIM/EXIT actions per holding.
type Engine struct {
	securities contracts.SecurityRepository
	holdings   contracts.HoldingRepository
	bars       contracts.PriceBarRepository
	logger     *logger.Logger
}

// NewEngine wires the engine to its read-only collaborators.
func NewEngine(
	securities contracts.SecurityRepository,
	holdings contracts.HoldingRepository,
	bars contracts.PriceBarRepository,
	log *logger.Logger,
) *Engine {
	return &Engine{
		securities: securities,
		holdings:   holdings,
		bars:       bars,
		logger:     log,
	}
}

// ProposeActions emits one action per holding of the portfolio, in holding
// iteration order. Holdings referencing a missing security are skipped.
// Deterministic for identical price history.
func (e *Engine) ProposeActions(ctx context.Context, portfolioID int64) ([]contracts.Action, error) {
	holdings, err := e.holdings.ListByPortfolio(ctx, portfolioID)
	if err != nil {
		return nil, err
	}

	actions := make([]contracts.Action, 0, len(holdings))
	for _, h := range holdings {
		sec, err := e.securities.GetByID(ctx, h.SecurityID)
		if err != nil {
			return nil, err
		}
		if sec == nil {
			e.logger.WithFields(map[string]interface{}{
				"holding_id":  h.ID,
				"security_id": h.SecurityID,
			}).Warn("Holding references missing security, skipping")
			continue
		}

		closes, err := e.bars.ClosesAsc(ctx, sec.ID, closesWindow)
		if err != nil {
			return nil, err
		}

		actions = append(actions, evaluate(sec.Key(), h.QtyTotal, closes))
	}

	return actions, nil
}

// evaluate applies the rule set to one holding's close series.
//
// Rules v1:
//   - EXIT if below 200SMA and score low
//   - TRIM if extended vs 50SMA by 8%
//   - ADD if above 50SMA and score high
func evaluate(symbol string, qtyHeld float64, closes []float64) contracts.Action {
	if len(closes) == 0 {
		return contracts.Action{
			Action: contracts.ActionKeep,
			Symbol: symbol,
			Reason: contracts.ReasonNoPriceHistory,
			Qty:    nil,
			Score:  baseScore,
		}
	}

	last := closes[len(closes)-1]
	sma50 := sma(closes, 50)
	sma200 := sma(closes, 200)

	score := baseScore
	if sma50 != nil {
		if last > *sma50 {
			score += 10
		} else {
			score -= 10
		}
	}
	if sma200 != nil {
		if last > *sma200 {
			score += 10
		} else {
			score -= 10
		}
	}

	// The EXIT gate keeps the score condition on top of the 200SMA test;
	// the trigger is intentionally narrower than "below 200-day average".
	if sma200 != nil && last < *sma200 && score < baseScore {
		qty := qtyHeld
		return contracts.Action{
			Action: contracts.ActionExit,
			Symbol: symbol,
			Reason: contracts.ReasonBelow200SMA,
			Qty:    &qty,
			Score:  maxInt(score, 0),
		}
	}

	if sma50 != nil && last > extendedFactor**sma50 {
		qty := round4(qtyHeld * trimFraction)
		return contracts.Action{
			Action: contracts.ActionTrim,
			Symbol: symbol,
			Reason: contracts.ReasonExtendedVs50,
			Qty:    &qty,
			Score:  minInt(score+5, 100),
		}
	}

	if sma50 != nil && last >= *sma50 && score >= 60 {
		qty := round4(qtyHeld * trimFraction)
		return contracts.Action{
			Action: contracts.ActionAdd,
			Symbol: symbol,
			Reason: contracts.ReasonTrendOkAbove50,
			Qty:    &qty,
			Score:  minInt(score+5, 100),
		}
	}

	return contracts.Action{
		Action: contracts.ActionKeep,
		Symbol: symbol,
		Reason: contracts.ReasonDefault,
		Qty:    nil,
		Score:  score,
	}
}

// sma returns the mean of the trailing window closes, or nil when fewer
// points exist.
func sma(values []float64, window int) *float64 {
	if len(values) < window {
		return nil
	}
	sum := 0.0
	for _, v := range values[len(values)-window:] {
		sum += v
	}
	mean := sum / float64(window)
	return &mean
}

func round4(v float64) float64 {
	return math.Round(v*10000) / 10000
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
