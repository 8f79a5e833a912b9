package dashboard

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arthasutra/backend/internal/analytics"
	"github.com/arthasutra/backend/internal/contracts"
	"github.com/arthasutra/backend/internal/decision"
	"github.com/arthasutra/backend/internal/live"
	"github.com/arthasutra/backend/internal/store/memory"
	"github.com/arthasutra/backend/pkg/logger"
)

type closedClock struct{}

func (closedClock) IsOpen() bool { return false }

func newComposer(repos memory.Repos) *Composer {
	quotes := live.NewCache(logger.Nop())
	valuator := analytics.NewValuator(
		repos.Securities, repos.Holdings, repos.Bars, quotes,
		closedClock{}, 120*time.Second, logger.Nop(),
	)
	engine := decision.NewEngine(repos.Securities, repos.Holdings, repos.Bars, logger.Nop())
	return NewComposer(repos.Portfolios, repos.Holdings, valuator, engine, logger.Nop())
}

func TestCompose_UnknownPortfolio(t *testing.T) {
	repos := memory.New().AsRepos()

	resp, err := newComposer(repos).Compose(context.Background(), 424242)
	require.NoError(t, err)
	assert.Nil(t, resp)
}

func TestCompose_EmptyPortfolio(t *testing.T) {
	ctx := context.Background()
	repos := memory.New().AsRepos()

	pf := &contracts.Portfolio{Name: "Empty", BaseCcy: "INR", TZ: "Asia/Kolkata"}
	require.NoError(t, repos.Portfolios.Create(ctx, pf))

	resp, err := newComposer(repos).Compose(ctx, pf.ID)
	require.NoError(t, err)
	require.NotNil(t, resp)

	assert.Equal(t, pf.ID, resp.PortfolioID)
	assert.Equal(t, "Empty", resp.PortfolioName)
	assert.Zero(t, resp.EquityValue)
	assert.Zero(t, resp.PnlINR)
	assert.Empty(t, resp.Positions)
	assert.Empty(t, resp.Actions)
}

func TestCompose_TotalsMatchPositions(t *testing.T) {
	ctx := context.Background()
	repos := memory.New().AsRepos()

	pf := &contracts.Portfolio{Name: "Core", BaseCcy: "INR", TZ: "Asia/Kolkata"}
	require.NoError(t, repos.Portfolios.Create(ctx, pf))

	secA := &contracts.Security{Symbol: "BSE", Exchange: "NSE"}
	require.NoError(t, repos.Securities.Save(ctx, secA))
	secB := &contracts.Security{Symbol: "HDFCBANK", Exchange: "NSE"}
	require.NoError(t, repos.Securities.Save(ctx, secB))

	require.NoError(t, repos.Holdings.Save(ctx, &contracts.Holding{
		PortfolioID: pf.ID, SecurityID: secA.ID, QtyTotal: 30, AvgPrice: 2700,
	}))
	require.NoError(t, repos.Holdings.Save(ctx, &contracts.Holding{
		PortfolioID: pf.ID, SecurityID: secB.ID, QtyTotal: 120, AvgPrice: 1520,
	}))

	start := time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC)
	require.NoError(t, repos.Bars.Save(ctx, &contracts.PriceBar{
		SecurityID: secA.ID, Date: start, Open: 2845, High: 2850, Low: 2840, Close: 2845,
	}))
	require.NoError(t, repos.Bars.Save(ctx, &contracts.PriceBar{
		SecurityID: secB.ID, Date: start, Open: 1600, High: 1610, Low: 1590, Close: 1600,
	}))

	resp, err := newComposer(repos).Compose(ctx, pf.ID)
	require.NoError(t, err)
	require.NotNil(t, resp)

	require.Len(t, resp.Positions, 2)
	require.Len(t, resp.Actions, 2)

	var equity, pnl float64
	for _, p := range resp.Positions {
		equity += p.Qty * p.LastPrice
		pnl += p.PnlINR
	}
	assert.InDelta(t, equity, resp.EquityValue, 1e-9)
	assert.InDelta(t, pnl, resp.PnlINR, 1e-9)
	assert.InDelta(t, 30*2845.0+120*1600.0, resp.EquityValue, 1e-9)

	// Thin history: both holdings fall through to the default KEEP.
	for _, a := range resp.Actions {
		assert.Equal(t, contracts.ActionKeep, a.Action)
	}
}

func TestPositions_SkipsBrokenHolding(t *testing.T) {
	ctx := context.Background()
	repos := memory.New().AsRepos()

	pf := &contracts.Portfolio{Name: "PF", BaseCcy: "INR", TZ: "Asia/Kolkata"}
	require.NoError(t, repos.Portfolios.Create(ctx, pf))

	sec := &contracts.Security{Symbol: "INFY", Exchange: "NSE"}
	require.NoError(t, repos.Securities.Save(ctx, sec))
	require.NoError(t, repos.Holdings.Save(ctx, &contracts.Holding{
		PortfolioID: pf.ID, SecurityID: sec.ID, QtyTotal: 10, AvgPrice: 1500,
	}))
	require.NoError(t, repos.Holdings.Save(ctx, &contracts.Holding{
		PortfolioID: pf.ID, SecurityID: 999999, QtyTotal: 1, AvgPrice: 1,
	}))

	positions, err := newComposer(repos).Positions(ctx, pf.ID)
	require.NoError(t, err)
	require.Len(t, positions, 1)
	assert.Equal(t, "INFY", positions[0].Symbol)
}
