package decision

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arthasutra/backend/internal/contracts"
	"github.com/arthasutra/backend/internal/store/memory"
	"github.com/arthasutra/backend/pkg/logger"
)

func seedPortfolio(t *testing.T, store *memory.Store, qty float64, closes []float64) (memory.Repos, int64) {
	t.Helper()
	ctx := context.Background()
	repos := store.AsRepos()

	pf := &contracts.Portfolio{Name: "PF", BaseCcy: "INR", TZ: "Asia/Kolkata"}
	require.NoError(t, repos.Portfolios.Create(ctx, pf))

	sec := &contracts.Security{Symbol: "BSE", Exchange: "NSE"}
	require.NoError(t, repos.Securities.Save(ctx, sec))

	require.NoError(t, repos.Holdings.Save(ctx, &contracts.Holding{
		PortfolioID: pf.ID, SecurityID: sec.ID, QtyTotal: qty, AvgPrice: 2700,
	}))

	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, c := range closes {
		require.NoError(t, repos.Bars.Save(ctx, &contracts.PriceBar{
			SecurityID: sec.ID,
			Date:       start.AddDate(0, 0, i),
			Open:       c, High: c + 10, Low: c - 10, Close: c,
		}))
	}

	return repos, pf.ID
}

func risingCloses(n int, start, step float64) []float64 {
	closes := make([]float64, n)
	for i := range closes {
		closes[i] = start + float64(i)*step
	}
	return closes
}

func TestProposeActions_NoPriceHistory(t *testing.T) {
	repos, pfID := seedPortfolio(t, memory.New(), 30, nil)
	engine := NewEngine(repos.Securities, repos.Holdings, repos.Bars, logger.Nop())

	actions, err := engine.ProposeActions(context.Background(), pfID)
	require.NoError(t, err)
	require.Len(t, actions, 1)

	a := actions[0]
	assert.Equal(t, contracts.ActionKeep, a.Action)
	assert.Equal(t, "NSE:BSE", a.Symbol)
	assert.Equal(t, contracts.ReasonNoPriceHistory, a.Reason)
	assert.Nil(t, a.Qty)
	assert.Equal(t, 50, a.Score)
}

func TestProposeActions_RisingSeriesAdds(t *testing.T) {
	// 210 closes rising linearly from 2600 by 1.5/day: above both
	// averages but not stretched 8% past the 50-day one, so the uptrend
	// reads as ADD.
	repos, pfID := seedPortfolio(t, memory.New(), 30, risingCloses(210, 2600, 1.5))
	engine := NewEngine(repos.Securities, repos.Holdings, repos.Bars, logger.Nop())

	actions, err := engine.ProposeActions(context.Background(), pfID)
	require.NoError(t, err)
	require.Len(t, actions, 1)

	a := actions[0]
	assert.Equal(t, contracts.ActionAdd, a.Action)
	assert.Equal(t, contracts.ReasonTrendOkAbove50, a.Reason)
	require.NotNil(t, a.Qty)
	assert.Equal(t, 3.0, *a.Qty) // 10% of 30
	assert.Equal(t, 75, a.Score) // 50 +10 +10, clamped +5
}

func TestProposeActions_SteepSeriesTrims(t *testing.T) {
	// A 25/day climb leaves the last close more than 8% above its 50-day
	// average: TRIM a tenth of the position.
	repos, pfID := seedPortfolio(t, memory.New(), 30, risingCloses(210, 2600, 25))
	engine := NewEngine(repos.Securities, repos.Holdings, repos.Bars, logger.Nop())

	actions, err := engine.ProposeActions(context.Background(), pfID)
	require.NoError(t, err)
	require.Len(t, actions, 1)

	a := actions[0]
	assert.Equal(t, contracts.ActionTrim, a.Action)
	assert.Equal(t, contracts.ReasonExtendedVs50, a.Reason)
	require.NotNil(t, a.Qty)
	assert.Equal(t, 3.0, *a.Qty)
	assert.Equal(t, 75, a.Score)
}

func TestProposeActions_Deterministic(t *testing.T) {
	repos, pfID := seedPortfolio(t, memory.New(), 30, risingCloses(210, 2600, 1.5))
	engine := NewEngine(repos.Securities, repos.Holdings, repos.Bars, logger.Nop())

	first, err := engine.ProposeActions(context.Background(), pfID)
	require.NoError(t, err)
	second, err := engine.ProposeActions(context.Background(), pfID)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestProposeActions_MissingSecuritySkipped(t *testing.T) {
	store := memory.New()
	repos, pfID := seedPortfolio(t, store, 30, risingCloses(60, 100, 1))

	// Add a holding pointing at a nonexistent security.
	require.NoError(t, repos.Holdings.Save(context.Background(), &contracts.Holding{
		PortfolioID: pfID, SecurityID: 999999, QtyTotal: 5, AvgPrice: 50,
	}))

	engine := NewEngine(repos.Securities, repos.Holdings, repos.Bars, logger.Nop())
	actions, err := engine.ProposeActions(context.Background(), pfID)
	require.NoError(t, err)
	assert.Len(t, actions, 1)
}

func TestEvaluate_ExitRequiresLowScore(t *testing.T) {
	// 200 flat closes then a small dip: last < sma200 and both SMA checks
	// vote down, so score 30 < 50 triggers EXIT with full quantity.
	closes := risingCloses(200, 100, 0)
	closes = append(closes, 90)

	a := evaluate("NSE:BSE", 30, closes)
	assert.Equal(t, contracts.ActionExit, a.Action)
	assert.Equal(t, contracts.ReasonBelow200SMA, a.Reason)
	require.NotNil(t, a.Qty)
	assert.Equal(t, 30.0, *a.Qty)
	assert.Equal(t, 30, a.Score)
}

func TestEvaluate_BelowSMA200AloneIsNotExit(t *testing.T) {
	// Craft a series where last < sma200 but last > sma50, leaving the
	// score at exactly 50: the narrower EXIT gate must not fire.
	closes := make([]float64, 0, 210)
	for i := 0; i < 150; i++ {
		closes = append(closes, 200) // old highs lift the 200-day average
	}
	for i := 0; i < 55; i++ {
		closes = append(closes, 100) // long flat base drags the 50-day down
	}
	closes = append(closes, 110) // above sma50, below sma200

	a := evaluate("NSE:BSE", 30, closes)
	assert.NotEqual(t, contracts.ActionExit, a.Action)
}

func TestEvaluate_AddOnHealthyTrend(t *testing.T) {
	// Gently rising series: above both averages (score 70) but not
	// stretched 8% past the 50-day average.
	closes := risingCloses(210, 1000, 0.5)

	a := evaluate("NSE:BSE", 40, closes)
	assert.Equal(t, contracts.ActionAdd, a.Action)
	assert.Equal(t, contracts.ReasonTrendOkAbove50, a.Reason)
	require.NotNil(t, a.Qty)
	assert.Equal(t, 4.0, *a.Qty)
	assert.Equal(t, 75, a.Score)
}

func TestEvaluate_ShortHistoryKeeps(t *testing.T) {
	// Fewer than 50 closes: no SMA is defined, score stays 50, KEEP.
	a := evaluate("NSE:BSE", 30, risingCloses(20, 100, 1))
	assert.Equal(t, contracts.ActionKeep, a.Action)
	assert.Equal(t, contracts.ReasonDefault, a.Reason)
	assert.Nil(t, a.Qty)
	assert.Equal(t, 50, a.Score)
}

func TestEvaluate_QtyRounding(t *testing.T) {
	closes := risingCloses(210, 2600, 1.5)

	a := evaluate("NSE:BSE", 33.3333, closes)
	require.NotNil(t, a.Qty)
	assert.Equal(t, 3.3333, *a.Qty)
}

func TestSMA(t *testing.T) {
	assert.Nil(t, sma([]float64{1, 2, 3}, 5))

	mean := sma([]float64{1, 2, 3, 4, 5, 6}, 3)
	require.NotNil(t, mean)
	assert.Equal(t, 5.0, *mean)
}
