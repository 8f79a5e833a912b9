package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arthasutra/backend/internal/analytics"
	"github.com/arthasutra/backend/internal/api"
	"github.com/arthasutra/backend/internal/api/handlers"
	"github.com/arthasutra/backend/internal/contracts"
	"github.com/arthasutra/backend/internal/dashboard"
	"github.com/arthasutra/backend/internal/decision"
	"github.com/arthasutra/backend/internal/importer"
	"github.com/arthasutra/backend/internal/live"
	"github.com/arthasutra/backend/internal/marketdata/yahoo"
	"github.com/arthasutra/backend/internal/store/memory"
	"github.com/arthasutra/backend/pkg/httputil"
	"github.com/arthasutra/backend/pkg/logger"
)

type closedClock struct{}

func (closedClock) IsOpen() bool { return false }

type testEnv struct {
	router http.Handler
	repos  memory.Repos
	store  *memory.Store
}

func newEnv(t *testing.T) *testEnv {
	t.Helper()
	store := memory.New()
	repos := store.AsRepos()
	log := logger.Nop()

	quotes := live.NewCache(log)
	valuator := analytics.NewValuator(
		repos.Securities, repos.Holdings, repos.Bars, quotes,
		closedClock{}, 120*time.Second, log,
	)
	engine := decision.NewEngine(repos.Securities, repos.Holdings, repos.Bars, log)
	composer := dashboard.NewComposer(repos.Portfolios, repos.Holdings, valuator, engine, log)
	importerSvc := importer.NewService(repos.Securities, repos.Holdings, repos.Lots, repos.Bars, log)

	yahooSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"chart":{"result":[{
			"meta":{"regularMarketPrice":2845.5},
			"timestamp":[1770000000],
			"indicators":{"quote":[{"open":[2800.0],"high":[2860.0],"low":[2790.0],"close":[2845.0],"volume":[125000.0]}]}
		}],"error":null}}`))
	}))
	t.Cleanup(yahooSrv.Close)
	yahooClient := yahoo.NewClient(httputil.New(log).DisableRetry(), yahooSrv.URL, log)

	portfolioHandler := handlers.NewPortfolioHandler(repos.Portfolios, composer, importerSvc, nil, log)
	dataHandler := handlers.NewDataHandler(importerSvc, yahooClient, repos.Securities, repos.Bars, log)
	feedsHandler := handlers.NewFeedsHandler(nil, log)

	return &testEnv{
		router: api.NewRouter(portfolioHandler, dataHandler, feedsHandler, log),
		repos:  repos,
		store:  store,
	}
}

func (e *testEnv) do(t *testing.T, method, path, contentType string, body []byte) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func (e *testEnv) createPortfolio(t *testing.T, name string) int64 {
	t.Helper()
	rec := e.do(t, http.MethodPost, "/portfolios", "application/json",
		[]byte(fmt.Sprintf(`{"name":%q}`, name)))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var pf contracts.Portfolio
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &pf))
	return pf.ID
}

func TestHealthz(t *testing.T) {
	rec := newEnv(t).do(t, http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"ok"`)
}

func TestCreatePortfolio_Defaults(t *testing.T) {
	env := newEnv(t)
	rec := env.do(t, http.MethodPost, "/portfolios", "application/json", []byte(`{"name":"Core"}`))
	require.Equal(t, http.StatusCreated, rec.Code)

	var pf contracts.Portfolio
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &pf))
	assert.Equal(t, "Core", pf.Name)
	assert.Equal(t, "INR", pf.BaseCcy)
	assert.Equal(t, "Asia/Kolkata", pf.TZ)
	assert.NotZero(t, pf.ID)
}

func TestCreatePortfolio_MissingName(t *testing.T) {
	rec := newEnv(t).do(t, http.MethodPost, "/portfolios", "application/json", []byte(`{}`))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestListPortfolios_EmptyIsArray(t *testing.T) {
	rec := newEnv(t).do(t, http.MethodGet, "/portfolios", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "[]", strings.TrimSpace(rec.Body.String()))
}

func TestDashboard_UnknownPortfolio(t *testing.T) {
	rec := newEnv(t).do(t, http.MethodGet, "/portfolios/4242/dashboard", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestImportCSV_UnknownPortfolio(t *testing.T) {
	rec := newEnv(t).do(t, http.MethodPost, "/portfolios/4242/import-csv", "text/csv",
		[]byte("symbol,qty,avg_price\nINFY,10,1500\n"))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestImportCSVThenDashboard(t *testing.T) {
	env := newEnv(t)
	pfID := env.createPortfolio(t, "Core")

	csv := "symbol,exchange,qty,avg_price\nBSE,NSE,30,2700\n"
	rec := env.do(t, http.MethodPost, fmt.Sprintf("/portfolios/%d/import-csv", pfID), "text/csv", []byte(csv))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), `"rows":1`)

	// Seed one EOD bar so the position values off the close.
	ctx := context.Background()
	sec, err := env.repos.Securities.GetBySymbolExchange(ctx, "BSE", "NSE")
	require.NoError(t, err)
	require.NotNil(t, sec)
	require.NoError(t, env.repos.Bars.Save(ctx, &contracts.PriceBar{
		SecurityID: sec.ID,
		Date:       time.Date(2026, 2, 2, 0, 0, 0, 0, time.UTC),
		Open:       2800, High: 2860, Low: 2790, Close: 2845,
	}))

	rec = env.do(t, http.MethodGet, fmt.Sprintf("/portfolios/%d/dashboard", pfID), "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp dashboard.Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, pfID, resp.PortfolioID)
	assert.Equal(t, "Core", resp.PortfolioName)
	require.Len(t, resp.Positions, 1)
	assert.Equal(t, 2845.0, resp.Positions[0].LastPrice)
	assert.InDelta(t, 30*2845.0, resp.EquityValue, 1e-9)
	require.Len(t, resp.Actions, 1)
	assert.Equal(t, contracts.ActionKeep, resp.Actions[0].Action)
}

func TestPositionsEndpoint(t *testing.T) {
	env := newEnv(t)
	pfID := env.createPortfolio(t, "Core")

	csv := "symbol,qty,avg_price\nNSE:INFY,10,1500\n"
	rec := env.do(t, http.MethodPost, fmt.Sprintf("/portfolios/%d/import-csv", pfID), "text/csv", []byte(csv))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(t, http.MethodGet, fmt.Sprintf("/portfolios/%d/positions", pfID), "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var positions []analytics.PositionStats
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &positions))
	require.Len(t, positions, 1)
	assert.Equal(t, "INFY", positions[0].Symbol)
	// No bars, no quotes: cost fallback.
	assert.Equal(t, 1500.0, positions[0].LastPrice)
	assert.Nil(t, positions[0].PctToday)
}

func TestDeletePortfolio(t *testing.T) {
	env := newEnv(t)
	pfID := env.createPortfolio(t, "Doomed")

	rec := env.do(t, http.MethodDelete, fmt.Sprintf("/portfolios/%d", pfID), "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(t, http.MethodGet, fmt.Sprintf("/portfolios/%d/dashboard", pfID), "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestImportPricesCSV_Idempotent(t *testing.T) {
	env := newEnv(t)

	csv := "symbol,date,open,high,low,close\nBSE,2026-02-02,2800,2860,2790,2845\n"
	rec := env.do(t, http.MethodPost, "/data/prices-eod/import-csv", "text/csv", []byte(csv))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = env.do(t, http.MethodPost, "/data/prices-eod/import-csv", "text/csv", []byte(csv))
	require.Equal(t, http.StatusOK, rec.Code)

	ctx := context.Background()
	sec, err := env.repos.Securities.GetBySymbolExchange(ctx, "BSE", "NSE")
	require.NoError(t, err)
	require.NotNil(t, sec)
	assert.Equal(t, 1, env.store.BarCount(sec.ID))
}

func TestFetchPrices(t *testing.T) {
	env := newEnv(t)

	rec := env.do(t, http.MethodPost, "/data/prices-eod/fetch?symbols=NSE:BSE&start=2026-02-01&end=2026-02-05", "", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), `"rows":1`)

	ctx := context.Background()
	sec, err := env.repos.Securities.GetBySymbolExchange(ctx, "BSE", "NSE")
	require.NoError(t, err)
	require.NotNil(t, sec)
	assert.Equal(t, 1, env.store.BarCount(sec.ID))
}

func TestFetchPrices_Validation(t *testing.T) {
	env := newEnv(t)

	rec := env.do(t, http.MethodPost, "/data/prices-eod/fetch?start=2026-02-01&end=2026-02-05", "", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, http.MethodPost, "/data/prices-eod/fetch?symbols=INFY&start=bogus&end=2026-02-05", "", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, http.MethodPost, "/data/prices-eod/fetch?symbols=INFY&start=2026-02-05&end=2026-02-01", "", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestFeedStats_NotRunning(t *testing.T) {
	rec := newEnv(t).do(t, http.MethodGet, "/feeds/stats", "", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
