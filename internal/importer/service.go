package importer

import (
	"context"

	"github.com/arthasutra/backend/internal/contracts"
	"github.com/arthasutra/backend/pkg/logger"
)

// Service applies parsed CSV rows to the repositories.
type Service struct {
	securities contracts.SecurityRepository
	holdings   contracts.HoldingRepository
	lots       contracts.LotRepository
	bars       contracts.PriceBarRepository
	logger     *logger.Logger
}

func NewService(
	securities contracts.SecurityRepository,
	holdings contracts.HoldingRepository,
	lots contracts.LotRepository,
	bars contracts.PriceBarRepository,
	log *logger.Logger,
) *Service {
	return &Service{
		securities: securities,
		holdings:   holdings,
		lots:       lots,
		bars:       bars,
		logger:     log,
	}
}

// upsertSecurity finds the security by (symbol, exchange) or creates it with
// the symbol doubling as display name.
func (s *Service) upsertSecurity(ctx context.Context, symbol, exchange, sector string) (*contracts.Security, error) {
	sec, err := s.securities.GetBySymbolExchange(ctx, symbol, exchange)
	if err != nil {
		return nil, err
	}
	if sec != nil {
		return sec, nil
	}

	sec = &contracts.Security{Symbol: symbol, Exchange: exchange, Name: symbol, Sector: sector}
	if err := s.securities.Save(ctx, sec); err != nil {
		return nil, err
	}
	return sec, nil
}

// ApplyHoldings replaces the portfolio's holdings with the CSV snapshot.
// Each row overwrites quantity and average price on its holding and appends
// an audit lot. Returns the number of rows applied.
func (s *Service) ApplyHoldings(ctx context.Context, portfolioID int64, rows []HoldingRow) (int, error) {
	for _, r := range rows {
		sec, err := s.upsertSecurity(ctx, r.Symbol, r.Exchange, r.Sector)
		if err != nil {
			return 0, err
		}

		holding, err := s.holdings.GetByPortfolioAndSecurity(ctx, portfolioID, sec.ID)
		if err != nil {
			return 0, err
		}
		if holding == nil {
			holding = &contracts.Holding{PortfolioID: portfolioID, SecurityID: sec.ID}
		}
		holding.QtyTotal = r.Qty
		holding.AvgPrice = r.AvgPrice
		if err := s.holdings.Save(ctx, holding); err != nil {
			return 0, err
		}

		lot := &contracts.Lot{
			HoldingID: holding.ID,
			Qty:       r.Qty,
			Price:     r.AvgPrice,
			Account:   "main",
			TaxStatus: "unknown",
		}
		if err := s.lots.Save(ctx, lot); err != nil {
			return 0, err
		}
	}

	s.logger.WithFields(map[string]interface{}{
		"portfolio_id": portfolioID,
		"rows":         len(rows),
	}).Info("Holdings snapshot imported")
	return len(rows), nil
}

// ApplyEOD stores parsed OHLCV rows, creating unknown securities on the
// way. Saves are idempotent per (security, date), so re-importing the same
// file changes nothing. Returns the number of rows processed.
func (s *Service) ApplyEOD(ctx context.Context, rows []EODRow) (int, error) {
	for _, r := range rows {
		sec, err := s.upsertSecurity(ctx, r.Symbol, r.Exchange, "")
		if err != nil {
			return 0, err
		}

		bar := &contracts.PriceBar{
			SecurityID: sec.ID,
			Date:       r.Date,
			Open:       r.Open,
			High:       r.High,
			Low:        r.Low,
			Close:      r.Close,
			Volume:     r.Volume,
		}
		if err := s.bars.Save(ctx, bar); err != nil {
			return 0, err
		}
	}

	s.logger.WithField("rows", len(rows)).Info("EOD price rows imported")
	return len(rows), nil
}
