package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/arthasutra/backend/internal/contracts"
)

// HoldingRepository implements contracts.HoldingRepository.
type HoldingRepository struct {
	pool *pgxpool.Pool
}

func NewHoldingRepository(pool *pgxpool.Pool) *HoldingRepository {
	return &HoldingRepository{pool: pool}
}

func (r *HoldingRepository) GetByPortfolioAndSecurity(ctx context.Context, portfolioID, securityID int64) (*contracts.Holding, error) {
	query := `
		SELECT id, portfolio_id, security_id, qty_total, avg_price
		FROM holdings
		WHERE portfolio_id = $1 AND security_id = $2
	`

	var h contracts.Holding
	err := r.pool.QueryRow(ctx, query, portfolioID, securityID).Scan(
		&h.ID, &h.PortfolioID, &h.SecurityID, &h.QtyTotal, &h.AvgPrice,
	)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &h, nil
}

func (r *HoldingRepository) ListByPortfolio(ctx context.Context, portfolioID int64) ([]*contracts.Holding, error) {
	query := `
		SELECT id, portfolio_id, security_id, qty_total, avg_price
		FROM holdings
		WHERE portfolio_id = $1
		ORDER BY id
	`

	rows, err := r.pool.Query(ctx, query, portfolioID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var holdings []*contracts.Holding
	for rows.Next() {
		var h contracts.Holding
		if err := rows.Scan(&h.ID, &h.PortfolioID, &h.SecurityID, &h.QtyTotal, &h.AvgPrice); err != nil {
			return nil, err
		}
		holdings = append(holdings, &h)
	}
	return holdings, rows.Err()
}

// Save upserts on (portfolio, security): a re-imported snapshot overwrites
// quantity and average price.
func (r *HoldingRepository) Save(ctx context.Context, h *contracts.Holding) error {
	query := `
		INSERT INTO holdings (portfolio_id, security_id, qty_total, avg_price)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (portfolio_id, security_id) DO UPDATE SET
			qty_total = EXCLUDED.qty_total,
			avg_price = EXCLUDED.avg_price
		RETURNING id
	`

	return r.pool.QueryRow(ctx, query, h.PortfolioID, h.SecurityID, h.QtyTotal, h.AvgPrice).Scan(&h.ID)
}
