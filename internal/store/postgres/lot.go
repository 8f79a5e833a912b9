package postgres

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/arthasutra/backend/internal/contracts"
)

// LotRepository implements contracts.LotRepository.
type LotRepository struct {
	pool *pgxpool.Pool
}

func NewLotRepository(pool *pgxpool.Pool) *LotRepository {
	return &LotRepository{pool: pool}
}

func (r *LotRepository) Save(ctx context.Context, l *contracts.Lot) error {
	if l.Date.IsZero() {
		query := `
			INSERT INTO lots (holding_id, qty, price, account, tax_status)
			VALUES ($1, $2, $3, $4, $5)
			RETURNING id, date
		`
		return r.pool.QueryRow(ctx, query, l.HoldingID, l.Qty, l.Price, l.Account, l.TaxStatus).Scan(&l.ID, &l.Date)
	}

	query := `
		INSERT INTO lots (holding_id, qty, price, date, account, tax_status)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`
	return r.pool.QueryRow(ctx, query, l.HoldingID, l.Qty, l.Price, l.Date, l.Account, l.TaxStatus).Scan(&l.ID)
}

func (r *LotRepository) ListByHolding(ctx context.Context, holdingID int64) ([]*contracts.Lot, error) {
	query := `
		SELECT id, holding_id, qty, price, date, account, tax_status
		FROM lots
		WHERE holding_id = $1
		ORDER BY id
	`

	rows, err := r.pool.Query(ctx, query, holdingID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var lots []*contracts.Lot
	for rows.Next() {
		var l contracts.Lot
		if err := rows.Scan(&l.ID, &l.HoldingID, &l.Qty, &l.Price, &l.Date, &l.Account, &l.TaxStatus); err != nil {
			return nil, err
		}
		lots = append(lots, &l)
	}
	return lots, rows.Err()
}
