package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/arthasutra/backend/internal/contracts"
)

// PriceBarRepository implements contracts.PriceBarRepository.
type PriceBarRepository struct {
	pool *pgxpool.Pool
}

func NewPriceBarRepository(pool *pgxpool.Pool) *PriceBarRepository {
	return &PriceBarRepository{pool: pool}
}

func (r *PriceBarRepository) RecentBars(ctx context.Context, securityID int64, limit int) ([]*contracts.PriceBar, error) {
	query := `
		SELECT security_id, trade_date, open, high, low, close, volume
		FROM prices_eod
		WHERE security_id = $1
		ORDER BY trade_date DESC
		LIMIT $2
	`

	rows, err := r.pool.Query(ctx, query, securityID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var bars []*contracts.PriceBar
	for rows.Next() {
		var b contracts.PriceBar
		if err := rows.Scan(&b.SecurityID, &b.Date, &b.Open, &b.High, &b.Low, &b.Close, &b.Volume); err != nil {
			return nil, err
		}
		bars = append(bars, &b)
	}
	return bars, rows.Err()
}

func (r *PriceBarRepository) ClosesAsc(ctx context.Context, securityID int64, limit int) ([]float64, error) {
	// Take the most recent closes, then flip back to date order.
	query := `
		SELECT close FROM (
			SELECT close, trade_date
			FROM prices_eod
			WHERE security_id = $1
			ORDER BY trade_date DESC
			LIMIT $2
		) recent
		ORDER BY trade_date ASC
	`

	rows, err := r.pool.Query(ctx, query, securityID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var closes []float64
	for rows.Next() {
		var c float64
		if err := rows.Scan(&c); err != nil {
			return nil, err
		}
		closes = append(closes, c)
	}
	return closes, rows.Err()
}

func (r *PriceBarRepository) Exists(ctx context.Context, securityID int64, date time.Time) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM prices_eod WHERE security_id = $1 AND trade_date = $2)`

	var exists bool
	err := r.pool.QueryRow(ctx, query, securityID, date).Scan(&exists)
	return exists, err
}

// Save inserts the bar; an existing (security, date) row is left untouched
// so re-importing history is a no-op.
func (r *PriceBarRepository) Save(ctx context.Context, bar *contracts.PriceBar) error {
	query := `
		INSERT INTO prices_eod (security_id, trade_date, open, high, low, close, volume)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (security_id, trade_date) DO NOTHING
	`

	_, err := r.pool.Exec(ctx, query,
		bar.SecurityID, bar.Date, bar.Open, bar.High, bar.Low, bar.Close, bar.Volume,
	)
	return err
}

func (r *PriceBarRepository) SaveBatch(ctx context.Context, bars []*contracts.PriceBar) error {
	for _, bar := range bars {
		if err := r.Save(ctx, bar); err != nil {
			return err
		}
	}
	return nil
}
