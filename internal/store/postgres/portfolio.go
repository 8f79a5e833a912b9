// Package postgres implements the repository interfaces over PostgreSQL.
// Schema lives in schema.sql next to this file.
package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/arthasutra/backend/internal/contracts"
)

// PortfolioRepository implements contracts.PortfolioRepository.
type PortfolioRepository struct {
	pool *pgxpool.Pool
}

func NewPortfolioRepository(pool *pgxpool.Pool) *PortfolioRepository {
	return &PortfolioRepository{pool: pool}
}

func (r *PortfolioRepository) Create(ctx context.Context, p *contracts.Portfolio) error {
	query := `
		INSERT INTO portfolios (name, base_ccy, tz)
		VALUES ($1, $2, $3)
		RETURNING id, created_at
	`

	return r.pool.QueryRow(ctx, query, p.Name, p.BaseCcy, p.TZ).Scan(&p.ID, &p.CreatedAt)
}

func (r *PortfolioRepository) GetByID(ctx context.Context, id int64) (*contracts.Portfolio, error) {
	query := `
		SELECT id, name, base_ccy, tz, created_at
		FROM portfolios
		WHERE id = $1
	`

	var p contracts.Portfolio
	err := r.pool.QueryRow(ctx, query, id).Scan(&p.ID, &p.Name, &p.BaseCcy, &p.TZ, &p.CreatedAt)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *PortfolioRepository) List(ctx context.Context) ([]*contracts.Portfolio, error) {
	query := `
		SELECT id, name, base_ccy, tz, created_at
		FROM portfolios
		ORDER BY id
	`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var portfolios []*contracts.Portfolio
	for rows.Next() {
		var p contracts.Portfolio
		if err := rows.Scan(&p.ID, &p.Name, &p.BaseCcy, &p.TZ, &p.CreatedAt); err != nil {
			return nil, err
		}
		portfolios = append(portfolios, &p)
	}
	return portfolios, rows.Err()
}

// Delete removes the portfolio; holdings and their lots cascade.
func (r *PortfolioRepository) Delete(ctx context.Context, id int64) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM portfolios WHERE id = $1`, id)
	return err
}
