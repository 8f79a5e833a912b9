package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/arthasutra/backend/internal/contracts"
)

// SecurityRepository implements contracts.SecurityRepository.
type SecurityRepository struct {
	pool *pgxpool.Pool
}

func NewSecurityRepository(pool *pgxpool.Pool) *SecurityRepository {
	return &SecurityRepository{pool: pool}
}

const securityColumns = `id, symbol, exchange, name, sector, lot_size, tick_size, kite_token`

func scanSecurity(row pgx.Row) (*contracts.Security, error) {
	var s contracts.Security
	err := row.Scan(&s.ID, &s.Symbol, &s.Exchange, &s.Name, &s.Sector, &s.LotSize, &s.TickSize, &s.KiteToken)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *SecurityRepository) GetByID(ctx context.Context, id int64) (*contracts.Security, error) {
	query := `SELECT ` + securityColumns + ` FROM securities WHERE id = $1`
	return scanSecurity(r.pool.QueryRow(ctx, query, id))
}

func (r *SecurityRepository) GetBySymbolExchange(ctx context.Context, symbol, exchange string) (*contracts.Security, error) {
	query := `SELECT ` + securityColumns + ` FROM securities WHERE symbol = $1 AND exchange = $2`
	return scanSecurity(r.pool.QueryRow(ctx, query, symbol, exchange))
}

func (r *SecurityRepository) ListWithKiteToken(ctx context.Context) ([]*contracts.Security, error) {
	query := `SELECT ` + securityColumns + ` FROM securities WHERE kite_token IS NOT NULL ORDER BY id`
	return r.list(ctx, query)
}

func (r *SecurityRepository) ListHeld(ctx context.Context) ([]*contracts.Security, error) {
	query := `
		SELECT DISTINCT s.id, s.symbol, s.exchange, s.name, s.sector, s.lot_size, s.tick_size, s.kite_token
		FROM securities s
		JOIN holdings h ON h.security_id = s.id
		ORDER BY s.id
	`
	return r.list(ctx, query)
}

func (r *SecurityRepository) list(ctx context.Context, query string) ([]*contracts.Security, error) {
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var securities []*contracts.Security
	for rows.Next() {
		var s contracts.Security
		if err := rows.Scan(&s.ID, &s.Symbol, &s.Exchange, &s.Name, &s.Sector, &s.LotSize, &s.TickSize, &s.KiteToken); err != nil {
			return nil, err
		}
		securities = append(securities, &s)
	}
	return securities, rows.Err()
}

// Save upserts on (symbol, exchange) and fills in the generated id.
func (r *SecurityRepository) Save(ctx context.Context, s *contracts.Security) error {
	query := `
		INSERT INTO securities (symbol, exchange, name, sector, lot_size, tick_size, kite_token)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (symbol, exchange) DO UPDATE SET
			name = EXCLUDED.name,
			sector = EXCLUDED.sector,
			lot_size = EXCLUDED.lot_size,
			tick_size = EXCLUDED.tick_size,
			kite_token = EXCLUDED.kite_token
		RETURNING id
	`

	return r.pool.QueryRow(ctx, query,
		s.Symbol, s.Exchange, s.Name, s.Sector, s.LotSize, s.TickSize, s.KiteToken,
	).Scan(&s.ID)
}
