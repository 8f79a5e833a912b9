package postgres

import (
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/arthasutra/backend/internal/contracts"
)

// Repos bundles all repositories over one connection pool.
type Repos struct {
	Portfolios contracts.PortfolioRepository
	Securities contracts.SecurityRepository
	Holdings   contracts.HoldingRepository
	Lots       contracts.LotRepository
	Bars       contracts.PriceBarRepository
}

func NewRepos(pool *pgxpool.Pool) Repos {
	return Repos{
		Portfolios: NewPortfolioRepository(pool),
		Securities: NewSecurityRepository(pool),
		Holdings:   NewHoldingRepository(pool),
		Lots:       NewLotRepository(pool),
		Bars:       NewPriceBarRepository(pool),
	}
}
