package contracts

import (
	"context"
	"time"
)

// Repository interfaces are defined here and implemented by the store
// packages. The core never constructs or owns its storage dependency; it
// receives these interfaces from the process entry point.

// PortfolioRepository manages portfolios.
type PortfolioRepository interface {
	Create(ctx context.Context, p *Portfolio) error
	GetByID(ctx context.Context, id int64) (*Portfolio, error)
	List(ctx context.Context) ([]*Portfolio, error)
	Delete(ctx context.Context, id int64) error
}

// SecurityRepository manages securities. (Symbol, Exchange) resolves to at
// most one security.
type SecurityRepository interface {
	GetByID(ctx context.Context, id int64) (*Security, error)
	GetBySymbolExchange(ctx context.Context, symbol, exchange string) (*Security, error)
	// ListWithKiteToken returns all securities carrying a stream
	// subscription token.
	ListWithKiteToken(ctx context.Context) ([]*Security, error)
	// ListHeld returns the distinct securities referenced by any holding.
	// The live feeds track exactly this set.
	ListHeld(ctx context.Context) ([]*Security, error)
	Save(ctx context.Context, s *Security) error
}

// HoldingRepository manages holdings.
type HoldingRepository interface {
	GetByPortfolioAndSecurity(ctx context.Context, portfolioID, securityID int64) (*Holding, error)
	ListByPortfolio(ctx context.Context, portfolioID int64) ([]*Holding, error)
	// Save inserts or overwrites the holding for (portfolio, security).
	Save(ctx context.Context, h *Holding) error
}

// LotRepository records import snapshots.
type LotRepository interface {
	Save(ctx context.Context, l *Lot) error
	ListByHolding(ctx context.Context, holdingID int64) ([]*Lot, error)
}

// PriceBarRepository manages end-of-day bars.
type PriceBarRepository interface {
	// RecentBars returns up to limit bars ordered by date descending.
	RecentBars(ctx context.Context, securityID int64, limit int) ([]*PriceBar, error)
	// ClosesAsc returns up to limit daily closes, oldest first; if more
	// bars exist only the most recent limit are returned.
	ClosesAsc(ctx context.Context, securityID int64, limit int) ([]float64, error)
	Exists(ctx context.Context, securityID int64, date time.Time) (bool, error)
	// Save is idempotent: a bar for an existing (security, date) is left
	// untouched and the call is a no-op.
	Save(ctx context.Context, bar *PriceBar) error
	SaveBatch(ctx context.Context, bars []*PriceBar) error
}

// QuoteStore is the live-quote cache accessor. Implementations must make
// each per-security row an atomic unit of mutation: a read concurrent with
// a write observes the old or the new value, never a torn record.
type QuoteStore interface {
	// Get returns the cached quote for a security, or nil if none was
	// ever observed.
	Get(securityID int64) *LiveQuote
	// Upsert overwrites the row for the security: price, observation
	// timestamp = now, update timestamp = now, source tag as given.
	Upsert(securityID int64, price float64, source string)
	// FreshPrice returns the cached price only if the observation is at
	// most freshness old; otherwise nil.
	FreshPrice(securityID int64, freshness time.Duration) *float64
}
