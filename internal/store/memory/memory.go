// Package memory provides in-memory repository implementations. They back
// unit tests and demo runs; production commands wire the postgres store.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/arthasutra/backend/internal/contracts"
)

// Store implements every repository interface over process memory.
type Store struct {
	mu sync.RWMutex

	portfolios map[int64]*contracts.Portfolio
	securities map[int64]*contracts.Security
	holdings   map[int64]*contracts.Holding
	lots       map[int64]*contracts.Lot
	bars       map[int64][]*contracts.PriceBar // by security, date ascending

	nextID int64
}

// New creates an empty store.
func New() *Store {
	return &Store{
		portfolios: make(map[int64]*contracts.Portfolio),
		securities: make(map[int64]*contracts.Security),
		holdings:   make(map[int64]*contracts.Holding),
		lots:       make(map[int64]*contracts.Lot),
		bars:       make(map[int64][]*contracts.PriceBar),
		nextID:     1,
	}
}

func (s *Store) nextIDLocked() int64 {
	id := s.nextID
	s.nextID++
	return id
}

// --- PortfolioRepository ---

func (s *Store) Create(ctx context.Context, p *contracts.Portfolio) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p.ID = s.nextIDLocked()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now()
	}
	cp := *p
	s.portfolios[p.ID] = &cp
	return nil
}

func (s *Store) GetByID(ctx context.Context, id int64) (*contracts.Portfolio, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.portfolios[id]
	if !ok {
		return nil, nil
	}
	cp := *p
	return &cp, nil
}

func (s *Store) List(ctx context.Context) ([]*contracts.Portfolio, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*contracts.Portfolio, 0, len(s.portfolios))
	for _, p := range s.portfolios {
		cp := *p
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) Delete(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.portfolios, id)
	for hid, h := range s.holdings {
		if h.PortfolioID == id {
			delete(s.holdings, hid)
		}
	}
	return nil
}

// --- SecurityRepository ---

func (s *Store) GetSecurityByID(ctx context.Context, id int64) (*contracts.Security, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sec, ok := s.securities[id]
	if !ok {
		return nil, nil
	}
	cp := *sec
	return &cp, nil
}

func (s *Store) GetBySymbolExchange(ctx context.Context, symbol, exchange string) (*contracts.Security, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, sec := range s.securities {
		if sec.Symbol == symbol && sec.Exchange == exchange {
			cp := *sec
			return &cp, nil
		}
	}
	return nil, nil
}

func (s *Store) ListWithKiteToken(ctx context.Context) ([]*contracts.Security, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*contracts.Security
	for _, sec := range s.securities {
		if sec.KiteToken != nil {
			cp := *sec
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) ListHeldSecurities(ctx context.Context) ([]*contracts.Security, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	held := make(map[int64]bool)
	for _, h := range s.holdings {
		held[h.SecurityID] = true
	}

	var out []*contracts.Security
	for id, sec := range s.securities {
		if held[id] {
			cp := *sec
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) SaveSecurity(ctx context.Context, sec *contracts.Security) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if sec.ID == 0 {
		for _, existing := range s.securities {
			if existing.Symbol == sec.Symbol && existing.Exchange == sec.Exchange {
				sec.ID = existing.ID
				break
			}
		}
	}
	if sec.ID == 0 {
		sec.ID = s.nextIDLocked()
	}
	cp := *sec
	s.securities[sec.ID] = &cp
	return nil
}

// --- HoldingRepository ---

func (s *Store) GetByPortfolioAndSecurity(ctx context.Context, portfolioID, securityID int64) (*contracts.Holding, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, h := range s.holdings {
		if h.PortfolioID == portfolioID && h.SecurityID == securityID {
			cp := *h
			return &cp, nil
		}
	}
	return nil, nil
}

func (s *Store) ListByPortfolio(ctx context.Context, portfolioID int64) ([]*contracts.Holding, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*contracts.Holding
	for _, h := range s.holdings {
		if h.PortfolioID == portfolioID {
			cp := *h
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) SaveHolding(ctx context.Context, h *contracts.Holding) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if h.ID == 0 {
		for _, existing := range s.holdings {
			if existing.PortfolioID == h.PortfolioID && existing.SecurityID == h.SecurityID {
				h.ID = existing.ID
				break
			}
		}
	}
	if h.ID == 0 {
		h.ID = s.nextIDLocked()
	}
	cp := *h
	s.holdings[h.ID] = &cp
	return nil
}

// --- LotRepository ---

func (s *Store) SaveLot(ctx context.Context, l *contracts.Lot) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if l.ID == 0 {
		l.ID = s.nextIDLocked()
	}
	if l.Date.IsZero() {
		l.Date = time.Now()
	}
	cp := *l
	s.lots[l.ID] = &cp
	return nil
}

func (s *Store) ListByHolding(ctx context.Context, holdingID int64) ([]*contracts.Lot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*contracts.Lot
	for _, l := range s.lots {
		if l.HoldingID == holdingID {
			cp := *l
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// --- PriceBarRepository ---

func (s *Store) RecentBars(ctx context.Context, securityID int64, limit int) ([]*contracts.PriceBar, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	bars := s.bars[securityID]
	out := make([]*contracts.PriceBar, 0, limit)
	for i := len(bars) - 1; i >= 0 && len(out) < limit; i-- {
		cp := *bars[i]
		out = append(out, &cp)
	}
	return out, nil
}

func (s *Store) ClosesAsc(ctx context.Context, securityID int64, limit int) ([]float64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	bars := s.bars[securityID]
	start := 0
	if len(bars) > limit {
		start = len(bars) - limit
	}
	closes := make([]float64, 0, len(bars)-start)
	for _, b := range bars[start:] {
		closes = append(closes, b.Close)
	}
	return closes, nil
}

func (s *Store) Exists(ctx context.Context, securityID int64, date time.Time) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.barExistsLocked(securityID, date), nil
}

func (s *Store) barExistsLocked(securityID int64, date time.Time) bool {
	day := date.Format("2006-01-02")
	for _, b := range s.bars[securityID] {
		if b.Date.Format("2006-01-02") == day {
			return true
		}
	}
	return false
}

func (s *Store) SaveBar(ctx context.Context, bar *contracts.PriceBar) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Idempotent: existing (security, date) rows are left untouched.
	if s.barExistsLocked(bar.SecurityID, bar.Date) {
		return nil
	}

	cp := *bar
	s.bars[bar.SecurityID] = append(s.bars[bar.SecurityID], &cp)
	sort.Slice(s.bars[bar.SecurityID], func(i, j int) bool {
		return s.bars[bar.SecurityID][i].Date.Before(s.bars[bar.SecurityID][j].Date)
	})
	return nil
}

func (s *Store) SaveBatch(ctx context.Context, bars []*contracts.PriceBar) error {
	for _, bar := range bars {
		if err := s.SaveBar(ctx, bar); err != nil {
			return err
		}
	}
	return nil
}

// BarCount reports the number of stored bars for a security.
func (s *Store) BarCount(securityID int64) int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.bars[securityID])
}

// Repos bundles the store behind the repository interfaces with the method
// names the contracts expect.
type Repos struct {
	Portfolios contracts.PortfolioRepository
	Securities contracts.SecurityRepository
	Holdings   contracts.HoldingRepository
	Lots       contracts.LotRepository
	Bars       contracts.PriceBarRepository
}

// AsRepos adapts the store to the repository interfaces.
func (s *Store) AsRepos() Repos {
	return Repos{
		Portfolios: portfolioView{s},
		Securities: securityView{s},
		Holdings:   holdingView{s},
		Lots:       lotView{s},
		Bars:       barView{s},
	}
}

type portfolioView struct{ *Store }

type securityView struct{ *Store }

func (v securityView) GetByID(ctx context.Context, id int64) (*contracts.Security, error) {
	return v.GetSecurityByID(ctx, id)
}

func (v securityView) Save(ctx context.Context, sec *contracts.Security) error {
	return v.SaveSecurity(ctx, sec)
}

func (v securityView) ListHeld(ctx context.Context) ([]*contracts.Security, error) {
	return v.ListHeldSecurities(ctx)
}

type holdingView struct{ *Store }

func (v holdingView) Save(ctx context.Context, h *contracts.Holding) error {
	return v.SaveHolding(ctx, h)
}

type lotView struct{ *Store }

func (v lotView) Save(ctx context.Context, l *contracts.Lot) error {
	return v.SaveLot(ctx, l)
}

type barView struct{ *Store }

func (v barView) Save(ctx context.Context, bar *contracts.PriceBar) error {
	return v.SaveBar(ctx, bar)
}
