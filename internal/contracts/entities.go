package contracts

import "time"

// Portfolio is a named collection of holdings valued in a home currency.
type Portfolio struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	BaseCcy   string    `json:"base_ccy"`
	TZ        string    `json:"tz"`
	CreatedAt time.Time `json:"created_at"`
}

// Security identifies a listed instrument by (symbol, exchange), unique
// together. KiteToken is the optional instrument token used to subscribe
// the streamed tick feed.
type Security struct {
	ID        int64    `json:"id"`
	Symbol    string   `json:"symbol"`
	Exchange  string   `json:"exchange"`
	Name      string   `json:"name,omitempty"`
	Sector    string   `json:"sector,omitempty"`
	LotSize   *int     `json:"lot_size,omitempty"`
	TickSize  *float64 `json:"tick_size,omitempty"`
	KiteToken *int64   `json:"kite_token,omitempty"`
}

// Key returns the canonical "EXCHANGE:SYMBOL" form.
func (s *Security) Key() string {
	return s.Exchange + ":" + s.Symbol
}

// Holding is the aggregate position of one security inside one portfolio.
// A portfolio carries at most one holding per security; imports overwrite
// quantity and average price rather than accumulating.
type Holding struct {
	ID          int64   `json:"id"`
	PortfolioID int64   `json:"portfolio_id"`
	SecurityID  int64   `json:"security_id"`
	QtyTotal    float64 `json:"qty_total"`
	AvgPrice    float64 `json:"avg_price"`
}

// Lot records one import snapshot of a holding. Lots are kept for audit
// only; valuation works off the holding aggregate.
type Lot struct {
	ID        int64     `json:"id"`
	HoldingID int64     `json:"holding_id"`
	Qty       float64   `json:"qty"`
	Price     float64   `json:"price"`
	Date      time.Time `json:"date"`
	Account   string    `json:"account,omitempty"`
	TaxStatus string    `json:"tax_status,omitempty"`
}

// PriceBar is one end-of-day OHLC bar, keyed by (security, date).
type PriceBar struct {
	SecurityID int64     `json:"security_id"`
	Date       time.Time `json:"date"`
	Open       float64   `json:"open"`
	High       float64   `json:"high"`
	Low        float64   `json:"low"`
	Close      float64   `json:"close"`
	Volume     *float64  `json:"volume,omitempty"`
}

// LiveQuote is the single most recent observed last-traded-price for a
// security. It is overwritten in place on every observation, never appended.
type LiveQuote struct {
	SecurityID int64     `json:"security_id"`
	Price      float64   `json:"price"`
	ObservedAt time.Time `json:"observed_at"`
	UpdatedAt  time.Time `json:"updated_at"`
	Source     string    `json:"source"` // feed tag, e.g. "kite", "yf", "web"
}

// PriceSourceTier tags which tier of the live > snapshot > eod precedence
// produced a position's last price.
type PriceSourceTier string

const (
	TierLive     PriceSourceTier = "live"
	TierSnapshot PriceSourceTier = "snapshot"
	TierEOD      PriceSourceTier = "eod"
)
