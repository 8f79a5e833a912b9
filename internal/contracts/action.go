package contracts

// ActionKind is the recommendation emitted by the decision engine.
type ActionKind string

const (
	ActionKeep ActionKind = "KEEP"
	ActionAdd  ActionKind = "ADD"
	ActionTrim ActionKind = "TRIM"
	ActionExit ActionKind = "EXIT"
)

// Reason codes attached to actions.
const (
	ReasonNoPriceHistory = "no_price_history"
	ReasonBelow200SMA    = "below_200sma"
	ReasonExtendedVs50   = "extended_vs_50sma"
	ReasonTrendOkAbove50 = "trend_ok_above_50sma"
	ReasonDefault        = "default"
)

// Action is a derived trading recommendation for one holding. It is never
// persisted; Qty is nil when no quantity change is suggested.
type Action struct {
	Action ActionKind `json:"action"`
	Symbol string     `json:"symbol"` // "EXCHANGE:SYMBOL"
	Reason string     `json:"reason"`
	Qty    *float64   `json:"qty"`
	Score  int        `json:"score"`
}
