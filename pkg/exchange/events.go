package exchange

type EventType string

const (
	EventRoundStarted       EventType = "round_started"
	EventTokensSold         EventType = "tokens_sold"
	EventOrderAdded         EventType = "order_added"
	EventOrderRemoved       EventType = "order_removed"
	EventOrderRedeemed      EventType = "order_redeemed"
	EventReferralRegistered EventType = "referral_registered"
	EventTreasuryWithdrawal EventType = "treasury_withdrawal"
)

// Event describes a committed state change. The API layer forwards
// events to websocket subscribers; the callback runs under the platform
// mutex, so handlers must be fast or buffer internally.
type Event struct {
	Type EventType `json:"type"`

	// Round context at emission time.
	RoundKind   string `json:"roundKind"`
	RoundNumber uint64 `json:"roundNumber"`

	Account string  `json:"account,omitempty"`
	OrderID *uint64 `json:"orderId,omitempty"`
	Amount  uint64  `json:"amount,omitempty"`  // tokens for market events, wei for treasury
	Price   uint64  `json:"price,omitempty"`   // wei per token
	Payment uint64  `json:"payment,omitempty"` // wei actually paid

	Timestamp int64 `json:"timestamp"` // unix milliseconds
}
