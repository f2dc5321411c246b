package api

// API request/response types for REST endpoints and WebSocket messages

// ==============================
// REST Response Types
// ==============================

// RoundInfo describes the active round.
type RoundInfo struct {
	Kind        string `json:"kind"`   // "sale" or "trade"
	Number      uint64 `json:"number"` // transitions since genesis
	StartTime   int64  `json:"startTime"` // Unix milliseconds
	EndTime     int64  `json:"endTime"`   // Unix milliseconds
	Price       uint64 `json:"price"`       // wei per token (sale rounds)
	SaleVolume  uint64 `json:"saleVolume"`  // tokens still purchasable
	TradeVolume uint64 `json:"tradeVolume"` // wei turned over this trade round
}

// OrderInfo represents one order slot. Closed orders read with zero
// remaining and price.
type OrderInfo struct {
	ID        uint64 `json:"id"`
	Seller    string `json:"seller"`
	Remaining uint64 `json:"remaining"` // tokens still for sale
	UnitPrice uint64 `json:"unitPrice"` // wei per token
	Round     uint64 `json:"round"`     // trade round the order was placed in
	Open      bool   `json:"open"`
}

// AccountInfo represents balances and referral state for an address.
type AccountInfo struct {
	Address         string `json:"address"`
	TokenBalance    uint64 `json:"tokenBalance"`    // whole tokens
	CurrencyBalance uint64 `json:"currencyBalance"` // wei
	Referrer        string `json:"referrer,omitempty"`
}

// TreasuryInfo represents the platform's retained currency.
type TreasuryInfo struct {
	Account string `json:"account"`
	Balance uint64 `json:"balance"` // wei
}

// StatusResponse acknowledges a state-changing request.
type StatusResponse struct {
	Status  string `json:"status"` // "ok"
	OrderID *uint64 `json:"orderId,omitempty"`
}

// ErrorResponse is returned for all errors
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// ==============================
// REST Request Types
// ==============================

// RegisterRequest is the payload for POST /api/v1/referrals
type RegisterRequest struct {
	Address  string `json:"address"`
	Referrer string `json:"referrer"`
}

// BuyRequest is the payload for POST /api/v1/purchases
type BuyRequest struct {
	Buyer   string `json:"buyer"`
	Amount  uint64 `json:"amount"`  // tokens
	Payment uint64 `json:"payment"` // wei
}

// AddOrderRequest is the payload for POST /api/v1/orders
type AddOrderRequest struct {
	Seller    string `json:"seller"`
	Amount    uint64 `json:"amount"`    // tokens to escrow
	UnitPrice uint64 `json:"unitPrice"` // wei per token
}

// CancelOrderRequest is the payload for POST /api/v1/orders/cancel
type CancelOrderRequest struct {
	Seller  string `json:"seller"`
	OrderID uint64 `json:"orderId"`
}

// RedeemRequest is the payload for POST /api/v1/redemptions
type RedeemRequest struct {
	Buyer   string `json:"buyer"`
	OrderID uint64 `json:"orderId"`
	Amount  uint64 `json:"amount"`  // tokens requested
	Payment uint64 `json:"payment"` // wei
}

// WithdrawRequest is the payload for POST /api/v1/treasury/withdraw
type WithdrawRequest struct {
	To     string `json:"to"`
	Amount uint64 `json:"amount"` // wei
}

// ==============================
// WebSocket Message Types
// ==============================

// WSSubscribeRequest is sent by a client to manage channel subscriptions.
// Channels: "rounds", "orders", "trades".
type WSSubscribeRequest struct {
	Op       string   `json:"op"` // "subscribe" or "unsubscribe"
	Channels []string `json:"channels"`
}
