package exchange

import "errors"

// Market-entry errors surfaced by the platform facade. Component
// packages (referral, round, orderbook, treasury, ledger) declare their
// own sentinels; everything is matched with errors.Is.
var (
	ErrWrongRound          = errors.New("operation not allowed in the current round")
	ErrInsufficientSupply  = errors.New("cannot buy more tokens than the sale supply")
	ErrInsufficientPayment = errors.New("not enough payment")
)
