package ledger

import (
	"errors"
	"sync"

	"github.com/ethereum/go-ethereum/common"
)

var ErrInsufficientBalance = errors.New("not enough tokens")

// AssetLedger is the capability the exchange uses to move asset units.
// The platform treats it as an external collaborator; TokenLedger is the
// in-process implementation.
type AssetLedger interface {
	BalanceOf(acct common.Address) uint64
	Transfer(from, to common.Address, amount uint64) error
	Mint(to common.Address, amount uint64)
	Burn(from common.Address, amount uint64) error
}

// TokenLedger is an in-memory fungible-asset ledger. All amounts are in
// whole token units; balances never go negative.
type TokenLedger struct {
	mu       sync.RWMutex
	name     string
	symbol   string
	supply   uint64
	balances map[common.Address]uint64
}

func NewTokenLedger(name, symbol string) *TokenLedger {
	return &TokenLedger{
		name:     name,
		symbol:   symbol,
		balances: make(map[common.Address]uint64),
	}
}

func (l *TokenLedger) Name() string   { return l.name }
func (l *TokenLedger) Symbol() string { return l.symbol }

func (l *TokenLedger) TotalSupply() uint64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.supply
}

func (l *TokenLedger) BalanceOf(acct common.Address) uint64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.balances[acct]
}

func (l *TokenLedger) Mint(to common.Address, amount uint64) {
	l.mu.Lock()
	l.balances[to] += amount
	l.supply += amount
	l.mu.Unlock()
}

func (l *TokenLedger) Burn(from common.Address, amount uint64) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.balances[from] < amount {
		return ErrInsufficientBalance
	}
	l.balances[from] -= amount
	l.supply -= amount
	return nil
}

func (l *TokenLedger) Transfer(from, to common.Address, amount uint64) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.balances[from] < amount {
		return ErrInsufficientBalance
	}
	l.balances[from] -= amount
	l.balances[to] += amount
	return nil
}
