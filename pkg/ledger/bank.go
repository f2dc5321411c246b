package ledger

import (
	"errors"
	"sync"

	"github.com/ethereum/go-ethereum/common"
)

var ErrTransferFailed = errors.New("could not send funds")

// CurrencyTransfer moves native currency between accounts. Amounts are
// in the smallest currency unit (wei).
type CurrencyTransfer interface {
	BalanceOf(acct common.Address) uint64
	Send(from, to common.Address, amount uint64) error
}

// Bank is an in-memory native-currency ledger. Deposit is the devnet
// faucet; real deployments would back this with an actual payment rail.
type Bank struct {
	mu       sync.RWMutex
	balances map[common.Address]uint64
}

func NewBank() *Bank {
	return &Bank{balances: make(map[common.Address]uint64)}
}

func (b *Bank) BalanceOf(acct common.Address) uint64 {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.balances[acct]
}

func (b *Bank) Deposit(to common.Address, amount uint64) {
	b.mu.Lock()
	b.balances[to] += amount
	b.mu.Unlock()
}

func (b *Bank) Send(from, to common.Address, amount uint64) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.balances[from] < amount {
		return ErrTransferFailed
	}
	b.balances[from] -= amount
	b.balances[to] += amount
	return nil
}
