// Package orderbook keeps seller-listed orders in an arena addressed by
// sequential ids. Orders are never physically removed: closing one
// zeroes its amount and price so the id stays allocated and reads of
// closed slots come back empty.
package orderbook

import (
	"errors"
	"sync"

	"github.com/ethereum/go-ethereum/common"
)

var (
	ErrOrderNotFound    = errors.New("order does not exist")
	ErrOrderUnderfunded = errors.New("order does not have enough tokens")
	ErrOrderNotOwned    = errors.New("cannot remove another seller's order")
)

// Order is one arena slot. Round stamps the trade round the order was
// placed in; orders from earlier rounds are inert for redemption.
type Order struct {
	ID        uint64         `json:"id"`
	Seller    common.Address `json:"seller"`
	Remaining uint64         `json:"remaining"` // tokens still for sale
	UnitPrice uint64         `json:"unitPrice"` // wei per token
	Round     uint64         `json:"round"`
}

func (o Order) Closed() bool { return o.Remaining == 0 }

type Book struct {
	mu     sync.RWMutex
	orders []Order
}

func NewBook() *Book {
	return &Book{}
}

// Add allocates the next id and stores the order. Token escrow is the
// caller's job; the book only indexes.
func (b *Book) Add(seller common.Address, amount, unitPrice, roundNum uint64) Order {
	b.mu.Lock()
	defer b.mu.Unlock()

	o := Order{
		ID:        uint64(len(b.orders)),
		Seller:    seller,
		Remaining: amount,
		UnitPrice: unitPrice,
		Round:     roundNum,
	}
	b.orders = append(b.orders, o)
	return o
}

// Get returns the stored slot, or a zeroed record for unknown ids.
func (b *Book) Get(id uint64) Order {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if id >= uint64(len(b.orders)) {
		return Order{ID: id}
	}
	return b.orders[id]
}

// Quote returns the order if it is open and was placed in roundNum.
// Everything else (unknown id, closed slot, stale round) reads as
// nonexistent.
func (b *Book) Quote(id, roundNum uint64) (Order, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if id >= uint64(len(b.orders)) {
		return Order{}, ErrOrderNotFound
	}
	o := b.orders[id]
	if o.Remaining == 0 || o.Round != roundNum {
		return Order{}, ErrOrderNotFound
	}
	return o, nil
}

// Remove closes caller's order and reports how many escrowed tokens to
// hand back. The slot keeps its seller but reads zeroed otherwise.
func (b *Book) Remove(caller common.Address, id uint64) (uint64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if id >= uint64(len(b.orders)) || b.orders[id].Seller != caller {
		return 0, ErrOrderNotOwned
	}

	refund := b.orders[id].Remaining
	b.orders[id].Remaining = 0
	b.orders[id].UnitPrice = 0
	return refund, nil
}

// Consume decrements an order after the caller has validated and paid.
// Returns the updated slot.
func (b *Book) Consume(id, amount uint64) (Order, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if id >= uint64(len(b.orders)) || b.orders[id].Remaining == 0 {
		return Order{}, ErrOrderNotFound
	}
	if amount > b.orders[id].Remaining {
		return Order{}, ErrOrderUnderfunded
	}

	b.orders[id].Remaining -= amount
	if b.orders[id].Remaining == 0 {
		b.orders[id].UnitPrice = 0
	}
	return b.orders[id], nil
}

// NextID returns the id the next Add will allocate.
func (b *Book) NextID() uint64 {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return uint64(len(b.orders))
}

// Len returns the number of allocated slots, open or closed.
func (b *Book) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.orders)
}

// Open returns copies of all open orders placed in roundNum.
func (b *Book) Open(roundNum uint64) []Order {
	b.mu.RLock()
	defer b.mu.RUnlock()

	var out []Order
	for _, o := range b.orders {
		if o.Remaining > 0 && o.Round == roundNum {
			out = append(out, o)
		}
	}
	return out
}

// EscrowTotal sums the remaining amounts of every open order; the
// platform's escrow balance must always cover it.
func (b *Book) EscrowTotal() uint64 {
	b.mu.RLock()
	defer b.mu.RUnlock()

	var total uint64
	for _, o := range b.orders {
		total += o.Remaining
	}
	return total
}

// Restore replaces the arena with persisted slots, sorted by id.
// Startup only. Slots must be dense: order i at index i.
func (b *Book) Restore(orders []Order) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.orders = make([]Order, len(orders))
	for _, o := range orders {
		if o.ID < uint64(len(b.orders)) {
			b.orders[o.ID] = o
		}
	}
}
