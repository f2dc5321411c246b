// Package round owns the sale/trade round state machine. Exactly one
// round is active at a time and the kind strictly alternates; every
// transition is an explicit call whose guard must hold.
package round

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/uhyunpark/acdex/pkg/util"
)

type Kind int8

const (
	Sale Kind = iota
	Trade
)

func (k Kind) String() string {
	switch k {
	case Sale:
		return "sale"
	case Trade:
		return "trade"
	default:
		return "unknown"
	}
}

var (
	ErrRoundActive  = errors.New("round is already active")
	ErrSaleNotOver  = errors.New("wait until sale round is over")
	ErrTradeNotOver = errors.New("wait until trade round is over")
)

// PriceFunc computes the next sale price from the previous one.
// Implementations must be strictly increasing so every sale round is
// more expensive than the last.
type PriceFunc func(prev uint64) uint64

// GrowthPricing returns the default policy:
// next = prev * growthBps / 10000 + increment.
func GrowthPricing(growthBps, increment uint64) PriceFunc {
	return func(prev uint64) uint64 {
		return mulBps(prev, growthBps) + increment
	}
}

// mulBps computes floor(v * bps / 10000) without overflowing on large v.
func mulBps(v, bps uint64) uint64 {
	q, r := v/10_000, v%10_000
	return q*bps + r*bps/10_000
}

type Config struct {
	Duration     time.Duration
	InitialPrice uint64
	Pricing      PriceFunc
}

// State is the versioned round record. Number counts transitions since
// genesis, so kind alternation is checkable: even = sale, odd = trade.
type State struct {
	Kind      Kind      `json:"kind"`
	Number    uint64    `json:"number"`
	StartTime time.Time `json:"startTime"`
	EndTime   time.Time `json:"endTime"`

	// Sale-round counters.
	Price      uint64 `json:"price"`      // wei per token
	SaleVolume uint64 `json:"saleVolume"` // tokens still purchasable

	// Trade-round counter: wei paid through redemptions this round.
	TradeVolume uint64 `json:"tradeVolume"`
}

// Controller gates which market is active. Construction starts the
// first sale round immediately.
type Controller struct {
	mu    sync.RWMutex
	clock util.Clock
	cfg   Config
	cur   State
}

// NewController starts in a sale round priced at cfg.InitialPrice with
// openingVolume tokens for sale (the platform's opening asset balance).
func NewController(clock util.Clock, cfg Config, openingVolume uint64) (*Controller, error) {
	if cfg.Duration <= 0 {
		return nil, fmt.Errorf("round duration must be positive, got %v", cfg.Duration)
	}
	if cfg.InitialPrice == 0 {
		return nil, fmt.Errorf("initial price must be positive")
	}
	if cfg.Pricing == nil {
		return nil, fmt.Errorf("pricing policy must be set")
	}

	now := clock.Now()
	return &Controller{
		clock: clock,
		cfg:   cfg,
		cur: State{
			Kind:       Sale,
			Number:     0,
			StartTime:  now,
			EndTime:    now.Add(cfg.Duration),
			Price:      cfg.InitialPrice,
			SaleVolume: openingVolume,
		},
	}, nil
}

// Current returns a copy of the active round record.
func (c *Controller) Current() State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.cur
}

func (c *Controller) Kind() Kind {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.cur.Kind
}

// StartTradeRound transitions Sale -> Trade. The sale round must have
// expired or sold out. Returns the new round record.
func (c *Controller) StartTradeRound() (State, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.cur.Kind == Trade {
		return State{}, ErrRoundActive
	}
	now := c.clock.Now()
	if now.Before(c.cur.EndTime) && c.cur.SaleVolume > 0 {
		return State{}, ErrSaleNotOver
	}

	c.cur.Kind = Trade
	c.cur.Number++
	c.cur.StartTime = now
	c.cur.EndTime = now.Add(c.cfg.Duration)
	c.cur.TradeVolume = 0
	return c.cur, nil
}

// StartSaleRound transitions Trade -> Sale. The trade round must have
// expired. The new price comes from the pricing policy and the new sale
// volume is the trade round's currency turnover divided by that price;
// zero volume is a valid (instantly sold out) sale round.
func (c *Controller) StartSaleRound() (State, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.cur.Kind == Sale {
		return State{}, ErrRoundActive
	}
	now := c.clock.Now()
	if now.Before(c.cur.EndTime) {
		return State{}, ErrTradeNotOver
	}

	next := c.cfg.Pricing(c.cur.Price)
	if next <= c.cur.Price {
		return State{}, fmt.Errorf("pricing policy not increasing: %d -> %d", c.cur.Price, next)
	}

	c.cur.Kind = Sale
	c.cur.Number++
	c.cur.StartTime = now
	c.cur.EndTime = now.Add(c.cfg.Duration)
	c.cur.Price = next
	c.cur.SaleVolume = c.cur.TradeVolume / next
	return c.cur, nil
}

// ConsumeSaleVolume decrements the purchasable supply after a sale.
// The caller validates amount against the current volume first.
func (c *Controller) ConsumeSaleVolume(amount uint64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if amount > c.cur.SaleVolume {
		return fmt.Errorf("consume %d exceeds sale volume %d", amount, c.cur.SaleVolume)
	}
	c.cur.SaleVolume -= amount
	return nil
}

// AddTradeVolume records currency paid through a redemption; it feeds
// the next sale round's volume computation.
func (c *Controller) AddTradeVolume(amount uint64) {
	c.mu.Lock()
	c.cur.TradeVolume += amount
	c.mu.Unlock()
}

// Restore replaces the round record with a persisted one. Startup only.
func (c *Controller) Restore(s State) {
	c.mu.Lock()
	c.cur = s
	c.mu.Unlock()
}
