// Package exchange composes the referral registry, round controller,
// order book, commission engine and treasury behind a single serialized
// facade. Every public operation validates all of its preconditions
// before touching state, so a failed call leaves nothing half-done.
package exchange

import (
	"fmt"
	"math/bits"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"github.com/uhyunpark/acdex/pkg/exchange/commission"
	"github.com/uhyunpark/acdex/pkg/exchange/orderbook"
	"github.com/uhyunpark/acdex/pkg/exchange/referral"
	"github.com/uhyunpark/acdex/pkg/exchange/round"
	"github.com/uhyunpark/acdex/pkg/exchange/treasury"
	"github.com/uhyunpark/acdex/pkg/ledger"
	"github.com/uhyunpark/acdex/pkg/util"
)

// Store is the persistence surface the platform writes through.
// *storage.Store satisfies it. Writes happen after every precondition
// passes but before any in-memory effect, so a failed write aborts the
// operation with nothing applied.
type Store interface {
	SaveReferral(acct, referrer common.Address) error
	LoadReferrals() (map[common.Address]common.Address, error)
	SaveOrder(o orderbook.Order) error
	LoadOrders() ([]orderbook.Order, error)
	SaveRound(st round.State) error
	LoadRound() (round.State, bool, error)
	SaveTrade(o orderbook.Order, st round.State) error
}

// Config carries the economic parameters of the platform.
type Config struct {
	// Account is the platform's own address on both ledgers: it holds
	// the sale supply, order escrow and the treasury balance.
	Account common.Address

	RoundDuration time.Duration
	InitialPrice  uint64
	Pricing       round.PriceFunc

	// BurnLeftover burns unsold inventory at Sale->Trade instead of
	// retaining it on the platform account.
	BurnLeftover bool
}

// Options wires optional collaborators.
type Options struct {
	Store   Store // durable state; nil for in-memory operation
	Logger  *zap.SugaredLogger
	OnEvent func(Event) // called after each committed state change
}

type Platform struct {
	mu sync.Mutex

	cfg    Config
	tokens ledger.AssetLedger
	bank   ledger.CurrencyTransfer
	clock  util.Clock

	registry *referral.Registry
	rounds   *round.Controller
	book     *orderbook.Book
	fees     *commission.Engine
	vault    *treasury.Treasury

	store   Store
	log     *zap.SugaredLogger
	onEvent func(Event)
}

// New builds a platform and opens its first sale round. The opening
// sale volume is whatever the platform account holds on the asset
// ledger. If a store is given and contains state from a previous run,
// that state is restored instead.
func New(cfg Config, tokens ledger.AssetLedger, bank ledger.CurrencyTransfer, clock util.Clock, opts Options) (*Platform, error) {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop().Sugar()
	}

	registry := referral.NewRegistry()
	book := orderbook.NewBook()
	rounds, err := round.NewController(clock, round.Config{
		Duration:     cfg.RoundDuration,
		InitialPrice: cfg.InitialPrice,
		Pricing:      cfg.Pricing,
	}, tokens.BalanceOf(cfg.Account))
	if err != nil {
		return nil, fmt.Errorf("round controller: %w", err)
	}

	p := &Platform{
		cfg:      cfg,
		tokens:   tokens,
		bank:     bank,
		clock:    clock,
		registry: registry,
		rounds:   rounds,
		book:     book,
		fees:     commission.NewEngine(registry, bank, cfg.Account, log),
		vault:    treasury.New(bank, cfg.Account, log),
		store:    opts.Store,
		log:      log,
		onEvent:  opts.OnEvent,
	}

	if p.store != nil {
		if err := p.restore(); err != nil {
			return nil, fmt.Errorf("restore state: %w", err)
		}
	}

	st := rounds.Current()
	log.Infow("platform_ready", "round", st.Kind.String(), "number", st.Number,
		"price", st.Price, "sale_volume", st.SaleVolume)
	return p, nil
}

func (p *Platform) restore() error {
	edges, err := p.store.LoadReferrals()
	if err != nil {
		return err
	}
	if len(edges) > 0 {
		p.registry.Restore(edges)
	}

	orders, err := p.store.LoadOrders()
	if err != nil {
		return err
	}
	if len(orders) > 0 {
		p.book.Restore(orders)
	}

	st, ok, err := p.store.LoadRound()
	if err != nil {
		return err
	}
	if ok {
		p.rounds.Restore(st)
	} else if err := p.store.SaveRound(p.rounds.Current()); err != nil {
		return err
	}
	return nil
}

// Register records a referral edge for the caller.
func (p *Platform) Register(caller, referrer common.Address) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if caller == referrer {
		return referral.ErrSelfReferral
	}
	if _, ok := p.registry.Referrer(caller); ok {
		return referral.ErrAlreadyReferred
	}
	if p.store != nil {
		if err := p.store.SaveReferral(caller, referrer); err != nil {
			return fmt.Errorf("persist referral: %w", err)
		}
	}
	if err := p.registry.Register(caller, referrer); err != nil {
		return err
	}

	p.log.Infow("referral_registered", "account", caller.Hex(), "referrer", referrer.Hex())
	p.emit(Event{Type: EventReferralRegistered, Account: caller.Hex()})
	return nil
}

// BuyACDM sells amount tokens to the buyer at the current sale price.
// The payment must cover amount*price; any excess is kept by the
// treasury, not refunded.
func (p *Platform) BuyACDM(buyer common.Address, amount, payment uint64) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	st := p.rounds.Current()
	if st.Kind != round.Sale {
		return fmt.Errorf("%w: cannot buy during a trade round", ErrWrongRound)
	}
	if amount > st.SaleVolume {
		return ErrInsufficientSupply
	}
	cost, ok := mulCost(amount, st.Price)
	if !ok {
		return fmt.Errorf("%w: cost of %d tokens at %d wei overflows", ErrInsufficientPayment, amount, st.Price)
	}
	if payment < cost {
		return fmt.Errorf("%w: need %d, got %d", ErrInsufficientPayment, cost, payment)
	}
	if p.bank.BalanceOf(buyer) < payment {
		return fmt.Errorf("%w: buyer cannot cover payment", ledger.ErrTransferFailed)
	}

	if p.store != nil {
		next := st
		next.SaleVolume -= amount
		if err := p.store.SaveRound(next); err != nil {
			return fmt.Errorf("persist round: %w", err)
		}
	}

	// All guards passed and the sale is durable; the effects below
	// cannot fail. The platform account holds at least SaleVolume tokens
	// and just received the payment the commission engine splits.
	if err := p.bank.Send(buyer, p.cfg.Account, payment); err != nil {
		return err
	}
	if err := p.tokens.Transfer(p.cfg.Account, buyer, amount); err != nil {
		return fmt.Errorf("sale supply out of sync: %w", err)
	}
	if err := p.rounds.ConsumeSaleVolume(amount); err != nil {
		return err
	}
	// The residual plus any overpayment stay on the platform account.
	if _, err := p.fees.Distribute(commission.SaleMode, buyer, cost); err != nil {
		return err
	}

	p.log.Infow("tokens_sold", "buyer", buyer.Hex(), "amount", amount,
		"price", st.Price, "payment", payment, "remaining_volume", st.SaleVolume-amount)
	p.emit(Event{Type: EventTokensSold, Account: buyer.Hex(),
		Amount: amount, Price: st.Price, Payment: payment})
	return nil
}

// StartTradeRound transitions Sale -> Trade once the sale round has
// expired or sold out. Anyone may call it.
func (p *Platform) StartTradeRound() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	prev := p.rounds.Current()
	st, err := p.rounds.StartTradeRound()
	if err != nil {
		return err
	}
	if p.store != nil {
		if err := p.store.SaveRound(st); err != nil {
			p.rounds.Restore(prev)
			return fmt.Errorf("persist round: %w", err)
		}
	}

	if p.cfg.BurnLeftover && prev.SaleVolume > 0 {
		if err := p.tokens.Burn(p.cfg.Account, prev.SaleVolume); err != nil {
			p.log.Errorw("leftover_burn_failed", "amount", prev.SaleVolume, "err", err)
		} else {
			p.log.Infow("leftover_burned", "amount", prev.SaleVolume)
		}
	}

	p.log.Infow("round_started", "kind", st.Kind.String(), "number", st.Number,
		"ends_at", st.EndTime)
	p.emit(Event{Type: EventRoundStarted})
	return nil
}

// StartSaleRound transitions Trade -> Sale once the trade round has
// expired, recomputing price and volume from the trade turnover.
func (p *Platform) StartSaleRound() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	prev := p.rounds.Current()
	st, err := p.rounds.StartSaleRound()
	if err != nil {
		return err
	}
	if p.store != nil {
		if err := p.store.SaveRound(st); err != nil {
			p.rounds.Restore(prev)
			return fmt.Errorf("persist round: %w", err)
		}
	}

	// Back the new sale volume with freshly issued supply.
	if st.SaleVolume > 0 {
		p.tokens.Mint(p.cfg.Account, st.SaleVolume)
	}

	p.log.Infow("round_started", "kind", st.Kind.String(), "number", st.Number,
		"price", st.Price, "sale_volume", st.SaleVolume, "ends_at", st.EndTime)
	p.emit(Event{Type: EventRoundStarted, Price: st.Price, Amount: st.SaleVolume})
	return nil
}

// AddOrder escrows amount tokens from the seller and lists them at
// unitPrice. Trade rounds only.
func (p *Platform) AddOrder(seller common.Address, amount, unitPrice uint64) (uint64, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	st := p.rounds.Current()
	if st.Kind != round.Trade {
		return 0, fmt.Errorf("%w: orders can only be added during a trade round", ErrWrongRound)
	}
	if p.tokens.BalanceOf(seller) < amount {
		return 0, ledger.ErrInsufficientBalance
	}

	if p.store != nil {
		pending := orderbook.Order{
			ID:        p.book.NextID(),
			Seller:    seller,
			Remaining: amount,
			UnitPrice: unitPrice,
			Round:     st.Number,
		}
		if err := p.store.SaveOrder(pending); err != nil {
			return 0, fmt.Errorf("persist order: %w", err)
		}
	}

	if err := p.tokens.Transfer(seller, p.cfg.Account, amount); err != nil {
		return 0, err
	}
	o := p.book.Add(seller, amount, unitPrice, st.Number)

	p.log.Infow("order_added", "id", o.ID, "seller", seller.Hex(),
		"amount", amount, "unit_price", unitPrice)
	p.emit(Event{Type: EventOrderAdded, Account: seller.Hex(),
		OrderID: &o.ID, Amount: amount, Price: unitPrice})
	return o.ID, nil
}

// RemoveOrder closes the caller's order and returns the unsold escrowed
// tokens. The id stays allocated; reads of it come back zeroed.
func (p *Platform) RemoveOrder(caller common.Address, id uint64) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.rounds.Kind() != round.Trade {
		return fmt.Errorf("%w: orders can only be removed during a trade round", ErrWrongRound)
	}
	if o := p.book.Get(id); o.Seller != caller {
		return orderbook.ErrOrderNotOwned
	}

	if p.store != nil {
		closed := p.book.Get(id)
		closed.Remaining, closed.UnitPrice = 0, 0
		if err := p.store.SaveOrder(closed); err != nil {
			return fmt.Errorf("persist order: %w", err)
		}
	}

	refund, err := p.book.Remove(caller, id)
	if err != nil {
		return err
	}
	if refund > 0 {
		if err := p.tokens.Transfer(p.cfg.Account, caller, refund); err != nil {
			return fmt.Errorf("escrow out of sync: %w", err)
		}
	}

	p.log.Infow("order_removed", "id", id, "seller", caller.Hex(), "refund", refund)
	p.emit(Event{Type: EventOrderRemoved, Account: caller.Hex(), OrderID: &id, Amount: refund})
	return nil
}

// RedeemOrder buys requested tokens from an open order. The payment
// must cover requested*unitPrice; the seller receives the residual
// after trade-mode commissions, the treasury keeps unclaimed shares
// and any overpayment.
func (p *Platform) RedeemOrder(buyer common.Address, requested, id, payment uint64) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	st := p.rounds.Current()
	if st.Kind != round.Trade {
		return fmt.Errorf("%w: orders can only be redeemed during a trade round", ErrWrongRound)
	}
	o, err := p.book.Quote(id, st.Number)
	if err != nil {
		return err
	}
	if requested > o.Remaining {
		return orderbook.ErrOrderUnderfunded
	}
	cost, ok := mulCost(requested, o.UnitPrice)
	if !ok {
		return fmt.Errorf("%w: cost of %d tokens at %d wei overflows", ErrInsufficientPayment, requested, o.UnitPrice)
	}
	if payment < cost {
		return fmt.Errorf("%w: need %d, got %d", ErrInsufficientPayment, cost, payment)
	}
	if p.bank.BalanceOf(buyer) < payment {
		return fmt.Errorf("%w: buyer cannot cover payment", ledger.ErrTransferFailed)
	}

	upd := o
	upd.Remaining -= requested
	if upd.Remaining == 0 {
		upd.UnitPrice = 0
	}
	if p.store != nil {
		next := st
		next.TradeVolume += cost
		if err := p.store.SaveTrade(upd, next); err != nil {
			return fmt.Errorf("persist trade: %w", err)
		}
	}

	if err := p.bank.Send(buyer, p.cfg.Account, payment); err != nil {
		return err
	}
	if err := p.tokens.Transfer(p.cfg.Account, buyer, requested); err != nil {
		return fmt.Errorf("escrow out of sync: %w", err)
	}
	if _, err := p.book.Consume(id, requested); err != nil {
		return err
	}
	p.rounds.AddTradeVolume(cost)

	residual, err := p.fees.Distribute(commission.TradeMode, buyer, cost)
	if err != nil {
		return err
	}
	if err := p.bank.Send(p.cfg.Account, o.Seller, residual); err != nil {
		return fmt.Errorf("seller payout: %w", err)
	}

	p.log.Infow("order_redeemed", "id", id, "buyer", buyer.Hex(),
		"seller", o.Seller.Hex(), "amount", requested, "unit_price", o.UnitPrice,
		"seller_proceeds", residual, "remaining", upd.Remaining)
	p.emit(Event{Type: EventOrderRedeemed, Account: buyer.Hex(),
		OrderID: &id, Amount: requested, Price: o.UnitPrice, Payment: payment})
	return nil
}

// WithdrawTreasury sends retained platform funds to the recipient.
func (p *Platform) WithdrawTreasury(to common.Address, amount uint64) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.vault.Withdraw(to, amount); err != nil {
		return err
	}
	p.emit(Event{Type: EventTreasuryWithdrawal, Account: to.Hex(), Amount: amount})
	return nil
}

// mulCost multiplies a token amount by a unit price in wei. Unit prices
// are unbounded caller input, so the product must be overflow-checked
// before it feeds a payment guard.
func mulCost(amount, price uint64) (uint64, bool) {
	hi, lo := bits.Mul64(amount, price)
	return lo, hi == 0
}

// SetOnEvent installs the event callback. Wire it up before serving
// traffic; the callback runs under the platform mutex.
func (p *Platform) SetOnEvent(fn func(Event)) {
	p.mu.Lock()
	p.onEvent = fn
	p.mu.Unlock()
}

// emit fills in round context and forwards the event. Callers hold the
// platform mutex.
func (p *Platform) emit(ev Event) {
	if p.onEvent == nil {
		return
	}
	st := p.rounds.Current()
	ev.RoundKind = st.Kind.String()
	ev.RoundNumber = st.Number
	ev.Timestamp = p.clock.Now().UnixMilli()
	p.onEvent(ev)
}

// ---- Read accessors ----

func (p *Platform) Account() common.Address { return p.cfg.Account }

// Round returns a copy of the active round record.
func (p *Platform) Round() round.State { return p.rounds.Current() }

// Order returns the arena slot for id; closed or unknown ids read as
// zeroed records.
func (p *Platform) Order(id uint64) orderbook.Order { return p.book.Get(id) }

// OpenOrders lists the open orders of the current round.
func (p *Platform) OpenOrders() []orderbook.Order {
	return p.book.Open(p.rounds.Current().Number)
}

func (p *Platform) TreasuryBalance() uint64 { return p.vault.Balance() }

func (p *Platform) Referrer(acct common.Address) (common.Address, bool) {
	return p.registry.Referrer(acct)
}

func (p *Platform) TokenBalance(acct common.Address) uint64 {
	return p.tokens.BalanceOf(acct)
}

func (p *Platform) CurrencyBalance(acct common.Address) uint64 {
	return p.bank.BalanceOf(acct)
}
