// Package commission splits payments between referral tiers and the
// platform. All arithmetic is floor division on the smallest currency
// unit; nothing is ever lost: whatever a tier does not claim stays
// with the residual recipient or the treasury.
package commission

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"github.com/uhyunpark/acdex/pkg/exchange/referral"
	"github.com/uhyunpark/acdex/pkg/ledger"
)

type Mode int8

const (
	SaleMode Mode = iota
	TradeMode
)

func (m Mode) String() string {
	if m == SaleMode {
		return "sale"
	}
	return "trade"
}

// Referral rates in basis points of the required payment.
const (
	saleTier1Bps  = 500 // 5%
	saleTier2Bps  = 300 // 3%
	tradeTier1Bps = 125 // 1.25%
	tradeTier2Bps = 125 // 1.25%

	bpsDenom = 10_000
)

// Rates returns the tier-1 and tier-2 rates for a mode.
func Rates(mode Mode) (tier1Bps, tier2Bps uint64) {
	if mode == SaleMode {
		return saleTier1Bps, saleTier2Bps
	}
	return tradeTier1Bps, tradeTier2Bps
}

// Share computes floor(total * bps / 10000) without overflow on large
// totals, so truncation remainders are exact.
func Share(total, bps uint64) uint64 {
	q, r := total/bpsDenom, total%bpsDenom
	return q*bps + r*bps/bpsDenom
}

// Engine routes referral payouts out of the platform account. The
// payment being split must already sit on that account when Distribute
// runs, so payouts cannot fail for lack of funds.
type Engine struct {
	registry *referral.Registry
	bank     ledger.CurrencyTransfer
	platform common.Address
	log      *zap.SugaredLogger
}

func NewEngine(registry *referral.Registry, bank ledger.CurrencyTransfer, platform common.Address, log *zap.SugaredLogger) *Engine {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Engine{registry: registry, bank: bank, platform: platform, log: log}
}

// Distribute pays the spender's referral tiers their share of total and
// returns the fixed residual (total minus both floored shares) for the
// caller to route: the treasury keeps it in sale mode, the order's
// seller receives it in trade mode. Shares of missing tiers simply stay
// on the platform account, which is the treasury.
func (e *Engine) Distribute(mode Mode, spender common.Address, total uint64) (uint64, error) {
	r1, r2 := Rates(mode)
	s1, s2 := Share(total, r1), Share(total, r2)

	tier1, tier2, ok1, ok2 := e.registry.Ancestors(spender)

	if ok1 && s1 > 0 {
		if err := e.bank.Send(e.platform, tier1, s1); err != nil {
			return 0, fmt.Errorf("tier1 payout: %w", err)
		}
		e.log.Infow("referral_payout", "mode", mode.String(), "tier", 1,
			"to", tier1.Hex(), "amount", s1)
	}
	if ok2 && s2 > 0 {
		if err := e.bank.Send(e.platform, tier2, s2); err != nil {
			return 0, fmt.Errorf("tier2 payout: %w", err)
		}
		e.log.Infow("referral_payout", "mode", mode.String(), "tier", 2,
			"to", tier2.Hex(), "amount", s2)
	}

	return total - s1 - s2, nil
}
