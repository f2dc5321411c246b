package commission

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"

	"github.com/uhyunpark/acdex/pkg/exchange/referral"
	"github.com/uhyunpark/acdex/pkg/ledger"
)

var (
	platform = common.HexToAddress("0x00000000000000000000000000000000acde0000")
	buyer    = common.HexToAddress("0x0000000000000000000000000000000000000601")
	ref1     = common.HexToAddress("0x0000000000000000000000000000000000000602")
	ref2     = common.HexToAddress("0x0000000000000000000000000000000000000603")
)

func TestShare(t *testing.T) {
	tests := []struct {
		total, bps, want uint64
	}{
		{1_000_000_000_000_000_000, 500, 50_000_000_000_000_000},  // 5% of 1 ETH
		{1_000_000_000_000_000_000, 300, 30_000_000_000_000_000},  // 3%
		{1_000_000_000_000_000_000, 125, 12_500_000_000_000_000},  // 1.25%
		{10_000, 125, 125},
		{9_999, 125, 124}, // floor(124.98...)
		{1, 500, 0},       // truncates to zero
		{0, 500, 0},
	}
	for _, tt := range tests {
		if got := Share(tt.total, tt.bps); got != tt.want {
			t.Errorf("Share(%d, %d) = %d, want %d", tt.total, tt.bps, got, tt.want)
		}
	}
}

func TestRates(t *testing.T) {
	if r1, r2 := Rates(SaleMode); r1 != 500 || r2 != 300 {
		t.Errorf("sale rates = %d/%d", r1, r2)
	}
	if r1, r2 := Rates(TradeMode); r1 != 125 || r2 != 125 {
		t.Errorf("trade rates = %d/%d", r1, r2)
	}
}

func setup(t *testing.T, total uint64) (*Engine, *ledger.Bank, *referral.Registry) {
	t.Helper()
	reg := referral.NewRegistry()
	bank := ledger.NewBank()
	bank.Deposit(platform, total)
	return NewEngine(reg, bank, platform, nil), bank, reg
}

func TestDistributeSaleBothTiers(t *testing.T) {
	const total = uint64(1_000_000_000_000_000_000) // 1 ETH
	e, bank, reg := setup(t, total)
	reg.Register(ref1, ref2)
	reg.Register(buyer, ref1)

	residual, err := e.Distribute(SaleMode, buyer, total)
	if err != nil {
		t.Fatalf("distribute: %v", err)
	}

	if got := bank.BalanceOf(ref1); got != total/100*5 {
		t.Errorf("tier1 = %d, want %d", got, total/100*5)
	}
	if got := bank.BalanceOf(ref2); got != total/100*3 {
		t.Errorf("tier2 = %d, want %d", got, total/100*3)
	}
	if want := total / 100 * 92; residual != want {
		t.Errorf("residual = %d, want %d", residual, want)
	}
	// Conservation: residual stays on the platform account.
	if got := bank.BalanceOf(platform); got != residual {
		t.Errorf("platform = %d, want %d", got, residual)
	}
}

func TestDistributeSaleNoTiers(t *testing.T) {
	const total = uint64(1_000_000)
	e, bank, _ := setup(t, total)

	residual, err := e.Distribute(SaleMode, buyer, total)
	if err != nil {
		t.Fatal(err)
	}
	// Unclaimed shares stay with the platform; residual is still fixed.
	if want := total - Share(total, 500) - Share(total, 300); residual != want {
		t.Errorf("residual = %d, want %d", residual, want)
	}
	if got := bank.BalanceOf(platform); got != total {
		t.Errorf("platform lost funds: %d", got)
	}
}

func TestDistributeTradeTierOneOnly(t *testing.T) {
	const total = uint64(500_000_000_000_000_000) // 0.5 ETH
	e, bank, reg := setup(t, total)
	reg.Register(buyer, ref1) // ref1 itself has no referrer

	residual, err := e.Distribute(TradeMode, buyer, total)
	if err != nil {
		t.Fatal(err)
	}

	s := Share(total, 125)
	if got := bank.BalanceOf(ref1); got != s {
		t.Errorf("tier1 = %d, want %d", got, s)
	}
	if want := total - 2*s; residual != want {
		t.Errorf("residual = %d, want %d", residual, want)
	}
	// Tier-2 share retained by the platform.
	if got := bank.BalanceOf(platform); got != total-s {
		t.Errorf("platform = %d, want %d", got, total-s)
	}
}

func TestDistributeConservation(t *testing.T) {
	// Odd total so shares truncate; nothing may leak.
	const total = uint64(999_999_999)
	e, bank, reg := setup(t, total)
	reg.Register(ref1, ref2)
	reg.Register(buyer, ref1)

	residual, err := e.Distribute(TradeMode, buyer, total)
	if err != nil {
		t.Fatal(err)
	}

	sum := bank.BalanceOf(ref1) + bank.BalanceOf(ref2) + bank.BalanceOf(platform)
	if sum != total {
		t.Errorf("value leaked: sum=%d total=%d", sum, total)
	}
	s := Share(total, 125)
	if want := total - 2*s; residual != want {
		t.Errorf("residual = %d, want %d (truncation stays with residual)", residual, want)
	}
}
