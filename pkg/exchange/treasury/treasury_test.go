package treasury

import (
	"errors"
	"testing"

	"github.com/ethereum/go-ethereum/common"

	"github.com/uhyunpark/acdex/pkg/ledger"
)

var (
	platform = common.HexToAddress("0x00000000000000000000000000000000acde0000")
	owner    = common.HexToAddress("0x0000000000000000000000000000000000000701")
)

func TestWithdraw(t *testing.T) {
	bank := ledger.NewBank()
	bank.Deposit(platform, 1_000)
	tr := New(bank, platform, nil)

	if err := tr.Withdraw(owner, 400); err != nil {
		t.Fatalf("withdraw failed: %v", err)
	}
	if got := bank.BalanceOf(owner); got != 400 {
		t.Errorf("owner = %d, want 400", got)
	}
	if got := tr.Balance(); got != 600 {
		t.Errorf("treasury = %d, want 600", got)
	}
}

func TestWithdrawEmpty(t *testing.T) {
	tr := New(ledger.NewBank(), platform, nil)
	if err := tr.Withdraw(owner, 1); !errors.Is(err, ErrNoFunds) {
		t.Errorf("got %v, want ErrNoFunds", err)
	}
}

func TestWithdrawTooMuch(t *testing.T) {
	bank := ledger.NewBank()
	bank.Deposit(platform, 100)
	tr := New(bank, platform, nil)

	if err := tr.Withdraw(owner, 101); !errors.Is(err, ledger.ErrTransferFailed) {
		t.Errorf("got %v, want ErrTransferFailed", err)
	}
	if got := tr.Balance(); got != 100 {
		t.Errorf("failed withdrawal mutated balance: %d", got)
	}
}
