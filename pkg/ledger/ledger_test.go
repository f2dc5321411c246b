package ledger

import (
	"errors"
	"testing"

	"github.com/ethereum/go-ethereum/common"
)

var (
	alice = common.HexToAddress("0x0000000000000000000000000000000000000a01")
	bob   = common.HexToAddress("0x0000000000000000000000000000000000000b02")
)

func TestTokenLedgerTransfer(t *testing.T) {
	l := NewTokenLedger("ACDM Token", "ACDM")
	l.Mint(alice, 1000)

	if err := l.Transfer(alice, bob, 400); err != nil {
		t.Fatalf("transfer failed: %v", err)
	}
	if got := l.BalanceOf(alice); got != 600 {
		t.Errorf("alice balance = %d, want 600", got)
	}
	if got := l.BalanceOf(bob); got != 400 {
		t.Errorf("bob balance = %d, want 400", got)
	}

	err := l.Transfer(alice, bob, 601)
	if !errors.Is(err, ErrInsufficientBalance) {
		t.Errorf("overdraft transfer: got %v, want ErrInsufficientBalance", err)
	}
	if got := l.BalanceOf(alice); got != 600 {
		t.Errorf("failed transfer mutated balance: %d", got)
	}
}

func TestTokenLedgerSupply(t *testing.T) {
	l := NewTokenLedger("ACDM Token", "ACDM")
	l.Mint(alice, 500)
	l.Mint(bob, 250)

	if got := l.TotalSupply(); got != 750 {
		t.Fatalf("supply = %d, want 750", got)
	}

	if err := l.Burn(alice, 100); err != nil {
		t.Fatalf("burn failed: %v", err)
	}
	if got := l.TotalSupply(); got != 650 {
		t.Errorf("supply after burn = %d, want 650", got)
	}

	if err := l.Burn(bob, 300); !errors.Is(err, ErrInsufficientBalance) {
		t.Errorf("burn beyond balance: got %v, want ErrInsufficientBalance", err)
	}
}

func TestBankSend(t *testing.T) {
	b := NewBank()
	b.Deposit(alice, 100)

	if err := b.Send(alice, bob, 60); err != nil {
		t.Fatalf("send failed: %v", err)
	}
	if got := b.BalanceOf(bob); got != 60 {
		t.Errorf("bob balance = %d, want 60", got)
	}

	if err := b.Send(alice, bob, 41); !errors.Is(err, ErrTransferFailed) {
		t.Errorf("overdraft send: got %v, want ErrTransferFailed", err)
	}
	if got := b.BalanceOf(alice); got != 40 {
		t.Errorf("failed send mutated balance: %d", got)
	}
}
