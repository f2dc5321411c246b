// Package treasury exposes the platform's retained native-currency
// balance: accrued commissions, unclaimed referral shares, overpayments
// and truncation remainders.
package treasury

import (
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"github.com/uhyunpark/acdex/pkg/ledger"
)

var ErrNoFunds = errors.New("no funds to withdraw")

// Treasury wraps the platform's currency account. The balance is
// whatever sits on that account; every payment routed through the
// platform leaves its retained share here.
type Treasury struct {
	bank    ledger.CurrencyTransfer
	account common.Address
	log     *zap.SugaredLogger
}

func New(bank ledger.CurrencyTransfer, account common.Address, log *zap.SugaredLogger) *Treasury {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Treasury{bank: bank, account: account, log: log}
}

func (t *Treasury) Account() common.Address { return t.account }

func (t *Treasury) Balance() uint64 {
	return t.bank.BalanceOf(t.account)
}

// Withdraw sends amount to the recipient. Fails with ErrNoFunds on an
// empty treasury and ledger.ErrTransferFailed when amount exceeds the
// balance or the underlying send is rejected.
func (t *Treasury) Withdraw(to common.Address, amount uint64) error {
	bal := t.Balance()
	if bal == 0 {
		return ErrNoFunds
	}
	if amount > bal {
		return fmt.Errorf("%w: have %d, need %d", ledger.ErrTransferFailed, bal, amount)
	}
	if err := t.bank.Send(t.account, to, amount); err != nil {
		return err
	}

	t.log.Infow("treasury_withdrawal", "to", to.Hex(), "amount", amount, "remaining", t.Balance())
	return nil
}
