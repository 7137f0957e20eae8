package ledger

import (
	"github.com/yieldprotocol/principald/internal/core/amount"
)

// View is a change-tracked window over a Ledger, handed to the callback
// of Ledger.Update. Reads see staged changes first, then the base
// ledger. Writes stay in the view until the batch commits.
type View struct {
	base       *Ledger
	balances   map[string]amount.Amount
	allowances map[allowanceKey]amount.Amount
	supply     amount.Amount
}

func (v *View) BalanceOf(account string) amount.Amount {
	if bal, ok := v.balances[account]; ok {
		return bal
	}
	return v.base.balances[account]
}

func (v *View) Allowance(owner, spender string) amount.Amount {
	key := allowanceKey{owner, spender}
	if allowed, ok := v.allowances[key]; ok {
		return allowed
	}
	return v.base.allowances[key]
}

func (v *View) TotalSupply() amount.Amount {
	return v.supply
}

// Burn stages a debit of account and the matching supply decrease.
func (v *View) Burn(account string, amt amount.Amount) error {
	if account == "" {
		return ErrBadAccount
	}
	newBal, err := v.BalanceOf(account).Sub(amt)
	if err != nil {
		return ErrInsufficientBalance
	}
	newSupply, err := v.supply.Sub(amt)
	if err != nil {
		// Supply below the sum of balances means corrupted state.
		return ErrInsufficientBalance
	}
	v.balances[account] = newBal
	v.supply = newSupply
	return nil
}

// Transfer stages a balance move between two accounts. The debit is
// staged before the credit side is read so a self-transfer nets out to
// no change instead of crediting the pre-debit balance.
func (v *View) Transfer(from, to string, amt amount.Amount) error {
	if from == "" || to == "" {
		return ErrBadAccount
	}
	newFrom, err := v.BalanceOf(from).Sub(amt)
	if err != nil {
		return ErrInsufficientBalance
	}
	v.balances[from] = newFrom
	newTo, err := v.BalanceOf(to).Add(amt)
	if err != nil {
		return err
	}
	v.balances[to] = newTo
	return nil
}

// DecreaseAllowance stages consumption of owner's allowance to spender.
// The unlimited sentinel is never decremented; any other allowance is
// reduced by exactly amt, and consuming more than is stored fails with
// ErrInsufficientAllowance rather than clamping.
func (v *View) DecreaseAllowance(owner, spender string, amt amount.Amount) error {
	if owner == "" || spender == "" {
		return ErrBadAccount
	}
	allowed := v.Allowance(owner, spender)
	if allowed.IsUnlimited() {
		return nil
	}
	remaining, err := allowed.Sub(amt)
	if err != nil {
		return ErrInsufficientAllowance
	}
	v.allowances[allowanceKey{owner, spender}] = remaining
	return nil
}
