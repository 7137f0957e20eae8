package principal

import (
	"github.com/yieldprotocol/principald/internal/core/amount"
	"github.com/yieldprotocol/principald/internal/core/ledger"
)

// ConvertToUnderlying prices a principal amount in underlying units.
// Pure and never time-gated; rounds down.
func (t *Token) ConvertToUnderlying(p amount.Amount) (amount.Amount, error) {
	return t.conv.ToUnderlying(p, amount.RoundDown)
}

// ConvertToPrincipal prices an underlying amount in principal units.
// Pure and never time-gated; rounds down.
func (t *Token) ConvertToPrincipal(u amount.Amount) (amount.Amount, error) {
	return t.conv.ToPrincipal(u, amount.RoundDown)
}

// PreviewRedeem simulates Redeem: zero before maturity, otherwise the
// floor conversion of p to underlying.
func (t *Token) PreviewRedeem(p amount.Amount) (amount.Amount, error) {
	if !t.Matured() {
		return amount.Zero(), nil
	}
	return t.conv.ToUnderlying(p, amount.RoundDown)
}

// PreviewWithdraw simulates Withdraw: zero before maturity, otherwise
// the ceiling conversion of u to principal. The ceiling is deliberate
// and opposite to PreviewRedeem so chaining previews can never extract
// more value than the holder is entitled to.
func (t *Token) PreviewWithdraw(u amount.Amount) (amount.Amount, error) {
	if !t.Matured() {
		return amount.Zero(), nil
	}
	return t.conv.ToPrincipal(u, amount.RoundUp)
}

// MaxRedeem returns the most principal owner can redeem right now:
// zero before maturity, the full balance after.
func (t *Token) MaxRedeem(owner string) amount.Amount {
	if !t.Matured() {
		return amount.Zero()
	}
	return t.ledger.BalanceOf(owner)
}

// MaxWithdraw is PreviewWithdraw composed over MaxRedeem, never an
// independent computation, so it stays consistent with the redeem-side
// conversion whatever Converter is installed.
func (t *Token) MaxWithdraw(owner string) (amount.Amount, error) {
	return t.PreviewWithdraw(t.MaxRedeem(owner))
}

// Redeem burns p principal from `from` and releases the converted
// underlying to `to`. When caller differs from `from`, p is consumed
// from the (from, caller) allowance first. Every effect is staged in
// one ledger update: a failed outbound transfer rolls back the burn and
// the allowance consumption together, and the Record is published only
// after the update commits.
func (t *Token) Redeem(caller, from, to string, p amount.Amount) (amount.Amount, error) {
	if caller == "" || from == "" || to == "" {
		return amount.Zero(), ErrBadAccount
	}
	if err := t.requireMatured(); err != nil {
		return amount.Zero(), err
	}

	var underlying amount.Amount
	err := t.ledger.Update(func(v *ledger.View) error {
		if caller != from {
			if err := v.DecreaseAllowance(from, caller, p); err != nil {
				return err
			}
		}
		var err error
		underlying, err = t.conv.ToUnderlying(p, amount.RoundDown)
		if err != nil {
			return err
		}
		if underlying.IsZero() {
			return ErrZeroAssets
		}
		if err := v.Burn(from, p); err != nil {
			return err
		}
		// Outbound transfer last: its failure discards the staged
		// allowance consumption and burn.
		return t.mover.TransferOut(to, underlying)
	})
	if err != nil {
		return amount.Zero(), err
	}

	t.record(Record{From: from, To: to, Principal: p, Underlying: underlying, Time: t.now()})
	return underlying, nil
}

// Withdraw is the exact-output counterpart of Redeem: the caller names
// the underlying amount and the engine computes the principal to burn,
// rounding up.
func (t *Token) Withdraw(caller, from, to string, u amount.Amount) (amount.Amount, error) {
	if caller == "" || from == "" || to == "" {
		return amount.Zero(), ErrBadAccount
	}
	if err := t.requireMatured(); err != nil {
		return amount.Zero(), err
	}

	p, err := t.conv.ToPrincipal(u, amount.RoundUp)
	if err != nil {
		return amount.Zero(), err
	}

	err = t.ledger.Update(func(v *ledger.View) error {
		if caller != from {
			if err := v.DecreaseAllowance(from, caller, p); err != nil {
				return err
			}
		}
		if u.IsZero() {
			return ErrZeroAssets
		}
		if err := v.Burn(from, p); err != nil {
			return err
		}
		return t.mover.TransferOut(to, u)
	})
	if err != nil {
		return amount.Zero(), err
	}

	t.record(Record{From: from, To: to, Principal: p, Underlying: u, Time: t.now()})
	return p, nil
}

func (t *Token) record(rec Record) {
	if t.recorder != nil {
		t.recorder.RecordRedeem(rec)
	}
}
