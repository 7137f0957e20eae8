package principal

import (
	"github.com/yieldprotocol/principald/internal/core/amount"
)

// Converter is the extension point for fee- or rate-bearing principal
// variants. ToUnderlying prices principal in underlying units and
// ToPrincipal prices underlying in principal units; the two are not
// required to be exact inverses, so a variant may charge asymmetric
// fees. Implementations honor the requested rounding direction exactly.
type Converter interface {
	ToUnderlying(p amount.Amount, round amount.Rounding) (amount.Amount, error)
	ToPrincipal(u amount.Amount, round amount.Rounding) (amount.Amount, error)
}

// Identity is the base policy: one principal unit is one underlying
// unit in both directions. Rounding never matters because no fraction
// ever arises.
type Identity struct{}

func (Identity) ToUnderlying(p amount.Amount, _ amount.Rounding) (amount.Amount, error) {
	return p, nil
}

func (Identity) ToPrincipal(u amount.Amount, _ amount.Rounding) (amount.Amount, error) {
	return u, nil
}

// Rate converts at the rational exchange rate Num/Den underlying per
// principal. A rate below one models a redemption fee.
type Rate struct {
	Num uint64
	Den uint64
}

func (r Rate) ToUnderlying(p amount.Amount, round amount.Rounding) (amount.Amount, error) {
	return p.MulDiv(r.Num, r.Den, round)
}

func (r Rate) ToPrincipal(u amount.Amount, round amount.Rounding) (amount.Amount, error) {
	return u.MulDiv(r.Den, r.Num, round)
}
