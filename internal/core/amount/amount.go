package amount

import (
	"errors"
	"fmt"

	"github.com/holiman/uint256"
)

// Amount is an unsigned 256-bit token quantity. The zero value is zero.
type Amount struct {
	u uint256.Int
}

var (
	ErrOverflow  = errors.New("amount: overflow")
	ErrUnderflow = errors.New("amount: underflow")
	ErrMalformed = errors.New("amount: malformed")
)

// unlimited is the 2^256-1 sentinel used for unlimited allowances.
var unlimited = func() uint256.Int {
	var u uint256.Int
	u.SetAllOne()
	return u
}()

func Zero() Amount {
	return Amount{}
}

func FromUint64(v uint64) Amount {
	var a Amount
	a.u.SetUint64(v)
	return a
}

// Unlimited returns the sentinel value treated as an unlimited allowance.
func Unlimited() Amount {
	return Amount{u: unlimited}
}

// Parse parses a decimal string.
func Parse(s string) (Amount, error) {
	var a Amount
	if err := a.u.SetFromDecimal(s); err != nil {
		return Amount{}, fmt.Errorf("%w: %q: %v", ErrMalformed, s, err)
	}
	return a, nil
}

// MustParse is Parse for compile-time constants; panics on bad input.
func MustParse(s string) Amount {
	a, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return a
}

func (a Amount) IsZero() bool {
	return a.u.IsZero()
}

func (a Amount) IsUnlimited() bool {
	return a.u.Eq(&unlimited)
}

func (a Amount) Equal(b Amount) bool {
	return a.u.Eq(&b.u)
}

// Cmp returns -1, 0 or 1 comparing a against b.
func (a Amount) Cmp(b Amount) int {
	return a.u.Cmp(&b.u)
}

func (a Amount) Add(b Amount) (Amount, error) {
	var z Amount
	if _, overflow := z.u.AddOverflow(&a.u, &b.u); overflow {
		return Amount{}, ErrOverflow
	}
	return z, nil
}

// Sub returns a-b, failing rather than wrapping when b > a.
func (a Amount) Sub(b Amount) (Amount, error) {
	if a.u.Cmp(&b.u) < 0 {
		return Amount{}, ErrUnderflow
	}
	var z Amount
	z.u.Sub(&a.u, &b.u)
	return z, nil
}

// Rounding selects the direction fractional results are resolved in.
type Rounding int

const (
	RoundDown Rounding = iota
	RoundUp
)

// MulDiv returns a*num/den with the requested rounding. den must be nonzero.
func (a Amount) MulDiv(num, den uint64, round Rounding) (Amount, error) {
	if den == 0 {
		return Amount{}, fmt.Errorf("%w: zero denominator", ErrMalformed)
	}
	var prod uint256.Int
	if _, overflow := prod.MulOverflow(&a.u, uint256.NewInt(num)); overflow {
		return Amount{}, ErrOverflow
	}
	d := uint256.NewInt(den)
	var q, r uint256.Int
	q.Div(&prod, d)
	r.Mod(&prod, d)
	if round == RoundUp && !r.IsZero() {
		if _, overflow := q.AddOverflow(&q, uint256.NewInt(1)); overflow {
			return Amount{}, ErrOverflow
		}
	}
	return Amount{u: q}, nil
}

// Uint64 returns the low 64 bits and whether the value fits in them.
func (a Amount) Uint64() (uint64, bool) {
	return a.u.Uint64(), a.u.IsUint64()
}

// String renders the amount as a decimal string.
func (a Amount) String() string {
	return a.u.Dec()
}

// MarshalText/UnmarshalText make amounts decimal strings in JSON and TOML.
func (a Amount) MarshalText() ([]byte, error) {
	return []byte(a.u.Dec()), nil
}

func (a *Amount) UnmarshalText(text []byte) error {
	parsed, err := Parse(string(text))
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}
