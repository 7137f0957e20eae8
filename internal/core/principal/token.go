// Package principal implements the redemption accounting engine for a
// principal token: a fixed claim on an underlying asset that becomes
// redeemable once maturity is reached.
//
// Gating policy, held consistently across the whole surface: the
// preview and max queries soft-return zero before maturity, and both
// mutating entry points (Redeem, Withdraw) are explicitly gated with
// ErrBeforeMaturity at the top of the call. Withdraw never relies on
// zero-propagation through the conversion math.
package principal

import (
	"errors"
	"time"

	"github.com/yieldprotocol/principald/internal/core/amount"
	"github.com/yieldprotocol/principald/internal/core/ledger"
	"github.com/yieldprotocol/principald/internal/core/treasury"
)

var (
	// ErrBeforeMaturity rejects redemption-triggering operations
	// while current time < maturity.
	ErrBeforeMaturity = errors.New("principal: before maturity")

	// ErrZeroAssets rejects redemptions whose converted underlying
	// value rounds to nothing, so dust never burns principal for free.
	ErrZeroAssets = errors.New("principal: zero assets")

	ErrBadAccount = errors.New("principal: bad account")
)

// Record is the observable log entry emitted on every successful
// redemption. It is append-only and never consulted for any decision.
type Record struct {
	From       string
	To         string
	Principal  amount.Amount
	Underlying amount.Amount
	Time       time.Time
}

// Recorder receives Records after the ledger effects of a redemption
// have committed.
type Recorder interface {
	RecordRedeem(rec Record)
}

// Token is a principal token: an immutable underlying-asset identity
// and maturity fixed at construction, layered over a fungible ledger
// and an asset mover. The zero value is not usable; construct with New.
type Token struct {
	underlying string
	maturity   time.Time

	conv     Converter
	ledger   *ledger.Ledger
	mover    treasury.AssetMover
	recorder Recorder
	now      func() time.Time
}

// Option configures a Token at construction time.
type Option func(*Token)

// WithConverter overrides the identity conversion policy.
func WithConverter(conv Converter) Option {
	return func(t *Token) { t.conv = conv }
}

// WithClock overrides the time source used for maturity gating.
func WithClock(now func() time.Time) Option {
	return func(t *Token) { t.now = now }
}

// WithRecorder installs a sink for redemption records.
func WithRecorder(rec Recorder) Option {
	return func(t *Token) { t.recorder = rec }
}

// New creates a principal token over the given collaborators. The
// underlying asset identity and maturity are fixed for the lifetime of
// the token.
func New(underlying string, maturity time.Time, l *ledger.Ledger, mover treasury.AssetMover, opts ...Option) *Token {
	t := &Token{
		underlying: underlying,
		maturity:   maturity,
		conv:       Identity{},
		ledger:     l,
		mover:      mover,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Underlying returns the identity of the underlying asset.
func (t *Token) Underlying() string {
	return t.underlying
}

// Maturity returns the timestamp at which redemption opens.
func (t *Token) Maturity() time.Time {
	return t.maturity
}

// Matured reports whether current time has reached maturity.
func (t *Token) Matured() bool {
	return !t.now().Before(t.maturity)
}

// requireMatured is the explicit guard at the top of every gated
// operation.
func (t *Token) requireMatured() error {
	if !t.Matured() {
		return ErrBeforeMaturity
	}
	return nil
}
