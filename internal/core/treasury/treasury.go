// Package treasury holds the reserve of the underlying asset and moves
// it out to redeeming holders. An outbound transfer either completes in
// full or fails with ErrTransferFailed and leaves the reserve untouched.
package treasury

import (
	"errors"
	"fmt"
	"sync"

	"github.com/yieldprotocol/principald/internal/core/amount"
)

var ErrTransferFailed = errors.New("treasury: transfer failed")

// AssetMover is the outbound side of the treasury as seen by the
// redemption engine.
type AssetMover interface {
	TransferOut(to string, amt amount.Amount) error
}

// RecipientCheck can veto an outbound transfer before funds move,
// e.g. for a recipient that cannot accept the asset.
type RecipientCheck func(to string, amt amount.Amount) error

// Treasury is an in-memory reserve of a single underlying asset.
type Treasury struct {
	mu      sync.RWMutex
	asset   string
	reserve amount.Amount
	check   RecipientCheck
}

func New(asset string) *Treasury {
	return &Treasury{asset: asset}
}

// Asset returns the identity of the underlying asset held.
func (t *Treasury) Asset() string {
	return t.asset
}

// Reserve returns the amount of underlying currently held.
func (t *Treasury) Reserve() amount.Amount {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.reserve
}

// Fund adds underlying to the reserve (operator top-up, genesis).
func (t *Treasury) Fund(amt amount.Amount) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	newReserve, err := t.reserve.Add(amt)
	if err != nil {
		return err
	}
	t.reserve = newReserve
	return nil
}

// SetRecipientCheck installs an optional veto hook on outbound transfers.
func (t *Treasury) SetRecipientCheck(check RecipientCheck) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.check = check
}

// TransferOut moves amt of the underlying asset to the recipient.
// Insufficient reserve and recipient rejection both surface as
// ErrTransferFailed so the caller treats the enclosing operation as
// failed regardless of cause.
func (t *Treasury) TransferOut(to string, amt amount.Amount) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if to == "" {
		return fmt.Errorf("%w: empty recipient", ErrTransferFailed)
	}
	if t.check != nil {
		if err := t.check(to, amt); err != nil {
			return fmt.Errorf("%w: recipient rejected: %v", ErrTransferFailed, err)
		}
	}
	newReserve, err := t.reserve.Sub(amt)
	if err != nil {
		return fmt.Errorf("%w: insufficient reserve", ErrTransferFailed)
	}
	t.reserve = newReserve
	return nil
}
