// Package ledger implements the fungible principal-token ledger: per-account
// balances, delegated allowances and total supply, with the conservation
// invariant that the sum of balances always equals total supply.
package ledger

import (
	"errors"
	"sync"

	"github.com/yieldprotocol/principald/internal/core/amount"
)

var (
	ErrInsufficientBalance   = errors.New("ledger: insufficient balance")
	ErrInsufficientAllowance = errors.New("ledger: insufficient allowance")
	ErrBadAccount            = errors.New("ledger: bad account")
)

type allowanceKey struct {
	owner   string
	spender string
}

// Ledger is an in-memory fungible token ledger. All entry points are
// safe for concurrent use; mutating batches go through Update, which
// stages changes and commits them only if the whole batch succeeds.
type Ledger struct {
	mu         sync.RWMutex
	balances   map[string]amount.Amount
	allowances map[allowanceKey]amount.Amount
	supply     amount.Amount
}

func New() *Ledger {
	return &Ledger{
		balances:   make(map[string]amount.Amount),
		allowances: make(map[allowanceKey]amount.Amount),
	}
}

// BalanceOf returns the principal balance of an account. Unknown
// accounts have a zero balance.
func (l *Ledger) BalanceOf(account string) amount.Amount {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.balances[account]
}

// TotalSupply returns the sum of all balances.
func (l *Ledger) TotalSupply() amount.Amount {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.supply
}

// Allowance returns the remaining spend granted by owner to spender.
func (l *Ledger) Allowance(owner, spender string) amount.Amount {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.allowances[allowanceKey{owner, spender}]
}

// Approve sets the allowance of spender over owner's balance. Passing
// amount.Unlimited() grants an allowance that is never decremented.
func (l *Ledger) Approve(owner, spender string, amt amount.Amount) error {
	if owner == "" || spender == "" {
		return ErrBadAccount
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.allowances[allowanceKey{owner, spender}] = amt
	return nil
}

// Mint credits an account and grows total supply.
func (l *Ledger) Mint(account string, amt amount.Amount) error {
	if account == "" {
		return ErrBadAccount
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	newBal, err := l.balances[account].Add(amt)
	if err != nil {
		return err
	}
	newSupply, err := l.supply.Add(amt)
	if err != nil {
		return err
	}
	l.balances[account] = newBal
	l.supply = newSupply
	return nil
}

// Burn debits an account and shrinks total supply.
func (l *Ledger) Burn(account string, amt amount.Amount) error {
	return l.Update(func(v *View) error {
		return v.Burn(account, amt)
	})
}

// Transfer moves principal between accounts without touching supply.
func (l *Ledger) Transfer(from, to string, amt amount.Amount) error {
	return l.Update(func(v *View) error {
		return v.Transfer(from, to, amt)
	})
}

// DecreaseAllowance consumes part of an allowance.
func (l *Ledger) DecreaseAllowance(owner, spender string, amt amount.Amount) error {
	return l.Update(func(v *View) error {
		return v.DecreaseAllowance(owner, spender, amt)
	})
}

// Update runs fn against a change-tracked view of the ledger. Mutations
// made through the view are staged; they become visible only when fn
// returns nil. Any error discards every staged change. The ledger lock
// is held for the duration, so a batch is never observed half-applied.
func (l *Ledger) Update(fn func(v *View) error) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	v := &View{
		base:       l,
		balances:   make(map[string]amount.Amount),
		allowances: make(map[allowanceKey]amount.Amount),
		supply:     l.supply,
	}
	if err := fn(v); err != nil {
		return err
	}
	for account, bal := range v.balances {
		l.balances[account] = bal
	}
	for key, allowed := range v.allowances {
		l.allowances[key] = allowed
	}
	l.supply = v.supply
	return nil
}
