package ledger

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yieldprotocol/principald/internal/core/amount"
)

func TestMintAndConservation(t *testing.T) {
	l := New()
	require.NoError(t, l.Mint("alice", amount.FromUint64(1000)))
	require.NoError(t, l.Mint("bob", amount.FromUint64(500)))

	assert.Equal(t, "1000", l.BalanceOf("alice").String())
	assert.Equal(t, "500", l.BalanceOf("bob").String())
	assert.Equal(t, "1500", l.TotalSupply().String())
	assert.True(t, l.BalanceOf("unknown").IsZero())
}

func TestBurn(t *testing.T) {
	l := New()
	require.NoError(t, l.Mint("alice", amount.FromUint64(1000)))

	require.NoError(t, l.Burn("alice", amount.FromUint64(400)))
	assert.Equal(t, "600", l.BalanceOf("alice").String())
	assert.Equal(t, "600", l.TotalSupply().String())

	err := l.Burn("alice", amount.FromUint64(601))
	assert.ErrorIs(t, err, ErrInsufficientBalance)
	// Failed burn leaves state untouched.
	assert.Equal(t, "600", l.BalanceOf("alice").String())
	assert.Equal(t, "600", l.TotalSupply().String())
}

func TestTransfer(t *testing.T) {
	l := New()
	require.NoError(t, l.Mint("alice", amount.FromUint64(100)))

	require.NoError(t, l.Transfer("alice", "bob", amount.FromUint64(30)))
	assert.Equal(t, "70", l.BalanceOf("alice").String())
	assert.Equal(t, "30", l.BalanceOf("bob").String())
	assert.Equal(t, "100", l.TotalSupply().String())

	assert.ErrorIs(t, l.Transfer("alice", "bob", amount.FromUint64(71)), ErrInsufficientBalance)
	assert.ErrorIs(t, l.Transfer("", "bob", amount.FromUint64(1)), ErrBadAccount)
}

func TestSelfTransferConservesBalance(t *testing.T) {
	l := New()
	require.NoError(t, l.Mint("alice", amount.FromUint64(100)))

	require.NoError(t, l.Transfer("alice", "alice", amount.FromUint64(40)))
	assert.Equal(t, "100", l.BalanceOf("alice").String())
	assert.Equal(t, "100", l.TotalSupply().String())

	// Still bounded by the balance.
	assert.ErrorIs(t, l.Transfer("alice", "alice", amount.FromUint64(101)), ErrInsufficientBalance)
	assert.Equal(t, "100", l.BalanceOf("alice").String())
}

func TestAllowanceConsumption(t *testing.T) {
	l := New()
	require.NoError(t, l.Approve("alice", "spender", amount.FromUint64(50)))
	assert.Equal(t, "50", l.Allowance("alice", "spender").String())

	require.NoError(t, l.DecreaseAllowance("alice", "spender", amount.FromUint64(20)))
	assert.Equal(t, "30", l.Allowance("alice", "spender").String())

	err := l.DecreaseAllowance("alice", "spender", amount.FromUint64(31))
	assert.ErrorIs(t, err, ErrInsufficientAllowance)
	assert.Equal(t, "30", l.Allowance("alice", "spender").String())
}

func TestUnlimitedAllowanceNeverDecremented(t *testing.T) {
	l := New()
	require.NoError(t, l.Approve("alice", "spender", amount.Unlimited()))

	require.NoError(t, l.DecreaseAllowance("alice", "spender", amount.FromUint64(1_000_000)))
	assert.True(t, l.Allowance("alice", "spender").IsUnlimited())
}

func TestUpdateRollsBackOnError(t *testing.T) {
	l := New()
	require.NoError(t, l.Mint("alice", amount.FromUint64(100)))
	require.NoError(t, l.Approve("alice", "spender", amount.FromUint64(50)))

	boom := errors.New("boom")
	err := l.Update(func(v *View) error {
		require.NoError(t, v.DecreaseAllowance("alice", "spender", amount.FromUint64(50)))
		require.NoError(t, v.Burn("alice", amount.FromUint64(100)))
		// Everything staged so far must be discarded.
		return boom
	})
	assert.ErrorIs(t, err, boom)

	assert.Equal(t, "100", l.BalanceOf("alice").String())
	assert.Equal(t, "50", l.Allowance("alice", "spender").String())
	assert.Equal(t, "100", l.TotalSupply().String())
}

func TestViewReadsSeeStagedWrites(t *testing.T) {
	l := New()
	require.NoError(t, l.Mint("alice", amount.FromUint64(100)))

	require.NoError(t, l.Update(func(v *View) error {
		require.NoError(t, v.Burn("alice", amount.FromUint64(40)))
		assert.Equal(t, "60", v.BalanceOf("alice").String())
		assert.Equal(t, "60", v.TotalSupply().String())
		return nil
	}))
	assert.Equal(t, "60", l.BalanceOf("alice").String())
}
