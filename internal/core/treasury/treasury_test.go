package treasury

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yieldprotocol/principald/internal/core/amount"
)

func TestFundAndTransferOut(t *testing.T) {
	tr := New("DAI")
	assert.Equal(t, "DAI", tr.Asset())
	require.NoError(t, tr.Fund(amount.FromUint64(1000)))
	assert.Equal(t, "1000", tr.Reserve().String())

	require.NoError(t, tr.TransferOut("alice", amount.FromUint64(400)))
	assert.Equal(t, "600", tr.Reserve().String())
}

func TestTransferOutInsufficientReserve(t *testing.T) {
	tr := New("DAI")
	require.NoError(t, tr.Fund(amount.FromUint64(100)))

	err := tr.TransferOut("alice", amount.FromUint64(101))
	assert.ErrorIs(t, err, ErrTransferFailed)
	// A failed transfer leaves the reserve untouched.
	assert.Equal(t, "100", tr.Reserve().String())
}

func TestTransferOutRecipientRejected(t *testing.T) {
	tr := New("DAI")
	require.NoError(t, tr.Fund(amount.FromUint64(100)))
	tr.SetRecipientCheck(func(to string, amt amount.Amount) error {
		if to == "blocked" {
			return errors.New("sanctioned recipient")
		}
		return nil
	})

	assert.ErrorIs(t, tr.TransferOut("blocked", amount.FromUint64(10)), ErrTransferFailed)
	assert.Equal(t, "100", tr.Reserve().String())

	require.NoError(t, tr.TransferOut("alice", amount.FromUint64(10)))
	assert.Equal(t, "90", tr.Reserve().String())
}

func TestTransferOutEmptyRecipient(t *testing.T) {
	tr := New("DAI")
	require.NoError(t, tr.Fund(amount.FromUint64(100)))
	assert.ErrorIs(t, tr.TransferOut("", amount.FromUint64(1)), ErrTransferFailed)
}
