package principal

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yieldprotocol/principald/internal/core/amount"
)

func TestIdentityConverter(t *testing.T) {
	conv := Identity{}
	for _, x := range []uint64{0, 1, 12345} {
		u, err := conv.ToUnderlying(amount.FromUint64(x), amount.RoundDown)
		require.NoError(t, err)
		assert.True(t, u.Equal(amount.FromUint64(x)))

		p, err := conv.ToPrincipal(amount.FromUint64(x), amount.RoundUp)
		require.NoError(t, err)
		assert.True(t, p.Equal(amount.FromUint64(x)))
	}
}

func TestRateConverterFloorNeverExceedsExact(t *testing.T) {
	conv := Rate{Num: 7, Den: 13}

	tests := []struct {
		principal uint64
		floor     string // exact = principal*7/13
		ceil      string
	}{
		{13, "7", "7"},
		{1, "0", "1"},
		{2, "1", "2"},   // 1.0769...
		{100, "53", "54"}, // 53.846...
	}
	for _, tt := range tests {
		down, err := conv.ToUnderlying(amount.FromUint64(tt.principal), amount.RoundDown)
		require.NoError(t, err)
		assert.Equal(t, tt.floor, down.String(), "floor of %d", tt.principal)

		up, err := conv.ToUnderlying(amount.FromUint64(tt.principal), amount.RoundUp)
		require.NoError(t, err)
		assert.Equal(t, tt.ceil, up.String(), "ceil of %d", tt.principal)
	}
}

func TestRateConverterInverseDirection(t *testing.T) {
	conv := Rate{Num: 7, Den: 13}

	// 7 underlying = exactly 13 principal.
	p, err := conv.ToPrincipal(amount.FromUint64(7), amount.RoundUp)
	require.NoError(t, err)
	assert.Equal(t, "13", p.String())

	// 1 underlying = 1.857 principal: ceil 2, floor 1.
	p, err = conv.ToPrincipal(amount.FromUint64(1), amount.RoundUp)
	require.NoError(t, err)
	assert.Equal(t, "2", p.String())
	p, err = conv.ToPrincipal(amount.FromUint64(1), amount.RoundDown)
	require.NoError(t, err)
	assert.Equal(t, "1", p.String())
}
