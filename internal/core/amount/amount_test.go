package amount

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAndString(t *testing.T) {
	tests := []struct {
		in      string
		wantErr bool
	}{
		{"0", false},
		{"1000000", false},
		{"115792089237316195423570985008687907853269984665640564039457584007913129639935", false}, // 2^256-1
		{"", true},
		{"-5", true},
		{"12abc", true},
	}

	for _, tt := range tests {
		a, err := Parse(tt.in)
		if tt.wantErr {
			assert.Error(t, err, "input %q", tt.in)
			continue
		}
		require.NoError(t, err, "input %q", tt.in)
		assert.Equal(t, tt.in, a.String())
	}
}

func TestUnlimitedSentinel(t *testing.T) {
	u := Unlimited()
	assert.True(t, u.IsUnlimited())
	assert.False(t, FromUint64(1).IsUnlimited())

	// The sentinel is exactly 2^256-1.
	max := MustParse("115792089237316195423570985008687907853269984665640564039457584007913129639935")
	assert.True(t, u.Equal(max))
}

func TestSubUnderflow(t *testing.T) {
	_, err := FromUint64(5).Sub(FromUint64(6))
	assert.ErrorIs(t, err, ErrUnderflow)

	z, err := FromUint64(6).Sub(FromUint64(6))
	require.NoError(t, err)
	assert.True(t, z.IsZero())
}

func TestAddOverflow(t *testing.T) {
	_, err := Unlimited().Add(FromUint64(1))
	assert.ErrorIs(t, err, ErrOverflow)
}

func TestMulDivRounding(t *testing.T) {
	// 10 * 1 / 3 = 3.33...
	down, err := FromUint64(10).MulDiv(1, 3, RoundDown)
	require.NoError(t, err)
	assert.Equal(t, "3", down.String())

	up, err := FromUint64(10).MulDiv(1, 3, RoundUp)
	require.NoError(t, err)
	assert.Equal(t, "4", up.String())

	// Exact division rounds the same way in both directions.
	exact, err := FromUint64(9).MulDiv(1, 3, RoundUp)
	require.NoError(t, err)
	assert.Equal(t, "3", exact.String())

	_, err = FromUint64(1).MulDiv(1, 0, RoundDown)
	assert.Error(t, err)
}

func TestMarshalText(t *testing.T) {
	b, err := FromUint64(42).MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "42", string(b))

	var a Amount
	require.NoError(t, a.UnmarshalText([]byte("42")))
	assert.True(t, a.Equal(FromUint64(42)))
}
