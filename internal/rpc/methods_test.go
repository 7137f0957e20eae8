package rpc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yieldprotocol/principald/internal/core/amount"
)

func TestConvertMethodsAreNotGated(t *testing.T) {
	f := newTestFixture(t)

	// Still before maturity: conversions answer, previews return zero.
	result := f.call(t, "convert_to_underlying", `{"principal":"100"}`)
	require.Equal(t, "success", result["status"])
	assert.Equal(t, "100", result["underlying"])

	result = f.call(t, "convert_to_principal", `{"underlying":"100"}`)
	require.Equal(t, "success", result["status"])
	assert.Equal(t, "100", result["principal"])

	result = f.call(t, "preview_redeem", `{"principal":"100"}`)
	require.Equal(t, "success", result["status"])
	assert.Equal(t, "0", result["underlying"])

	result = f.call(t, "preview_withdraw", `{"underlying":"100"}`)
	require.Equal(t, "success", result["status"])
	assert.Equal(t, "0", result["principal"])
}

func TestPreviewMethodsAfterMaturity(t *testing.T) {
	f := newTestFixture(t)
	f.mature()

	result := f.call(t, "preview_redeem", `{"principal":"100"}`)
	assert.Equal(t, "100", result["underlying"])

	result = f.call(t, "preview_withdraw", `{"underlying":"100"}`)
	assert.Equal(t, "100", result["principal"])
}

func TestMaxMethods(t *testing.T) {
	f := newTestFixture(t)

	result := f.call(t, "max_redeem", `{"owner":"alice"}`)
	assert.Equal(t, "0", result["principal"])

	f.mature()

	result = f.call(t, "max_redeem", `{"owner":"alice"}`)
	assert.Equal(t, "1000", result["principal"])

	result = f.call(t, "max_withdraw", `{"owner":"alice"}`)
	assert.Equal(t, "1000", result["underlying"])

	result = f.call(t, "max_redeem", `{"owner":"nobody"}`)
	assert.Equal(t, "0", result["principal"])
}

func TestMaxRedeemRequiresOwner(t *testing.T) {
	f := newTestFixture(t)

	result := f.call(t, "max_redeem", `{}`)
	assert.Equal(t, "error", result["status"])
	assert.Equal(t, "invalidParams", result["error"])
}

func TestRedeemBeforeMaturityErrorCode(t *testing.T) {
	f := newTestFixture(t)

	result := f.call(t, "redeem", `{"caller":"alice","principal":"100"}`)
	assert.Equal(t, "error", result["status"])
	assert.Equal(t, "notMatured", result["error"])
	assert.Equal(t, float64(RpcNOT_MATURED), result["error_code"])

	// Nothing was burned.
	assert.True(t, f.services.Ledger.BalanceOf("alice").Equal(amount.FromUint64(1000)))
}

func TestRedeemAfterMaturity(t *testing.T) {
	f := newTestFixture(t)
	f.mature()

	result := f.call(t, "redeem", `{"caller":"alice","principal":"100"}`)
	require.Equal(t, "success", result["status"])
	assert.Equal(t, "alice", result["from"])
	assert.Equal(t, "alice", result["to"])
	assert.Equal(t, "100", result["underlying"])

	assert.True(t, f.services.Ledger.BalanceOf("alice").Equal(amount.FromUint64(900)))
	assert.True(t, f.services.Treasury.Reserve().Equal(amount.FromUint64(9900)))
	assert.Equal(t, uint64(1), f.journal.Len())
}

func TestRedeemInsufficientBalanceErrorCode(t *testing.T) {
	f := newTestFixture(t)
	f.mature()

	result := f.call(t, "redeem", `{"caller":"alice","principal":"5000"}`)
	assert.Equal(t, "insufficientBalance", result["error"])
	assert.Equal(t, float64(RpcINSUFFICIENT_BALANCE), result["error_code"])
}

func TestRedeemZeroAssetsErrorCode(t *testing.T) {
	f := newTestFixture(t)
	f.mature()

	result := f.call(t, "redeem", `{"caller":"alice","principal":"0"}`)
	assert.Equal(t, "zeroAssets", result["error"])
	assert.Equal(t, float64(RpcZERO_ASSETS), result["error_code"])
}

func TestDelegatedRedeemOverRPC(t *testing.T) {
	f := newTestFixture(t)
	f.mature()

	result := f.call(t, "approve", `{"owner":"alice","spender":"bob","amount":"50"}`)
	require.Equal(t, "success", result["status"])

	// Beyond the allowance.
	result = f.call(t, "redeem", `{"caller":"bob","from":"alice","to":"bob","principal":"51"}`)
	assert.Equal(t, "insufficientAllowance", result["error"])
	assert.Equal(t, float64(RpcINSUFFICIENT_ALLOWANCE), result["error_code"])

	// Exactly the allowance.
	result = f.call(t, "redeem", `{"caller":"bob","from":"alice","to":"bob","principal":"50"}`)
	require.Equal(t, "success", result["status"])

	result = f.call(t, "allowance", `{"owner":"alice","spender":"bob"}`)
	assert.Equal(t, "0", result["allowance"])
}

func TestApproveUnlimited(t *testing.T) {
	f := newTestFixture(t)

	result := f.call(t, "approve", `{"owner":"alice","spender":"bob","amount":"unlimited"}`)
	require.Equal(t, "success", result["status"])

	result = f.call(t, "allowance", `{"owner":"alice","spender":"bob"}`)
	assert.Equal(t, true, result["unlimited"])
}

func TestWithdrawOverRPC(t *testing.T) {
	f := newTestFixture(t)
	f.mature()

	result := f.call(t, "withdraw", `{"caller":"alice","underlying":"100"}`)
	require.Equal(t, "success", result["status"])
	assert.Equal(t, "100", result["principal"])
	assert.Equal(t, "100", result["underlying"])

	assert.True(t, f.services.Ledger.BalanceOf("alice").Equal(amount.FromUint64(900)))
}

func TestBalanceOf(t *testing.T) {
	f := newTestFixture(t)

	result := f.call(t, "balance_of", `{"account":"alice"}`)
	assert.Equal(t, "1000", result["balance"])

	result = f.call(t, "balance_of", `{"account":"nobody"}`)
	assert.Equal(t, "0", result["balance"])
}

func TestMalformedAmountRejected(t *testing.T) {
	f := newTestFixture(t)

	result := f.call(t, "preview_redeem", `{"principal":"12x"}`)
	assert.Equal(t, "malformedAmount", result["error"])
	assert.Equal(t, float64(RpcMALFORMED_AMOUNT), result["error_code"])

	result = f.call(t, "preview_redeem", `{}`)
	assert.Equal(t, "invalidParams", result["error"])
}

func TestRecordsMethods(t *testing.T) {
	f := newTestFixture(t)
	f.mature()

	for i := 0; i < 3; i++ {
		result := f.call(t, "redeem", `{"caller":"alice","principal":"10"}`)
		require.Equal(t, "success", result["status"])
	}

	result := f.call(t, "records", `{"start":1,"limit":10}`)
	require.Equal(t, "success", result["status"])
	assert.Equal(t, float64(3), result["count"])

	recs, ok := result["records"].([]interface{})
	require.True(t, ok)
	require.Len(t, recs, 3)

	first, ok := recs[0].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, float64(1), first["seq"])
	assert.Equal(t, "alice", first["from"])
	assert.Equal(t, "10", first["principal"])

	result = f.call(t, "record", `{"seq":2}`)
	require.Equal(t, "success", result["status"])
	assert.Equal(t, float64(2), result["seq"])

	result = f.call(t, "record", `{"seq":99}`)
	assert.Equal(t, "recordNotFound", result["error"])
	assert.Equal(t, float64(RpcRECORD_NOT_FOUND), result["error_code"])
}

func TestRecordsDefaultsToFullPage(t *testing.T) {
	f := newTestFixture(t)
	f.mature()

	for i := 0; i < 3; i++ {
		result := f.call(t, "redeem", `{"caller":"alice","principal":"10"}`)
		require.Equal(t, "success", result["status"])
	}

	// No params: everything up to the default page size comes back.
	result := f.call(t, "records", "")
	require.Equal(t, "success", result["status"])

	recs, ok := result["records"].([]interface{})
	require.True(t, ok)
	assert.Len(t, recs, 3)
}

func TestRecordsSurvivesHostileLimit(t *testing.T) {
	f := newTestFixture(t)
	f.mature()

	result := f.call(t, "redeem", `{"caller":"alice","principal":"10"}`)
	require.Equal(t, "success", result["status"])

	result = f.call(t, "records", `{"limit":-1}`)
	require.Equal(t, "success", result["status"])

	recs, ok := result["records"].([]interface{})
	require.True(t, ok)
	assert.Len(t, recs, 1)
}
