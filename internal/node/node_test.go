package node

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yieldprotocol/principald/internal/config"
	"github.com/yieldprotocol/principald/internal/core/amount"
)

func testConfig(maturity string) *config.Config {
	return &config.Config{
		Token: config.TokenConfig{
			Underlying: "DAI",
			Maturity:   maturity,
			RateNum:    1,
			RateDen:    1,
		},
		Genesis: config.GenesisConfig{
			Allocations: map[string]string{"alice": "1000"},
			Reserve:     "10000",
		},
		Journal: config.JournalConfig{
			Backend:     "memory",
			Compression: "none",
		},
		Server: config.ServerConfig{
			Host:           "127.0.0.1",
			RPCPort:        5005,
			WSPort:         6006,
			MetricsPort:    9090,
			TimeoutSeconds: 5,
		},
	}
}

func quietLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func TestNewNodeSeedsGenesisState(t *testing.T) {
	n, err := New(testConfig("2027-01-01T00:00:00Z"), quietLogger())
	require.NoError(t, err)
	defer n.Close()

	assert.True(t, n.ledger.BalanceOf("alice").Equal(amount.FromUint64(1000)))
	assert.True(t, n.ledger.TotalSupply().Equal(amount.FromUint64(1000)))
	assert.True(t, n.treasury.Reserve().Equal(amount.FromUint64(10000)))
	assert.Equal(t, "DAI", n.token.Underlying())
	assert.Equal(t, uint64(0), n.journal.Len())
}

func TestNodeRecordsRedemptions(t *testing.T) {
	// Maturity in the past so redemption is open immediately.
	n, err := New(testConfig("2020-01-01T00:00:00Z"), quietLogger())
	require.NoError(t, err)
	defer n.Close()

	u, err := n.Token().Redeem("alice", "alice", "alice", amount.FromUint64(100))
	require.NoError(t, err)
	assert.True(t, u.Equal(amount.FromUint64(100)))

	require.Equal(t, uint64(1), n.Journal().Len())

	rec, err := n.Journal().Get(1)
	require.NoError(t, err)
	assert.Equal(t, "alice", rec.From)
	assert.True(t, rec.Principal.Equal(amount.FromUint64(100)))
	assert.True(t, rec.Underlying.Equal(amount.FromUint64(100)))
}

func TestNodeAppliesRateConverter(t *testing.T) {
	cfg := testConfig("2020-01-01T00:00:00Z")
	cfg.Token.RateNum = 3
	cfg.Token.RateDen = 10

	n, err := New(cfg, quietLogger())
	require.NoError(t, err)
	defer n.Close()

	u, err := n.Token().PreviewRedeem(amount.FromUint64(7))
	require.NoError(t, err)
	assert.True(t, u.Equal(amount.FromUint64(2)), "floor of 7*3/10")
}

func TestNewNodeRejectsMalformedGenesis(t *testing.T) {
	cfg := testConfig("2027-01-01T00:00:00Z")
	cfg.Genesis.Allocations = map[string]string{"alice": "many"}

	_, err := New(cfg, quietLogger())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "genesis allocation")
}

func TestNewNodeRejectsMalformedMaturity(t *testing.T) {
	cfg := testConfig("soon")

	_, err := New(cfg, quietLogger())
	require.Error(t, err)
}

func TestNodeCloseIsIdempotent(t *testing.T) {
	n, err := New(testConfig("2027-01-01T00:00:00Z"), quietLogger())
	require.NoError(t, err)

	require.NoError(t, n.Close())
	require.NoError(t, n.Close())
}

func TestNodeRunStopsOnCancel(t *testing.T) {
	cfg := testConfig("2027-01-01T00:00:00Z")
	// High ports to avoid clashing with anything local.
	cfg.Server.RPCPort = 45005
	cfg.Server.WSPort = 45006
	cfg.Server.MetricsPort = 45007

	n, err := New(cfg, quietLogger())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- n.Run(ctx) }()

	time.Sleep(200 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("node did not stop after cancel")
	}
}
