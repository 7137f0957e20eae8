package rpc

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yieldprotocol/principald/internal/core/amount"
	"github.com/yieldprotocol/principald/internal/core/ledger"
	"github.com/yieldprotocol/principald/internal/core/principal"
	"github.com/yieldprotocol/principald/internal/core/treasury"
	"github.com/yieldprotocol/principald/internal/journal"
)

const testMaturityRFC3339 = "2027-01-01T00:00:00Z"

// testFixture wires a full service set on in-memory components with a
// movable clock.
type testFixture struct {
	services *Services
	server   *Server
	clock    *time.Time
	journal  *journal.Journal
}

type journalRecorder struct {
	j *journal.Journal
}

func (r *journalRecorder) RecordRedeem(rec principal.Record) {
	r.j.Append(journal.Record{
		From:       rec.From,
		To:         rec.To,
		Principal:  rec.Principal,
		Underlying: rec.Underlying,
		Time:       rec.Time,
	})
}

func newTestFixture(t *testing.T) *testFixture {
	t.Helper()

	maturity, err := time.Parse(time.RFC3339, testMaturityRFC3339)
	require.NoError(t, err)

	now := maturity.Add(-time.Hour)
	clock := &now

	l := ledger.New()
	require.NoError(t, l.Mint("alice", amount.FromUint64(1000)))

	tr := treasury.New("DAI")
	require.NoError(t, tr.Fund(amount.FromUint64(10000)))

	j, err := journal.Open(journal.Config{Backend: "memory"})
	require.NoError(t, err)
	t.Cleanup(func() { j.Close() })

	token := principal.New("DAI", maturity, l, tr,
		principal.WithClock(func() time.Time { return *clock }),
		principal.WithRecorder(&journalRecorder{j: j}),
	)

	log := logrus.New()
	log.SetOutput(io.Discard)

	services := &Services{
		Token:    token,
		Ledger:   l,
		Treasury: tr,
		Journal:  j,
		Log:      log,
	}

	return &testFixture{
		services: services,
		server:   NewServer(services, 5*time.Second),
		clock:    clock,
		journal:  j,
	}
}

func (f *testFixture) mature() {
	*f.clock = f.services.Token.Maturity().Add(time.Minute)
}

// call posts one method and returns the decoded result object.
func (f *testFixture) call(t *testing.T, method string, params string) map[string]interface{} {
	t.Helper()

	body := `{"method":"` + method + `"`
	if params != "" {
		body += `,"params":[` + params + `]`
	}
	body += `}`

	req := httptest.NewRequest(http.MethodPost, "/", bytes.NewReader([]byte(body)))
	rec := httptest.NewRecorder()
	f.server.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var response struct {
		Result map[string]interface{} `json:"result"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &response))
	require.NotNil(t, response.Result)
	return response.Result
}

func TestServerRejectsUnknownMethod(t *testing.T) {
	f := newTestFixture(t)

	result := f.call(t, "no_such_method", "")
	assert.Equal(t, "error", result["status"])
	assert.Equal(t, "unknownCmd", result["error"])
	assert.Equal(t, float64(RpcMETHOD_NOT_FOUND), result["error_code"])
}

func TestServerRejectsMissingMethod(t *testing.T) {
	f := newTestFixture(t)

	req := httptest.NewRequest(http.MethodPost, "/", bytes.NewReader([]byte(`{}`)))
	rec := httptest.NewRecorder()
	f.server.ServeHTTP(rec, req)

	var response struct {
		Result map[string]interface{} `json:"result"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &response))
	assert.Equal(t, "missingCommand", response.Result["error"])
}

func TestServerRejectsInvalidJSON(t *testing.T) {
	f := newTestFixture(t)

	req := httptest.NewRequest(http.MethodPost, "/", bytes.NewReader([]byte(`{not json`)))
	rec := httptest.NewRecorder()
	f.server.ServeHTTP(rec, req)

	var response struct {
		Result map[string]interface{} `json:"result"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &response))
	assert.Equal(t, "jsonInvalid", response.Result["error"])
}

func TestServerGetServesTokenInfo(t *testing.T) {
	f := newTestFixture(t)

	req := httptest.NewRequest(http.MethodGet, "/?command=token_info", nil)
	rec := httptest.NewRecorder()
	f.server.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var response struct {
		Result map[string]interface{} `json:"result"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &response))
	assert.Equal(t, "success", response.Result["status"])
	assert.Equal(t, "DAI", response.Result["underlying"])
	assert.Equal(t, testMaturityRFC3339, response.Result["maturity"])
	assert.Equal(t, false, response.Result["matured"])
}

func TestServerInfo(t *testing.T) {
	f := newTestFixture(t)

	result := f.call(t, "server_info", "")
	require.Equal(t, "success", result["status"])

	info, ok := result["info"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "DAI", info["underlying"])
	assert.Equal(t, "1000", info["total_supply"])
	assert.Equal(t, "10000", info["reserve"])
}

func TestPing(t *testing.T) {
	f := newTestFixture(t)

	result := f.call(t, "ping", "")
	assert.Equal(t, "success", result["status"])
}
