package rpc

import (
	"encoding/json"
	"time"

	"github.com/yieldprotocol/principald/internal/core/amount"
	"github.com/yieldprotocol/principald/internal/metrics"
)

// registerAllMethods sets up the complete method registry.
func (s *Server) registerAllMethods() {
	// Server methods
	s.registry.Register("ping", &PingMethod{})
	s.registry.Register("server_info", &ServerInfoMethod{})
	s.registry.Register("token_info", &TokenInfoMethod{})

	// Conversion and preview methods
	s.registry.Register("convert_to_underlying", &ConvertToUnderlyingMethod{})
	s.registry.Register("convert_to_principal", &ConvertToPrincipalMethod{})
	s.registry.Register("preview_redeem", &PreviewRedeemMethod{})
	s.registry.Register("preview_withdraw", &PreviewWithdrawMethod{})
	s.registry.Register("max_redeem", &MaxRedeemMethod{})
	s.registry.Register("max_withdraw", &MaxWithdrawMethod{})

	// Mutating methods
	s.registry.Register("redeem", &RedeemMethod{})
	s.registry.Register("withdraw", &WithdrawMethod{})
	s.registry.Register("approve", &ApproveMethod{})

	// Ledger query methods
	s.registry.Register("balance_of", &BalanceOfMethod{})
	s.registry.Register("allowance", &AllowanceMethod{})

	// Journal methods
	s.registry.Register("records", &RecordsMethod{})
	s.registry.Register("record", &RecordMethod{})
}

func parseParams(params json.RawMessage, into interface{}) *RpcError {
	if params == nil {
		return nil
	}
	if err := json.Unmarshal(params, into); err != nil {
		return RpcErrorInvalidParams("Invalid parameters: " + err.Error())
	}
	return nil
}

func parseAmount(field, value string) (amount.Amount, *RpcError) {
	if value == "" {
		return amount.Zero(), RpcErrorMissingField(field)
	}
	amt, err := amount.Parse(value)
	if err != nil {
		return amount.Zero(), RpcErrorMalformedAmount(field)
	}
	return amt, nil
}

// serverStartTime tracks when the server started for uptime reporting.
var serverStartTime = time.Now()

// PingMethod handles the ping RPC method.
type PingMethod struct{}

func (m *PingMethod) Handle(ctx *RpcContext, params json.RawMessage) (interface{}, *RpcError) {
	return map[string]interface{}{}, nil
}

// ServerInfoMethod handles the server_info RPC method.
type ServerInfoMethod struct{}

func (m *ServerInfoMethod) Handle(ctx *RpcContext, params json.RawMessage) (interface{}, *RpcError) {
	svc := ctx.Services

	info := map[string]interface{}{
		"build_version": "1.0.0-principald",
		"hostid":        "principald",
		"uptime":        int64(time.Since(serverStartTime).Seconds()),
		"underlying":    svc.Token.Underlying(),
		"maturity":      svc.Token.Maturity().UTC().Format(time.RFC3339),
		"matured":       svc.Token.Matured(),
		"total_supply":  svc.Ledger.TotalSupply().String(),
		"reserve":       svc.Treasury.Reserve().String(),
	}
	if svc.Journal != nil {
		info["record_count"] = svc.Journal.Len()
	}

	return map[string]interface{}{"info": info}, nil
}

// TokenInfoMethod handles the token_info RPC method.
type TokenInfoMethod struct{}

func (m *TokenInfoMethod) Handle(ctx *RpcContext, params json.RawMessage) (interface{}, *RpcError) {
	svc := ctx.Services

	return map[string]interface{}{
		"underlying":   svc.Token.Underlying(),
		"maturity":     svc.Token.Maturity().UTC().Format(time.RFC3339),
		"matured":      svc.Token.Matured(),
		"total_supply": svc.Ledger.TotalSupply().String(),
		"reserve":      svc.Treasury.Reserve().String(),
	}, nil
}

// ConvertToUnderlyingMethod handles the convert_to_underlying RPC method.
type ConvertToUnderlyingMethod struct{}

func (m *ConvertToUnderlyingMethod) Handle(ctx *RpcContext, params json.RawMessage) (interface{}, *RpcError) {
	var req struct {
		Principal string `json:"principal"`
	}
	if rpcErr := parseParams(params, &req); rpcErr != nil {
		return nil, rpcErr
	}

	p, rpcErr := parseAmount("principal", req.Principal)
	if rpcErr != nil {
		return nil, rpcErr
	}

	u, err := ctx.Services.Token.ConvertToUnderlying(p)
	if err != nil {
		return nil, engineError(err)
	}

	return map[string]interface{}{
		"principal":  p.String(),
		"underlying": u.String(),
	}, nil
}

// ConvertToPrincipalMethod handles the convert_to_principal RPC method.
type ConvertToPrincipalMethod struct{}

func (m *ConvertToPrincipalMethod) Handle(ctx *RpcContext, params json.RawMessage) (interface{}, *RpcError) {
	var req struct {
		Underlying string `json:"underlying"`
	}
	if rpcErr := parseParams(params, &req); rpcErr != nil {
		return nil, rpcErr
	}

	u, rpcErr := parseAmount("underlying", req.Underlying)
	if rpcErr != nil {
		return nil, rpcErr
	}

	p, err := ctx.Services.Token.ConvertToPrincipal(u)
	if err != nil {
		return nil, engineError(err)
	}

	return map[string]interface{}{
		"underlying": u.String(),
		"principal":  p.String(),
	}, nil
}

// PreviewRedeemMethod handles the preview_redeem RPC method.
type PreviewRedeemMethod struct{}

func (m *PreviewRedeemMethod) Handle(ctx *RpcContext, params json.RawMessage) (interface{}, *RpcError) {
	var req struct {
		Principal string `json:"principal"`
	}
	if rpcErr := parseParams(params, &req); rpcErr != nil {
		return nil, rpcErr
	}

	p, rpcErr := parseAmount("principal", req.Principal)
	if rpcErr != nil {
		return nil, rpcErr
	}

	u, err := ctx.Services.Token.PreviewRedeem(p)
	if err != nil {
		return nil, engineError(err)
	}

	return map[string]interface{}{
		"principal":  p.String(),
		"underlying": u.String(),
	}, nil
}

// PreviewWithdrawMethod handles the preview_withdraw RPC method.
type PreviewWithdrawMethod struct{}

func (m *PreviewWithdrawMethod) Handle(ctx *RpcContext, params json.RawMessage) (interface{}, *RpcError) {
	var req struct {
		Underlying string `json:"underlying"`
	}
	if rpcErr := parseParams(params, &req); rpcErr != nil {
		return nil, rpcErr
	}

	u, rpcErr := parseAmount("underlying", req.Underlying)
	if rpcErr != nil {
		return nil, rpcErr
	}

	p, err := ctx.Services.Token.PreviewWithdraw(u)
	if err != nil {
		return nil, engineError(err)
	}

	return map[string]interface{}{
		"underlying": u.String(),
		"principal":  p.String(),
	}, nil
}

// MaxRedeemMethod handles the max_redeem RPC method.
type MaxRedeemMethod struct{}

func (m *MaxRedeemMethod) Handle(ctx *RpcContext, params json.RawMessage) (interface{}, *RpcError) {
	var req struct {
		Owner string `json:"owner"`
	}
	if rpcErr := parseParams(params, &req); rpcErr != nil {
		return nil, rpcErr
	}
	if req.Owner == "" {
		return nil, RpcErrorMissingField("owner")
	}

	p := ctx.Services.Token.MaxRedeem(req.Owner)

	return map[string]interface{}{
		"owner":     req.Owner,
		"principal": p.String(),
	}, nil
}

// MaxWithdrawMethod handles the max_withdraw RPC method.
type MaxWithdrawMethod struct{}

func (m *MaxWithdrawMethod) Handle(ctx *RpcContext, params json.RawMessage) (interface{}, *RpcError) {
	var req struct {
		Owner string `json:"owner"`
	}
	if rpcErr := parseParams(params, &req); rpcErr != nil {
		return nil, rpcErr
	}
	if req.Owner == "" {
		return nil, RpcErrorMissingField("owner")
	}

	u, err := ctx.Services.Token.MaxWithdraw(req.Owner)
	if err != nil {
		return nil, engineError(err)
	}

	return map[string]interface{}{
		"owner":      req.Owner,
		"underlying": u.String(),
	}, nil
}

// RedeemMethod handles the redeem RPC method. From and to default to
// the caller when omitted.
type RedeemMethod struct{}

func (m *RedeemMethod) Handle(ctx *RpcContext, params json.RawMessage) (interface{}, *RpcError) {
	var req struct {
		Caller    string `json:"caller"`
		From      string `json:"from"`
		To        string `json:"to"`
		Principal string `json:"principal"`
	}
	if rpcErr := parseParams(params, &req); rpcErr != nil {
		return nil, rpcErr
	}
	if req.Caller == "" {
		return nil, RpcErrorMissingField("caller")
	}
	if req.From == "" {
		req.From = req.Caller
	}
	if req.To == "" {
		req.To = req.Caller
	}

	p, rpcErr := parseAmount("principal", req.Principal)
	if rpcErr != nil {
		return nil, rpcErr
	}

	u, err := ctx.Services.Token.Redeem(req.Caller, req.From, req.To, p)
	if err != nil {
		rpcErr := engineError(err)
		metrics.Failures.WithLabelValues("redeem", rpcErr.ErrorString).Inc()
		return nil, rpcErr
	}
	metrics.Redemptions.WithLabelValues("redeem").Inc()

	return map[string]interface{}{
		"from":       req.From,
		"to":         req.To,
		"principal":  p.String(),
		"underlying": u.String(),
	}, nil
}

// WithdrawMethod handles the withdraw RPC method: the exact-output
// counterpart of redeem.
type WithdrawMethod struct{}

func (m *WithdrawMethod) Handle(ctx *RpcContext, params json.RawMessage) (interface{}, *RpcError) {
	var req struct {
		Caller     string `json:"caller"`
		From       string `json:"from"`
		To         string `json:"to"`
		Underlying string `json:"underlying"`
	}
	if rpcErr := parseParams(params, &req); rpcErr != nil {
		return nil, rpcErr
	}
	if req.Caller == "" {
		return nil, RpcErrorMissingField("caller")
	}
	if req.From == "" {
		req.From = req.Caller
	}
	if req.To == "" {
		req.To = req.Caller
	}

	u, rpcErr := parseAmount("underlying", req.Underlying)
	if rpcErr != nil {
		return nil, rpcErr
	}

	p, err := ctx.Services.Token.Withdraw(req.Caller, req.From, req.To, u)
	if err != nil {
		rpcErr := engineError(err)
		metrics.Failures.WithLabelValues("withdraw", rpcErr.ErrorString).Inc()
		return nil, rpcErr
	}
	metrics.Redemptions.WithLabelValues("withdraw").Inc()

	return map[string]interface{}{
		"from":       req.From,
		"to":         req.To,
		"principal":  p.String(),
		"underlying": u.String(),
	}, nil
}

// ApproveMethod handles the approve RPC method. The string "unlimited"
// installs the sentinel allowance that is never decremented.
type ApproveMethod struct{}

func (m *ApproveMethod) Handle(ctx *RpcContext, params json.RawMessage) (interface{}, *RpcError) {
	var req struct {
		Owner   string `json:"owner"`
		Spender string `json:"spender"`
		Amount  string `json:"amount"`
	}
	if rpcErr := parseParams(params, &req); rpcErr != nil {
		return nil, rpcErr
	}
	if req.Owner == "" {
		return nil, RpcErrorMissingField("owner")
	}
	if req.Spender == "" {
		return nil, RpcErrorMissingField("spender")
	}

	var amt amount.Amount
	if req.Amount == "unlimited" {
		amt = amount.Unlimited()
	} else {
		var rpcErr *RpcError
		amt, rpcErr = parseAmount("amount", req.Amount)
		if rpcErr != nil {
			return nil, rpcErr
		}
	}

	if err := ctx.Services.Ledger.Approve(req.Owner, req.Spender, amt); err != nil {
		return nil, engineError(err)
	}

	return map[string]interface{}{
		"owner":   req.Owner,
		"spender": req.Spender,
		"amount":  amt.String(),
	}, nil
}

// BalanceOfMethod handles the balance_of RPC method.
type BalanceOfMethod struct{}

func (m *BalanceOfMethod) Handle(ctx *RpcContext, params json.RawMessage) (interface{}, *RpcError) {
	var req struct {
		Account string `json:"account"`
	}
	if rpcErr := parseParams(params, &req); rpcErr != nil {
		return nil, rpcErr
	}
	if req.Account == "" {
		return nil, RpcErrorMissingField("account")
	}

	return map[string]interface{}{
		"account": req.Account,
		"balance": ctx.Services.Ledger.BalanceOf(req.Account).String(),
	}, nil
}

// AllowanceMethod handles the allowance RPC method.
type AllowanceMethod struct{}

func (m *AllowanceMethod) Handle(ctx *RpcContext, params json.RawMessage) (interface{}, *RpcError) {
	var req struct {
		Owner   string `json:"owner"`
		Spender string `json:"spender"`
	}
	if rpcErr := parseParams(params, &req); rpcErr != nil {
		return nil, rpcErr
	}
	if req.Owner == "" {
		return nil, RpcErrorMissingField("owner")
	}
	if req.Spender == "" {
		return nil, RpcErrorMissingField("spender")
	}

	amt := ctx.Services.Ledger.Allowance(req.Owner, req.Spender)

	result := map[string]interface{}{
		"owner":     req.Owner,
		"spender":   req.Spender,
		"allowance": amt.String(),
	}
	if amt.IsUnlimited() {
		result["unlimited"] = true
	}

	return result, nil
}

// DefaultRecordsPageSize is served when a records request does not
// name a limit.
const DefaultRecordsPageSize = 100

// RecordsMethod handles the records RPC method: a paginated slice of
// the redemption journal, oldest first.
type RecordsMethod struct{}

func (m *RecordsMethod) Handle(ctx *RpcContext, params json.RawMessage) (interface{}, *RpcError) {
	var req struct {
		Start uint64 `json:"start"`
		Limit int    `json:"limit"`
	}
	if rpcErr := parseParams(params, &req); rpcErr != nil {
		return nil, rpcErr
	}
	if req.Limit <= 0 {
		req.Limit = DefaultRecordsPageSize
	}

	if ctx.Services.Journal == nil {
		return nil, RpcErrorInternal("Journal not available")
	}

	recs, err := ctx.Services.Journal.Range(req.Start, req.Limit)
	if err != nil {
		return nil, RpcErrorInternal(err.Error())
	}

	out := make([]map[string]interface{}, 0, len(recs))
	for _, rec := range recs {
		out = append(out, map[string]interface{}{
			"seq":        rec.Seq,
			"from":       rec.From,
			"to":         rec.To,
			"principal":  rec.Principal.String(),
			"underlying": rec.Underlying.String(),
			"time":       rec.Time.UTC().Format(time.RFC3339Nano),
		})
	}

	return map[string]interface{}{
		"records": out,
		"count":   ctx.Services.Journal.Len(),
	}, nil
}

// RecordMethod handles the record RPC method: a single journal entry
// by sequence number.
type RecordMethod struct{}

func (m *RecordMethod) Handle(ctx *RpcContext, params json.RawMessage) (interface{}, *RpcError) {
	var req struct {
		Seq uint64 `json:"seq"`
	}
	if rpcErr := parseParams(params, &req); rpcErr != nil {
		return nil, rpcErr
	}

	if ctx.Services.Journal == nil {
		return nil, RpcErrorInternal("Journal not available")
	}

	rec, err := ctx.Services.Journal.Get(req.Seq)
	if err != nil {
		return nil, RpcErrorRecordNotFound("No record with that sequence number.")
	}

	return map[string]interface{}{
		"seq":        rec.Seq,
		"from":       rec.From,
		"to":         rec.To,
		"principal":  rec.Principal.String(),
		"underlying": rec.Underlying.String(),
		"time":       rec.Time.UTC().Format(time.RFC3339Nano),
	}, nil
}
