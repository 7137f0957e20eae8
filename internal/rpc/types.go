// Package rpc serves the redemption engine over an HTTP JSON-RPC
// surface plus a WebSocket stream of redemption records. Requests use
// the {"method": ..., "params": [{...}]} envelope; responses carry a
// result object with a "status" field of "success" or "error".
package rpc

import (
	"context"
	"encoding/json"

	"github.com/sirupsen/logrus"

	"github.com/yieldprotocol/principald/internal/core/ledger"
	"github.com/yieldprotocol/principald/internal/core/principal"
	"github.com/yieldprotocol/principald/internal/core/treasury"
	"github.com/yieldprotocol/principald/internal/journal"
)

// Services holds the collaborators method handlers operate on.
type Services struct {
	Token    *principal.Token
	Ledger   *ledger.Ledger
	Treasury *treasury.Treasury
	Journal  *journal.Journal
	Log      logrus.FieldLogger
}

// RpcContext carries request-scoped information into handlers.
type RpcContext struct {
	Context  context.Context
	Services *Services
	ClientIP string
}

// MethodHandler is implemented by every RPC method.
type MethodHandler interface {
	Handle(ctx *RpcContext, params json.RawMessage) (interface{}, *RpcError)
}

// MethodRegistry maps method names to handlers.
type MethodRegistry struct {
	methods map[string]MethodHandler
}

func NewMethodRegistry() *MethodRegistry {
	return &MethodRegistry{
		methods: make(map[string]MethodHandler),
	}
}

func (r *MethodRegistry) Register(name string, handler MethodHandler) {
	r.methods[name] = handler
}

func (r *MethodRegistry) Get(name string) (MethodHandler, bool) {
	handler, exists := r.methods[name]
	return handler, exists
}

func (r *MethodRegistry) List() []string {
	methods := make([]string, 0, len(r.methods))
	for name := range r.methods {
		methods = append(methods, name)
	}
	return methods
}

// Request is the HTTP JSON-RPC request envelope. Params is an array
// holding a single object.
type Request struct {
	Method string            `json:"method"`
	Params []json.RawMessage `json:"params,omitempty"`
}

// WebSocketResponse is the reply envelope for WebSocket commands.
type WebSocketResponse struct {
	Type   string      `json:"type"`
	ID     interface{} `json:"id,omitempty"`
	Status string      `json:"status,omitempty"`
	Result interface{} `json:"result,omitempty"`
}

// RecordMessage is the stream message pushed for each committed
// redemption record.
type RecordMessage struct {
	Type       string `json:"type"`
	Seq        uint64 `json:"seq"`
	From       string `json:"from"`
	To         string `json:"to"`
	Principal  string `json:"principal"`
	Underlying string `json:"underlying"`
	Time       string `json:"time"`
}
