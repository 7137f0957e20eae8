package rpc

import (
	"errors"

	"github.com/yieldprotocol/principald/internal/core/ledger"
	"github.com/yieldprotocol/principald/internal/core/principal"
	"github.com/yieldprotocol/principald/internal/core/treasury"
)

// RpcError is the wire form of a failed method call.
type RpcError struct {
	Code        int    `json:"error_code"`
	ErrorString string `json:"error"`
	Message     string `json:"error_message,omitempty"`
}

func (e RpcError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return e.ErrorString
}

// Universal JSON-RPC error codes plus daemon-specific codes. The
// daemon codes are stable: clients branch on them the way library
// callers branch on the sentinel errors.
const (
	RpcUNKNOWN          = -1
	RpcMETHOD_NOT_FOUND = -32601
	RpcINVALID_PARAMS   = -32602
	RpcINTERNAL         = -32603
	RpcPARSE_ERROR      = -32700

	RpcMISSING_COMMAND = 2

	RpcNOT_MATURED            = 30
	RpcZERO_ASSETS            = 31
	RpcBAD_ACCOUNT            = 32
	RpcINSUFFICIENT_BALANCE   = 33
	RpcINSUFFICIENT_ALLOWANCE = 34
	RpcTRANSFER_FAILED        = 35
	RpcMALFORMED_AMOUNT       = 36
	RpcRECORD_NOT_FOUND       = 37
)

func NewRpcError(code int, error, message string) *RpcError {
	return &RpcError{
		Code:        code,
		ErrorString: error,
		Message:     message,
	}
}

func RpcErrorInvalidParams(message string) *RpcError {
	return NewRpcError(RpcINVALID_PARAMS, "invalidParams", message)
}

func RpcErrorMethodNotFound(method string) *RpcError {
	return NewRpcError(RpcMETHOD_NOT_FOUND, "unknownCmd", "Unknown method: "+method)
}

func RpcErrorInternal(message string) *RpcError {
	return NewRpcError(RpcINTERNAL, "internal", message)
}

func RpcErrorMissingField(field string) *RpcError {
	return NewRpcError(RpcINVALID_PARAMS, "invalidParams", "Missing field '"+field+"'.")
}

func RpcErrorMalformedAmount(field string) *RpcError {
	return NewRpcError(RpcMALFORMED_AMOUNT, "malformedAmount", "Malformed amount in field '"+field+"'.")
}

func RpcErrorRecordNotFound(message string) *RpcError {
	return NewRpcError(RpcRECORD_NOT_FOUND, "recordNotFound", message)
}

// engineError maps the engine's sentinel errors to their wire codes so
// remote callers keep the same failure distinctions as library callers.
func engineError(err error) *RpcError {
	switch {
	case errors.Is(err, principal.ErrBeforeMaturity):
		return NewRpcError(RpcNOT_MATURED, "notMatured", "Maturity has not been reached.")
	case errors.Is(err, principal.ErrZeroAssets):
		return NewRpcError(RpcZERO_ASSETS, "zeroAssets", "Converted underlying amount is zero.")
	case errors.Is(err, principal.ErrBadAccount):
		return NewRpcError(RpcBAD_ACCOUNT, "badAccount", "Malformed account identifier.")
	case errors.Is(err, ledger.ErrInsufficientBalance):
		return NewRpcError(RpcINSUFFICIENT_BALANCE, "insufficientBalance", "Principal balance is insufficient.")
	case errors.Is(err, ledger.ErrInsufficientAllowance):
		return NewRpcError(RpcINSUFFICIENT_ALLOWANCE, "insufficientAllowance", "Spender allowance is insufficient.")
	case errors.Is(err, treasury.ErrTransferFailed):
		return NewRpcError(RpcTRANSFER_FAILED, "transferFailed", "Underlying asset transfer failed.")
	default:
		return RpcErrorInternal(err.Error())
	}
}
