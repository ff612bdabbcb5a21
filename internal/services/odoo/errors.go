package odoo

import (
	"errors"
	"fmt"
	"strings"
)

// RPCError is a structured error returned by the ERP in the JSON-RPC
// response body. It is never swallowed: handlers receive it wrapped in an
// apperr.Error and report the remote message.
type RPCError struct {
	Code    int           `json:"code"`
	Message string        `json:"message"`
	Data    *RPCErrorData `json:"data,omitempty"`
}

// RPCErrorData carries the server-side exception details
type RPCErrorData struct {
	Name    string `json:"name"`
	Message string `json:"message"`
	Debug   string `json:"debug,omitempty"`
}

func (e *RPCError) Error() string {
	if e.Data != nil && e.Data.Message != "" && e.Data.Message != e.Message {
		return fmt.Sprintf("odoo: %s - %s", e.Message, e.Data.Message)
	}
	return fmt.Sprintf("odoo: %s", e.Message)
}

// asRPCError extracts a wrapped *RPCError from an error chain
func asRPCError(err error, target **RPCError) bool {
	return errors.As(err, target)
}

// IsMissingField reports whether the fault complains about an unknown
// field. The voucher flow uses this to fall back to description-based
// lookups when the custom x_voucher_* fields are not installed.
func (e *RPCError) IsMissingField() bool {
	msg := e.Message
	if e.Data != nil {
		msg += " " + e.Data.Message
	}
	return strings.Contains(msg, "Invalid field") ||
		strings.Contains(msg, "Unknown field") ||
		strings.Contains(msg, "object has no attribute")
}
