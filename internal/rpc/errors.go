package rpc

import (
	"errors"
	"fmt"
)

var (
	ErrUnauthorized         = errors.New("rpc authentication failed")
	ErrTimeout              = errors.New("rpc call timed out")
	ErrNetwork              = errors.New("rpc daemon unreachable")
	ErrMalformedResponse    = errors.New("rpc response has neither result nor error")
	ErrNotFoundOrIneligible = errors.New("identity not found or cannot receive private messages")
	ErrInvalidFormat        = errors.New("invalid identity name format")
	ErrNoIdentities         = errors.New("no identities with private addresses found in wallet")
)

// Error is an error object returned by the daemon.
type Error struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *Error) Error() string {
	return fmt.Sprintf("rpc error %d: %s", e.Code, e.Message)
}

// StatusError is a non-2xx HTTP response without a parseable RPC error body.
type StatusError struct {
	StatusCode int
	Status     string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("rpc http status %s", e.Status)
}

// Daemon error codes the client interprets.
const (
	codeInvalidAddressOrKey = -5
	codeInvalidParameter    = -8
)

// IsCode reports whether err carries a daemon error with the given code.
func IsCode(err error, code int) bool {
	var rpcErr *Error
	return errors.As(err, &rpcErr) && rpcErr.Code == code
}
