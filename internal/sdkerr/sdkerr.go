// Package sdkerr defines the error kinds shared by the session and stream layers.
//
// Callers match kinds with errors.Is:
//
//	if errors.Is(err, sdkerr.ErrAuthenticationRequired) { ... }
package sdkerr

import (
	"errors"
	"fmt"
)

// Error kinds.
var (
	// ErrConnection is a transport-level connect, send or receive failure.
	ErrConnection = errors.New("connection error")

	// ErrAuthenticationRequired means an operation was attempted before its
	// connect or login precondition held.
	ErrAuthenticationRequired = errors.New("authentication required")

	// ErrProtocol is an unparseable or malformed server message.
	ErrProtocol = errors.New("protocol error")
)

// Error carries the kind, the failed operation and the underlying cause.
type Error struct {
	Kind error
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %v", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %v: %v", e.Op, e.Kind, e.Err)
}

// Unwrap exposes both the kind and the cause to errors.Is / errors.As.
func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// Connection wraps err as a connection error for op.
func Connection(op string, err error) error {
	return &Error{Kind: ErrConnection, Op: op, Err: err}
}

// AuthenticationRequired reports a failed precondition for op.
func AuthenticationRequired(op string, reason string) error {
	return &Error{Kind: ErrAuthenticationRequired, Op: op, Err: errors.New(reason)}
}

// Protocol wraps err as a protocol error for op.
func Protocol(op string, err error) error {
	return &Error{Kind: ErrProtocol, Op: op, Err: err}
}
