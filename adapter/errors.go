package adapter

import (
	"fmt"
)

// Error is returned by the adapter operations. Errors are matched by code with errors.Is against the sentinel values
// below, so callers can check the kind of failure without comparing messages. The cause, if any, is wrapped.
type Error struct {
	Code int
	Msg  string
	Err  error
}

// Error codes.
const (
	CodeNotReady        = 5003
	CodeInvalidParams   = 5011
	CodeConnectionError = 5111
	CodeNotConnected    = 5113
	CodePopupClosed     = 5114
)

// Sentinel errors, use errors.Is to check them.
var (
	ErrNotReady        = &Error{Code: CodeNotReady, Msg: "wallet is not ready yet"}
	ErrInvalidParams   = &Error{Code: CodeInvalidParams, Msg: "invalid params passed in"}
	ErrConnectionError = &Error{Code: CodeConnectionError, Msg: "failed to connect with wallet"}
	ErrNotConnected    = &Error{Code: CodeNotConnected, Msg: "wallet is not connected"}
	ErrPopupClosed     = &Error{Code: CodePopupClosed, Msg: "popup was closed by the user"}
)

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Msg, e.Err)
	}

	return e.Msg
}

// Unwrap returns the cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is an *Error with the same code.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)

	return ok && t.Code == e.Code
}

// newError returns an error of the kind of base with detail appended to its message.
func newError(base *Error, detail string, cause error) *Error {
	msg := base.Msg
	if detail != "" {
		msg += ", " + detail
	}

	return &Error{Code: base.Code, Msg: msg, Err: cause}
}
