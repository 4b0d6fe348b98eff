package mail

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// Error codes carried by Error. They match the codes reported by the
// mail backend so callers can switch on them.
const (
	CodeUnknown = 0
	CodeOffline = 42
)

// ErrOffline is the canonical offline error. errors.Is matches any
// *Error whose code is CodeOffline.
var ErrOffline = &Error{Code: CodeOffline, Op: "connect"}

// Error is a coded failure from the mail service.
type Error struct {
	Code int
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Code == CodeOffline {
		if e.Err != nil {
			return fmt.Sprintf("%s: offline: %v", e.Op, e.Err)
		}
		return fmt.Sprintf("%s: offline", e.Op)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
	return e.Op
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches on code so wrapped offline errors compare equal to ErrOffline.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Code == e.Code
}

// IsOffline reports whether err (or any error in its chain) is an
// offline error.
func IsOffline(err error) bool {
	return errors.Is(err, ErrOffline)
}

// AuthError indicates that the server rejected the configured credentials.
type AuthError struct {
	Username string
	Message  string
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("auth error (%s): %s", e.Username, e.Message)
}

// IsAuthError reports whether err (or any error in its chain) is an AuthError.
func IsAuthError(err error) bool {
	var authErr *AuthError
	return errors.As(err, &authErr)
}

// offline wraps err as an offline Error for op.
func offline(op string, err error) error {
	return &Error{Code: CodeOffline, Op: op, Err: err}
}

// classifyDial maps connection failures to offline errors. Anything that
// is not a network failure is returned unchanged.
func classifyDial(op string, err error) error {
	if err == nil {
		return nil
	}
	var netErr net.Error
	if errors.As(err, &netErr) || errors.Is(err, context.DeadlineExceeded) {
		return offline(op, err)
	}
	return err
}
