package oracle

import (
	"context"
	"errors"
	"fmt"

	"github.com/alexwday/aegis-project-sub000/internal/llm"
)

// ErrorKind classifies oracle failures.
type ErrorKind string

// Error kinds
const (
	KindTimeout   ErrorKind = "timeout"
	KindMalformed ErrorKind = "malformed"
	KindRateLimit ErrorKind = "rate_limit"
	KindProvider  ErrorKind = "provider"
)

// Error is a failed oracle call. Every kind is retryable; Attempts is set by
// the retry wrapper once it gives up.
type Error struct {
	Op       string
	Kind     ErrorKind
	Message  string
	Attempts int
	Cause    error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("oracle %s failed (%s)", e.Op, e.Kind)
	if e.Attempts > 0 {
		msg = fmt.Sprintf("oracle %s failed after %d attempt(s) (%s)", e.Op, e.Attempts, e.Kind)
	}
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// classify wraps err as an *Error for op, keeping an existing *Error as is.
func classify(op string, err error) *Error {
	var oerr *Error
	if errors.As(err, &oerr) {
		return oerr
	}
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return &Error{Op: op, Kind: KindTimeout, Message: "call timed out", Cause: err}
	case llm.IsRateLimited(err):
		return &Error{Op: op, Kind: KindRateLimit, Message: "rate limited", Cause: err}
	default:
		return &Error{Op: op, Kind: KindProvider, Cause: err}
	}
}
