package shared

import (
	"errors"
	"fmt"
)

// ErrorKind is the closed set of failure categories reported to callers
type ErrorKind string

const (
	KindInvalidInput            ErrorKind = "INVALID_INPUT"
	KindUnauthorized            ErrorKind = "UNAUTHORIZED"
	KindForbidden               ErrorKind = "FORBIDDEN"
	KindNotFound                ErrorKind = "NOT_FOUND"
	KindUnavailable             ErrorKind = "UNAVAILABLE"
	KindGatewayError            ErrorKind = "GATEWAY_ERROR"
	KindVerificationFailed      ErrorKind = "VERIFICATION_FAILED"
	KindDuplicate               ErrorKind = "DUPLICATE"
	KindEffectApplicationFailed ErrorKind = "EFFECT_APPLICATION_FAILED"
	KindInternal                ErrorKind = "INTERNAL"
)

// Error carries a stable kind, a caller-facing message and, when known, the
// transaction reference it relates to.
type Error struct {
	Kind      ErrorKind
	Message   string
	Reference string
	Err       error
}

func (e *Error) Error() string {
	msg := string(e.Kind) + ": " + e.Message
	if e.Reference != "" {
		msg += " (reference " + e.Reference + ")"
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches any *Error of the same kind, so errors.Is(err, shared.ErrNotFound) works
// regardless of message or reference.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// Sentinels for errors.Is comparisons
var (
	ErrInvalidInput            = &Error{Kind: KindInvalidInput}
	ErrUnauthorized            = &Error{Kind: KindUnauthorized}
	ErrForbidden               = &Error{Kind: KindForbidden}
	ErrNotFound                = &Error{Kind: KindNotFound}
	ErrUnavailable             = &Error{Kind: KindUnavailable}
	ErrGateway                 = &Error{Kind: KindGatewayError}
	ErrVerificationFailed      = &Error{Kind: KindVerificationFailed}
	ErrDuplicate               = &Error{Kind: KindDuplicate}
	ErrEffectApplicationFailed = &Error{Kind: KindEffectApplicationFailed}
)

// NewError builds an *Error of the given kind
func NewError(kind ErrorKind, reference string, err error, format string, args ...interface{}) *Error {
	return &Error{
		Kind:      kind,
		Message:   fmt.Sprintf(format, args...),
		Reference: reference,
		Err:       err,
	}
}

// KindOf returns the kind of the first *Error in err's chain, or KindInternal
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// MessageOf returns the caller-facing message of err
func MessageOf(err error) string {
	var e *Error
	if errors.As(err, &e) && e.Message != "" {
		return e.Message
	}
	return "an internal error occurred"
}
