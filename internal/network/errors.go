package network

import (
	"context"
	"errors"
	"fmt"
)

// Kind classifies every failure the publishing core can observe.
type Kind string

const (
	KindValidation         Kind = "validation"
	KindNotConfigured      Kind = "not_configured"
	KindAccountInactive    Kind = "account_inactive"
	KindNoCredential       Kind = "no_credential"
	KindTransient          Kind = "transient"
	KindTimeout            Kind = "timeout"
	KindPublish            Kind = "publish"
	KindRefreshRecoverable Kind = "refresh_recoverable"
	KindRefreshPermanent   Kind = "refresh_permanent"
	KindUnsupported        Kind = "unsupported"
)

// Retryable reports whether a failure of this kind may succeed on a later attempt.
func (k Kind) Retryable() bool {
	switch k {
	case KindTransient, KindTimeout, KindPublish, KindRefreshRecoverable:
		return true
	default:
		return false
	}
}

// Precondition reports whether the failure was detected before the provider
// was contacted, so it must not consume retry budget.
func (k Kind) Precondition() bool {
	switch k {
	case KindValidation, KindNotConfigured, KindAccountInactive, KindNoCredential:
		return true
	default:
		return false
	}
}

type Error struct {
	Kind    Kind
	Network Network
	Op      string
	Message string
	Err     error
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	if e.Network == "" {
		return fmt.Sprintf("%s: %s: %s", e.Kind, e.Op, msg)
	}
	return fmt.Sprintf("%s %s: %s: %s", e.Network, e.Op, e.Kind, msg)
}

func (e *Error) Unwrap() error { return e.Err }

func Errorf(kind Kind, n Network, op, format string, args ...any) *Error {
	return &Error{Kind: kind, Network: n, Op: op, Message: fmt.Sprintf(format, args...)}
}

func wrap(kind Kind, n Network, op string, err error) *Error {
	return &Error{Kind: kind, Network: n, Op: op, Err: err}
}

// KindOf extracts the failure kind of err. Errors that carry no kind,
// including transport timeouts, are treated as transient.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindTransient
}

func isContextErr(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

func IsPermanentRefresh(err error) bool {
	return KindOf(err) == KindRefreshPermanent
}

// AsError returns err as a typed *Error, classifying untyped errors as
// transient failures of op on n.
func AsError(n Network, op string, err error) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return wrap(KindTransient, n, op, err)
}
