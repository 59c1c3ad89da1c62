// Package apperr classifies failures so that the HTTP and MCP boundaries can
// turn them into a status code and a user-facing message.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind identifies a class of failure.
type Kind string

const (
	// KindInternal is any failure without a more specific classification.
	KindInternal Kind = "internal"
	// KindAuth means the request carried no usable tenant credential.
	KindAuth Kind = "auth"
	// KindValidation means an inbound payload was malformed or unsupported.
	KindValidation Kind = "validation"
	// KindNoSource means the tenant has no external connection to import from.
	KindNoSource Kind = "no_source"
	// KindUpstream means the integration platform answered with an error or
	// with a response we could not interpret.
	KindUpstream Kind = "upstream"
	// KindPollTimeout means a flow run did not reach a terminal state within
	// its attempt budget.
	KindPollTimeout Kind = "poll_timeout"
	// KindFlowFailed means the remote workflow reported a failure.
	KindFlowFailed Kind = "flow_failed"
	// KindStore is a persistence fault.
	KindStore Kind = "store"
)

// Error is a classified error. Message is safe to show to callers; Err keeps
// the underlying cause for logs and errors.Is/As.
type Error struct {
	Kind    Kind
	Op      string
	Message string
	Err     error
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" {
		msg = string(e.Kind)
	}
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.Err != nil {
		return msg + ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// New returns a classified error with no underlying cause.
func New(kind Kind, op, message string) *Error {
	return &Error{Kind: kind, Op: op, Message: message}
}

// Newf is New with a formatted message.
func Newf(kind Kind, op, format string, args ...any) *Error {
	return &Error{Kind: kind, Op: op, Message: fmt.Sprintf(format, args...)}
}

// Wrap classifies err. A nil err yields nil.
func Wrap(kind Kind, op string, err error, message string) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Op: op, Message: message, Err: err}
}

// KindOf returns the kind of the outermost classified error in err's chain,
// or KindInternal when there is none.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// Is reports whether err carries the given kind.
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// MessageOf returns the user-facing message of the outermost classified error,
// or fallback when err is unclassified or has no message.
func MessageOf(err error, fallback string) string {
	var e *Error
	if errors.As(err, &e) && e.Message != "" {
		return e.Message
	}
	return fallback
}

// Status maps a kind to an HTTP status code.
func Status(kind Kind) int {
	switch kind {
	case KindAuth:
		return http.StatusUnauthorized
	case KindValidation, KindNoSource:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
