// Package llmerr defines the error taxonomy shared by every provider
// adapter so callers can make retry and UX decisions without depending on
// provider-specific error types.
package llmerr

import (
	"errors"
	"fmt"
)

// Kind classifies a failure into a small set of categories suitable for
// retry and UX decisions.
type Kind string

const (
	// KindAuth indicates an authentication/authorization failure.
	KindAuth Kind = "auth"

	// KindInvalidRequest indicates the request itself is invalid; retrying
	// without changing it will not succeed.
	KindInvalidRequest Kind = "invalid_request"

	// KindRateLimit indicates the provider is throttling requests.
	KindRateLimit Kind = "rate_limit"

	// KindTimeout indicates the call did not complete before its deadline.
	KindTimeout Kind = "timeout"

	// KindHTTP indicates a transport-level HTTP failure not otherwise
	// classified (connection reset, unexpected status code).
	KindHTTP Kind = "http"

	// KindProvider indicates an unclassified provider-side failure (5xx,
	// malformed response) where a retry may succeed.
	KindProvider Kind = "provider"

	// KindCancelled indicates the caller's context was cancelled.
	KindCancelled Kind = "cancelled"

	// KindResponseFormat indicates the provider response could not be
	// parsed into the expected shape.
	KindResponseFormat Kind = "response_format"

	// KindStructuredOutput indicates a structured-output request failed
	// schema validation or extraction.
	KindStructuredOutput Kind = "structured_output"

	// KindGeneric indicates a failure that does not fit another category.
	KindGeneric Kind = "generic"
)

// Error describes a failure returned by a provider adapter or by the
// generation helpers built on top of it. It is intended to cross package
// boundaries so callers can rely on a single stable, structured error type
// regardless of which provider produced it.
type Error struct {
	// Kind is the coarse-grained classification of the failure.
	Kind Kind

	// Provider identifies the adapter that produced the error (for example,
	// "anthropic", "openai", "bedrock").
	Provider string

	// Operation names the adapter operation that failed (for example,
	// "complete", "stream").
	Operation string

	// HTTPStatus is the provider HTTP status code when available, otherwise
	// zero.
	HTTPStatus int

	// Code is the provider-specific error code when available.
	Code string

	// Message is the human-readable provider error message when available.
	Message string

	// RequestID is the provider request identifier when available, useful
	// when filing support tickets.
	RequestID string

	// Retryable reports whether retrying the call may succeed without
	// changing the request.
	Retryable bool

	// cause is the underlying error, preserved for errors.Unwrap.
	cause error
}

// New constructs an Error. provider and kind are required; cause may be nil
// but should be supplied when available to preserve the original error
// chain.
func New(provider string, kind Kind, cause error) *Error {
	if provider == "" {
		panic("llmerr: provider is required")
	}
	if kind == "" {
		panic("llmerr: kind is required")
	}
	return &Error{Provider: provider, Kind: kind, cause: cause}
}

// WithOperation sets Operation and returns e for chaining.
func (e *Error) WithOperation(op string) *Error { e.Operation = op; return e }

// WithHTTPStatus sets HTTPStatus and returns e for chaining.
func (e *Error) WithHTTPStatus(status int) *Error { e.HTTPStatus = status; return e }

// WithCode sets Code and returns e for chaining.
func (e *Error) WithCode(code string) *Error { e.Code = code; return e }

// WithMessage sets Message and returns e for chaining.
func (e *Error) WithMessage(msg string) *Error { e.Message = msg; return e }

// WithRequestID sets RequestID and returns e for chaining.
func (e *Error) WithRequestID(id string) *Error { e.RequestID = id; return e }

// WithRetryable sets Retryable and returns e for chaining.
func (e *Error) WithRetryable(retryable bool) *Error { e.Retryable = retryable; return e }

// Error implements the error interface.
func (e *Error) Error() string {
	op := e.Operation
	if op == "" {
		op = "request"
	}
	status := ""
	if e.HTTPStatus > 0 {
		status = fmt.Sprintf("%d ", e.HTTPStatus)
	}
	code := ""
	if e.Code != "" {
		code = e.Code + ": "
	}
	msg := e.Message
	if msg == "" && e.cause != nil {
		msg = e.cause.Error()
	}
	if msg == "" {
		msg = "provider error"
	}
	return fmt.Sprintf("%s %s %s(%s): %s", e.Provider, e.Kind, status, op, code+msg)
}

// Unwrap returns the underlying cause, preserving the original error chain
// for errors.Is/errors.As.
func (e *Error) Unwrap() error { return e.cause }

// As reports whether err's chain contains an *Error and, if so, returns it.
func As(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// Is reports whether err's chain contains an *Error of the given Kind.
func Is(err error, kind Kind) bool {
	e, ok := As(err)
	return ok && e.Kind == kind
}
