package anthropic

import (
	"encoding/json"
	"net/http"

	"github.com/polyprompt/polyprompt/llmerr"
)

// mapHTTPError converts a non-2xx HTTP response into an *llmerr.Error,
// following the status-code taxonomy shared by every provider adapter:
// 400 -> InvalidRequest, 401/403 -> Auth, 404 -> InvalidRequest("not
// found"), 429 -> RateLimit, 5xx (including "overloaded_error") -> Provider.
func mapHTTPError(status int, body []byte) *llmerr.Error {
	var kind llmerr.Kind
	msg := "request failed"
	switch {
	case status == http.StatusBadRequest:
		kind = llmerr.KindInvalidRequest
	case status == http.StatusUnauthorized, status == http.StatusForbidden:
		kind = llmerr.KindAuth
	case status == http.StatusNotFound:
		kind = llmerr.KindInvalidRequest
		msg = "not found"
	case status == http.StatusTooManyRequests:
		kind = llmerr.KindRateLimit
	case status >= 500:
		kind = llmerr.KindProvider
	default:
		kind = llmerr.KindHTTP
	}

	var envelope wireError
	if err := json.Unmarshal(body, &envelope); err == nil && envelope.Error.Message != "" {
		msg = envelope.Error.Message
	}

	e := llmerr.New("anthropic", kind, nil).
		WithHTTPStatus(status).
		WithMessage(msg)
	if envelope.Error.Type != "" {
		e = e.WithCode(envelope.Error.Type)
	}
	return e
}

// mapStreamError converts an Anthropic stream "error" event payload into an
// *llmerr.Error, applying the same overloaded/rate-limit/provider taxonomy
// used for HTTP-level errors since streamed errors carry no status code.
func mapStreamError(envelope wireError) *llmerr.Error {
	kind := llmerr.KindProvider
	switch envelope.Error.Type {
	case "overloaded_error":
		kind = llmerr.KindProvider
	case "rate_limit_error":
		kind = llmerr.KindRateLimit
	case "authentication_error", "permission_error":
		kind = llmerr.KindAuth
	case "invalid_request_error", "not_found_error":
		kind = llmerr.KindInvalidRequest
	}
	msg := envelope.Error.Message
	if msg == "" {
		msg = "stream error"
	}
	return llmerr.New("anthropic", kind, nil).WithCode(envelope.Error.Type).WithMessage(msg)
}
