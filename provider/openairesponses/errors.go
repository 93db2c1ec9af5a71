package openairesponses

import (
	"encoding/json"
	"net/http"

	"github.com/polyprompt/polyprompt/llmerr"
)

// mapHTTPError converts a non-2xx HTTP response into an *llmerr.Error,
// following the status-code taxonomy shared by every provider adapter:
// 400 -> InvalidRequest, 401/403 -> Auth, 404 -> InvalidRequest("not
// found"), 429 -> RateLimit, 5xx -> Provider.
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

	e := llmerr.New("openai-responses", kind, nil).
		WithHTTPStatus(status).
		WithMessage(msg)
	if envelope.Error.Code != "" {
		e = e.WithCode(envelope.Error.Code)
	}
	return e
}

// mapStreamError maps a streamed "response.failed"/"error" event's error
// detail the same way mapHTTPError maps an HTTP status, since the Responses
// API's stream-level errors carry the same {message,type,code} shape
// without an HTTP status attached.
func mapStreamError(detail wireErrorDetail) *llmerr.Error {
	kind := llmerr.KindProvider
	switch detail.Type {
	case "invalid_request_error":
		kind = llmerr.KindInvalidRequest
	case "authentication_error", "permission_error":
		kind = llmerr.KindAuth
	case "rate_limit_error":
		kind = llmerr.KindRateLimit
	}
	msg := detail.Message
	if msg == "" {
		msg = "stream error"
	}
	e := llmerr.New("openai-responses", kind, nil).WithMessage(msg)
	if detail.Code != "" {
		e = e.WithCode(detail.Code)
	}
	return e
}
