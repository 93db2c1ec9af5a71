package openai

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

	e := llmerr.New("openai", kind, nil).
		WithHTTPStatus(status).
		WithMessage(msg)
	if envelope.Error.Code != "" {
		e = e.WithCode(envelope.Error.Code)
	}
	return e
}
