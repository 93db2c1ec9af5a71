package ollama

import (
	"encoding/json"
	"net/http"

	"github.com/polyprompt/polyprompt/llmerr"
)

// mapHTTPError converts a non-2xx HTTP response into an *llmerr.Error,
// following the status-code taxonomy shared by every provider adapter:
// 400 -> InvalidRequest, 401/403 -> Auth, 404 -> InvalidRequest("not
// found"), 429 -> RateLimit, 5xx -> Provider. Ollama is typically run
// locally without auth, so 401/403 responses are rare in practice but still
// mapped for parity with the hosted providers.
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
	if err := json.Unmarshal(body, &envelope); err == nil && envelope.Error != "" {
		msg = envelope.Error
	}

	return llmerr.New("ollama", kind, nil).
		WithHTTPStatus(status).
		WithMessage(msg)
}
