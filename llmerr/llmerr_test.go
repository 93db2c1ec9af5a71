package llmerr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorMessageFormat(t *testing.T) {
	cause := errors.New("boom")
	err := New("anthropic", KindRateLimit, cause).
		WithOperation("stream").
		WithHTTPStatus(429).
		WithCode("rate_limit_error").
		WithRequestID("req_123").
		WithRetryable(true)

	assert.Equal(t, "anthropic rate_limit 429 (stream): rate_limit_error: boom", err.Error())
	assert.True(t, err.Retryable)
	assert.Equal(t, "req_123", err.RequestID)
}

func TestUnwrapPreservesChain(t *testing.T) {
	cause := errors.New("connection reset")
	err := New("openai", KindHTTP, cause)
	wrapped := fmt.Errorf("complete request: %w", err)

	require.ErrorIs(t, wrapped, cause)

	var got *Error
	require.ErrorAs(t, wrapped, &got)
	assert.Equal(t, KindHTTP, got.Kind)
}

func TestIsMatchesKind(t *testing.T) {
	err := New("bedrock", KindAuth, nil)
	assert.True(t, Is(err, KindAuth))
	assert.False(t, Is(err, KindRateLimit))
	assert.False(t, Is(errors.New("plain"), KindAuth))
}

func TestNewPanicsWithoutProviderOrKind(t *testing.T) {
	assert.Panics(t, func() { New("", KindAuth, nil) })
	assert.Panics(t, func() { New("openai", "", nil) })
}
