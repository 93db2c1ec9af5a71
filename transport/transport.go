// Package transport declares the HTTP/byte-stream collaborator interfaces
// provider adapters depend on, plus a process-local adaptive rate limiter
// middleware that wraps any capability.Client. The package intentionally
// ships no concrete HTTP client: wiring an *http.Client, a mock transport,
// or a vendor SDK's transport is left to the calling application.
package transport

import (
	"context"
	"io"
	"net/http"
)

// HTTPClient is the minimal HTTP collaborator provider adapters depend on.
// *http.Client satisfies this interface; tests typically supply a
// round-trip fake instead.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// ByteStream is the minimal streaming collaborator adapters use to read
// server-sent-event or JSON-lines response bodies incrementally.
type ByteStream interface {
	io.ReadCloser
}

// RequestOption mutates an outgoing *http.Request before it is sent, used
// to attach auth headers or tracing metadata without every adapter
// reimplementing option plumbing.
type RequestOption func(*http.Request)

// WithHeader returns a RequestOption that sets a single header.
func WithHeader(key, value string) RequestOption {
	return func(r *http.Request) { r.Header.Set(key, value) }
}

// Do applies opts to req and sends it via client, the shared helper every
// provider adapter's request path funnels through.
func Do(ctx context.Context, client HTTPClient, req *http.Request, opts ...RequestOption) (*http.Response, error) {
	req = req.WithContext(ctx)
	for _, opt := range opts {
		opt(req)
	}
	return client.Do(req)
}
