// Package telemetry provides the structured logging interface used by every
// provider adapter and the generation helpers, plus a no-op implementation
// for tests and a goa.design/clue-backed implementation for production use.
package telemetry

import "context"

// Logger is a minimal structured logging interface. Stream parsers log a
// chunk they fail to decode at Warn and skip it, and never log at Error for
// expected provider conditions (rate limiting, auth failures) — those are
// returned as typed llmerr.Error values instead.
type Logger interface {
	// Debug logs a debug-level message with structured key-value pairs.
	Debug(ctx context.Context, msg string, keyvals ...any)

	// Info logs an info-level message with structured key-value pairs.
	Info(ctx context.Context, msg string, keyvals ...any)

	// Warn logs a warning-level message with structured key-value pairs.
	Warn(ctx context.Context, msg string, keyvals ...any)

	// Error logs an error-level message with structured key-value pairs.
	Error(ctx context.Context, msg string, keyvals ...any)
}
