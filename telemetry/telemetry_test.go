package telemetry_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/polyprompt/polyprompt/telemetry"
)

func TestNoopLoggerNeverPanics(t *testing.T) {
	var l telemetry.Logger = telemetry.NewNoopLogger()
	ctx := context.Background()

	assert.NotPanics(t, func() {
		l.Debug(ctx, "debug", "k", "v")
		l.Info(ctx, "info")
		l.Warn(ctx, "warn", "k", "v", "trailing")
		l.Error(ctx, "error", "k", 1)
	})
}
