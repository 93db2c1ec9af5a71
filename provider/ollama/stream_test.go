package ollama

import (
	"bytes"
	"context"
	"io"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/polyprompt/polyprompt/telemetry"
)

type closerWrapper struct{ io.Reader }

func (closerWrapper) Close() error { return nil }

func newTestStreamer(lines string) *streamer {
	return newStreamer(context.Background(), closerWrapper{bytes.NewBufferString(lines)}, nil, telemetry.NewNoopLogger())
}

func TestStreamerCloseCancelsPendingRecv(t *testing.T) {
	r, w := io.Pipe()
	s := newStreamer(context.Background(), r, nil, telemetry.NewNoopLogger())
	defer w.Close()

	require.NoError(t, s.Close())
	_, err := s.Recv()
	require.Error(t, err)
}

func TestStreamerSkipsBlankLines(t *testing.T) {
	lines := "\n" + `{"model":"llama3","message":{"role":"assistant","content":"hi"},"done":false}` + "\n\n" +
		`{"model":"llama3","done":true,"done_reason":"stop"}` + "\n"
	s := newTestStreamer(lines)
	var text string
	for {
		ev, err := s.Recv()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		if ev.TextDelta != "" {
			text += ev.TextDelta
		}
	}
	require.Equal(t, "hi", text)
}
