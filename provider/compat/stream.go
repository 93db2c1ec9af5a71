package compat

import (
	"github.com/polyprompt/polyprompt/capability"
	"github.com/polyprompt/polyprompt/message"
)

// streamWrapper adapts the inner provider/openai Streamer to attach the
// tools-ignored warning recorded by Client.stripUnsupportedTools to
// Metadata(). Metadata() otherwise returns a copy of the inner streamer's
// metadata; it adds no vendor provider id.
type streamWrapper struct {
	inner  capability.Streamer
	vendor vendorConfig
	warned bool
}

func (w *streamWrapper) Recv() (message.StreamEvent, error) { return w.inner.Recv() }

func (w *streamWrapper) Close() error { return w.inner.Close() }

func (w *streamWrapper) Metadata() map[string]any {
	meta := w.inner.Metadata()
	out := make(map[string]any, len(meta)+1)
	for k, v := range meta {
		out[k] = v
	}
	if w.warned {
		out["warnings"] = []map[string]any{{
			"code":    "tools_ignored",
			"message": "this provider does not support tool calling; Config.Tools was dropped from the request",
		}}
	}
	return out
}
