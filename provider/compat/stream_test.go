package compat

import (
	"context"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/polyprompt/polyprompt/capability"
	"github.com/polyprompt/polyprompt/message"
)

func TestPhindStreamStripsToolsAndWarnsInMetadata(t *testing.T) {
	sse := "data: " + `{"id":"x","choices":[{"index":0,"delta":{"content":"hi"},"finish_reason":"stop"}]}` + "\n\n" +
		"data: [DONE]\n\n"
	fake := roundTripFunc(func(req *http.Request) (*http.Response, error) {
		return &http.Response{StatusCode: 200, Body: io.NopCloser(strings.NewReader(sse)), Header: make(http.Header)}, nil
	})
	client := NewPhind(Options{APIKey: "k", DefaultModel: "phind-70b", HTTPClient: fake})

	stream, err := client.Stream(context.Background(), &message.Request{
		Messages: []message.Message{message.Text(message.RoleUser, "hi")},
		Config:   message.Config{Tools: []message.Tool{{Name: "search_web"}}},
	})
	require.NoError(t, err)

	err = capability.Drain(stream, func(message.StreamEvent) {})
	require.NoError(t, err)
	assert.Contains(t, stream.Metadata(), "warnings")
}
