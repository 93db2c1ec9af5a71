package openai

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/polyprompt/polyprompt/capability"
	"github.com/polyprompt/polyprompt/llmerr"
	"github.com/polyprompt/polyprompt/message"
)

type roundTripFunc func(req *http.Request) (*http.Response, error)

func (f roundTripFunc) Do(req *http.Request) (*http.Response, error) { return f(req) }

func jsonResponse(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Body:       io.NopCloser(strings.NewReader(body)),
		Header:     make(http.Header),
	}
}

func TestClientCompleteSuccess(t *testing.T) {
	fake := roundTripFunc(func(req *http.Request) (*http.Response, error) {
		assert.Equal(t, "Bearer test-key", req.Header.Get("Authorization"))
		return jsonResponse(200, `{"id":"chatcmpl-1","model":"gpt-4o","choices":[{"message":{"role":"assistant","content":"hi there"},"finish_reason":"stop"}],"usage":{"prompt_tokens":3,"completion_tokens":2,"total_tokens":5}}`), nil
	})
	client := NewClient(Options{APIKey: "test-key", DefaultModel: "gpt-4o", HTTPClient: fake})

	resp, err := client.Complete(context.Background(), &message.Request{
		Messages: []message.Message{message.Text(message.RoleUser, "hi")},
	})
	require.NoError(t, err)
	assert.Equal(t, "stop", resp.StopReason)
	assert.Equal(t, 5, resp.Usage.TotalTokens)
}

func TestClientCompleteMapsHTTPErrors(t *testing.T) {
	fake := roundTripFunc(func(req *http.Request) (*http.Response, error) {
		return jsonResponse(429, `{"error":{"message":"slow down","type":"rate_limit_error"}}`), nil
	})
	client := NewClient(Options{APIKey: "k", DefaultModel: "gpt-4o", HTTPClient: fake})

	_, err := client.Complete(context.Background(), &message.Request{
		Messages: []message.Message{message.Text(message.RoleUser, "hi")},
	})
	require.Error(t, err)
	assert.True(t, llmerr.Is(err, llmerr.KindRateLimit))
}

func TestClientResolveModelIDPrecedence(t *testing.T) {
	client := NewClient(Options{DefaultModel: "gpt-4o", HighModel: "o1", SmallModel: "gpt-4o-mini"})

	assert.Equal(t, "custom", client.resolveModelID(&message.Request{Config: message.Config{Model: "custom"}}))
	assert.Equal(t, "o1", client.resolveModelID(&message.Request{Config: message.Config{ModelClass: message.ModelClassHighReasoning}}))
	assert.Equal(t, "gpt-4o", client.resolveModelID(&message.Request{}))
}

func sseChunk(t *testing.T, chunk chatChunk) string {
	t.Helper()
	raw, err := json.Marshal(chunk)
	require.NoError(t, err)
	return "data: " + string(raw) + "\n\n"
}

func TestClientStreamReassemblesToolCallDeltas(t *testing.T) {
	idx := 0
	sse := sseChunk(t, chatChunk{Choices: []chatChunkChoice{{Index: 0, Delta: chatChunkDelta{
		ToolCalls: []wireToolCall{{Index: &idx, ID: "call_1", Function: wireToolCallFunc{Name: "search_web"}}},
	}}}}) +
		sseChunk(t, chatChunk{Choices: []chatChunkChoice{{Index: 0, Delta: chatChunkDelta{
			ToolCalls: []wireToolCall{{Index: &idx, Function: wireToolCallFunc{Arguments: `{"q":`}}},
		}}}}) +
		sseChunk(t, chatChunk{Choices: []chatChunkChoice{{Index: 0, Delta: chatChunkDelta{
			ToolCalls: []wireToolCall{{Index: &idx, Function: wireToolCallFunc{Arguments: `"go"}`}}},
		}}}}) +
		sseChunk(t, chatChunk{
			Choices: []chatChunkChoice{{Index: 0, Delta: chatChunkDelta{}, FinishReason: "tool_calls"}},
			Usage:   &chatUsage{PromptTokens: 1, CompletionTokens: 1, TotalTokens: 2},
		}) +
		"data: [DONE]\n\n"

	fake := roundTripFunc(func(req *http.Request) (*http.Response, error) {
		return &http.Response{StatusCode: 200, Body: io.NopCloser(strings.NewReader(sse)), Header: make(http.Header)}, nil
	})
	client := NewClient(Options{APIKey: "k", DefaultModel: "gpt-4o", HTTPClient: fake})

	stream, err := client.Stream(context.Background(), &message.Request{
		Messages: []message.Message{message.Text(message.RoleUser, "hi")},
		Config:   message.Config{Tools: []message.Tool{{Name: "search_web"}}},
	})
	require.NoError(t, err)

	var toolCall *message.ToolCall
	var finished bool
	err = capability.Drain(stream, func(ev message.StreamEvent) {
		switch ev.Type {
		case message.StreamEventToolCall:
			toolCall = ev.ToolCall
		case message.StreamEventFinish:
			finished = true
		}
	})
	require.NoError(t, err)
	require.True(t, finished)
	require.NotNil(t, toolCall)
	assert.Equal(t, "search_web", toolCall.Name)
	assert.JSONEq(t, `{"q":"go"}`, string(toolCall.Input))
}
