package openairesponses

import (
	"context"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

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
		assert.Equal(t, "/responses", req.URL.Path)
		return jsonResponse(200, `{"id":"resp_1","model":"gpt-5","status":"completed","output":[{"type":"message","role":"assistant","content":[{"type":"output_text","text":"hi there"}]}]}`), nil
	})
	client := NewClient(Options{APIKey: "test-key", DefaultModel: "gpt-5", BaseURL: "https://api.openai.com/v1", HTTPClient: fake})

	resp, err := client.Complete(context.Background(), &message.Request{
		Messages: []message.Message{message.Text(message.RoleUser, "hi")},
	})
	require.NoError(t, err)
	assert.Equal(t, "completed", resp.StopReason)
	assert.Equal(t, "resp_1", resp.ProviderMetadata["openai-responses"]["id"])
}

func TestClientCompleteMapsHTTPErrors(t *testing.T) {
	fake := roundTripFunc(func(req *http.Request) (*http.Response, error) {
		return jsonResponse(429, `{"error":{"type":"rate_limit_error","message":"slow down"}}`), nil
	})
	client := NewClient(Options{APIKey: "k", DefaultModel: "gpt-5", BaseURL: "https://api.openai.com/v1", HTTPClient: fake})

	_, err := client.Complete(context.Background(), &message.Request{
		Messages: []message.Message{message.Text(message.RoleUser, "hi")},
	})
	require.Error(t, err)
	assert.True(t, llmerr.Is(err, llmerr.KindRateLimit))
}

func TestClientResolveModelIDPrecedence(t *testing.T) {
	client := NewClient(Options{DefaultModel: "gpt-5", HighModel: "gpt-5-high", SmallModel: "gpt-5-mini"})

	assert.Equal(t, "custom", client.resolveModelID(&message.Request{Config: message.Config{Model: "custom"}}))
	assert.Equal(t, "gpt-5-high", client.resolveModelID(&message.Request{Config: message.Config{ModelClass: message.ModelClassHighReasoning}}))
	assert.Equal(t, "gpt-5", client.resolveModelID(&message.Request{}))
}

func TestClientGetRetrievesByID(t *testing.T) {
	fake := roundTripFunc(func(req *http.Request) (*http.Response, error) {
		assert.Equal(t, http.MethodGet, req.Method)
		assert.Equal(t, "/responses/resp_1", req.URL.Path)
		return jsonResponse(200, `{"id":"resp_1","model":"gpt-5","status":"completed","output":[]}`), nil
	})
	client := NewClient(Options{APIKey: "k", BaseURL: "https://api.openai.com/v1", HTTPClient: fake})

	resp, err := client.Get(context.Background(), "resp_1")
	require.NoError(t, err)
	assert.Equal(t, "resp_1", resp.ProviderMetadata["openai-responses"]["id"])
}

func TestClientDeleteSendsDELETE(t *testing.T) {
	fake := roundTripFunc(func(req *http.Request) (*http.Response, error) {
		assert.Equal(t, http.MethodDelete, req.Method)
		return jsonResponse(200, `{}`), nil
	})
	client := NewClient(Options{APIKey: "k", BaseURL: "https://api.openai.com/v1", HTTPClient: fake})

	err := client.Delete(context.Background(), "resp_1")
	require.NoError(t, err)
}

func TestClientCancelHitsCancelEndpoint(t *testing.T) {
	fake := roundTripFunc(func(req *http.Request) (*http.Response, error) {
		assert.Equal(t, "/responses/resp_1/cancel", req.URL.Path)
		return jsonResponse(200, `{"id":"resp_1","model":"gpt-5","status":"cancelled","output":[]}`), nil
	})
	client := NewClient(Options{APIKey: "k", BaseURL: "https://api.openai.com/v1", HTTPClient: fake})

	resp, err := client.Cancel(context.Background(), "resp_1")
	require.NoError(t, err)
	assert.Equal(t, "cancelled", resp.StopReason)
}

func TestClientListInputItemsEncodesQueryParams(t *testing.T) {
	fake := roundTripFunc(func(req *http.Request) (*http.Response, error) {
		assert.Equal(t, "/responses/resp_1/input_items", req.URL.Path)
		assert.Equal(t, "5", req.URL.Query().Get("limit"))
		assert.Equal(t, "asc", req.URL.Query().Get("order"))
		return jsonResponse(200, `{"data":[{"type":"message","id":"msg_1"}],"has_more":false,"first_id":"msg_1","last_id":"msg_1"}`), nil
	})
	client := NewClient(Options{APIKey: "k", BaseURL: "https://api.openai.com/v1", HTTPClient: fake})

	page, err := client.ListInputItems(context.Background(), "resp_1", ListInputItemsOptions{Limit: 5, Order: "asc"})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.False(t, page.HasMore)
}
