package compat

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

func TestDeepSeekCompleteRelabelsMetadata(t *testing.T) {
	fake := roundTripFunc(func(req *http.Request) (*http.Response, error) {
		assert.Contains(t, req.URL.String(), "api.deepseek.com")
		return jsonResponse(200, `{"id":"x","model":"deepseek-chat","choices":[{"finish_reason":"stop","message":{"role":"assistant","content":"Hello"}}],"usage":{"prompt_tokens":3,"completion_tokens":2,"total_tokens":5}}`), nil
	})
	client := NewDeepSeek(Options{APIKey: "k", DefaultModel: "deepseek-chat", HTTPClient: fake})
	assert.Equal(t, "deepseek", client.Name())

	resp, err := client.Complete(context.Background(), &message.Request{
		Messages: []message.Message{message.Text(message.RoleUser, "hi")},
	})
	require.NoError(t, err)
	assert.Equal(t, 5, resp.Usage.TotalTokens)
	_, hasBase := resp.ProviderMetadata["deepseek"]
	_, hasAlias := resp.ProviderMetadata["deepseek.chat"]
	_, hasOpenAI := resp.ProviderMetadata["openai"]
	assert.True(t, hasBase)
	assert.True(t, hasAlias)
	assert.False(t, hasOpenAI)
}

func TestDeepSeekCompleteRelabelsErrorProvider(t *testing.T) {
	fake := roundTripFunc(func(req *http.Request) (*http.Response, error) {
		return jsonResponse(429, `{"error":{"message":"slow down","type":"rate_limit"}}`), nil
	})
	client := NewGroq(Options{APIKey: "k", DefaultModel: "llama3-70b", HTTPClient: fake})

	_, err := client.Complete(context.Background(), &message.Request{
		Messages: []message.Message{message.Text(message.RoleUser, "hi")},
	})
	require.Error(t, err)
	e, ok := llmerr.As(err)
	require.True(t, ok)
	assert.Equal(t, "groq", e.Provider)
	assert.True(t, llmerr.Is(err, llmerr.KindRateLimit))
}

func TestPhindStripsToolsAndWarns(t *testing.T) {
	var sawToolsInRequest bool
	fake := roundTripFunc(func(req *http.Request) (*http.Response, error) {
		body, _ := io.ReadAll(req.Body)
		if strings.Contains(string(body), `"tools"`) {
			sawToolsInRequest = true
		}
		return jsonResponse(200, `{"id":"x","model":"phind-70b","choices":[{"finish_reason":"stop","message":{"role":"assistant","content":"hi"}}],"usage":{"prompt_tokens":1,"completion_tokens":1,"total_tokens":2}}`), nil
	})
	client := NewPhind(Options{APIKey: "k", DefaultModel: "phind-70b", HTTPClient: fake})

	resp, err := client.Complete(context.Background(), &message.Request{
		Messages: []message.Message{message.Text(message.RoleUser, "hi")},
		Config:   message.Config{Tools: []message.Tool{{Name: "search_web"}}},
	})
	require.NoError(t, err)
	assert.False(t, sawToolsInRequest)
	meta := resp.ProviderMetadata["phind"]
	require.Contains(t, meta, "warnings")
}

func TestOpenRouterNameAndDefaultBaseURL(t *testing.T) {
	fake := roundTripFunc(func(req *http.Request) (*http.Response, error) {
		assert.Contains(t, req.URL.String(), "openrouter.ai")
		return jsonResponse(200, `{"id":"x","choices":[{"finish_reason":"stop","message":{"role":"assistant","content":"hi"}}],"usage":{}}`), nil
	})
	client := NewOpenRouter(Options{APIKey: "k", DefaultModel: "openrouter/auto", HTTPClient: fake})
	assert.Equal(t, "openrouter", client.Name())

	_, err := client.Complete(context.Background(), &message.Request{
		Messages: []message.Message{message.Text(message.RoleUser, "hi")},
	})
	require.NoError(t, err)
}
