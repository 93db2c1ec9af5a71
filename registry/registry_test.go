package registry_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/polyprompt/polyprompt/capability"
	"github.com/polyprompt/polyprompt/message"
	"github.com/polyprompt/polyprompt/registry"
)

type fakeClient struct{ name string }

func (f *fakeClient) Name() string { return f.name }
func (f *fakeClient) Complete(ctx context.Context, req *message.Request) (*message.Response, error) {
	return &message.Response{}, nil
}

type fakeStreamingClient struct{ fakeClient }

func (f *fakeStreamingClient) Stream(ctx context.Context, req *message.Request) (capability.Streamer, error) {
	return nil, nil
}

type fakeEmbeddingClient struct{ fakeClient }

func (f *fakeEmbeddingClient) Embed(ctx context.Context, req capability.EmbeddingRequest) (*capability.EmbeddingResponse, error) {
	return &capability.EmbeddingResponse{}, nil
}

func TestRegisterIsIdempotentByDefault(t *testing.T) {
	r := registry.NewRegistry()
	first := &fakeClient{name: "anthropic"}
	second := &fakeClient{name: "anthropic-replacement"}

	require.NoError(t, r.Register("anthropic", first))
	require.NoError(t, r.Register("anthropic", second))

	got, ok := r.Get("anthropic")
	require.True(t, ok)
	assert.Same(t, first, got)
}

func TestRegisterWithReplaceOverwrites(t *testing.T) {
	r := registry.NewRegistry()
	first := &fakeClient{name: "anthropic"}
	second := &fakeClient{name: "anthropic-replacement"}

	require.NoError(t, r.Register("anthropic", first))
	require.NoError(t, r.Register("anthropic", second, registry.WithReplace(true)))

	got, ok := r.Get("anthropic")
	require.True(t, ok)
	assert.Same(t, second, got)
}

func TestCapabilityDetection(t *testing.T) {
	r := registry.NewRegistry()
	require.NoError(t, r.Register("openai", &fakeClient{name: "openai"}))
	require.NoError(t, r.Register("anthropic", &fakeStreamingClient{fakeClient{name: "anthropic"}}))

	assert.True(t, r.Has("openai", registry.CapChat))
	assert.False(t, r.Has("openai", registry.CapStreaming))
	assert.True(t, r.Has("anthropic", registry.CapStreaming))
}

func TestFindAllAndFindAny(t *testing.T) {
	r := registry.NewRegistry()
	require.NoError(t, r.Register("openai", &fakeClient{name: "openai"}))
	require.NoError(t, r.Register("anthropic", &fakeStreamingClient{fakeClient{name: "anthropic"}}))

	assert.ElementsMatch(t, []string{"openai", "anthropic"}, r.FindAll(registry.CapChat))
	assert.ElementsMatch(t, []string{"anthropic"}, r.FindAll(registry.CapStreaming))
	assert.ElementsMatch(t, []string{"anthropic"}, r.FindAny(registry.CapStreaming, registry.CapCaching))
}

func TestBestRanksByPreferredOverlap(t *testing.T) {
	r := registry.NewRegistry()
	require.NoError(t, r.Register("openai", &fakeClient{name: "openai"}))
	require.NoError(t, r.Register("anthropic", &fakeStreamingClient{fakeClient{name: "anthropic"}}))

	best, ok := r.Best([]registry.Capability{registry.CapChat}, []registry.Capability{registry.CapStreaming})
	require.True(t, ok)
	assert.Equal(t, "anthropic", best)
}

func TestBestReturnsFalseWhenNoneSatisfyRequired(t *testing.T) {
	r := registry.NewRegistry()
	require.NoError(t, r.Register("openai", &fakeClient{name: "openai"}))

	_, ok := r.Best([]registry.Capability{registry.CapCaching}, nil)
	assert.False(t, ok)
}

func TestUnregisterAndClear(t *testing.T) {
	r := registry.NewRegistry()
	require.NoError(t, r.Register("openai", &fakeClient{name: "openai"}))
	r.Unregister("openai")
	_, ok := r.Get("openai")
	assert.False(t, ok)

	require.NoError(t, r.Register("openai", &fakeClient{name: "openai"}))
	r.Clear()
	assert.Empty(t, r.FindAll(registry.CapChat))
}

func TestParseIdentifier(t *testing.T) {
	providerID, modelID, ok := registry.ParseIdentifier("anthropic:claude-sonnet-4-5", "")
	require.True(t, ok)
	assert.Equal(t, "anthropic", providerID)
	assert.Equal(t, "claude-sonnet-4-5", modelID)

	_, _, ok = registry.ParseIdentifier("no-separator", "")
	assert.False(t, ok)
}

func TestClientResolveSucceeds(t *testing.T) {
	r := registry.NewRegistry()
	fc := &fakeClient{name: "openai"}
	require.NoError(t, r.Register("openai", fc))

	client := registry.NewClient(r)
	resolved, modelID, err := client.Resolve("openai:gpt-4o")
	require.NoError(t, err)
	assert.Same(t, fc, resolved)
	assert.Equal(t, "gpt-4o", modelID)
}

func TestClientResolveUnregisteredProviderFails(t *testing.T) {
	r := registry.NewRegistry()
	client := registry.NewClient(r)
	_, _, err := client.Resolve("missing:model")
	assert.Error(t, err)
}

func TestClientResolveMalformedIdentifierFails(t *testing.T) {
	r := registry.NewRegistry()
	client := registry.NewClient(r)
	_, _, err := client.Resolve("no-separator-here")
	assert.Error(t, err)
}

func TestClientResolveEmbeddingSucceeds(t *testing.T) {
	r := registry.NewRegistry()
	fc := &fakeEmbeddingClient{fakeClient{name: "gemini"}}
	require.NoError(t, r.Register("gemini", fc))
	assert.True(t, r.Has("gemini", registry.CapEmbedding))

	client := registry.NewClient(r)
	resolved, modelID, err := client.ResolveEmbedding("gemini:text-embedding-004")
	require.NoError(t, err)
	assert.Same(t, fc, resolved)
	assert.Equal(t, "text-embedding-004", modelID)
}

func TestClientResolveEmbeddingFailsWithoutFactory(t *testing.T) {
	r := registry.NewRegistry()
	require.NoError(t, r.Register("openai", &fakeClient{name: "openai"}))

	client := registry.NewClient(r)
	_, _, err := client.ResolveEmbedding("openai:gpt-4o")
	assert.Error(t, err)
}

func TestClientWithCustomSeparator(t *testing.T) {
	r := registry.NewRegistry()
	fc := &fakeClient{name: "ollama"}
	require.NoError(t, r.Register("ollama", fc))

	client := registry.NewClient(r, registry.WithSeparator("/"))
	resolved, modelID, err := client.Resolve("ollama/llama3.1")
	require.NoError(t, err)
	assert.Same(t, fc, resolved)
	assert.Equal(t, "llama3.1", modelID)
}
