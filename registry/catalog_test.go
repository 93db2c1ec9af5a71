package registry_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/polyprompt/polyprompt/config"
	"github.com/polyprompt/polyprompt/message"
	"github.com/polyprompt/polyprompt/registry"
)

func TestResolveModelExplicitWins(t *testing.T) {
	got := registry.ResolveModel("anthropic", config.ProviderOptions{DefaultModel: "configured"}, "explicit", message.ModelClassDefault)
	assert.Equal(t, "explicit", got)
}

func TestResolveModelFallsBackToOptions(t *testing.T) {
	got := registry.ResolveModel("anthropic", config.ProviderOptions{HighReasoningModel: "configured-high"}, "", message.ModelClassHighReasoning)
	assert.Equal(t, "configured-high", got)
}

func TestResolveModelFallsBackToCatalog(t *testing.T) {
	got := registry.ResolveModel("anthropic", config.ProviderOptions{}, "", message.ModelClassSmall)
	assert.Equal(t, registry.AnthropicCatalog[message.ModelClassSmall], got)
}

func TestResolveModelUnknownProviderReturnsEmpty(t *testing.T) {
	got := registry.ResolveModel("unknown", config.ProviderOptions{}, "", message.ModelClassDefault)
	assert.Empty(t, got)
}

func TestGeminiSafetySettingsCoversCoreCategories(t *testing.T) {
	settings := registry.GeminiSafetySettings()
	assert.Len(t, settings, 4)
	for _, s := range settings {
		assert.NotZero(t, s.Category)
		assert.NotZero(t, s.Threshold)
	}
}
