// Package compat wires the OpenAI-compatible derivatives — DeepSeek, Groq,
// OpenRouter, and Phind — as thin base-URL/model-catalog wrappers over
// provider/openai rather than reimplementing the Chat Completions protocol
// a second time: these vendors all speak the same wire shape provider/openai
// already owns, differing only in endpoint, available models, and (for
// Phind) tool-call support.
package compat

// vendorConfig names the fixed, per-vendor facts a Client needs beyond what
// Options supplies: the default endpoint, the provider id surfaced by
// Name() and the base key of Response.ProviderMetadata, the capability
// alias key spec.md's double-keyed metadata convention requires alongside
// it (for example "deepseek.chat"), and whether the vendor's models ignore
// tool definitions outright.
type vendorConfig struct {
	providerID      string
	capabilityAlias string
	defaultBaseURL  string
	ignoresTools    bool
}

var (
	deepSeekConfig = vendorConfig{
		providerID:      "deepseek",
		capabilityAlias: "deepseek.chat",
		defaultBaseURL:  "https://api.deepseek.com/v1",
	}

	groqConfig = vendorConfig{
		providerID:      "groq",
		capabilityAlias: "groq.chat",
		defaultBaseURL:  "https://api.groq.com/openai/v1",
	}

	openRouterConfig = vendorConfig{
		providerID:      "openrouter",
		capabilityAlias: "openrouter.chat",
		defaultBaseURL:  "https://openrouter.ai/api/v1",
	}

	phindConfig = vendorConfig{
		providerID:      "phind",
		capabilityAlias: "phind.chat",
		defaultBaseURL:  "https://api.phind.com/v1",
		ignoresTools:    true,
	}
)

// NewDeepSeek constructs a Client wrapping provider/openai for DeepSeek's
// Chat Completions-compatible endpoint.
func NewDeepSeek(opts Options) *Client { return newClient(deepSeekConfig, opts) }

// NewGroq constructs a Client wrapping provider/openai for Groq's
// Chat Completions-compatible endpoint.
func NewGroq(opts Options) *Client { return newClient(groqConfig, opts) }

// NewOpenRouter constructs a Client wrapping provider/openai for
// OpenRouter's Chat Completions-compatible endpoint.
func NewOpenRouter(opts Options) *Client { return newClient(openRouterConfig, opts) }

// NewPhind constructs a Client wrapping provider/openai for Phind's
// Chat Completions-compatible endpoint. Phind does not support tool
// calling: requests carrying Config.Tools have them stripped before
// sending, and the response carries a warning recording the gap (see
// Client.Complete).
func NewPhind(opts Options) *Client { return newClient(phindConfig, opts) }
