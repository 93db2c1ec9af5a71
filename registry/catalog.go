package registry

import (
	"github.com/anthropics/anthropic-sdk-go"
	"github.com/google/generative-ai-go/genai"
	"github.com/openai/openai-go"

	"github.com/polyprompt/polyprompt/config"
	"github.com/polyprompt/polyprompt/message"
)

// AnthropicCatalog maps message.ModelClass to the published Claude model
// ids that back it by default, sourced from anthropic-sdk-go's model
// constants so this module never hand-copies a model string that the
// vendor SDK already exports.
var AnthropicCatalog = map[message.ModelClass]string{
	message.ModelClassDefault:       anthropic.ModelClaudeSonnet4_20250514,
	message.ModelClassHighReasoning: anthropic.ModelClaudeOpus4_20250514,
	message.ModelClassSmall:         anthropic.ModelClaude3_5HaikuLatest,
}

// OpenAICatalog maps message.ModelClass to published GPT/o-series model ids
// from openai-go's shared ChatModel constants.
var OpenAICatalog = map[message.ModelClass]string{
	message.ModelClassDefault:       openai.ChatModelGPT4o,
	message.ModelClassHighReasoning: openai.ChatModelO1,
	message.ModelClassSmall:         openai.ChatModelGPT4oMini,
}

// GeminiCatalog maps message.ModelClass to Gemini model ids. Unlike the
// Anthropic and OpenAI SDKs, google/generative-ai-go's genai package does
// not export model-id string constants — callers pass model names directly
// to genai.Client.GenerativeModel — so these values are plain literals
// naming the corresponding models, not vendor constants.
var GeminiCatalog = map[message.ModelClass]string{
	message.ModelClassDefault:       "gemini-2.5-flash",
	message.ModelClassHighReasoning: "gemini-2.5-pro",
	message.ModelClassSmall:         "gemini-2.5-flash-lite",
}

// BedrockCatalog maps message.ModelClass to Bedrock model ids. Like Gemini,
// the AWS SDK does not export model-id string constants for Bedrock
// foundation models — callers pass the model id straight through to
// Converse/ConverseStream — so these are plain literals naming Claude
// models available on Bedrock, not vendor constants.
var BedrockCatalog = map[message.ModelClass]string{
	message.ModelClassDefault:       "anthropic.claude-sonnet-4-20250514-v1:0",
	message.ModelClassHighReasoning: "anthropic.claude-opus-4-20250514-v1:0",
	message.ModelClassSmall:         "anthropic.claude-3-5-haiku-20241022-v1:0",
}

// ResolveModel picks the concrete model id for a request: an explicit
// model id always wins; otherwise the provider's configured override for
// class (DefaultModel/HighReasoningModel/SmallModel) is used; otherwise the
// built-in catalog for provider supplies the default. ResolveModel returns
// "" when provider has no catalog and opts supplies nothing for class.
func ResolveModel(provider string, opts config.ProviderOptions, explicitModel string, class message.ModelClass) string {
	if explicitModel != "" {
		return explicitModel
	}
	if m := fromOptions(opts, class); m != "" {
		return m
	}
	return fromCatalog(provider, class)
}

func fromOptions(opts config.ProviderOptions, class message.ModelClass) string {
	switch class {
	case message.ModelClassHighReasoning:
		return opts.HighReasoningModel
	case message.ModelClassSmall:
		return opts.SmallModel
	default:
		return opts.DefaultModel
	}
}

func fromCatalog(provider string, class message.ModelClass) string {
	var catalog map[message.ModelClass]string
	switch provider {
	case "anthropic":
		catalog = AnthropicCatalog
	case "openai", "openairesponses":
		catalog = OpenAICatalog
	case "gemini":
		catalog = GeminiCatalog
	case "bedrock":
		catalog = BedrockCatalog
	default:
		return ""
	}
	return catalog[class]
}

// GeminiSafetySettings returns a conservative default safetySettings list
// built from genai's HarmCategory/HarmBlockThreshold enums, reused by
// provider/gemini's request builder when a caller does not supply its own.
func GeminiSafetySettings() []*genai.SafetySetting {
	categories := []genai.HarmCategory{
		genai.HarmCategoryHarassment,
		genai.HarmCategoryHateSpeech,
		genai.HarmCategorySexuallyExplicit,
		genai.HarmCategoryDangerousContent,
	}
	settings := make([]*genai.SafetySetting, 0, len(categories))
	for _, cat := range categories {
		settings = append(settings, &genai.SafetySetting{
			Category:  cat,
			Threshold: genai.HarmBlockOnlyHigh,
		})
	}
	return settings
}
