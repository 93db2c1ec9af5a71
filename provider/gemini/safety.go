package gemini

import "github.com/google/generative-ai-go/genai"

// wireSafetySettings converts registry.GeminiSafetySettings' genai-typed
// values into this package's hand-rolled wire shape. generative-ai-go's
// genai.SafetySetting is built for its own internal gRPC/REST transport and
// is not marshaled directly onto this module's request struct; the
// category/threshold enums are still sourced from genai so the default
// policy stays anchored to the SDK's published constants rather than to
// string literals copied by hand.
func wireSafetySettings(settings []*genai.SafetySetting) []wireSafety {
	out := make([]wireSafety, 0, len(settings))
	for _, s := range settings {
		if s == nil {
			continue
		}
		out = append(out, wireSafety{
			Category:  harmCategoryWire(s.Category),
			Threshold: harmBlockThresholdWire(s.Threshold),
		})
	}
	return out
}

func harmCategoryWire(c genai.HarmCategory) string {
	switch c {
	case genai.HarmCategoryHarassment:
		return "HARM_CATEGORY_HARASSMENT"
	case genai.HarmCategoryHateSpeech:
		return "HARM_CATEGORY_HATE_SPEECH"
	case genai.HarmCategorySexuallyExplicit:
		return "HARM_CATEGORY_SEXUALLY_EXPLICIT"
	case genai.HarmCategoryDangerousContent:
		return "HARM_CATEGORY_DANGEROUS_CONTENT"
	default:
		return "HARM_CATEGORY_UNSPECIFIED"
	}
}

func harmBlockThresholdWire(t genai.HarmBlockThreshold) string {
	switch t {
	case genai.HarmBlockLowAndAbove:
		return "BLOCK_LOW_AND_ABOVE"
	case genai.HarmBlockMediumAndAbove:
		return "BLOCK_MEDIUM_AND_ABOVE"
	case genai.HarmBlockOnlyHigh:
		return "BLOCK_ONLY_HIGH"
	case genai.HarmBlockNone:
		return "BLOCK_NONE"
	default:
		return "HARM_BLOCK_THRESHOLD_UNSPECIFIED"
	}
}
