package openairesponses

import (
	"encoding/json"
	"strings"

	"github.com/polyprompt/polyprompt/message"
	"github.com/polyprompt/polyprompt/toolname"
)

// providerNativeItemKeys maps a Responses API output item Type to the
// ProviderMetadata list key spec.md names for it.
var providerNativeItemKeys = map[string]string{
	"web_search_call":       "webSearchCalls",
	"file_search_call":      "fileSearchCalls",
	"code_interpreter_call": "codeInterpreterCalls",
	"image_generation_call": "imageGenerationCalls",
	"computer_call":         "computerCalls",
}

// translateResponse converts a non-stream responsesResponse into the
// normalized message.Response shape, remapping function_call names back to
// their caller-visible originals via tm. Provider-native tool invocations
// (web_search_call, file_search_call, code_interpreter_call,
// image_generation_call, computer_call) have no home in the shared
// message.Part union, so their raw payloads are collected into
// ProviderMetadata under the keys above instead of being dropped.
func translateResponse(resp responsesResponse, tm *toolname.Mapping) *message.Response {
	out := &message.Response{
		StopReason: resp.Status,
		ProviderMetadata: map[string]map[string]any{
			"openai-responses": {"id": resp.ID, "model": resp.Model},
		},
	}
	if resp.Usage != nil {
		out.Usage = message.Usage{
			InputTokens:     resp.Usage.InputTokens,
			OutputTokens:    resp.Usage.OutputTokens,
			TotalTokens:     resp.Usage.TotalTokens,
			CacheReadTokens: resp.Usage.InputTokensDetails.CachedTokens,
		}
	}

	var parts []message.Part
	nativeLists := map[string][]json.RawMessage{}

	for _, item := range resp.Output {
		switch item.Type {
		case "message":
			for _, c := range item.Content {
				if c.Text != "" {
					parts = append(parts, message.TextPart{Text: c.Text})
				}
			}
		case "reasoning":
			var text strings.Builder
			for _, s := range item.Summary {
				text.WriteString(s.Text)
			}
			parts = append(parts, message.ThinkingPart{Text: text.String(), Signature: item.EncryptedContent, Final: true})
		case "function_call":
			name := item.Name
			if tm != nil {
				if canon, ok := tm.ToCanonical(name); ok {
					name = canon
				}
			}
			args := item.Arguments
			if len(args) == 0 {
				args = json.RawMessage("{}")
			}
			parts = append(parts, message.ToolUsePart{ID: item.CallID, Name: name, Input: args})
			out.ToolCalls = append(out.ToolCalls, message.ToolCall{ID: item.CallID, Name: name, Input: args})
		default:
			if key, ok := providerNativeItemKeys[item.Type]; ok {
				nativeLists[key] = append(nativeLists[key], item.raw)
			}
		}
	}

	for key, items := range nativeLists {
		out.ProviderMetadata["openai-responses"][key] = items
	}
	if len(parts) > 0 {
		out.Content = []message.Message{{Role: message.RoleAssistant, Parts: parts}}
	}
	return out
}
