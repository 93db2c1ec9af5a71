package openai

import (
	"github.com/polyprompt/polyprompt/message"
	"github.com/polyprompt/polyprompt/toolname"
)

// translateResponse converts a non-stream chatResponse into the normalized
// message.Response shape, remapping tool-call names back to their caller-
// visible originals via tm.
func translateResponse(resp chatResponse, tm *toolname.Mapping) *message.Response {
	out := &message.Response{
		Usage: message.Usage{
			InputTokens:      resp.Usage.PromptTokens,
			OutputTokens:     resp.Usage.CompletionTokens,
			TotalTokens:      resp.Usage.TotalTokens,
			CacheReadTokens:  resp.Usage.PromptTokensDetails.CachedTokens,
		},
		ProviderMetadata: map[string]map[string]any{
			"openai": {"id": resp.ID, "model": resp.Model},
		},
	}
	if len(resp.Choices) == 0 {
		return out
	}
	choice := resp.Choices[0]
	out.StopReason = choice.FinishReason

	var parts []message.Part
	if choice.Message.ReasoningContent != "" {
		parts = append(parts, message.ThinkingPart{Text: choice.Message.ReasoningContent, Final: true})
	}
	if choice.Message.Content != "" {
		parts = append(parts, message.TextPart{Text: choice.Message.Content})
	}
	for _, tc := range choice.Message.ToolCalls {
		name := tc.Function.Name
		if tm != nil {
			if canon, ok := tm.ToCanonical(name); ok {
				name = canon
			}
		}
		parts = append(parts, message.ToolUsePart{
			ID:    tc.ID,
			Name:  name,
			Input: []byte(tc.Function.Arguments),
		})
		out.ToolCalls = append(out.ToolCalls, message.ToolCall{
			ID:    tc.ID,
			Name:  name,
			Input: []byte(tc.Function.Arguments),
		})
	}
	if len(parts) > 0 {
		out.Content = []message.Message{{Role: message.RoleAssistant, Parts: parts}}
	}
	return out
}
