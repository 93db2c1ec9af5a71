package anthropic

import (
	"encoding/base64"

	"github.com/polyprompt/polyprompt/message"
	"github.com/polyprompt/polyprompt/toolname"
)

// translateResponse converts a non-stream messagesResponse into the
// normalized message.Response shape, remapping tool-call names back to
// their caller-visible originals via tm.
//
// StopReason is passed through verbatim, including "pause_turn": this
// adapter treats every stop reason identically at the non-stream boundary
// (message_stop is always the sole terminal event on the wire), so whether
// a caller resumes on pause_turn is a decision left to the caller, not
// something this parser distinguishes.
func translateResponse(resp messagesResponse, tm *toolname.Mapping) *message.Response {
	out := &message.Response{
		StopReason: resp.StopReason,
		Usage: message.Usage{
			InputTokens:      resp.Usage.InputTokens,
			OutputTokens:     resp.Usage.OutputTokens,
			TotalTokens:      resp.Usage.InputTokens + resp.Usage.OutputTokens,
			CacheReadTokens:  resp.Usage.CacheReadInputTokens,
			CacheWriteTokens: resp.Usage.CacheCreationInputTokens,
		},
		ProviderMetadata: map[string]map[string]any{
			"anthropic": {"id": resp.ID, "model": resp.Model},
		},
	}

	var parts []message.Part
	for _, block := range resp.Content {
		switch block.Type {
		case "text":
			if block.Text == "" {
				continue
			}
			parts = append(parts, message.TextPart{Text: block.Text})
		case "thinking":
			parts = append(parts, message.ThinkingPart{Text: block.Thinking, Signature: block.Signature, Final: true})
		case "redacted_thinking":
			data, err := base64.StdEncoding.DecodeString(block.Data)
			if err != nil {
				data = []byte(block.Data)
			}
			parts = append(parts, message.ThinkingPart{Redacted: data, Final: true})
		case "tool_use":
			name := block.Name
			if tm != nil {
				if canon, ok := tm.ToCanonical(name); ok {
					name = canon
				}
			}
			parts = append(parts, message.ToolUsePart{ID: block.ID, Name: name, Input: block.Input})
			out.ToolCalls = append(out.ToolCalls, message.ToolCall{ID: block.ID, Name: name, Input: block.Input})
		}
	}
	if len(parts) > 0 {
		out.Content = []message.Message{{Role: message.RoleAssistant, Parts: parts}}
	}
	return out
}
