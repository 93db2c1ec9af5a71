package ollama

import (
	"github.com/polyprompt/polyprompt/message"
	"github.com/polyprompt/polyprompt/toolname"
)

// translateResponse converts a non-stream chatResponse into the normalized
// message.Response shape, remapping tool-call names back to their caller-
// visible originals via tm. Ollama tool calls carry no wire id, so each is
// assigned a fresh message.NewCallID here; see build.go's
// toolCallNamesByID for how an answering ToolResultPart is correlated back
// by name.
func translateResponse(resp chatResponse, tm *toolname.Mapping) *message.Response {
	out := &message.Response{
		StopReason: resp.DoneReason,
		Usage: message.Usage{
			InputTokens:  resp.PromptEvalCount,
			OutputTokens: resp.EvalCount,
			TotalTokens:  resp.PromptEvalCount + resp.EvalCount,
		},
		ProviderMetadata: map[string]map[string]any{
			"ollama": {"model": resp.Model, "total_duration": resp.TotalDuration},
		},
	}

	var parts []message.Part
	if resp.Message.Content != "" {
		parts = append(parts, message.TextPart{Text: resp.Message.Content})
	}
	for _, tc := range resp.Message.ToolCalls {
		name := tc.Function.Name
		if tm != nil {
			if canon, ok := tm.ToCanonical(name); ok {
				name = canon
			}
		}
		id := message.NewCallID()
		args := tc.Function.Arguments
		if len(args) == 0 {
			args = []byte("{}")
		}
		parts = append(parts, message.ToolUsePart{ID: id, Name: name, Input: args})
		out.ToolCalls = append(out.ToolCalls, message.ToolCall{ID: id, Name: name, Input: args})
	}
	if len(parts) > 0 {
		out.Content = []message.Message{{Role: message.RoleAssistant, Parts: parts}}
	}
	return out
}
