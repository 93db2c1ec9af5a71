package gemini

import (
	"github.com/polyprompt/polyprompt/message"
	"github.com/polyprompt/polyprompt/toolname"
)

// translateResponse converts a non-stream generateContentResponse into the
// normalized message.Response shape, remapping functionCall names back to
// their caller-visible originals via tm. Gemini function calls carry no
// wire id, so each is assigned a fresh message.NewCallID here; a
// ToolResultPart that answers it carries this synthesized id, from which
// toolCallNamesByID in build.go recovers the function name sent on the wire.
func translateResponse(resp generateContentResponse, tm *toolname.Mapping) *message.Response {
	out := &message.Response{
		ProviderMetadata: map[string]map[string]any{
			"gemini": {"modelVersion": resp.ModelVersion},
		},
	}
	if resp.UsageMetadata != nil {
		out.Usage = message.Usage{
			InputTokens:     resp.UsageMetadata.PromptTokenCount,
			OutputTokens:    resp.UsageMetadata.CandidatesTokenCount,
			TotalTokens:     resp.UsageMetadata.TotalTokenCount,
			CacheReadTokens: resp.UsageMetadata.CachedContentTokenCount,
		}
	}
	if len(resp.Candidates) == 0 {
		return out
	}
	cand := resp.Candidates[0]
	out.StopReason = cand.FinishReason

	var parts []message.Part
	for _, p := range cand.Content.Parts {
		switch {
		case p.FunctionCall != nil:
			name := p.FunctionCall.Name
			if tm != nil {
				if canon, ok := tm.ToCanonical(name); ok {
					name = canon
				}
			}
			id := message.NewCallID()
			args := p.FunctionCall.Args
			if len(args) == 0 {
				args = []byte("{}")
			}
			parts = append(parts, message.ToolUsePart{ID: id, Name: name, Input: args})
			out.ToolCalls = append(out.ToolCalls, message.ToolCall{ID: id, Name: name, Input: args})
		case p.Thought:
			parts = append(parts, message.ThinkingPart{Text: p.Text, Signature: p.ThoughtSignature, Final: true})
		case p.Text != "":
			parts = append(parts, message.TextPart{Text: p.Text})
		}
	}
	if len(parts) > 0 {
		out.Content = []message.Message{{Role: message.RoleAssistant, Parts: parts}}
	}
	return out
}
