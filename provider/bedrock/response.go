package bedrock

import (
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	brtypes "github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"

	"github.com/polyprompt/polyprompt/message"
	"github.com/polyprompt/polyprompt/toolname"
)

// translateResponse converts a Converse output into the normalized
// message.Response shape, remapping tool_use names back to their
// caller-visible originals via tm.
func translateResponse(output *bedrockruntime.ConverseOutput, tm *toolname.Mapping) *message.Response {
	out := &message.Response{
		StopReason: string(output.StopReason),
		ProviderMetadata: map[string]map[string]any{
			"bedrock": {},
		},
	}

	var parts []message.Part
	if msg, ok := output.Output.(*brtypes.ConverseOutputMemberMessage); ok {
		for _, block := range msg.Value.Content {
			switch v := block.(type) {
			case *brtypes.ContentBlockMemberText:
				if v.Value == "" {
					continue
				}
				parts = append(parts, message.TextPart{Text: v.Value})
			case *brtypes.ContentBlockMemberReasoningContent:
				if part := translateReasoningBlock(v.Value); part != nil {
					parts = append(parts, *part)
				}
			case *brtypes.ContentBlockMemberToolUse:
				name := ""
				if v.Value.Name != nil {
					name = normalizeToolName(*v.Value.Name)
					if tm != nil {
						if canon, ok := tm.ToCanonical(name); ok {
							name = canon
						}
					}
				}
				id := ""
				if v.Value.ToolUseId != nil {
					id = *v.Value.ToolUseId
				}
				input := decodeDocument(v.Value.Input)
				parts = append(parts, message.ToolUsePart{ID: id, Name: name, Input: input})
				out.ToolCalls = append(out.ToolCalls, message.ToolCall{ID: id, Name: name, Input: input})
			}
		}
	}
	if len(parts) > 0 {
		out.Content = []message.Message{{Role: message.RoleAssistant, Parts: parts}}
	}

	if usage := output.Usage; usage != nil {
		out.Usage = message.Usage{
			InputTokens:      int32Value(usage.InputTokens),
			OutputTokens:     int32Value(usage.OutputTokens),
			TotalTokens:      int32Value(usage.TotalTokens),
			CacheReadTokens:  int32Value(usage.CacheReadInputTokens),
			CacheWriteTokens: int32Value(usage.CacheWriteInputTokens),
		}
	}
	return out
}

func translateReasoningBlock(rc brtypes.ReasoningContentBlock) *message.ThinkingPart {
	switch v := rc.(type) {
	case *brtypes.ReasoningContentBlockMemberReasoningText:
		text := ""
		if v.Value.Text != nil {
			text = *v.Value.Text
		}
		sig := ""
		if v.Value.Signature != nil {
			sig = *v.Value.Signature
		}
		if text == "" && sig == "" {
			return nil
		}
		return &message.ThinkingPart{Text: text, Signature: sig, Final: true}
	case *brtypes.ReasoningContentBlockMemberRedactedContent:
		if len(v.Value) == 0 {
			return nil
		}
		return &message.ThinkingPart{Redacted: v.Value, Final: true}
	default:
		return nil
	}
}

func int32Value(ptr *int32) int {
	if ptr == nil {
		return 0
	}
	return int(*ptr)
}

// normalizeToolName strips the "$FUNCTIONS." prefix some Bedrock-hosted
// models (observed on Mistral) add to a tool_use block's name.
func normalizeToolName(name string) string {
	const prefix = "$FUNCTIONS."
	if len(name) > len(prefix) && name[:len(prefix)] == prefix {
		return name[len(prefix):]
	}
	return name
}
