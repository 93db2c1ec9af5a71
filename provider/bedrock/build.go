package bedrock

import (
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	brtypes "github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"

	"github.com/polyprompt/polyprompt/llmerr"
	"github.com/polyprompt/polyprompt/message"
	"github.com/polyprompt/polyprompt/toolname"
)

// requestParts holds the encoded pieces of a Converse/ConverseStream
// request, shared between Complete and Stream so both build an
// InferenceConfiguration and AdditionalModelRequestFields on top of the same
// messages/system/toolConfig triple.
type requestParts struct {
	modelID    string
	messages   []brtypes.Message
	system     []brtypes.SystemContentBlock
	toolConfig *brtypes.ToolConfiguration
	tm         *toolname.Mapping
}

// isNovaModel reports whether modelID refers to an Amazon Nova family
// model. Nova does not support tool-level cache checkpoints in the tool
// configuration, unlike Claude-on-Bedrock.
func isNovaModel(modelID string) bool {
	return strings.HasPrefix(modelID, "amazon.nova-")
}

// toolMapping composes the collision-suffix mapping with Bedrock's
// [a-zA-Z0-9_-]{1,64} tool-name alphabet, the same sanitizer Converse's tool
// configuration requires (see toolname.Sanitize's doc comment), reusing the
// exact "collision map + alphabet sanitizer" layering provider/anthropic
// already established for Claude's looser 128-character limit.
func toolMapping(tools []message.Tool) (*toolname.Mapping, error) {
	if len(tools) == 0 {
		return nil, nil
	}
	names := make([]string, len(tools))
	for i, t := range tools {
		names[i] = t.Name
	}
	return toolname.NewMapping(names, func(s string) string { return toolname.Sanitize(s, 64) }, nil)
}

func encodeTools(tools []message.Tool, choice *message.ToolChoice, tm *toolname.Mapping, cacheAfterTools bool) (*brtypes.ToolConfiguration, error) {
	if len(tools) == 0 {
		if choice == nil {
			return nil, nil
		}
		return nil, llmerr.New("bedrock", llmerr.KindInvalidRequest, nil).
			WithMessage("tool choice is set but no tools are defined")
	}

	list := make([]brtypes.Tool, 0, len(tools))
	for _, t := range tools {
		name := t.Name
		if tm != nil {
			mapped, ok := tm.ToProvider(name)
			if !ok {
				return nil, llmerr.New("bedrock", llmerr.KindInvalidRequest, nil).
					WithMessage(fmt.Sprintf("tool %q has no request-name mapping", name))
			}
			name = mapped
		}
		list = append(list, &brtypes.ToolMemberToolSpec{
			Value: brtypes.ToolSpecification{
				Name:        aws.String(name),
				Description: aws.String(t.Description),
				InputSchema: &brtypes.ToolInputSchemaMemberJson{Value: toDocument(t.InputSchema)},
			},
		})
	}

	// Claude-on-Bedrock supports a tool-level cache checkpoint; Nova does
	// not, so callers must not set CachePolicy.AfterTools for Nova models
	// (enforced by the caller in prepareRequest, ahead of this call).
	if cacheAfterTools {
		list = append(list, &brtypes.ToolMemberCachePoint{
			Value: brtypes.CachePointBlock{Type: brtypes.CachePointTypeDefault},
		})
	}

	cfg := &brtypes.ToolConfiguration{Tools: list}
	if choice == nil {
		return cfg, nil
	}

	switch choice.Mode {
	case message.ToolChoiceModeNone, message.ToolChoiceModeAuto, "":
		// Auto/none are the provider default or require no ToolChoice, since
		// an empty ToolChoice still leaves tool definitions visible for
		// interpreting tool_use/tool_result blocks already in history.
	case message.ToolChoiceModeAny:
		cfg.ToolChoice = &brtypes.ToolChoiceMemberAny{Value: brtypes.AnyToolChoice{}}
	case message.ToolChoiceModeTool:
		if choice.Name == "" {
			return nil, llmerr.New("bedrock", llmerr.KindInvalidRequest, nil).
				WithMessage("tool choice mode \"tool\" requires a tool name")
		}
		name := choice.Name
		if tm != nil {
			if mapped, ok := tm.ToProvider(name); ok {
				name = mapped
			}
		}
		cfg.ToolChoice = &brtypes.ToolChoiceMemberTool{Value: brtypes.SpecificToolChoice{Name: aws.String(name)}}
	default:
		return nil, llmerr.New("bedrock", llmerr.KindInvalidRequest, nil).
			WithMessage(fmt.Sprintf("unsupported tool choice mode %q", choice.Mode))
	}
	return cfg, nil
}

// toolUseIDs tracks a per-request mapping from canonical tool_use IDs (which
// may be long or contain characters Bedrock rejects) to provider-safe IDs
// conforming to [a-zA-Z0-9_-]{1,64}. The mapping is local to one encode
// pass; it is never persisted or surfaced to callers.
type toolUseIDs struct {
	next int
	seen map[string]string
}

func newToolUseIDs() *toolUseIDs { return &toolUseIDs{seen: make(map[string]string)} }

func (t *toolUseIDs) For(canonical string) string {
	if canonical == "" {
		return ""
	}
	if isProviderSafeToolUseID(canonical) {
		return canonical
	}
	if id, ok := t.seen[canonical]; ok {
		return id
	}
	t.next++
	id := fmt.Sprintf("t%d", t.next)
	t.seen[canonical] = id
	return id
}

func isProviderSafeToolUseID(id string) bool {
	if id == "" || len(id) > 64 {
		return false
	}
	for _, r := range id {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_', r == '-':
		default:
			return false
		}
	}
	return true
}

// encodeMessages splits msgs into Converse's conversational "messages" array
// and "system" blocks, attaching cache checkpoints per cacheAfterSystem and
// any explicit message.CacheCheckpointPart.
func encodeMessages(msgs []message.Message, tm *toolname.Mapping, cacheAfterSystem bool) ([]brtypes.Message, []brtypes.SystemContentBlock, error) {
	ids := newToolUseIDs()
	var system []brtypes.SystemContentBlock
	var conversation []brtypes.Message

	for _, m := range msgs {
		if m.Role == message.RoleSystem {
			for _, p := range m.Parts {
				switch v := p.(type) {
				case message.TextPart:
					if v.Text != "" {
						system = append(system, &brtypes.SystemContentBlockMemberText{Value: v.Text})
					}
				case message.CacheCheckpointPart:
					system = append(system, &brtypes.SystemContentBlockMemberCachePoint{
						Value: brtypes.CachePointBlock{Type: brtypes.CachePointTypeDefault},
					})
				}
			}
			continue
		}

		blocks := make([]brtypes.ContentBlock, 0, len(m.Parts))
		for _, part := range m.Parts {
			switch v := part.(type) {
			case message.ThinkingPart:
				if v.Signature != "" && v.Text != "" {
					blocks = append(blocks, &brtypes.ContentBlockMemberReasoningContent{
						Value: &brtypes.ReasoningContentBlockMemberReasoningText{
							Value: brtypes.ReasoningTextBlock{Text: aws.String(v.Text), Signature: aws.String(v.Signature)},
						},
					})
				} else if len(v.Redacted) > 0 {
					blocks = append(blocks, &brtypes.ContentBlockMemberReasoningContent{
						Value: &brtypes.ReasoningContentBlockMemberRedactedContent{Value: v.Redacted},
					})
				}
			case message.TextPart:
				if v.Text != "" {
					blocks = append(blocks, &brtypes.ContentBlockMemberText{Value: v.Text})
				}
			case message.ToolUsePart:
				tb := brtypes.ToolUseBlock{Input: toDocument(v.Input)}
				if v.Name != "" {
					name := v.Name
					if tm != nil {
						mapped, ok := tm.ToProvider(name)
						if !ok {
							return nil, nil, llmerr.New("bedrock", llmerr.KindInvalidRequest, nil).
								WithMessage(fmt.Sprintf("tool_use references %q which is not in the current tool configuration", v.Name))
						}
						name = mapped
					}
					tb.Name = aws.String(name)
				}
				if id := ids.For(v.ID); id != "" {
					tb.ToolUseId = aws.String(id)
				}
				blocks = append(blocks, &brtypes.ContentBlockMemberToolUse{Value: tb})
			case message.ToolResultPart:
				tr := brtypes.ToolResultBlock{}
				if id := ids.For(v.ToolUseID); id != "" {
					tr.ToolUseId = aws.String(id)
				}
				if s, ok := v.Content.(string); ok {
					tr.Content = []brtypes.ToolResultContentBlock{&brtypes.ToolResultContentBlockMemberText{Value: s}}
				} else {
					tr.Content = []brtypes.ToolResultContentBlock{&brtypes.ToolResultContentBlockMemberJson{Value: toDocument(v.Content)}}
				}
				if v.IsError {
					tr.Status = brtypes.ToolResultStatusError
				}
				blocks = append(blocks, &brtypes.ContentBlockMemberToolResult{Value: tr})
			case message.CacheCheckpointPart:
				blocks = append(blocks, &brtypes.ContentBlockMemberCachePoint{
					Value: brtypes.CachePointBlock{Type: brtypes.CachePointTypeDefault},
				})
			}
		}
		if len(blocks) == 0 {
			continue
		}
		role := brtypes.ConversationRoleAssistant
		if m.Role == message.RoleUser {
			role = brtypes.ConversationRoleUser
		}
		conversation = append(conversation, brtypes.Message{Role: role, Content: blocks})
	}

	if len(conversation) == 0 {
		return nil, nil, llmerr.New("bedrock", llmerr.KindInvalidRequest, nil).
			WithMessage("at least one user/assistant message is required")
	}
	if cacheAfterSystem && len(system) > 0 {
		system = append(system, &brtypes.SystemContentBlockMemberCachePoint{
			Value: brtypes.CachePointBlock{Type: brtypes.CachePointTypeDefault},
		})
	}
	return conversation, system, nil
}

// messagesHaveToolBlocks reports whether any message carries a ToolUsePart
// or ToolResultPart. Converse requires ToolConfig to be set whenever history
// contains such blocks.
func messagesHaveToolBlocks(msgs []message.Message) bool {
	for _, m := range msgs {
		for _, p := range m.Parts {
			switch p.(type) {
			case message.ToolUsePart, message.ToolResultPart:
				return true
			}
		}
	}
	return false
}

type thinkingConfig struct {
	enable      bool
	interleaved bool
	budget      int
}

func resolveThinking(req *message.Request, toolConfig *brtypes.ToolConfiguration, defaultBudget int) thinkingConfig {
	if req.Thinking == nil || !req.Thinking.Enable {
		return thinkingConfig{}
	}
	budget := req.Thinking.BudgetTokens
	if budget <= 0 {
		budget = defaultBudget
	}
	return thinkingConfig{enable: true, interleaved: req.Thinking.Interleaved, budget: budget}
}
