package message

import "encoding/json"

// ChatMessageType discriminates the flattened legacy message shape.
type ChatMessageType string

const (
	// ChatMessageTypeSystem is a flattened system instruction.
	ChatMessageTypeSystem ChatMessageType = "system"

	// ChatMessageTypeUser is a flattened user-authored message.
	ChatMessageTypeUser ChatMessageType = "user"

	// ChatMessageTypeAssistant is a flattened assistant-authored message.
	ChatMessageTypeAssistant ChatMessageType = "assistant"

	// ChatMessageTypeToolCall is a flattened tool invocation requested by
	// the model.
	ChatMessageTypeToolCall ChatMessageType = "tool_call"

	// ChatMessageTypeToolResult is a flattened tool result supplied by the
	// caller.
	ChatMessageTypeToolResult ChatMessageType = "tool_result"
)

// ChatMessage is the legacy flattened message bridge: a string content plus
// a type discriminator, predating the typed Part model. Protocols that
// still take a flat message history can be driven by a prompt-first caller
// via ToChatMessages/FromChatMessages instead of each growing its own
// conversion code.
type ChatMessage struct {
	// Type discriminates the role/kind of this flattened message.
	Type ChatMessageType

	// Content is the flattened text payload: message text for
	// system/user/assistant, JSON arguments for a tool call, and the result
	// payload (stringified) for a tool result.
	Content string

	// ToolCallID correlates a ChatMessageTypeToolCall/ChatMessageTypeToolResult
	// message to the tool invocation it represents or answers.
	ToolCallID string

	// ToolName names the tool for a ChatMessageTypeToolCall message.
	ToolName string
}

// role reports the Message.Role a ChatMessage of this type reconstructs
// into. Tool calls are assistant-authored; tool results are attached to a
// user turn, matching ToolUsePart/ToolResultPart's own convention.
func (t ChatMessageType) role() Role {
	switch t {
	case ChatMessageTypeSystem:
		return RoleSystem
	case ChatMessageTypeAssistant, ChatMessageTypeToolCall:
		return RoleAssistant
	default:
		return RoleUser
	}
}

func chatMessageTypeForRole(r Role) ChatMessageType {
	switch r {
	case RoleSystem:
		return ChatMessageTypeSystem
	case RoleAssistant:
		return ChatMessageTypeAssistant
	default:
		return ChatMessageTypeUser
	}
}

// ToChatMessages flattens msgs into the legacy ChatMessage bridge, one
// legacy message per part. Parts with no flattened representation (images,
// documents, thinking, cache checkpoints) are dropped; ToChatMessages is
// lossless only for prompts built from TextPart/ToolUsePart/ToolResultPart
// content.
func ToChatMessages(msgs []Message) []ChatMessage {
	var out []ChatMessage
	for _, m := range msgs {
		for _, p := range m.Parts {
			cm, ok := toChatMessage(m.Role, p)
			if !ok {
				continue
			}
			out = append(out, cm)
		}
	}
	return out
}

func toChatMessage(role Role, p Part) (ChatMessage, bool) {
	switch v := p.(type) {
	case TextPart:
		return ChatMessage{Type: chatMessageTypeForRole(role), Content: v.Text}, true
	case ToolUsePart:
		return ChatMessage{Type: ChatMessageTypeToolCall, Content: string(v.Input), ToolCallID: v.ID, ToolName: v.Name}, true
	case ToolResultPart:
		return ChatMessage{Type: ChatMessageTypeToolResult, Content: stringifyToolResult(v.Content), ToolCallID: v.ToolUseID}, true
	default:
		return ChatMessage{}, false
	}
}

func stringifyToolResult(content any) string {
	switch c := content.(type) {
	case string:
		return c
	case []byte:
		return string(c)
	default:
		raw, err := json.Marshal(c)
		if err != nil {
			return ""
		}
		return string(raw)
	}
}

// FromChatMessages reconstructs a Messages slice from the legacy bridge,
// merging consecutive ChatMessages that reconstruct to the same role back
// into a single Message carrying one part per legacy entry — the inverse of
// ToChatMessages. For any prompt built only from TextPart content, with no
// two adjacent Messages sharing a role,
// FromChatMessages(ToChatMessages(p)) reproduces p exactly.
func FromChatMessages(chatMsgs []ChatMessage) []Message {
	var out []Message
	for _, cm := range chatMsgs {
		role := cm.Type.role()
		part := fromChatMessage(cm)
		if n := len(out); n > 0 && out[n-1].Role == role {
			out[n-1].Parts = append(out[n-1].Parts, part)
			continue
		}
		out = append(out, Message{Role: role, Parts: []Part{part}})
	}
	return out
}

func fromChatMessage(cm ChatMessage) Part {
	switch cm.Type {
	case ChatMessageTypeToolCall:
		return ToolUsePart{ID: cm.ToolCallID, Name: cm.ToolName, Input: []byte(cm.Content)}
	case ChatMessageTypeToolResult:
		return ToolResultPart{ToolUseID: cm.ToolCallID, Content: cm.Content}
	default:
		return TextPart{Text: cm.Content}
	}
}
