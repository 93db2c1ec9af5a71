package ollama

import (
	"encoding/base64"
	"encoding/json"
	"fmt"

	"github.com/polyprompt/polyprompt/llmerr"
	"github.com/polyprompt/polyprompt/message"
	"github.com/polyprompt/polyprompt/toolname"
)

// buildRequest translates req into the Ollama /api/chat wire shape. tm maps
// caller-visible tool names to collision-safe request names; it may be nil
// when req carries no tools. opts/keepAlive/raw are client-level defaults
// (Ollama's options bag is a runtime/model tuning knob, not a per-request
// prompt concern, so it is configured once on the Client rather than
// threaded through message.Config).
func buildRequest(req *message.Request, tm *toolname.Mapping, model string, opts *wireOptions, keepAlive string, raw bool, stream bool) (chatRequest, error) {
	names := toolCallNamesByID(req.Messages)
	messages, err := buildMessages(req.Messages, tm, names)
	if err != nil {
		return chatRequest{}, err
	}

	out := chatRequest{
		Model:     model,
		Messages:  messages,
		Stream:    stream,
		Raw:       raw,
		KeepAlive: keepAlive,
		Options:   effectiveOptions(req, opts),
	}
	if len(req.Tools) > 0 {
		out.Tools = buildTools(req.Tools, tm)
	}
	return out, nil
}

func effectiveOptions(req *message.Request, base *wireOptions) *wireOptions {
	var out wireOptions
	if base != nil {
		out = *base
	}
	haveAny := base != nil
	if req.Temperature != 0 {
		out.Temperature = req.Temperature
		haveAny = true
	}
	if req.TopP != 0 {
		out.TopP = req.TopP
		haveAny = true
	}
	if req.MaxTokens > 0 {
		out.NumPredict = req.MaxTokens
		haveAny = true
	}
	if !haveAny {
		return nil
	}
	return &out
}

func buildTools(tools []message.Tool, tm *toolname.Mapping) []wireTool {
	out := make([]wireTool, 0, len(tools))
	for _, t := range tools {
		out = append(out, wireTool{
			Type: "function",
			Function: wireFunction{
				Name:        mappedName(t.Name, tm),
				Description: t.Description,
				Parameters:  t.InputSchema,
			},
		})
	}
	return out
}

func mappedName(name string, tm *toolname.Mapping) string {
	if tm != nil {
		if mapped, ok := tm.ToProvider(name); ok {
			return mapped
		}
	}
	return name
}

// toolCallNamesByID recovers the tool name for a ToolUseID. Ollama's wire
// protocol has no id concept for tool calls: a call is identified purely by
// function name, same as Gemini. message.NewCallID synthesizes an ID on the
// response side (see translateResponse) so the shared IR can still
// correlate a ToolResultPart with the call it answers; this scans the full
// transcript to recover the name that id was synthesized for.
func toolCallNamesByID(msgs []message.Message) map[string]string {
	out := make(map[string]string)
	for _, m := range msgs {
		for _, p := range m.Parts {
			if tu, ok := p.(message.ToolUsePart); ok {
				out[tu.ID] = tu.Name
			}
		}
	}
	return out
}

func buildMessages(msgs []message.Message, tm *toolname.Mapping, names map[string]string) ([]wireMessage, error) {
	var out []wireMessage
	for _, m := range msgs {
		built, err := buildMessage(m, tm, names)
		if err != nil {
			return nil, err
		}
		out = append(out, built...)
	}
	return out, nil
}

// buildMessage can expand to more than one wire message: a ToolResultPart
// becomes its own role:"tool" message, independent of any text/image
// content sharing the same message.Message.
func buildMessage(m message.Message, tm *toolname.Mapping, names map[string]string) ([]wireMessage, error) {
	role := wireRole(m.Role)

	var text string
	var images []string
	var toolCalls []wireToolCall
	var out []wireMessage

	for _, p := range m.Parts {
		switch v := p.(type) {
		case message.TextPart:
			text += v.Text
		case message.ThinkingPart:
			text += v.Text
		case message.ImagePart:
			images = append(images, base64.StdEncoding.EncodeToString(v.Bytes))
		case message.DocumentPart:
			if v.Text != "" {
				text += v.Text
			}
		case message.ToolUsePart:
			args := v.Input
			if len(args) == 0 {
				args = json.RawMessage("{}")
			}
			toolCalls = append(toolCalls, wireToolCall{Function: wireToolCallFunc{
				Name:      mappedName(v.Name, tm),
				Arguments: args,
			}})
		case message.ToolResultPart:
			name := names[v.ToolUseID]
			if name == "" {
				return nil, llmerr.New("ollama", llmerr.KindInvalidRequest, nil).
					WithMessage(fmt.Sprintf("no preceding tool call found for tool result %q", v.ToolUseID))
			}
			content, err := toolResultText(v)
			if err != nil {
				return nil, err
			}
			out = append(out, wireMessage{Role: "tool", ToolName: mappedName(name, tm), Content: content})
		}
	}

	if text != "" || len(images) > 0 || len(toolCalls) > 0 {
		out = append([]wireMessage{{Role: role, Content: text, Images: images, ToolCalls: toolCalls}}, out...)
	}
	return out, nil
}

func toolResultText(tr message.ToolResultPart) (string, error) {
	switch v := tr.Content.(type) {
	case string:
		return v, nil
	default:
		raw, err := json.Marshal(v)
		if err != nil {
			return "", llmerr.New("ollama", llmerr.KindInvalidRequest, err).
				WithMessage("tool result content is not JSON-serializable")
		}
		return string(raw), nil
	}
}

func wireRole(r message.Role) string {
	switch r {
	case message.RoleSystem:
		return "system"
	case message.RoleAssistant:
		return "assistant"
	default:
		return "user"
	}
}
