package openai

import (
	"encoding/base64"
	"encoding/json"
	"fmt"

	"github.com/polyprompt/polyprompt/llmerr"
	"github.com/polyprompt/polyprompt/message"
	"github.com/polyprompt/polyprompt/toolname"
)

// buildRequest translates req into the OpenAI Chat Completions wire shape.
// tm maps caller-visible tool names to collision-safe request names; it may
// be nil when req carries no tools.
func buildRequest(req *message.Request, tm *toolname.Mapping, model string, stream bool) (chatRequest, error) {
	messages, err := buildMessages(req.Messages, tm)
	if err != nil {
		return chatRequest{}, err
	}

	out := chatRequest{
		Model:    model,
		Messages: messages,
	}
	if req.MaxTokens > 0 {
		out.MaxTokens = req.MaxTokens
	}
	if req.Temperature != 0 {
		t := req.Temperature
		out.Temperature = &t
	}
	if req.TopP != 0 {
		p := req.TopP
		out.TopP = &p
	}
	if len(req.Tools) > 0 {
		tools, err := buildTools(req.Tools, tm)
		if err != nil {
			return chatRequest{}, err
		}
		out.Tools = tools
	}
	if req.ToolChoice != nil {
		out.ToolChoice = buildToolChoice(*req.ToolChoice, tm)
	}
	if stream {
		out.Stream = true
		out.StreamOptions = &wireStreamOptions{IncludeUsage: true}
	}
	return out, nil
}

func buildToolChoice(choice message.ToolChoice, tm *toolname.Mapping) *wireToolChoice {
	switch choice.Mode {
	case message.ToolChoiceModeNone:
		return &wireToolChoice{mode: "none"}
	case message.ToolChoiceModeAny:
		return &wireToolChoice{mode: "required"}
	case message.ToolChoiceModeTool:
		name := choice.Name
		if tm != nil {
			if mapped, ok := tm.ToProvider(name); ok {
				name = mapped
			}
		}
		return &wireToolChoice{mode: "tool", name: name}
	default:
		return &wireToolChoice{mode: "auto"}
	}
}

func buildTools(tools []message.Tool, tm *toolname.Mapping) ([]wireTool, error) {
	out := make([]wireTool, 0, len(tools))
	for _, t := range tools {
		name := t.Name
		if tm != nil {
			mapped, ok := tm.ToProvider(name)
			if !ok {
				return nil, llmerr.New("openai", llmerr.KindInvalidRequest, nil).
					WithMessage(fmt.Sprintf("tool %q has no request-name mapping", name))
			}
			name = mapped
		}
		out = append(out, wireTool{
			Type: "function",
			Function: wireFunction{
				Name:        name,
				Description: t.Description,
				Parameters:  t.InputSchema,
			},
		})
	}
	return out, nil
}

func buildMessages(msgs []message.Message, tm *toolname.Mapping) ([]wireMessage, error) {
	var out []wireMessage
	for _, m := range msgs {
		role := wireRole(m.Role)

		var toolResults []message.ToolResultPart
		var contentParts []wireContentPart
		var toolCalls []wireToolCall
		var plainText string
		textOnly := true

		for _, p := range m.Parts {
			switch v := p.(type) {
			case message.TextPart:
				plainText += v.Text
				contentParts = append(contentParts, wireContentPart{Type: "text", Text: v.Text})
			case message.ImagePart:
				textOnly = false
				contentParts = append(contentParts, wireContentPart{
					Type: "image_url",
					ImageURL: &wireImageURL{
						URL: fmt.Sprintf("data:image/%s;base64,%s", v.Format, base64.StdEncoding.EncodeToString(v.Bytes)),
					},
				})
			case message.ToolUsePart:
				name := v.Name
				if tm != nil {
					if mapped, ok := tm.ToProvider(name); ok {
						name = mapped
					}
				}
				toolCalls = append(toolCalls, wireToolCall{
					ID:   v.ID,
					Type: "function",
					Function: wireToolCallFunc{
						Name:      name,
						Arguments: string(v.Input),
					},
				})
			case message.ToolResultPart:
				toolResults = append(toolResults, v)
			}
		}

		for _, tr := range toolResults {
			content, err := toolResultContent(tr)
			if err != nil {
				return nil, err
			}
			out = append(out, wireMessage{
				Role:       "tool",
				ToolCallID: tr.ToolUseID,
				Content:    content,
			})
		}

		if len(toolCalls) == 0 && len(contentParts) == 0 {
			continue
		}

		wm := wireMessage{Role: role}
		if len(toolCalls) > 0 {
			wm.ToolCalls = toolCalls
		}
		if len(contentParts) > 0 {
			if textOnly {
				raw, _ := json.Marshal(plainText)
				wm.Content = raw
			} else {
				raw, _ := json.Marshal(contentParts)
				wm.Content = raw
			}
		}
		if wm.Role != "" {
			out = append(out, wm)
		}
	}
	return out, nil
}

func toolResultContent(tr message.ToolResultPart) (json.RawMessage, error) {
	switch v := tr.Content.(type) {
	case string:
		raw, _ := json.Marshal(v)
		return raw, nil
	default:
		raw, err := json.Marshal(v)
		if err != nil {
			return nil, llmerr.New("openai", llmerr.KindInvalidRequest, err).
				WithMessage("tool result content is not JSON-serializable")
		}
		return raw, nil
	}
}

func wireRole(r message.Role) string {
	switch r {
	case message.RoleSystem:
		return "system"
	case message.RoleUser:
		return "user"
	case message.RoleAssistant:
		return "assistant"
	default:
		return "user"
	}
}
