package openairesponses

import (
	"encoding/base64"
	"encoding/json"
	"fmt"

	"github.com/polyprompt/polyprompt/llmerr"
	"github.com/polyprompt/polyprompt/message"
	"github.com/polyprompt/polyprompt/toolname"
)

func rawBase64(b []byte) string { return base64.StdEncoding.EncodeToString(b) }

// previousResponseIDMetaKey is the Message.ProviderMetadata key a caller
// sets on the last message of a Request to chain onto a prior Responses
// API call instead of replaying the full transcript as input items.
const previousResponseIDMetaKey = "previous_response_id"

// buildRequest translates req into the Responses API wire shape. tm maps
// caller-visible tool names to collision-safe request names; it may be nil
// when req carries no tools.
func buildRequest(req *message.Request, tm *toolname.Mapping, model string, stream bool) (responsesRequest, error) {
	instructions, rest := splitSystemInstructions(req.Messages)

	items, err := buildItems(rest, tm)
	if err != nil {
		return responsesRequest{}, err
	}

	out := responsesRequest{
		Model:              model,
		Input:              items,
		Instructions:       instructions,
		PreviousResponseID: previousResponseID(req.Messages),
		Stream:             stream,
	}
	if req.MaxTokens > 0 {
		out.MaxOutputTokens = req.MaxTokens
	}
	if req.Temperature != 0 {
		t := req.Temperature
		out.Temperature = &t
	}
	if req.TopP != 0 {
		p := req.TopP
		out.TopP = &p
	}
	if len(req.Tools) > 0 || len(req.ProviderTools) > 0 {
		out.Tools = append(buildTools(req.Tools, tm), buildProviderTools(req.ProviderTools)...)
	}
	if req.ToolChoice != nil {
		out.ToolChoice = buildToolChoice(*req.ToolChoice, tm)
	}
	if req.Thinking != nil && req.Thinking.Enable {
		out.Reasoning = &wireReasoningConfig{Effort: "medium", Summary: "auto"}
	}
	return out, nil
}

func previousResponseID(msgs []message.Message) string {
	for i := len(msgs) - 1; i >= 0; i-- {
		if id, ok := msgs[i].ProviderMeta("openai-responses", previousResponseIDMetaKey); ok {
			if s, ok := id.(string); ok {
				return s
			}
		}
	}
	return ""
}

func splitSystemInstructions(msgs []message.Message) (string, []message.Message) {
	var instructions string
	var rest []message.Message
	for _, m := range msgs {
		if m.Role == message.RoleSystem {
			for _, p := range m.Parts {
				if tp, ok := p.(message.TextPart); ok {
					instructions += tp.Text
				}
			}
			continue
		}
		rest = append(rest, m)
	}
	return instructions, rest
}

func buildToolChoice(choice message.ToolChoice, tm *toolname.Mapping) *wireToolChoice {
	switch choice.Mode {
	case message.ToolChoiceModeNone:
		return &wireToolChoice{mode: "none"}
	case message.ToolChoiceModeAny:
		return &wireToolChoice{mode: "required"}
	case message.ToolChoiceModeTool:
		return &wireToolChoice{mode: "tool", name: mappedName(choice.Name, tm)}
	default:
		return &wireToolChoice{mode: "auto"}
	}
}

func buildTools(tools []message.Tool, tm *toolname.Mapping) []wireTool {
	out := make([]wireTool, 0, len(tools))
	for _, t := range tools {
		out = append(out, wireTool{
			Type:        "function",
			Name:        mappedName(t.Name, tm),
			Description: t.Description,
			Parameters:  t.InputSchema,
		})
	}
	return out
}

// buildProviderTools translates the "openai" subset of providerTools into
// wire tool entries. Each native tool id becomes the wire Type verbatim
// (e.g. "web_search_preview"); any caller-supplied Options are passed
// through as additional top-level fields on the tool object.
func buildProviderTools(providerTools []message.ProviderTool) []wireTool {
	var out []wireTool
	for _, pt := range message.ForProvider(providerTools, "openai") {
		_, native := message.SplitProviderToolID(pt.ID)
		out = append(out, wireTool{Type: native, Options: pt.Options})
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

func buildItems(msgs []message.Message, tm *toolname.Mapping) ([]wireItem, error) {
	var out []wireItem
	for _, m := range msgs {
		items, err := itemsForMessage(m, tm)
		if err != nil {
			return nil, err
		}
		out = append(out, items...)
	}
	return out, nil
}

func itemsForMessage(m message.Message, tm *toolname.Mapping) ([]wireItem, error) {
	var out []wireItem
	var content []wireContent
	role := wireRole(m.Role)
	contentType := "input_text"
	if role == "assistant" {
		contentType = "output_text"
	}

	flushMessage := func() {
		if len(content) == 0 {
			return
		}
		out = append(out, wireItem{Type: "message", Role: role, Content: content})
		content = nil
	}

	for _, p := range m.Parts {
		switch v := p.(type) {
		case message.TextPart:
			content = append(content, wireContent{Type: contentType, Text: v.Text})
		case message.ImagePart:
			content = append(content, wireContent{
				Type:     "input_image",
				ImageURL: fmt.Sprintf("data:image/%s;base64,%s", v.Format, rawBase64(v.Bytes)),
			})
		case message.DocumentPart:
			if v.Format == message.DocumentFormatPDF {
				content = append(content, wireContent{Type: "input_file", FileData: rawBase64(v.Bytes), Filename: v.Name})
			} else if v.Text != "" {
				content = append(content, wireContent{Type: contentType, Text: v.Text})
			}
		case message.ThinkingPart:
			flushMessage()
			out = append(out, wireItem{
				Type:             "reasoning",
				Summary:          []wireSummary{{Type: "summary_text", Text: v.Text}},
				EncryptedContent: v.Signature,
			})
		case message.ToolUsePart:
			flushMessage()
			args := v.Input
			if len(args) == 0 {
				args = json.RawMessage("{}")
			}
			out = append(out, wireItem{
				Type:      "function_call",
				CallID:    v.ID,
				Name:      mappedName(v.Name, tm),
				Arguments: args,
			})
		case message.ToolResultPart:
			flushMessage()
			output, err := toolResultOutput(v)
			if err != nil {
				return nil, err
			}
			out = append(out, wireItem{Type: "function_call_output", CallID: v.ToolUseID, Output: output})
		}
	}
	flushMessage()
	return out, nil
}

func toolResultOutput(tr message.ToolResultPart) (string, error) {
	switch v := tr.Content.(type) {
	case string:
		return v, nil
	default:
		raw, err := json.Marshal(v)
		if err != nil {
			return "", llmerr.New("openai-responses", llmerr.KindInvalidRequest, err).
				WithMessage("tool result content is not JSON-serializable")
		}
		return string(raw), nil
	}
}

func wireRole(r message.Role) string {
	switch r {
	case message.RoleAssistant:
		return "assistant"
	default:
		return "user"
	}
}
