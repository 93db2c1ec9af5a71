package gemini

import (
	"encoding/base64"
	"encoding/json"
	"fmt"

	"github.com/polyprompt/polyprompt/llmerr"
	"github.com/polyprompt/polyprompt/message"
	"github.com/polyprompt/polyprompt/toolname"
)

// buildRequest translates req into the Gemini generateContent wire shape.
// tm maps caller-visible tool names to collision-safe request names; it may
// be nil when req carries no tools.
func buildRequest(req *message.Request, tm *toolname.Mapping, safety []wireSafety) (generateContentRequest, error) {
	sysInstruction := systemInstructionFor(req.Messages)
	names := toolCallNamesByID(req.Messages)

	contents, err := buildContents(req.Messages, tm, names)
	if err != nil {
		return generateContentRequest{}, err
	}

	out := generateContentRequest{
		Contents:          contents,
		SystemInstruction: sysInstruction,
		SafetySettings:    safety,
	}

	if len(req.Tools) > 0 || len(req.ProviderTools) > 0 {
		wt := wireTool{}
		if len(req.Tools) > 0 {
			wt.FunctionDeclarations = buildFunctionDeclarations(req.Tools, tm)
		}
		if err := applyProviderTools(&wt, req.ProviderTools); err != nil {
			return generateContentRequest{}, err
		}
		out.Tools = []wireTool{wt}
	}
	if req.ToolChoice != nil {
		out.ToolConfig = buildToolConfig(*req.ToolChoice, tm)
	}

	gc := &generationConfig{}
	haveConfig := false
	if req.Temperature != 0 {
		t := req.Temperature
		gc.Temperature = &t
		haveConfig = true
	}
	if req.TopP != 0 {
		p := req.TopP
		gc.TopP = &p
		haveConfig = true
	}
	if req.MaxTokens > 0 {
		gc.MaxOutputTokens = req.MaxTokens
		haveConfig = true
	}
	if tc := buildThinkingConfig(req.Thinking); tc != nil {
		gc.ThinkingConfig = tc
		haveConfig = true
	}
	if haveConfig {
		out.GenerationConfig = gc
	}
	return out, nil
}

func buildThinkingConfig(opts *message.ThinkingOptions) *thinkingConfig {
	if opts == nil || !opts.Enable {
		return nil
	}
	tc := &thinkingConfig{IncludeThoughts: true}
	if opts.BudgetTokens > 0 {
		budget := opts.BudgetTokens
		tc.ThinkingBudget = &budget
	}
	return tc
}

func buildToolConfig(choice message.ToolChoice, tm *toolname.Mapping) *wireToolConfig {
	switch choice.Mode {
	case message.ToolChoiceModeNone:
		return &wireToolConfig{FunctionCallingConfig: wireFunctionCallingConfig{Mode: "NONE"}}
	case message.ToolChoiceModeAny:
		return &wireToolConfig{FunctionCallingConfig: wireFunctionCallingConfig{Mode: "ANY"}}
	case message.ToolChoiceModeTool:
		name := mappedName(choice.Name, tm)
		return &wireToolConfig{FunctionCallingConfig: wireFunctionCallingConfig{
			Mode:                 "ANY",
			AllowedFunctionNames: []string{name},
		}}
	default:
		return &wireToolConfig{FunctionCallingConfig: wireFunctionCallingConfig{Mode: "AUTO"}}
	}
}

func buildFunctionDeclarations(tools []message.Tool, tm *toolname.Mapping) []wireFunctionDecl {
	out := make([]wireFunctionDecl, 0, len(tools))
	for _, t := range tools {
		out = append(out, wireFunctionDecl{
			Name:        mappedName(t.Name, tm),
			Description: t.Description,
			Parameters:  t.InputSchema,
		})
	}
	return out
}

// applyProviderTools sets wt's built-in tool fields from the "google"
// subset of tools, encoding each as an empty JSON object unless the caller
// supplied Options, which are passed through verbatim as the field value.
func applyProviderTools(wt *wireTool, tools []message.ProviderTool) error {
	for _, pt := range message.ForProvider(tools, "google") {
		raw := json.RawMessage("{}")
		if len(pt.Options) > 0 {
			encoded, err := json.Marshal(pt.Options)
			if err != nil {
				return llmerr.New("gemini", llmerr.KindInvalidRequest, err).
					WithMessage(fmt.Sprintf("provider tool %q options are not JSON-serializable", pt.ID))
			}
			raw = encoded
		}
		_, native := message.SplitProviderToolID(pt.ID)
		switch native {
		case "code_execution":
			wt.CodeExecution = raw
		case "google_search":
			wt.GoogleSearch = raw
		case "url_context":
			wt.URLContext = raw
		case "file_search":
			wt.FileSearch = raw
		default:
			return llmerr.New("gemini", llmerr.KindInvalidRequest, nil).
				WithMessage(fmt.Sprintf("unsupported gemini provider tool %q", pt.ID))
		}
	}
	return nil
}

func mappedName(name string, tm *toolname.Mapping) string {
	if tm != nil {
		if mapped, ok := tm.ToProvider(name); ok {
			return mapped
		}
	}
	return name
}

// systemInstructionFor collects every system message's text into a single
// systemInstruction content block, or nil when req carries no system text.
func systemInstructionFor(msgs []message.Message) *wireContent {
	var parts []wirePart
	for _, m := range msgs {
		if m.Role != message.RoleSystem {
			continue
		}
		for _, p := range m.Parts {
			if tp, ok := p.(message.TextPart); ok {
				parts = append(parts, wirePart{Text: tp.Text})
			}
		}
	}
	if len(parts) == 0 {
		return nil
	}
	return &wireContent{Parts: parts}
}

// toolCallNamesByID recovers the tool name for a ToolUseID. Gemini's wire
// protocol has no id concept for function calls or their results: a
// function call is identified purely by name on both sides. message.NewCallID
// synthesizes an ID on the response side (see translateResponse) so the
// shared IR can still correlate a ToolResultPart with the call it answers;
// this scans the full transcript to recover the name that id was
// synthesized for.
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

func buildContents(msgs []message.Message, tm *toolname.Mapping, names map[string]string) ([]wireContent, error) {
	var out []wireContent
	for _, m := range msgs {
		if m.Role == message.RoleSystem {
			continue
		}
		parts, err := contentPartsFor(m, tm, names)
		if err != nil {
			return nil, err
		}
		if len(parts) == 0 {
			continue
		}
		out = append(out, wireContent{Role: wireRole(m.Role), Parts: parts})
	}
	return out, nil
}

func contentPartsFor(m message.Message, tm *toolname.Mapping, names map[string]string) ([]wirePart, error) {
	var parts []wirePart
	for _, p := range m.Parts {
		switch v := p.(type) {
		case message.TextPart:
			parts = append(parts, wirePart{Text: v.Text})
		case message.ImagePart:
			parts = append(parts, wirePart{InlineData: &wireBlob{
				MIMEType: "image/" + string(v.Format),
				Data:     base64.StdEncoding.EncodeToString(v.Bytes),
			}})
		case message.DocumentPart:
			part, err := documentPart(v)
			if err != nil {
				return nil, err
			}
			parts = append(parts, part)
		case message.ThinkingPart:
			parts = append(parts, wirePart{Text: v.Text, Thought: true, ThoughtSignature: v.Signature})
		case message.ToolUsePart:
			args := v.Input
			if len(args) == 0 {
				args = json.RawMessage("{}")
			}
			parts = append(parts, wirePart{FunctionCall: &wireFunctionCall{
				Name: mappedName(v.Name, tm),
				Args: args,
			}})
		case message.ToolResultPart:
			name := names[v.ToolUseID]
			if name == "" {
				return nil, llmerr.New("gemini", llmerr.KindInvalidRequest, nil).
					WithMessage(fmt.Sprintf("no preceding tool call found for tool result %q", v.ToolUseID))
			}
			content, err := toolResultResponse(v)
			if err != nil {
				return nil, err
			}
			parts = append(parts, wirePart{FunctionResponse: &wireFuncResponse{
				Name:     mappedName(name, tm),
				Response: content,
			}})
		case message.CacheCheckpointPart:
			// Gemini has no per-request checkpoint concept; caching is
			// configured separately via CachedContent resources, which this
			// module does not yet wire up.
		}
	}
	return parts, nil
}

func documentPart(d message.DocumentPart) (wirePart, error) {
	switch d.Format {
	case message.DocumentFormatPDF:
		return wirePart{InlineData: &wireBlob{MIMEType: "application/pdf", Data: base64.StdEncoding.EncodeToString(d.Bytes)}}, nil
	case message.DocumentFormatTXT:
		return wirePart{Text: d.Text}, nil
	case message.DocumentFormatMD:
		return wirePart{Text: d.Text}, nil
	default:
		return wirePart{}, llmerr.New("gemini", llmerr.KindInvalidRequest, nil).
			WithMessage(fmt.Sprintf("unsupported document format %q", d.Format))
	}
}

// toolResultResponse wraps tr.Content into the object Gemini's
// functionResponse.response field requires; non-object payloads are
// wrapped under a "result" key since the wire field must be a JSON object.
func toolResultResponse(tr message.ToolResultPart) (json.RawMessage, error) {
	raw, err := json.Marshal(tr.Content)
	if err != nil {
		return nil, llmerr.New("gemini", llmerr.KindInvalidRequest, err).
			WithMessage("tool result content is not JSON-serializable")
	}
	var probe any
	if err := json.Unmarshal(raw, &probe); err == nil {
		if _, isObject := probe.(map[string]any); isObject {
			return raw, nil
		}
	}
	key := "result"
	if tr.IsError {
		key = "error"
	}
	wrapped, err := json.Marshal(map[string]json.RawMessage{key: raw})
	if err != nil {
		return nil, llmerr.New("gemini", llmerr.KindInvalidRequest, err).
			WithMessage("failed to wrap tool result content")
	}
	return wrapped, nil
}

func wireRole(r message.Role) string {
	switch r {
	case message.RoleAssistant:
		return "model"
	default:
		return "user"
	}
}
