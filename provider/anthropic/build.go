package anthropic

import (
	"encoding/base64"
	"encoding/json"
	"fmt"

	"github.com/polyprompt/polyprompt/llmerr"
	"github.com/polyprompt/polyprompt/message"
	"github.com/polyprompt/polyprompt/toolname"
)

// buildRequest translates req into the Anthropic Messages wire shape. tm
// maps caller-visible tool names to collision- and alphabet-safe request
// names; it may be nil when req carries no tools.
func buildRequest(req *message.Request, tm *toolname.Mapping, model string, maxTokens int, stream bool) (messagesRequest, error) {
	system, messages, err := buildMessages(req.Messages, tm, req.Cache)
	if err != nil {
		return messagesRequest{}, err
	}

	out := messagesRequest{
		Model:     model,
		MaxTokens: maxTokens,
		System:    system,
		Messages:  messages,
		Stream:    stream,
		Thinking:  buildThinking(req.Thinking),
	}
	if len(req.Tools) > 0 || len(req.ProviderTools) > 0 {
		tools, err := buildTools(req.Tools, req.ProviderTools, tm, req.Cache)
		if err != nil {
			return messagesRequest{}, err
		}
		out.Tools = tools
	}
	if req.ToolChoice != nil {
		out.ToolChoice = buildToolChoice(*req.ToolChoice, tm)
	}
	if req.Temperature != 0 {
		t := float64(req.Temperature)
		out.Temperature = &t
	}
	if req.TopP != 0 {
		p := float64(req.TopP)
		out.TopP = &p
	}
	return out, nil
}

func buildThinking(opts *message.ThinkingOptions) *wireThinking {
	if opts == nil || !opts.Enable {
		return nil
	}
	budget := opts.BudgetTokens
	if budget <= 0 {
		budget = 1024
	}
	return &wireThinking{Type: "enabled", BudgetTokens: budget}
}

func buildToolChoice(choice message.ToolChoice, tm *toolname.Mapping) *wireToolChoice {
	switch choice.Mode {
	case message.ToolChoiceModeNone:
		return &wireToolChoice{Type: "none"}
	case message.ToolChoiceModeAny:
		return &wireToolChoice{Type: "any"}
	case message.ToolChoiceModeTool:
		name := choice.Name
		if tm != nil {
			if mapped, ok := tm.ToProvider(name); ok {
				name = mapped
			}
		}
		return &wireToolChoice{Type: "tool", Name: name}
	default:
		return &wireToolChoice{Type: "auto"}
	}
}

// buildTools builds the function tools first and attaches the AfterTools
// cache checkpoint to the last of them, then appends any provider-native
// server tools. Server tools never carry cache_control, so they must be
// appended after the checkpoint is placed, not interleaved with it.
func buildTools(tools []message.Tool, providerTools []message.ProviderTool, tm *toolname.Mapping, cache *message.CachePolicy) ([]wireTool, error) {
	out := make([]wireTool, 0, len(tools)+len(providerTools))
	for _, t := range tools {
		name := t.Name
		if tm != nil {
			mapped, ok := tm.ToProvider(name)
			if !ok {
				return nil, llmerr.New("anthropic", llmerr.KindInvalidRequest, nil).
					WithMessage(fmt.Sprintf("tool %q has no request-name mapping", name))
			}
			name = mapped
		}
		out = append(out, wireTool{Name: name, Description: t.Description, InputSchema: t.InputSchema})
	}
	if cache != nil && cache.AfterTools && len(out) > 0 {
		out[len(out)-1].CacheControl = &wireCacheControl{Type: "ephemeral"}
	}
	serverTools, err := buildProviderTools(providerTools)
	if err != nil {
		return nil, err
	}
	return append(out, serverTools...), nil
}

// buildProviderTools translates the "anthropic" subset of providerTools into
// server tool entries. Options may carry an int "max_uses" entry; any
// other keys are ignored since Anthropic's server tools take no further
// per-request configuration.
func buildProviderTools(providerTools []message.ProviderTool) ([]wireTool, error) {
	var out []wireTool
	for _, pt := range message.ForProvider(providerTools, "anthropic") {
		_, native := message.SplitProviderToolID(pt.ID)
		name, ok := message.ProviderToolNames[pt.ID]
		if !ok {
			name = native
		}
		wt := wireTool{Type: native, Name: name}
		if v, ok := pt.Options["max_uses"]; ok {
			n, ok := v.(int)
			if !ok {
				return nil, llmerr.New("anthropic", llmerr.KindInvalidRequest, nil).
					WithMessage(fmt.Sprintf("provider tool %q option max_uses must be an int", pt.ID))
			}
			wt.MaxUses = n
		}
		out = append(out, wt)
	}
	return out, nil
}

// buildMessages splits msgs into the request's "system" array and
// "messages" array, validating that the first non-system message has role
// user, and attaching cache_control checkpoints per CachePolicy, explicit
// message.CacheCheckpointPart parts, and the "anthropic"/"cache_control"
// provider metadata key.
func buildMessages(msgs []message.Message, tm *toolname.Mapping, cache *message.CachePolicy) ([]wireSystemBlock, []wireMessage, error) {
	var system []wireSystemBlock
	var out []wireMessage
	sawNonSystem := false

	for _, m := range msgs {
		if m.Role == message.RoleSystem {
			system = append(system, systemBlocksFor(m)...)
			continue
		}
		if !sawNonSystem {
			if m.Role != message.RoleUser {
				return nil, nil, llmerr.New("anthropic", llmerr.KindInvalidRequest, nil).
					WithMessage("first non-system message must have role user")
			}
			sawNonSystem = true
		}

		blocks, err := contentBlocksFor(m, tm)
		if err != nil {
			return nil, nil, err
		}
		if len(blocks) == 0 {
			continue
		}
		out = append(out, wireMessage{Role: wireRole(m.Role), Content: blocks})
	}

	if cache != nil && cache.AfterSystem && len(system) > 0 {
		last := &system[len(system)-1]
		if last.CacheControl == nil {
			last.CacheControl = &wireCacheControl{Type: "ephemeral"}
		}
	}
	if len(out) == 0 {
		return nil, nil, llmerr.New("anthropic", llmerr.KindInvalidRequest, nil).
			WithMessage("at least one user/assistant message is required")
	}
	return system, out, nil
}

func systemBlocksFor(m message.Message) []wireSystemBlock {
	var out []wireSystemBlock
	for _, p := range m.Parts {
		if v, ok := p.(message.TextPart); ok && v.Text != "" {
			out = append(out, wireSystemBlock{Type: "text", Text: v.Text})
		}
	}
	if len(out) == 0 {
		return out
	}
	if meta, ok := m.ProviderMeta("anthropic", "cache_control"); ok {
		out[len(out)-1].CacheControl = cacheControlFromMeta(meta)
	}
	return out
}

func contentBlocksFor(m message.Message, tm *toolname.Mapping) ([]wireBlock, error) {
	var blocks []wireBlock
	for _, p := range m.Parts {
		switch v := p.(type) {
		case message.TextPart:
			if v.Text == "" {
				continue
			}
			blocks = append(blocks, wireBlock{Type: "text", Text: v.Text})
		case message.ImagePart:
			blocks = append(blocks, wireBlock{
				Type: "image",
				Source: &wireSource{
					Type:      "base64",
					MediaType: "image/" + string(v.Format),
					Data:      base64.StdEncoding.EncodeToString(v.Bytes),
				},
			})
		case message.DocumentPart:
			block, err := documentBlock(v)
			if err != nil {
				return nil, err
			}
			blocks = append(blocks, block)
		case message.ThinkingPart:
			// Previous-turn thinking blocks are echoed back verbatim so the
			// provider can verify the reasoning chain; see message.ThinkingPart.
			if len(v.Redacted) > 0 {
				blocks = append(blocks, wireBlock{Type: "redacted_thinking", Data: base64.StdEncoding.EncodeToString(v.Redacted)})
			} else if v.Text != "" {
				blocks = append(blocks, wireBlock{Type: "thinking", Thinking: v.Text, Signature: v.Signature})
			}
		case message.ToolUsePart:
			name := v.Name
			if tm != nil {
				if mapped, ok := tm.ToProvider(name); ok {
					name = mapped
				}
			}
			blocks = append(blocks, wireBlock{Type: "tool_use", ID: v.ID, Name: name, Input: v.Input})
		case message.ToolResultPart:
			block, err := toolResultBlock(v)
			if err != nil {
				return nil, err
			}
			blocks = append(blocks, block)
		case message.CacheCheckpointPart:
			if len(blocks) > 0 {
				blocks[len(blocks)-1].CacheControl = &wireCacheControl{Type: "ephemeral"}
			}
		}
	}
	if len(blocks) > 0 {
		if meta, ok := m.ProviderMeta("anthropic", "cache_control"); ok {
			blocks[len(blocks)-1].CacheControl = cacheControlFromMeta(meta)
		}
	}
	return blocks, nil
}

func documentBlock(v message.DocumentPart) (wireBlock, error) {
	switch v.Format {
	case message.DocumentFormatPDF:
		if len(v.Bytes) == 0 {
			return wireBlock{}, llmerr.New("anthropic", llmerr.KindInvalidRequest, nil).
				WithMessage("pdf document part requires bytes")
		}
		return wireBlock{
			Type: "document",
			Source: &wireSource{
				Type:      "base64",
				MediaType: "application/pdf",
				Data:      base64.StdEncoding.EncodeToString(v.Bytes),
			},
		}, nil
	case message.DocumentFormatTXT, message.DocumentFormatMD:
		text := v.Text
		if text == "" && len(v.Bytes) > 0 {
			text = string(v.Bytes)
		}
		return wireBlock{
			Type:   "document",
			Source: &wireSource{Type: "text", MediaType: "text/plain", Data: text},
		}, nil
	default:
		return wireBlock{}, llmerr.New("anthropic", llmerr.KindInvalidRequest, nil).
			WithMessage(fmt.Sprintf("document format %q is not supported by anthropic", v.Format))
	}
}

func toolResultBlock(v message.ToolResultPart) (wireBlock, error) {
	content, err := toolResultContent(v.Content)
	if err != nil {
		return wireBlock{}, err
	}
	return wireBlock{Type: "tool_result", ToolUseID: v.ToolUseID, IsError: v.IsError, Content: content}, nil
}

func toolResultContent(v any) (json.RawMessage, error) {
	switch c := v.(type) {
	case nil:
		return json.Marshal("")
	case string:
		return json.Marshal(c)
	case []byte:
		return json.Marshal(string(c))
	default:
		raw, err := json.Marshal(c)
		if err != nil {
			return nil, llmerr.New("anthropic", llmerr.KindInvalidRequest, err).
				WithMessage("tool result content is not JSON-serializable")
		}
		return raw, nil
	}
}

func cacheControlFromMeta(meta any) *wireCacheControl {
	switch v := meta.(type) {
	case string:
		return &wireCacheControl{Type: v}
	case map[string]any:
		cc := &wireCacheControl{Type: "ephemeral"}
		if t, ok := v["type"].(string); ok && t != "" {
			cc.Type = t
		}
		if ttl, ok := v["ttl"].(string); ok {
			cc.TTL = ttl
		}
		return cc
	default:
		return &wireCacheControl{Type: "ephemeral"}
	}
}

func wireRole(r message.Role) string {
	if r == message.RoleAssistant {
		return "assistant"
	}
	return "user"
}
