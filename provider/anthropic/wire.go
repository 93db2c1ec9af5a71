// Package anthropic implements the Anthropic Messages protocol: request
// construction, non-stream response parsing, and the event-typed SSE
// streaming state machine. Like provider/openai, this package owns its wire
// JSON directly; anthropic-sdk-go is used elsewhere in this module only for
// its published model-id constants (see registry.AnthropicCatalog).
package anthropic

import "encoding/json"

// wireCacheControl is an ephemeral prompt-cache checkpoint attached to a
// content block, a system text block, or a tool definition.
type wireCacheControl struct {
	Type string `json:"type"`
	TTL  string `json:"ttl,omitempty"`
}

// wireSystemBlock is one entry of the request's "system" array.
type wireSystemBlock struct {
	Type         string            `json:"type"`
	Text         string            `json:"text"`
	CacheControl *wireCacheControl `json:"cache_control,omitempty"`
}

// wireMessage is one entry of the Messages "messages" array.
type wireMessage struct {
	Role    string       `json:"role"`
	Content []wireBlock  `json:"content"`
}

// wireBlock is a tagged union over every Anthropic content block type this
// adapter produces or consumes. Only the fields relevant to Type are
// populated; omitempty keeps the wire payload minimal.
type wireBlock struct {
	Type string `json:"type"`

	// text
	Text string `json:"text,omitempty"`

	// image / document
	Source *wireSource `json:"source,omitempty"`

	// tool_use (request + response)
	ID    string          `json:"id,omitempty"`
	Name  string          `json:"name,omitempty"`
	Input json.RawMessage `json:"input,omitempty"`

	// tool_result
	ToolUseID string          `json:"tool_use_id,omitempty"`
	IsError   bool            `json:"is_error,omitempty"`
	Content   json.RawMessage `json:"content,omitempty"`

	// thinking / redacted_thinking
	Thinking  string `json:"thinking,omitempty"`
	Signature string `json:"signature,omitempty"`
	Data      string `json:"data,omitempty"`

	CacheControl *wireCacheControl `json:"cache_control,omitempty"`
}

type wireSource struct {
	Type      string `json:"type"`
	MediaType string `json:"media_type,omitempty"`
	Data      string `json:"data,omitempty"`
}

// wireTool covers both user-defined function tools (Name, Description,
// InputSchema) and Anthropic's server tools (Type set to a versioned tool
// name such as "web_search_20250305"; MaxUses optionally caps invocations).
// Server tools cannot carry CacheControl: caching attaches to the last
// eligible function tool instead (see buildTools).
type wireTool struct {
	Type         string            `json:"type,omitempty"`
	Name         string            `json:"name"`
	Description  string            `json:"description,omitempty"`
	InputSchema  any               `json:"input_schema,omitempty"`
	MaxUses      int               `json:"max_uses,omitempty"`
	CacheControl *wireCacheControl `json:"cache_control,omitempty"`
}

type wireToolChoice struct {
	Type string `json:"type"`
	Name string `json:"name,omitempty"`
}

type wireThinking struct {
	Type         string `json:"type"`
	BudgetTokens int    `json:"budget_tokens"`
}

// messagesRequest is the full request body for POST {baseURL}/messages.
type messagesRequest struct {
	Model         string            `json:"model"`
	MaxTokens     int               `json:"max_tokens"`
	System        []wireSystemBlock `json:"system,omitempty"`
	Messages      []wireMessage     `json:"messages"`
	Tools         []wireTool        `json:"tools,omitempty"`
	ToolChoice    *wireToolChoice   `json:"tool_choice,omitempty"`
	Temperature   *float64          `json:"temperature,omitempty"`
	TopP          *float64          `json:"top_p,omitempty"`
	Thinking      *wireThinking     `json:"thinking,omitempty"`
	Stream        bool              `json:"stream,omitempty"`
	StopSequences []string          `json:"stop_sequences,omitempty"`
}

// messagesResponse is the full non-stream response body.
type messagesResponse struct {
	ID         string      `json:"id"`
	Model      string      `json:"model"`
	Role       string      `json:"role"`
	Content    []wireBlock `json:"content"`
	StopReason string      `json:"stop_reason"`
	Usage      wireUsage   `json:"usage"`
}

type wireUsage struct {
	InputTokens              int `json:"input_tokens"`
	OutputTokens             int `json:"output_tokens"`
	CacheReadInputTokens     int `json:"cache_read_input_tokens"`
	CacheCreationInputTokens int `json:"cache_creation_input_tokens"`
}

// wireError is the error envelope Anthropic returns on non-2xx responses and
// inside a stream's "error" event.
type wireError struct {
	Type  string `json:"type"`
	Error struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

// --- streaming event payloads ---

type streamEventEnvelope struct {
	Type string `json:"type"`
}

type messageStartEvent struct {
	Message struct {
		ID    string    `json:"id"`
		Model string    `json:"model"`
		Usage wireUsage `json:"usage"`
	} `json:"message"`
}

type contentBlockStartEvent struct {
	Index        int       `json:"index"`
	ContentBlock wireBlock `json:"content_block"`
}

type contentBlockDeltaEvent struct {
	Index int            `json:"index"`
	Delta streamDelta    `json:"delta"`
}

type streamDelta struct {
	Type        string `json:"type"`
	Text        string `json:"text,omitempty"`
	PartialJSON string `json:"partial_json,omitempty"`
	Thinking    string `json:"thinking,omitempty"`
	Signature   string `json:"signature,omitempty"`
}

type contentBlockStopEvent struct {
	Index int `json:"index"`
}

type messageDeltaEvent struct {
	Delta struct {
		StopReason string `json:"stop_reason"`
	} `json:"delta"`
	Usage wireUsage `json:"usage"`
}
