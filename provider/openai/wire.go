// Package openai implements the OpenAI Chat Completions protocol: request
// construction, non-stream response parsing, and the SSE streaming state
// machine that reassembles tool-call deltas by index. The package owns its
// wire JSON directly rather than depending on openai-go's param/response
// types; openai-go is still used elsewhere in this module for its published
// model-id constants (see registry.OpenAICatalog).
package openai

import "encoding/json"

// wireMessage is one entry of the Chat Completions "messages" array.
type wireMessage struct {
	Role       string          `json:"role"`
	Content    json.RawMessage `json:"content,omitempty"`
	Name       string          `json:"name,omitempty"`
	ToolCallID string          `json:"tool_call_id,omitempty"`
	ToolCalls  []wireToolCall  `json:"tool_calls,omitempty"`
}

type wireToolCall struct {
	Index    *int             `json:"index,omitempty"`
	ID       string           `json:"id,omitempty"`
	Type     string           `json:"type,omitempty"`
	Function wireToolCallFunc `json:"function"`
}

type wireToolCallFunc struct {
	Name      string `json:"name,omitempty"`
	Arguments string `json:"arguments,omitempty"`
}

// wireContentPart is one entry of a multimodal "content" array.
type wireContentPart struct {
	Type     string          `json:"type"`
	Text     string          `json:"text,omitempty"`
	ImageURL *wireImageURL   `json:"image_url,omitempty"`
}

type wireImageURL struct {
	URL    string `json:"url"`
	Detail string `json:"detail,omitempty"`
}

type wireTool struct {
	Type     string       `json:"type"`
	Function wireFunction `json:"function"`
}

type wireFunction struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Parameters  any    `json:"parameters,omitempty"`
}

type wireToolChoice struct {
	mode string
	name string
}

func (c wireToolChoice) MarshalJSON() ([]byte, error) {
	switch c.mode {
	case "auto", "none", "required":
		return json.Marshal(c.mode)
	case "tool":
		return json.Marshal(map[string]any{
			"type":     "function",
			"function": map[string]string{"name": c.name},
		})
	default:
		return json.Marshal("auto")
	}
}

type wireStreamOptions struct {
	IncludeUsage bool `json:"include_usage"`
}

// chatRequest is the full request body for POST /chat/completions.
type chatRequest struct {
	Model          string             `json:"model"`
	Messages       []wireMessage      `json:"messages"`
	Stream         bool               `json:"stream,omitempty"`
	StreamOptions  *wireStreamOptions `json:"stream_options,omitempty"`
	MaxTokens      int                `json:"max_tokens,omitempty"`
	Temperature    *float64           `json:"temperature,omitempty"`
	TopP           *float64           `json:"top_p,omitempty"`
	Tools          []wireTool         `json:"tools,omitempty"`
	ToolChoice     *wireToolChoice    `json:"tool_choice,omitempty"`
	Stop           []string           `json:"stop,omitempty"`
}

// chatResponse is the full non-stream response body.
type chatResponse struct {
	ID      string       `json:"id"`
	Model   string       `json:"model"`
	Choices []chatChoice `json:"choices"`
	Usage   chatUsage    `json:"usage"`
}

type chatChoice struct {
	Index        int          `json:"index"`
	Message      wireRespMsg  `json:"message"`
	FinishReason string       `json:"finish_reason"`
}

type wireRespMsg struct {
	Role             string         `json:"role"`
	Content          string         `json:"content"`
	ReasoningContent string         `json:"reasoning_content,omitempty"`
	ToolCalls        []wireToolCall `json:"tool_calls,omitempty"`
}

type chatUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
	PromptTokensDetails struct {
		CachedTokens int `json:"cached_tokens"`
	} `json:"prompt_tokens_details"`
}

// chatChunk is a single SSE "data:" payload while streaming.
type chatChunk struct {
	ID      string          `json:"id"`
	Choices []chatChunkChoice `json:"choices"`
	Usage   *chatUsage      `json:"usage,omitempty"`
}

type chatChunkChoice struct {
	Index        int            `json:"index"`
	Delta        chatChunkDelta `json:"delta"`
	FinishReason string         `json:"finish_reason"`
}

type chatChunkDelta struct {
	Role             string         `json:"role,omitempty"`
	Content          string         `json:"content,omitempty"`
	ReasoningContent string         `json:"reasoning_content,omitempty"`
	Reasoning        string         `json:"reasoning,omitempty"`
	ToolCalls        []wireToolCall `json:"tool_calls,omitempty"`
}

// wireError is the error envelope OpenAI-family APIs return on non-2xx
// responses and inside a streamed chunk's "error" field.
type wireError struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
		Code    string `json:"code"`
	} `json:"error"`
}
