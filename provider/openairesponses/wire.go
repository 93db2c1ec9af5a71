// Package openairesponses implements the OpenAI Responses API: a single
// input array of typed items, response chaining via previous_response_id,
// encrypted-reasoning-signature round-tripping, response lifecycle
// operations (get/delete/cancel/listInputItems), and the event-typed SSE
// streaming state machine. The package owns its wire JSON directly, the
// same Open Question resolution as provider/openai's Chat Completions
// protocol; openai-go is reserved for registry.OpenAICatalog's model-id
// constants.
package openairesponses

import "encoding/json"

// responsesRequest is the full request body for POST {baseURL}/responses.
type responsesRequest struct {
	Model              string          `json:"model"`
	Input              []wireItem      `json:"input"`
	Instructions       string          `json:"instructions,omitempty"`
	Tools              []wireTool      `json:"tools,omitempty"`
	ToolChoice         *wireToolChoice `json:"tool_choice,omitempty"`
	Temperature        *float32        `json:"temperature,omitempty"`
	TopP               *float32        `json:"top_p,omitempty"`
	MaxOutputTokens    int             `json:"max_output_tokens,omitempty"`
	PreviousResponseID string          `json:"previous_response_id,omitempty"`
	Background         bool            `json:"background,omitempty"`
	Store              bool            `json:"store,omitempty"`
	Stream             bool            `json:"stream,omitempty"`
	Reasoning          *wireReasoningConfig `json:"reasoning,omitempty"`
}

type wireReasoningConfig struct {
	Effort  string `json:"effort,omitempty"`
	Summary string `json:"summary,omitempty"`
}

// wireItem is a tagged union over every input/output item shape the
// Responses API defines. Only the fields relevant to Type are populated;
// the rest are left as zero values, which `omitempty` hides on the wire.
type wireItem struct {
	Type string `json:"type"`

	// "message"
	ID      string        `json:"id,omitempty"`
	Role    string        `json:"role,omitempty"`
	Content []wireContent `json:"content,omitempty"`
	Status  string        `json:"status,omitempty"`

	// "reasoning"
	Summary          []wireSummary `json:"summary,omitempty"`
	EncryptedContent string        `json:"encrypted_content,omitempty"`

	// "function_call" / "function_call_output"
	CallID    string          `json:"call_id,omitempty"`
	Name      string          `json:"name,omitempty"`
	Arguments json.RawMessage `json:"arguments,omitempty"`
	Output    string          `json:"output,omitempty"`
}

type wireContent struct {
	Type     string `json:"type"`
	Text     string `json:"text,omitempty"`
	ImageURL string `json:"image_url,omitempty"`
	FileData string `json:"file_data,omitempty"`
	Filename string `json:"filename,omitempty"`
}

type wireSummary struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// wireTool covers both function tools (Name, Description, Parameters) and
// provider-native tools (web_search_preview, file_search,
// computer_use_preview, image_generation, code_interpreter), which take
// their own tool-specific top-level fields instead of Parameters. Options
// carries those fields verbatim and is merged into the marshaled object.
type wireTool struct {
	Type        string         `json:"type"`
	Name        string         `json:"name,omitempty"`
	Description string         `json:"description,omitempty"`
	Parameters  any            `json:"parameters,omitempty"`
	Options     map[string]any `json:"-"`
}

func (t wireTool) MarshalJSON() ([]byte, error) {
	type alias wireTool
	base, err := json.Marshal(alias(t))
	if err != nil {
		return nil, err
	}
	if len(t.Options) == 0 {
		return base, nil
	}
	var merged map[string]any
	if err := json.Unmarshal(base, &merged); err != nil {
		return nil, err
	}
	for k, v := range t.Options {
		merged[k] = v
	}
	return json.Marshal(merged)
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
		return json.Marshal(map[string]string{"type": "function", "name": c.name})
	default:
		return json.Marshal("auto")
	}
}

// responsesResponse is the full non-stream response body, returned also by
// the lifecycle get/cancel operations and embedded in the terminal
// response.completed/response.failed/response.incomplete stream events.
type responsesResponse struct {
	ID                 string            `json:"id"`
	Model              string            `json:"model"`
	Status             string            `json:"status"`
	Output             []wireOutputItem  `json:"output"`
	Usage              *wireUsage        `json:"usage,omitempty"`
	PreviousResponseID string            `json:"previous_response_id,omitempty"`
	Error              *wireErrorDetail  `json:"error,omitempty"`
}

// wireErrorDetail is the {code, message, type} shape used both inside the
// HTTP error envelope and a failed response's Error field.
type wireErrorDetail struct {
	Message string `json:"message"`
	Type    string `json:"type"`
	Code    string `json:"code"`
}

// wireOutputItem decodes loosely: every item keeps its raw JSON alongside
// the typed fields so provider-native tool-call items can be surfaced
// verbatim in ProviderMetadata without this package modeling their full
// per-tool payload shape.
type wireOutputItem struct {
	wireItem
	raw json.RawMessage
}

func (o *wireOutputItem) UnmarshalJSON(data []byte) error {
	o.raw = append([]byte(nil), data...)
	return json.Unmarshal(data, &o.wireItem)
}

type wireUsage struct {
	InputTokens         int `json:"input_tokens"`
	OutputTokens        int `json:"output_tokens"`
	TotalTokens         int `json:"total_tokens"`
	InputTokensDetails  struct {
		CachedTokens int `json:"cached_tokens"`
	} `json:"input_tokens_details"`
}

// wireError is the error envelope the Responses API returns on non-2xx HTTP
// responses, {"error": {...}}.
type wireError struct {
	Error wireErrorDetail `json:"error"`
}

// inputItemsPage is the body of GET {baseURL}/responses/{id}/input_items.
type inputItemsPage struct {
	Data    []wireOutputItem `json:"data"`
	HasMore bool             `json:"has_more"`
	FirstID string           `json:"first_id,omitempty"`
	LastID  string           `json:"last_id,omitempty"`
}

// Streamed events. Every "data:" line on a Responses API SSE stream carries
// a "type" discriminator plus a payload shaped for that type; streamEvent
// decodes the union's common fields (output_index, item, delta) and leaves
// type-specific decoding to the streamer's switch in stream.go.
type streamEvent struct {
	Type        string             `json:"type"`
	OutputIndex int                `json:"output_index"`
	Item        *wireOutputItem    `json:"item,omitempty"`
	Delta       string             `json:"delta,omitempty"`
	Response    *responsesResponse `json:"response,omitempty"`

	// Populated only on a flat top-level "error" event, distinct from a
	// response.failed event's Response.Error.
	Code    string `json:"code,omitempty"`
	Message string `json:"message,omitempty"`
	Param   string `json:"param,omitempty"`
}
