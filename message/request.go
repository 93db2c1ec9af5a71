package message

import "encoding/json"

type (
	// Tool describes a tool exposed to the model.
	Tool struct {
		// Name is the tool identifier as seen by the model before any
		// provider-specific name mapping is applied.
		Name string

		// Description is a concise summary presented to the model to decide
		// when to call the tool.
		Description string

		// InputSchema is a JSON Schema object describing the tool input
		// payload. Accepts any JSON-marshalable value, typically
		// map[string]any or json.RawMessage.
		InputSchema any
	}

	// ToolCall is a completed tool invocation requested by the model.
	ToolCall struct {
		// Name is the canonical tool identifier (after reverse name mapping).
		Name string

		// ID is the provider-issued identifier for the tool call.
		ID string

		// Input is the canonical JSON arguments supplied by the model.
		Input json.RawMessage
	}

	// ToolCallDelta is an incremental tool-call input fragment streamed by
	// providers while still constructing the full tool input JSON.
	//
	// This is a best-effort UX signal: consumers may ignore it entirely. The
	// canonical payload is still delivered once in a StreamEventToolCall
	// event. Delta fragments are not guaranteed to be valid JSON on their
	// own.
	ToolCallDelta struct {
		// Name is the canonical tool identifier for this delta stream.
		Name string

		// ID is the provider-issued tool call identifier correlating all
		// deltas and the final ToolCall.
		ID string

		// Delta is a raw JSON fragment emitted by the provider.
		Delta string
	}

	// ToolChoiceMode controls how the model uses tools for a request.
	ToolChoiceMode string

	// ToolChoice configures optional tool-use behavior for a Request. When
	// nil, providers apply their default behavior (typically auto).
	ToolChoice struct {
		// Mode selects the desired tool-use behavior.
		Mode ToolChoiceMode

		// Name identifies the tool to force when Mode is
		// ToolChoiceModeTool. Must match the Name of a Tool in Request.Tools.
		Name string
	}

	// ThinkingOptions configures provider reasoning/thinking behavior.
	ThinkingOptions struct {
		// Enable turns on provider thinking features when supported.
		Enable bool

		// Interleaved requests interleaved thinking and assistant content
		// when supported.
		Interleaved bool

		// BudgetTokens caps the number of thinking tokens when supported.
		BudgetTokens int
	}

	// CachePolicy configures policy-driven prompt caching checkpoints.
	// Providers without caching support ignore it.
	CachePolicy struct {
		// AfterSystem places a checkpoint after all system messages.
		AfterSystem bool

		// AfterTools places a checkpoint after tool definitions. Not every
		// provider supports tool-level checkpoints.
		AfterTools bool
	}

	// ModelClass selects a model family when Model is not specified
	// directly; registries map classes to concrete model identifiers.
	ModelClass string

	// Config carries request-scoped model invocation parameters shared by
	// every provider adapter.
	Config struct {
		// Model is the provider-specific model identifier. Takes precedence
		// over ModelClass when non-empty.
		Model string

		// ModelClass selects a model family when Model is empty.
		ModelClass ModelClass

		// Temperature controls sampling when supported by the provider.
		Temperature float32

		// TopP controls nucleus sampling when supported by the provider.
		TopP float32

		// MaxTokens caps the number of output tokens when supported.
		MaxTokens int

		// Tools lists the tool definitions available to the model.
		Tools []Tool

		// ProviderTools lists provider-native tool references (OpenAI web
		// search, Anthropic web search/fetch, Google code execution/URL
		// context/file search/Google search) in addition to Tools. Adapters
		// ignore entries that do not belong to them (see
		// message.ForProvider).
		ProviderTools []ProviderTool

		// ToolChoice optionally constrains how the model uses tools.
		ToolChoice *ToolChoice

		// Thinking configures provider-specific reasoning behavior.
		Thinking *ThinkingOptions

		// Cache configures policy-driven prompt caching. Nil means no
		// policy-driven caching; explicit CacheCheckpointPart parts are
		// always honored regardless of this field.
		Cache *CachePolicy
	}

	// Request captures the full input to a single model invocation: the
	// ordered transcript plus request-scoped configuration.
	Request struct {
		// Messages is the ordered transcript provided to the model.
		Messages []Message

		Config
	}
)

const (
	// ToolChoiceModeAuto lets the provider decide whether to call tools.
	// This is the default when ToolChoice is nil.
	ToolChoiceModeAuto ToolChoiceMode = "auto"

	// ToolChoiceModeNone disables tool use for the request.
	ToolChoiceModeNone ToolChoiceMode = "none"

	// ToolChoiceModeAny forces the model to call some tool.
	ToolChoiceModeAny ToolChoiceMode = "any"

	// ToolChoiceModeTool forces the model to call the tool named in
	// ToolChoice.Name.
	ToolChoiceModeTool ToolChoiceMode = "tool"
)

const (
	// ModelClassDefault selects the default model family.
	ModelClassDefault ModelClass = "default"

	// ModelClassHighReasoning selects a high-reasoning model family.
	ModelClassHighReasoning ModelClass = "high-reasoning"

	// ModelClassSmall selects a small/cheap model family.
	ModelClassSmall ModelClass = "small"
)
