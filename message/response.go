package message

// Usage tracks token counts for a model call.
type Usage struct {
	// InputTokens is the number of tokens consumed by the prompt.
	InputTokens int

	// OutputTokens is the number of tokens produced by the completion.
	OutputTokens int

	// TotalTokens is the total token count for the call. Providers that do
	// not report a total have it computed as InputTokens + OutputTokens.
	TotalTokens int

	// CacheReadTokens is the number of tokens served from a provider cache.
	CacheReadTokens int

	// CacheWriteTokens is the number of tokens written to a provider cache.
	CacheWriteTokens int
}

// Add returns the element-wise sum of u and other, used to fold streaming
// usage deltas into a running total.
func (u Usage) Add(other Usage) Usage {
	return Usage{
		InputTokens:      u.InputTokens + other.InputTokens,
		OutputTokens:     u.OutputTokens + other.OutputTokens,
		TotalTokens:      u.TotalTokens + other.TotalTokens,
		CacheReadTokens:  u.CacheReadTokens + other.CacheReadTokens,
		CacheWriteTokens: u.CacheWriteTokens + other.CacheWriteTokens,
	}
}

// Response is the result of a non-streaming model invocation.
type Response struct {
	// Content is the ordered list of assistant messages produced.
	Content []Message

	// ToolCalls lists tool invocations requested by the model.
	ToolCalls []ToolCall

	// Usage reports token consumption for the call.
	Usage Usage

	// StopReason records why generation stopped (provider-specific, e.g.
	// "end_turn", "tool_use", "max_tokens").
	StopReason string

	// ProviderMetadata carries provider-specific response metadata, keyed
	// first by provider name and then by an arbitrary key (mirrors
	// Message.ProviderMetadata).
	ProviderMetadata map[string]map[string]any
}

// StreamEventType classifies a StreamEvent.
type StreamEventType string

const (
	// StreamEventText carries an incremental assistant text delta.
	StreamEventText StreamEventType = "text"

	// StreamEventThinking carries an incremental reasoning delta.
	StreamEventThinking StreamEventType = "thinking"

	// StreamEventToolCallDelta carries an incremental tool-call input JSON
	// fragment. Safe to ignore; see ToolCallDelta.
	StreamEventToolCallDelta StreamEventType = "tool_call_delta"

	// StreamEventToolCall carries a completed tool invocation.
	StreamEventToolCall StreamEventType = "tool_call"

	// StreamEventUsage carries an incremental usage update.
	StreamEventUsage StreamEventType = "usage"

	// StreamEventFinish is the single terminal event of a stream, carrying
	// the stop reason. Exactly one StreamEventFinish is ever emitted per
	// stream, and no further events follow it.
	StreamEventFinish StreamEventType = "finish"
)

// StreamEvent is a single streaming event from a model invocation. Fields
// are populated according to Type; unrelated fields are left at their zero
// value.
type StreamEvent struct {
	// Type identifies the kind of streaming event.
	Type StreamEventType

	// TextDelta carries incremental assistant text when Type is
	// StreamEventText.
	TextDelta string

	// ThinkingDelta carries incremental reasoning content when Type is
	// StreamEventThinking.
	ThinkingDelta string

	// ThinkingSignature carries a provider-issued signature for the
	// reasoning block this delta belongs to, when the provider attaches one
	// at block close.
	ThinkingSignature string

	// ToolCallDelta carries an incremental tool-call fragment when Type is
	// StreamEventToolCallDelta.
	ToolCallDelta *ToolCallDelta

	// ToolCall carries a completed tool invocation when Type is
	// StreamEventToolCall.
	ToolCall *ToolCall

	// UsageDelta reports incremental token usage when Type is
	// StreamEventUsage.
	UsageDelta *Usage

	// StopReason records why streaming stopped when Type is
	// StreamEventFinish.
	StopReason string
}
