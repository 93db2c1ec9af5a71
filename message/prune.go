package message

// ReasoningPruneMode controls how ThinkingPart content is treated when a
// transcript is replayed to a provider that forbids or mishandles carried-
// over reasoning blocks.
type ReasoningPruneMode string

const (
	// ReasoningPruneKeep leaves ThinkingPart content untouched. The zero
	// value.
	ReasoningPruneKeep ReasoningPruneMode = ""

	// ReasoningPruneDrop removes every ThinkingPart from the transcript.
	ReasoningPruneDrop ReasoningPruneMode = "drop"

	// ReasoningPruneFinalOnly keeps only ThinkingPart blocks marked Final,
	// dropping intermediate reasoning steps.
	ReasoningPruneFinalOnly ReasoningPruneMode = "final_only"
)

// ToolCallPruneMode controls how dangling tool calls — a ToolUsePart with no
// matching ToolResultPart anywhere in the transcript — are treated.
type ToolCallPruneMode string

const (
	// ToolCallPruneKeep leaves dangling tool calls untouched. The zero
	// value.
	ToolCallPruneKeep ToolCallPruneMode = ""

	// ToolCallPruneDrop removes tool calls that were never answered.
	ToolCallPruneDrop ToolCallPruneMode = "drop"
)

// PruneOptions configures Prune. The zero value prunes nothing.
type PruneOptions struct {
	// Reasoning selects how ThinkingPart content is pruned.
	Reasoning ReasoningPruneMode

	// ToolCalls selects how dangling ToolUsePart content is pruned.
	ToolCalls ToolCallPruneMode
}

// Prune returns a copy of msgs with reasoning and/or dangling tool-call
// parts removed according to opts. msgs is left untouched. A Message
// that ends up with no parts after pruning is dropped from the result
// entirely.
func Prune(msgs []Message, opts PruneOptions) []Message {
	if opts.Reasoning == ReasoningPruneKeep && opts.ToolCalls == ToolCallPruneKeep {
		return msgs
	}

	answered := map[string]bool{}
	if opts.ToolCalls == ToolCallPruneDrop {
		for _, m := range msgs {
			for _, p := range m.Parts {
				if tr, ok := p.(ToolResultPart); ok {
					answered[tr.ToolUseID] = true
				}
			}
		}
	}

	out := make([]Message, 0, len(msgs))
	for _, m := range msgs {
		parts := make([]Part, 0, len(m.Parts))
		for _, p := range m.Parts {
			if keepPart(p, opts, answered) {
				parts = append(parts, p)
			}
		}
		if len(parts) == 0 {
			continue
		}
		out = append(out, Message{Role: m.Role, Parts: parts, ProviderMetadata: m.ProviderMetadata})
	}
	return out
}

func keepPart(p Part, opts PruneOptions, answered map[string]bool) bool {
	switch v := p.(type) {
	case ThinkingPart:
		switch opts.Reasoning {
		case ReasoningPruneDrop:
			return false
		case ReasoningPruneFinalOnly:
			return v.Final
		default:
			return true
		}
	case ToolUsePart:
		if opts.ToolCalls == ToolCallPruneDrop {
			return answered[v.ID]
		}
		return true
	default:
		return true
	}
}
