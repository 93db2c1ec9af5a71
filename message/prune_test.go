package message_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/polyprompt/polyprompt/message"
)

func TestPruneKeepsEverythingByDefault(t *testing.T) {
	msgs := []message.Message{
		{Role: message.RoleAssistant, Parts: []message.Part{
			message.ThinkingPart{Text: "step one"},
			message.ToolUsePart{ID: "call-1", Name: "search"},
		}},
	}
	out := message.Prune(msgs, message.PruneOptions{})
	assert.Equal(t, msgs, out)
}

func TestPruneDropsAllReasoning(t *testing.T) {
	msgs := []message.Message{
		{Role: message.RoleAssistant, Parts: []message.Part{
			message.ThinkingPart{Text: "step one"},
			message.TextPart{Text: "the answer"},
		}},
	}
	out := message.Prune(msgs, message.PruneOptions{Reasoning: message.ReasoningPruneDrop})
	assert.Len(t, out, 1)
	assert.Equal(t, []message.Part{message.TextPart{Text: "the answer"}}, out[0].Parts)
}

func TestPruneKeepsOnlyFinalReasoning(t *testing.T) {
	msgs := []message.Message{
		{Role: message.RoleAssistant, Parts: []message.Part{
			message.ThinkingPart{Text: "draft", Final: false},
			message.ThinkingPart{Text: "settled", Final: true},
		}},
	}
	out := message.Prune(msgs, message.PruneOptions{Reasoning: message.ReasoningPruneFinalOnly})
	assert.Equal(t, []message.Part{message.ThinkingPart{Text: "settled", Final: true}}, out[0].Parts)
}

func TestPruneDropsOnlyDanglingToolCalls(t *testing.T) {
	msgs := []message.Message{
		{Role: message.RoleAssistant, Parts: []message.Part{
			message.ToolUsePart{ID: "call-1", Name: "search"},
			message.ToolUsePart{ID: "call-2", Name: "search"},
		}},
		{Role: message.RoleUser, Parts: []message.Part{
			message.ToolResultPart{ToolUseID: "call-1", Content: "ok"},
		}},
	}
	out := message.Prune(msgs, message.PruneOptions{ToolCalls: message.ToolCallPruneDrop})
	assert.Equal(t, []message.Part{message.ToolUsePart{ID: "call-1", Name: "search"}}, out[0].Parts)
	assert.Equal(t, []message.Part{message.ToolResultPart{ToolUseID: "call-1", Content: "ok"}}, out[1].Parts)
}

func TestPruneDropsMessageLeftWithNoParts(t *testing.T) {
	msgs := []message.Message{
		{Role: message.RoleAssistant, Parts: []message.Part{
			message.ToolUsePart{ID: "call-1", Name: "search"},
		}},
		{Role: message.RoleUser, Parts: []message.Part{
			message.TextPart{Text: "hi"},
		}},
	}
	out := message.Prune(msgs, message.PruneOptions{ToolCalls: message.ToolCallPruneDrop})
	assert.Len(t, out, 1)
	assert.Equal(t, message.RoleUser, out[0].Role)
}
