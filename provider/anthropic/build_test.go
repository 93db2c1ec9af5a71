package anthropic

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/polyprompt/polyprompt/message"
)

func TestBuildRequestSeparatesSystemFromMessages(t *testing.T) {
	req := &message.Request{
		Messages: []message.Message{
			message.Text(message.RoleSystem, "be terse"),
			message.Text(message.RoleUser, "hi"),
		},
	}
	out, err := buildRequest(req, nil, "claude-sonnet", 1024, false)
	require.NoError(t, err)
	require.Len(t, out.System, 1)
	assert.Equal(t, "be terse", out.System[0].Text)
	require.Len(t, out.Messages, 1)
	assert.Equal(t, "user", out.Messages[0].Role)
}

func TestBuildRequestRejectsNonUserFirstMessage(t *testing.T) {
	req := &message.Request{
		Messages: []message.Message{
			message.Text(message.RoleAssistant, "hi"),
		},
	}
	_, err := buildRequest(req, nil, "claude-sonnet", 1024, false)
	require.Error(t, err)
}

func TestBuildRequestAppliesCachePolicyAfterSystemAndTools(t *testing.T) {
	req := &message.Request{
		Messages: []message.Message{
			message.Text(message.RoleSystem, "be terse"),
			message.Text(message.RoleUser, "hi"),
		},
		Config: message.Config{
			Tools: []message.Tool{{Name: "search_web", Description: "search"}},
			Cache: &message.CachePolicy{AfterSystem: true, AfterTools: true},
		},
	}
	out, err := buildRequest(req, nil, "claude-sonnet", 1024, false)
	require.NoError(t, err)
	require.Len(t, out.System, 1)
	require.NotNil(t, out.System[0].CacheControl)
	assert.Equal(t, "ephemeral", out.System[0].CacheControl.Type)

	require.Len(t, out.Tools, 1)
	require.NotNil(t, out.Tools[0].CacheControl)
}

func TestBuildRequestExplicitCacheCheckpointAttachesToPrecedingBlock(t *testing.T) {
	req := &message.Request{
		Messages: []message.Message{
			{
				Role: message.RoleUser,
				Parts: []message.Part{
					message.TextPart{Text: "hi"},
					message.CacheCheckpointPart{},
				},
			},
		},
	}
	out, err := buildRequest(req, nil, "claude-sonnet", 1024, false)
	require.NoError(t, err)
	require.Len(t, out.Messages, 1)
	require.Len(t, out.Messages[0].Content, 1)
	require.NotNil(t, out.Messages[0].Content[0].CacheControl)
}

func TestBuildRequestToolCallAndResultRoundTrip(t *testing.T) {
	req := &message.Request{
		Messages: []message.Message{
			message.Text(message.RoleUser, "search for go"),
			{
				Role: message.RoleAssistant,
				Parts: []message.Part{
					message.ToolUsePart{ID: "toolu_1", Name: "search_web", Input: []byte(`{"q":"go"}`)},
				},
			},
			{
				Role: message.RoleUser,
				Parts: []message.Part{
					message.ToolResultPart{ToolUseID: "toolu_1", Content: "results"},
				},
			},
		},
	}
	out, err := buildRequest(req, nil, "claude-sonnet", 1024, false)
	require.NoError(t, err)
	require.Len(t, out.Messages, 3)
	assert.Equal(t, "tool_use", out.Messages[1].Content[0].Type)
	assert.Equal(t, "tool_result", out.Messages[2].Content[0].Type)
	assert.Equal(t, "toolu_1", out.Messages[2].Content[0].ToolUseID)
}

func TestBuildThinkingDefaultsBudgetWhenEnabledWithoutOne(t *testing.T) {
	out := buildThinking(&message.ThinkingOptions{Enable: true})
	require.NotNil(t, out)
	assert.Equal(t, "enabled", out.Type)
	assert.Equal(t, 1024, out.BudgetTokens)
}

func TestBuildThinkingNilWhenDisabled(t *testing.T) {
	assert.Nil(t, buildThinking(nil))
	assert.Nil(t, buildThinking(&message.ThinkingOptions{Enable: false}))
}

func TestBuildToolChoiceModes(t *testing.T) {
	assert.Equal(t, "none", buildToolChoice(message.ToolChoice{Mode: message.ToolChoiceModeNone}, nil).Type)
	assert.Equal(t, "any", buildToolChoice(message.ToolChoice{Mode: message.ToolChoiceModeAny}, nil).Type)
	tc := buildToolChoice(message.ToolChoice{Mode: message.ToolChoiceModeTool, Name: "search_web"}, nil)
	assert.Equal(t, "tool", tc.Type)
	assert.Equal(t, "search_web", tc.Name)
}

func TestDocumentBlockRejectsUnsupportedUseOfEmptyPDF(t *testing.T) {
	_, err := documentBlock(message.DocumentPart{Format: message.DocumentFormatPDF})
	require.Error(t, err)
}
