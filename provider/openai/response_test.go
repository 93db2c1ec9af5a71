package openai

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/polyprompt/polyprompt/toolname"
)

func TestTranslateResponseTextOnly(t *testing.T) {
	resp := chatResponse{
		ID:    "chatcmpl-1",
		Model: "gpt-4o",
		Choices: []chatChoice{
			{Message: wireRespMsg{Role: "assistant", Content: "hello"}, FinishReason: "stop"},
		},
		Usage: chatUsage{PromptTokens: 10, CompletionTokens: 5, TotalTokens: 15},
	}
	out := translateResponse(resp, nil)
	assert.Equal(t, "stop", out.StopReason)
	assert.Equal(t, 10, out.Usage.InputTokens)
	assert.Equal(t, 5, out.Usage.OutputTokens)
	require.Len(t, out.Content, 1)
	assert.Len(t, out.Content[0].Parts, 1)
}

func TestTranslateResponseRemapsToolCallName(t *testing.T) {
	tm, err := toolname.NewMapping([]string{"search_web"}, nil, nil)
	require.NoError(t, err)
	requestName, ok := tm.ToProvider("search_web")
	require.True(t, ok)

	resp := chatResponse{
		Choices: []chatChoice{
			{Message: wireRespMsg{
				Role: "assistant",
				ToolCalls: []wireToolCall{
					{ID: "call_1", Function: wireToolCallFunc{Name: requestName, Arguments: `{"q":"go"}`}},
				},
			}, FinishReason: "tool_calls"},
		},
	}
	out := translateResponse(resp, tm)
	require.Len(t, out.ToolCalls, 1)
	assert.Equal(t, "search_web", out.ToolCalls[0].Name)
}

func TestTranslateResponseIncludesReasoning(t *testing.T) {
	resp := chatResponse{
		Choices: []chatChoice{
			{Message: wireRespMsg{Role: "assistant", ReasoningContent: "thinking...", Content: "answer"}, FinishReason: "stop"},
		},
	}
	out := translateResponse(resp, nil)
	require.Len(t, out.Content, 1)
	require.Len(t, out.Content[0].Parts, 2)
}
