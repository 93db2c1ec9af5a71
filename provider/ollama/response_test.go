package ollama

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/polyprompt/polyprompt/toolname"
)

func TestTranslateResponseTextAndUsage(t *testing.T) {
	resp := chatResponse{
		Model:           "llama3",
		DoneReason:      "stop",
		Message:         wireMessage{Role: "assistant", Content: "hello"},
		PromptEvalCount: 10,
		EvalCount:       5,
	}
	out := translateResponse(resp, nil)
	assert.Equal(t, "stop", out.StopReason)
	assert.Equal(t, 15, out.Usage.TotalTokens)
	require.Len(t, out.Content, 1)
	require.Len(t, out.Content[0].Parts, 1)
}

func TestTranslateResponseSynthesizesCallIDAndRemapsName(t *testing.T) {
	tm, err := toolname.NewMapping([]string{"search_web"}, nil, nil)
	require.NoError(t, err)
	providerName, ok := tm.ToProvider("search_web")
	require.True(t, ok)

	resp := chatResponse{
		Message: wireMessage{
			ToolCalls: []wireToolCall{
				{Function: wireToolCallFunc{Name: providerName, Arguments: []byte(`{"q":"go"}`)}},
			},
		},
	}
	out := translateResponse(resp, tm)
	require.Len(t, out.ToolCalls, 1)
	assert.Equal(t, "search_web", out.ToolCalls[0].Name)
	assert.NotEmpty(t, out.ToolCalls[0].ID)
}
