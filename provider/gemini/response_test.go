package gemini

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/polyprompt/polyprompt/toolname"
)

func TestTranslateResponseTextAndUsage(t *testing.T) {
	resp := generateContentResponse{
		Candidates: []candidate{
			{FinishReason: "STOP", Content: wireContent{Parts: []wirePart{{Text: "hello"}}}},
		},
		UsageMetadata: &usageMetadata{PromptTokenCount: 10, CandidatesTokenCount: 5, TotalTokenCount: 15},
	}
	out := translateResponse(resp, nil)
	assert.Equal(t, "STOP", out.StopReason)
	assert.Equal(t, 15, out.Usage.TotalTokens)
	require.Len(t, out.Content, 1)
	require.Len(t, out.Content[0].Parts, 1)
}

func TestTranslateResponseSynthesizesCallIDAndRemapsName(t *testing.T) {
	tm, err := toolname.NewMapping([]string{"search_web"}, nil, nil)
	require.NoError(t, err)
	providerName, ok := tm.ToProvider("search_web")
	require.True(t, ok)

	resp := generateContentResponse{
		Candidates: []candidate{
			{Content: wireContent{Parts: []wirePart{
				{FunctionCall: &wireFunctionCall{Name: providerName, Args: []byte(`{"q":"go"}`)}},
			}}},
		},
	}
	out := translateResponse(resp, tm)
	require.Len(t, out.ToolCalls, 1)
	assert.Equal(t, "search_web", out.ToolCalls[0].Name)
	assert.NotEmpty(t, out.ToolCalls[0].ID)
}

func TestTranslateResponseIncludesThought(t *testing.T) {
	resp := generateContentResponse{
		Candidates: []candidate{
			{Content: wireContent{Parts: []wirePart{
				{Text: "reasoning...", Thought: true, ThoughtSignature: "sig"},
				{Text: "answer"},
			}}},
		},
	}
	out := translateResponse(resp, nil)
	require.Len(t, out.Content[0].Parts, 2)
}
