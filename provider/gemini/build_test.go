package gemini

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/polyprompt/polyprompt/message"
)

func TestBuildRequestSeparatesSystemInstructionFromContents(t *testing.T) {
	req := &message.Request{
		Messages: []message.Message{
			message.Text(message.RoleSystem, "be terse"),
			message.Text(message.RoleUser, "hi"),
		},
	}
	out, err := buildRequest(req, nil, nil)
	require.NoError(t, err)
	require.NotNil(t, out.SystemInstruction)
	require.Len(t, out.SystemInstruction.Parts, 1)
	assert.Equal(t, "be terse", out.SystemInstruction.Parts[0].Text)
	require.Len(t, out.Contents, 1)
	assert.Equal(t, "user", out.Contents[0].Role)
}

func TestBuildRequestMapsAssistantRoleToModel(t *testing.T) {
	req := &message.Request{
		Messages: []message.Message{
			message.Text(message.RoleUser, "hi"),
			message.Text(message.RoleAssistant, "hello"),
		},
	}
	out, err := buildRequest(req, nil, nil)
	require.NoError(t, err)
	require.Len(t, out.Contents, 2)
	assert.Equal(t, "model", out.Contents[1].Role)
}

func TestBuildRequestToolCallAndResultCorrelateByName(t *testing.T) {
	req := &message.Request{
		Messages: []message.Message{
			message.Text(message.RoleUser, "search for go"),
			{
				Role: message.RoleAssistant,
				Parts: []message.Part{
					message.ToolUsePart{ID: "call_1", Name: "search_web", Input: []byte(`{"q":"go"}`)},
				},
			},
			{
				Role: message.RoleUser,
				Parts: []message.Part{
					message.ToolResultPart{ToolUseID: "call_1", Content: map[string]any{"hits": 3}},
				},
			},
		},
	}
	out, err := buildRequest(req, nil, nil)
	require.NoError(t, err)
	require.Len(t, out.Contents, 3)
	require.NotNil(t, out.Contents[1].Parts[0].FunctionCall)
	assert.Equal(t, "search_web", out.Contents[1].Parts[0].FunctionCall.Name)
	require.NotNil(t, out.Contents[2].Parts[0].FunctionResponse)
	assert.Equal(t, "search_web", out.Contents[2].Parts[0].FunctionResponse.Name)
}

func TestBuildRequestRejectsToolResultWithoutPrecedingCall(t *testing.T) {
	req := &message.Request{
		Messages: []message.Message{
			{
				Role: message.RoleUser,
				Parts: []message.Part{
					message.ToolResultPart{ToolUseID: "missing", Content: "x"},
				},
			},
		},
	}
	_, err := buildRequest(req, nil, nil)
	require.Error(t, err)
}

func TestBuildThinkingConfigIncludesThoughtsWhenEnabled(t *testing.T) {
	tc := buildThinkingConfig(&message.ThinkingOptions{Enable: true, BudgetTokens: 512})
	require.NotNil(t, tc)
	assert.True(t, tc.IncludeThoughts)
	require.NotNil(t, tc.ThinkingBudget)
	assert.Equal(t, 512, *tc.ThinkingBudget)
}

func TestBuildThinkingConfigNilWhenDisabled(t *testing.T) {
	assert.Nil(t, buildThinkingConfig(nil))
	assert.Nil(t, buildThinkingConfig(&message.ThinkingOptions{Enable: false}))
}

func TestBuildToolConfigModes(t *testing.T) {
	assert.Equal(t, "NONE", buildToolConfig(message.ToolChoice{Mode: message.ToolChoiceModeNone}, nil).FunctionCallingConfig.Mode)
	assert.Equal(t, "ANY", buildToolConfig(message.ToolChoice{Mode: message.ToolChoiceModeAny}, nil).FunctionCallingConfig.Mode)
	tc := buildToolConfig(message.ToolChoice{Mode: message.ToolChoiceModeTool, Name: "search_web"}, nil)
	assert.Equal(t, "ANY", tc.FunctionCallingConfig.Mode)
	assert.Equal(t, []string{"search_web"}, tc.FunctionCallingConfig.AllowedFunctionNames)
}

func TestDocumentPartRejectsUnsupportedFormat(t *testing.T) {
	_, err := documentPart(message.DocumentPart{Format: "docx"})
	require.Error(t, err)
}
