package ollama

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/polyprompt/polyprompt/message"
)

func TestBuildRequestSeparatesSystemAndCarriesImages(t *testing.T) {
	req := &message.Request{
		Messages: []message.Message{
			message.Text(message.RoleSystem, "be terse"),
			{
				Role: message.RoleUser,
				Parts: []message.Part{
					message.TextPart{Text: "describe this"},
					message.ImagePart{Format: message.ImageFormatPNG, Bytes: []byte("fake-png")},
				},
			},
		},
	}
	out, err := buildRequest(req, nil, "llama3", nil, "", false, false)
	require.NoError(t, err)
	require.Len(t, out.Messages, 2)
	assert.Equal(t, "system", out.Messages[0].Role)
	assert.Equal(t, "describe this", out.Messages[1].Content)
	require.Len(t, out.Messages[1].Images, 1)
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
					message.ToolResultPart{ToolUseID: "call_1", Content: "3 hits"},
				},
			},
		},
	}
	out, err := buildRequest(req, nil, "llama3", nil, "", false, false)
	require.NoError(t, err)
	require.Len(t, out.Messages, 3)
	require.Len(t, out.Messages[1].ToolCalls, 1)
	assert.Equal(t, "search_web", out.Messages[1].ToolCalls[0].Function.Name)
	assert.Equal(t, "tool", out.Messages[2].Role)
	assert.Equal(t, "search_web", out.Messages[2].ToolName)
	assert.Equal(t, "3 hits", out.Messages[2].Content)
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
	_, err := buildRequest(req, nil, "llama3", nil, "", false, false)
	require.Error(t, err)
}

func TestBuildRequestAppliesRuntimeOptionsAndMaxTokens(t *testing.T) {
	req := &message.Request{
		Messages: []message.Message{message.Text(message.RoleUser, "hi")},
		Config:   message.Config{MaxTokens: 256},
	}
	base := &wireOptions{NumCtx: 4096}
	out, err := buildRequest(req, nil, "llama3", base, "5m", false, false)
	require.NoError(t, err)
	require.NotNil(t, out.Options)
	assert.Equal(t, 4096, out.Options.NumCtx)
	assert.Equal(t, 256, out.Options.NumPredict)
	assert.Equal(t, "5m", out.KeepAlive)
}
