package generate_test

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/polyprompt/polyprompt/generate"
	"github.com/polyprompt/polyprompt/llmerr"
	"github.com/polyprompt/polyprompt/message"
)

type capturingClient struct {
	lastReq *message.Request
	resp    message.Response
}

func (c *capturingClient) Name() string { return "fake" }

func (c *capturingClient) Complete(ctx context.Context, req *message.Request) (*message.Response, error) {
	c.lastReq = req
	return &c.resp, nil
}

func TestGenerateTextPrefersPromptMessagesOverEverythingElse(t *testing.T) {
	client := &capturingClient{resp: message.Response{Content: []message.Message{message.Text(message.RoleAssistant, "hi")}}}
	in := generate.TextInput{
		PromptMessages: []message.Message{message.Text(message.RoleUser, "from promptMessages")},
		Messages:       []message.ChatMessage{{Type: message.ChatMessageTypeUser, Content: "from messages"}},
		Prompt:         "from prompt",
	}
	_, err := generate.GenerateText(context.Background(), client, in, message.Config{})
	require.NoError(t, err)
	require.Len(t, client.lastReq.Messages, 1)
	assert.Equal(t, []message.Part{message.TextPart{Text: "from promptMessages"}}, client.lastReq.Messages[0].Parts)
}

func TestGenerateTextPrefersStructuredPromptOverMessagesAndPrompt(t *testing.T) {
	client := &capturingClient{}
	structured := message.Text(message.RoleUser, "from structuredPrompt")
	in := generate.TextInput{
		StructuredPrompt: &structured,
		Messages:         []message.ChatMessage{{Type: message.ChatMessageTypeUser, Content: "from messages"}},
		Prompt:           "from prompt",
	}
	_, err := generate.GenerateText(context.Background(), client, in, message.Config{})
	require.NoError(t, err)
	require.Len(t, client.lastReq.Messages, 1)
	assert.Equal(t, []message.Part{message.TextPart{Text: "from structuredPrompt"}}, client.lastReq.Messages[0].Parts)
}

func TestGenerateTextPrefersMessagesOverPrompt(t *testing.T) {
	client := &capturingClient{}
	in := generate.TextInput{
		Messages: []message.ChatMessage{{Type: message.ChatMessageTypeUser, Content: "from messages"}},
		Prompt:   "from prompt",
	}
	_, err := generate.GenerateText(context.Background(), client, in, message.Config{})
	require.NoError(t, err)
	require.Len(t, client.lastReq.Messages, 1)
	assert.Equal(t, []message.Part{message.TextPart{Text: "from messages"}}, client.lastReq.Messages[0].Parts)
}

func TestGenerateTextFallsBackToPlainPrompt(t *testing.T) {
	client := &capturingClient{}
	in := generate.TextInput{Prompt: "just a prompt"}
	_, err := generate.GenerateText(context.Background(), client, in, message.Config{})
	require.NoError(t, err)
	require.Len(t, client.lastReq.Messages, 1)
	assert.Equal(t, message.RoleUser, client.lastReq.Messages[0].Role)
	assert.Equal(t, []message.Part{message.TextPart{Text: "just a prompt"}}, client.lastReq.Messages[0].Parts)
}

func TestGenerateTextFailsWithNoInputSupplied(t *testing.T) {
	client := &capturingClient{}
	_, err := generate.GenerateText(context.Background(), client, generate.TextInput{}, message.Config{})
	require.Error(t, err)
	assert.True(t, llmerr.Is(err, llmerr.KindInvalidRequest))
}

func TestGenerateTextPrunesDanglingToolCallsBeforeDispatch(t *testing.T) {
	client := &capturingClient{}
	in := generate.TextInput{
		PromptMessages: []message.Message{
			{Role: message.RoleAssistant, Parts: []message.Part{
				message.ToolUsePart{ID: "call-1", Name: "search", Input: json.RawMessage(`{}`)},
			}},
		},
		Prune: message.PruneOptions{ToolCalls: message.ToolCallPruneDrop},
	}
	_, err := generate.GenerateText(context.Background(), client, in, message.Config{})
	require.NoError(t, err)
	assert.Empty(t, client.lastReq.Messages)
}

func TestGenerateTextReturnsTextAndReasoningFromResponse(t *testing.T) {
	client := &capturingClient{resp: message.Response{Content: []message.Message{
		{Role: message.RoleAssistant, Parts: []message.Part{
			message.ThinkingPart{Text: "reasoning here"},
			message.TextPart{Text: "final answer"},
		}},
	}}}
	result, err := generate.GenerateText(context.Background(), client, generate.TextInput{Prompt: "hi"}, message.Config{})
	require.NoError(t, err)
	assert.Equal(t, "final answer", result.Text)
	assert.Equal(t, "reasoning here", result.ReasoningText)
}

func TestStreamTextResolvesInputAndDispatchesStream(t *testing.T) {
	client := &fakeStreamingClient{fakeClient: fakeClient{text: "unused"}, deltas: []string{"hello ", "world"}}
	stream, err := generate.StreamText(context.Background(), client, generate.TextInput{Prompt: "hi"}, message.Config{})
	require.NoError(t, err)
	require.NotNil(t, stream)
}
