package bedrock

import (
	"encoding/json"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	brtypes "github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/polyprompt/polyprompt/message"
	"github.com/polyprompt/polyprompt/toolname"
)

func TestTranslateResponseText(t *testing.T) {
	output := &bedrockruntime.ConverseOutput{
		Output: &brtypes.ConverseOutputMemberMessage{
			Value: brtypes.Message{
				Role:    brtypes.ConversationRoleAssistant,
				Content: []brtypes.ContentBlock{&brtypes.ContentBlockMemberText{Value: "hello there"}},
			},
		},
		StopReason: brtypes.StopReasonEndTurn,
		Usage: &brtypes.TokenUsage{
			InputTokens:  aws.Int32(10),
			OutputTokens: aws.Int32(5),
			TotalTokens:  aws.Int32(15),
		},
	}
	resp := translateResponse(output, nil)
	require.Len(t, resp.Content, 1)
	require.Len(t, resp.Content[0].Parts, 1)
	text, ok := resp.Content[0].Parts[0].(message.TextPart)
	require.True(t, ok)
	assert.Equal(t, "hello there", text.Text)
	assert.Equal(t, 10, resp.Usage.InputTokens)
	assert.Equal(t, string(brtypes.StopReasonEndTurn), resp.StopReason)
}

func TestTranslateResponseToolUseRemapsNameToCanonical(t *testing.T) {
	tm, err := toolname.NewMapping([]string{"search engine"}, func(s string) string { return toolname.Sanitize(s, 64) }, nil)
	require.NoError(t, err)
	providerName, ok := tm.ToProvider("search engine")
	require.True(t, ok)

	output := &bedrockruntime.ConverseOutput{
		Output: &brtypes.ConverseOutputMemberMessage{
			Value: brtypes.Message{
				Content: []brtypes.ContentBlock{
					&brtypes.ContentBlockMemberToolUse{Value: brtypes.ToolUseBlock{
						ToolUseId: aws.String("t1"),
						Name:      aws.String(providerName),
						Input:     lazyDocument(map[string]any{"q": "x"}),
					}},
				},
			},
		},
	}
	resp := translateResponse(output, tm)
	require.Len(t, resp.ToolCalls, 1)
	assert.Equal(t, "search engine", resp.ToolCalls[0].Name)
	assert.Equal(t, "t1", resp.ToolCalls[0].ID)
}

func TestTranslateResponseStripsFunctionsPrefix(t *testing.T) {
	output := &bedrockruntime.ConverseOutput{
		Output: &brtypes.ConverseOutputMemberMessage{
			Value: brtypes.Message{
				Content: []brtypes.ContentBlock{
					&brtypes.ContentBlockMemberToolUse{Value: brtypes.ToolUseBlock{
						ToolUseId: aws.String("t1"),
						Name:      aws.String("$FUNCTIONS.search"),
						Input:     lazyDocument(map[string]any{}),
					}},
				},
			},
		},
	}
	resp := translateResponse(output, nil)
	require.Len(t, resp.ToolCalls, 1)
	assert.Equal(t, "search", resp.ToolCalls[0].Name)
}

func TestTranslateReasoningBlockText(t *testing.T) {
	part := translateReasoningBlock(&brtypes.ReasoningContentBlockMemberReasoningText{
		Value: brtypes.ReasoningTextBlock{Text: aws.String("thinking..."), Signature: aws.String("sig")},
	})
	require.NotNil(t, part)
	assert.Equal(t, "thinking...", part.Text)
	assert.Equal(t, "sig", part.Signature)
	assert.True(t, part.Final)
}

func TestTranslateReasoningBlockRedacted(t *testing.T) {
	part := translateReasoningBlock(&brtypes.ReasoningContentBlockMemberRedactedContent{Value: []byte{1, 2, 3}})
	require.NotNil(t, part)
	assert.Equal(t, []byte{1, 2, 3}, part.Redacted)
}

func TestDecodeDocumentRoundTrips(t *testing.T) {
	doc := lazyDocument(map[string]any{"a": 1.0})
	raw := decodeDocument(doc)
	var decoded map[string]any
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.Equal(t, 1.0, decoded["a"])
}
