package openairesponses

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/polyprompt/polyprompt/message"
	"github.com/polyprompt/polyprompt/toolname"
)

func decodeResponse(t *testing.T, body string) responsesResponse {
	t.Helper()
	var resp responsesResponse
	require.NoError(t, json.Unmarshal([]byte(body), &resp))
	return resp
}

func TestTranslateResponseSetsIDAndModelMetadata(t *testing.T) {
	resp := decodeResponse(t, `{"id":"resp_1","model":"gpt-5","status":"completed","output":[]}`)
	out := translateResponse(resp, nil)
	assert.Equal(t, "completed", out.StopReason)
	assert.Equal(t, "resp_1", out.ProviderMetadata["openai-responses"]["id"])
	assert.Equal(t, "gpt-5", out.ProviderMetadata["openai-responses"]["model"])
}

func TestTranslateResponseMapsUsage(t *testing.T) {
	resp := decodeResponse(t, `{
		"id":"resp_1","model":"gpt-5","status":"completed","output":[],
		"usage":{"input_tokens":10,"output_tokens":5,"total_tokens":15,"input_tokens_details":{"cached_tokens":2}}
	}`)
	out := translateResponse(resp, nil)
	assert.Equal(t, message.Usage{InputTokens: 10, OutputTokens: 5, TotalTokens: 15, CacheReadTokens: 2}, out.Usage)
}

func TestTranslateResponseMessageTextParts(t *testing.T) {
	resp := decodeResponse(t, `{
		"id":"resp_1","model":"gpt-5","status":"completed",
		"output":[{"type":"message","role":"assistant","content":[{"type":"output_text","text":"hi there"}]}]
	}`)
	out := translateResponse(resp, nil)
	require.Len(t, out.Content, 1)
	require.Len(t, out.Content[0].Parts, 1)
	tp, ok := out.Content[0].Parts[0].(message.TextPart)
	require.True(t, ok)
	assert.Equal(t, "hi there", tp.Text)
}

func TestTranslateResponseReasoningConcatenatesSummary(t *testing.T) {
	resp := decodeResponse(t, `{
		"id":"resp_1","model":"gpt-5","status":"completed",
		"output":[{"type":"reasoning","encrypted_content":"enc_1","summary":[{"type":"summary_text","text":"step one. "},{"type":"summary_text","text":"step two."}]}]
	}`)
	out := translateResponse(resp, nil)
	require.Len(t, out.Content[0].Parts, 1)
	tp, ok := out.Content[0].Parts[0].(message.ThinkingPart)
	require.True(t, ok)
	assert.Equal(t, "step one. step two.", tp.Text)
	assert.Equal(t, "enc_1", tp.Signature)
	assert.True(t, tp.Final)
}

func TestTranslateResponseFunctionCallRemapsName(t *testing.T) {
	tm, err := toolname.NewMapping([]string{"search web"}, func(s string) string { return toolname.Sanitize(s, 64) }, nil)
	require.NoError(t, err)
	mapped, ok := tm.ToProvider("search web")
	require.True(t, ok)

	resp := decodeResponse(t, `{
		"id":"resp_1","model":"gpt-5","status":"completed",
		"output":[{"type":"function_call","call_id":"call_1","name":"`+mapped+`","arguments":{"q":"go"}}]
	}`)
	out := translateResponse(resp, tm)
	require.Len(t, out.ToolCalls, 1)
	assert.Equal(t, "search web", out.ToolCalls[0].Name)
	assert.Equal(t, "call_1", out.ToolCalls[0].ID)
}

func TestTranslateResponseCapturesProviderNativeItems(t *testing.T) {
	resp := decodeResponse(t, `{
		"id":"resp_1","model":"gpt-5","status":"completed",
		"output":[{"type":"web_search_call","id":"ws_1","status":"completed"}]
	}`)
	out := translateResponse(resp, nil)
	raw, ok := out.ProviderMetadata["openai-responses"]["webSearchCalls"]
	require.True(t, ok)
	list, ok := raw.([]json.RawMessage)
	require.True(t, ok)
	require.Len(t, list, 1)
	assert.Contains(t, string(list[0]), `"ws_1"`)
}
