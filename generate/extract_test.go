package generate_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/polyprompt/polyprompt/generate"
)

func TestExtractJSONDirectParse(t *testing.T) {
	raw, err := generate.ExtractJSON("openai", `{"answer":42}`)
	require.NoError(t, err)
	assert.JSONEq(t, `{"answer":42}`, string(raw))
}

func TestExtractJSONFencedBlock(t *testing.T) {
	text := "Here is the result:\n```json\n{\"answer\":42}\n```\n"
	raw, err := generate.ExtractJSON("openai", text)
	require.NoError(t, err)
	assert.JSONEq(t, `{"answer":42}`, string(raw))
}

func TestExtractJSONFencedBlockWithoutLanguageTag(t *testing.T) {
	text := "```\n{\"answer\":42}\n```"
	raw, err := generate.ExtractJSON("openai", text)
	require.NoError(t, err)
	assert.JSONEq(t, `{"answer":42}`, string(raw))
}

func TestExtractJSONFirstBalancedObject(t *testing.T) {
	text := `The answer is {"answer": 42, "nested": {"a": 1}} and that's final.`
	raw, err := generate.ExtractJSON("openai", text)
	require.NoError(t, err)
	assert.JSONEq(t, `{"answer": 42, "nested": {"a": 1}}`, string(raw))
}

func TestExtractJSONBalancedObjectIgnoresBracesInStrings(t *testing.T) {
	text := `{"text": "a } inside a string", "ok": true}`
	raw, err := generate.ExtractJSON("openai", text)
	require.NoError(t, err)
	assert.JSONEq(t, text, string(raw))
}

func TestExtractJSONNoObjectFails(t *testing.T) {
	_, err := generate.ExtractJSON("openai", "no json here at all")
	require.Error(t, err)
}
