package generate_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/polyprompt/polyprompt/generate"
)

func TestNewObjectSchemaShape(t *testing.T) {
	s := generate.NewObjectSchema(map[string]generate.Schema{
		"name": generate.String(),
		"tags": generate.Array(generate.String()),
	}, []string{"name"})

	assert.Equal(t, "object", s["type"])
	assert.Equal(t, []string{"name"}, s["required"])
	props, ok := s["properties"].(map[string]any)
	assert.True(t, ok)
	assert.Contains(t, props, "name")
	assert.Contains(t, props, "tags")
}

func TestStringSchemaWithEnum(t *testing.T) {
	s := generate.String("red", "green", "blue")
	assert.Equal(t, "string", s["type"])
	assert.Equal(t, []any{"red", "green", "blue"}, s["enum"])
}
