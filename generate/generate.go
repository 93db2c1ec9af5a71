package generate

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v6"

	"github.com/polyprompt/polyprompt/capability"
	"github.com/polyprompt/polyprompt/llmerr"
	"github.com/polyprompt/polyprompt/message"
)

// GenerateObject sends req to client, extracts a JSON object from the
// resulting text, and validates it against schema. It returns
// llmerr.KindResponseFormat when no JSON object can be recovered from the
// output, and llmerr.KindStructuredOutput when the recovered object fails
// schema validation.
func GenerateObject(ctx context.Context, client capability.Client, req *message.Request, schema Schema) (map[string]any, error) {
	resp, err := client.Complete(ctx, req)
	if err != nil {
		return nil, err
	}
	return parseAndValidate(client.Name(), textOf(resp.Content), schema)
}

// StreamObject sends req to a streaming client, accumulates the text
// deltas, and validates the final text the same way GenerateObject does.
// Tool-call and usage events are ignored; only text contributes to the
// object being generated.
func StreamObject(ctx context.Context, client capability.StreamingClient, req *message.Request, schema Schema) (map[string]any, error) {
	stream, err := client.Stream(ctx, req)
	if err != nil {
		return nil, err
	}
	var buf strings.Builder
	drainErr := capability.Drain(stream, func(ev message.StreamEvent) {
		if ev.Type == message.StreamEventText {
			buf.WriteString(ev.TextDelta)
		}
	})
	if drainErr != nil {
		return nil, drainErr
	}
	return parseAndValidate(client.Name(), buf.String(), schema)
}

func parseAndValidate(provider, text string, schema Schema) (map[string]any, error) {
	raw, err := ExtractJSON(provider, text)
	if err != nil {
		return nil, err
	}

	instance, err := jsonschema.UnmarshalJSON(bytes.NewReader(raw))
	if err != nil {
		return nil, llmerr.New(provider, llmerr.KindResponseFormat, err).
			WithMessage("extracted text was not valid JSON")
	}

	compiled, err := compile(schema)
	if err != nil {
		return nil, llmerr.New(provider, llmerr.KindStructuredOutput, err).
			WithMessage("invalid JSON schema supplied to generateObject")
	}
	if err := compiled.Validate(instance); err != nil {
		return nil, llmerr.New(provider, llmerr.KindStructuredOutput, err).
			WithMessage("model output did not match the requested schema")
	}

	obj, ok := instance.(map[string]any)
	if !ok {
		return nil, llmerr.New(provider, llmerr.KindStructuredOutput, nil).
			WithMessage("schema root must describe a JSON object")
	}
	return obj, nil
}

func compile(schema Schema) (*jsonschema.Schema, error) {
	raw, err := json.Marshal(map[string]any(schema))
	if err != nil {
		return nil, err
	}
	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(raw))
	if err != nil {
		return nil, err
	}
	c := jsonschema.NewCompiler()
	if err := c.AddResource("generate-schema.json", doc); err != nil {
		return nil, err
	}
	return c.Compile("generate-schema.json")
}

func textOf(messages []message.Message) string {
	var buf strings.Builder
	for _, m := range messages {
		for _, p := range m.Parts {
			if t, ok := p.(message.TextPart); ok {
				buf.WriteString(t.Text)
			}
		}
	}
	return buf.String()
}
