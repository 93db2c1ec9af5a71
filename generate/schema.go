// Package generate implements structured-output helpers on top of
// capability.Client: generating text, and extracting/validating a JSON
// object from a model's text output against a caller-supplied JSON Schema.
package generate

// Schema is a raw JSON Schema document describing the object generateObject
// and streamObject validate their output against. It is passed through to
// github.com/santhosh-tekuri/jsonschema/v6 unmodified, so any JSON Schema
// draft the library supports works here; the spec only requires validating
// type, required, and nested object/array types.
type Schema map[string]any

// NewObjectSchema builds the common case: a top-level object schema with
// named property schemas and a required-field list.
func NewObjectSchema(properties map[string]Schema, required []string) Schema {
	props := make(map[string]any, len(properties))
	for name, s := range properties {
		props[name] = map[string]any(s)
	}
	return Schema{
		"type":       "object",
		"properties": props,
		"required":   required,
	}
}

// String returns a schema for a string-typed property, optionally
// restricted to an enumeration of allowed values.
func String(enum ...string) Schema {
	s := Schema{"type": "string"}
	if len(enum) > 0 {
		values := make([]any, len(enum))
		for i, v := range enum {
			values[i] = v
		}
		s["enum"] = values
	}
	return s
}

// Integer returns a schema for an integer-typed property.
func Integer() Schema { return Schema{"type": "integer"} }

// Number returns a schema for a number-typed property.
func Number() Schema { return Schema{"type": "number"} }

// Boolean returns a schema for a boolean-typed property.
func Boolean() Schema { return Schema{"type": "boolean"} }

// Array returns a schema for an array property whose items match items.
func Array(items Schema) Schema {
	return Schema{"type": "array", "items": map[string]any(items)}
}

// Object returns a nested object schema.
func Object(properties map[string]Schema, required []string) Schema {
	return NewObjectSchema(properties, required)
}
