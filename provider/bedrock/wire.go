// Package bedrock implements the AWS Bedrock Converse/ConverseStream
// protocol. Unlike the other provider packages in this module (compat reuses
// provider/openai's), bedrock has no hand-written wire JSON layer: Converse has no published
// raw-JSON contract, only the aws-sdk-go-v2 bedrockruntime/types request and
// response structs, so those typed structs ARE this adapter's wire format.
// build.go and response.go translate directly between message.Request/
// message.Response and brtypes.Message/brtypes.ContentBlock rather than
// through an intermediate wireX struct tree.
package bedrock

import (
	"encoding/json"

	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime/document"
)

// toDocument bridges a tool's InputSchema, a tool_use Input, or a
// tool_result Content value into a document.Interface, the lazily-encoded
// smithy document type Converse's ToolInputSchema/ToolUseBlock/
// ToolResultBlock fields require. schema may already be a document.Interface
// (a caller-constructed document), a json.RawMessage (the common case, since
// message.Tool.InputSchema/ToolUsePart.Input are typically raw JSON), or any
// other JSON-marshalable value.
func toDocument(schema any) document.Interface {
	if schema == nil {
		return lazyDocument(map[string]any{"type": "object"})
	}
	switch v := schema.(type) {
	case document.Interface:
		return v
	case json.RawMessage:
		if len(v) == 0 {
			return lazyDocument(map[string]any{"type": "object"})
		}
		var decoded any
		if err := json.Unmarshal(v, &decoded); err != nil {
			return lazyDocument(map[string]any{"type": "object"})
		}
		return lazyDocument(decoded)
	default:
		return lazyDocument(v)
	}
}

func lazyDocument(v any) document.Interface {
	return document.NewLazyDocument(&v)
}

// decodeDocument reverses toDocument for a response-side tool_use Input,
// surfacing it as the same json.RawMessage shape every other provider
// adapter returns in message.ToolCall.Input.
func decodeDocument(doc document.Interface) json.RawMessage {
	if doc == nil {
		return nil
	}
	data, err := doc.MarshalSmithyDocument()
	if err != nil || len(data) == 0 {
		return nil
	}
	return json.RawMessage(data)
}
