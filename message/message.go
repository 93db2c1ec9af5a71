// Package message defines the provider-agnostic prompt intermediate
// representation shared by every polyprompt provider adapter. Messages are
// modeled as typed parts (text, image, document, thinking, tool use/result)
// rather than flattened strings so adapters can translate structure instead
// of re-parsing it.
package message

import "encoding/json"

// Role identifies the speaker for a Message.
type Role string

const (
	// RoleSystem is the role for system/instruction messages.
	RoleSystem Role = "system"

	// RoleUser is the role for user-authored messages.
	RoleUser Role = "user"

	// RoleAssistant is the role for model-authored messages.
	RoleAssistant Role = "assistant"
)

type (
	// Part is a marker interface implemented by every message part. Concrete
	// implementations capture user-visible text, provider-issued thinking, and
	// tool call/result content in strongly typed form, rather than as an
	// untyped union.
	Part interface {
		isPart()
	}

	// ImageFormat identifies the on-wire encoding of an ImagePart.
	//
	// Provider adapters may support only a subset of formats; callers should
	// normalize uploads to a supported format before constructing an
	// ImagePart.
	ImageFormat string

	// DocumentFormat identifies the on-wire format of a DocumentPart.
	DocumentFormat string

	// TextPart is a plain text content block.
	TextPart struct {
		// Text is the human-readable content for this part.
		Text string
	}

	// ImagePart carries image bytes attached to a message.
	ImagePart struct {
		// Format identifies the encoding of Bytes (for example, "png").
		Format ImageFormat

		// Bytes contains the raw image bytes for the declared format.
		Bytes []byte
	}

	// DocumentPart carries document content attached to a message.
	//
	// Exactly one of Bytes, Text, or URI is expected to be populated;
	// adapters that do not support a given combination fail fast rather than
	// silently dropping content.
	DocumentPart struct {
		// Name is a short neutral identifier for the document.
		Name string

		// Format identifies the document format/extension.
		Format DocumentFormat

		// Bytes carries the raw document bytes for an uploaded document.
		Bytes []byte

		// Text carries the document content as a single text blob.
		Text string

		// URI locates the document externally (for example, "s3://bucket/key.pdf")
		// when it should not be embedded in the request payload.
		URI string
	}

	// ThinkingPart represents provider-issued reasoning content.
	//
	// Consumers treat Signature and Redacted as opaque provider metadata;
	// they must be echoed back verbatim on subsequent turns so the provider
	// can verify the reasoning chain.
	ThinkingPart struct {
		// Text is the provider-visible reasoning text when available.
		Text string

		// Signature is the provider-issued signature for Text when present.
		Signature string

		// Redacted carries provider-issued reasoning content in redacted form
		// when plaintext Text is not available.
		Redacted []byte

		// Index is the position of this block in the reasoning sequence.
		Index int

		// Final reports whether this is the last reasoning block for the turn.
		Final bool
	}

	// ToolUsePart declares a tool invocation requested by the model.
	ToolUsePart struct {
		// ID uniquely identifies this tool call within the turn.
		ID string

		// Name is the tool identifier requested by the model.
		Name string

		// Input is the JSON-compatible arguments object supplied by the model.
		Input json.RawMessage
	}

	// ToolResultPart carries a tool result supplied by the caller.
	//
	// Tool results are attached to user messages so the model can read them
	// on the next turn.
	ToolResultPart struct {
		// ToolUseID correlates this result to a prior ToolUsePart.
		ToolUseID string

		// Content is the result payload; typically a string or a
		// JSON-marshalable value.
		Content any

		// IsError reports whether Content represents a tool execution error.
		IsError bool
	}

	// CacheCheckpointPart marks an explicit provider cache boundary.
	//
	// Provider adapters translate this to provider-specific caching
	// directives (Anthropic cache_control, Bedrock cachePoint). Providers
	// without caching support ignore it. It is complementary to the
	// policy-driven CacheOptions on Request: callers may combine explicit
	// checkpoints with AfterSystem/AfterTools policy checkpoints.
	CacheCheckpointPart struct{}

	// Message is a single chat message: a role plus an ordered list of
	// parts.
	Message struct {
		// Role identifies the speaker for this message.
		Role Role

		// Parts are the ordered content blocks for the message.
		Parts []Part

		// ProviderMetadata carries provider-specific side channel data keyed
		// first by provider name and then by an arbitrary key, so a single
		// message can carry hints for more than one provider without
		// collision (for example, ProviderMetadata["anthropic"]["cache_control"]).
		ProviderMetadata map[string]map[string]any
	}
)

func (TextPart) isPart()            {}
func (ImagePart) isPart()           {}
func (DocumentPart) isPart()        {}
func (ThinkingPart) isPart()        {}
func (ToolUsePart) isPart()         {}
func (ToolResultPart) isPart()      {}
func (CacheCheckpointPart) isPart() {}

const (
	// ImageFormatPNG identifies a PNG-encoded image.
	ImageFormatPNG ImageFormat = "png"

	// ImageFormatJPEG identifies a JPEG-encoded image.
	ImageFormatJPEG ImageFormat = "jpeg"

	// ImageFormatGIF identifies a GIF-encoded image.
	ImageFormatGIF ImageFormat = "gif"

	// ImageFormatWEBP identifies a WebP-encoded image.
	ImageFormatWEBP ImageFormat = "webp"
)

const (
	// DocumentFormatPDF identifies a PDF document.
	DocumentFormatPDF DocumentFormat = "pdf"

	// DocumentFormatTXT identifies a plain text document.
	DocumentFormatTXT DocumentFormat = "txt"

	// DocumentFormatMD identifies a Markdown document.
	DocumentFormatMD DocumentFormat = "md"
)

// Text returns a single TextPart message with the given role, a common
// construction shortcut for simple turns.
func Text(role Role, text string) Message {
	return Message{Role: role, Parts: []Part{TextPart{Text: text}}}
}

// ProviderMeta returns the value stored under provider/key in m's
// ProviderMetadata, or nil if absent. It never panics on a nil map.
func (m Message) ProviderMeta(provider, key string) (any, bool) {
	if m.ProviderMetadata == nil {
		return nil, false
	}
	byKey, ok := m.ProviderMetadata[provider]
	if !ok {
		return nil, false
	}
	v, ok := byKey[key]
	return v, ok
}

// WithProviderMeta returns a copy of m with ProviderMetadata[provider][key]
// set to value. The original message and its ProviderMetadata map are left
// untouched.
func (m Message) WithProviderMeta(provider, key string, value any) Message {
	out := m
	out.ProviderMetadata = make(map[string]map[string]any, len(m.ProviderMetadata)+1)
	for p, kv := range m.ProviderMetadata {
		cp := make(map[string]any, len(kv))
		for k, v := range kv {
			cp[k] = v
		}
		out.ProviderMetadata[p] = cp
	}
	byKey, ok := out.ProviderMetadata[provider]
	if !ok {
		byKey = make(map[string]any, 1)
		out.ProviderMetadata[provider] = byKey
	}
	byKey[key] = value
	return out
}
