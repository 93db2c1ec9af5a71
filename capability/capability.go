// Package capability defines the provider-agnostic client interface every
// adapter implements, plus optional capability interfaces adapters can
// implement to advertise support for features like streaming, structured
// output, or prompt caching. Callers discover capabilities via type
// assertion against a Client rather than a type switch on a concrete
// provider struct.
package capability

import (
	"context"
	"io"

	"github.com/polyprompt/polyprompt/message"
)

type (
	// Client is the provider-agnostic model client every adapter
	// implements.
	Client interface {
		// Complete performs a non-streaming model invocation.
		Complete(ctx context.Context, req *message.Request) (*message.Response, error)

		// Name returns a short, stable provider identifier (for example,
		// "anthropic", "openai", "bedrock") used in error messages and
		// registry lookups.
		Name() string
	}

	// StreamingClient is implemented by adapters that support streaming
	// responses. Not every provider/model combination supports streaming;
	// callers should type-assert rather than assume.
	StreamingClient interface {
		Client

		// Stream performs a streaming model invocation.
		Stream(ctx context.Context, req *message.Request) (Streamer, error)
	}

	// Streamer delivers incremental model output.
	//
	// Callers must drain the stream until Recv returns io.EOF or another
	// terminal error, then call Close. Exactly one message.StreamEventFinish
	// event precedes io.EOF on a successful stream.
	Streamer interface {
		// Recv returns the next streaming event or an error. Returns io.EOF
		// once the stream has delivered its terminal event and the
		// underlying transport has closed cleanly.
		Recv() (message.StreamEvent, error)

		// Close releases any resources associated with the stream and
		// cancels the underlying transport if it is still in flight.
		Close() error

		// Metadata returns provider-specific metadata collected during the
		// call (for example, the final usage total). May return nil before
		// the stream has finished.
		Metadata() map[string]any
	}

	// CachingClient is implemented by adapters that support prompt caching
	// checkpoints, either via explicit message.CacheCheckpointPart parts or
	// via message.CachePolicy.
	CachingClient interface {
		Client

		// SupportsCacheCheckpoints reports whether the given model
		// identifier supports prompt caching checkpoints. Some model
		// families within a provider may not (for example, Bedrock Nova
		// models do not support tool-level checkpoints).
		SupportsCacheCheckpoints(model string) bool
	}

	// EmbeddingCapability is implemented by adapters that can turn text
	// into vector embeddings (Gemini's embedContent, Ollama's
	// /api/embeddings).
	EmbeddingCapability interface {
		Client

		// Embed returns one embedding vector per entry in req.Input, in
		// order.
		Embed(ctx context.Context, req EmbeddingRequest) (*EmbeddingResponse, error)
	}

	// ImageGenerationCapability is implemented by adapters that can
	// generate images from a text prompt.
	ImageGenerationCapability interface {
		Client

		GenerateImage(ctx context.Context, req ImageGenerationRequest) (*ImageGenerationResponse, error)
	}

	// AudioCapability is implemented by adapters that support text-to-speech,
	// speech-to-text, or audio translation. A given provider may implement
	// only a subset; callers should still guard each call with its own
	// error handling rather than assuming all three are live.
	AudioCapability interface {
		Client

		Speak(ctx context.Context, req AudioSpeechRequest) (*AudioSpeechResponse, error)
		Transcribe(ctx context.Context, req AudioTranscriptionRequest) (*AudioTranscriptionResponse, error)
	}

	// ModelListingCapability is implemented by adapters that can enumerate
	// the models available through their endpoint (Ollama's /api/tags).
	ModelListingCapability interface {
		Client

		ListModels(ctx context.Context) ([]ModelInfo, error)
	}

	// FileManagementCapability is implemented by adapters that expose
	// file-upload endpoints for later reference by id (Gemini's files
	// API, OpenAI Responses file search).
	FileManagementCapability interface {
		Client

		UploadFile(ctx context.Context, req FileUploadRequest) (*FileInfo, error)
		GetFile(ctx context.Context, id string) (*FileInfo, error)
		DeleteFile(ctx context.Context, id string) error
	}
)

// EmbeddingRequest is the input to EmbeddingCapability.Embed.
type EmbeddingRequest struct {
	Model string
	Input []string

	// TaskType and Title mirror Gemini's embedContent tuning fields
	// (RETRIEVAL_DOCUMENT, SEMANTIC_SIMILARITY, ...); other adapters
	// ignore them.
	TaskType string
	Title    string

	// Dimensions requests a truncated embedding size, when the provider
	// supports it. Zero means the provider's default dimensionality.
	Dimensions int
}

// Embedding is one input's resulting vector.
type Embedding struct {
	Index  int
	Vector []float32
}

// EmbeddingResponse is the normalized result of an Embed call.
type EmbeddingResponse struct {
	Embeddings      []Embedding
	Usage           message.Usage
	ProviderMetadata map[string]map[string]any
}

// ImageGenerationRequest is the input to ImageGenerationCapability.GenerateImage.
type ImageGenerationRequest struct {
	Model  string
	Prompt string
	N      int
	Size   string
}

// GeneratedImage is one image produced by a GenerateImage call. Exactly one
// of B64JSON or URL is populated, depending on the provider's response mode.
type GeneratedImage struct {
	B64JSON string
	URL     string
}

// ImageGenerationResponse is the normalized result of a GenerateImage call.
type ImageGenerationResponse struct {
	Images           []GeneratedImage
	ProviderMetadata map[string]map[string]any
}

// AudioSpeechRequest is the input to AudioCapability.Speak (text-to-speech).
type AudioSpeechRequest struct {
	Model  string
	Input  string
	Voice  string
	Format string
}

// AudioSpeechResponse carries the synthesized audio bytes.
type AudioSpeechResponse struct {
	Audio  []byte
	Format string
}

// AudioTranscriptionRequest is the input to AudioCapability.Transcribe
// (speech-to-text) or audio translation, distinguished by whether
// LanguageCode names the source language (transcription) or is left empty
// (translate-to-English).
type AudioTranscriptionRequest struct {
	Model              string
	Audio              []byte
	Format             string
	LanguageCode       string
	IncludeTimestamps  bool
	TimestampGranularity string
	Diarize            bool
	NumSpeakers        int
}

// AudioTranscriptionResponse is the normalized result of a Transcribe call.
type AudioTranscriptionResponse struct {
	Text         string
	LanguageCode string
}

// ModelInfo describes one model a provider makes available.
type ModelInfo struct {
	ID      string
	OwnedBy string
}

// FileUploadRequest is the input to FileManagementCapability.UploadFile.
type FileUploadRequest struct {
	Name     string
	MIMEType string
	Data     []byte
}

// FileInfo describes a file a provider is holding on the caller's behalf.
type FileInfo struct {
	ID        string
	Name      string
	MIMEType  string
	SizeBytes int64
}

// ProviderCapabilities is implemented by adapters that want to declare their
// supported feature set directly rather than relying entirely on interface
// type-assertion discovery. Supports is authoritative: a provider may
// implement a capability interface defensively (for a feature flag not yet
// enabled on the account) while still reporting Supports(cap) == false.
type ProviderCapabilities interface {
	Client

	// Supports reports whether the provider currently honors cap.
	Supports(cap string) bool

	// SupportedCapabilities returns the provider's fixed declared set.
	SupportedCapabilities() []string
}

// ErrStreamingUnsupported indicates the provider or model does not support
// streaming.
var ErrStreamingUnsupported = streamingUnsupportedError{}

type streamingUnsupportedError struct{}

func (streamingUnsupportedError) Error() string { return "capability: streaming not supported" }

// Drain reads every event from s until io.EOF or an error, invoking fn for
// each event, then closes s. It is a convenience for callers that want the
// full event sequence without managing the Recv/Close loop manually.
func Drain(s Streamer, fn func(message.StreamEvent)) error {
	defer s.Close()
	for {
		ev, err := s.Recv()
		if err != nil {
			if err == io.EOF {
				return nil
			}
			return err
		}
		fn(ev)
	}
}
