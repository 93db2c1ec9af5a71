package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/google/generative-ai-go/genai"

	"github.com/polyprompt/polyprompt/capability"
	"github.com/polyprompt/polyprompt/llmerr"
	"github.com/polyprompt/polyprompt/message"
	"github.com/polyprompt/polyprompt/registry"
	"github.com/polyprompt/polyprompt/telemetry"
	"github.com/polyprompt/polyprompt/toolname"
	"github.com/polyprompt/polyprompt/transport"
)

// Options configures a Client.
type Options struct {
	// APIKey authenticates requests via the x-goog-api-key header.
	APIKey string

	// BaseURL overrides the default
	// https://generativelanguage.googleapis.com/v1beta endpoint.
	BaseURL string

	// DefaultModel, HighModel, SmallModel back message.ModelClass
	// resolution when a Request leaves Model empty.
	DefaultModel string
	HighModel    string
	SmallModel   string

	// SafetySettings overrides the default safety policy applied to every
	// request. registry.GeminiSafetySettings() is used when nil.
	SafetySettings []*genai.SafetySetting

	// HTTPClient is the collaborator used to send requests. http.DefaultClient
	// is used when nil.
	HTTPClient transport.HTTPClient

	// Logger receives request-lifecycle diagnostics. A no-op logger is used
	// when nil.
	Logger telemetry.Logger
}

// Client implements capability.Client and capability.StreamingClient for
// the Gemini generateContent REST API.
type Client struct {
	httpClient transport.HTTPClient
	apiKey     string
	baseURL    string
	logger     telemetry.Logger
	safety     []wireSafety

	defaultModel string
	highModel    string
	smallModel   string
}

// NewClient constructs a Client from opts. DefaultModel should be provided;
// High/Small are optional.
func NewClient(opts Options) *Client {
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	logger := opts.Logger
	if logger == nil {
		logger = telemetry.NewNoopLogger()
	}
	baseURL := opts.BaseURL
	if baseURL == "" {
		baseURL = "https://generativelanguage.googleapis.com/v1beta"
	}
	safety := opts.SafetySettings
	if safety == nil {
		safety = defaultSafetySettings()
	}
	return &Client{
		httpClient:   httpClient,
		apiKey:       opts.APIKey,
		baseURL:      baseURL,
		logger:       logger,
		safety:       wireSafetySettings(safety),
		defaultModel: opts.DefaultModel,
		highModel:    opts.HighModel,
		smallModel:   opts.SmallModel,
	}
}

// Name returns "gemini".
func (c *Client) Name() string { return "gemini" }

func (c *Client) resolveModelID(req *message.Request) string {
	if req.Model != "" {
		return req.Model
	}
	switch req.ModelClass {
	case message.ModelClassHighReasoning:
		if c.highModel != "" {
			return c.highModel
		}
	case message.ModelClassSmall:
		if c.smallModel != "" {
			return c.smallModel
		}
	}
	return c.defaultModel
}

func toolMapping(tools []message.Tool, providerTools []message.ProviderTool) (*toolname.Mapping, error) {
	if len(tools) == 0 {
		return nil, nil
	}
	names := make([]string, len(tools))
	for i, t := range tools {
		names[i] = t.Name
	}
	return toolname.NewMapping(names, nil, message.ReservedToolNames(providerTools))
}

// Complete sends a non-stream generateContent request.
func (c *Client) Complete(ctx context.Context, req *message.Request) (*message.Response, error) {
	model := c.resolveModelID(req)
	tm, err := toolMapping(req.Tools, req.ProviderTools)
	if err != nil {
		return nil, err
	}
	wireReq, err := buildRequest(req, tm, c.safety)
	if err != nil {
		return nil, err
	}

	body, err := json.Marshal(wireReq)
	if err != nil {
		return nil, llmerr.New("gemini", llmerr.KindInvalidRequest, err).WithMessage("failed to encode request")
	}

	url := fmt.Sprintf("%s/models/%s:generateContent", c.baseURL, model)
	httpReq, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, llmerr.New("gemini", llmerr.KindInvalidRequest, err).WithMessage("failed to build request")
	}

	resp, err := transport.Do(ctx, c.httpClient, httpReq,
		transport.WithHeader("x-goog-api-key", c.apiKey),
		transport.WithHeader("Content-Type", "application/json"))
	if err != nil {
		return nil, classifyTransportError(ctx, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, llmerr.New("gemini", llmerr.KindHTTP, err).WithMessage("failed to read response body")
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, mapHTTPError(resp.StatusCode, respBody)
	}

	var genResp generateContentResponse
	if err := json.Unmarshal(respBody, &genResp); err != nil {
		return nil, llmerr.New("gemini", llmerr.KindResponseFormat, err).WithMessage("failed to decode response")
	}
	return translateResponse(genResp, tm), nil
}

// Stream sends a streamGenerateContent request (SSE framed via alt=sse) and
// returns a Streamer that emits one StreamEvent per part.
func (c *Client) Stream(ctx context.Context, req *message.Request) (capability.Streamer, error) {
	model := c.resolveModelID(req)
	tm, err := toolMapping(req.Tools, req.ProviderTools)
	if err != nil {
		return nil, err
	}
	wireReq, err := buildRequest(req, tm, c.safety)
	if err != nil {
		return nil, err
	}

	body, err := json.Marshal(wireReq)
	if err != nil {
		return nil, llmerr.New("gemini", llmerr.KindInvalidRequest, err).WithMessage("failed to encode request")
	}

	url := fmt.Sprintf("%s/models/%s:streamGenerateContent?alt=sse", c.baseURL, model)
	httpReq, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, llmerr.New("gemini", llmerr.KindInvalidRequest, err).WithMessage("failed to build request")
	}

	resp, err := transport.Do(ctx, c.httpClient, httpReq,
		transport.WithHeader("x-goog-api-key", c.apiKey),
		transport.WithHeader("Content-Type", "application/json"),
		transport.WithHeader("Accept", "text/event-stream"))
	if err != nil {
		return nil, classifyTransportError(ctx, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		defer resp.Body.Close()
		respBody, _ := io.ReadAll(resp.Body)
		return nil, mapHTTPError(resp.StatusCode, respBody)
	}

	return newStreamer(ctx, resp.Body, tm, c.logger), nil
}

func defaultSafetySettings() []*genai.SafetySetting {
	return registry.GeminiSafetySettings()
}

func classifyTransportError(ctx context.Context, err error) error {
	if ctx.Err() != nil {
		return llmerr.New("gemini", llmerr.KindCancelled, ctx.Err()).WithMessage("request cancelled")
	}
	return llmerr.New("gemini", llmerr.KindTimeout, err).WithMessage(fmt.Sprintf("transport error: %v", err))
}
