package anthropic

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/polyprompt/polyprompt/capability"
	"github.com/polyprompt/polyprompt/llmerr"
	"github.com/polyprompt/polyprompt/message"
	"github.com/polyprompt/polyprompt/telemetry"
	"github.com/polyprompt/polyprompt/toolname"
	"github.com/polyprompt/polyprompt/transport"
)

const anthropicVersion = "2023-06-01"

// Options configures a Client.
type Options struct {
	// APIKey authenticates requests via the x-api-key header.
	APIKey string

	// BaseURL overrides the default https://api.anthropic.com/v1 endpoint.
	BaseURL string

	// DefaultModel, HighModel, SmallModel back message.ModelClass
	// resolution when a Request leaves Model empty.
	DefaultModel string
	HighModel    string
	SmallModel   string

	// MaxTokens is the default completion cap used when a request does not
	// set Config.MaxTokens. Anthropic requires max_tokens on every call.
	MaxTokens int

	// Temperature is used when a request does not set Config.Temperature.
	Temperature float64

	// HTTPClient is the collaborator used to send requests. http.DefaultClient
	// is used when nil.
	HTTPClient transport.HTTPClient

	// Logger receives request-lifecycle diagnostics. A no-op logger is used
	// when nil.
	Logger telemetry.Logger
}

// Client implements capability.Client and capability.StreamingClient for
// Anthropic Messages.
type Client struct {
	httpClient transport.HTTPClient
	apiKey     string
	baseURL    string
	logger     telemetry.Logger

	defaultModel string
	highModel    string
	smallModel   string
	maxTokens    int
	temperature  float64
}

// NewClient constructs a Client from opts. DefaultModel and MaxTokens
// should be provided; High/Small model and Temperature are optional.
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
		baseURL = "https://api.anthropic.com/v1"
	}
	return &Client{
		httpClient:   httpClient,
		apiKey:       opts.APIKey,
		baseURL:      baseURL,
		logger:       logger,
		defaultModel: opts.DefaultModel,
		highModel:    opts.HighModel,
		smallModel:   opts.SmallModel,
		maxTokens:    opts.MaxTokens,
		temperature:  opts.Temperature,
	}
}

// Name returns "anthropic".
func (c *Client) Name() string { return "anthropic" }

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

func (c *Client) effectiveMaxTokens(req *message.Request) int {
	if req.MaxTokens > 0 {
		return req.MaxTokens
	}
	return c.maxTokens
}

// toolMapping composes the collision-suffix mapping with Anthropic's
// [a-zA-Z0-9_-]{1,128} tool-name alphabet, matching the "two independent
// techniques" layering toolname documents.
func toolMapping(tools []message.Tool, providerTools []message.ProviderTool) (*toolname.Mapping, error) {
	if len(tools) == 0 {
		return nil, nil
	}
	names := make([]string, len(tools))
	for i, t := range tools {
		names[i] = t.Name
	}
	return toolname.NewMapping(names, func(s string) string { return toolname.Sanitize(s, 128) }, message.ReservedToolNames(providerTools))
}

func (c *Client) prepareRequest(req *message.Request, stream bool) (messagesRequest, *toolname.Mapping, error) {
	model := c.resolveModelID(req)
	if model == "" {
		return messagesRequest{}, nil, llmerr.New("anthropic", llmerr.KindInvalidRequest, nil).
			WithMessage("model identifier is required")
	}
	maxTokens := c.effectiveMaxTokens(req)
	if maxTokens <= 0 {
		return messagesRequest{}, nil, llmerr.New("anthropic", llmerr.KindInvalidRequest, nil).
			WithMessage("max_tokens must be positive")
	}
	tm, err := toolMapping(req.Tools, req.ProviderTools)
	if err != nil {
		return messagesRequest{}, nil, err
	}
	if req.Thinking != nil && req.Thinking.Enable && req.Thinking.BudgetTokens >= maxTokens {
		return messagesRequest{}, nil, llmerr.New("anthropic", llmerr.KindInvalidRequest, nil).
			WithMessage(fmt.Sprintf("thinking budget %d must be less than max_tokens %d", req.Thinking.BudgetTokens, maxTokens))
	}
	out, err := buildRequest(req, tm, model, maxTokens, stream)
	if err != nil {
		return messagesRequest{}, nil, err
	}
	if c.temperature > 0 && out.Temperature == nil {
		t := c.temperature
		out.Temperature = &t
	}
	return out, tm, nil
}

func (c *Client) newHTTPRequest(ctx context.Context, body []byte, stream bool, interleaved bool) (*http.Request, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/messages", bytes.NewReader(body))
	if err != nil {
		return nil, llmerr.New("anthropic", llmerr.KindInvalidRequest, err).WithMessage("failed to build request")
	}
	httpReq.Header.Set("x-api-key", c.apiKey)
	httpReq.Header.Set("anthropic-version", anthropicVersion)
	httpReq.Header.Set("content-type", "application/json")
	if stream {
		httpReq.Header.Set("accept", "text/event-stream")
	}
	if interleaved {
		httpReq.Header.Set("anthropic-beta", "interleaved-thinking-2025-05-14")
	}
	return httpReq, nil
}

// Complete issues a non-streaming Messages request.
func (c *Client) Complete(ctx context.Context, req *message.Request) (*message.Response, error) {
	wireReq, tm, err := c.prepareRequest(req, false)
	if err != nil {
		return nil, err
	}

	body, err := json.Marshal(wireReq)
	if err != nil {
		return nil, llmerr.New("anthropic", llmerr.KindInvalidRequest, err).WithMessage("failed to encode request")
	}
	httpReq, err := c.newHTTPRequest(ctx, body, false, interleaved(req))
	if err != nil {
		return nil, err
	}

	resp, err := transport.Do(ctx, c.httpClient, httpReq)
	if err != nil {
		return nil, classifyTransportError(ctx, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, llmerr.New("anthropic", llmerr.KindHTTP, err).WithMessage("failed to read response body")
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, mapHTTPError(resp.StatusCode, respBody)
	}

	var msgResp messagesResponse
	if err := json.Unmarshal(respBody, &msgResp); err != nil {
		return nil, llmerr.New("anthropic", llmerr.KindResponseFormat, err).WithMessage("failed to decode response")
	}
	return translateResponse(msgResp, tm), nil
}

// Stream issues a streaming Messages request and returns a Streamer that
// reassembles content-block deltas into finalized text, thinking, and tool
// call events.
func (c *Client) Stream(ctx context.Context, req *message.Request) (capability.Streamer, error) {
	wireReq, tm, err := c.prepareRequest(req, true)
	if err != nil {
		return nil, err
	}

	body, err := json.Marshal(wireReq)
	if err != nil {
		return nil, llmerr.New("anthropic", llmerr.KindInvalidRequest, err).WithMessage("failed to encode request")
	}
	httpReq, err := c.newHTTPRequest(ctx, body, true, interleaved(req))
	if err != nil {
		return nil, err
	}

	resp, err := transport.Do(ctx, c.httpClient, httpReq)
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

func interleaved(req *message.Request) bool {
	return req.Thinking != nil && req.Thinking.Enable && req.Thinking.Interleaved
}

func classifyTransportError(ctx context.Context, err error) error {
	if ctx.Err() != nil {
		return llmerr.New("anthropic", llmerr.KindCancelled, ctx.Err()).WithMessage("request cancelled")
	}
	return llmerr.New("anthropic", llmerr.KindTimeout, err).WithMessage(fmt.Sprintf("transport error: %v", err))
}
