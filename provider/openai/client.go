package openai

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

// Options configures a Client.
type Options struct {
	// APIKey authenticates requests via the Authorization: Bearer header.
	APIKey string

	// BaseURL overrides the default https://api.openai.com/v1 endpoint, used
	// by OpenAI-compatible derivatives wired in provider/compat.
	BaseURL string

	// DefaultModel, HighModel, SmallModel back message.ModelClass
	// resolution when a Request leaves Model empty.
	DefaultModel string
	HighModel    string
	SmallModel   string

	// HTTPClient is the collaborator used to send requests. http.DefaultClient
	// is used when nil.
	HTTPClient transport.HTTPClient

	// Logger receives request-lifecycle diagnostics. A no-op logger is used
	// when nil.
	Logger telemetry.Logger
}

// Client implements capability.Client and capability.StreamingClient for
// OpenAI Chat Completions.
type Client struct {
	httpClient transport.HTTPClient
	apiKey     string
	baseURL    string
	logger     telemetry.Logger

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
		baseURL = "https://api.openai.com/v1"
	}
	return &Client{
		httpClient:   httpClient,
		apiKey:       opts.APIKey,
		baseURL:      baseURL,
		logger:       logger,
		defaultModel: opts.DefaultModel,
		highModel:    opts.HighModel,
		smallModel:   opts.SmallModel,
	}
}

// Name returns "openai".
func (c *Client) Name() string { return "openai" }

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

func toolMapping(tools []message.Tool) (*toolname.Mapping, error) {
	if len(tools) == 0 {
		return nil, nil
	}
	names := make([]string, len(tools))
	for i, t := range tools {
		names[i] = t.Name
	}
	return toolname.NewMapping(names, nil, nil)
}

// Complete sends a non-stream chat completion request.
func (c *Client) Complete(ctx context.Context, req *message.Request) (*message.Response, error) {
	model := c.resolveModelID(req)
	tm, err := toolMapping(req.Tools)
	if err != nil {
		return nil, err
	}
	wireReq, err := buildRequest(req, tm, model, false)
	if err != nil {
		return nil, err
	}

	body, err := json.Marshal(wireReq)
	if err != nil {
		return nil, llmerr.New("openai", llmerr.KindInvalidRequest, err).WithMessage("failed to encode request")
	}

	httpReq, err := http.NewRequest(http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, llmerr.New("openai", llmerr.KindInvalidRequest, err).WithMessage("failed to build request")
	}

	resp, err := transport.Do(ctx, c.httpClient, httpReq,
		transport.WithHeader("Authorization", "Bearer "+c.apiKey),
		transport.WithHeader("Content-Type", "application/json"))
	if err != nil {
		return nil, classifyTransportError(ctx, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, llmerr.New("openai", llmerr.KindHTTP, err).WithMessage("failed to read response body")
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, mapHTTPError(resp.StatusCode, respBody)
	}

	var chatResp chatResponse
	if err := json.Unmarshal(respBody, &chatResp); err != nil {
		return nil, llmerr.New("openai", llmerr.KindResponseFormat, err).WithMessage("failed to decode response")
	}
	return translateResponse(chatResp, tm), nil
}

// Stream sends a streaming chat completion request and returns a Streamer
// that reassembles tool-call deltas by index.
func (c *Client) Stream(ctx context.Context, req *message.Request) (capability.Streamer, error) {
	model := c.resolveModelID(req)
	tm, err := toolMapping(req.Tools)
	if err != nil {
		return nil, err
	}
	wireReq, err := buildRequest(req, tm, model, true)
	if err != nil {
		return nil, err
	}

	body, err := json.Marshal(wireReq)
	if err != nil {
		return nil, llmerr.New("openai", llmerr.KindInvalidRequest, err).WithMessage("failed to encode request")
	}

	httpReq, err := http.NewRequest(http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, llmerr.New("openai", llmerr.KindInvalidRequest, err).WithMessage("failed to build request")
	}

	resp, err := transport.Do(ctx, c.httpClient, httpReq,
		transport.WithHeader("Authorization", "Bearer "+c.apiKey),
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

func classifyTransportError(ctx context.Context, err error) error {
	if ctx.Err() != nil {
		return llmerr.New("openai", llmerr.KindCancelled, ctx.Err()).WithMessage("request cancelled")
	}
	return llmerr.New("openai", llmerr.KindTimeout, err).WithMessage(fmt.Sprintf("transport error: %v", err))
}
