package ollama

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

// RuntimeOptions mirrors Ollama's model/runtime tuning knobs. These are
// configured once per Client rather than per request: they describe how
// the local model is loaded and executed, not the shape of a single
// prompt.
type RuntimeOptions struct {
	NumCtx    int
	NumGPU    int
	NumThread int
	NumBatch  int
	NUMA      bool
}

// Options configures a Client.
type Options struct {
	// BaseURL overrides the default http://localhost:11434 endpoint.
	BaseURL string

	// DefaultModel, HighModel, SmallModel back message.ModelClass
	// resolution when a Request leaves Model empty.
	DefaultModel string
	HighModel    string
	SmallModel   string

	// Runtime configures num_ctx/num_gpu/num_thread/num_batch/numa applied
	// to every request.
	Runtime RuntimeOptions

	// KeepAlive controls how long Ollama keeps the model loaded after this
	// request (Ollama duration string, for example "5m" or "-1").
	KeepAlive string

	// Raw bypasses Ollama's prompt templating, sending content verbatim.
	Raw bool

	// HTTPClient is the collaborator used to send requests. http.DefaultClient
	// is used when nil.
	HTTPClient transport.HTTPClient

	// Logger receives request-lifecycle diagnostics. A no-op logger is used
	// when nil.
	Logger telemetry.Logger
}

// Client implements capability.Client and capability.StreamingClient for
// the Ollama native /api/chat protocol.
type Client struct {
	httpClient transport.HTTPClient
	baseURL    string
	logger     telemetry.Logger
	options    *wireOptions
	keepAlive  string
	raw        bool

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
		baseURL = "http://localhost:11434"
	}
	return &Client{
		httpClient:   httpClient,
		baseURL:      baseURL,
		logger:       logger,
		options:      runtimeWireOptions(opts.Runtime),
		keepAlive:    opts.KeepAlive,
		raw:          opts.Raw,
		defaultModel: opts.DefaultModel,
		highModel:    opts.HighModel,
		smallModel:   opts.SmallModel,
	}
}

func runtimeWireOptions(r RuntimeOptions) *wireOptions {
	if r == (RuntimeOptions{}) {
		return nil
	}
	return &wireOptions{
		NumCtx:    r.NumCtx,
		NumGPU:    r.NumGPU,
		NumThread: r.NumThread,
		NumBatch:  r.NumBatch,
		NUMA:      r.NUMA,
	}
}

// Name returns "ollama".
func (c *Client) Name() string { return "ollama" }

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

// Complete sends a non-stream /api/chat request.
func (c *Client) Complete(ctx context.Context, req *message.Request) (*message.Response, error) {
	model := c.resolveModelID(req)
	tm, err := toolMapping(req.Tools)
	if err != nil {
		return nil, err
	}
	wireReq, err := buildRequest(req, tm, model, c.options, c.keepAlive, c.raw, false)
	if err != nil {
		return nil, err
	}

	body, err := json.Marshal(wireReq)
	if err != nil {
		return nil, llmerr.New("ollama", llmerr.KindInvalidRequest, err).WithMessage("failed to encode request")
	}

	httpReq, err := http.NewRequest(http.MethodPost, c.baseURL+"/api/chat", bytes.NewReader(body))
	if err != nil {
		return nil, llmerr.New("ollama", llmerr.KindInvalidRequest, err).WithMessage("failed to build request")
	}

	resp, err := transport.Do(ctx, c.httpClient, httpReq, transport.WithHeader("Content-Type", "application/json"))
	if err != nil {
		return nil, classifyTransportError(ctx, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, llmerr.New("ollama", llmerr.KindHTTP, err).WithMessage("failed to read response body")
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, mapHTTPError(resp.StatusCode, respBody)
	}

	var chatResp chatResponse
	if err := json.Unmarshal(respBody, &chatResp); err != nil {
		return nil, llmerr.New("ollama", llmerr.KindResponseFormat, err).WithMessage("failed to decode response")
	}
	return translateResponse(chatResp, tm), nil
}

// Stream sends a streaming /api/chat request and returns a Streamer that
// parses the newline-delimited JSON response body.
func (c *Client) Stream(ctx context.Context, req *message.Request) (capability.Streamer, error) {
	model := c.resolveModelID(req)
	tm, err := toolMapping(req.Tools)
	if err != nil {
		return nil, err
	}
	wireReq, err := buildRequest(req, tm, model, c.options, c.keepAlive, c.raw, true)
	if err != nil {
		return nil, err
	}

	body, err := json.Marshal(wireReq)
	if err != nil {
		return nil, llmerr.New("ollama", llmerr.KindInvalidRequest, err).WithMessage("failed to encode request")
	}

	httpReq, err := http.NewRequest(http.MethodPost, c.baseURL+"/api/chat", bytes.NewReader(body))
	if err != nil {
		return nil, llmerr.New("ollama", llmerr.KindInvalidRequest, err).WithMessage("failed to build request")
	}

	resp, err := transport.Do(ctx, c.httpClient, httpReq, transport.WithHeader("Content-Type", "application/json"))
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
		return llmerr.New("ollama", llmerr.KindCancelled, ctx.Err()).WithMessage("request cancelled")
	}
	return llmerr.New("ollama", llmerr.KindTimeout, err).WithMessage(fmt.Sprintf("transport error: %v", err))
}
