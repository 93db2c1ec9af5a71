package openairesponses

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"

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

	// BaseURL overrides the default https://api.openai.com/v1 endpoint.
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

// Client implements capability.Client and capability.StreamingClient for the
// OpenAI Responses API, plus the response lifecycle operations the
// Completions API has no equivalent of (Get, Delete, Cancel,
// ListInputItems).
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

// Name returns "openai-responses".
func (c *Client) Name() string { return "openai-responses" }

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

func (c *Client) authHeaders() []transport.RequestOption {
	return []transport.RequestOption{
		transport.WithHeader("Authorization", "Bearer "+c.apiKey),
		transport.WithHeader("Content-Type", "application/json"),
	}
}

// Complete sends a non-stream Responses API request.
func (c *Client) Complete(ctx context.Context, req *message.Request) (*message.Response, error) {
	model := c.resolveModelID(req)
	tm, err := toolMapping(req.Tools, req.ProviderTools)
	if err != nil {
		return nil, err
	}
	wireReq, err := buildRequest(req, tm, model, false)
	if err != nil {
		return nil, err
	}

	respBody, status, err := c.doJSON(ctx, http.MethodPost, c.baseURL+"/responses", wireReq)
	if err != nil {
		return nil, err
	}
	if status < 200 || status >= 300 {
		return nil, mapHTTPError(status, respBody)
	}

	var resp responsesResponse
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return nil, llmerr.New("openai-responses", llmerr.KindResponseFormat, err).WithMessage("failed to decode response")
	}
	return translateResponse(resp, tm), nil
}

// Stream sends a streaming Responses API request and returns a Streamer that
// reassembles the event-typed SSE state machine into normalized deltas.
func (c *Client) Stream(ctx context.Context, req *message.Request) (capability.Streamer, error) {
	model := c.resolveModelID(req)
	tm, err := toolMapping(req.Tools, req.ProviderTools)
	if err != nil {
		return nil, err
	}
	wireReq, err := buildRequest(req, tm, model, true)
	if err != nil {
		return nil, err
	}

	body, err := json.Marshal(wireReq)
	if err != nil {
		return nil, llmerr.New("openai-responses", llmerr.KindInvalidRequest, err).WithMessage("failed to encode request")
	}

	httpReq, err := http.NewRequest(http.MethodPost, c.baseURL+"/responses", bytes.NewReader(body))
	if err != nil {
		return nil, llmerr.New("openai-responses", llmerr.KindInvalidRequest, err).WithMessage("failed to build request")
	}

	opts := append(c.authHeaders(), transport.WithHeader("Accept", "text/event-stream"))
	resp, err := transport.Do(ctx, c.httpClient, httpReq, opts...)
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

// Get retrieves a previously created response by id.
func (c *Client) Get(ctx context.Context, id string) (*message.Response, error) {
	respBody, status, err := c.doJSON(ctx, http.MethodGet, c.baseURL+"/responses/"+url.PathEscape(id), nil)
	if err != nil {
		return nil, err
	}
	if status < 200 || status >= 300 {
		return nil, mapHTTPError(status, respBody)
	}
	var resp responsesResponse
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return nil, llmerr.New("openai-responses", llmerr.KindResponseFormat, err).WithMessage("failed to decode response")
	}
	return translateResponse(resp, nil), nil
}

// Delete removes a previously created response by id.
func (c *Client) Delete(ctx context.Context, id string) error {
	respBody, status, err := c.doJSON(ctx, http.MethodDelete, c.baseURL+"/responses/"+url.PathEscape(id), nil)
	if err != nil {
		return err
	}
	if status < 200 || status >= 300 {
		return mapHTTPError(status, respBody)
	}
	return nil
}

// Cancel requests cancellation of an in-flight background response.
func (c *Client) Cancel(ctx context.Context, id string) (*message.Response, error) {
	respBody, status, err := c.doJSON(ctx, http.MethodPost, c.baseURL+"/responses/"+url.PathEscape(id)+"/cancel", nil)
	if err != nil {
		return nil, err
	}
	if status < 200 || status >= 300 {
		return nil, mapHTTPError(status, respBody)
	}
	var resp responsesResponse
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return nil, llmerr.New("openai-responses", llmerr.KindResponseFormat, err).WithMessage("failed to decode response")
	}
	return translateResponse(resp, nil), nil
}

// ListInputItemsOptions configures ListInputItems's query parameters.
type ListInputItemsOptions struct {
	Limit   int
	Order   string
	After   string
	Before  string
	Include []string
}

// InputItem is one page entry returned by ListInputItems, exposed as raw
// JSON since its shape mirrors a Responses API output item without further
// interpretation by this package.
type InputItem struct {
	Raw json.RawMessage
}

// InputItemsPage is one page of ListInputItems results.
type InputItemsPage struct {
	Items   []InputItem
	HasMore bool
	FirstID string
	LastID  string
}

// ListInputItems lists the input items that produced the response
// identified by id, per GET {baseURL}/responses/{id}/input_items.
func (c *Client) ListInputItems(ctx context.Context, id string, opts ListInputItemsOptions) (*InputItemsPage, error) {
	q := url.Values{}
	if opts.Limit > 0 {
		q.Set("limit", strconv.Itoa(opts.Limit))
	}
	if opts.Order != "" {
		q.Set("order", opts.Order)
	}
	if opts.After != "" {
		q.Set("after", opts.After)
	}
	if opts.Before != "" {
		q.Set("before", opts.Before)
	}
	for _, inc := range opts.Include {
		q.Add("include", inc)
	}

	endpoint := c.baseURL + "/responses/" + url.PathEscape(id) + "/input_items"
	if encoded := q.Encode(); encoded != "" {
		endpoint += "?" + encoded
	}

	respBody, status, err := c.doJSON(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	if status < 200 || status >= 300 {
		return nil, mapHTTPError(status, respBody)
	}

	var page inputItemsPage
	if err := json.Unmarshal(respBody, &page); err != nil {
		return nil, llmerr.New("openai-responses", llmerr.KindResponseFormat, err).WithMessage("failed to decode input items page")
	}
	items := make([]InputItem, len(page.Data))
	for i, d := range page.Data {
		items[i] = InputItem{Raw: d.raw}
	}
	return &InputItemsPage{Items: items, HasMore: page.HasMore, FirstID: page.FirstID, LastID: page.LastID}, nil
}

// doJSON sends a request with an optional JSON body and returns the response
// body bytes and status code, leaving status-based classification to the
// caller (mirrors each lifecycle method's own error-mapping needs).
func (c *Client) doJSON(ctx context.Context, method, endpoint string, payload any) ([]byte, int, error) {
	var reader io.Reader
	if payload != nil {
		body, err := json.Marshal(payload)
		if err != nil {
			return nil, 0, llmerr.New("openai-responses", llmerr.KindInvalidRequest, err).WithMessage("failed to encode request")
		}
		reader = bytes.NewReader(body)
	}

	httpReq, err := http.NewRequest(method, endpoint, reader)
	if err != nil {
		return nil, 0, llmerr.New("openai-responses", llmerr.KindInvalidRequest, err).WithMessage("failed to build request")
	}

	resp, err := transport.Do(ctx, c.httpClient, httpReq, c.authHeaders()...)
	if err != nil {
		return nil, 0, classifyTransportError(ctx, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, 0, llmerr.New("openai-responses", llmerr.KindHTTP, err).WithMessage("failed to read response body")
	}
	return respBody, resp.StatusCode, nil
}

func classifyTransportError(ctx context.Context, err error) error {
	if ctx.Err() != nil {
		return llmerr.New("openai-responses", llmerr.KindCancelled, ctx.Err()).WithMessage("request cancelled")
	}
	return llmerr.New("openai-responses", llmerr.KindTimeout, err).WithMessage(fmt.Sprintf("transport error: %v", err))
}
