package compat

import (
	"context"

	"github.com/polyprompt/polyprompt/capability"
	"github.com/polyprompt/polyprompt/llmerr"
	"github.com/polyprompt/polyprompt/message"
	"github.com/polyprompt/polyprompt/provider/openai"
	"github.com/polyprompt/polyprompt/telemetry"
	"github.com/polyprompt/polyprompt/transport"
)

// Options configures a Client. It mirrors provider/openai.Options; BaseURL
// is optional and overrides the vendor's default endpoint (used for
// self-hosted OpenRouter-compatible gateways, for example).
type Options struct {
	APIKey       string
	BaseURL      string
	DefaultModel string
	HighModel    string
	SmallModel   string
	HTTPClient   transport.HTTPClient
	Logger       telemetry.Logger
}

// Client implements capability.Client and capability.StreamingClient by
// delegating to an inner provider/openai.Client configured with the
// vendor's endpoint, then relabeling the provider identity on responses,
// errors, and stream metadata from "openai" to the vendor's own id.
type Client struct {
	inner  *openai.Client
	vendor vendorConfig
}

func newClient(vendor vendorConfig, opts Options) *Client {
	baseURL := opts.BaseURL
	if baseURL == "" {
		baseURL = vendor.defaultBaseURL
	}
	inner := openai.NewClient(openai.Options{
		APIKey:       opts.APIKey,
		BaseURL:      baseURL,
		DefaultModel: opts.DefaultModel,
		HighModel:    opts.HighModel,
		SmallModel:   opts.SmallModel,
		HTTPClient:   opts.HTTPClient,
		Logger:       opts.Logger,
	})
	return &Client{inner: inner, vendor: vendor}
}

// Name returns the vendor's provider id (for example, "deepseek"), not
// "openai".
func (c *Client) Name() string { return c.vendor.providerID }

// Complete sends a non-stream chat completion request through the inner
// OpenAI client. When the vendor ignores tool definitions, Config.Tools is
// stripped before sending and a warning is recorded in the response's
// provider metadata instead of silently dropping them.
func (c *Client) Complete(ctx context.Context, req *message.Request) (*message.Response, error) {
	req, warned := c.stripUnsupportedTools(req)
	resp, err := c.inner.Complete(ctx, req)
	if err != nil {
		return nil, c.relabelError(err)
	}
	c.relabelMetadata(resp, warned)
	return resp, nil
}

// Stream sends a streaming chat completion request through the inner
// OpenAI client and wraps the returned Streamer so its Metadata() also
// carries the tools-ignored warning when tools were stripped. The wrapped
// Metadata() carries no vendor provider identity.
func (c *Client) Stream(ctx context.Context, req *message.Request) (capability.Streamer, error) {
	req, warned := c.stripUnsupportedTools(req)
	stream, err := c.inner.Stream(ctx, req)
	if err != nil {
		return nil, c.relabelError(err)
	}
	return &streamWrapper{inner: stream, vendor: c.vendor, warned: warned}, nil
}

// stripUnsupportedTools returns req unchanged unless the vendor ignores
// tools and req carries some; in that case it returns a shallow copy with
// Tools/ToolChoice cleared and warned=true.
func (c *Client) stripUnsupportedTools(req *message.Request) (out *message.Request, warned bool) {
	if !c.vendor.ignoresTools || len(req.Tools) == 0 {
		return req, false
	}
	clone := *req
	clone.Tools = nil
	clone.ToolChoice = nil
	return &clone, true
}

func (c *Client) relabelError(err error) error {
	if e, ok := llmerr.As(err); ok {
		e.Provider = c.vendor.providerID
		return e
	}
	return err
}

// relabelMetadata rekeys resp.ProviderMetadata from provider/openai's
// "openai" base key to the vendor's providerID, and duplicates that payload
// under the vendor's capability alias key, per spec.md's double-keyed
// ProviderMetadata convention (a base key plus a capability alias carrying
// an identical payload).
func (c *Client) relabelMetadata(resp *message.Response, warned bool) {
	payload, ok := resp.ProviderMetadata["openai"]
	if !ok {
		payload = map[string]any{}
	}
	delete(resp.ProviderMetadata, "openai")
	if resp.ProviderMetadata == nil {
		resp.ProviderMetadata = make(map[string]map[string]any)
	}
	if warned {
		payload = withToolsIgnoredWarning(payload)
	}
	resp.ProviderMetadata[c.vendor.providerID] = payload
	resp.ProviderMetadata[c.vendor.capabilityAlias] = payload
}

func withToolsIgnoredWarning(payload map[string]any) map[string]any {
	out := make(map[string]any, len(payload)+1)
	for k, v := range payload {
		out[k] = v
	}
	out["warnings"] = []map[string]any{{
		"code":    "tools_ignored",
		"message": "this provider does not support tool calling; Config.Tools was dropped from the request",
	}}
	return out
}
