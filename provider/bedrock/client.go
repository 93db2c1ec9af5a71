package bedrock

import (
	"context"
	"errors"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime/document"
	brtypes "github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"
	smithyhttp "github.com/aws/smithy-go/transport/http"

	"github.com/polyprompt/polyprompt/capability"
	"github.com/polyprompt/polyprompt/llmerr"
	"github.com/polyprompt/polyprompt/message"
	"github.com/polyprompt/polyprompt/telemetry"
)

const defaultThinkingBudget = 16384

// RuntimeClient is the subset of *bedrockruntime.Client this adapter calls,
// letting tests substitute a fake without standing up a real AWS session.
type RuntimeClient interface {
	Converse(ctx context.Context, params *bedrockruntime.ConverseInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.ConverseOutput, error)
	ConverseStream(ctx context.Context, params *bedrockruntime.ConverseStreamInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.ConverseStreamOutput, error)
}

// Options configures a Client.
type Options struct {
	// Runtime is the Bedrock runtime collaborator. Required; pass a
	// *bedrockruntime.Client built from an aws.Config in production, or a
	// fake RuntimeClient in tests.
	Runtime RuntimeClient

	// DefaultModel, HighModel, SmallModel back message.ModelClass
	// resolution when a Request leaves Model empty. DefaultModel is
	// required.
	DefaultModel string
	HighModel    string
	SmallModel   string

	// MaxTokens is the default completion cap used when a request does not
	// set Config.MaxTokens.
	MaxTokens int

	// Temperature is used when a request does not set Config.Temperature.
	Temperature float32

	// ThinkingBudget is the default extended-thinking token budget used
	// when a request enables thinking without an explicit BudgetTokens.
	// Defaults to 16384 when zero or negative.
	ThinkingBudget int

	// Logger receives request-lifecycle diagnostics. A no-op logger is
	// used when nil.
	Logger telemetry.Logger
}

// Client implements capability.Client, capability.StreamingClient, and
// capability.CachingClient on top of AWS Bedrock Converse/ConverseStream.
type Client struct {
	runtime RuntimeClient
	logger  telemetry.Logger

	defaultModel string
	highModel    string
	smallModel   string
	maxTokens    int
	temperature  float32
	thinkBudget  int
}

// NewClient constructs a Client from opts. Runtime and DefaultModel must be
// provided.
func NewClient(opts Options) (*Client, error) {
	if opts.Runtime == nil {
		return nil, errors.New("bedrock: runtime client is required")
	}
	if opts.DefaultModel == "" {
		return nil, errors.New("bedrock: default model identifier is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = telemetry.NewNoopLogger()
	}
	budget := opts.ThinkingBudget
	if budget <= 0 {
		budget = defaultThinkingBudget
	}
	return &Client{
		runtime:      opts.Runtime,
		logger:       logger,
		defaultModel: opts.DefaultModel,
		highModel:    opts.HighModel,
		smallModel:   opts.SmallModel,
		maxTokens:    opts.MaxTokens,
		temperature:  opts.Temperature,
		thinkBudget:  budget,
	}, nil
}

// Name returns "bedrock".
func (c *Client) Name() string { return "bedrock" }

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

// SupportsCacheCheckpoints reports whether model supports prompt-cache
// checkpoints. Every Bedrock model supports checkpoints in system/message
// content; Nova models are the one family that rejects a tool-level
// checkpoint (CachePolicy.AfterTools), which prepareRequest enforces ahead
// of encodeTools.
func (c *Client) SupportsCacheCheckpoints(model string) bool {
	return true
}

func (c *Client) effectiveMaxTokens(req *message.Request) int {
	if req.MaxTokens > 0 {
		return req.MaxTokens
	}
	return c.maxTokens
}

func (c *Client) effectiveTemperature(req *message.Request) float32 {
	if req.Temperature != 0 {
		return req.Temperature
	}
	return c.temperature
}

func (c *Client) inferenceConfig(req *message.Request) *brtypes.InferenceConfiguration {
	var cfg brtypes.InferenceConfiguration
	if tokens := c.effectiveMaxTokens(req); tokens > 0 {
		cfg.MaxTokens = aws.Int32(int32(tokens))
	}
	if t := c.effectiveTemperature(req); t > 0 {
		cfg.Temperature = aws.Float32(t)
	}
	if req.TopP != 0 {
		cfg.TopP = aws.Float32(req.TopP)
	}
	if cfg.MaxTokens == nil && cfg.Temperature == nil && cfg.TopP == nil {
		return nil
	}
	return &cfg
}

func (c *Client) prepareRequest(req *message.Request) (*requestParts, error) {
	modelID := c.resolveModelID(req)
	if modelID == "" {
		return nil, llmerr.New("bedrock", llmerr.KindInvalidRequest, nil).WithMessage("model identifier is required")
	}

	var cacheAfterSystem, cacheAfterTools bool
	if req.Cache != nil {
		cacheAfterSystem = req.Cache.AfterSystem
		cacheAfterTools = req.Cache.AfterTools
	}
	if cacheAfterTools && isNovaModel(modelID) {
		return nil, llmerr.New("bedrock", llmerr.KindInvalidRequest, nil).
			WithMessage("Cache.AfterTools is not supported for Nova models")
	}

	tm, err := toolMapping(req.Tools)
	if err != nil {
		return nil, err
	}
	toolConfig, err := encodeTools(req.Tools, req.ToolChoice, tm, cacheAfterTools)
	if err != nil {
		return nil, err
	}
	if toolConfig == nil && messagesHaveToolBlocks(req.Messages) {
		return nil, llmerr.New("bedrock", llmerr.KindInvalidRequest, nil).
			WithMessage("messages contain tool_use/tool_result but no tools were provided in the request")
	}

	messages, system, err := encodeMessages(req.Messages, tm, cacheAfterSystem)
	if err != nil {
		return nil, err
	}
	return &requestParts{modelID: modelID, messages: messages, system: system, toolConfig: toolConfig, tm: tm}, nil
}

func (c *Client) buildConverseInput(parts *requestParts, req *message.Request) *bedrockruntime.ConverseInput {
	input := &bedrockruntime.ConverseInput{ModelId: aws.String(parts.modelID), Messages: parts.messages}
	if len(parts.system) > 0 {
		input.System = parts.system
	}
	if parts.toolConfig != nil {
		input.ToolConfig = parts.toolConfig
	}
	if cfg := c.inferenceConfig(req); cfg != nil {
		input.InferenceConfig = cfg
	}
	return input
}

func (c *Client) buildConverseStreamInput(parts *requestParts, req *message.Request, thinking thinkingConfig) *bedrockruntime.ConverseStreamInput {
	input := &bedrockruntime.ConverseStreamInput{ModelId: aws.String(parts.modelID), Messages: parts.messages}
	if len(parts.system) > 0 {
		input.System = parts.system
	}
	if parts.toolConfig != nil {
		input.ToolConfig = parts.toolConfig
	}
	if thinking.enable {
		fields := additionalFieldsForThinking(thinking)
		input.AdditionalModelRequestFields = document.NewLazyDocument(&fields)
	}
	if cfg := c.inferenceConfig(req); cfg != nil {
		input.InferenceConfig = cfg
	}
	return input
}

func additionalFieldsForThinking(thinking thinkingConfig) map[string]any {
	thinkingCfg := map[string]any{"type": "enabled"}
	if thinking.budget > 0 {
		thinkingCfg["budget_tokens"] = thinking.budget
	}
	fields := map[string]any{"thinking": thinkingCfg}
	if thinking.interleaved {
		fields["anthropic_beta"] = []string{"interleaved-thinking-2025-05-14"}
	}
	return fields
}

func streamOptions(thinking thinkingConfig) []func(*bedrockruntime.Options) {
	if !thinking.enable || !thinking.interleaved {
		return nil
	}
	return []func(*bedrockruntime.Options){
		bedrockruntime.WithAPIOptions(
			smithyhttp.AddHeaderValue("x-amzn-bedrock-beta", "interleaved-thinking-2025-05-14"),
		),
	}
}

// Complete issues a non-streaming Converse request.
func (c *Client) Complete(ctx context.Context, req *message.Request) (*message.Response, error) {
	parts, err := c.prepareRequest(req)
	if err != nil {
		return nil, err
	}
	output, err := c.runtime.Converse(ctx, c.buildConverseInput(parts, req))
	if err != nil {
		return nil, classifyError(ctx, err)
	}
	return translateResponse(output, parts.tm), nil
}

// Stream issues a ConverseStream request and returns a Streamer that
// reassembles content-block deltas into finalized text, thinking, and tool
// call events.
func (c *Client) Stream(ctx context.Context, req *message.Request) (capability.Streamer, error) {
	parts, err := c.prepareRequest(req)
	if err != nil {
		return nil, err
	}
	thinking := resolveThinking(req, parts.toolConfig, c.thinkBudget)
	input := c.buildConverseStreamInput(parts, req, thinking)
	output, err := c.runtime.ConverseStream(ctx, input, streamOptions(thinking)...)
	if err != nil {
		return nil, classifyError(ctx, err)
	}
	stream := output.GetStream()
	if stream == nil {
		return nil, llmerr.New("bedrock", llmerr.KindProvider, nil).WithMessage("stream output missing event stream")
	}
	return newStreamer(ctx, stream, parts.tm), nil
}
