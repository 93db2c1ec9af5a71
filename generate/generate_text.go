package generate

import (
	"context"
	"strings"

	"github.com/polyprompt/polyprompt/capability"
	"github.com/polyprompt/polyprompt/llmerr"
	"github.com/polyprompt/polyprompt/message"
)

// TextInput bundles the four input shapes GenerateText and StreamText
// accept. Resolution follows a fixed precedence: PromptMessages, when
// non-empty, wins outright; otherwise StructuredPrompt wins if set;
// otherwise Messages wins if non-empty; otherwise Prompt is used. At least
// one must be populated.
type TextInput struct {
	// PromptMessages is a full ordered prompt-IR transcript, used verbatim.
	PromptMessages []message.Message

	// StructuredPrompt is a single structured turn — typed parts with no
	// prior history — wrapped into a one-message transcript.
	StructuredPrompt *message.Message

	// Messages is the legacy flattened bridge, reconstructed into prompt IR
	// via message.FromChatMessages.
	Messages []message.ChatMessage

	// Prompt is a plain-text user turn, the lowest-precedence input.
	Prompt string

	// Prune optionally strips reasoning and/or dangling tool-call parts from
	// the resolved transcript before dispatch. The zero value prunes
	// nothing.
	Prune message.PruneOptions
}

// TextResult is the normalized output of GenerateText.
type TextResult struct {
	// Text is the concatenation of every TextPart in the response.
	Text string

	// ReasoningText is the concatenation of every ThinkingPart in the
	// response, when the provider surfaced any.
	ReasoningText string

	// ToolCalls lists tool invocations requested by the model.
	ToolCalls []message.ToolCall

	// Usage reports token consumption for the call.
	Usage message.Usage

	// StopReason records why generation stopped.
	StopReason string

	// ProviderMetadata carries provider-specific response metadata.
	ProviderMetadata map[string]map[string]any
}

// GenerateText resolves in to a prompt-IR transcript, prunes it per
// in.Prune, and dispatches a single non-streaming call through client.
func GenerateText(ctx context.Context, client capability.Client, in TextInput, cfg message.Config) (*TextResult, error) {
	msgs, err := resolveTextInput(client.Name(), in)
	if err != nil {
		return nil, err
	}
	resp, err := client.Complete(ctx, &message.Request{Messages: msgs, Config: cfg})
	if err != nil {
		return nil, err
	}
	return &TextResult{
		Text:             textOf(resp.Content),
		ReasoningText:    reasoningOf(resp.Content),
		ToolCalls:        resp.ToolCalls,
		Usage:            resp.Usage,
		StopReason:       resp.StopReason,
		ProviderMetadata: resp.ProviderMetadata,
	}, nil
}

// StreamText resolves in the same way GenerateText does and dispatches a
// streaming call, returning the normalized event sequence for the caller to
// consume directly via capability.Drain or a manual Recv loop.
func StreamText(ctx context.Context, client capability.StreamingClient, in TextInput, cfg message.Config) (capability.Streamer, error) {
	msgs, err := resolveTextInput(client.Name(), in)
	if err != nil {
		return nil, err
	}
	return client.Stream(ctx, &message.Request{Messages: msgs, Config: cfg})
}

func resolveTextInput(provider string, in TextInput) ([]message.Message, error) {
	var msgs []message.Message
	switch {
	case len(in.PromptMessages) > 0:
		msgs = in.PromptMessages
	case in.StructuredPrompt != nil:
		msgs = []message.Message{*in.StructuredPrompt}
	case len(in.Messages) > 0:
		msgs = message.FromChatMessages(in.Messages)
	case in.Prompt != "":
		msgs = []message.Message{message.Text(message.RoleUser, in.Prompt)}
	default:
		return nil, llmerr.New(provider, llmerr.KindInvalidRequest, nil).
			WithMessage("generateText requires one of promptMessages, structuredPrompt, messages, or prompt")
	}
	return message.Prune(msgs, in.Prune), nil
}

func reasoningOf(messages []message.Message) string {
	var buf strings.Builder
	for _, m := range messages {
		for _, p := range m.Parts {
			if t, ok := p.(message.ThinkingPart); ok {
				buf.WriteString(t.Text)
			}
		}
	}
	return buf.String()
}
