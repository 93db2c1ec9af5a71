package openai

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"io"
	"strings"
	"sync"

	"github.com/polyprompt/polyprompt/llmerr"
	"github.com/polyprompt/polyprompt/message"
	"github.com/polyprompt/polyprompt/telemetry"
	"github.com/polyprompt/polyprompt/toolname"
)

// streamer adapts an OpenAI Chat Completions SSE body to capability.Streamer.
// A single background goroutine reads the wire and fans normalized events
// into a buffered channel; Recv selects on that channel and on ctx.Done so
// cancelling the caller's context interrupts a blocked Recv even if the
// transport itself ignores cancellation.
type streamer struct {
	ctx    context.Context
	cancel context.CancelFunc
	body   io.ReadCloser

	events chan message.StreamEvent

	reasoning contentReasoningSplitter

	mu       sync.Mutex
	finalErr error

	metaMu   sync.RWMutex
	metadata map[string]any
}

func newStreamer(ctx context.Context, body io.ReadCloser, tm *toolname.Mapping, logger telemetry.Logger) *streamer {
	cctx, cancel := context.WithCancel(ctx)
	s := &streamer{
		ctx:      cctx,
		cancel:   cancel,
		body:     body,
		events:   make(chan message.StreamEvent, 32),
		metadata: make(map[string]any),
	}
	go s.run(tm, logger)
	return s
}

func (s *streamer) Recv() (message.StreamEvent, error) {
	select {
	case ev, ok := <-s.events:
		if ok {
			return ev, nil
		}
		if err := s.err(); err != nil {
			return message.StreamEvent{}, err
		}
		return message.StreamEvent{}, io.EOF
	case <-s.ctx.Done():
		err := s.ctx.Err()
		if err == nil {
			err = context.Canceled
		}
		s.setErr(llmerr.New("openai", llmerr.KindCancelled, err).WithMessage("stream cancelled"))
		return message.StreamEvent{}, s.err()
	}
}

func (s *streamer) Close() error {
	s.cancel()
	return s.body.Close()
}

func (s *streamer) Metadata() map[string]any {
	s.metaMu.RLock()
	defer s.metaMu.RUnlock()
	out := make(map[string]any, len(s.metadata))
	for k, v := range s.metadata {
		out[k] = v
	}
	return out
}

func (s *streamer) err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.finalErr
}

func (s *streamer) setErr(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.finalErr == nil {
		s.finalErr = err
	}
}

type pendingToolCall struct {
	id      string
	name    string
	argsBuf strings.Builder
}

func (s *streamer) run(tm *toolname.Mapping, logger telemetry.Logger) {
	defer close(s.events)
	defer s.body.Close()

	pending := make(map[int]*pendingToolCall)
	var order []int
	var usage message.Usage
	var finishReason string

	scanner := bufio.NewScanner(s.body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() {
		select {
		case <-s.ctx.Done():
			return
		default:
		}

		line := strings.TrimSpace(scanner.Text())
		if line == "" || !strings.HasPrefix(line, "data:") {
			continue
		}
		payload := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		if payload == "[DONE]" {
			s.emitReasoningFlush()
			s.emitFinish(order, pending, usage, finishReason, tm)
			return
		}

		var chunk chatChunk
		if err := json.Unmarshal([]byte(payload), &chunk); err != nil {
			logger.Warn(s.ctx, "openai: failed to decode stream chunk", "error", err.Error())
			continue
		}
		if chunk.Usage != nil {
			usage = message.Usage{
				InputTokens:     chunk.Usage.PromptTokens,
				OutputTokens:    chunk.Usage.CompletionTokens,
				TotalTokens:     chunk.Usage.TotalTokens,
				CacheReadTokens: chunk.Usage.PromptTokensDetails.CachedTokens,
			}
		}
		if len(chunk.Choices) == 0 {
			continue
		}
		choice := chunk.Choices[0]
		delta := choice.Delta

		if reasoning := firstNonEmpty(delta.ReasoningContent, delta.Reasoning); reasoning != "" {
			s.events <- message.StreamEvent{Type: message.StreamEventThinking, ThinkingDelta: reasoning}
		} else if delta.Content != "" {
			// No dedicated reasoning field on this chunk: some
			// OpenAI-compatible deployments (DeepSeek-R1 served through a
			// plain chat endpoint) embed reasoning in content itself,
			// wrapped in <think>...</think> or terminated by a
			// "###Response" marker instead of a close tag.
			thinking, text := s.reasoning.feed(delta.Content)
			if thinking != "" {
				s.events <- message.StreamEvent{Type: message.StreamEventThinking, ThinkingDelta: thinking}
			}
			if text != "" {
				s.events <- message.StreamEvent{Type: message.StreamEventText, TextDelta: text}
			}
		}

		for _, tc := range delta.ToolCalls {
			idx := 0
			if tc.Index != nil {
				idx = *tc.Index
			}
			pc, exists := pending[idx]
			if !exists {
				pc = &pendingToolCall{}
				pending[idx] = pc
				order = append(order, idx)
			}
			if tc.ID != "" {
				pc.id = tc.ID
			}
			if tc.Function.Name != "" {
				pc.name = tc.Function.Name
			}
			if tc.Function.Arguments != "" {
				pc.argsBuf.WriteString(tc.Function.Arguments)
				name := pc.name
				if tm != nil {
					if canon, ok := tm.ToCanonical(name); ok {
						name = canon
					}
				}
				s.events <- message.StreamEvent{
					Type: message.StreamEventToolCallDelta,
					ToolCallDelta: &message.ToolCallDelta{
						ID:    pc.id,
						Name:  name,
						Delta: tc.Function.Arguments,
					},
				}
			}
		}

		if choice.FinishReason != "" {
			finishReason = choice.FinishReason
		}
	}

	if err := scanner.Err(); err != nil && !errors.Is(err, io.EOF) {
		s.setErr(llmerr.New("openai", llmerr.KindHTTP, err).WithMessage("stream read failed"))
		return
	}
	s.emitReasoningFlush()
	s.emitFinish(order, pending, usage, finishReason, tm)
}

// emitReasoningFlush drains any content the reasoning splitter is still
// holding back at end-of-stream, so a trailing partial marker prefix is
// never silently dropped.
func (s *streamer) emitReasoningFlush() {
	thinking, text := s.reasoning.flush()
	if thinking != "" {
		s.events <- message.StreamEvent{Type: message.StreamEventThinking, ThinkingDelta: thinking}
	}
	if text != "" {
		s.events <- message.StreamEvent{Type: message.StreamEventText, TextDelta: text}
	}
}

func (s *streamer) emitFinish(order []int, pending map[int]*pendingToolCall, usage message.Usage, finishReason string, tm *toolname.Mapping) {
	for _, idx := range order {
		pc := pending[idx]
		args := pc.argsBuf.String()
		if args == "" {
			args = "{}"
		}
		name := pc.name
		if tm != nil {
			if canon, ok := tm.ToCanonical(name); ok {
				name = canon
			}
		}
		select {
		case s.events <- message.StreamEvent{
			Type: message.StreamEventToolCall,
			ToolCall: &message.ToolCall{
				ID:    pc.id,
				Name:  name,
				Input: []byte(args),
			},
		}:
		case <-s.ctx.Done():
			return
		}
	}
	select {
	case s.events <- message.StreamEvent{
		Type:       message.StreamEventFinish,
		UsageDelta: &usage,
		StopReason: finishReason,
	}:
	case <-s.ctx.Done():
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
