package anthropic

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

// streamer adapts an Anthropic Messages SSE body to capability.Streamer. As
// in provider/openai, a single background goroutine reads the wire and fans
// normalized events into a buffered channel so Recv can select on both the
// channel and ctx.Done.
type streamer struct {
	ctx    context.Context
	cancel context.CancelFunc
	body   io.ReadCloser

	events chan message.StreamEvent

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
		s.setErr(llmerr.New("anthropic", llmerr.KindCancelled, err).WithMessage("stream cancelled"))
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

func (s *streamer) recordUsage(usage message.Usage) {
	s.metaMu.Lock()
	s.metadata["usage"] = usage
	s.metaMu.Unlock()
}

type toolBuffer struct {
	id   string
	name string
	args strings.Builder
}

type thinkingBuffer struct {
	text      strings.Builder
	signature string
}

// run scans the SSE body line by line, pairing each "event: <type>" line
// with the "data: <json>" line that follows it (Anthropic always emits
// both), and feeds the pair to the state machine below.
func (s *streamer) run(tm *toolname.Mapping, logger telemetry.Logger) {
	defer close(s.events)
	defer s.body.Close()

	toolBlocks := make(map[int]*toolBuffer)
	thinkingBlocks := make(map[int]*thinkingBuffer)
	var usage message.Usage
	var stopReason string

	scanner := bufio.NewScanner(s.body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var currentEvent string
	for scanner.Scan() {
		select {
		case <-s.ctx.Done():
			return
		default:
		}

		line := strings.TrimSpace(scanner.Text())
		switch {
		case line == "":
			continue
		case strings.HasPrefix(line, "event:"):
			currentEvent = strings.TrimSpace(strings.TrimPrefix(line, "event:"))
			continue
		case !strings.HasPrefix(line, "data:"):
			continue
		}

		payload := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		if payload == "[DONE]" {
			s.emitFinish(usage, stopReason)
			return
		}

		switch currentEvent {
		case "message_start":
			var ev messageStartEvent
			if err := json.Unmarshal([]byte(payload), &ev); err != nil {
				logger.Warn(s.ctx, "anthropic: failed to decode message_start", "error", err.Error())
				continue
			}
			usage = message.Usage{
				InputTokens:     ev.Message.Usage.InputTokens,
				CacheReadTokens: ev.Message.Usage.CacheReadInputTokens,
			}
		case "content_block_start":
			var ev contentBlockStartEvent
			if err := json.Unmarshal([]byte(payload), &ev); err != nil {
				logger.Warn(s.ctx, "anthropic: failed to decode content_block_start", "error", err.Error())
				continue
			}
			if ev.ContentBlock.Type == "tool_use" {
				name := ev.ContentBlock.Name
				if tm != nil {
					if canon, ok := tm.ToCanonical(name); ok {
						name = canon
					}
				}
				toolBlocks[ev.Index] = &toolBuffer{id: ev.ContentBlock.ID, name: name}
			}
		case "content_block_delta":
			var ev contentBlockDeltaEvent
			if err := json.Unmarshal([]byte(payload), &ev); err != nil {
				logger.Warn(s.ctx, "anthropic: failed to decode content_block_delta", "error", err.Error())
				continue
			}
			s.handleDelta(ev, toolBlocks, thinkingBlocks)
		case "content_block_stop":
			var ev contentBlockStopEvent
			if err := json.Unmarshal([]byte(payload), &ev); err != nil {
				logger.Warn(s.ctx, "anthropic: failed to decode content_block_stop", "error", err.Error())
				continue
			}
			if tb, ok := toolBlocks[ev.Index]; ok {
				delete(toolBlocks, ev.Index)
				args := tb.args.String()
				if strings.TrimSpace(args) == "" {
					args = "{}"
				}
				s.events <- message.StreamEvent{
					Type:     message.StreamEventToolCall,
					ToolCall: &message.ToolCall{ID: tb.id, Name: tb.name, Input: []byte(args)},
				}
			}
			delete(thinkingBlocks, ev.Index)
		case "message_delta":
			var ev messageDeltaEvent
			if err := json.Unmarshal([]byte(payload), &ev); err != nil {
				logger.Warn(s.ctx, "anthropic: failed to decode message_delta", "error", err.Error())
				continue
			}
			// pause_turn and tool_use are surfaced here like any other stop
			// reason; only message_stop below is treated as terminal.
			stopReason = ev.Delta.StopReason
			usage.OutputTokens = ev.Usage.OutputTokens
			if ev.Usage.InputTokens > 0 {
				usage.InputTokens = ev.Usage.InputTokens
			}
			usage.TotalTokens = usage.InputTokens + usage.OutputTokens
			if ev.Usage.CacheReadInputTokens > 0 {
				usage.CacheReadTokens = ev.Usage.CacheReadInputTokens
			}
			if ev.Usage.CacheCreationInputTokens > 0 {
				usage.CacheWriteTokens = ev.Usage.CacheCreationInputTokens
			}
			s.recordUsage(usage)
		case "message_stop":
			s.emitFinish(usage, stopReason)
			return
		case "error":
			var envelope wireError
			if err := json.Unmarshal([]byte(payload), &envelope); err == nil {
				s.setErr(mapStreamError(envelope))
			} else {
				s.setErr(llmerr.New("anthropic", llmerr.KindProvider, err).WithMessage("stream error"))
			}
			return
		default:
			// "ping" and any future event types carry no actionable state.
		}
	}

	if err := scanner.Err(); err != nil && !errors.Is(err, io.EOF) {
		s.setErr(llmerr.New("anthropic", llmerr.KindHTTP, err).WithMessage("stream read failed"))
		return
	}
	s.emitFinish(usage, stopReason)
}

func (s *streamer) handleDelta(ev contentBlockDeltaEvent, toolBlocks map[int]*toolBuffer, thinkingBlocks map[int]*thinkingBuffer) {
	switch ev.Delta.Type {
	case "text_delta":
		if ev.Delta.Text == "" {
			return
		}
		s.events <- message.StreamEvent{Type: message.StreamEventText, TextDelta: ev.Delta.Text}
	case "input_json_delta":
		tb, ok := toolBlocks[ev.Index]
		if !ok || ev.Delta.PartialJSON == "" {
			return
		}
		tb.args.WriteString(ev.Delta.PartialJSON)
		s.events <- message.StreamEvent{
			Type: message.StreamEventToolCallDelta,
			ToolCallDelta: &message.ToolCallDelta{
				ID:    tb.id,
				Name:  tb.name,
				Delta: ev.Delta.PartialJSON,
			},
		}
	case "thinking_delta":
		if ev.Delta.Thinking == "" {
			return
		}
		tb, ok := thinkingBlocks[ev.Index]
		if !ok {
			tb = &thinkingBuffer{}
			thinkingBlocks[ev.Index] = tb
		}
		tb.text.WriteString(ev.Delta.Thinking)
		s.events <- message.StreamEvent{Type: message.StreamEventThinking, ThinkingDelta: ev.Delta.Thinking}
	case "signature_delta":
		tb, ok := thinkingBlocks[ev.Index]
		if !ok {
			tb = &thinkingBuffer{}
			thinkingBlocks[ev.Index] = tb
		}
		tb.signature = ev.Delta.Signature
		s.events <- message.StreamEvent{Type: message.StreamEventThinking, ThinkingSignature: ev.Delta.Signature}
	case "citations_delta":
		// Citations have no analogous field on message.TextPart/StreamEvent
		// in the shared IR; see DESIGN.md for why this is intentionally
		// dropped rather than widening a cross-provider type for one
		// provider's feature.
	}
}

func (s *streamer) emitFinish(usage message.Usage, stopReason string) {
	select {
	case s.events <- message.StreamEvent{
		Type:       message.StreamEventFinish,
		UsageDelta: &usage,
		StopReason: stopReason,
	}:
	case <-s.ctx.Done():
	}
}
