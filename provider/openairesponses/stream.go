package openairesponses

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

// streamer adapts a Responses API SSE body to capability.Streamer. As in
// provider/anthropic, a single background goroutine reads the wire and
// fans normalized events into a buffered channel so Recv can select on
// both the channel and ctx.Done.
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
		s.setErr(llmerr.New("openai-responses", llmerr.KindCancelled, err).WithMessage("stream cancelled"))
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

func (s *streamer) recordMeta(key string, value any) {
	s.metaMu.Lock()
	s.metadata[key] = value
	s.metaMu.Unlock()
}

// itemState tracks the in-progress item at a given output_index: a
// function_call accumulates its arguments JSON across
// response.function_call_arguments.delta events. Reasoning summary deltas
// are not accumulated here; they are forwarded as thinking events directly.
type itemState struct {
	itemType string
	id       string
	callID   string
	name     string
	args     strings.Builder
}

// run scans the SSE body line by line, pairing each "event: <type>" line
// with the "data: <json>" line that follows it, and feeds the pair to the
// state machine below. response.completed is the sole terminal event;
// response.failed and response.incomplete are treated as terminal errors,
// and a flat "error" event ends the stream immediately.
func (s *streamer) run(tm *toolname.Mapping, logger telemetry.Logger) {
	defer close(s.events)
	defer s.body.Close()

	items := make(map[int]*itemState)

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
		if payload == "" {
			continue
		}

		var ev streamEvent
		if err := json.Unmarshal([]byte(payload), &ev); err != nil {
			logger.Warn(s.ctx, "openai-responses: failed to decode event", "event", currentEvent, "error", err.Error())
			continue
		}
		if ev.Type == "" {
			ev.Type = currentEvent
		}

		switch ev.Type {
		case "response.created", "response.in_progress", "response.queued":
			// No actionable state; response.completed carries the final
			// usage and output.
		case "response.output_item.added":
			if ev.Item == nil {
				continue
			}
			st := &itemState{itemType: ev.Item.Type, id: ev.Item.ID, callID: ev.Item.CallID, name: ev.Item.Name}
			if tm != nil {
				if canon, ok := tm.ToCanonical(st.name); ok {
					st.name = canon
				}
			}
			items[ev.OutputIndex] = st
		case "response.output_text.delta":
			if ev.Delta == "" {
				continue
			}
			s.events <- message.StreamEvent{Type: message.StreamEventText, TextDelta: ev.Delta}
		case "response.reasoning_summary_text.delta":
			if ev.Delta == "" {
				continue
			}
			s.events <- message.StreamEvent{Type: message.StreamEventThinking, ThinkingDelta: ev.Delta}
		case "response.function_call_arguments.delta":
			st, ok := items[ev.OutputIndex]
			if !ok || ev.Delta == "" {
				continue
			}
			st.args.WriteString(ev.Delta)
			s.events <- message.StreamEvent{
				Type: message.StreamEventToolCallDelta,
				ToolCallDelta: &message.ToolCallDelta{
					ID:    st.callID,
					Name:  st.name,
					Delta: ev.Delta,
				},
			}
		case "response.output_item.done":
			if ev.Item == nil {
				continue
			}
			st, ok := items[ev.OutputIndex]
			if !ok {
				continue
			}
			delete(items, ev.OutputIndex)
			if ev.Item.Type == "function_call" {
				args := ev.Item.Arguments
				if len(args) == 0 {
					args = json.RawMessage(st.args.String())
				}
				if len(args) == 0 {
					args = json.RawMessage("{}")
				}
				s.events <- message.StreamEvent{
					Type:     message.StreamEventToolCall,
					ToolCall: &message.ToolCall{ID: st.callID, Name: st.name, Input: args},
				}
			}
		case "response.completed":
			s.emitFinish(ev.Response)
			return
		case "response.failed", "response.incomplete":
			if ev.Response != nil && ev.Response.Error != nil {
				s.setErr(mapStreamError(*ev.Response.Error))
			} else {
				s.setErr(llmerr.New("openai-responses", llmerr.KindProvider, nil).WithMessage("response " + ev.Type))
			}
			return
		case "error":
			s.setErr(mapStreamError(wireErrorDetail{Message: ev.Message, Type: "", Code: ev.Code}))
			return
		default:
			// Content-part and provider-native tool-call delta events carry
			// no representation in the shared IR; see DESIGN.md.
		}
	}

	if err := scanner.Err(); err != nil && !errors.Is(err, io.EOF) {
		s.setErr(llmerr.New("openai-responses", llmerr.KindHTTP, err).WithMessage("stream read failed"))
		return
	}
	s.emitFinish(nil)
}

func (s *streamer) emitFinish(resp *responsesResponse) {
	var usage message.Usage
	stopReason := ""
	if resp != nil {
		stopReason = resp.Status
		s.recordMeta("id", resp.ID)
		s.recordMeta("model", resp.Model)
		if resp.Usage != nil {
			usage = message.Usage{
				InputTokens:     resp.Usage.InputTokens,
				OutputTokens:    resp.Usage.OutputTokens,
				TotalTokens:     resp.Usage.TotalTokens,
				CacheReadTokens: resp.Usage.InputTokensDetails.CachedTokens,
			}
			s.recordMeta("usage", usage)
		}
	}
	select {
	case s.events <- message.StreamEvent{
		Type:       message.StreamEventFinish,
		UsageDelta: &usage,
		StopReason: stopReason,
	}:
	case <-s.ctx.Done():
	}
}
