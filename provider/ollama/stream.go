package ollama

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

// streamer adapts an Ollama /api/chat newline-delimited-JSON body to
// capability.Streamer. Unlike the SSE-framed providers, each line is
// already a complete JSON object with no "data:" prefix or event type; the
// stream ends when a line decodes with "done": true. A single background
// goroutine reads the wire and fans normalized events into a buffered
// channel; Recv selects on that channel and on ctx.Done so cancelling the
// caller's context interrupts a blocked Recv even if the transport itself
// ignores cancellation.
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
		s.setErr(llmerr.New("ollama", llmerr.KindCancelled, err).WithMessage("stream cancelled"))
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

func (s *streamer) run(tm *toolname.Mapping, logger telemetry.Logger) {
	defer close(s.events)
	defer s.body.Close()

	var usage message.Usage
	var doneReason string

	scanner := bufio.NewScanner(s.body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() {
		select {
		case <-s.ctx.Done():
			return
		default:
		}

		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		var chunk chatResponse
		if err := json.Unmarshal([]byte(line), &chunk); err != nil {
			logger.Warn(s.ctx, "ollama: failed to decode stream line", "error", err.Error())
			continue
		}

		if chunk.Message.Content != "" {
			s.events <- message.StreamEvent{Type: message.StreamEventText, TextDelta: chunk.Message.Content}
		}
		for _, tc := range chunk.Message.ToolCalls {
			name := tc.Function.Name
			if tm != nil {
				if canon, ok := tm.ToCanonical(name); ok {
					name = canon
				}
			}
			args := tc.Function.Arguments
			if len(args) == 0 {
				args = []byte("{}")
			}
			s.events <- message.StreamEvent{
				Type:     message.StreamEventToolCall,
				ToolCall: &message.ToolCall{ID: message.NewCallID(), Name: name, Input: args},
			}
		}

		if chunk.Done {
			doneReason = chunk.DoneReason
			usage = message.Usage{
				InputTokens:  chunk.PromptEvalCount,
				OutputTokens: chunk.EvalCount,
				TotalTokens:  chunk.PromptEvalCount + chunk.EvalCount,
			}
			break
		}
	}

	if err := scanner.Err(); err != nil && !errors.Is(err, io.EOF) {
		s.setErr(llmerr.New("ollama", llmerr.KindHTTP, err).WithMessage("stream read failed"))
		return
	}

	select {
	case s.events <- message.StreamEvent{
		Type:       message.StreamEventFinish,
		UsageDelta: &usage,
		StopReason: doneReason,
	}:
	case <-s.ctx.Done():
	}
}
