package gemini

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

// streamer adapts a Gemini streamGenerateContent SSE body (requested with
// alt=sse) to capability.Streamer. A single background goroutine reads the
// wire and fans normalized events into a buffered channel; Recv selects on
// that channel and on ctx.Done so cancelling the caller's context interrupts
// a blocked Recv even if the transport itself ignores cancellation.
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
		s.setErr(llmerr.New("gemini", llmerr.KindCancelled, err).WithMessage("stream cancelled"))
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
			break
		}

		var chunk generateContentResponse
		if err := json.Unmarshal([]byte(payload), &chunk); err != nil {
			logger.Warn(s.ctx, "gemini: failed to decode stream chunk", "error", err.Error())
			continue
		}
		if chunk.UsageMetadata != nil {
			usage = message.Usage{
				InputTokens:     chunk.UsageMetadata.PromptTokenCount,
				OutputTokens:    chunk.UsageMetadata.CandidatesTokenCount,
				TotalTokens:     chunk.UsageMetadata.TotalTokenCount,
				CacheReadTokens: chunk.UsageMetadata.CachedContentTokenCount,
			}
		}
		if len(chunk.Candidates) == 0 {
			continue
		}
		cand := chunk.Candidates[0]
		if cand.FinishReason != "" {
			finishReason = cand.FinishReason
		}

		for _, p := range cand.Content.Parts {
			switch {
			case p.FunctionCall != nil:
				name := p.FunctionCall.Name
				if tm != nil {
					if canon, ok := tm.ToCanonical(name); ok {
						name = canon
					}
				}
				args := p.FunctionCall.Args
				if len(args) == 0 {
					args = []byte("{}")
				}
				id := message.NewCallID()
				s.events <- message.StreamEvent{
					Type:     message.StreamEventToolCall,
					ToolCall: &message.ToolCall{ID: id, Name: name, Input: args},
				}
			case p.Thought:
				s.events <- message.StreamEvent{
					Type:              message.StreamEventThinking,
					ThinkingDelta:     p.Text,
					ThinkingSignature: p.ThoughtSignature,
				}
			case p.Text != "":
				s.events <- message.StreamEvent{Type: message.StreamEventText, TextDelta: p.Text}
			}
		}
	}

	if err := scanner.Err(); err != nil && !errors.Is(err, io.EOF) {
		s.setErr(llmerr.New("gemini", llmerr.KindHTTP, err).WithMessage("stream read failed"))
		return
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
