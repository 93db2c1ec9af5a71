package bedrock

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"

	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	brtypes "github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"

	"github.com/polyprompt/polyprompt/llmerr"
	"github.com/polyprompt/polyprompt/message"
	"github.com/polyprompt/polyprompt/toolname"
)

// streamer adapts a Bedrock ConverseStream event stream to
// capability.Streamer. As in every other provider package, a single
// background goroutine reads the wire and fans normalized events into a
// buffered channel so Recv can select on both the channel and ctx.Done.
type streamer struct {
	ctx    context.Context
	cancel context.CancelFunc
	stream *bedrockruntime.ConverseStreamEventStream

	events chan message.StreamEvent

	mu       sync.Mutex
	finalErr error

	metaMu   sync.RWMutex
	metadata map[string]any
}

func newStreamer(ctx context.Context, stream *bedrockruntime.ConverseStreamEventStream, tm *toolname.Mapping) *streamer {
	cctx, cancel := context.WithCancel(ctx)
	s := &streamer{
		ctx:      cctx,
		cancel:   cancel,
		stream:   stream,
		events:   make(chan message.StreamEvent, 32),
		metadata: make(map[string]any),
	}
	go s.run(tm)
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
		s.setErr(llmerr.New("bedrock", llmerr.KindCancelled, err).WithMessage("stream cancelled"))
		return message.StreamEvent{}, s.err()
	}
}

func (s *streamer) Close() error {
	s.cancel()
	return s.stream.Close()
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
	id, name string
	args     strings.Builder
}

// reasoningBuffer tracks per-content-index reasoning state for the
// plaintext path; redacted reasoning bytes have no analogous field on
// message.StreamEvent (see the ContentBlockDeltaMemberReasoningContent case
// below) so only signature is retained here.
type reasoningBuffer struct {
	signature string
}

// run reads the ConverseStream event channel and feeds the event-typed
// state machine below. Unlike the SSE-framed providers, the stream has no
// "[DONE]" marker: the channel's natural close is the terminal signal.
func (s *streamer) run(tm *toolname.Mapping) {
	defer close(s.events)
	defer s.stream.Close()

	toolBlocks := make(map[int]*toolBuffer)
	reasoningBlocks := make(map[int]*reasoningBuffer)
	events := s.stream.Events()

	for {
		select {
		case <-s.ctx.Done():
			s.setErr(s.ctx.Err())
			return
		case event, ok := <-events:
			if !ok {
				if err := s.stream.Err(); err != nil {
					s.setErr(classifyError(s.ctx, err))
				}
				return
			}
			if err := s.handle(event, tm, toolBlocks, reasoningBlocks); err != nil {
				s.setErr(err)
				return
			}
		}
	}
}

func (s *streamer) emit(ev message.StreamEvent) error {
	select {
	case s.events <- ev:
		return nil
	case <-s.ctx.Done():
		return s.ctx.Err()
	}
}

func (s *streamer) handle(event any, tm *toolname.Mapping, toolBlocks map[int]*toolBuffer, reasoningBlocks map[int]*reasoningBuffer) error {
	switch ev := event.(type) {
	case *brtypes.ConverseStreamOutputMemberMessageStart:
		return nil

	case *brtypes.ConverseStreamOutputMemberContentBlockStart:
		idx, err := contentIndex(ev.Value.ContentBlockIndex)
		if err != nil {
			return err
		}
		if toolUse, ok := ev.Value.Start.(*brtypes.ContentBlockStartMemberToolUse); ok {
			tb := &toolBuffer{}
			if toolUse.Value.ToolUseId != nil {
				tb.id = *toolUse.Value.ToolUseId
			}
			if toolUse.Value.Name != nil {
				name := normalizeToolName(*toolUse.Value.Name)
				if tm != nil {
					if canon, ok := tm.ToCanonical(name); ok {
						name = canon
					}
				}
				tb.name = name
			}
			toolBlocks[idx] = tb
		}
		return nil

	case *brtypes.ConverseStreamOutputMemberContentBlockDelta:
		idx, err := contentIndex(ev.Value.ContentBlockIndex)
		if err != nil {
			return err
		}
		return s.handleDelta(idx, ev.Value.Delta, toolBlocks, reasoningBlocks)

	case *brtypes.ConverseStreamOutputMemberContentBlockStop:
		idx, err := contentIndex(ev.Value.ContentBlockIndex)
		if err != nil {
			return err
		}
		// Plaintext reasoning text and its signature were already streamed
		// incrementally above. Redacted reasoning has no analogous
		// incremental field on message.StreamEvent and is only available
		// via the non-stream Complete path's translateResponse, the same
		// limitation provider/anthropic's streamer accepts for
		// redacted_thinking blocks.
		delete(reasoningBlocks, idx)
		if tb, ok := toolBlocks[idx]; ok {
			delete(toolBlocks, idx)
			args := tb.args.String()
			if strings.TrimSpace(args) == "" {
				args = "{}"
			}
			return s.emit(message.StreamEvent{
				Type:     message.StreamEventToolCall,
				ToolCall: &message.ToolCall{ID: tb.id, Name: tb.name, Input: []byte(args)},
			})
		}
		return nil

	case *brtypes.ConverseStreamOutputMemberMessageStop:
		return s.emit(message.StreamEvent{Type: message.StreamEventFinish, StopReason: string(ev.Value.StopReason)})

	case *brtypes.ConverseStreamOutputMemberMetadata:
		if ev.Value.Usage == nil {
			return nil
		}
		usage := message.Usage{
			InputTokens:      int32Value(ev.Value.Usage.InputTokens),
			OutputTokens:     int32Value(ev.Value.Usage.OutputTokens),
			TotalTokens:      int32Value(ev.Value.Usage.TotalTokens),
			CacheReadTokens:  int32Value(ev.Value.Usage.CacheReadInputTokens),
			CacheWriteTokens: int32Value(ev.Value.Usage.CacheWriteInputTokens),
		}
		s.recordUsage(usage)
		return nil

	default:
		// Citation deltas and any future event member carry no field this
		// module's shared message.StreamEvent can represent; see DESIGN.md.
		return nil
	}
}

func (s *streamer) handleDelta(idx int, delta brtypes.ContentBlockDelta, toolBlocks map[int]*toolBuffer, reasoningBlocks map[int]*reasoningBuffer) error {
	switch v := delta.(type) {
	case *brtypes.ContentBlockDeltaMemberText:
		if v.Value == "" {
			return nil
		}
		return s.emit(message.StreamEvent{Type: message.StreamEventText, TextDelta: v.Value})

	case *brtypes.ContentBlockDeltaMemberToolUse:
		tb, ok := toolBlocks[idx]
		if !ok || v.Value.Input == nil || *v.Value.Input == "" {
			return nil
		}
		fragment := *v.Value.Input
		tb.args.WriteString(fragment)
		return s.emit(message.StreamEvent{
			Type:          message.StreamEventToolCallDelta,
			ToolCallDelta: &message.ToolCallDelta{ID: tb.id, Name: tb.name, Delta: fragment},
		})

	case *brtypes.ContentBlockDeltaMemberReasoningContent:
		rb, ok := reasoningBlocks[idx]
		if !ok {
			rb = &reasoningBuffer{}
			reasoningBlocks[idx] = rb
		}
		switch rc := v.Value.(type) {
		case *brtypes.ReasoningContentBlockDeltaMemberText:
			if rc.Value == "" {
				return nil
			}
			return s.emit(message.StreamEvent{Type: message.StreamEventThinking, ThinkingDelta: rc.Value})
		case *brtypes.ReasoningContentBlockDeltaMemberRedactedContent:
			// Redacted reasoning bytes have no incremental field on
			// message.StreamEvent; only the non-stream Complete path
			// surfaces them, via response.go's translateReasoningBlock.
			return nil
		case *brtypes.ReasoningContentBlockDeltaMemberSignature:
			if rc.Value == "" {
				return nil
			}
			rb.signature = rc.Value
			return s.emit(message.StreamEvent{Type: message.StreamEventThinking, ThinkingSignature: rc.Value})
		default:
			return nil
		}

	default:
		// Citation deltas have no analogous field in this module's shared
		// IR; see DESIGN.md for why that is intentionally dropped rather
		// than widening a cross-provider type for one provider's feature.
		return nil
	}
}

func contentIndex(idx *int32) (int, error) {
	if idx == nil {
		return 0, errors.New("bedrock: content block index missing")
	}
	return int(*idx), nil
}
