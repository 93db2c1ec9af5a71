package transport

import (
	"context"
	"sync"

	"golang.org/x/time/rate"

	"github.com/polyprompt/polyprompt/capability"
	"github.com/polyprompt/polyprompt/llmerr"
	"github.com/polyprompt/polyprompt/message"
)

// AdaptiveRateLimiter applies an AIMD-style adaptive token bucket in front
// of a capability.Client. It estimates the token cost of each request,
// blocks callers until capacity is available, and halves its effective
// tokens-per-minute budget whenever the wrapped client reports a rate-limit
// error, recovering gradually on successful calls.
//
// The limiter is process-local: each process constructs its own instance
// and wraps the client it talks to directly, rather than coordinating a
// shared budget across a fleet.
type AdaptiveRateLimiter struct {
	mu sync.Mutex

	limiter *rate.Limiter

	currentTPM   float64
	minTPM       float64
	maxTPM       float64
	recoveryRate float64
}

// NewAdaptiveRateLimiter constructs an AdaptiveRateLimiter with an initial
// tokens-per-minute budget and an upper bound. When maxTPM is zero or less
// than initialTPM, it is clamped to initialTPM.
func NewAdaptiveRateLimiter(initialTPM, maxTPM float64) *AdaptiveRateLimiter {
	if initialTPM <= 0 {
		initialTPM = 60000
	}
	if maxTPM <= 0 || maxTPM < initialTPM {
		maxTPM = initialTPM
	}
	minTPM := initialTPM * 0.1
	if minTPM < 1 {
		minTPM = 1
	}
	recoveryRate := initialTPM * 0.05
	if recoveryRate < 1 {
		recoveryRate = 1
	}
	return &AdaptiveRateLimiter{
		limiter:      rate.NewLimiter(rate.Limit(initialTPM/60.0), int(initialTPM)),
		currentTPM:   initialTPM,
		minTPM:       minTPM,
		maxTPM:       maxTPM,
		recoveryRate: recoveryRate,
	}
}

// Wrap returns a capability.Client middleware enforcing the adaptive
// tokens-per-minute limit for both Complete and Stream calls.
func (l *AdaptiveRateLimiter) Wrap(next capability.Client) capability.Client {
	if next == nil {
		return nil
	}
	if sc, ok := next.(capability.StreamingClient); ok {
		return &limitedStreamingClient{limitedClient{next: sc, limiter: l}, sc}
	}
	return &limitedClient{next: next, limiter: l}
}

type limitedClient struct {
	next    capability.Client
	limiter *AdaptiveRateLimiter
}

func (c *limitedClient) Name() string { return c.next.Name() }

func (c *limitedClient) Complete(ctx context.Context, req *message.Request) (*message.Response, error) {
	if err := c.limiter.wait(ctx, req); err != nil {
		return nil, err
	}
	resp, err := c.next.Complete(ctx, req)
	c.limiter.observe(err)
	return resp, err
}

type limitedStreamingClient struct {
	limitedClient
	streaming capability.StreamingClient
}

func (c *limitedStreamingClient) Stream(ctx context.Context, req *message.Request) (capability.Streamer, error) {
	if err := c.limiter.wait(ctx, req); err != nil {
		return nil, err
	}
	s, err := c.streaming.Stream(ctx, req)
	c.limiter.observe(err)
	return s, err
}

func (l *AdaptiveRateLimiter) wait(ctx context.Context, req *message.Request) error {
	return l.limiter.WaitN(ctx, estimateTokens(req))
}

func (l *AdaptiveRateLimiter) observe(err error) {
	if err == nil {
		l.probe()
		return
	}
	if llmerr.Is(err, llmerr.KindRateLimit) {
		l.backoff()
	}
}

func (l *AdaptiveRateLimiter) backoff() {
	l.mu.Lock()
	defer l.mu.Unlock()
	newTPM := l.currentTPM * 0.5
	if newTPM < l.minTPM {
		newTPM = l.minTPM
	}
	l.setTPM(newTPM)
}

func (l *AdaptiveRateLimiter) probe() {
	l.mu.Lock()
	defer l.mu.Unlock()
	newTPM := l.currentTPM + l.recoveryRate
	if newTPM > l.maxTPM {
		newTPM = l.maxTPM
	}
	l.setTPM(newTPM)
}

// setTPM updates the limiter's effective budget. Callers must hold l.mu.
func (l *AdaptiveRateLimiter) setTPM(tpm float64) {
	if tpm == l.currentTPM {
		return
	}
	l.currentTPM = tpm
	l.limiter.SetLimit(rate.Limit(tpm / 60.0))
	l.limiter.SetBurst(int(tpm))
}

// estimateTokens computes a cheap heuristic for the number of tokens in the
// request transcript: it counts characters in text and string tool-result
// content, converts to tokens at roughly 1 token per 3 characters, and adds
// a fixed buffer for system prompts and provider framing.
func estimateTokens(req *message.Request) int {
	charCount := 0
	for _, m := range req.Messages {
		for _, p := range m.Parts {
			switch v := p.(type) {
			case message.TextPart:
				charCount += len(v.Text)
			case message.ToolResultPart:
				if s, ok := v.Content.(string); ok {
					charCount += len(s)
				}
			}
		}
	}
	if charCount <= 0 {
		return 500
	}
	tokens := charCount / 3
	if tokens < 1 {
		tokens = 1
	}
	return tokens + 500
}
