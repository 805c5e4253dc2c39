// Package ai wraps the model API used for SQL translation, insight
// generation, and anomaly explanation.
package ai

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/prashanthpaul/real-time-bi-copilot/internal/observability"
)

// ErrRateLimited signals the provider rejected the request due to rate
// limiting. Callers may retry through CompleteWithRetry.
var ErrRateLimited = errors.New("ai: rate limited")

type Request struct {
	System    string
	Prompt    string
	MaxTokens int
}

type Completion struct {
	Text         string
	InputTokens  int
	OutputTokens int
	Latency      time.Duration
}

type Client interface {
	Complete(ctx context.Context, req Request) (Completion, error)
}

// RetryPolicy controls how rate limited requests are retried. The
// default is a single retry after a short fixed backoff.
type RetryPolicy struct {
	MaxAttempts int
	Backoff     time.Duration
}

func (p RetryPolicy) normalized() RetryPolicy {
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = 2
	}
	if p.Backoff <= 0 {
		p.Backoff = 2 * time.Second
	}
	return p
}

// CompleteWithRetry issues the request and retries rate limited
// attempts per the policy. The backoff sleep aborts when the context
// is cancelled. Errors other than rate limiting are returned as is.
func CompleteWithRetry(ctx context.Context, client Client, req Request, policy RetryPolicy) (Completion, error) {
	policy = policy.normalized()

	var lastErr error
	for attempt := 1; attempt <= policy.MaxAttempts; attempt++ {
		completion, err := client.Complete(ctx, req)
		if err == nil {
			return completion, nil
		}
		if !errors.Is(err, ErrRateLimited) {
			return Completion{}, err
		}
		lastErr = err
		if attempt == policy.MaxAttempts {
			break
		}

		observability.IncrementAIRetry()
		timer := time.NewTimer(policy.Backoff)
		select {
		case <-ctx.Done():
			timer.Stop()
			return Completion{}, ctx.Err()
		case <-timer.C:
		}
	}
	return Completion{}, lastErr
}

// Usage accumulates token counts across requests for the status
// endpoint.
type Usage struct {
	requests     atomic.Int64
	inputTokens  atomic.Int64
	outputTokens atomic.Int64
}

type UsageStats struct {
	TotalRequests     int64 `json:"total_requests"`
	TotalInputTokens  int64 `json:"total_input_tokens"`
	TotalOutputTokens int64 `json:"total_output_tokens"`
	TotalTokens       int64 `json:"total_tokens"`
}

func (u *Usage) Record(inputTokens, outputTokens int) {
	u.requests.Add(1)
	u.inputTokens.Add(int64(inputTokens))
	u.outputTokens.Add(int64(outputTokens))
}

func (u *Usage) Snapshot() UsageStats {
	input := u.inputTokens.Load()
	output := u.outputTokens.Load()
	return UsageStats{
		TotalRequests:     u.requests.Load(),
		TotalInputTokens:  input,
		TotalOutputTokens: output,
		TotalTokens:       input + output,
	}
}
