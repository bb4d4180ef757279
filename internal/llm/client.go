// Package llm abstracts the model used to turn questions into analysis code
// and results into prose. The rest of the pipeline depends only on the Client
// interface; the Gemini implementation lives in gemini.go.
package llm

import (
	"context"
	"errors"
	"fmt"
	"time"

	"datanerd/internal/logging"

	"go.uber.org/zap"
)

// ErrUnavailable reports that the model could not be reached after retries.
// Turns that hit it are logged with the llm_unavailable code, never guessed.
var ErrUnavailable = errors.New("language model unavailable")

// Client is the completion interface the pipeline consumes.
type Client interface {
	// Complete sends a prompt and returns the raw model text.
	Complete(ctx context.Context, prompt string) (string, error)
	// CompleteWithSystem sends a prompt under a system instruction.
	CompleteWithSystem(ctx context.Context, system, prompt string) (string, error)
}

// retryClient wraps a Client with bounded retries on transient failures.
type retryClient struct {
	inner    Client
	attempts int
	backoff  time.Duration
	log      *zap.Logger
}

// WithRetry wraps a client so transient failures are retried up to attempts
// total tries. Context cancellation is never retried.
func WithRetry(inner Client, attempts int) Client {
	if attempts < 1 {
		attempts = 1
	}
	return &retryClient{
		inner:    inner,
		attempts: attempts,
		backoff:  500 * time.Millisecond,
		log:      logging.Get(logging.CategoryLLM),
	}
}

func (r *retryClient) Complete(ctx context.Context, prompt string) (string, error) {
	return r.do(ctx, func() (string, error) { return r.inner.Complete(ctx, prompt) })
}

func (r *retryClient) CompleteWithSystem(ctx context.Context, system, prompt string) (string, error) {
	return r.do(ctx, func() (string, error) { return r.inner.CompleteWithSystem(ctx, system, prompt) })
}

func (r *retryClient) do(ctx context.Context, call func() (string, error)) (string, error) {
	var lastErr error
	for attempt := 1; attempt <= r.attempts; attempt++ {
		start := time.Now()
		text, err := call()
		if err == nil {
			return text, nil
		}
		lastErr = err
		r.log.Warn("completion attempt failed",
			zap.Int("attempt", attempt),
			zap.Duration("elapsed", time.Since(start)),
			zap.Error(err))

		if ctx.Err() != nil || !transient(err) {
			break
		}
		if attempt < r.attempts {
			select {
			case <-time.After(r.backoff):
			case <-ctx.Done():
				return "", fmt.Errorf("%w: %v", ErrUnavailable, ctx.Err())
			}
		}
	}
	return "", fmt.Errorf("%w: %v", ErrUnavailable, lastErr)
}

// transient reports whether an error is worth retrying. Cancellation and
// deadline expiry are the caller's decision, not a model hiccup.
func transient(err error) bool {
	return !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded)
}
