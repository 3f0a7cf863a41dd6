package provider

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

// RetryProvider wraps a Provider with exponential backoff retry logic.
type RetryProvider struct {
	inner      Provider
	maxRetries int
	baseDelay  time.Duration
}

func WithRetry(p Provider, maxRetries int) *RetryProvider {
	if maxRetries < 0 {
		maxRetries = 0
	}
	return &RetryProvider{inner: p, maxRetries: maxRetries, baseDelay: 500 * time.Millisecond}
}

func (r *RetryProvider) Name() string { return r.inner.Name() }

func (r *RetryProvider) ModelName() string { return r.inner.ModelName() }

func (r *RetryProvider) Models(ctx context.Context) ([]string, error) {
	var lastErr error
	for attempt := 0; attempt <= r.maxRetries; attempt++ {
		models, err := r.inner.Models(ctx)
		if err == nil {
			return models, nil
		}
		lastErr = err
		if !isRetryable(err) || attempt == r.maxRetries {
			break
		}
		if err := r.backoff(ctx, attempt); err != nil {
			return nil, lastErr
		}
	}
	return nil, lastErr
}

func (r *RetryProvider) Complete(ctx context.Context, req CompletionRequest) (Completion, error) {
	var lastErr error
	for attempt := 0; attempt <= r.maxRetries; attempt++ {
		c, err := r.inner.Complete(ctx, req)
		if err == nil {
			return c, nil
		}
		lastErr = err
		if ctx.Err() != nil || !isRetryable(err) || attempt == r.maxRetries {
			break
		}
		log.Debug().Err(err).Int("attempt", attempt+1).Str("provider", r.Name()).Msg("retrying completion")
		if err := r.backoff(ctx, attempt); err != nil {
			return Completion{}, lastErr
		}
	}
	if r.maxRetries == 0 {
		return Completion{}, lastErr
	}
	return Completion{}, fmt.Errorf("after %d retries: %w", r.maxRetries, lastErr)
}

func isRetryable(err error) bool {
	var se *StatusError
	if errors.As(err, &se) {
		return se.Retryable()
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	msg := err.Error()
	// Retry on connection issues
	for _, s := range []string{"connection refused", "timeout", "timed out", "deadline exceeded", "EOF", "reset by peer"} {
		if strings.Contains(msg, s) {
			return true
		}
	}
	return false
}

func (r *RetryProvider) backoff(ctx context.Context, attempt int) error {
	delay := time.Duration(float64(r.baseDelay) * math.Pow(2, float64(attempt)))
	if delay > 30*time.Second {
		delay = 30 * time.Second
	}
	select {
	case <-time.After(delay):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
