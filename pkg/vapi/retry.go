package vapi

import (
	"context"
	"errors"
	"math"
	"math/rand/v2"
	"time"

	"go.uber.org/zap"
)

// transientError marks a failure that would be safe to retry: network
// errors, 429s, and 5xx responses. Anything else (bad ids, auth failures)
// is terminal regardless of the attempt budget.
type transientError struct{ err error }

func (e *transientError) Error() string { return e.err.Error() }
func (e *transientError) Unwrap() error { return e.err }

func isTransient(err error) bool {
	var te *transientError
	return errors.As(err, &te)
}

type retryConfig struct {
	attempts       int
	initialBackoff time.Duration
	maxBackoff     time.Duration
}

// defaultRetryConfig disables retries: a failed or timed-out lookup is
// abandoned so the resolution cascade can fall through to the next strategy
// without stacking backoff delays. Retries are opt-in via WithRetryAttempts.
func defaultRetryConfig() retryConfig {
	return retryConfig{
		attempts:       1,
		initialBackoff: 250 * time.Millisecond,
		maxBackoff:     2 * time.Second,
	}
}

// withRetries runs fn, retrying transient failures with exponential backoff
// and jitter. Context cancellation stops retries immediately.
func withRetries(ctx context.Context, cfg retryConfig, op string, fn func(ctx context.Context) error) error {
	var lastErr error
	for attempt := 0; attempt < cfg.attempts; attempt++ {
		lastErr = fn(ctx)
		if lastErr == nil {
			return nil
		}
		if ctx.Err() != nil || !isTransient(lastErr) {
			return lastErr
		}
		if attempt >= cfg.attempts-1 {
			break
		}

		zap.L().Warn("retrying vapi lookup",
			zap.String("operation", op),
			zap.Int("attempt", attempt+1),
			zap.Error(lastErr),
		)

		timer := time.NewTimer(backoff(attempt, cfg))
		select {
		case <-ctx.Done():
			timer.Stop()
			return lastErr
		case <-timer.C:
		}
	}
	return lastErr
}

func backoff(attempt int, cfg retryConfig) time.Duration {
	delay := float64(cfg.initialBackoff) * math.Pow(2, float64(attempt))
	if delay > float64(cfg.maxBackoff) {
		delay = float64(cfg.maxBackoff)
	}
	// Jitter keeps concurrent lookups from retrying in lockstep.
	delay += (rand.Float64() - 0.5) * 0.5 * delay
	if delay < 0 {
		delay = 0
	}
	return time.Duration(delay)
}
