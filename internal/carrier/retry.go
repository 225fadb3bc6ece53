package carrier

import (
	"context"
	"math/rand"
	"time"

	"github.com/rs/zerolog/log"
)

// RetryPolicy controls the bounded exponential backoff applied to transient
// carrier failures.
type RetryPolicy struct {
	MaxAttempts  int
	BaseDelay    time.Duration
	MaxDelay     time.Duration
	JitterFactor float64
}

// backoffDelay computes the delay before the next attempt:
// min(base * 2^(attempt-1), maxDelay) plus jitter drawn uniformly from
// [0, delay * jitterFactor].
func (p RetryPolicy) backoffDelay(attempt int) time.Duration {
	delay := p.BaseDelay << uint(attempt-1)
	if delay > p.MaxDelay || delay <= 0 {
		delay = p.MaxDelay
	}

	jitter := time.Duration(rand.Float64() * p.JitterFactor * float64(delay))
	return delay + jitter
}

// Do runs operation up to MaxAttempts times, sleeping per the backoff policy
// between attempts. Only errors for which retryable returns true are retried;
// anything else surfaces immediately. Context cancellation aborts the wait.
func (p RetryPolicy) Do(ctx context.Context, operation string, retryable func(error) bool, fn func() error) error {
	var lastErr error

	for attempt := 1; attempt <= p.MaxAttempts; attempt++ {
		lastErr = fn()
		if lastErr == nil {
			return nil
		}

		if !retryable(lastErr) {
			return lastErr
		}

		if attempt == p.MaxAttempts {
			log.Error().
				Err(lastErr).
				Str("operation", operation).
				Int("attempts", attempt).
				Msg("Carrier call failed after exhausting retries")
			return lastErr
		}

		delay := p.backoffDelay(attempt)
		log.Warn().
			Err(lastErr).
			Str("operation", operation).
			Int("attempt", attempt).
			Dur("retry_in", delay).
			Msg("Carrier call failed, retrying")

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	return lastErr
}
