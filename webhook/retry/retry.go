package retry

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/marcelsud/webhook-engine/webhook/classify"
	"github.com/rs/zerolog"
)

/* Executor for operations against flaky dependencies
 * Failures are classified on every attempt; only retryable ones are retried,
 * with bounded exponential backoff. The backoff sleep suspends only the
 * calling goroutine.
 */

// Policy configures the retry behavior
type Policy struct {
	MaxAttempts       int
	InitialDelay      time.Duration
	BackoffMultiplier float64
	MaxDelay          time.Duration
}

// DefaultPolicy is the documented default: 3 attempts, 1s initial delay,
// doubling up to 30s
var DefaultPolicy = Policy{
	MaxAttempts:       3,
	InitialDelay:      time.Second,
	BackoffMultiplier: 2.0,
	MaxDelay:          30 * time.Second,
}

// Validate checks the policy invariants
func (p Policy) Validate() error {
	if p.MaxAttempts < 1 {
		return fmt.Errorf("max_attempts must be at least 1: %d", p.MaxAttempts)
	}
	if p.InitialDelay < 0 {
		return fmt.Errorf("initial_delay cannot be negative: %s", p.InitialDelay)
	}
	if p.BackoffMultiplier < 1 {
		return fmt.Errorf("backoff_multiplier must be at least 1: %f", p.BackoffMultiplier)
	}
	if p.MaxDelay < p.InitialDelay {
		return fmt.Errorf("max_delay %s cannot be below initial_delay %s", p.MaxDelay, p.InitialDelay)
	}
	return nil
}

// Delay returns the backoff before the given attempt (attempt is 1-based;
// the delay precedes attempts 2..MaxAttempts)
func (p Policy) Delay(attempt int) time.Duration {
	delay := float64(p.InitialDelay) * math.Pow(p.BackoffMultiplier, float64(attempt-1))
	if delay > float64(p.MaxDelay) {
		delay = float64(p.MaxDelay)
	}
	return time.Duration(delay)
}

/* Do runs op until it succeeds, its classified error is non-retryable, or
 * the attempt budget is spent. The returned error is always a
 * *classify.Error, never a raw error.
 */
func Do[T any](ctx context.Context, logger zerolog.Logger, policy Policy, correlationID string, op func(context.Context) (T, error)) (T, error) {
	var zero T

	if err := policy.Validate(); err != nil {
		return zero, classify.Classify(fmt.Errorf("invalid retry policy: %w", err))
	}

	var werr *classify.Error
	for attempt := 1; attempt <= policy.MaxAttempts; attempt++ {
		result, err := op(ctx)
		if err == nil {
			return result, nil
		}

		werr = classify.Classify(err)
		logger.Warn().
			Str("correlation_id", correlationID).
			Int("attempt", attempt).
			Int("max_attempts", policy.MaxAttempts).
			Str("code", string(werr.Code)).
			Bool("retryable", werr.Retryable).
			Msg("operation attempt failed")

		if !werr.Retryable || attempt == policy.MaxAttempts {
			break
		}

		select {
		case <-ctx.Done():
			return zero, classify.Classify(ctx.Err())
		case <-time.After(policy.Delay(attempt)):
		}
	}

	return zero, werr
}

// Run is Do for operations with no result value
func Run(ctx context.Context, logger zerolog.Logger, policy Policy, correlationID string, op func(context.Context) error) error {
	_, err := Do(ctx, logger, policy, correlationID, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, op(ctx)
	})
	return err
}
