package retry_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/marcelsud/webhook-engine/webhook/classify"
	"github.com/marcelsud/webhook-engine/webhook/retry"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fastPolicy keeps the default shape (3 attempts, doubling backoff) at test speed
var fastPolicy = retry.Policy{
	MaxAttempts:       3,
	InitialDelay:      20 * time.Millisecond,
	BackoffMultiplier: 2.0,
	MaxDelay:          300 * time.Millisecond,
}

func TestDo(t *testing.T) {
	ctx := context.Background()
	logger := zerolog.Nop()

	t.Run("returns result on first success", func(t *testing.T) {
		calls := 0
		result, err := retry.Do(ctx, logger, fastPolicy, "evt_1", func(context.Context) (string, error) {
			calls++
			return "ok", nil
		})

		require.NoError(t, err)
		assert.Equal(t, "ok", result)
		assert.Equal(t, 1, calls)
	})

	t.Run("retryable error exhausts the attempt budget with growing delays", func(t *testing.T) {
		calls := 0
		var gaps []time.Duration
		last := time.Now()

		_, err := retry.Do(ctx, logger, fastPolicy, "evt_2", func(context.Context) (string, error) {
			now := time.Now()
			gaps = append(gaps, now.Sub(last))
			last = now
			calls++
			return "", errors.New("dial tcp: i/o timeout")
		})

		require.Error(t, err)
		assert.Equal(t, 3, calls)

		var werr *classify.Error
		require.ErrorAs(t, err, &werr)
		assert.Equal(t, classify.CodeNetworkError, werr.Code)
		assert.True(t, werr.Retryable)

		// Delays before attempts 2 and 3 follow initial*multiplier^(n-1)
		require.Len(t, gaps, 3)
		assert.GreaterOrEqual(t, gaps[1], 20*time.Millisecond)
		assert.GreaterOrEqual(t, gaps[2], 40*time.Millisecond)
	})

	t.Run("non-retryable error short-circuits after one attempt", func(t *testing.T) {
		calls := 0
		_, err := retry.Do(ctx, logger, fastPolicy, "evt_3", func(context.Context) (string, error) {
			calls++
			return "", errors.New("status 401: authentication failed")
		})

		require.Error(t, err)
		assert.Equal(t, 1, calls)

		var werr *classify.Error
		require.ErrorAs(t, err, &werr)
		assert.Equal(t, classify.CodeAuthFailed, werr.Code)
		assert.False(t, werr.Retryable)
	})

	t.Run("recovers when a later attempt succeeds", func(t *testing.T) {
		calls := 0
		result, err := retry.Do(ctx, logger, fastPolicy, "evt_4", func(context.Context) (int, error) {
			calls++
			if calls < 3 {
				return 0, errors.New("status 503: service unavailable")
			}
			return 42, nil
		})

		require.NoError(t, err)
		assert.Equal(t, 42, result)
		assert.Equal(t, 3, calls)
	})

	t.Run("cancelled context stops the backoff sleep", func(t *testing.T) {
		cancelCtx, cancel := context.WithCancel(ctx)

		calls := 0
		_, err := retry.Do(cancelCtx, logger, fastPolicy, "evt_5", func(context.Context) (string, error) {
			calls++
			cancel()
			return "", errors.New("connection reset by peer")
		})

		require.Error(t, err)
		assert.Equal(t, 1, calls)
	})

	t.Run("invalid policy is rejected without invoking the operation", func(t *testing.T) {
		calls := 0
		_, err := retry.Do(ctx, logger, retry.Policy{MaxAttempts: 0}, "evt_6", func(context.Context) (string, error) {
			calls++
			return "", nil
		})

		require.Error(t, err)
		assert.Equal(t, 0, calls)
	})
}

func TestRun(t *testing.T) {
	calls := 0
	err := retry.Run(context.Background(), zerolog.Nop(), fastPolicy, "evt_7", func(context.Context) error {
		calls++
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestPolicyDelay(t *testing.T) {
	policy := retry.Policy{
		MaxAttempts:       5,
		InitialDelay:      time.Second,
		BackoffMultiplier: 2.0,
		MaxDelay:          30 * time.Second,
	}

	assert.Equal(t, time.Second, policy.Delay(1))
	assert.Equal(t, 2*time.Second, policy.Delay(2))
	assert.Equal(t, 4*time.Second, policy.Delay(3))

	// Capped at max_delay
	assert.Equal(t, 30*time.Second, policy.Delay(10))
}

func TestPolicyValidate(t *testing.T) {
	require.NoError(t, retry.DefaultPolicy.Validate())

	assert.Error(t, retry.Policy{MaxAttempts: 0, InitialDelay: time.Second, BackoffMultiplier: 2, MaxDelay: time.Minute}.Validate())
	assert.Error(t, retry.Policy{MaxAttempts: 3, InitialDelay: time.Second, BackoffMultiplier: 0.5, MaxDelay: time.Minute}.Validate())
	assert.Error(t, retry.Policy{MaxAttempts: 3, InitialDelay: time.Minute, BackoffMultiplier: 2, MaxDelay: time.Second}.Validate())
}
