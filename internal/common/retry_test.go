package common

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingSleep captures requested delays without blocking.
type recordingSleep struct {
	delays []time.Duration
}

func (r *recordingSleep) sleep(ctx context.Context, d time.Duration) error {
	r.delays = append(r.delays, d)
	return ctx.Err()
}

func TestDo_SuccessOnFirstAttempt(t *testing.T) {
	attempts := 0
	err := Do(context.Background(), func() error {
		attempts++
		return nil
	})

	assert.NoError(t, err)
	assert.Equal(t, 1, attempts)
}

func TestDo_SuccessAfterRetries(t *testing.T) {
	tests := []struct {
		name             string
		failUntilN       int
		maxRetries       int
		expectedAttempts int
		shouldSucceed    bool
	}{
		{name: "success on second attempt", failUntilN: 2, maxRetries: 3, expectedAttempts: 2, shouldSucceed: true},
		{name: "success on last retry", failUntilN: 4, maxRetries: 3, expectedAttempts: 4, shouldSucceed: true},
		{name: "fail all attempts", failUntilN: 10, maxRetries: 3, expectedAttempts: 4, shouldSucceed: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := &recordingSleep{}
			attempts := 0

			err := Do(context.Background(), func() error {
				attempts++
				if attempts < tt.failUntilN {
					return errors.New("temporary failure")
				}
				return nil
			}, WithMaxRetries(tt.maxRetries), WithSleep(rec.sleep))

			if tt.shouldSucceed {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
			assert.Equal(t, tt.expectedAttempts, attempts)
			assert.Len(t, rec.delays, tt.expectedAttempts-1)
		})
	}
}

func TestDo_BackoffDelays(t *testing.T) {
	rec := &recordingSleep{}

	_ = Do(context.Background(), func() error {
		return errors.New("always fails")
	},
		WithMaxRetries(5),
		WithInitialDelay(10*time.Millisecond),
		WithMaxDelay(50*time.Millisecond),
		WithMultiplier(2.0),
		WithSleep(rec.sleep),
	)

	assert.Equal(t, []time.Duration{
		10 * time.Millisecond,
		20 * time.Millisecond,
		40 * time.Millisecond,
		50 * time.Millisecond,
		50 * time.Millisecond,
	}, rec.delays)
}

func TestDo_RetryIf(t *testing.T) {
	permanent := errors.New("bad request")
	attempts := 0

	err := Do(context.Background(), func() error {
		attempts++
		return permanent
	},
		WithRetryIf(func(err error) bool { return !errors.Is(err, permanent) }),
		WithSleep((&recordingSleep{}).sleep),
	)

	assert.ErrorIs(t, err, permanent)
	assert.Equal(t, 1, attempts, "non-retryable errors must not be retried")
}

func TestDo_ContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	attempts := 0

	err := Do(ctx, func() error {
		attempts++
		cancel()
		return errors.New("always fails")
	}, WithMaxRetries(5), WithInitialDelay(time.Hour))

	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, attempts)
}

func TestDo_NilFunction(t *testing.T) {
	err := Do(context.Background(), nil)

	require.Error(t, err)
	assert.Equal(t, "retry: function cannot be nil", err.Error())
}

func TestDo_ErrorWrapping(t *testing.T) {
	originalErr := errors.New("original error")

	err := Do(context.Background(), func() error {
		return originalErr
	}, WithMaxRetries(2), WithSleep((&recordingSleep{}).sleep))

	require.Error(t, err)
	assert.ErrorIs(t, err, originalErr)
	assert.Contains(t, err.Error(), "retry failed after 3 attempts")
}

func TestDo_InvalidOptionsFallBackToDefaults(t *testing.T) {
	err := Do(context.Background(), func() error {
		return nil
	},
		WithMaxRetries(-1),
		WithInitialDelay(-1),
		WithMaxDelay(-1),
		WithMultiplier(-1),
		WithRetryIf(nil),
		WithSleep(nil),
	)

	assert.NoError(t, err)
}

func TestCalculateDelay(t *testing.T) {
	tests := []struct {
		name         string
		attempt      int
		initialDelay time.Duration
		maxDelay     time.Duration
		multiplier   float64
		expected     time.Duration
	}{
		{"first retry", 1, 100 * time.Millisecond, time.Second, 2.0, 100 * time.Millisecond},
		{"second retry", 2, 100 * time.Millisecond, time.Second, 2.0, 200 * time.Millisecond},
		{"third retry", 3, 100 * time.Millisecond, time.Second, 2.0, 400 * time.Millisecond},
		{"capped at max delay", 5, 100 * time.Millisecond, 500 * time.Millisecond, 2.0, 500 * time.Millisecond},
		{"multiplier of 1.5", 2, 100 * time.Millisecond, time.Second, 1.5, 150 * time.Millisecond},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, calculateDelay(tt.attempt, tt.initialDelay, tt.maxDelay, tt.multiplier))
		})
	}
}

func TestSleep(t *testing.T) {
	t.Run("zero duration returns immediately", func(t *testing.T) {
		assert.NoError(t, Sleep(context.Background(), 0))
	})

	t.Run("cancelled context aborts the wait", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		assert.ErrorIs(t, Sleep(ctx, time.Hour), context.Canceled)
	})

	t.Run("short wait completes", func(t *testing.T) {
		assert.NoError(t, Sleep(context.Background(), time.Millisecond))
	})
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		n        int
		expected string
	}{
		{"shorter than limit", "boom", 10, "boom"},
		{"exact limit", "boom", 4, "boom"},
		{"cut ascii", "connection refused", 10, "connection"},
		{"does not split multibyte rune", "abécd", 3, "ab"},
		{"zero limit", "boom", 0, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Truncate(tt.input, tt.n))
		})
	}
}

func BenchmarkDo_Success(b *testing.B) {
	ctx := context.Background()
	for i := 0; i < b.N; i++ {
		_ = Do(ctx, func() error {
			return nil
		})
	}
}
