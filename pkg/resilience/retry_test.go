package resilience

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/clipscommerce/socialscan/pkg/errors"
)

func newFastRetrier(config RetryConfig) *Retrier {
	r := NewRetrier(config)
	r.sleep = func(ctx context.Context, d time.Duration) error { return nil }
	return r
}

func TestRetrier_SucceedsFirstAttempt(t *testing.T) {
	r := newFastRetrier(DefaultRetryConfig())

	calls := 0
	err := r.Do(context.Background(), "op", func(ctx context.Context) error {
		calls++
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestRetrier_SucceedsAfterRetry(t *testing.T) {
	r := newFastRetrier(DefaultRetryConfig())

	calls := 0
	err := r.Do(context.Background(), "op", func(ctx context.Context) error {
		calls++
		if calls < 3 {
			return errors.New("transient")
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestRetrier_AttemptBound(t *testing.T) {
	r := newFastRetrier(RetryConfig{MaxRetries: 3})

	calls := 0
	lastErr := errors.New("attempt 4")
	err := r.Do(context.Background(), "op", func(ctx context.Context) error {
		calls++
		if calls == 4 {
			return lastErr
		}
		return errors.New("earlier attempt")
	})

	// maxRetries=3 means at most 4 invocations, and the error surfaced is
	// the one from the final attempt.
	require.Error(t, err)
	assert.Equal(t, 4, calls)
	assert.Equal(t, lastErr, err)
}

func TestRetrier_NonRetryableStopsImmediately(t *testing.T) {
	r := newFastRetrier(DefaultRetryConfig())

	calls := 0
	err := r.Do(context.Background(), "op", func(ctx context.Context) error {
		calls++
		return apperrors.NewValidationError("bad input")
	})
	require.Error(t, err)
	assert.Equal(t, 1, calls)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeValidation))
}

func TestRetrier_CircuitOpenNotRetried(t *testing.T) {
	r := newFastRetrier(DefaultRetryConfig())

	calls := 0
	err := r.Do(context.Background(), "op", func(ctx context.Context) error {
		calls++
		return apperrors.NewCircuitOpenError("tiktok_api")
	})
	require.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestRetrier_ContextCancelledDuringBackoff(t *testing.T) {
	r := NewRetrier(RetryConfig{MaxRetries: 5, BaseDelay: time.Millisecond})
	ctx, cancel := context.WithCancel(context.Background())

	calls := 0
	err := r.Do(ctx, "op", func(ctx context.Context) error {
		calls++
		cancel()
		return errors.New("transient")
	})
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls)
}

func TestRetrier_OnRetryReportedBeforeDelay(t *testing.T) {
	var reported []int
	var slept bool

	r := NewRetrier(RetryConfig{
		MaxRetries: 2,
		OnRetry: func(attempt int, err error, delay time.Duration) {
			assert.False(t, slept, "failure must be reported before the delay is awaited")
			reported = append(reported, attempt)
		},
	})
	r.sleep = func(ctx context.Context, d time.Duration) error {
		slept = true
		return nil
	}

	err := r.Do(context.Background(), "op", func(ctx context.Context) error {
		slept = false
		return errors.New("transient")
	})
	require.Error(t, err)
	assert.Equal(t, []int{1, 2}, reported)
}

func TestRetrier_DelayCurve(t *testing.T) {
	r := NewRetrier(RetryConfig{
		BaseDelay: time.Second,
		MaxDelay:  10 * time.Second,
	})
	r.jitter = func() float64 { return 1.0 }

	// base * 1.5^n for retry n, capped at MaxDelay.
	assert.Equal(t, 1500*time.Millisecond, r.delay(1))
	assert.Equal(t, 2250*time.Millisecond, r.delay(2))
	assert.Equal(t, time.Duration(3.375*float64(time.Second)), r.delay(3))
	assert.Equal(t, 10*time.Second, r.delay(10))
}

func TestRetrier_DelayJitterBounds(t *testing.T) {
	r := NewRetrier(RetryConfig{
		BaseDelay: time.Second,
		MaxDelay:  time.Hour,
	})

	for i := 0; i < 200; i++ {
		d := r.delay(1)
		assert.GreaterOrEqual(t, d, time.Duration(1350*float64(time.Millisecond)))
		assert.LessOrEqual(t, d, time.Duration(1650*float64(time.Millisecond)))
	}
}

func TestRetry_Convenience(t *testing.T) {
	calls := 0
	err := Retry(context.Background(), "op", func(ctx context.Context) error {
		calls++
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}
