package resilience

import (
	"context"
	"math"
	"math/rand"
	"time"

	apperrors "github.com/clipscommerce/socialscan/pkg/errors"
	"github.com/clipscommerce/socialscan/pkg/logging"
)

// RetryConfig holds configuration for the retry executor.
type RetryConfig struct {
	// MaxRetries is the number of retries after the initial attempt, so an
	// operation runs at most MaxRetries+1 times.
	MaxRetries int
	// BaseDelay scales the backoff curve.
	BaseDelay time.Duration
	// MaxDelay caps the delay between attempts.
	MaxDelay time.Duration
	// RetryableErrors decides whether an error is worth another attempt.
	RetryableErrors func(error) bool
	// OnRetry is called after each failed attempt, before the delay.
	OnRetry func(attempt int, err error, delay time.Duration)
}

// DefaultRetryConfig returns the default retry configuration.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:      3,
		BaseDelay:       1 * time.Second,
		MaxDelay:        10 * time.Second,
		RetryableErrors: apperrors.IsRetryable,
	}
}

// Retrier executes fallible operations with bounded retries and
// decorrelated exponential backoff.
type Retrier struct {
	config RetryConfig
	logger *logging.Logger

	// sleep and jitter are swappable for tests.
	sleep  func(ctx context.Context, d time.Duration) error
	jitter func() float64
}

// NewRetrier creates a retrier with the given configuration.
func NewRetrier(config RetryConfig) *Retrier {
	if config.MaxRetries < 0 {
		config.MaxRetries = 0
	}
	if config.BaseDelay <= 0 {
		config.BaseDelay = DefaultRetryConfig().BaseDelay
	}
	if config.MaxDelay <= 0 {
		config.MaxDelay = DefaultRetryConfig().MaxDelay
	}
	if config.RetryableErrors == nil {
		config.RetryableErrors = apperrors.IsRetryable
	}
	return &Retrier{
		config: config,
		logger: logging.GetLogger(),
		sleep:  sleepCtx,
		jitter: func() float64 { return 0.9 + rand.Float64()*0.2 },
	}
}

// Do executes the operation, retrying on retryable errors until the retry
// budget is exhausted. The error from the last attempt is returned, not
// swallowed or replaced. Context cancellation aborts the backoff wait.
func (r *Retrier) Do(ctx context.Context, name string, operation func(context.Context) error) error {
	var lastErr error

	attempts := r.config.MaxRetries + 1
	for attempt := 1; attempt <= attempts; attempt++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		err := operation(ctx)
		if err == nil {
			if attempt > 1 {
				r.logger.Info("Operation succeeded after retry",
					"operation", name,
					"attempt", attempt,
				)
			}
			return nil
		}
		lastErr = err

		if !r.config.RetryableErrors(err) {
			r.logger.Debug("Error is not retryable, stopping",
				"operation", name,
				"error", err.Error(),
				"attempt", attempt,
			)
			return err
		}

		if attempt == attempts {
			break
		}

		delay := r.delay(attempt)
		r.logger.Warn("Operation failed, retrying",
			"operation", name,
			"error", err.Error(),
			"attempt", attempt,
			"max_attempts", attempts,
			"delay", delay.String(),
		)
		if r.config.OnRetry != nil {
			r.config.OnRetry(attempt, err, delay)
		}

		if err := r.sleep(ctx, delay); err != nil {
			return err
		}
	}

	r.logger.Error("Operation failed after all retry attempts",
		"operation", name,
		"error", lastErr.Error(),
		"attempts", attempts,
	)
	return lastErr
}

// delay computes the backoff before retry attempt n (1-indexed):
// min(MaxDelay, BaseDelay * 1.5^n * jitter), jitter uniform in [0.9, 1.1].
// The jitter decorrelates concurrent callers so exhausted upstreams are
// not hammered in lockstep.
func (r *Retrier) delay(attempt int) time.Duration {
	d := float64(r.config.BaseDelay) * math.Pow(1.5, float64(attempt)) * r.jitter()
	if max := float64(r.config.MaxDelay); d > max {
		d = max
	}
	return time.Duration(d)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Retry is a convenience helper using the default configuration.
func Retry(ctx context.Context, name string, operation func(context.Context) error) error {
	return NewRetrier(DefaultRetryConfig()).Do(ctx, name, operation)
}
