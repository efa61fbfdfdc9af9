// Package retry re-runs history store operations that fail with transient database errors.
// Remote calls to the test-management service are never retried here.
package retry

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/loykin/zephyrrun/internal/common"
)

type Config struct {
	MaxRetries      int
	InitialDelay    time.Duration
	MaxDelay        time.Duration
	BackoffFactor   float64
	RetryableErrors []string // lower-case substrings matched against the error text
}

func DefaultRetryConfig() *Config {
	return &Config{
		MaxRetries:    3,
		InitialDelay:  100 * time.Millisecond,
		MaxDelay:      5 * time.Second,
		BackoffFactor: 2.0,
		RetryableErrors: []string{
			"connection refused",
			"connection reset",
			"timeout",
			"deadlock",
			"database is locked",
			"sqlite_busy",
			"too many clients",
			"broken pipe",
		},
	}
}

func (rc *Config) isRetryableError(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, s := range rc.RetryableErrors {
		if strings.Contains(msg, s) {
			return true
		}
	}
	return false
}

// calculateDelay returns the backoff before retry number attempt (1-based), capped at MaxDelay.
func (rc *Config) calculateDelay(attempt int) time.Duration {
	if attempt <= 1 {
		return rc.InitialDelay
	}
	d := time.Duration(float64(rc.InitialDelay) * math.Pow(rc.BackoffFactor, float64(attempt-1)))
	if d > rc.MaxDelay {
		d = rc.MaxDelay
	}
	return d
}

// WithRetry runs op until it succeeds, fails with a non-retryable error, retries run out,
// or ctx is done.
func WithRetry(ctx context.Context, config *Config, op func() error) error {
	_, err := WithResult(ctx, config, func() (struct{}, error) { return struct{}{}, op() })
	return err
}

// WithResult is WithRetry for operations that produce a value.
func WithResult[T any](ctx context.Context, config *Config, op func() (T, error)) (T, error) {
	if config == nil {
		config = DefaultRetryConfig()
	}
	logger := common.GetLogger().WithComponent("store-retry")

	var zero T
	var lastErr error
	for attempt := 0; attempt <= config.MaxRetries; attempt++ {
		v, err := op()
		if err == nil {
			if attempt > 0 {
				logger.Info("database operation succeeded after retry", "attempt", attempt+1)
			}
			return v, nil
		}
		lastErr = err
		if attempt == config.MaxRetries {
			break
		}
		if !config.isRetryableError(err) {
			return zero, err
		}
		delay := config.calculateDelay(attempt + 1)
		logger.Warn("database operation failed, retrying", "error", err, "attempt", attempt+1, "retry_delay", delay)

		t := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			t.Stop()
			return zero, fmt.Errorf("operation cancelled during retry: %w", ctx.Err())
		case <-t.C:
		}
	}
	logger.Error("database operation failed after all retry attempts", "error", lastErr, "attempts", config.MaxRetries+1)
	return zero, fmt.Errorf("operation failed after %d attempts: %w", config.MaxRetries+1, lastErr)
}
