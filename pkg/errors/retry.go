// Package errors provides retry mechanisms with exponential backoff and
// jitter for resilient handling of oracle and workspace operations.
package errors

import (
	"context"
	"crypto/rand"
	"math/big"
	"time"

	"github.com/codemend/codemend/pkg/clock"
)

// RetryConfig configures retry behavior
type RetryConfig struct {
	MaxAttempts         int
	InitialInterval     time.Duration
	MaxInterval         time.Duration
	Multiplier          float64
	RandomizationFactor float64
}

// DefaultRetryConfig returns a default retry configuration
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:         3,
		InitialInterval:     time.Second,
		MaxInterval:         30 * time.Second,
		Multiplier:          2.0,
		RandomizationFactor: 0.1,
	}
}

// RetryableFunc is a function that can be retried
type RetryableFunc func() error

// ShouldRetryFunc determines if an error should trigger a retry
type ShouldRetryFunc func(error) bool

// DefaultShouldRetry retries recoverable structured errors only.
func DefaultShouldRetry(err error) bool {
	if err == nil {
		return false
	}

	if cmErr, ok := err.(*codemendError); ok {
		return cmErr.IsRecoverable()
	}

	// For unstructured errors, be conservative and don't retry.
	return false
}

// OracleShouldRetry retries oracle failures and timeouts; each retry is an
// independent attempt with no state carried over.
func OracleShouldRetry(err error) bool {
	if err == nil {
		return false
	}

	if cmErr, ok := err.(*codemendError); ok {
		return cmErr.Type() == ErrorTypeOracle || cmErr.Type() == ErrorTypeOracleTimeout
	}

	return false
}

// Retry executes a function with retry logic
func Retry(ctx context.Context, config RetryConfig, fn RetryableFunc, shouldRetry ShouldRetryFunc) error {
	return RetryWithClock(ctx, clock.NewRealClock(), config, fn, shouldRetry)
}

// RetryWithClock executes a function with retry logic using a custom clock
func RetryWithClock(ctx context.Context, clk clock.Clock, config RetryConfig, fn RetryableFunc, shouldRetry ShouldRetryFunc) error {
	if shouldRetry == nil {
		shouldRetry = DefaultShouldRetry
	}

	var lastErr error
	interval := config.InitialInterval

	for attempt := 0; attempt < config.MaxAttempts; attempt++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		err := fn()
		if err == nil {
			return nil
		}

		lastErr = err

		if !shouldRetry(err) {
			return err
		}

		if attempt == config.MaxAttempts-1 {
			break
		}

		nextInterval := time.Duration(float64(interval) * config.Multiplier)
		if nextInterval > config.MaxInterval {
			nextInterval = config.MaxInterval
		}

		// Jitter prevents dispatch workers from retrying in lockstep.
		maxJitter := int64(float64(nextInterval) * config.RandomizationFactor)
		if maxJitter > 0 {
			jitterValue, err := rand.Int(rand.Reader, big.NewInt(maxJitter*2))
			if err == nil {
				jitter := time.Duration(jitterValue.Int64() - maxJitter)
				nextInterval += jitter
			}
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-clk.After(interval):
		}

		interval = nextInterval
	}

	return NewError(ErrorTypeWorkflow).
		WithMessage("operation failed after maximum retry attempts").
		WithCause(lastErr).
		WithSeverity(SeverityHigh).
		WithContext("max_attempts", config.MaxAttempts).
		Build()
}
