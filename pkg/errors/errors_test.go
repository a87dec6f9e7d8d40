package errors

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codemend/codemend/pkg/clock"
)

func TestErrorBuilder(t *testing.T) {
	cause := errors.New("underlying failure")

	err := NewError(ErrorTypeOracle).
		WithMessage("fix dispatch failed").
		WithCause(cause).
		WithSeverity(SeverityHigh).
		WithContext("cluster", "ab12cd34").
		WithRecoverable(true).
		Build()

	assert.Contains(t, err.Error(), "[oracle:high]")
	assert.Contains(t, err.Error(), "fix dispatch failed")
	assert.Contains(t, err.Error(), "underlying failure")

	assert.True(t, IsType(err, ErrorTypeOracle))
	assert.False(t, IsType(err, ErrorTypeMerge))
	assert.True(t, IsSeverity(err, SeverityHigh))
	assert.True(t, IsRecoverable(err))
	assert.Equal(t, "ab12cd34", GetContext(err)["cluster"])
	assert.Equal(t, cause, errors.Unwrap(err))
}

func TestErrorTypeStrings(t *testing.T) {
	tests := []struct {
		errorType ErrorType
		expected  string
	}{
		{ErrorTypeConfiguration, "configuration"},
		{ErrorTypeWorkspace, "workspace"},
		{ErrorTypeOracle, "oracle"},
		{ErrorTypeOracleTimeout, "oracle-timeout"},
		{ErrorTypeMerge, "merge"},
		{ErrorTypeDiagnosis, "diagnosis"},
		{ErrorTypeUnknown, "unknown"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, tt.errorType.String())
	}
}

func TestConvenienceConstructors(t *testing.T) {
	cfgErr := ConfigurationError("max_workers must be at least 1")
	assert.True(t, IsType(cfgErr, ErrorTypeConfiguration))
	assert.False(t, IsRecoverable(cfgErr))

	oracleErr := OracleError("cluster fix", errors.New("exit status 1"))
	assert.True(t, IsType(oracleErr, ErrorTypeOracle))
	assert.True(t, IsRecoverable(oracleErr))

	timeoutErr := OracleTimeoutError("cluster fix", context.DeadlineExceeded)
	assert.True(t, IsType(timeoutErr, ErrorTypeOracleTimeout))
	assert.True(t, OracleShouldRetry(timeoutErr))

	diagErr := DiagnosisUnavailableError("main.py", errors.New("linter crashed"))
	assert.True(t, IsType(diagErr, ErrorTypeDiagnosis))
	assert.Equal(t, "main.py", GetContext(diagErr)["file"])
}

func TestRetrySucceedsAfterFailures(t *testing.T) {
	clk := clock.NewFakeClock(time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC))

	calls := 0
	fn := func() error {
		calls++
		if calls < 3 {
			return OracleError("cluster fix", fmt.Errorf("attempt %d", calls))
		}
		return nil
	}

	done := make(chan error, 1)
	go func() {
		done <- RetryWithClock(context.Background(), clk, DefaultRetryConfig(), fn, OracleShouldRetry)
	}()

	// Two failed attempts each wait before retrying.
	for i := 0; i < 2; i++ {
		time.Sleep(10 * time.Millisecond)
		clk.Advance(time.Minute)
	}

	require.NoError(t, <-done)
	assert.Equal(t, 3, calls)
}

func TestRetryExhaustsAttempts(t *testing.T) {
	clk := clock.NewFakeClock(time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC))

	calls := 0
	fn := func() error {
		calls++
		return OracleError("cluster fix", errors.New("persistent failure"))
	}

	done := make(chan error, 1)
	go func() {
		done <- RetryWithClock(context.Background(), clk, DefaultRetryConfig(), fn, OracleShouldRetry)
	}()

	for i := 0; i < 2; i++ {
		time.Sleep(10 * time.Millisecond)
		clk.Advance(time.Minute)
	}

	err := <-done
	require.Error(t, err)
	assert.True(t, IsType(err, ErrorTypeWorkflow))
	assert.Equal(t, 3, calls)
}

func TestRetryStopsOnNonRetryable(t *testing.T) {
	clk := clock.NewFakeClock(time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC))

	calls := 0
	fn := func() error {
		calls++
		return ConfigurationError("bad config")
	}

	err := RetryWithClock(context.Background(), clk, DefaultRetryConfig(), fn, OracleShouldRetry)
	require.Error(t, err)
	assert.True(t, IsType(err, ErrorTypeConfiguration))
	assert.Equal(t, 1, calls)
}

func TestRetryHonorsContextCancellation(t *testing.T) {
	clk := clock.NewFakeClock(time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := RetryWithClock(ctx, clk, DefaultRetryConfig(), func() error {
		return OracleError("cluster fix", errors.New("never reached"))
	}, OracleShouldRetry)

	assert.ErrorIs(t, err, context.Canceled)
}
