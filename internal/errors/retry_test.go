package errors

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastRetry(max int) RetryConfig {
	return RetryConfig{
		MaxRetries:   max,
		InitialDelay: time.Millisecond,
		MaxDelay:     2 * time.Millisecond,
		Multiplier:   2,
	}
}

func TestRetryWithResult_SucceedsAfterRetryableFailures(t *testing.T) {
	calls := 0
	got, err := RetryWithResult(context.Background(), fastRetry(3), func() (int, error) {
		calls++
		if calls < 3 {
			return 0, NetworkError("timeout", nil)
		}
		return 42, nil
	})

	require.NoError(t, err)
	assert.Equal(t, 42, got)
	assert.Equal(t, 3, calls)
}

func TestRetryWithResult_StopsOnNonRetryable(t *testing.T) {
	calls := 0
	_, err := RetryWithResult(context.Background(), fastRetry(5), func() (int, error) {
		calls++
		return 0, New(ErrCodeEngineStatus, "400 bad request", nil)
	})

	require.Error(t, err)
	assert.Equal(t, 1, calls)
	assert.Equal(t, ErrCodeEngineStatus, GetCode(err))
}

func TestRetryWithResult_ExhaustsRetries(t *testing.T) {
	calls := 0
	_, err := RetryWithResult(context.Background(), fastRetry(2), func() (string, error) {
		calls++
		return "", NetworkError("down", nil)
	})

	require.Error(t, err)
	assert.Equal(t, 3, calls)
	assert.Contains(t, err.Error(), "failed after 2 retries")
	assert.True(t, IsRetryable(err))
}

func TestRetry_CustomPredicate(t *testing.T) {
	cfg := fastRetry(2)
	cfg.ShouldRetry = func(error) bool { return true }

	calls := 0
	err := Retry(context.Background(), cfg, func() error {
		calls++
		return errors.New("anything")
	})

	require.Error(t, err)
	assert.Equal(t, 3, calls)
}

func TestRetry_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	calls := 0
	err := Retry(ctx, fastRetry(3), func() error {
		calls++
		return nil
	})

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, calls)
}
