package carrier

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func testPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts:  3,
		BaseDelay:    time.Millisecond,
		MaxDelay:     5 * time.Millisecond,
		JitterFactor: 0.1,
	}
}

func TestRetrySucceedsAfterTransientFailures(t *testing.T) {
	attempts := 0
	err := testPolicy().Do(context.Background(), "test-op", isRetryable, func() error {
		attempts++
		if attempts < 3 {
			return &APIError{Service: serviceName, StatusCode: http.StatusInternalServerError, Message: "boom"}
		}
		return nil
	})

	require.NoError(t, err)
	require.Equal(t, 3, attempts)
}

func TestRetryStopsOnNonRetryableError(t *testing.T) {
	attempts := 0
	err := testPolicy().Do(context.Background(), "test-op", isRetryable, func() error {
		attempts++
		return &APIError{Service: serviceName, StatusCode: http.StatusNotFound, Message: "not found"}
	})

	require.Error(t, err)
	require.Equal(t, 1, attempts, "a 404 must not be retried")
	require.True(t, IsNotFound(err))
}

func TestRetryExhaustsAttempts(t *testing.T) {
	attempts := 0
	failure := &APIError{Service: serviceName, StatusCode: http.StatusServiceUnavailable, Message: "unavailable"}

	err := testPolicy().Do(context.Background(), "test-op", isRetryable, func() error {
		attempts++
		return failure
	})

	require.Equal(t, 3, attempts)
	require.ErrorIs(t, err, failure)
}

func TestRetryAbortsOnContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	policy := RetryPolicy{
		MaxAttempts:  3,
		BaseDelay:    time.Minute,
		MaxDelay:     time.Minute,
		JitterFactor: 0,
	}

	attempts := 0
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	err := policy.Do(ctx, "test-op", isRetryable, func() error {
		attempts++
		return &APIError{Service: serviceName, StatusCode: http.StatusInternalServerError, Message: "boom"}
	})

	require.ErrorIs(t, err, context.Canceled)
	require.Equal(t, 1, attempts, "cancellation during backoff must stop further attempts")
}

func TestBackoffDelayGrowsAndCaps(t *testing.T) {
	policy := RetryPolicy{
		BaseDelay:    time.Second,
		MaxDelay:     4 * time.Second,
		JitterFactor: 0,
	}

	require.Equal(t, time.Second, policy.backoffDelay(1))
	require.Equal(t, 2*time.Second, policy.backoffDelay(2))
	require.Equal(t, 4*time.Second, policy.backoffDelay(3))
	require.Equal(t, 4*time.Second, policy.backoffDelay(4))
	require.Equal(t, 4*time.Second, policy.backoffDelay(10))
}

func TestBackoffDelayJitterBounds(t *testing.T) {
	policy := RetryPolicy{
		BaseDelay:    time.Second,
		MaxDelay:     10 * time.Second,
		JitterFactor: 0.5,
	}

	for i := 0; i < 100; i++ {
		delay := policy.backoffDelay(2)
		require.GreaterOrEqual(t, delay, 2*time.Second)
		require.LessOrEqual(t, delay, 3*time.Second)
	}
}

func TestIsRetryableClassification(t *testing.T) {
	require.True(t, isRetryable(&APIError{StatusCode: 0}), "network errors are transient")
	require.True(t, isRetryable(&APIError{StatusCode: http.StatusTooManyRequests}))
	require.True(t, isRetryable(&APIError{StatusCode: http.StatusInternalServerError}))
	require.True(t, isRetryable(&APIError{StatusCode: http.StatusBadGateway}))

	require.False(t, isRetryable(&APIError{StatusCode: http.StatusNotFound}))
	require.False(t, isRetryable(&APIError{StatusCode: http.StatusBadRequest}))
	require.False(t, isRetryable(&APIError{StatusCode: http.StatusConflict}))
	require.False(t, isRetryable(context.Canceled))
}
