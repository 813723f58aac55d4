package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastPolicy(attempts int) Policy {
	return Policy{
		MaxAttempts:     attempts,
		InitialInterval: time.Millisecond,
		MaxInterval:     2 * time.Millisecond,
		Multiplier:      2,
	}
}

func TestRetry(t *testing.T) {
	transient := errors.New("transient")

	tests := []struct {
		name      string
		failures  int
		fatal     bool
		attempts  int
		wantCalls int
		wantErr   bool
	}{
		{name: "first try succeeds", failures: 0, attempts: 3, wantCalls: 1},
		{name: "succeeds after retries", failures: 2, attempts: 3, wantCalls: 3},
		{name: "attempts exhausted", failures: 5, attempts: 3, wantCalls: 3, wantErr: true},
		{name: "fatal error stops immediately", failures: 5, fatal: true, attempts: 3, wantCalls: 1, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			calls := 0
			err := Retry(context.Background(), fastPolicy(tt.attempts), func() error {
				calls++
				if calls <= tt.failures {
					if tt.fatal {
						return NewFatalError(transient)
					}
					return transient
				}
				return nil
			})

			assert.Equal(t, tt.wantCalls, calls)
			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, transient)
			} else {
				require.NoError(t, err)
			}
		})
	}
}

func TestRetryWithCallback(t *testing.T) {
	var attempts []int
	err := RetryWithCallback(context.Background(), fastPolicy(3), func() error {
		return errors.New("always")
	}, func(attempt int, err error, nextDelay time.Duration) {
		attempts = append(attempts, attempt)
		assert.Positive(t, nextDelay)
	})

	require.Error(t, err)
	assert.Equal(t, []int{1, 2}, attempts)
}

func TestCalculateBackoffDuration(t *testing.T) {
	assert.Equal(t, 200*time.Millisecond, CalculateBackoffDuration(1, 100*time.Millisecond, 2, time.Second))
	assert.Equal(t, time.Second, CalculateBackoffDuration(10, 100*time.Millisecond, 2, time.Second))
}
