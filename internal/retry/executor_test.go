package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// flakyOperation fails with err for the first failures calls.
type flakyOperation struct {
	calls    int
	failures int
	err      error
}

func (f *flakyOperation) run(context.Context) error {
	f.calls++
	if f.calls <= f.failures {
		return f.err
	}
	return nil
}

func fastBackoff(maxAttempts int) *ExponentialBackoff {
	return NewExponentialBackoff(maxAttempts, WithInitialDelay(time.Millisecond), WithJitter(0))
}

var transientErr = &pgconn.PgError{Code: "08006", Message: "connection failure"}

func TestExecutor_Execute(t *testing.T) {
	tests := []struct {
		name        string
		maxAttempts int
		failures    int
		err         error
		wantCalls   int
		wantErr     bool
	}{
		{"first attempt succeeds", 3, 0, transientErr, 1, false},
		{"succeeds after retries", 5, 3, transientErr, 4, false},
		{"exhausts retries", 2, 10, transientErr, 3, true},
		{"fatal error not retried", 5, 10, &pgconn.PgError{Code: "42601"}, 1, true},
		{"zero attempts", 0, 10, transientErr, 1, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			op := &flakyOperation{failures: tt.failures, err: tt.err}
			err := NewExecutor(NewClassifier(), fastBackoff(tt.maxAttempts)).Execute(context.Background(), op.run)

			assert.Equal(t, tt.wantCalls, op.calls)
			if tt.wantErr {
				assert.Same(t, tt.err, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestExecutor_OnRetry(t *testing.T) {
	var attempts []int
	exec := NewExecutor(NewClassifier(), fastBackoff(3)).WithOnRetry(func(attempt int, err error, delay time.Duration) {
		attempts = append(attempts, attempt)
		assert.ErrorIs(t, err, transientErr)
		assert.Positive(t, delay)
	})

	op := &flakyOperation{failures: 2, err: transientErr}
	require.NoError(t, exec.Execute(context.Background(), op.run))
	assert.Equal(t, []int{0, 1}, attempts)
}

func TestExecutor_ContextCancelledWhileWaiting(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	slow := NewExponentialBackoff(5, WithInitialDelay(time.Hour), WithJitter(0))
	op := &flakyOperation{failures: 10, err: transientErr}

	err := NewExecutor(NewClassifier(), slow).Execute(ctx, op.run)
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
	assert.Equal(t, 1, op.calls)
}

func TestNewExecutor_PanicsOnNil(t *testing.T) {
	assert.Panics(t, func() { NewExecutor(nil, fastBackoff(1)) })
	assert.Panics(t, func() { NewExecutor(NewClassifier(), nil) })
}
