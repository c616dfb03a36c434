package retry

import (
	"context"
	"time"

	"github.com/vvka-141/dlsync/pkg/dlsync"
)

// Executor runs an operation until it succeeds, fails with a non-transient
// error, or runs out of attempts. It is safe for concurrent use.
type Executor struct {
	classifier dlsync.ErrorClassifier
	strategy   dlsync.BackoffStrategy
	onRetry    func(attempt int, err error, delay time.Duration)
}

// NewExecutor creates an Executor.
// Panics if classifier or strategy is nil.
func NewExecutor(classifier dlsync.ErrorClassifier, strategy dlsync.BackoffStrategy) *Executor {
	if classifier == nil {
		panic("classifier cannot be nil")
	}
	if strategy == nil {
		panic("strategy cannot be nil")
	}
	return &Executor{classifier: classifier, strategy: strategy}
}

// NewDefaultExecutor uses the PostgreSQL classifier and the default retry settings.
// Retries are reported through logger.
func NewDefaultExecutor(logger dlsync.Logger) *Executor {
	exec := NewExecutor(NewClassifier(), NewExponentialBackoff(dlsync.DefaultRetryMaxAttempts))
	if logger == nil {
		return exec
	}
	return exec.WithOnRetry(func(attempt int, err error, delay time.Duration) {
		logger.Verbose("Attempt %d failed (%v), retrying in %s", attempt+1, err, delay.Round(time.Millisecond))
	})
}

// WithOnRetry returns a copy of e that calls fn before each wait.
func (e *Executor) WithOnRetry(fn func(attempt int, err error, delay time.Duration)) *Executor {
	clone := *e
	clone.onRetry = fn
	return &clone
}

// Execute runs op, retrying transient failures. The returned error is the
// last one op produced, or the context error if ctx ends while waiting.
func (e *Executor) Execute(ctx context.Context, op func(ctx context.Context) error) error {
	err := op(ctx)
	maxAttempts := e.strategy.MaxAttempts()

	for attempt := 0; err != nil && e.classifier.IsTransient(err); attempt++ {
		if maxAttempts >= 0 && attempt >= maxAttempts {
			break
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}

		delay := e.strategy.NextDelay(attempt)
		if e.onRetry != nil {
			e.onRetry(attempt, err, delay)
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}

		err = op(ctx)
	}
	return err
}
