// Package retry re-runs operations that fail with transient database errors.
//
// An Executor combines a dlsync.ErrorClassifier, which decides whether an
// error is worth another attempt, with a dlsync.BackoffStrategy, which decides
// how long to wait. dlsync uses it when opening the target connection pool and
// when preparing the history store.
//
//	exec := retry.NewExecutor(retry.NewClassifier(), retry.NewExponentialBackoff(3))
//	err := exec.Execute(ctx, func(ctx context.Context) error {
//	    return pool.Ping(ctx)
//	})
package retry
