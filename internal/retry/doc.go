// Package retry re-runs database work that failed for a transient reason.
//
// An ingest step is a single transaction; if it is aborted by a
// serialization failure, a deadlock, a dropped connection or a locked
// SQLite file, the whole step is retried with exponential backoff.
// Errors such as foreign key or constraint violations are fatal and
// returned on the first attempt.
//
//	exec := retry.NewExecutor(retry.NewStoreErrorClassifier(), retry.NewExponentialBackoff(3))
//	err := exec.Execute(ctx, func(ctx context.Context) error {
//	    return runStep(ctx)
//	})
package retry
