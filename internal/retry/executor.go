package retry

import (
	"context"
	"time"

	"github.com/vvka-141/crmingest/pkg/crmingest"
)

// Executor orchestrates retry attempts with backoff and error classification.
// It is safe for concurrent use; WithOnRetry returns a new instance.
type Executor struct {
	classifier crmingest.ErrorClassifier
	strategy   crmingest.BackoffStrategy
	onRetry    func(attempt int, err error, delay time.Duration)
}

// NewExecutor creates a new retry executor.
// Panics if classifier or strategy is nil.
func NewExecutor(classifier crmingest.ErrorClassifier, strategy crmingest.BackoffStrategy) *Executor {
	if classifier == nil {
		panic("classifier cannot be nil")
	}
	if strategy == nil {
		panic("strategy cannot be nil")
	}
	return &Executor{classifier: classifier, strategy: strategy}
}

// NewDefaultExecutor returns an executor using the store classifier and default backoff settings.
func NewDefaultExecutor() *Executor {
	return NewExecutor(NewStoreErrorClassifier(), NewExponentialBackoff(
		crmingest.DefaultRetryMaxAttempts,
		WithInitialDelay(crmingest.DefaultRetryInitialDelay),
		WithMaxDelay(crmingest.DefaultRetryMaxDelay),
	))
}

// WithOnRetry returns a copy of the Executor that calls callback before each retry.
func (e *Executor) WithOnRetry(callback func(attempt int, err error, delay time.Duration)) *Executor {
	clone := *e
	clone.onRetry = callback
	return &clone
}

// Execute runs operation, retrying transient failures.
// Returns nil on success, otherwise the error of the last attempt.
func (e *Executor) Execute(ctx context.Context, operation func(ctx context.Context) error) error {
	maxAttempts := e.strategy.MaxAttempts()

	lastErr := operation(ctx)
	if lastErr == nil || !e.classifier.IsTransient(lastErr) {
		return lastErr
	}

	for attempt := 0; maxAttempts < 0 || attempt < maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		delay := e.strategy.NextDelay(attempt)
		if e.onRetry != nil {
			e.onRetry(attempt, lastErr, delay)
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}

		lastErr = operation(ctx)
		if lastErr == nil || !e.classifier.IsTransient(lastErr) {
			return lastErr
		}
	}

	return lastErr
}
