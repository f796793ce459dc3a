package queue

import (
	"context"
	"errors"

	"github.com/4245877/liteforest-backend/pkg/db/models"
)

// Queue names used across the platform.
const (
	QueueImageProcessing = "image-processing"
	QueueBulkImports     = "bulk-imports"
)

// Handler executes one claimed job. A nil return deletes the job; an error
// re-queues it with backoff until attempts are exhausted.
type Handler func(ctx context.Context, job models.Job) error

// ExhaustedHook runs after a job's final failed attempt, before the row is
// marked terminal. Hook errors are logged, never retried.
type ExhaustedHook func(ctx context.Context, job models.Job, cause error)

// NonRetryableError marks a handler failure as terminal regardless of how
// many attempts remain.
type NonRetryableError struct {
	Err error
}

// NewNonRetryableError wraps err so the dispatcher stops retrying.
func NewNonRetryableError(err error) NonRetryableError {
	return NonRetryableError{Err: err}
}

func (e NonRetryableError) Error() string {
	if e.Err == nil {
		return "non-retryable failure"
	}
	return e.Err.Error()
}

func (e NonRetryableError) Unwrap() error {
	return e.Err
}

// IsNonRetryable reports whether err carries a NonRetryableError anywhere in
// its chain.
func IsNonRetryable(err error) bool {
	var target NonRetryableError
	return errors.As(err, &target)
}
