package pipeline

import (
	"errors"
	"fmt"
)

// Stage identifies where in the batch a failure happened.
type Stage string

const (
	// StageReconcile covers opportunity find-or-create store calls.
	StageReconcile Stage = "reconcile"
	// StageSync covers suggestion diff/create/update writes.
	StageSync Stage = "sync"
	// StageDispatch covers top-level dispatch configuration failures.
	StageDispatch Stage = "dispatch"
)

// PipelineError is a structured batch failure. Store and queue level
// failures are retryable at the batch level; nothing is retried internally.
type PipelineError struct {
	Err       error
	Stage     Stage
	Message   string
	Retryable bool
}

// Error implements the error interface.
func (e *PipelineError) Error() string {
	return fmt.Sprintf("%s stage error: %s", e.Stage, e.Message)
}

// Unwrap returns the underlying error.
func (e *PipelineError) Unwrap() error {
	return e.Err
}

// newPipelineError wraps err with stage context.
func newPipelineError(stage Stage, err error) *PipelineError {
	return &PipelineError{
		Stage:     stage,
		Message:   err.Error(),
		Err:       err,
		Retryable: true,
	}
}

// IsRetryable reports whether err is a batch-retryable pipeline failure.
func IsRetryable(err error) bool {
	var pe *PipelineError
	if errors.As(err, &pe) {
		return pe.Retryable
	}
	return false
}
