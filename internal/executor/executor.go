// Package executor defines the contract for running a task against an
// external worker. An executor settles with a numeric result on success or
// an error on failure; the lifecycle engine records failures as data.
package executor

import (
	"context"
	"errors"

	"github.com/phrazzld/taskdeck-api/internal/domain"
	"github.com/phrazzld/taskdeck-api/internal/redact"
)

// TimeoutMessage is recorded when an attempt exceeds its deadline.
const TimeoutMessage = "Operation timed out"

// Executor runs a task and reports its numeric result.
type Executor interface {
	// Execute performs the task. A non-nil error marks the attempt as failed.
	Execute(ctx context.Context, task domain.Task) (float64, error)
}

// Func adapts an ordinary function to the Executor interface.
type Func func(ctx context.Context, task domain.Task) (float64, error)

// Execute calls f(ctx, task).
func (f Func) Execute(ctx context.Context, task domain.Task) (float64, error) {
	return f(ctx, task)
}

// ExecutionError is a failure reported by the worker itself, as opposed to a
// transport or timeout failure.
type ExecutionError struct {
	Message string
}

func (e *ExecutionError) Error() string {
	return "execution failed: " + e.Message
}

// NewExecutionError creates an ExecutionError with the given worker message.
func NewExecutionError(message string) *ExecutionError {
	return &ExecutionError{Message: message}
}

// ErrorValue converts an executor failure into the string stored in a
// task's error log. Worker messages are kept verbatim; any other error is
// redacted since it may carry worker URLs or credentials.
func ErrorValue(err error) string {
	if err == nil {
		return ""
	}

	var execErr *ExecutionError
	if errors.As(err, &execErr) {
		return execErr.Message
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return TimeoutMessage
	}

	return redact.Error(err)
}
