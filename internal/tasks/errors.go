package tasks

import "errors"

// errTimeout is the cause wrapped into a retryable TaskError when a
// task attempt exceeds its configured timeout.
var errTimeout = errors.New("task execution timed out")

// TaskError wraps a task failure with an explicit retryable flag, so
// that callers plugging their own agent driver into ExecuteFunc can
// carry through a tool or run error's own retryability (per the
// scheduler's "tool errors inherit their own retryable flag" rule)
// without this package depending on the agent package's error types.
type TaskError struct {
	cause     error
	retryable bool
}

// NewTaskError wraps cause with an explicit retryable flag.
func NewTaskError(cause error, retryable bool) *TaskError {
	return &TaskError{cause: cause, retryable: retryable}
}

func (e *TaskError) Error() string {
	return e.cause.Error()
}

func (e *TaskError) Unwrap() error {
	return e.cause
}

// Retryable reports whether the scheduler should retry the task that
// produced this error.
func (e *TaskError) Retryable() bool {
	return e.retryable
}

func isRetryable(err error) bool {
	var te *TaskError
	if errors.As(err, &te) {
		return te.retryable
	}
	return false
}
