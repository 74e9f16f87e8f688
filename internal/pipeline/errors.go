package pipeline

import (
	"errors"
	"fmt"

	"github.com/roach88/tuition/internal/store"
)

// ErrorCode categorizes task failures.
type ErrorCode string

const (
	// ErrCodeFeedUnavailable indicates a network error, timeout or non-200 response.
	ErrCodeFeedUnavailable ErrorCode = "FEED_UNAVAILABLE"

	// ErrCodeFeedMalformed indicates a body or record that could not be decoded.
	ErrCodeFeedMalformed ErrorCode = "FEED_MALFORMED"

	// ErrCodeMissingFeedURL indicates no feed endpoint is configured.
	ErrCodeMissingFeedURL ErrorCode = "MISSING_FEED_URL"

	// ErrCodeInvalidTask indicates a task that cannot be executed as stored.
	ErrCodeInvalidTask ErrorCode = "INVALID_TASK"

	// ErrCodeStoreFailure indicates the rate store or queue rejected an operation.
	ErrCodeStoreFailure ErrorCode = "STORE_FAILURE"
)

// TaskError is returned when a task or a scheduling request fails.
type TaskError struct {
	// Kind is the task kind (year, upsert, delete).
	Kind string

	// TaskID is empty for failures raised before a task exists.
	TaskID string

	Code ErrorCode
	Err  error
}

// Error implements the error interface.
func (e *TaskError) Error() string {
	if e.TaskID != "" {
		return fmt.Sprintf("%s: %s task %s: %v", e.Code, e.Kind, e.TaskID, e.Err)
	}
	return fmt.Sprintf("%s: %s: %v", e.Code, e.Kind, e.Err)
}

// Unwrap returns the underlying cause.
func (e *TaskError) Unwrap() error {
	return e.Err
}

// CodeOf returns the ErrorCode of err, or "" if err is not a TaskError.
// Uses errors.As to handle wrapped errors.
func CodeOf(err error) ErrorCode {
	var te *TaskError
	if errors.As(err, &te) {
		return te.Code
	}
	return ""
}

func taskErr(t store.Task, code ErrorCode, err error) *TaskError {
	return &TaskError{Kind: t.Kind, TaskID: t.ID, Code: code, Err: err}
}
