package domain

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned when a task id does not exist for get or update.
var ErrNotFound = errors.New("task not found")

// ValidationError reports client input that fails a stated constraint.
type ValidationError struct {
	Reason  string
	Message string
}

func (e *ValidationError) Error() string { return e.Reason }

var (
	ErrTitleRequired = &ValidationError{Reason: "title required", Message: "Title is required and cannot be empty"}
	ErrTitleTooLong  = &ValidationError{Reason: "title too long", Message: fmt.Sprintf("Title cannot exceed %d characters", MaxTitleLength)}
)

// BackendError wraps a failure of the storage backend.
type BackendError struct {
	Op  string
	Err error
}

func (e *BackendError) Error() string {
	return fmt.Sprintf("backend %s: %v", e.Op, e.Err)
}

func (e *BackendError) Unwrap() error { return e.Err }
