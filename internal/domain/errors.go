// Package domain provides shared domain-level sentinel errors.
package domain

import (
	"errors"
	"fmt"
)

// ErrNotFound indicates the requested entity does not exist.
var ErrNotFound = errors.New("not found")

// ErrConflict indicates an invariant violation caused by concurrent or
// conflicting state (e.g. a second task entering in_progress).
var ErrConflict = errors.New("conflict")

// ErrValidation indicates malformed, missing, or out-of-range input.
var ErrValidation = errors.New("validation failed")

// ValidationError wraps ErrValidation with a caller-facing message.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return "validation failed: " + e.Msg }

func (e *ValidationError) Unwrap() error { return ErrValidation }

// Validationf builds a ValidationError from a format string.
func Validationf(format string, args ...any) error {
	return &ValidationError{Msg: fmt.Sprintf(format, args...)}
}

// ConflictError reports a single-active-task violation. It names the task
// that currently holds the in_progress slot so callers can present an
// actionable message.
type ConflictError struct {
	BlockingTaskID    string
	BlockingTaskTitle string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("only one task can be in progress for this client: %q is already active", e.BlockingTaskTitle)
}

func (e *ConflictError) Unwrap() error { return ErrConflict }
