package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors used across all layers.
var (
	ErrNotFound      = errors.New("not found")
	ErrAlreadyExists = errors.New("already exists")
	ErrValidation    = errors.New("validation error")
	ErrUnauthorized  = errors.New("unauthorized")
	ErrForbidden     = errors.New("forbidden")
	ErrConflict      = errors.New("conflict")
)

// Lifecycle errors returned by the tracking and approval services.
// Each maps 1:1 to a distinct user-facing message.
var (
	ErrAlreadyWorking  = errors.New("work item is already being worked on")
	ErrNotWorking      = errors.New("work item is not being worked on")
	ErrNotPaused       = errors.New("work item is not paused")
	ErrAlreadyFinished = errors.New("work item is already finished")
	ErrNotAssigned     = errors.New("work item is not assigned to this user")
	ErrNotAuthorized   = errors.New("user is not authorized to review this item")
	ErrNotPending      = errors.New("work item is not pending review")
)

// ConcurrencyLimitError is returned when activating a work item would exceed
// the per-user cap on simultaneously active items. It carries the live count
// so the caller can render "you already have N active items".
type ConcurrencyLimitError struct {
	Current int
	Cap     int
}

func (e *ConcurrencyLimitError) Error() string {
	return fmt.Sprintf("active item limit reached: %d of %d", e.Current, e.Cap)
}

func (e *ConcurrencyLimitError) Unwrap() error { return ErrConflict }

// FieldError describes a validation error for a specific field.
type FieldError struct {
	Field   string
	Message string
}

// ValidationError contains a list of field-level validation errors.
type ValidationError struct {
	Errors []FieldError
}

func (e *ValidationError) Error() string {
	if len(e.Errors) == 1 {
		return fmt.Sprintf("validation: %s — %s", e.Errors[0].Field, e.Errors[0].Message)
	}
	return fmt.Sprintf("validation: %d errors", len(e.Errors))
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// NewValidationError creates a ValidationError for a single field.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{
		Errors: []FieldError{{Field: field, Message: message}},
	}
}

// NewValidationErrors creates a ValidationError from multiple field errors.
func NewValidationErrors(errs []FieldError) *ValidationError {
	return &ValidationError{Errors: errs}
}
