package domain

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound            = errors.New("not found")
	ErrReferenceNotFound   = errors.New("reference not found")
	ErrConflict            = errors.New("conflict")
	ErrUpstreamUnavailable = errors.New("upstream unavailable")
	ErrInvalidLabel        = errors.New("invalid label")
	ErrValidation          = errors.New("validation failed")
)

// NotFoundError names the entity that could not be loaded.
type NotFoundError struct {
	Entity string
	ID     string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Entity, e.ID)
}

func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }

// ReferenceError is returned when a create or link points at a parent row
// that does not exist or has been soft-deleted.
type ReferenceError struct {
	Entity string
	ID     string
}

func (e *ReferenceError) Error() string {
	return fmt.Sprintf("referenced %s %q does not exist", e.Entity, e.ID)
}

func (e *ReferenceError) Is(target error) bool { return target == ErrReferenceNotFound }

// UpstreamError wraps a failed call to the hosted agent API.
type UpstreamError struct {
	Op     string
	Status int
	Err    error
}

func (e *UpstreamError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("upstream %s failed (status %d): %v", e.Op, e.Status, e.Err)
	}
	return fmt.Sprintf("upstream %s failed: %v", e.Op, e.Err)
}

func (e *UpstreamError) Unwrap() error { return e.Err }

func (e *UpstreamError) Is(target error) bool { return target == ErrUpstreamUnavailable }

// LabelError explains why an evaluator label was rejected.
type LabelError struct {
	Category string
	Topic    string
	Reason   string
}

func (e *LabelError) Error() string {
	return fmt.Sprintf("invalid label category=%q topic=%q: %s", e.Category, e.Topic, e.Reason)
}

func (e *LabelError) Is(target error) bool { return target == ErrInvalidLabel }

// ValidationError reports a malformed request field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Reason
	}
	return fmt.Sprintf("%s %s", e.Field, e.Reason)
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// Required returns a ValidationError for a missing field.
func Required(field string) error {
	return &ValidationError{Field: field, Reason: "is required"}
}
