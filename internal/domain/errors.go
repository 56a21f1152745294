package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound matches every *NotFoundError via errors.Is
	ErrNotFound = errors.New("not found")
	// ErrValidation matches every *ValidationError via errors.Is
	ErrValidation = errors.New("validation failed")
)

// NotFoundError reports a missing entity looked up by id
type NotFoundError struct {
	Entity string
	ID     any
}

// NewNotFoundError creates a NotFoundError
func NewNotFoundError(entity string, id any) *NotFoundError {
	return &NotFoundError{Entity: entity, ID: id}
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found with id: %v", e.Entity, e.ID)
}

// Is lets errors.Is(err, ErrNotFound) match
func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// ValidationError reports a request the domain rules refuse
type ValidationError struct {
	Message string
}

// NewValidationError creates a ValidationError with a formatted message
func NewValidationError(format string, args ...any) *ValidationError {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

func (e *ValidationError) Error() string {
	return e.Message
}

// Is lets errors.Is(err, ErrValidation) match
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// IsNotFound reports whether err is or wraps a NotFoundError
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsValidation reports whether err is or wraps a ValidationError
func IsValidation(err error) bool {
	return errors.Is(err, ErrValidation)
}
