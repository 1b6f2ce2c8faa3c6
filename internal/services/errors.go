package services

import (
	"errors"
	"fmt"

	"productapi/internal/repositories"
)

var (
	// ErrProductNotFound reports a lookup for an ID the store does not hold.
	ErrProductNotFound = repositories.ErrProductNotFound
	// ErrInvalidInput is matched by every *ValidationError.
	ErrInvalidInput = errors.New("invalid input")
	// ErrPersistence is matched by every *PersistenceError.
	ErrPersistence = errors.New("persistence failure")
)

// ValidationError describes input rejected before anything was persisted.
// Fields maps JSON field names to rule descriptions and may be empty.
type ValidationError struct {
	Message string
	Fields  map[string]string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidInput
}

func invalidInput(msg string) *ValidationError {
	return &ValidationError{Message: msg}
}

// PersistenceError wraps a store failure during a write.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("failed to %s product: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

func (e *PersistenceError) Is(target error) bool {
	return target == ErrPersistence
}
