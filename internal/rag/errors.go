package rag

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidInput is returned when input validation fails.
	ErrInvalidInput = errors.New("invalid input")
	// ErrStoreUnavailable is returned when the vector store cannot be opened or searched.
	ErrStoreUnavailable = errors.New("vector store unavailable")
	// ErrExternalService is returned when the embedding or LLM service fails.
	ErrExternalService = errors.New("external service error")
)

// ValidationError represents a validation error with a field name.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error on field %s: %s", e.Field, e.Message)
}

// Unwrap lets errors.Is(err, ErrInvalidInput) match validation errors.
func (e *ValidationError) Unwrap() error {
	return ErrInvalidInput
}

// wrapError tags err with a sentinel kind and a message.
func wrapError(kind error, msg string, err error) error {
	return fmt.Errorf("%s: %w: %w", msg, kind, err)
}
