package common

import (
	"errors"
	"fmt"
)

// AppError represents application-specific errors
type AppError struct {
	Code    string
	Message string
	Cause   error
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// Common application errors
var (
	ErrNotFound     = errors.New("resource not found")
	ErrInvalidInput = errors.New("invalid input")
	ErrInternal     = errors.New("internal error")
	ErrDatabase     = errors.New("database error")

	// ErrAlreadyResolved guards the unresolved-item ledger's idempotency; a
	// second resolve on the same record indicates a double submission
	// upstream and must be surfaced, never swallowed.
	ErrAlreadyResolved = errors.New("record already resolved")

	// ErrAliasCollision means an alias text equals the canonical name of a
	// different catalog entry, which would make resolution ambiguous by
	// construction.
	ErrAliasCollision = errors.New("alias collides with another entry's canonical name")

	// ErrDuplicateDocument means a document with the same content hash was
	// already processed.
	ErrDuplicateDocument = errors.New("duplicate document")
)

// Error constructors
func NewAppError(code, message string, cause error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

func WrapError(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}
