package services

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

var (
	ErrStoryNotFound      = errors.New("story not found")
	ErrForbidden          = errors.New("staff access required")
	ErrInvalidDecision    = errors.New("decision must be approved or declined")
	ErrEmailTaken         = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrInvalidToken       = errors.New("invalid or expired token")
)

// ValidationError rejects input by field. Always recoverable by the caller.
type ValidationError struct {
	Field  string `json:"field"`
	Reason string `json:"reason"`
}

func (e *ValidationError) Error() string {
	return e.Field + ": " + e.Reason
}

func invalid(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

// PersistenceError wraps a storage failure the caller should not assume succeeded.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

func persistence(op string, err error) error {
	return &PersistenceError{Op: op, Err: err}
}

// BulkFailure is one item of a partially failed bulk moderation.
type BulkFailure struct {
	ID    uuid.UUID `json:"id"`
	Error string    `json:"error"`
	Err   error     `json:"-"`
}

type BulkResult struct {
	Succeeded []uuid.UUID   `json:"succeeded"`
	Failed    []BulkFailure `json:"failed"`
}
