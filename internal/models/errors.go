package models

import (
	"errors"
	"sort"
	"strings"
)

var (
	// ErrValidation marks malformed or out-of-range input.
	ErrValidation = errors.New("validation failed")
	// ErrConflict is returned when a unique key already exists.
	ErrConflict = errors.New("conflict")
	// ErrNotFound is returned when an operation targets a nonexistent id.
	ErrNotFound = errors.New("not found")
	// ErrUnauthenticated covers missing, malformed, invalid or expired credentials.
	ErrUnauthenticated = errors.New("unauthenticated")
	// ErrForbidden means the credential is valid but the role is insufficient.
	ErrForbidden = errors.New("forbidden")
	// ErrOutOfStockOrNotFound is the single purchase failure. Missing and sold-out items are
	// deliberately indistinguishable to the buyer.
	ErrOutOfStockOrNotFound = errors.New("item out of stock or not found")
	// ErrStoreUnavailable wraps infrastructure failures of the backing store.
	ErrStoreUnavailable = errors.New("store unavailable")
)

// ValidationError lists the offending fields. It matches ErrValidation with errors.Is.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return ErrValidation.Error()
	}
	names := make([]string, 0, len(e.Fields))
	for name := range e.Fields {
		names = append(names, name)
	}
	sort.Strings(names)
	return ErrValidation.Error() + ": " + strings.Join(names, ", ")
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// NewValidationError builds a ValidationError for a single field.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Fields: map[string]string{field: message}}
}

// ErrorKind names the taxonomy entry of err for structured responses.
func ErrorKind(err error) string {
	switch {
	case errors.Is(err, ErrValidation):
		return "ValidationError"
	case errors.Is(err, ErrConflict):
		return "Conflict"
	case errors.Is(err, ErrNotFound):
		return "NotFound"
	case errors.Is(err, ErrUnauthenticated):
		return "Unauthenticated"
	case errors.Is(err, ErrForbidden):
		return "Forbidden"
	case errors.Is(err, ErrOutOfStockOrNotFound):
		return "OutOfStockOrNotFound"
	case errors.Is(err, ErrStoreUnavailable):
		return "StoreUnavailable"
	default:
		return "Internal"
	}
}
