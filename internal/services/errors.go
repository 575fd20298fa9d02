package services

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ─── Sentinel Errors ──────────────────────────────────────────────────────────

var (
	// ErrNotFound is wrapped by every "does not exist" error below.
	ErrNotFound = errors.New("not found")

	ErrEntityNotFound = fmt.Errorf("entity %w", ErrNotFound)
	ErrBookNotFound   = fmt.Errorf("book %w", ErrNotFound)
	ErrLoanNotFound   = fmt.Errorf("loan %w", ErrNotFound)
	ErrUserNotFound   = fmt.Errorf("user %w", ErrNotFound)

	// ErrUnknownKind is returned for an entity kind missing from the registry.
	ErrUnknownKind = fmt.Errorf("entity kind %w", ErrNotFound)

	// ErrAuthenticationRequired is returned when a loan operation has no caller.
	ErrAuthenticationRequired = errors.New("authentication required")

	// ErrAlreadyRented is returned when the caller already holds a RENTED loan
	// for the book.
	ErrAlreadyRented = errors.New("book is already rented by this user")

	// ErrForbidden is returned when the loan belongs to someone else.
	ErrForbidden = errors.New("loan belongs to another user")

	// ErrNotDeletable is returned when bulk delete/restore targets a kind
	// without soft delete.
	ErrNotDeletable = errors.New("entity kind does not support soft delete")

	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrAccountInactive    = errors.New("account is inactive")
)

// ValidationError carries field-level messages keyed by JSON field name.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

func newValidationError(field, msg string) *ValidationError {
	return &ValidationError{Fields: map[string]string{field: msg}}
}

// IsValidation reports whether err is a *ValidationError and returns it.
func IsValidation(err error) (*ValidationError, bool) {
	var verr *ValidationError
	if errors.As(err, &verr) {
		return verr, true
	}
	return nil, false
}
