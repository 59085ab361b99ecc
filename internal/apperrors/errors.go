// internal/apperrors/errors.go
package apperrors

import (
	"errors"
	"fmt"
)

// Error kinds. Match them with errors.Is.
var (
	ErrValidation   = errors.New("validation failed")
	ErrNotFound     = errors.New("not found")
	ErrForbidden    = errors.New("forbidden")
	ErrUnauthorized = errors.New("unauthorized")
	ErrPrecondition = errors.New("precondition failed")
	ErrConflict     = errors.New("conflict")
)

// Error is a domain error carrying one of the kinds above and a message that
// is safe to show to API callers.
type Error struct {
	Kind    error
	Message string
	// Resource names the entity for not-found errors ("credential", "product", ...).
	Resource string
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Kind
}

func newError(kind error, resource, format string, args ...interface{}) *Error {
	return &Error{
		Kind:     kind,
		Message:  fmt.Sprintf(format, args...),
		Resource: resource,
	}
}

func Validation(format string, args ...interface{}) error {
	return newError(ErrValidation, "", format, args...)
}

func NotFound(resource string) error {
	return newError(ErrNotFound, resource, "%s not found", resource)
}

func Forbidden(format string, args ...interface{}) error {
	return newError(ErrForbidden, "", format, args...)
}

func Unauthorized(format string, args ...interface{}) error {
	return newError(ErrUnauthorized, "", format, args...)
}

func Precondition(format string, args ...interface{}) error {
	return newError(ErrPrecondition, "", format, args...)
}

func Conflict(format string, args ...interface{}) error {
	return newError(ErrConflict, "", format, args...)
}

// As extracts the domain error from err, if any.
func As(err error) (*Error, bool) {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}
