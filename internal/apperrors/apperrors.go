// Package apperrors defines the request-level error kinds the HTTP layer
// maps to status codes.
package apperrors

import (
	"errors"
	"fmt"
)

// ConflictError is returned when a single-record operation would violate a
// protection invariant, such as manually adding an email that already exists
// or removing a bulk-imported voter.
type ConflictError struct {
	Message string
}

func (e *ConflictError) Error() string { return e.Message }

func Conflict(format string, args ...any) error {
	return &ConflictError{Message: fmt.Sprintf(format, args...)}
}

// NotFoundError is returned when a referenced election or voter does not
// exist within the caller's organization. Cross-tenant lookups surface as
// not found, never as forbidden.
type NotFoundError struct {
	Message string
}

func (e *NotFoundError) Error() string { return e.Message }

func NotFound(format string, args ...any) error {
	return &NotFoundError{Message: fmt.Sprintf(format, args...)}
}

// BadRequestError is returned for malformed requests rejected before the
// core engine runs, such as an unsupported upload content type.
type BadRequestError struct {
	Message string
}

func (e *BadRequestError) Error() string { return e.Message }

func BadRequest(format string, args ...any) error {
	return &BadRequestError{Message: fmt.Sprintf(format, args...)}
}

func IsConflict(err error) bool {
	var conflictErr *ConflictError
	return errors.As(err, &conflictErr)
}

func IsNotFound(err error) bool {
	var notFoundErr *NotFoundError
	return errors.As(err, &notFoundErr)
}

func IsBadRequest(err error) bool {
	var badRequestErr *BadRequestError
	return errors.As(err, &badRequestErr)
}
