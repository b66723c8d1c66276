// Package apperr defines the error taxonomy shared by the messaging
// core. Handlers map these sentinels onto HTTP statuses; everything
// else wraps them with fmt.Errorf("...: %w", ...).
package apperr

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound        = errors.New("not found")
	ErrForbidden       = errors.New("forbidden")
	ErrValidation      = errors.New("validation failed")
	ErrUnauthenticated = errors.New("unauthenticated")
	ErrUnavailable     = errors.New("service unavailable")
)

func NotFoundf(format string, args ...any) error {
	return fmt.Errorf(format+": %w", append(args, ErrNotFound)...)
}

func Forbiddenf(format string, args ...any) error {
	return fmt.Errorf(format+": %w", append(args, ErrForbidden)...)
}

func Validationf(format string, args ...any) error {
	return fmt.Errorf(format+": %w", append(args, ErrValidation)...)
}

// StatusCode maps an error to its HTTP-equivalent status.
func StatusCode(err error) int {
	switch {
	case errors.Is(err, ErrNotFound):
		return 404
	case errors.Is(err, ErrForbidden):
		return 403
	case errors.Is(err, ErrValidation):
		return 400
	case errors.Is(err, ErrUnauthenticated):
		return 401
	default:
		return 500
	}
}
