// Package apperror defines the domain error taxonomy shared by all layers.
//
// Services return these errors; the HTTP layer maps them to status codes with
// errors.Is. Nothing below the handler layer knows about HTTP.
package apperror

import (
	"errors"
	"fmt"
)

// Sentinel errors. Each one marks a category of failure; handlers switch on
// them with errors.Is after the service layer has wrapped them with context.
var (
	ErrNotFound            = errors.New("not found")
	ErrValidation          = errors.New("validation error")
	ErrConflict            = errors.New("conflict")
	ErrForbidden           = errors.New("forbidden")
	ErrUnauthorized        = errors.New("unauthorized")
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrUnavailable         = errors.New("unavailable")
)

// AppError pairs a sentinel with a human-readable message.
type AppError struct {
	Err     error  // sentinel, reachable via errors.Is
	Message string // human-readable error message
	Field   string // optional: field causing a validation error
}

func (e *AppError) Error() string {
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func NotFound(resource, id string) *AppError {
	return &AppError{
		Err:     ErrNotFound,
		Message: fmt.Sprintf("%s not found with id %s", resource, id),
	}
}

func ValidationFailed(field, message string) *AppError {
	return &AppError{
		Err:     ErrValidation,
		Message: message,
		Field:   field,
	}
}

func Conflict(resource, id string) *AppError {
	return &AppError{
		Err:     ErrConflict,
		Message: fmt.Sprintf("%s conflict with id %s", resource, id),
	}
}

// Forbidden returns an AppError indicating the caller lacks permission.
// HTTP handlers map this to 403 Forbidden.
func Forbidden(message string) *AppError {
	return &AppError{
		Err:     ErrForbidden,
		Message: message,
	}
}

// Unauthorized returns an AppError for a missing or failed authentication.
// HTTP handlers map this to 401.
func Unauthorized(message string) *AppError {
	return &AppError{
		Err:     ErrUnauthorized,
		Message: message,
	}
}

// InsufficientBalance is returned when an unlock costs more than the user
// holds. The caller must top up first — retrying without a credit cannot
// succeed. HTTP handlers map this to 402 Payment Required.
func InsufficientBalance(balance, price int64) *AppError {
	return &AppError{
		Err:     ErrInsufficientBalance,
		Message: fmt.Sprintf("balance %d is below the price of %d tokens", balance, price),
	}
}

// Unavailable marks a transient storage failure that survived its retry
// budget. The operation had no partial effect; the caller may retry later.
func Unavailable(message string) *AppError {
	return &AppError{
		Err:     ErrUnavailable,
		Message: message,
	}
}
