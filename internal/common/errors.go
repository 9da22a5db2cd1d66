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
	ErrInvalidInput = errors.New("invalid input")
	ErrFatalInput   = errors.New("document failed basic validation")
	ErrNotFound     = errors.New("not found")
	ErrInternal     = errors.New("internal error")
	ErrDatabase     = errors.New("database error")
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

// FatalInputError marks a document that fails basic validation; it is
// surfaced to the caller as a rejection, never masked by fallback.
func FatalInputError(message string) error {
	return NewAppError("FATAL_INPUT", message, ErrFatalInput)
}

// IsFatalInput reports whether err is a caller rejection.
func IsFatalInput(err error) bool {
	return errors.Is(err, ErrFatalInput)
}
