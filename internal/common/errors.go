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
	ErrConfig       = errors.New("configuration error")
	ErrNoValidFiles = errors.New("no valid files found")
	ErrInvalidInput = errors.New("invalid input")
	ErrOutput       = errors.New("output generation error")
)

// Error constructors
func NewAppError(code, message string, cause error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// NewConfigError builds a fatal configuration error. Runs abort before any
// processing when one of these is returned.
func NewConfigError(message string) *AppError {
	return NewAppError("CONFIG_ERROR", message, ErrConfig)
}

// NewNoValidFilesError is returned when a scanned folder yields zero
// recognized files.
func NewNoValidFilesError(folder string) *AppError {
	return NewAppError("NO_VALID_FILES", fmt.Sprintf("no valid files in %s", folder), ErrNoValidFiles)
}

func WrapError(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}
