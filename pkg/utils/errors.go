package utils

import (
	"errors"
	"fmt"
	"runtime"
)

// AppError represents an application error with context
type AppError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
	File    string `json:"file,omitempty"`
	Line    int    `json:"line,omitempty"`

	cause error
}

func (e *AppError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap exposes the wrapped cause to errors.Is and errors.As.
func (e *AppError) Unwrap() error {
	return e.cause
}

// NewAppError creates a new application error
func NewAppError(code, message string, details ...string) *AppError {
	_, file, line, _ := runtime.Caller(1)

	err := &AppError{
		Code:    code,
		Message: message,
		File:    file,
		Line:    line,
	}

	if len(details) > 0 {
		err.Details = details[0]
	}

	return err
}

// WrapError creates an application error that keeps err as its cause.
func WrapError(code, message string, err error) *AppError {
	_, file, line, _ := runtime.Caller(1)

	appErr := &AppError{
		Code:    code,
		Message: message,
		File:    file,
		Line:    line,
		cause:   err,
	}
	if err != nil {
		appErr.Details = err.Error()
	}
	return appErr
}

// ErrorCode returns the code of the first AppError in err's chain, or an empty string.
func ErrorCode(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return ""
}

// Common error codes
const (
	ErrCodeConnection     = "CONNECTION_ERROR"
	ErrCodeDatabase       = "DATABASE_ERROR"
	ErrCodeValidation     = "VALIDATION_ERROR"
	ErrCodeNotFound       = "NOT_FOUND"
	ErrCodeInternal       = "INTERNAL_ERROR"
	ErrCodeBlockchain     = "BLOCKCHAIN_ERROR"
	ErrCodeConfiguration  = "CONFIGURATION_ERROR"
	ErrCodeReconciliation = "RECONCILIATION_ERROR"
	ErrCodeTimeout        = "TIMEOUT_ERROR"
	ErrCodeExternal       = "EXTERNAL_ERROR"
)
