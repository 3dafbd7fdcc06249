package errors

import (
	"errors"
	"fmt"
)

// Error codes for programmatic handling.
const (
	CodeConfigInvalid   = "CONFIG_INVALID"
	CodeMemoryNotFound  = "MEMORY_NOT_FOUND"
	CodeSessionNotFound = "SESSION_NOT_FOUND"
	CodeTurnNotFound    = "TURN_NOT_FOUND"
	CodeStorageFailure  = "STORAGE_FAILURE"
	CodeInvalidInput    = "INVALID_INPUT"
)

// EngramError is a structured error with a code and actionable suggestion.
type EngramError struct {
	Code       string // machine-readable code (e.g. MEMORY_NOT_FOUND)
	Message    string // human-readable description
	Suggestion string // actionable fix
	Err        error  // wrapped underlying error
}

// Error implements the error interface.
func (e *EngramError) Error() string {
	msg := fmt.Sprintf("[%s] %s", e.Code, e.Message)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap supports errors.Is / errors.As.
func (e *EngramError) Unwrap() error {
	return e.Err
}

// New creates an EngramError with the given code and message.
func New(code, message string) *EngramError {
	return &EngramError{Code: code, Message: message}
}

// Wrap creates an EngramError wrapping an existing error.
func Wrap(code, message string, err error) *EngramError {
	return &EngramError{Code: code, Message: message, Err: err}
}

// WithSuggestion returns a copy with the suggestion set.
func (e *EngramError) WithSuggestion(suggestion string) *EngramError {
	e.Suggestion = suggestion
	return e
}

// Is checks whether target matches this error's code.
func (e *EngramError) Is(target error) bool {
	var ee *EngramError
	if errors.As(target, &ee) {
		return e.Code == ee.Code
	}
	return false
}

// AsCode extracts the EngramError code from an error, or "" if not an EngramError.
func AsCode(err error) string {
	var ee *EngramError
	if errors.As(err, &ee) {
		return ee.Code
	}
	return ""
}

// Suggestion extracts the suggestion from an error, or "" if not an EngramError.
func Suggestion(err error) string {
	var ee *EngramError
	if errors.As(err, &ee) {
		return ee.Suggestion
	}
	return ""
}

// IsNotFound reports whether err carries a not-found code.
func IsNotFound(err error) bool {
	switch AsCode(err) {
	case CodeMemoryNotFound, CodeSessionNotFound, CodeTurnNotFound:
		return true
	}
	return false
}
