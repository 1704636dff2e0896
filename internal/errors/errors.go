package errors

import (
	"errors"
	"fmt"
	"strings"
)

// Error codes for categorizing errors
const (
	ErrConfig     = "CONFIG"
	ErrConnection = "CONNECTION"
	ErrAuth       = "AUTH"
	ErrMalformed  = "MALFORMED"
	ErrWrite      = "WRITE"
	ErrMonitor    = "MONITOR"
	ErrLock       = "LOCK"
)

// Error represents a structured error with code, message, suggestion, and optional cause.
// It renders as:
//
//	✗ <What failed>
//
//	  <Why it failed - technical details>
//
//	  <How to fix it - actionable steps>
type Error struct {
	Code       string
	Message    string
	Suggestion string
	Cause      error
}

// New creates a new structured error with the given code, message, and suggestion.
func New(code, message, suggestion string) *Error {
	return &Error{
		Code:       code,
		Message:    message,
		Suggestion: suggestion,
	}
}

// Wrap wraps an existing error with a message, defaulting to ErrMonitor code.
func Wrap(err error, message string) *Error {
	return &Error{
		Code:    ErrMonitor,
		Message: message,
		Cause:   err,
	}
}

// WrapWithCode wraps an existing error with a specific code, message, and suggestion.
func WrapWithCode(err error, code, message, suggestion string) *Error {
	return &Error{
		Code:       code,
		Message:    message,
		Suggestion: suggestion,
		Cause:      err,
	}
}

// Error implements the error interface.
func (e *Error) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "✗ %s\n", e.Message)
	for _, detail := range []string{e.causeText(), e.Suggestion} {
		if detail != "" {
			fmt.Fprintf(&b, "\n  %s\n", detail)
		}
	}
	return b.String()
}

func (e *Error) causeText() string {
	if e.Cause == nil {
		return ""
	}
	return e.Cause.Error()
}

// Unwrap returns the underlying cause for use with errors.Is/errors.As.
func (e *Error) Unwrap() error {
	return e.Cause
}

// IsCode checks if an error is a structured Error with the given code.
func IsCode(err error, code string) bool {
	var e *Error
	return errors.As(err, &e) && e.Code == code
}

// ExitError carries a process exit code without an additional message.
// Commands return it when they already printed their own diagnostics.
type ExitError struct {
	Code int
}

// NewExitError creates an ExitError with the given code.
func NewExitError(code int) *ExitError {
	return &ExitError{Code: code}
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("exit code %d", e.Code)
}

// GetExitCode extracts the exit code from an ExitError anywhere in the chain.
func GetExitCode(err error) (int, bool) {
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code, true
	}
	return 0, false
}

// Process exit statuses by error code. Anything else exits 1.
var exitStatus = map[string]int{
	ErrConfig: 2,
	ErrAuth:   3,
	ErrLock:   4,
}

// ExitStatus maps err to a process exit status so scripts can tell a bad
// config, a rejected API key and a busy logs directory apart.
func ExitStatus(err error) int {
	if err == nil {
		return 0
	}
	if code, ok := GetExitCode(err); ok {
		return code
	}
	var e *Error
	if errors.As(err, &e) {
		if status, ok := exitStatus[e.Code]; ok {
			return status
		}
	}
	return 1
}
