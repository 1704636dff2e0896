package errors

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorCodes(t *testing.T) {
	codes := []string{
		ErrConfig,
		ErrConnection,
		ErrAuth,
		ErrMalformed,
		ErrWrite,
		ErrMonitor,
		ErrLock,
	}

	seen := make(map[string]bool)
	for _, code := range codes {
		assert.NotEmpty(t, code, "error code should not be empty")
		assert.False(t, seen[code], "error code %q should be unique", code)
		seen[code] = true
	}
}

func TestNew(t *testing.T) {
	tests := []struct {
		name       string
		code       string
		message    string
		suggestion string
	}{
		{
			name:       "config error",
			code:       ErrConfig,
			message:    "Invalid configuration in cmon.yaml",
			suggestion: "Check your configuration file syntax",
		},
		{
			name:       "auth error",
			code:       ErrAuth,
			message:    "Every device rejected its API key",
			suggestion: "Regenerate the REST API admin token",
		},
		{
			name:       "write error",
			code:       ErrWrite,
			message:    "Can't append to summary log",
			suggestion: "Check disk space",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := New(tt.code, tt.message, tt.suggestion)

			require.NotNil(t, err)
			assert.Equal(t, tt.code, err.Code)
			assert.Equal(t, tt.message, err.Message)
			assert.Equal(t, tt.suggestion, err.Suggestion)
			assert.Nil(t, err.Cause)
		})
	}
}

func TestErrorFormatting(t *testing.T) {
	tests := []struct {
		name          string
		err           *Error
		expectedParts []string
	}{
		{
			name:          "basic error formatting",
			err:           New(ErrConfig, "Invalid configuration", "Check cmon.yaml syntax"),
			expectedParts: []string{"✗", "Invalid configuration", "Check cmon.yaml syntax"},
		},
		{
			name:          "error with cause",
			err:           WrapWithCode(fmt.Errorf("dial tcp: i/o timeout"), ErrConnection, "Device unreachable", ""),
			expectedParts: []string{"Device unreachable", "i/o timeout"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			output := tt.err.Error()
			for _, part := range tt.expectedParts {
				assert.Contains(t, output, part)
			}
		})
	}
}

func TestErrorMessageStructure(t *testing.T) {
	err := WrapWithCode(
		errors.New("401 Unauthorized"),
		ErrAuth,
		"Every device rejected its API key",
		"Check api_key in cmon.yaml",
	)

	lines := strings.Split(err.Error(), "\n")
	assert.True(t, strings.HasPrefix(strings.TrimSpace(lines[0]), "✗"))
	assert.Contains(t, lines[0], "Every device rejected its API key")
}

func TestWrap(t *testing.T) {
	cause := errors.New("underlying error")
	wrapped := Wrap(cause, "Monitor failed")

	require.NotNil(t, wrapped)
	assert.Equal(t, ErrMonitor, wrapped.Code, "Wrap should default to ErrMonitor code")
	assert.Equal(t, cause, wrapped.Cause)
}

func TestErrorsIsAndAs(t *testing.T) {
	cause := errors.New("specific error")
	wrapped := WrapWithCode(cause, ErrWrite, "Write error", "")

	assert.True(t, errors.Is(wrapped, cause))
	assert.Equal(t, cause, wrapped.Unwrap())

	var cmErr *Error
	require.True(t, errors.As(fmt.Errorf("outer: %w", wrapped), &cmErr))
	assert.Equal(t, ErrWrite, cmErr.Code)
}

func TestIsCode(t *testing.T) {
	err := New(ErrConfig, "Config error", "")

	assert.True(t, IsCode(err, ErrConfig))
	assert.False(t, IsCode(err, ErrAuth))
	assert.True(t, IsCode(fmt.Errorf("wrapped: %w", err), ErrConfig))
	assert.False(t, IsCode(errors.New("standard error"), ErrConfig))
	assert.False(t, IsCode(nil, ErrConfig))
}

func TestGetExitCode(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode int
		wantOk   bool
	}{
		{name: "ExitError returns code", err: NewExitError(2), wantCode: 2, wantOk: true},
		{name: "wrapped ExitError", err: fmt.Errorf("check: %w", NewExitError(1)), wantCode: 1, wantOk: true},
		{name: "standard error", err: errors.New("standard error")},
		{name: "nil error", err: nil},
		{name: "structured Error", err: New(ErrMonitor, "test", "")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, ok := GetExitCode(tt.err)
			assert.Equal(t, tt.wantOk, ok)
			assert.Equal(t, tt.wantCode, code)
		})
	}

	assert.Equal(t, "exit code 137", NewExitError(137).Error())
}

func TestExitStatus(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, 0},
		{"explicit exit code wins", fmt.Errorf("check: %w", NewExitError(5)), 5},
		{"config", New(ErrConfig, "bad", ""), 2},
		{"auth", WrapWithCode(errors.New("401"), ErrAuth, "rejected", ""), 3},
		{"lock wrapped", fmt.Errorf("run: %w", New(ErrLock, "busy", "")), 4},
		{"other code", New(ErrConnection, "down", ""), 1},
		{"plain error", errors.New("boom"), 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExitStatus(tt.err))
		})
	}
}
