package fortios

import (
	"errors"
	"fmt"
)

// Kind classifies a failed API call so callers can pick a retry policy.
type Kind int

const (
	KindUnknown    Kind = iota
	KindConnection      // network unreachable, timeout, 5xx: retry with backoff
	KindAuth            // credential rejected: do not retry with the same key
	KindMalformed       // payload unusable: skip the cycle
)

// String returns the string representation of the kind.
func (k Kind) String() string {
	switch k {
	case KindConnection:
		return "connection"
	case KindAuth:
		return "auth"
	case KindMalformed:
		return "malformed"
	default:
		return "unknown"
	}
}

// APIError is returned by every Client method on failure.
// Body holds the raw response bytes when the appliance answered.
type APIError struct {
	Kind       Kind
	Endpoint   string
	StatusCode int
	Body       []byte
	Err        error
}

func (e *APIError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s %s (HTTP %d): %v", e.Endpoint, e.Kind, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s %s: %v", e.Endpoint, e.Kind, e.Err)
}

// Unwrap returns the underlying error.
func (e *APIError) Unwrap() error {
	return e.Err
}

// KindOf returns the classification of err, or KindUnknown if err is not an APIError.
func KindOf(err error) Kind {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Kind
	}
	return KindUnknown
}

// kindForStatus maps an HTTP status code to a failure kind.
func kindForStatus(code int) Kind {
	switch {
	case code == 401 || code == 403:
		return KindAuth
	case code == 408 || code == 429 || code >= 500:
		return KindConnection
	default:
		return KindMalformed
	}
}
