package realtime

import (
	"errors"
	"fmt"
)

// Sentinel errors for the realtime package.
var (
	// ErrMissingAPIKey indicates no credential source was configured.
	ErrMissingAPIKey = errors.New("realtime: API key is required")

	// ErrNotConnected indicates the session has no active connection.
	ErrNotConnected = errors.New("realtime: not connected")

	// ErrAlreadyConnected indicates Start was called on a live session.
	ErrAlreadyConnected = errors.New("realtime: already connected")

	// ErrMediaUnavailable indicates the audio capture source failed to start.
	ErrMediaUnavailable = errors.New("realtime: audio capture unavailable")

	// ErrNegotiationFailed indicates the SDP offer/answer exchange failed.
	ErrNegotiationFailed = errors.New("realtime: negotiation failed")

	// ErrChannelClosed indicates the event channel was closed.
	ErrChannelClosed = errors.New("realtime: event channel closed")

	// ErrInvalidEvent indicates a malformed inbound event.
	ErrInvalidEvent = errors.New("realtime: invalid event")
)

// APIError represents an error returned by the realtime endpoint or the
// credential intermediary.
type APIError struct {
	// StatusCode is the HTTP status code, if applicable.
	StatusCode int

	// Code is the error code from the API.
	Code string

	// Message is the human-readable error message.
	Message string

	// Retryable indicates if the request can be retried.
	Retryable bool
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("realtime: API error [%s]: %s", e.Code, e.Message)
	}
	if e.StatusCode != 0 {
		return fmt.Sprintf("realtime: API error (HTTP %d): %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("realtime: API error: %s", e.Message)
}

// IsRetryable returns true if the request can be retried.
func (e *APIError) IsRetryable() bool {
	return e.Retryable
}

// NewAPIError creates a new APIError.
func NewAPIError(statusCode int, code, message string) *APIError {
	return &APIError{
		StatusCode: statusCode,
		Code:       code,
		Message:    message,
		Retryable:  statusCode == 429 || statusCode >= 500,
	}
}

// ConnectionError represents a transport-level failure during session
// setup or operation.
type ConnectionError struct {
	// Reason describes which step failed.
	Reason string

	// Cause is the underlying error.
	Cause error

	// Retryable indicates if a new session attempt may succeed.
	Retryable bool
}

func (e *ConnectionError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("realtime: connection error: %s: %v", e.Reason, e.Cause)
	}
	return fmt.Sprintf("realtime: connection error: %s", e.Reason)
}

// Unwrap returns the underlying cause.
func (e *ConnectionError) Unwrap() error {
	return e.Cause
}

// IsRetryable returns true if a new session attempt may succeed.
func (e *ConnectionError) IsRetryable() bool {
	return e.Retryable
}

// NewConnectionError creates a new ConnectionError.
func NewConnectionError(reason string, cause error, retryable bool) *ConnectionError {
	return &ConnectionError{Reason: reason, Cause: cause, Retryable: retryable}
}

// IsRetryable returns true if the error can be retried.
func IsRetryable(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.IsRetryable()
	}
	var connErr *ConnectionError
	if errors.As(err, &connErr) {
		return connErr.IsRetryable()
	}
	return false
}
