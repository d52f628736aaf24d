package transport

import (
	"errors"
	"fmt"
)

// ErrUnauthorized is the authoritative session-ending signal. It is matched
// via errors.Is against any error returned by this package.
var ErrUnauthorized = errors.New("unauthorized")

// APIError is the uniform failure representation for remote calls. Exactly
// one class of field is populated per failure: Status plus the structured
// server fields for HTTP-level rejections, or Err for transport-level
// failures (connection refused, timeout, malformed response).
type APIError struct {
	// Status is the HTTP status code, or 0 when the request never
	// produced a response.
	Status int

	// Message is the server's structured "message" field, when present.
	Message string

	// Reason is the server's structured "error" field, when present.
	Reason string

	// Err is the transport-level cause, when the failure happened below
	// the HTTP status line.
	Err error
}

// Error implements the error interface.
func (e *APIError) Error() string {
	switch {
	case e.Message != "":
		return fmt.Sprintf("auth api: status %d: %s", e.Status, e.Message)
	case e.Reason != "":
		return fmt.Sprintf("auth api: status %d: %s", e.Status, e.Reason)
	case e.Err != nil:
		return fmt.Sprintf("auth api: %v", e.Err)
	default:
		return fmt.Sprintf("auth api: status %d", e.Status)
	}
}

// Unwrap lets errors.Is see [ErrUnauthorized] for 401 responses and the
// transport cause otherwise.
func (e *APIError) Unwrap() error {
	if e.Status == 401 {
		return ErrUnauthorized
	}
	return e.Err
}

// IsUnauthorized reports whether err is an authoritative authorization
// denial. Every other failure is transient by contract.
func IsUnauthorized(err error) bool {
	return errors.Is(err, ErrUnauthorized)
}

// Message derives the single user-facing string for err, in priority order:
// the structured server message, the structured server error field, the
// transport-level error message, then fallback.
func Message(err error, fallback string) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.Message != "":
			return apiErr.Message
		case apiErr.Reason != "":
			return apiErr.Reason
		case apiErr.Err != nil:
			return apiErr.Err.Error()
		default:
			return fallback
		}
	}
	if err != nil {
		return err.Error()
	}
	return fallback
}
