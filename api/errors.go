package api

import (
	"errors"
	"fmt"
	"net/http"
)

// NoStatus is reported by StatusCode for failures that never reached the server
const NoStatus = -1

// Common errors
var (
	// ErrInvalidConfig indicates invalid client configuration
	ErrInvalidConfig = errors.New("invalid client configuration")
	// ErrNoToken is returned by operations that need a token when none is present
	ErrNoToken = errors.New("not authenticated")
)

// ServerError is an HTTP response with a status the operation does not accept
type ServerError struct {
	StatusCode int
	Message    string
	Body       string
}

// Error implements the error interface
func (e *ServerError) Error() string {
	return fmt.Sprintf("Code %d: %s", e.StatusCode, e.Message)
}

// IsNotFound checks if the error indicates a not found response
func (e *ServerError) IsNotFound() bool {
	return e.StatusCode == http.StatusNotFound
}

// IsUnauthorized checks if the error indicates an authentication failure
func (e *ServerError) IsUnauthorized() bool {
	return e.StatusCode == http.StatusUnauthorized || e.StatusCode == http.StatusForbidden
}

// TransportError means no HTTP response was obtained
type TransportError struct {
	Message string
	Err     error
}

// Error implements the error interface
func (e *TransportError) Error() string {
	if e.Err == nil {
		return e.Message
	}
	return fmt.Sprintf("%s: %v", e.Message, e.Err)
}

// Unwrap returns the underlying transport failure
func (e *TransportError) Unwrap() error {
	return e.Err
}

// ValidationError is a precondition enforced locally before any request is sent
type ValidationError struct {
	Field  string
	Reason string
}

// Error implements the error interface
func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// Kind classifies the outcome of a call
type Kind int

const (
	// KindOK means the call succeeded
	KindOK Kind = iota
	// KindServerError means the server answered with an unaccepted status
	KindServerError
	// KindTransportFailure means no response was obtained
	KindTransportFailure
	// KindValidationFailure means the call was rejected before sending
	KindValidationFailure
)

// String returns the string representation of a Kind
func (k Kind) String() string {
	switch k {
	case KindOK:
		return "ok"
	case KindServerError:
		return "server error"
	case KindTransportFailure:
		return "transport failure"
	case KindValidationFailure:
		return "validation failure"
	default:
		return "unknown"
	}
}

// KindOf classifies err. Errors that are neither ServerError nor
// ValidationError count as transport failures.
func KindOf(err error) Kind {
	if err == nil {
		return KindOK
	}

	var serverErr *ServerError
	if errors.As(err, &serverErr) {
		return KindServerError
	}

	var validationErr *ValidationError
	if errors.As(err, &validationErr) {
		return KindValidationFailure
	}

	return KindTransportFailure
}

// StatusCode returns the HTTP status carried by err, or NoStatus
func StatusCode(err error) int {
	var serverErr *ServerError
	if errors.As(err, &serverErr) {
		return serverErr.StatusCode
	}
	return NoStatus
}

// Result pairs a value with the error of the call that produced it
type Result[T any] struct {
	Value T
	Err   error
}

// Kind classifies the result
func (r Result[T]) Kind() Kind {
	return KindOf(r.Err)
}

// Get returns the value and error
func (r Result[T]) Get() (T, error) {
	return r.Value, r.Err
}

func invalid(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

func requireID(field string, id int64) error {
	if id <= 0 {
		return invalid(field, "must be a positive identifier")
	}
	return nil
}
