// Package errors defines structured error types for the API.
//
// Responses are plain text: clients only see the message of 4xx errors, while
// 5xx errors are reported as an opaque "internal error". The code, details and
// wrapped cause are for server-side logs.
package errors

import (
	"fmt"
	"net/http"
)

// ErrorCode classifies an API error for logs.
type ErrorCode string

const (
	// ErrInvalidBody is returned when the request body is not valid JSON for the route.
	ErrInvalidBody ErrorCode = "INVALID_BODY"
	// ErrMissingField is returned when a required field is missing or falsy.
	ErrMissingField ErrorCode = "MISSING_FIELD"
	// ErrKeyExists is returned when creating a key that is already stored.
	ErrKeyExists ErrorCode = "KEY_EXISTS"
	// ErrNotFound is returned when a key is not stored.
	ErrNotFound ErrorCode = "NOT_FOUND"
	// ErrPayloadTooLarge is returned when the body exceeds the configured limit.
	ErrPayloadTooLarge ErrorCode = "PAYLOAD_TOO_LARGE"
	// ErrRateLimited is returned when a client exceeds its request budget.
	ErrRateLimited ErrorCode = "RATE_LIMITED"
	// ErrInternal is returned when an unexpected server error occurs.
	ErrInternal ErrorCode = "INTERNAL_ERROR"
)

// InternalMessage is the only text sent to clients for 5xx errors.
const InternalMessage = "internal error"

// ErrorWithStatus is an error that includes an HTTP status code and error code.
type ErrorWithStatus interface {
	Error() string
	StatusCode() int
	Code() ErrorCode
	Message() string
	Details() map[string]any
}

// APIError is a concrete error type with status code, code, and optional details.
type APIError struct {
	statusCode int
	code       ErrorCode
	message    string
	details    map[string]any
	wrappedErr error
}

// NewAPIError creates a new APIError with the given status code and message.
func NewAPIError(statusCode int, code ErrorCode, message string) *APIError {
	return &APIError{
		statusCode: statusCode,
		code:       code,
		message:    message,
		details:    make(map[string]any),
	}
}

// WithDetail adds a single detail to the error.
func (e *APIError) WithDetail(key string, value any) *APIError {
	if e.details == nil {
		e.details = make(map[string]any)
	}
	e.details[key] = value
	return e
}

// Wrap wraps an underlying error.
func (e *APIError) Wrap(err error) *APIError {
	e.wrappedErr = err
	return e
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e.wrappedErr != nil {
		return fmt.Sprintf("%s: %v", e.message, e.wrappedErr)
	}
	return e.message
}

// StatusCode returns the HTTP status code.
func (e *APIError) StatusCode() int {
	return e.statusCode
}

// Code returns the error code.
func (e *APIError) Code() ErrorCode {
	return e.code
}

// Message returns the text safe to send to the client.
func (e *APIError) Message() string {
	if e.statusCode >= http.StatusInternalServerError {
		return InternalMessage
	}
	return e.message
}

// Details returns additional error details.
func (e *APIError) Details() map[string]any {
	return e.details
}

// Unwrap returns the wrapped error if any.
func (e *APIError) Unwrap() error {
	return e.wrappedErr
}

// Predefined error constructors for common cases

// InvalidBody creates a 400 error for an undecodable request body.
func InvalidBody() *APIError {
	return NewAPIError(http.StatusBadRequest, ErrInvalidBody, "Invalid request body")
}

// MissingKeyValue creates a 400 error for a body lacking key or value.
func MissingKeyValue() *APIError {
	return NewAPIError(http.StatusBadRequest, ErrMissingField, "Both key and value are required")
}

// KeyExists creates a 400 error for a duplicate create.
func KeyExists(key string) *APIError {
	return NewAPIError(http.StatusBadRequest, ErrKeyExists, "key already exists").WithDetail("key", key)
}

// KeyNotFound creates a 404 error for an unknown key.
func KeyNotFound(key string) *APIError {
	return NewAPIError(http.StatusNotFound, ErrNotFound, "Key not found").WithDetail("key", key)
}

// PayloadTooLarge creates a 413 error for an oversized body.
func PayloadTooLarge(limit int64) *APIError {
	return NewAPIError(http.StatusRequestEntityTooLarge, ErrPayloadTooLarge, "Request body too large").WithDetail("limit", limit)
}

// RateLimitExceeded creates a 429 error.
func RateLimitExceeded(retryAfterSeconds int) *APIError {
	return NewAPIError(http.StatusTooManyRequests, ErrRateLimited, "Too many requests").WithDetail("retry_after", retryAfterSeconds)
}

// Internal returns a 500 Internal Server Error.
func Internal(message string) *APIError {
	return NewAPIError(http.StatusInternalServerError, ErrInternal, message)
}

// InternalWithError creates a 500 error wrapping an underlying error.
func InternalWithError(message string, err error) *APIError {
	return Internal(message).Wrap(err)
}
