package errors

import (
	"errors"
	"net/http"
	"testing"
)

func TestAPIError(t *testing.T) {
	t.Run("NewAPIError", func(t *testing.T) {
		err := NewAPIError(http.StatusNotFound, ErrNotFound, "Key not found")
		if err.StatusCode() != http.StatusNotFound {
			t.Errorf("Expected status code %d, got %d", http.StatusNotFound, err.StatusCode())
		}
		if err.Code() != ErrNotFound {
			t.Errorf("Expected code %s, got %s", ErrNotFound, err.Code())
		}
		if err.Error() != "Key not found" {
			t.Errorf("Expected message 'Key not found', got '%s'", err.Error())
		}
		if err.Details() == nil {
			t.Error("Expected Details() to return non-nil map")
		}
	})
	t.Run("WithDetail", func(t *testing.T) {
		err := (&APIError{statusCode: http.StatusBadRequest, code: ErrMissingField, message: "test"}).
			WithDetail("field", "key")
		if err.Details()["field"] != "key" {
			t.Errorf("Expected field 'key', got %v", err.Details()["field"])
		}
	})
	t.Run("Wrap", func(t *testing.T) {
		cause := errors.New("disk on fire")
		err := InternalWithError("failed to read store", cause)
		if !errors.Is(err, cause) {
			t.Error("Expected errors.Is to find the wrapped cause")
		}
		if err.Error() != "failed to read store: disk on fire" {
			t.Errorf("unexpected Error(): %q", err.Error())
		}
		if err.Message() != InternalMessage {
			t.Errorf("5xx Message() = %q, want %q", err.Message(), InternalMessage)
		}
	})
	t.Run("As", func(t *testing.T) {
		var err error = KeyNotFound("a")
		var ews ErrorWithStatus
		if !errors.As(err, &ews) {
			t.Fatal("Expected errors.As to match ErrorWithStatus")
		}
		if ews.Details()["key"] != "a" {
			t.Errorf("Expected key detail 'a', got %v", ews.Details()["key"])
		}
	})
}

func TestConstructors(t *testing.T) {
	tests := []struct {
		name    string
		err     *APIError
		status  int
		code    ErrorCode
		message string
	}{
		{"InvalidBody", InvalidBody(), http.StatusBadRequest, ErrInvalidBody, "Invalid request body"},
		{"MissingKeyValue", MissingKeyValue(), http.StatusBadRequest, ErrMissingField, "Both key and value are required"},
		{"KeyExists", KeyExists("a"), http.StatusBadRequest, ErrKeyExists, "key already exists"},
		{"KeyNotFound", KeyNotFound("a"), http.StatusNotFound, ErrNotFound, "Key not found"},
		{"PayloadTooLarge", PayloadTooLarge(10), http.StatusRequestEntityTooLarge, ErrPayloadTooLarge, "Request body too large"},
		{"RateLimitExceeded", RateLimitExceeded(3), http.StatusTooManyRequests, ErrRateLimited, "Too many requests"},
		{"Internal", Internal("boom"), http.StatusInternalServerError, ErrInternal, InternalMessage},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.err.StatusCode() != tt.status {
				t.Errorf("StatusCode() = %d, want %d", tt.err.StatusCode(), tt.status)
			}
			if tt.err.Code() != tt.code {
				t.Errorf("Code() = %s, want %s", tt.err.Code(), tt.code)
			}
			if tt.err.Message() != tt.message {
				t.Errorf("Message() = %q, want %q", tt.err.Message(), tt.message)
			}
		})
	}
}
