package model

import (
	"errors"
	"fmt"
	"testing"
)

func TestAPIError_Error(t *testing.T) {
	tests := []struct {
		name string
		err  *APIError
		want string
	}{
		{
			name: "without wrapped error",
			err: &APIError{
				Code:    "TEST_ERROR",
				Message: "something went wrong",
			},
			want: "TEST_ERROR: something went wrong",
		},
		{
			name: "with wrapped error",
			err: &APIError{
				Code:    "TEST_ERROR",
				Message: "something went wrong",
				Err:     errors.New("underlying cause"),
			},
			want: "TEST_ERROR: something went wrong (underlying cause)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.err.Error()
			if got != tt.want {
				t.Errorf("Error() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestAPIError_Unwrap(t *testing.T) {
	underlying := errors.New("underlying error")
	err := &APIError{
		Code:    "TEST",
		Message: "test",
		Err:     underlying,
	}

	if err.Unwrap() != underlying {
		t.Errorf("Unwrap() = %v, want %v", err.Unwrap(), underlying)
	}

	errNoWrap := &APIError{Code: "TEST", Message: "test"}
	if errNoWrap.Unwrap() != nil {
		t.Error("Unwrap() should return nil when no wrapped error")
	}
}

func TestNewRateLimitError(t *testing.T) {
	err := NewRateLimitError("backend", 0)
	if err.Code != "RATE_LIMITED" {
		t.Errorf("Code = %q, want %q", err.Code, "RATE_LIMITED")
	}
	if err.StatusCode != 429 {
		t.Errorf("StatusCode = %d, want 429", err.StatusCode)
	}
	if err.Message != "backend rate limit exceeded, please retry later" {
		t.Errorf("Message = %q", err.Message)
	}

	withHint := NewRateLimitError("backend", 30)
	if withHint.Message != "backend rate limit exceeded, retry after 30s" {
		t.Errorf("Message = %q, want retry-after hint", withHint.Message)
	}
}

// TestErrorsIs verifies that errors.Is() works correctly with all sentinel
// errors. Handler code relies on this to determine response codes.
func TestErrorsIs(t *testing.T) {
	tests := []struct {
		name     string
		err      *APIError
		sentinel error
	}{
		{"NotFound", NewNotFoundError("x"), ErrNotFound},
		{"Validation", NewValidationError("x", "y"), ErrInvalidRequest},
		{"Unauthorized", NewUnauthorizedError("x"), ErrUnauthorized},
		{"Forbidden", NewForbiddenError("x"), ErrForbidden},
		{"Upstream", NewUpstreamError("x", nil), ErrUpstreamError},
		{"RateLimit", NewRateLimitError("x", 0), ErrRateLimited},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if !errors.Is(tt.err, tt.sentinel) {
				t.Errorf("errors.Is(%T, %v) = false, want true", tt.err, tt.sentinel)
			}
		})
	}
}

func TestAPIErrorImplementsError(t *testing.T) {
	var err error = &APIError{Code: "TEST", Message: "test"}
	_ = err.Error()

	wrapped := fmt.Errorf("outer: %w", err)
	var apiErr *APIError
	if !errors.As(wrapped, &apiErr) {
		t.Error("errors.As should find *APIError in wrapped error")
	}
}
