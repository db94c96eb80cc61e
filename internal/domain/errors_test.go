package domain

import (
	"errors"
	"fmt"
	"testing"
)

func TestNetworkError(t *testing.T) {
	baseErr := errors.New("connection refused")

	t.Run("retriable error", func(t *testing.T) {
		err := NewNetworkError("dial", baseErr)

		if !err.IsRetriable() {
			t.Error("Expected error to be retriable")
		}

		if err.Error() != "dial: connection refused" {
			t.Errorf("Error message = %q, want %q", err.Error(), "dial: connection refused")
		}

		if !errors.Is(err, baseErr) {
			t.Error("Expected error to wrap baseErr")
		}
	})

	t.Run("fatal error", func(t *testing.T) {
		err := NewFatalNetworkError("auth", baseErr)

		if err.IsRetriable() {
			t.Error("Expected error to not be retriable")
		}
	})

	t.Run("IsRetriable helper", func(t *testing.T) {
		retriable := NewNetworkError("dial", baseErr)
		fatal := NewFatalNetworkError("auth", baseErr)
		plain := errors.New("plain error")

		if !IsRetriable(retriable) {
			t.Error("IsRetriable should return true for retriable error")
		}
		if IsRetriable(fatal) {
			t.Error("IsRetriable should return false for fatal error")
		}
		if IsRetriable(plain) {
			t.Error("IsRetriable should return false for plain error")
		}
	})

	t.Run("wrapped retriable error", func(t *testing.T) {
		wrapped := fmt.Errorf("quote AAPL: %w", NewNetworkError("request", baseErr))
		if !IsRetriable(wrapped) {
			t.Error("IsRetriable should see through fmt.Errorf wrapping")
		}
	})
}

func TestAPIError(t *testing.T) {
	tests := []struct {
		status    int
		retriable bool
	}{
		{401, false},
		{403, false},
		{429, true},
		{500, true},
		{503, true},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("status %d", tt.status), func(t *testing.T) {
			err := &APIError{Endpoint: "/quote", StatusCode: tt.status}
			if err.IsRetriable() != tt.retriable {
				t.Errorf("IsRetriable() = %v, want %v", err.IsRetriable(), tt.retriable)
			}
		})
	}

	err := &APIError{Endpoint: "/quote", StatusCode: 429}
	if err.Error() != "API Error: 429 (/quote)" {
		t.Errorf("Error message = %q", err.Error())
	}
}

func TestConfigError(t *testing.T) {
	baseErr := errors.New("missing value")
	err := &ConfigError{Field: "api_key", Err: baseErr}

	if err.IsRetriable() {
		t.Error("ConfigError should never be retriable")
	}

	expected := "config error [api_key]: missing value"
	if err.Error() != expected {
		t.Errorf("Error message = %q, want %q", err.Error(), expected)
	}
}
