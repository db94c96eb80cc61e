package domain

import (
	"errors"
	"fmt"
	"net/http"
)

// RetriableError defines an interface for errors that can be retried
type RetriableError interface {
	error
	IsRetriable() bool
}

// IsRetriable checks if an error is retriable
func IsRetriable(err error) bool {
	var re RetriableError
	if errors.As(err, &re) {
		return re.IsRetriable()
	}
	return false
}

// NetworkError represents a network-related error that may be retriable
type NetworkError struct {
	Op        string // Operation that failed (e.g., "dial", "read", "request")
	Err       error  // Underlying error
	Retriable bool   // Whether this error is retriable
}

func (e *NetworkError) Error() string {
	return e.Op + ": " + e.Err.Error()
}

func (e *NetworkError) IsRetriable() bool {
	return e.Retriable
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

// NewNetworkError creates a new retriable network error
func NewNetworkError(op string, err error) *NetworkError {
	return &NetworkError{Op: op, Err: err, Retriable: true}
}

// NewFatalNetworkError creates a non-retriable network error
func NewFatalNetworkError(op string, err error) *NetworkError {
	return &NetworkError{Op: op, Err: err, Retriable: false}
}

// APIError is a non-2xx response from the market-data REST API.
type APIError struct {
	Endpoint   string
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("API Error: %d (%s)", e.StatusCode, e.Endpoint)
}

// IsRetriable is true for rate limiting and server-side failures.
func (e *APIError) IsRetriable() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= http.StatusInternalServerError
}

// ConfigError represents a configuration error (never retriable)
type ConfigError struct {
	Field string
	Err   error
}

func (e *ConfigError) Error() string {
	return "config error [" + e.Field + "]: " + e.Err.Error()
}

func (e *ConfigError) IsRetriable() bool {
	return false
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

var (
	// ErrConnectionFailed is returned when the stream connection fails. It's usually retriable.
	ErrConnectionFailed = errors.New("connection failed")

	// ErrNotConnected is returned when a directive is written while the stream is not open.
	ErrNotConnected = errors.New("stream not connected")

	// ErrInvalidSymbol is returned when a symbol is empty or malformed. Not retriable.
	ErrInvalidSymbol = errors.New("invalid symbol")

	// ErrEmptyResponse is returned when the API answers 2xx with no usable body
	ErrEmptyResponse = errors.New("empty response")

	// ErrAlreadyInWatchlist is returned when adding a symbol that is already watched
	ErrAlreadyInWatchlist = errors.New("stock already in watchlist")

	// ErrNotInWatchlist is returned when removing a symbol that is not watched
	ErrNotInWatchlist = errors.New("stock not in watchlist")

	// ErrConfigNotFound is returned when configuration file is missing
	ErrConfigNotFound = errors.New("configuration not found")
)
