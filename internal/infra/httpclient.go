package infra

import (
	"net/http"
	"time"
)

// NewHTTPClient returns a client with a bounded connection pool and the given timeout
func NewHTTPClient(timeout time.Duration) *http.Client {
	// Optimize HTTP Transport to prevent connection leaks
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.MaxIdleConns = 100
	transport.MaxConnsPerHost = 10
	transport.IdleConnTimeout = 30 * time.Second

	return &http.Client{
		Timeout:   timeout,
		Transport: transport,
	}
}
