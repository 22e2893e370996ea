// Package provider holds shared plumbing for upstream lookup adapters:
// HTTP transport construction and upstream error classification.
package provider

import (
	"fmt"
	"io"
	"net/http"

	ceptracker "github.com/eugener/ceptracker/internal"
)

// APIError represents a non-200 response from an upstream lookup service.
// It unwraps to ceptracker.ErrUpstream.
type APIError struct {
	Provider   string
	StatusCode int
	Body       string
}

// Error returns a formatted error string including provider, status, and body.
func (e *APIError) Error() string {
	return fmt.Sprintf("%s: HTTP %d: %s", e.Provider, e.StatusCode, e.Body)
}

// HTTPStatus returns the upstream HTTP status code.
func (e *APIError) HTTPStatus() int { return e.StatusCode }

// Unwrap lets errors.Is match the upstream failure family.
func (e *APIError) Unwrap() error { return ceptracker.ErrUpstream }

// ParseAPIError reads up to 4KB from the response body and returns an APIError.
func ParseAPIError(provider string, resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	return &APIError{Provider: provider, StatusCode: resp.StatusCode, Body: string(body)}
}
