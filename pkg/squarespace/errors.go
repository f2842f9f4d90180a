package squarespace

import (
	"errors"
	"fmt"
)

// Common errors returned by the client.
var (
	// ErrMissingNextPageURL is returned when a response declares a next
	// page but carries no URL for it.
	ErrMissingNextPageURL = errors.New("pagination declares next page but nextPageUrl is empty")

	// ErrContextCancelled is returned when the context is cancelled
	// between pages.
	ErrContextCancelled = errors.New("context cancelled")
)

// APIError represents a non-success response from the commerce API.
type APIError struct {
	StatusCode int
	Endpoint   string
	Message    string
	Err        error
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("squarespace API error (status %d) on %s: %s: %v",
			e.StatusCode, e.Endpoint, e.Message, e.Err)
	}
	return fmt.Sprintf("squarespace API error (status %d) on %s: %s",
		e.StatusCode, e.Endpoint, e.Message)
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *APIError) Unwrap() error {
	return e.Err
}
