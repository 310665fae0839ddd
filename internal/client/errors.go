package client

import (
	"fmt"
	"net/http"

	"github.com/example/gym-admin/internal/application"
)

// Error is a non-2xx answer from the backend. It unwraps to the matching
// application sentinel so callers can use errors.Is and errors.As.
type Error struct {
	Status  int
	Message string
	Fields  map[string]string
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("request failed with status %d", e.Status)
	}
	return e.Message
}

// Unwrap maps the status code onto the application error model.
func (e *Error) Unwrap() error {
	switch e.Status {
	case http.StatusUnauthorized:
		return application.ErrUnauthorized
	case http.StatusForbidden:
		return application.ErrForbidden
	case http.StatusNotFound:
		return application.ErrNotFound
	case http.StatusServiceUnavailable:
		return application.ErrTransientNetwork
	case http.StatusUnprocessableEntity:
		return &application.ValidationError{FieldErrors: e.Fields}
	}
	return nil
}
