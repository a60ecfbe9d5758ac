package common

import (
	"errors"
	"fmt"
	"net/http"
)

// Business logic errors
var (
	ErrNotFound     = errors.New("resource not found")
	ErrForbidden    = errors.New("forbidden")
	ErrPostNotFound = errors.New("post not found")

	// Auth errors
	ErrUnauthorized = errors.New("unauthorized")
	ErrInvalidToken = errors.New("invalid token")
	ErrExpiredToken = errors.New("expired token")

	// Validation errors
	ErrInvalidInput = errors.New("invalid input")
)

// APIError is a (code, message, HTTP status) triple returned directly to
// REST clients.
type APIError struct {
	Code    string
	Message string
	Status  int
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// NewAPIError creates an APIError.
func NewAPIError(code, message string, status int) *APIError {
	return &APIError{Code: code, Message: message, Status: status}
}

// Restore error taxonomy. Each failure mode carries a distinct code so the
// revisions view can message it precisely.
var (
	ErrMissingParam = NewAPIError("missing_param", "required parameter is missing", http.StatusBadRequest)

	ErrRestoreForbidden = NewAPIError("rest_forbidden",
		"Sorry, you are not allowed to do that.", http.StatusUnauthorized)

	ErrParentNotFound = NewAPIError("rest_not_found",
		"Parent post can't be found.", http.StatusNotFound)

	ErrPostLocked = NewAPIError("rest_post_locked",
		"The current post is currently being edited, therefore cannot be reverted", http.StatusBadRequest)

	ErrInvalidRevisionID = NewAPIError("rest_revision_invalid_id",
		"Invalid revision ID.", http.StatusNotFound)
)
