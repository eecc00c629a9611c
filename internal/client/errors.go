package client

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// NetworkError wraps a transport failure or timeout. No response was
// received from the API.
type NetworkError struct {
	Op  string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("%s: network error: %v", e.Op, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// StatusError is a non-2xx response that has no more specific type.
type StatusError struct {
	Op         string
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%s: unexpected status %d %s", e.Op, e.StatusCode, http.StatusText(e.StatusCode))
	}
	return fmt.Sprintf("%s: unexpected status %d: %s", e.Op, e.StatusCode, e.Message)
}

// AuthError is returned for 401/403 responses, e.g. rejected credentials.
type AuthError struct{ StatusError }

func (e *AuthError) Unwrap() error { return &e.StatusError }

// NotFoundError is returned when the target of a read or write is missing
// server-side.
type NotFoundError struct{ StatusError }

func (e *NotFoundError) Unwrap() error { return &e.StatusError }

// ValidationError is a server-side rejection of a payload (400/422).
type ValidationError struct{ StatusError }

func (e *ValidationError) Unwrap() error { return &e.StatusError }

// ConflictError is returned for 409 responses.
type ConflictError struct{ StatusError }

func (e *ConflictError) Unwrap() error { return &e.StatusError }

// errorBody is the shape of the API's error responses.
type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func errorMessage(body []byte) string {
	var eb errorBody
	if err := json.Unmarshal(body, &eb); err == nil {
		if eb.Error != "" {
			return eb.Error
		}
		if eb.Message != "" {
			return eb.Message
		}
	}
	return strings.TrimSpace(string(body))
}

// classify maps a non-2xx response onto the error taxonomy.
func classify(op string, status int, body []byte) error {
	base := StatusError{Op: op, StatusCode: status, Message: errorMessage(body)}
	switch status {
	case http.StatusUnauthorized, http.StatusForbidden:
		return &AuthError{base}
	case http.StatusNotFound:
		return &NotFoundError{base}
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		return &ValidationError{base}
	case http.StatusConflict:
		return &ConflictError{base}
	default:
		return &base
	}
}

// HTTPStatus returns the status code carried by err, or 0 when err did not
// come from an API response.
func HTTPStatus(err error) int {
	var se *StatusError
	if errors.As(err, &se) {
		return se.StatusCode
	}
	return 0
}

// IsNetwork reports whether err is a transport failure.
func IsNetwork(err error) bool {
	var ne *NetworkError
	return errors.As(err, &ne)
}
