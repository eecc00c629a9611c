package models

import (
	"fmt"
	"net/mail"
	"strings"
)

// ValidationError reports a field that failed a client-side check. It is
// raised before any network call is made.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s %s", e.Field, e.Message)
}

func required(field, value string) error {
	if strings.TrimSpace(value) == "" {
		return &ValidationError{Field: field, Message: "is required"}
	}
	return nil
}

// ValidateEmail accepts a bare address only; display-name forms are rejected.
func ValidateEmail(field, value string) error {
	addr, err := mail.ParseAddress(value)
	if err != nil || addr.Address != strings.TrimSpace(value) {
		return &ValidationError{Field: field, Message: "is not a valid email address"}
	}
	return nil
}
