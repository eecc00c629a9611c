package models

import (
	"fmt"
	"strings"

	"github.com/stoewer/go-strcase"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Status is the lifecycle state of a job.
type Status string

const (
	StatusPending    Status = "PENDING"
	StatusInProgress Status = "IN_PROGRESS"
	StatusCompleted  Status = "COMPLETED"
	StatusCancelled  Status = "CANCELLED"
)

// Statuses lists every valid status in pipeline order.
var Statuses = []Status{StatusPending, StatusInProgress, StatusCompleted, StatusCancelled}

// IsValid reports whether s is one of the four known statuses.
func (s Status) IsValid() bool {
	switch s {
	case StatusPending, StatusInProgress, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

// Label renders the status for humans, e.g. "In Progress".
func (s Status) Label() string {
	words := strings.ToLower(strings.ReplaceAll(string(NormalizeStatus(string(s))), "_", " "))
	return cases.Title(language.English).String(words)
}

func (s Status) String() string {
	return string(s)
}

// foldStatus maps free-form input such as "in progress" or "In-Progress"
// onto the upper snake case used on the wire. Case is folded first so a
// stray capital is not read as a word break.
func foldStatus(raw string) Status {
	return Status(strcase.UpperSnakeCase(strings.ToLower(strings.TrimSpace(raw))))
}

// NormalizeStatus folds raw into a known status for display purposes.
// Unknown or empty values display as PENDING.
func NormalizeStatus(raw string) Status {
	s := foldStatus(raw)
	if !s.IsValid() {
		return StatusPending
	}
	return s
}

// ParseStatus folds raw into a known status and rejects anything outside
// the enum. Use it for values that will be submitted to the API.
func ParseStatus(raw string) (Status, error) {
	if strings.TrimSpace(raw) == "" {
		return "", &ValidationError{Field: "status", Message: "is required"}
	}
	s := foldStatus(raw)
	if !s.IsValid() {
		return "", &ValidationError{
			Field:   "status",
			Message: fmt.Sprintf("%q is not one of %s", raw, joinStatuses()),
		}
	}
	return s, nil
}

func joinStatuses() string {
	names := make([]string, len(Statuses))
	for i, s := range Statuses {
		names[i] = string(s)
	}
	return strings.Join(names, ", ")
}
