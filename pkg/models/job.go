package models

import (
	"errors"
	"fmt"
)

// ClientRef is the client a job is attached to. Requests only need the
// id; responses carry the full record.
type ClientRef struct {
	ID    int64  `json:"id" yaml:"id"`
	Name  string `json:"name,omitempty" yaml:"name,omitempty"`
	Email string `json:"email,omitempty" yaml:"email,omitempty"`
	Phone string `json:"phone,omitempty" yaml:"phone,omitempty"`
}

// Job is a unit of scheduled work, optionally for a client.
type Job struct {
	ID            int64      `json:"id,omitempty" yaml:"id,omitempty"`
	Title         string     `json:"title" yaml:"title"`
	Description   string     `json:"description,omitempty" yaml:"description,omitempty"`
	Status        Status     `json:"status" yaml:"status"`
	ScheduledDate *LocalTime `json:"scheduledDate" yaml:"scheduledDate,omitempty"`
	Address       string     `json:"address,omitempty" yaml:"address,omitempty"`
	Notes         string     `json:"notes,omitempty" yaml:"notes,omitempty"`
	Client        *ClientRef `json:"client" yaml:"client,omitempty"`
	CreatedAt     *LocalTime `json:"createdAt,omitempty" yaml:"createdAt,omitempty"`
	UpdatedAt     *LocalTime `json:"updatedAt,omitempty" yaml:"updatedAt,omitempty"`

	Unconfirmed bool `json:"-" yaml:"unconfirmed,omitempty"`
}

func (j Job) EntityID() int64 { return j.ID }

func (j Job) Confirmed() bool { return !j.Unconfirmed }

func (j Job) Provisional(tempID int64) Job {
	j.ID = tempID
	j.Unconfirmed = true
	return j
}

// Validate requires a title and a status spelled exactly as one of the
// four enum values. Free-form input goes through ParseStatus first.
func (j Job) Validate() error {
	var errs []error
	if err := required("title", j.Title); err != nil {
		errs = append(errs, err)
	}
	switch {
	case j.Status == "":
		errs = append(errs, &ValidationError{Field: "status", Message: "is required"})
	case !j.Status.IsValid():
		errs = append(errs, &ValidationError{
			Field:   "status",
			Message: fmt.Sprintf("%q is not one of %s", j.Status, joinStatuses()),
		})
	}
	if j.Client != nil && j.Client.ID <= 0 {
		errs = append(errs, &ValidationError{Field: "client", Message: "must reference a saved client"})
	}
	return errors.Join(errs...)
}

// DisplayStatus is the status folded for rendering.
func (j Job) DisplayStatus() Status {
	return NormalizeStatus(string(j.Status))
}

// ClientName returns the attached client's name or "No Client".
func (j Job) ClientName() string {
	if j.Client == nil || j.Client.Name == "" {
		return "No Client"
	}
	return j.Client.Name
}

// Ref is the short reference shown next to a job, e.g. JOB-0007.
func (j Job) Ref() string {
	if j.ID <= 0 {
		return "JOB-NEW"
	}
	return fmt.Sprintf("JOB-%04d", j.ID)
}

// ForClient returns a reference to c suitable for a job payload.
func ForClient(c Client) *ClientRef {
	return &ClientRef{ID: c.ID, Name: c.Name, Email: c.Email, Phone: c.Phone}
}
