package models

import (
	"errors"
	"strings"
)

// Client is a customer of the business.
type Client struct {
	ID        int64      `json:"id,omitempty" yaml:"id,omitempty"`
	Name      string     `json:"name" yaml:"name"`
	Email     string     `json:"email,omitempty" yaml:"email,omitempty"`
	Phone     string     `json:"phone,omitempty" yaml:"phone,omitempty"`
	Address   string     `json:"address,omitempty" yaml:"address,omitempty"`
	Notes     string     `json:"notes,omitempty" yaml:"notes,omitempty"`
	CreatedAt *LocalTime `json:"createdAt,omitempty" yaml:"createdAt,omitempty"`

	// Unconfirmed marks an optimistic placeholder the server has not
	// acknowledged yet.
	Unconfirmed bool `json:"-" yaml:"unconfirmed,omitempty"`
}

func (c Client) EntityID() int64 { return c.ID }

func (c Client) Confirmed() bool { return !c.Unconfirmed }

func (c Client) Provisional(tempID int64) Client {
	c.ID = tempID
	c.Unconfirmed = true
	return c
}

// Validate requires a name and, when given, a well-formed email.
func (c Client) Validate() error {
	var errs []error
	if err := required("name", c.Name); err != nil {
		errs = append(errs, err)
	}
	if strings.TrimSpace(c.Email) != "" {
		if err := ValidateEmail("email", c.Email); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Initials returns the first two letters of the name, upper-cased.
func (c Client) Initials() string {
	return Initials(c.Name)
}

// Initials returns the first two runes of name upper-cased, or "??".
func Initials(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return "??"
	}
	r := []rune(name)
	if len(r) > 2 {
		r = r[:2]
	}
	return strings.ToUpper(string(r))
}
