package models

import (
	"fmt"
	"strings"
	"time"
)

// LocalTimeLayout is the zone-less ISO 8601 form the API reads and writes.
const LocalTimeLayout = "2006-01-02T15:04:05"

var localTimeLayouts = []string{
	LocalTimeLayout,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04",
	time.RFC3339Nano,
	"2006-01-02",
}

// LocalTime is a wall-clock timestamp without zone information.
type LocalTime struct {
	time.Time
}

// NewLocalTime wraps t, dropping sub-second precision.
func NewLocalTime(t time.Time) *LocalTime {
	return &LocalTime{Time: t.Truncate(time.Second)}
}

// ParseLocalTime accepts the API layout, RFC 3339 and a bare date.
func ParseLocalTime(s string) (*LocalTime, error) {
	s = strings.TrimSpace(s)
	for _, layout := range localTimeLayouts {
		if t, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return &LocalTime{Time: t}, nil
		}
	}
	return nil, &ValidationError{Field: "scheduledDate", Message: fmt.Sprintf("%q is not an ISO 8601 date", s)}
}

func (t LocalTime) MarshalJSON() ([]byte, error) {
	return []byte(`"` + t.Format(LocalTimeLayout) + `"`), nil
}

func (t *LocalTime) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	if s == "" || s == "null" {
		return nil
	}
	parsed, err := ParseLocalTime(s)
	if err != nil {
		return err
	}
	*t = *parsed
	return nil
}

func (t LocalTime) MarshalYAML() (any, error) {
	return t.Format(LocalTimeLayout), nil
}

// SameDay reports whether t falls on the same calendar day as other.
func (t LocalTime) SameDay(other time.Time) bool {
	y1, m1, d1 := t.Date()
	y2, m2, d2 := other.In(t.Location()).Date()
	return y1 == y2 && m1 == m2 && d1 == d2
}
