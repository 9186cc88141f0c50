package models

import (
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/araddon/dateparse"
)

const dateOnlyLayout = "2006-01-02"

// ErrInvalidDate is returned when a date string cannot be parsed
var ErrInvalidDate = errors.New("invalid date/time format")

// FlexTime accepts the date formats browsers and scripts send:
// YYYY-MM-DD from <input type="date">, RFC3339, and anything dateparse understands.
// Values without a zone are read in the server's local time.
type FlexTime struct {
	time.Time
	// DateOnly is set when the input carried no time of day
	DateOnly bool
}

// ParseFlexTime parses s in the server's local time zone
func ParseFlexTime(s string) (FlexTime, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return FlexTime{}, ErrInvalidDate
	}
	if t, err := time.ParseInLocation(dateOnlyLayout, s, time.Local); err == nil {
		return FlexTime{Time: t, DateOnly: true}, nil
	}
	t, err := dateparse.ParseIn(s, time.Local)
	if err != nil {
		return FlexTime{}, ErrInvalidDate
	}
	return FlexTime{Time: t}, nil
}

func (ft *FlexTime) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return ErrInvalidDate
	}
	if strings.TrimSpace(s) == "" {
		return nil
	}
	parsed, err := ParseFlexTime(s)
	if err != nil {
		return err
	}
	*ft = parsed
	return nil
}

func (ft FlexTime) MarshalJSON() ([]byte, error) {
	return json.Marshal(ft.Time)
}

// EndOfDay returns the last instant of the day for date-only values and the
// parsed instant otherwise. Report ranges use it so an end date is inclusive.
func (ft FlexTime) EndOfDay() time.Time {
	if !ft.DateOnly {
		return ft.Time
	}
	return ft.Time.AddDate(0, 0, 1).Add(-time.Nanosecond)
}
