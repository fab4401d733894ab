// Package day models UTC calendar days and the clock that produces "today".
//
// Streak rules compare whole calendar days, never instants. Every comparison
// happens in UTC so that a player and the server agree on which puzzle is the
// daily one regardless of local timezone.
package day

import (
	"encoding/json"
	"fmt"
	"regexp"
	"time"
)

// Layout is the only accepted textual form of a Day.
const Layout = "2006-01-02"

var strictPattern = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

// Day is a calendar day in UTC. The zero value is not a valid day.
type Day struct {
	year  int
	month time.Month
	dom   int
}

// Of returns the UTC calendar day containing t.
func Of(t time.Time) Day {
	y, m, d := t.UTC().Date()
	return Day{year: y, month: m, dom: d}
}

// New builds a Day from its parts, normalising overflow the way time.Date does.
func New(year int, month time.Month, dom int) Day {
	return Of(time.Date(year, month, dom, 0, 0, 0, 0, time.UTC))
}

// Parse accepts strict YYYY-MM-DD text that names a real calendar date.
// "2025-02-30" and "2025-1-05" are rejected: the value must round-trip
// through UTC formatting unchanged.
func Parse(s string) (Day, error) {
	if !strictPattern.MatchString(s) {
		return Day{}, fmt.Errorf("day %q: not in YYYY-MM-DD form", s)
	}
	t, err := time.ParseInLocation(Layout, s, time.UTC)
	if err != nil {
		return Day{}, fmt.Errorf("day %q: %w", s, err)
	}
	d := Of(t)
	if d.String() != s {
		return Day{}, fmt.Errorf("day %q: does not round-trip (got %s)", s, d)
	}
	return d, nil
}

// MustParse is Parse for constants in tests and fixtures.
func MustParse(s string) Day {
	d, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return d
}

// IsZero reports whether d is the zero (invalid) day.
func (d Day) IsZero() bool {
	return d == Day{}
}

// Time returns midnight UTC at the start of d.
func (d Day) Time() time.Time {
	return time.Date(d.year, d.month, d.dom, 0, 0, 0, 0, time.UTC)
}

// String formats d as YYYY-MM-DD.
func (d Day) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Time().Format(Layout)
}

// AddDays returns d shifted by n calendar days.
func (d Day) AddDays(n int) Day {
	return Of(d.Time().AddDate(0, 0, n))
}

// Sub returns the number of calendar days from o to d.
func (d Day) Sub(o Day) int {
	return int(d.Time().Sub(o.Time()).Hours() / 24)
}

// Before reports whether d is strictly earlier than o.
func (d Day) Before(o Day) bool {
	return d.Time().Before(o.Time())
}

// After reports whether d is strictly later than o.
func (d Day) After(o Day) bool {
	return d.Time().After(o.Time())
}

// MarshalJSON encodes d as a YYYY-MM-DD string.
func (d Day) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(d.String())
}

// UnmarshalJSON decodes a strict YYYY-MM-DD string.
func (d *Day) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*d = Day{}
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := Parse(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// Ptr returns a pointer to a copy of d, for optional fields.
func Ptr(d Day) *Day {
	return &d
}
