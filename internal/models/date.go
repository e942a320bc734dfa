// Package models defines data structures for Bolsa
package models

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// DateLayout is the canonical YYYYMMDD key format.
const DateLayout = "20060102"

// Sentinel errors. Invalid input surfaces to callers; absence never does.
var (
	ErrInvalidDate   = errors.New("invalid date")
	ErrInvalidRecord = errors.New("invalid record")
	ErrNotFound      = errors.New("not found")
)

// Date is a calendar day in canonical YYYYMMDD form.
// Lexicographic order equals chronological order.
type Date string

// ParseDate accepts YYYYMMDD or YYYY-MM-DD.
func ParseDate(s string) (Date, error) {
	s = strings.TrimSpace(s)
	layout := DateLayout
	if len(s) == 10 && strings.Count(s, "-") == 2 {
		layout = "2006-01-02"
	}
	t, err := time.Parse(layout, s)
	if err != nil {
		return "", fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	return DateOf(t), nil
}

// MustParseDate is ParseDate for literals; it panics on bad input.
func MustParseDate(s string) Date {
	d, err := ParseDate(s)
	if err != nil {
		panic(err)
	}
	return d
}

// DateOf returns the calendar day of t in t's location.
func DateOf(t time.Time) Date {
	return Date(t.Format(DateLayout))
}

// Valid reports whether d is a real calendar day in canonical form.
func (d Date) Valid() bool {
	if len(d) != 8 {
		return false
	}
	_, err := time.Parse(DateLayout, string(d))
	return err == nil
}

// Time returns midnight UTC of d, or the zero time when d is invalid.
func (d Date) Time() time.Time {
	t, err := time.Parse(DateLayout, string(d))
	if err != nil {
		return time.Time{}
	}
	return t
}

// AddDays returns d shifted by n calendar days.
func (d Date) AddDays(n int) Date {
	return DateOf(d.Time().AddDate(0, 0, n))
}

// Weekday returns the day of the week of d.
func (d Date) Weekday() time.Weekday {
	return d.Time().Weekday()
}

// IsWeekend reports whether d falls on Saturday or Sunday.
func (d Date) IsWeekend() bool {
	wd := d.Weekday()
	return wd == time.Saturday || wd == time.Sunday
}

// Before reports whether d is strictly earlier than other.
func (d Date) Before(other Date) bool {
	return d < other
}

// Display formats d as DD/MM/YYYY.
func (d Date) Display() string {
	t := d.Time()
	if t.IsZero() {
		return string(d)
	}
	return t.Format("02/01/2006")
}

func (d Date) String() string {
	return string(d)
}

// OrderRange returns the bounds in ascending order.
func OrderRange(from, to Date) (Date, Date) {
	if to < from {
		return to, from
	}
	return from, to
}
