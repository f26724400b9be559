package model

import (
	"fmt"
	"time"
)

// DateLayout is the canonical calendar date format.
const DateLayout = "2006-01-02"

// Date is a calendar date in DateLayout form. Dates key ledger partitions
// and sort lexicographically in chronological order.
type Date string

// DateOf returns the calendar date of ts in its own location.
func DateOf(ts time.Time) Date {
	return Date(ts.Format(DateLayout))
}

// ParseDate validates s and returns it as a Date.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return "", fmt.Errorf("invalid date %q: %w", s, err)
	}
	return DateOf(t), nil
}

// Time returns the date at midnight UTC.
func (d Date) Time() (time.Time, error) {
	t, err := time.Parse(DateLayout, string(d))
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: %w", string(d), err)
	}
	return t, nil
}

// Next returns the following calendar day.
func (d Date) Next() Date {
	t, err := d.Time()
	if err != nil {
		return d
	}
	return DateOf(t.AddDate(0, 0, 1))
}

// Weekday returns the weekday name for the date, e.g. "Monday".
func (d Date) Weekday() string {
	t, err := d.Time()
	if err != nil {
		return ""
	}
	return t.Weekday().String()
}

// Valid reports whether d is a well-formed calendar date.
func (d Date) Valid() bool {
	_, err := d.Time()
	return err == nil
}

// DatesBetween returns every calendar date in [start, end] inclusive.
// An inverted range yields nil.
func DatesBetween(start, end Date) []Date {
	if !start.Valid() || !end.Valid() || start > end {
		return nil
	}
	var out []Date
	for d := start; d <= end; d = d.Next() {
		out = append(out, d)
	}
	return out
}
