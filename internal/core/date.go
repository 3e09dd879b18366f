package core

import (
	"strings"
	"time"
)

// ISOLayout is the canonical text form of a normalized date, e.g. 2025-03-01T09:30:00.000Z.
const ISOLayout = "2006-01-02T15:04:05.000Z"

// When is a caller-supplied date, either a time value or its textual form.
// Text wins when both are set.
type When struct {
	Time time.Time
	Text string
}

// At wraps a time value.
func At(t time.Time) *When {
	return &When{Time: t}
}

// On wraps a textual date such as "2025-03-01" or "2025-03-01T09:30:00Z".
func On(s string) *When {
	return &When{Text: s}
}

// Layouts accepted for textual dates, tried in order. Layouts without a zone
// are read in the local calendar, except the bare date which is read as UTC.
var (
	zonedLayouts = []string{
		time.RFC3339Nano,
		time.RFC3339,
		"2006-01-02T15:04:05.000Z07:00",
		"2006-01-02T15:04Z07:00",
	}
	localLayouts = []string{
		"2006-01-02T15:04:05.000",
		"2006-01-02T15:04:05",
		"2006-01-02 15:04:05",
		"2006-01-02T15:04",
		"2006-01-02 15:04",
	}
)

// Canonical reduces t to the stored representation: UTC, millisecond precision.
func Canonical(t time.Time) time.Time {
	return t.UTC().Truncate(time.Millisecond)
}

// NormalizeDate converts w to a canonical instant. A nil w yields now().
// The result is a fixed point: NormalizeDate(At(x)) == x for any canonical x.
func NormalizeDate(w *When, now func() time.Time) (time.Time, error) {
	if w == nil {
		return Canonical(now()), nil
	}
	if w.Text == "" {
		if w.Time.IsZero() {
			return Canonical(now()), nil
		}
		return Canonical(w.Time), nil
	}
	t, err := ParseDate(w.Text)
	if err != nil {
		return time.Time{}, err
	}
	return Canonical(t), nil
}

// ParseDate reads a textual date in any of the accepted layouts.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, ErrInvalidDate
	}
	for _, layout := range zonedLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t, nil
	}
	for _, layout := range localLayouts {
		if t, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return t, nil
		}
	}
	return time.Time{}, ErrInvalidDate
}

// FormatDate renders a normalized date in ISOLayout.
func FormatDate(t time.Time) string {
	return t.UTC().Format(ISOLayout)
}

// StartOfDay returns 00:00:00.000 of t's calendar day in loc.
func StartOfDay(t time.Time, loc *time.Location) time.Time {
	y, m, d := t.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc)
}

// EndOfDay returns the last representable instant of t's calendar day in loc.
func EndOfDay(t time.Time, loc *time.Location) time.Time {
	return StartOfDay(t, loc).AddDate(0, 0, 1).Add(-time.Nanosecond)
}

// MonthBounds returns the first and last instants of the given month in loc.
func MonthBounds(year int, month time.Month, loc *time.Location) (time.Time, time.Time) {
	start := time.Date(year, month, 1, 0, 0, 0, 0, loc)
	return start, start.AddDate(0, 1, 0).Add(-time.Nanosecond)
}

// Within reports whether t lies in [from, to], both ends inclusive.
func Within(t, from, to time.Time) bool {
	return !t.Before(from) && !t.After(to)
}
