// Package filter holds the user's current history filter: an optional
// category plus either a month of the year or an explicit date range.
package filter

import (
	"fmt"
	"time"

	"pocket/internal/core"
)

// Mode is the active date sub-state of a Session.
type Mode int

const (
	NoDate Mode = iota
	ByMonth
	ByRange
)

func (m Mode) String() string {
	switch m {
	case ByMonth:
		return "month"
	case ByRange:
		return "range"
	default:
		return "none"
	}
}

// Selection is the observable state of a Session. Month is 0-11 and only
// set in ByMonth mode; Start and End only in ByRange mode.
type Selection struct {
	Mode       Mode       `json:"-"`
	CategoryID *string    `json:"categoryId,omitempty"`
	Month      *int       `json:"month,omitempty"`
	StartDate  *time.Time `json:"startDate,omitempty"`
	EndDate    *time.Time `json:"endDate,omitempty"`
}

// Session is not safe for concurrent use; its owner serializes access.
type Session struct {
	loc      *time.Location
	category string
	hasCat   bool
	mode     Mode
	month    int
	start    time.Time
	end      time.Time
}

// New returns an empty session whose day and month boundaries are taken in loc.
func New(loc *time.Location) *Session {
	if loc == nil {
		loc = time.Local
	}
	return &Session{loc: loc}
}

func (s *Session) SetCategory(id string) {
	s.category, s.hasCat = id, true
}

func (s *Session) ClearCategory() {
	s.category, s.hasCat = "", false
}

// ApplyMonth filters by month of year, 0 for January. Any range is discarded.
func (s *Session) ApplyMonth(m int) error {
	if m < 0 || m > 11 {
		return fmt.Errorf("apply month %d: %w", m, core.ErrInvalidMonth)
	}
	s.mode, s.month = ByMonth, m
	s.start, s.end = time.Time{}, time.Time{}
	return nil
}

// ApplyRange filters by the calendar days from start to end inclusive.
// Any month is discarded.
func (s *Session) ApplyRange(start, end time.Time) {
	s.mode, s.month = ByRange, 0
	s.start, s.end = start, end
}

// Clear drops the date filter and the category filter.
func (s *Session) Clear() {
	*s = Session{loc: s.loc}
}

func (s *Session) Selection() Selection {
	sel := Selection{Mode: s.mode}
	if s.hasCat {
		id := s.category
		sel.CategoryID = &id
	}
	switch s.mode {
	case ByMonth:
		m := s.month
		sel.Month = &m
	case ByRange:
		start, end := s.start, s.end
		sel.StartDate, sel.EndDate = &start, &end
	}
	return sel
}

// Matches reports whether e passes the current selection.
func (s *Session) Matches(e core.Expense) bool {
	if s.hasCat && e.CategoryID != s.category {
		return false
	}
	switch s.mode {
	case ByMonth:
		return int(e.Date.In(s.loc).Month())-1 == s.month
	case ByRange:
		return core.Within(e.Date, core.StartOfDay(s.start, s.loc), core.EndOfDay(s.end, s.loc))
	}
	return true
}

// Apply returns the expenses passing the current selection, in input order.
func (s *Session) Apply(expenses []core.Expense) []core.Expense {
	out := []core.Expense{}
	for _, e := range expenses {
		if s.Matches(e) {
			out = append(out, e)
		}
	}
	return out
}
