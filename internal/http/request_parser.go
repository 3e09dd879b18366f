// Package http provides the JSON API served by cmd/pocket.
//
// This file implements helpers for decoding request bodies and query
// parameters into domain values.

package http

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"pocket/internal/core"
	"pocket/internal/ledger"
)

// MaxBodyBytes caps request bodies.
const MaxBodyBytes = 1 << 20

// dayLayout is the date-only form accepted in query strings and filter bodies.
const dayLayout = "2006-01-02"

// DecodeJSON decodes a single JSON object from the request body into dst.
// Unknown fields and trailing data are rejected.
func DecodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, MaxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return fmt.Errorf("%w: empty body", ErrMalformedRequest)
		}
		return fmt.Errorf("%w: %v", ErrMalformedRequest, err)
	}
	if dec.More() {
		return fmt.Errorf("%w: trailing data after JSON object", ErrMalformedRequest)
	}
	return nil
}

// AmountText is a money value as sent by clients: a JSON number or a string
// such as "12,50". Parsing is deferred so that bad values surface as
// validation errors rather than decoding errors.
type AmountText string

func (a *AmountText) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*a = AmountText(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*a = AmountText(n.String())
	return nil
}

// Amount parses a as an expense amount.
func (a AmountText) Amount() (decimal.Decimal, error) {
	return core.ParseAmount(string(a))
}

// Budget parses a as a budget, where zero is allowed.
func (a AmountText) Budget() (decimal.Decimal, error) {
	return core.ParseBudget(string(a))
}

// MonthParams holds parsed year/month values from request parameters.
type MonthParams struct {
	Year  int
	Month time.Month
}

// ParseMonthParams reads year and month (1-12) from the query, defaulting
// each to the month containing now in loc.
func ParseMonthParams(query url.Values, now time.Time, loc *time.Location) (MonthParams, error) {
	local := now.In(loc)
	params := MonthParams{Year: local.Year(), Month: local.Month()}

	if v := strings.TrimSpace(query.Get("year")); v != "" {
		y, err := strconv.Atoi(v)
		if err != nil || y < 1 || y > 9999 {
			return MonthParams{}, fmt.Errorf("%w: year %q", ErrMalformedRequest, v)
		}
		params.Year = y
	}
	if v := strings.TrimSpace(query.Get("month")); v != "" {
		m, err := strconv.Atoi(v)
		if err != nil || m < 1 || m > 12 {
			return MonthParams{}, fmt.Errorf("%w: month %q", ErrMalformedRequest, v)
		}
		params.Month = time.Month(m)
	}
	return params, nil
}

// HasMonth reports whether the query names a year or a month.
func HasMonth(query url.Values) bool {
	return query.Has("year") || query.Has("month")
}

// ParseCount reads a non-negative integer parameter, returning def when absent.
func ParseCount(query url.Values, key string, def int) (int, error) {
	v := strings.TrimSpace(query.Get(key))
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("%w: %s %q", ErrMalformedRequest, key, v)
	}
	return n, nil
}

// ParseCriteria reads the exact-match filters category, title, payment and
// amount. It returns nil when none of them is present.
func ParseCriteria(query url.Values) (*ledger.Criteria, error) {
	var c ledger.Criteria
	set := false
	text := func(key string) *string {
		if !query.Has(key) {
			return nil
		}
		set = true
		v := query.Get(key)
		return &v
	}
	c.CategoryID = text("category")
	c.Title = text("title")
	c.PaymentMethod = text("payment")
	if v := text("amount"); v != nil {
		a, err := core.ParseAmount(*v)
		if err != nil {
			return nil, fmt.Errorf("%w: amount %q", ErrMalformedRequest, *v)
		}
		c.Amount = &a
	}
	if !set {
		return nil, nil
	}
	return &c, nil
}

// ParseInstant accepts either a bare date, read as midnight in loc, or a
// full timestamp in any layout core.ParseDate accepts.
func ParseInstant(s string, loc *time.Location) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.ParseInLocation(dayLayout, s, loc); err == nil {
		return t, nil
	}
	t, err := core.ParseDate(s)
	if err != nil {
		return time.Time{}, fmt.Errorf("date %q: %w", s, err)
	}
	return core.Canonical(t), nil
}

// DateRange is an optional inclusive window read from the query.
type DateRange struct {
	From *time.Time
	To   *time.Time
}

// ParseDateRange reads from and to. A bare date widens to the start or end
// of that day in loc; timestamps are kept as given.
func ParseDateRange(query url.Values, loc *time.Location) (DateRange, error) {
	var rng DateRange
	if v := strings.TrimSpace(query.Get("from")); v != "" {
		t, err := ParseInstant(v, loc)
		if err != nil {
			return DateRange{}, fmt.Errorf("%w: from: %v", ErrMalformedRequest, err)
		}
		if isDay(v) {
			t = core.StartOfDay(t, loc)
		}
		rng.From = &t
	}
	if v := strings.TrimSpace(query.Get("to")); v != "" {
		t, err := ParseInstant(v, loc)
		if err != nil {
			return DateRange{}, fmt.Errorf("%w: to: %v", ErrMalformedRequest, err)
		}
		if isDay(v) {
			t = core.EndOfDay(t, loc)
		}
		rng.To = &t
	}
	return rng, nil
}

// Bounds returns the window with open ends replaced by the zero time and a
// far future instant.
func (d DateRange) Bounds() (time.Time, time.Time) {
	from, to := time.Time{}, time.Date(9999, 12, 31, 23, 59, 59, 0, time.UTC)
	if d.From != nil {
		from = *d.From
	}
	if d.To != nil {
		to = *d.To
	}
	return from, to
}

// IsSet reports whether either end was given.
func (d DateRange) IsSet() bool {
	return d.From != nil || d.To != nil
}

func isDay(s string) bool {
	_, err := time.Parse(dayLayout, s)
	return err == nil
}
