package http

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"pocket/internal/core"
)

func TestParseMonthParams(t *testing.T) {
	now := time.Date(2025, 3, 31, 23, 30, 0, 0, time.UTC)
	tokyo := time.FixedZone("JST", 9*3600)

	tests := []struct {
		name      string
		query     url.Values
		loc       *time.Location
		wantYear  int
		wantMonth time.Month
		wantErr   bool
	}{
		{"defaults to current month", url.Values{}, time.UTC, 2025, time.March, false},
		{"current month follows location", url.Values{}, tokyo, 2025, time.April, false},
		{"explicit values", url.Values{"year": {"2024"}, "month": {"12"}}, time.UTC, 2024, time.December, false},
		{"only month", url.Values{"month": {"1"}}, time.UTC, 2025, time.January, false},
		{"month out of range", url.Values{"month": {"0"}}, time.UTC, 0, 0, true},
		{"month not a number", url.Values{"month": {"march"}}, time.UTC, 0, 0, true},
		{"bad year", url.Values{"year": {"-1"}}, time.UTC, 0, 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseMonthParams(tt.query, now, tt.loc)
			if tt.wantErr {
				if !errors.Is(err, ErrMalformedRequest) {
					t.Fatalf("expected ErrMalformedRequest, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got.Year != tt.wantYear || got.Month != tt.wantMonth {
				t.Errorf("got %d-%d, want %d-%d", got.Year, got.Month, tt.wantYear, tt.wantMonth)
			}
		})
	}
}

func TestParseCount(t *testing.T) {
	q := url.Values{"n": {"3"}, "bad": {"x"}, "neg": {"-2"}}
	if n, err := ParseCount(q, "n", 5); err != nil || n != 3 {
		t.Fatalf("n=%d err=%v", n, err)
	}
	if n, err := ParseCount(q, "missing", 5); err != nil || n != 5 {
		t.Fatalf("default n=%d err=%v", n, err)
	}
	for _, key := range []string{"bad", "neg"} {
		if _, err := ParseCount(q, key, 5); !errors.Is(err, ErrMalformedRequest) {
			t.Fatalf("%s: expected ErrMalformedRequest, got %v", key, err)
		}
	}
}

func TestParseDateRange(t *testing.T) {
	loc := time.FixedZone("CET", 3600)

	rng, err := ParseDateRange(url.Values{"from": {"2025-02-01"}, "to": {"2025-02-28"}}, loc)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !rng.From.Equal(time.Date(2025, 2, 1, 0, 0, 0, 0, loc)) {
		t.Errorf("from=%v", rng.From)
	}
	if !rng.To.Equal(time.Date(2025, 2, 28, 23, 59, 59, 999999999, loc)) {
		t.Errorf("to=%v", rng.To)
	}

	rng, err = ParseDateRange(url.Values{"from": {"2025-02-01T10:00:00Z"}}, loc)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !rng.From.Equal(time.Date(2025, 2, 1, 10, 0, 0, 0, time.UTC)) || rng.To != nil {
		t.Errorf("timestamps must be kept as given: %+v", rng)
	}
	from, to := rng.Bounds()
	if !from.Equal(*rng.From) || to.Year() != 9999 {
		t.Errorf("open end bounds: %v %v", from, to)
	}

	if rng, _ := ParseDateRange(url.Values{}, loc); rng.IsSet() {
		t.Errorf("empty query must leave the range unset")
	}
	if _, err := ParseDateRange(url.Values{"to": {"soon"}}, loc); !errors.Is(err, ErrMalformedRequest) {
		t.Errorf("expected ErrMalformedRequest, got %v", err)
	}
}

func TestParseCriteria(t *testing.T) {
	c, err := ParseCriteria(url.Values{"from": {"2025-01-01"}})
	if err != nil || c != nil {
		t.Fatalf("expected no criteria, got %+v err=%v", c, err)
	}

	c, err = ParseCriteria(url.Values{"category": {""}, "payment": {"card"}, "amount": {"4,20"}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.CategoryID == nil || *c.CategoryID != "" || c.PaymentMethod == nil || *c.PaymentMethod != "card" {
		t.Fatalf("unexpected criteria %+v", c)
	}
	if c.Title != nil || c.Amount == nil || !c.Amount.Equal(decimal.RequireFromString("4.2")) {
		t.Fatalf("unexpected criteria %+v", c)
	}

	if _, err := ParseCriteria(url.Values{"amount": {"-3"}}); !errors.Is(err, ErrMalformedRequest) {
		t.Fatalf("expected ErrMalformedRequest, got %v", err)
	}
}

func TestParseInstantRejectsBlank(t *testing.T) {
	if _, err := ParseInstant("  ", time.UTC); !errors.Is(err, core.ErrInvalidDate) {
		t.Fatalf("expected ErrInvalidDate, got %v", err)
	}
}

func TestDecodeJSON(t *testing.T) {
	type body struct {
		Name string `json:"name"`
	}
	tests := []struct {
		name    string
		payload string
		wantErr bool
	}{
		{"valid", `{"name":"x"}`, false},
		{"empty", ``, true},
		{"unknown field", `{"name":"x","extra":1}`, true},
		{"trailing data", `{"name":"x"}{"name":"y"}`, true},
		{"syntax", `{"name":`, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tt.payload))
			var b body
			err := DecodeJSON(httptest.NewRecorder(), req, &b)
			if tt.wantErr {
				if !errors.Is(err, ErrMalformedRequest) {
					t.Fatalf("expected ErrMalformedRequest, got %v", err)
				}
				return
			}
			if err != nil || b.Name != "x" {
				t.Fatalf("got %+v err=%v", b, err)
			}
		})
	}
}

func TestDecodeJSONBodyTooLarge(t *testing.T) {
	payload := `{"name":"` + strings.Repeat("a", MaxBodyBytes) + `"}`
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(payload))
	var b struct {
		Name string `json:"name"`
	}
	if err := DecodeJSON(httptest.NewRecorder(), req, &b); !errors.Is(err, ErrMalformedRequest) {
		t.Fatalf("expected ErrMalformedRequest, got %v", err)
	}
}

func TestAmountText(t *testing.T) {
	var req ExpenseRequest
	for _, payload := range []string{`{"amount":12.5}`, `{"amount":"12,50"}`, `{"amount":" 12.5 "}`} {
		req = ExpenseRequest{}
		rec := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(payload))
		if err := DecodeJSON(httptest.NewRecorder(), rec, &req); err != nil {
			t.Fatalf("%s: %v", payload, err)
		}
		got, err := req.Amount.Amount()
		if err != nil || !got.Equal(decimal.RequireFromString("12.5")) {
			t.Fatalf("%s: got %s err=%v", payload, got, err)
		}
	}

	var budget AmountText = "0"
	if b, err := budget.Budget(); err != nil || !b.IsZero() {
		t.Fatalf("zero budget: %s err=%v", b, err)
	}
	if _, err := budget.Amount(); !errors.Is(err, core.ErrInvalidAmount) {
		t.Fatalf("zero amount must be rejected, got %v", err)
	}
}

func TestExpenseRequestConversion(t *testing.T) {
	title := "Bus"
	date := "2025-03-01"
	amount := AmountText("2")
	req := ExpenseRequest{Title: &title, Date: &date, Amount: &amount}

	in, err := req.Input()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if in.Title != "Bus" || in.Date == nil || in.Date.Text != date || in.CategoryID != "" {
		t.Fatalf("unexpected input %+v", in)
	}

	u, err := ExpenseRequest{Title: &title}.Update()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if u.Title == nil || u.Amount != nil || u.Date != nil {
		t.Fatalf("unexpected update %+v", u)
	}

	bad := AmountText("-1")
	if _, err := (ExpenseRequest{Amount: &bad}).Update(); !errors.Is(err, core.ErrInvalidArgument) {
		t.Fatalf("expected ErrInvalidArgument, got %v", err)
	}
}
