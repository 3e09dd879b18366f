package core

import (
	"errors"
	"testing"
	"time"
)

func fixedNow() time.Time {
	return time.Date(2025, 3, 15, 10, 30, 0, 123456789, time.UTC)
}

func TestNormalizeDate(t *testing.T) {
	rome, err := time.LoadLocation("Europe/Rome")
	if err != nil {
		t.Skipf("tzdata not available: %v", err)
	}

	cases := []struct {
		name string
		in   *When
		want time.Time
	}{
		{"nil means now", nil, time.Date(2025, 3, 15, 10, 30, 0, 123000000, time.UTC)},
		{"zero value means now", &When{}, time.Date(2025, 3, 15, 10, 30, 0, 123000000, time.UTC)},
		{"time value in other zone", At(time.Date(2025, 1, 2, 12, 0, 0, 0, rome)), time.Date(2025, 1, 2, 11, 0, 0, 0, time.UTC)},
		{"iso string", On("2025-01-02T11:00:00.000Z"), time.Date(2025, 1, 2, 11, 0, 0, 0, time.UTC)},
		{"rfc3339 with offset", On("2025-01-02T12:00:00+01:00"), time.Date(2025, 1, 2, 11, 0, 0, 0, time.UTC)},
		{"bare date is utc midnight", On("2025-01-02"), time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC)},
		{"nanoseconds truncated", At(time.Date(2025, 1, 2, 0, 0, 0, 999999999, time.UTC)), time.Date(2025, 1, 2, 0, 0, 0, 999000000, time.UTC)},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := NormalizeDate(tc.in, fixedNow)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !got.Equal(tc.want) || got.Location() != time.UTC {
				t.Fatalf("got %v want %v", got, tc.want)
			}
		})
	}
}

func TestNormalizeDateIdempotent(t *testing.T) {
	inputs := []*When{
		nil,
		On("2024-12-31T23:59:59.999Z"),
		On("2024-06-01"),
		At(time.Date(2024, 2, 29, 8, 0, 0, 555555555, time.FixedZone("X", -5*3600))),
	}
	for i, in := range inputs {
		once, err := NormalizeDate(in, fixedNow)
		if err != nil {
			t.Fatalf("case %d: %v", i, err)
		}
		twice, err := NormalizeDate(At(once), fixedNow)
		if err != nil {
			t.Fatalf("case %d: %v", i, err)
		}
		if !once.Equal(twice) {
			t.Fatalf("case %d: not idempotent %v vs %v", i, once, twice)
		}
		thrice, err := NormalizeDate(On(FormatDate(once)), fixedNow)
		if err != nil || !thrice.Equal(once) {
			t.Fatalf("case %d: text round trip %v vs %v (err=%v)", i, thrice, once, err)
		}
	}
}

func TestNormalizeDateRejectsGarbage(t *testing.T) {
	for _, s := range []string{"yesterday", "2025-13-01", "01/02/2025", "   "} {
		_, err := NormalizeDate(On(s), fixedNow)
		if s == "   " {
			// whitespace-only text is not "omitted": it is malformed
			if !errors.Is(err, ErrInvalidDate) {
				t.Fatalf("%q expected ErrInvalidDate, got %v", s, err)
			}
			continue
		}
		if !errors.Is(err, ErrInvalidArgument) {
			t.Fatalf("%q expected ErrInvalidArgument, got %v", s, err)
		}
	}
}

func TestMonthBoundsAndDays(t *testing.T) {
	start, end := MonthBounds(2024, time.February, time.UTC)
	if !start.Equal(time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("start %v", start)
	}
	if !end.Equal(time.Date(2024, 2, 29, 23, 59, 59, 999999999, time.UTC)) {
		t.Fatalf("end %v", end)
	}

	ts := time.Date(2024, 5, 10, 15, 0, 0, 0, time.UTC)
	if got := StartOfDay(ts, time.UTC); !got.Equal(time.Date(2024, 5, 10, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("start of day %v", got)
	}
	if got := EndOfDay(ts, time.UTC); !got.Equal(time.Date(2024, 5, 10, 23, 59, 59, 999999999, time.UTC)) {
		t.Fatalf("end of day %v", got)
	}
	if !Within(end, start, end) || !Within(start, start, end) || Within(end.Add(time.Nanosecond), start, end) {
		t.Fatalf("Within must be inclusive on both ends")
	}
}

func TestTintColor(t *testing.T) {
	cases := []struct {
		hex  string
		amt  float64
		mode TintMode
		want string
	}{
		{"#000000", 0.5, TintLight, "rgb(128, 128, 128)"},
		{"#FFFFFF", 0.5, TintDark, "rgb(128, 128, 128)"},
		{"#fff", 0, TintLight, "rgb(255, 255, 255)"},
		{"#FFAB91", 0.7, TintLight, "rgb(255, 230, 222)"},
	}
	for _, tc := range cases {
		if got := TintColor(tc.hex, tc.amt, tc.mode); got != tc.want {
			t.Fatalf("TintColor(%s)=%s want %s", tc.hex, got, tc.want)
		}
	}
}
