package cli

import (
	"strings"
	"testing"
)

func TestIcon(t *testing.T) {
	if got := Icon("Utensils"); got != "🍽" {
		t.Errorf("Icon(Utensils)=%q", got)
	}
	for _, key := range []string{"", "NoSuchIcon"} {
		if got := Icon(key); got != DefaultIcon {
			t.Errorf("Icon(%q)=%q want fallback", key, got)
		}
	}
}

func TestProgressBar(t *testing.T) {
	if ProgressBar(0.5, 0) != "" {
		t.Error("zero width should render nothing")
	}
	tests := []struct {
		ratio  float64
		filled int
	}{
		{0, 0},
		{0.5, 5},
		{1, 10},
		{3, 10},
		{-1, 0},
	}
	for _, tt := range tests {
		bar := ProgressBar(tt.ratio, 10)
		if got := strings.Count(bar, "█"); got != tt.filled {
			t.Errorf("ProgressBar(%v) filled=%d want %d", tt.ratio, got, tt.filled)
		}
		if got := strings.Count(bar, "░"); got != 10-tt.filled {
			t.Errorf("ProgressBar(%v) empty=%d want %d", tt.ratio, got, 10-tt.filled)
		}
	}
}
