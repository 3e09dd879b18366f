package cli

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
)

var (
	// PrimaryColor is the main theme color.
	PrimaryColor = lipgloss.Color("#5B8DEF")
	SuccessColor = lipgloss.Color("#4ECDC4")
	WarningColor = lipgloss.Color("#FFE66D")
	ErrorColor   = lipgloss.Color("#FF6B6B")
	SubtleColor  = lipgloss.Color("#666666")

	TitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(PrimaryColor)

	SuccessStyle = lipgloss.NewStyle().Foreground(SuccessColor)
	WarningStyle = lipgloss.NewStyle().Foreground(WarningColor)
	ErrorStyle   = lipgloss.NewStyle().Foreground(ErrorColor)
	SubtleStyle  = lipgloss.NewStyle().Foreground(SubtleColor)

	// HeaderStyle is used for table headers.
	HeaderStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("86"))

	// BoxStyle frames summaries.
	BoxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#333")).
			Padding(0, 1)
)

const (
	SuccessIcon = "✓"
	ErrorIcon   = "✗"
)

// FormatSuccess formats a success message with icon.
func FormatSuccess(format string, args ...any) string {
	return SuccessStyle.Render(SuccessIcon + " " + fmt.Sprintf(format, args...))
}

// FormatError formats an error message with icon.
func FormatError(message string) string {
	return ErrorStyle.Render(ErrorIcon + " " + message)
}

// DefaultIcon is shown for a missing or unknown icon key.
const DefaultIcon = "🏷"

var icons = map[string]string{
	"Utensils":       "🍽",
	"Coffee":         "☕",
	"ShoppingCart":   "🛒",
	"Home":           "🏠",
	"Receipt":        "🧾",
	"Wifi":           "📶",
	"Car":            "🚗",
	"Droplet":        "⛽",
	"HeartPulse":     "🩺",
	"Scissors":       "✂",
	"Shield":         "🛡",
	"ShoppingBag":    "🛍",
	"Music":          "🎵",
	"Tv":             "📺",
	"User":           "🧒",
	"Dog":            "🐕",
	"Gift":           "🎁",
	"BookOpen":       "📖",
	"Briefcase":      "💼",
	"CircleEllipsis": "…",
}

// Icon resolves a category icon key to a glyph.
func Icon(key string) string {
	if g, ok := icons[key]; ok {
		return g
	}
	return DefaultIcon
}

// Swatch renders a dot in a category's color.
func Swatch(hex string) string {
	if hex == "" {
		return " "
	}
	return lipgloss.NewStyle().Foreground(lipgloss.Color(hex)).Render("●")
}

// RenderBox renders content under a title in a bordered box.
func RenderBox(title, content string) string {
	return BoxStyle.Render(lipgloss.JoinVertical(lipgloss.Left, TitleStyle.Render(title), content))
}

// ProgressBar draws a fixed-width bar for a ratio in [0,1].
func ProgressBar(ratio float64, width int) string {
	if width <= 0 {
		return ""
	}
	filled := int(ratio*float64(width) + 0.5)
	filled = max(0, min(width, filled))
	style := SuccessStyle
	switch {
	case ratio >= 1:
		style = ErrorStyle
	case ratio >= 0.8:
		style = WarningStyle
	}
	bar := make([]rune, 0, width)
	for i := 0; i < width; i++ {
		if i < filled {
			bar = append(bar, '█')
		} else {
			bar = append(bar, '░')
		}
	}
	return style.Render(string(bar))
}
