package core

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// TintMode selects whether TintColor mixes towards white or black.
type TintMode string

const (
	TintLight TintMode = "light"
	TintDark  TintMode = "dark"
)

// DefaultTint is the mix factor used for category card backgrounds.
const DefaultTint = 0.7

// TintColor derives a background color from a category color by mixing it
// towards white (light) or black (dark) by amount in [0,1]. Three-digit hex is
// expanded. Unparsable input falls back to a neutral grey.
func TintColor(hex string, amount float64, mode TintMode) string {
	col := strings.TrimPrefix(strings.TrimSpace(hex), "#")
	if len(col) == 3 {
		col = string([]byte{col[0], col[0], col[1], col[1], col[2], col[2]})
	}
	num, err := strconv.ParseUint(col, 16, 32)
	if err != nil || len(col) != 6 {
		num = 0xE0E0E0
	}
	r := float64((num >> 16) & 0xFF)
	g := float64((num >> 8) & 0xFF)
	b := float64(num & 0xFF)

	if mode == TintDark {
		r, g, b = r*(1-amount), g*(1-amount), b*(1-amount)
	} else {
		r, g, b = r+(255-r)*amount, g+(255-g)*amount, b+(255-b)*amount
	}
	return fmt.Sprintf("rgb(%d, %d, %d)", int(math.Round(r)), int(math.Round(g)), int(math.Round(b)))
}
