package google

import (
	"fmt"
	"strings"

	"pocket/internal/core"
)

// Column layouts. The first row of every sheet is a header.
var (
	expenseHeader  = []any{"ID", "Date", "Title", "Amount", "Category", "Note", "Payment method"}
	categoryHeader = []any{"ID", "Name", "Color", "Icon"}
	profileHeader  = []any{"Key", "Value"}
)

// BudgetKey is the profile-sheet row holding the budget.
const BudgetKey = "budget"

func expenseRows(expenses []core.Expense) [][]any {
	rows := make([][]any, 0, len(expenses)+1)
	rows = append(rows, expenseHeader)
	for _, e := range expenses {
		rows = append(rows, []any{
			e.ID,
			core.FormatDate(e.Date),
			e.Title,
			e.Amount.String(),
			e.CategoryID,
			e.Note,
			e.PaymentMethod,
		})
	}
	return rows
}

func categoryRows(cats []core.Category) [][]any {
	rows := make([][]any, 0, len(cats)+1)
	rows = append(rows, categoryHeader)
	for _, c := range cats {
		rows = append(rows, []any{c.ID, c.Name, c.Color, c.Icon})
	}
	return rows
}

// parseCategoryRows reads category rows, skipping the header, blank and
// commented rows, and rows without an id or name. Duplicate ids keep the
// first occurrence.
func parseCategoryRows(values [][]any) []core.Category {
	var out []core.Category
	seen := map[string]struct{}{}
	for i, row := range values {
		cols := toStrings(row)
		id, name := safeGet(cols, 0), safeGet(cols, 1)
		if i == 0 && strings.EqualFold(id, "id") {
			continue
		}
		if id == "" || name == "" || strings.HasPrefix(id, "#") {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, core.Category{
			ID:    id,
			Name:  name,
			Color: safeGet(cols, 2),
			Icon:  safeGet(cols, 3),
		})
	}
	return out
}

// parseProfileRows reads key/value rows into a map keyed by lower-cased key,
// along with each key's 1-based sheet row.
func parseProfileRows(values [][]any) (map[string]string, map[string]int) {
	kv := map[string]string{}
	rowOf := map[string]int{}
	for i, row := range values {
		cols := toStrings(row)
		key := strings.ToLower(safeGet(cols, 0))
		if key == "" || (i == 0 && key == "key") {
			continue
		}
		if _, dup := kv[key]; dup {
			continue
		}
		kv[key] = safeGet(cols, 1)
		rowOf[key] = i + 1
	}
	return kv, rowOf
}

func profileFromRows(values [][]any) core.Profile {
	kv, _ := parseProfileRows(values)
	return core.Profile{
		FullName:       kv[strings.ToLower("fullName")],
		ProfilePicture: kv[strings.ToLower("profilePicture")],
	}
}

func toStrings(in []any) []string {
	out := make([]string, len(in))
	for i, v := range in {
		out[i] = strings.TrimSpace(fmt.Sprint(v))
	}
	return out
}

func safeGet(arr []string, idx int) string {
	if idx < 0 || idx >= len(arr) {
		return ""
	}
	return arr[idx]
}
