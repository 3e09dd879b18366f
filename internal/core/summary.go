package core

import (
	"time"

	"github.com/shopspring/decimal"
)

// CategoryTotal is the spend aggregated for one resolvable category.
type CategoryTotal struct {
	Category Category        `json:"category"`
	Total    decimal.Decimal `json:"total"`
	Count    int             `json:"count"`
}

// CategoryGroup holds the expenses of one resolvable category.
type CategoryGroup struct {
	Category Category  `json:"category"`
	Expenses []Expense `json:"expenses"`
}

// EnrichedExpense pairs an expense with its resolved category.
type EnrichedExpense struct {
	Expense
	Category Category `json:"category"`
}

// MonthSummary is a compact overview for a specific year+month.
type MonthSummary struct {
	Year       int             `json:"year"`
	Month      time.Month      `json:"month"` // 1-12
	Spend      decimal.Decimal `json:"spend"`
	Budget     decimal.Decimal `json:"budget"`
	Progress   float64         `json:"progress"`
	Remaining  decimal.Decimal `json:"remaining"`
	Balance    decimal.Decimal `json:"balance"`
	ByCategory []CategoryTotal `json:"byCategory"`
}
