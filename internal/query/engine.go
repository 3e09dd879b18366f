// Package query derives read-only views from the ledger and the category
// registry. Nothing here is cached; every call recomputes from current state.
package query

import (
	"time"

	"github.com/shopspring/decimal"

	"pocket/internal/core"
)

// Expenses is the read side of the ledger the engine works from.
type Expenses interface {
	List() []core.Expense
	Recent(n int) []core.Expense
	Budget() decimal.Decimal
	Balance() decimal.Decimal
}

// Categories resolves category ids.
type Categories interface {
	List() []core.Category
	Lookup(id string) (core.Category, bool)
}

type Engine struct {
	expenses   Expenses
	categories Categories
	loc        *time.Location
}

// New builds an engine. Month boundaries are taken in loc.
func New(expenses Expenses, categories Categories, loc *time.Location) *Engine {
	if loc == nil {
		loc = time.Local
	}
	return &Engine{expenses: expenses, categories: categories, loc: loc}
}

// MonthlySpend sums the amounts dated within the given calendar month, both
// ends inclusive.
func (e *Engine) MonthlySpend(year int, month time.Month) decimal.Decimal {
	return core.Sum(e.inMonth(year, month))
}

// Progress is spend/budget clamped to [0, 1]. A budget of zero or less
// yields 0.
func Progress(spend, budget decimal.Decimal) float64 {
	if !budget.IsPositive() {
		return 0
	}
	p := spend.Div(budget).InexactFloat64()
	switch {
	case p < 0:
		return 0
	case p > 1:
		return 1
	}
	return p
}

// Remaining is what is left of the budget, never below zero.
func Remaining(spend, budget decimal.Decimal) decimal.Decimal {
	return decimal.Max(budget.Sub(spend), decimal.Zero)
}

// Summary collects the monthly dashboard figures for year/month.
func (e *Engine) Summary(year int, month time.Month) core.MonthSummary {
	inMonth := e.inMonth(year, month)
	spend := core.Sum(inMonth)
	budget := e.expenses.Budget()
	return core.MonthSummary{
		Year:       year,
		Month:      month,
		Spend:      spend,
		Budget:     budget,
		Progress:   Progress(spend, budget),
		Remaining:  Remaining(spend, budget),
		Balance:    e.expenses.Balance(),
		ByCategory: e.Totals(inMonth),
	}
}

// GroupByCategory buckets expenses by category, in registry order. Expenses
// pointing at an unknown category are left out, as are empty categories.
func (e *Engine) GroupByCategory(expenses []core.Expense) []core.CategoryGroup {
	byID := make(map[string][]core.Expense)
	for _, x := range expenses {
		byID[x.CategoryID] = append(byID[x.CategoryID], x)
	}
	groups := []core.CategoryGroup{}
	for _, c := range e.categories.List() {
		if xs, ok := byID[c.ID]; ok {
			groups = append(groups, core.CategoryGroup{Category: c, Expenses: xs})
		}
	}
	return groups
}

// Totals aggregates expenses per resolvable category, in registry order.
func (e *Engine) Totals(expenses []core.Expense) []core.CategoryTotal {
	groups := e.GroupByCategory(expenses)
	totals := make([]core.CategoryTotal, len(groups))
	for i, g := range groups {
		totals[i] = core.CategoryTotal{Category: g.Category, Total: core.Sum(g.Expenses), Count: len(g.Expenses)}
	}
	return totals
}

// Enrich attaches the resolved category to each expense, keeping order and
// dropping those whose category no longer exists.
func (e *Engine) Enrich(expenses []core.Expense) []core.EnrichedExpense {
	out := make([]core.EnrichedExpense, 0, len(expenses))
	for _, x := range expenses {
		c, ok := e.categories.Lookup(x.CategoryID)
		if !ok {
			continue
		}
		out = append(out, core.EnrichedExpense{Expense: x, Category: c})
	}
	return out
}

// Recent returns the n newest expenses that still resolve to a category.
func (e *Engine) Recent(n int) []core.EnrichedExpense {
	return e.Enrich(e.expenses.Recent(n))
}

func (e *Engine) inMonth(year int, month time.Month) []core.Expense {
	from, to := core.MonthBounds(year, month, e.loc)
	var out []core.Expense
	for _, x := range e.expenses.List() {
		if core.Within(x.Date, from, to) {
			out = append(out, x)
		}
	}
	return out
}
