// Package ledger owns the authoritative collection of expenses and the
// monthly budget.
package ledger

import (
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"pocket/internal/core"
)

// DefaultRecentCount is how many expenses Recent returns when callers have no preference.
const DefaultRecentCount = 5

// Ledger is not safe for concurrent use; its owner serializes access.
type Ledger struct {
	expenses []core.Expense
	budget   decimal.Decimal

	now   func() time.Time
	loc   *time.Location
	newID func() string
}

// Option configures a Ledger.
type Option func(*Ledger)

// WithClock sets the time source used for defaulted dates and Balance.
func WithClock(now func() time.Time) Option {
	return func(l *Ledger) { l.now = now }
}

// WithLocation sets the calendar used to decide what "this month" is.
func WithLocation(loc *time.Location) Option {
	return func(l *Ledger) { l.loc = loc }
}

// WithIDGenerator overrides expense id generation.
func WithIDGenerator(fn func() string) Option {
	return func(l *Ledger) { l.newID = fn }
}

// New builds a ledger holding previously stored expenses, in their stored order.
// Stored dates are normalized again so restored state obeys the same invariant.
func New(expenses []core.Expense, budget decimal.Decimal, opts ...Option) *Ledger {
	l := &Ledger{
		budget: budget,
		now:    time.Now,
		loc:    time.Local,
		newID:  uuid.NewString,
	}
	for _, opt := range opts {
		opt(l)
	}
	l.expenses = make([]core.Expense, len(expenses))
	for i, e := range expenses {
		e.Date = core.Canonical(e.Date)
		l.expenses[i] = e
	}
	return l
}

// Add validates in, assigns a fresh id and a normalized date, and stores it.
func (l *Ledger) Add(in core.ExpenseInput) (core.Expense, error) {
	if err := in.Validate(); err != nil {
		return core.Expense{}, err
	}
	date, err := core.NormalizeDate(in.Date, l.now)
	if err != nil {
		return core.Expense{}, err
	}
	e := core.Expense{
		ID:            l.newID(),
		CategoryID:    in.CategoryID,
		Amount:        in.Amount,
		Date:          date,
		Title:         in.Title,
		Note:          in.Note,
		PaymentMethod: in.PaymentMethod,
	}
	l.expenses = append(l.expenses, e)
	return e, nil
}

// Edit merges u into the expense id. It returns false when id is unknown.
// A supplied date is normalized again; otherwise the stored date is kept.
// Invalid updates are rejected whole with core.ErrInvalidArgument.
func (l *Ledger) Edit(id string, u core.ExpenseUpdate) (bool, error) {
	i := l.index(id)
	if i < 0 {
		return false, nil
	}
	if err := u.Validate(); err != nil {
		return false, err
	}
	e := l.expenses[i]
	if u.Date != nil {
		date, err := core.NormalizeDate(u.Date, l.now)
		if err != nil {
			return false, err
		}
		e.Date = date
	}
	if u.CategoryID != nil {
		e.CategoryID = *u.CategoryID
	}
	if u.Amount != nil {
		e.Amount = *u.Amount
	}
	if u.Title != nil {
		e.Title = *u.Title
	}
	if u.Note != nil {
		e.Note = *u.Note
	}
	if u.PaymentMethod != nil {
		e.PaymentMethod = *u.PaymentMethod
	}
	l.expenses[i] = e
	return true, nil
}

// Delete removes the expense id if present and reports whether it did.
func (l *Ledger) Delete(id string) bool {
	i := l.index(id)
	if i < 0 {
		return false
	}
	l.expenses = slices.Delete(l.expenses, i, i+1)
	return true
}

// Get returns the expense id.
func (l *Ledger) Get(id string) (core.Expense, bool) {
	if i := l.index(id); i >= 0 {
		return l.expenses[i], true
	}
	return core.Expense{}, false
}

// List returns all expenses in insertion order.
func (l *Ledger) List() []core.Expense {
	return slices.Clone(l.expenses)
}

// Len returns the number of stored expenses.
func (l *Ledger) Len() int {
	return len(l.expenses)
}

// ByCategory returns the expenses filed under categoryID, in insertion order.
func (l *Ledger) ByCategory(categoryID string) []core.Expense {
	return l.where(func(e core.Expense) bool { return e.CategoryID == categoryID })
}

// ByDateRange returns expenses dated within [from, to]. Both ends are compared
// as instants; no day boundaries are inferred.
func (l *Ledger) ByDateRange(from, to time.Time) []core.Expense {
	return l.where(func(e core.Expense) bool { return core.Within(e.Date, from, to) })
}

// Criteria selects expenses by exact field values. Nil fields match anything.
type Criteria struct {
	CategoryID    *string
	Title         *string
	PaymentMethod *string
	Amount        *decimal.Decimal
}

// Match returns expenses equal to every non-nil field of c.
func (l *Ledger) Match(c Criteria) []core.Expense {
	return l.where(func(e core.Expense) bool {
		switch {
		case c.CategoryID != nil && e.CategoryID != *c.CategoryID:
			return false
		case c.Title != nil && e.Title != *c.Title:
			return false
		case c.PaymentMethod != nil && e.PaymentMethod != *c.PaymentMethod:
			return false
		case c.Amount != nil && !e.Amount.Equal(*c.Amount):
			return false
		}
		return true
	})
}

// Recent returns up to n expenses, newest first. Expenses sharing a date keep
// their insertion order.
func (l *Ledger) Recent(n int) []core.Expense {
	if n <= 0 {
		return []core.Expense{}
	}
	sorted := slices.Clone(l.expenses)
	slices.SortStableFunc(sorted, func(a, b core.Expense) int {
		return b.Date.Compare(a.Date)
	})
	if len(sorted) > n {
		sorted = sorted[:n]
	}
	return sorted
}

// SetBudget replaces the budget. Negative budgets are rejected.
func (l *Ledger) SetBudget(b decimal.Decimal) error {
	if err := core.ValidateBudget(b); err != nil {
		return fmt.Errorf("set budget %s: %w", b, err)
	}
	l.budget = b
	return nil
}

// Budget returns the current budget.
func (l *Ledger) Budget() decimal.Decimal {
	return l.budget
}

// Balance is the budget minus everything spent in the current calendar month.
// "Current" is read from the clock on every call.
func (l *Ledger) Balance() decimal.Decimal {
	return l.budget.Sub(l.MonthSpend(l.now()))
}

// MonthSpend sums the expenses dated in the calendar month containing t.
func (l *Ledger) MonthSpend(t time.Time) decimal.Decimal {
	local := t.In(l.loc)
	from, to := core.MonthBounds(local.Year(), local.Month(), l.loc)
	return core.Sum(l.ByDateRange(from, to))
}

// Location returns the calendar used for month boundaries.
func (l *Ledger) Location() *time.Location {
	return l.loc
}

// Now returns the ledger's current time.
func (l *Ledger) Now() time.Time {
	return l.now()
}

func (l *Ledger) where(keep func(core.Expense) bool) []core.Expense {
	out := []core.Expense{}
	for _, e := range l.expenses {
		if keep(e) {
			out = append(out, e)
		}
	}
	return out
}

func (l *Ledger) index(id string) int {
	return slices.IndexFunc(l.expenses, func(e core.Expense) bool { return e.ID == id })
}
