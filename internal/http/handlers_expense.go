package http

import (
	"fmt"
	"net/http"
	"slices"

	"pocket/internal/core"
	"pocket/internal/export"
	"pocket/internal/ledger"
	applog "pocket/internal/log"
)

// ExpenseRequest is the body of POST and PATCH /api/expenses. For PATCH every
// field is optional; for POST amount and title are required.
type ExpenseRequest struct {
	CategoryID    *string     `json:"categoryId"`
	Amount        *AmountText `json:"amount"`
	Date          *string     `json:"date"`
	Title         *string     `json:"title"`
	Note          *string     `json:"note"`
	PaymentMethod *string     `json:"paymentMethod"`
}

// Input converts the request into a creation input.
func (req ExpenseRequest) Input() (core.ExpenseInput, error) {
	if req.Amount == nil {
		return core.ExpenseInput{}, core.ErrInvalidAmount
	}
	amount, err := req.Amount.Amount()
	if err != nil {
		return core.ExpenseInput{}, err
	}
	in := core.ExpenseInput{
		CategoryID:    deref(req.CategoryID),
		Amount:        amount,
		Title:         deref(req.Title),
		Note:          deref(req.Note),
		PaymentMethod: deref(req.PaymentMethod),
	}
	if req.Date != nil {
		in.Date = core.On(*req.Date)
	}
	return in, nil
}

// Update converts the request into a partial update.
func (req ExpenseRequest) Update() (core.ExpenseUpdate, error) {
	u := core.ExpenseUpdate{
		CategoryID:    req.CategoryID,
		Title:         req.Title,
		Note:          req.Note,
		PaymentMethod: req.PaymentMethod,
	}
	if req.Amount != nil {
		amount, err := req.Amount.Amount()
		if err != nil {
			return core.ExpenseUpdate{}, err
		}
		u.Amount = &amount
	}
	if req.Date != nil {
		u.Date = core.On(*req.Date)
	}
	return u, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func (s *Server) handleCreateExpense(w http.ResponseWriter, r *http.Request) {
	var req ExpenseRequest
	if err := DecodeJSON(w, r, &req); err != nil {
		FromError(err).Write(w)
		return
	}
	in, err := req.Input()
	if err != nil {
		FromError(err).Write(w)
		return
	}
	e, err := s.tracker.AddExpense(in)
	if err != nil {
		FromError(err).Write(w)
		return
	}

	applog.FromContext(r.Context()).InfoContext(r.Context(), "Expense created",
		applog.NewFields().WithExpense(e.ID, e.Amount, e.CategoryID).WithOperation(applog.OpCreate).ToSlice()...)

	NewResponse().
		Status(http.StatusCreated).
		Header("Location", "/api/expenses/"+e.ID).
		JSON(e).
		Write(w)
}

func (s *Server) handleGetExpense(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	e, ok := s.tracker.GetExpense(id)
	if !ok {
		FromError(fmt.Errorf("%w: expense %q", ErrNotFound, id)).Write(w)
		return
	}
	NewResponse().JSON(e).Write(w)
}

func (s *Server) handleEditExpense(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	var req ExpenseRequest
	if err := DecodeJSON(w, r, &req); err != nil {
		FromError(err).Write(w)
		return
	}
	u, err := req.Update()
	if err != nil {
		FromError(err).Write(w)
		return
	}
	found, err := s.tracker.EditExpense(id, u)
	if err != nil {
		FromError(err).Write(w)
		return
	}
	if !found {
		FromError(fmt.Errorf("%w: expense %q", ErrNotFound, id)).Write(w)
		return
	}
	e, _ := s.tracker.GetExpense(id)
	NewResponse().JSON(e).Write(w)
}

func (s *Server) handleDeleteExpense(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if !s.tracker.DeleteExpense(id) {
		FromError(fmt.Errorf("%w: expense %q", ErrNotFound, id)).Write(w)
		return
	}
	applog.FromContext(r.Context()).InfoContext(r.Context(), "Expense deleted",
		applog.FieldExpenseID, id, applog.FieldOperation, applog.OpDelete)
	NewResponse().Status(http.StatusNoContent).Write(w)
}

func (s *Server) handleListExpenses(w http.ResponseWriter, r *http.Request) {
	expenses, err := s.selectExpenses(r)
	if err != nil {
		FromError(err).Write(w)
		return
	}
	NewResponse().JSON(expenses).Write(w)
}

func (s *Server) handleRecentExpenses(w http.ResponseWriter, r *http.Request) {
	n, err := ParseCount(r.URL.Query(), "n", ledger.DefaultRecentCount)
	if err != nil {
		FromError(err).Write(w)
		return
	}
	if r.URL.Query().Get("enriched") == "true" {
		NewResponse().JSON(s.tracker.RecentEnriched(n)).Write(w)
		return
	}
	NewResponse().JSON(s.tracker.RecentTransactions(n)).Write(w)
}

func (s *Server) handleExportExpenses(w http.ResponseWriter, r *http.Request) {
	expenses, err := s.selectExpenses(r)
	if err != nil {
		FromError(err).Write(w)
		return
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="expenses.csv"`)
	if err := export.Expenses(w, expenses, s.tracker.LookupCategory); err != nil {
		// Headers are already out; all that is left is to log.
		applog.LogError(r.Context(), "Failed to export expenses", err, applog.OpExport, nil)
	}
}

// selectExpenses applies the optional from and to range together with the
// exact-match filters read by ParseCriteria.
func (s *Server) selectExpenses(r *http.Request) ([]core.Expense, error) {
	q := r.URL.Query()
	rng, err := ParseDateRange(q, s.tracker.Location())
	if err != nil {
		return nil, err
	}
	crit, err := ParseCriteria(q)
	if err != nil {
		return nil, err
	}

	if !rng.IsSet() {
		switch {
		case crit == nil:
			return s.tracker.ListExpenses(), nil
		case crit.Title == nil && crit.PaymentMethod == nil && crit.Amount == nil:
			return s.tracker.ExpensesByCategory(*crit.CategoryID), nil
		default:
			return s.tracker.MatchExpenses(*crit), nil
		}
	}

	from, to := rng.Bounds()
	expenses := s.tracker.ExpensesByDateRange(from, to)
	if crit != nil {
		matched := make(map[string]bool)
		for _, e := range s.tracker.MatchExpenses(*crit) {
			matched[e.ID] = true
		}
		expenses = slices.DeleteFunc(expenses, func(e core.Expense) bool { return !matched[e.ID] })
	}
	return expenses, nil
}
