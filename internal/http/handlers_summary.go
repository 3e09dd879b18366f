package http

import (
	"net/http"

	"github.com/shopspring/decimal"

	applog "pocket/internal/log"
)

// BudgetRequest is the body of PUT /api/budget.
type BudgetRequest struct {
	Budget *AmountText `json:"budget"`
}

type budgetResponse struct {
	Budget decimal.Decimal `json:"budget"`
}

type balanceResponse struct {
	Budget  decimal.Decimal `json:"budget"`
	Balance decimal.Decimal `json:"balance"`
}

func (s *Server) handleGetBudget(w http.ResponseWriter, _ *http.Request) {
	NewResponse().JSON(budgetResponse{Budget: s.tracker.Budget()}).Write(w)
}

func (s *Server) handleSetBudget(w http.ResponseWriter, r *http.Request) {
	var req BudgetRequest
	if err := DecodeJSON(w, r, &req); err != nil {
		FromError(err).Write(w)
		return
	}
	var raw AmountText
	if req.Budget != nil {
		raw = *req.Budget
	}
	b, err := raw.Budget()
	if err != nil {
		FromError(err).Write(w)
		return
	}
	if err := s.tracker.SetBudget(b); err != nil {
		FromError(err).Write(w)
		return
	}
	applog.FromContext(r.Context()).InfoContext(r.Context(), "Budget updated",
		applog.FieldAmount, b.String(), applog.FieldOperation, applog.OpUpdate)
	NewResponse().JSON(budgetResponse{Budget: s.tracker.Budget()}).Write(w)
}

func (s *Server) handleBalance(w http.ResponseWriter, _ *http.Request) {
	NewResponse().JSON(balanceResponse{
		Budget:  s.tracker.Budget(),
		Balance: s.tracker.Balance(),
	}).Write(w)
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	params, err := ParseMonthParams(r.URL.Query(), s.now(), s.tracker.Location())
	if err != nil {
		FromError(err).Write(w)
		return
	}
	NewResponse().JSON(s.tracker.Summary(params.Year, params.Month)).Write(w)
}
