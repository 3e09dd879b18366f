package http

import (
	"fmt"
	"net/http"

	"pocket/internal/core"
	applog "pocket/internal/log"
)

// CategoryView is a category as listed by the API, with the card background
// derived from its color.
type CategoryView struct {
	core.Category
	Background string `json:"background"`
}

// CategoryRequest is the body of POST /api/categories.
type CategoryRequest struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Color string `json:"color"`
	Icon  string `json:"icon"`
}

func (s *Server) handleListCategories(w http.ResponseWriter, r *http.Request) {
	mode := core.TintLight
	if r.URL.Query().Get("theme") == string(core.TintDark) {
		mode = core.TintDark
	}
	cats := s.tracker.ListCategories()
	views := make([]CategoryView, len(cats))
	for i, c := range cats {
		views[i] = CategoryView{Category: c, Background: core.TintColor(c.Color, core.DefaultTint, mode)}
	}
	NewResponse().JSON(views).Write(w)
}

func (s *Server) handleCreateCategory(w http.ResponseWriter, r *http.Request) {
	var req CategoryRequest
	if err := DecodeJSON(w, r, &req); err != nil {
		FromError(err).Write(w)
		return
	}
	c, ok := s.tracker.AddCategory(core.Category{ID: req.ID, Name: req.Name, Color: req.Color, Icon: req.Icon})
	if !ok {
		FromError(fmt.Errorf("%w: category name is blank or already taken", ErrConflict)).Write(w)
		return
	}
	applog.FromContext(r.Context()).InfoContext(r.Context(), "Category created",
		applog.FieldCategoryID, c.ID, applog.FieldOperation, applog.OpCreate)
	NewResponse().
		Status(http.StatusCreated).
		Header("Location", "/api/categories/"+c.ID).
		JSON(c).
		Write(w)
}

func (s *Server) handleEditCategory(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	var u core.CategoryUpdate
	if err := DecodeJSON(w, r, &u); err != nil {
		FromError(err).Write(w)
		return
	}
	if _, ok := s.tracker.LookupCategory(id); !ok {
		FromError(fmt.Errorf("%w: category %q", ErrNotFound, id)).Write(w)
		return
	}
	if !s.tracker.EditCategory(id, u) {
		FromError(fmt.Errorf("%w: category %q is built in or the name is blank or taken", ErrConflict, id)).Write(w)
		return
	}
	c, _ := s.tracker.LookupCategory(id)
	NewResponse().JSON(c).Write(w)
}

func (s *Server) handleDeleteCategory(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if _, ok := s.tracker.LookupCategory(id); !ok {
		FromError(fmt.Errorf("%w: category %q", ErrNotFound, id)).Write(w)
		return
	}
	if !s.tracker.DeleteCategory(id) {
		FromError(fmt.Errorf("%w: category %q is built in", ErrConflict, id)).Write(w)
		return
	}
	applog.FromContext(r.Context()).InfoContext(r.Context(), "Category deleted",
		applog.FieldCategoryID, id, applog.FieldOperation, applog.OpDelete)
	NewResponse().Status(http.StatusNoContent).Write(w)
}

// handleCategoryBreakdown totals expenses per category, for one month when
// year or month is given and over the whole ledger otherwise. With
// expand=true it lists each category's expenses instead of totals.
func (s *Server) handleCategoryBreakdown(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	expenses := s.tracker.ListExpenses()
	if HasMonth(q) {
		loc := s.tracker.Location()
		params, err := ParseMonthParams(q, s.now(), loc)
		if err != nil {
			FromError(err).Write(w)
			return
		}
		from, to := core.MonthBounds(params.Year, params.Month, loc)
		expenses = s.tracker.ExpensesByDateRange(from, to)
	}
	if q.Get("expand") == "true" {
		NewResponse().JSON(s.tracker.GroupByCategory(expenses)).Write(w)
		return
	}
	NewResponse().JSON(s.tracker.Breakdown(expenses)).Write(w)
}
