package http

import (
	"fmt"
	"net/http"
	"time"

	"pocket/internal/filter"
)

// FilterView is the filter selection as reported by the API.
type FilterView struct {
	Mode string `json:"mode"`
	filter.Selection
}

func viewOf(sel filter.Selection) FilterView {
	return FilterView{Mode: sel.Mode.String(), Selection: sel}
}

// FilterCategoryRequest is the body of PUT /api/filter/category.
type FilterCategoryRequest struct {
	CategoryID string `json:"categoryId"`
}

// FilterMonthRequest is the body of PUT /api/filter/month. Month is 0-11.
type FilterMonthRequest struct {
	Month *int `json:"month"`
}

// FilterRangeRequest is the body of PUT /api/filter/range. Both ends are
// widened to whole days by the filter.
type FilterRangeRequest struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

func (s *Server) handleGetFilter(w http.ResponseWriter, _ *http.Request) {
	NewResponse().JSON(viewOf(s.tracker.FilterSelection())).Write(w)
}

func (s *Server) handleClearFilter(w http.ResponseWriter, _ *http.Request) {
	NewResponse().JSON(viewOf(s.tracker.ClearFilter())).Write(w)
}

func (s *Server) handleSetFilterCategory(w http.ResponseWriter, r *http.Request) {
	var req FilterCategoryRequest
	if err := DecodeJSON(w, r, &req); err != nil {
		FromError(err).Write(w)
		return
	}
	if req.CategoryID == "" {
		FromError(fmt.Errorf("%w: categoryId is required", ErrMalformedRequest)).Write(w)
		return
	}
	NewResponse().JSON(viewOf(s.tracker.SetFilterCategory(req.CategoryID))).Write(w)
}

func (s *Server) handleClearFilterCategory(w http.ResponseWriter, _ *http.Request) {
	NewResponse().JSON(viewOf(s.tracker.ClearFilterCategory())).Write(w)
}

func (s *Server) handleSetFilterMonth(w http.ResponseWriter, r *http.Request) {
	var req FilterMonthRequest
	if err := DecodeJSON(w, r, &req); err != nil {
		FromError(err).Write(w)
		return
	}
	if req.Month == nil {
		FromError(fmt.Errorf("%w: month is required", ErrMalformedRequest)).Write(w)
		return
	}
	sel, err := s.tracker.ApplyFilterMonth(*req.Month)
	if err != nil {
		FromError(err).Write(w)
		return
	}
	NewResponse().JSON(viewOf(sel)).Write(w)
}

func (s *Server) handleSetFilterRange(w http.ResponseWriter, r *http.Request) {
	var req FilterRangeRequest
	if err := DecodeJSON(w, r, &req); err != nil {
		FromError(err).Write(w)
		return
	}
	loc := s.tracker.Location()
	var start, end time.Time
	for _, f := range []struct {
		raw string
		dst *time.Time
	}{{req.Start, &start}, {req.End, &end}} {
		t, err := ParseInstant(f.raw, loc)
		if err != nil {
			FromError(err).Write(w)
			return
		}
		*f.dst = t
	}
	NewResponse().JSON(viewOf(s.tracker.ApplyFilterRange(start, end))).Write(w)
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	history := s.tracker.History()
	if r.URL.Query().Get("enriched") == "true" {
		NewResponse().JSON(s.tracker.Enrich(history)).Write(w)
		return
	}
	NewResponse().JSON(history).Write(w)
}
