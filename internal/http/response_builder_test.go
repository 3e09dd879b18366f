package http

import (
	"errors"
	"fmt"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"pocket/internal/core"
)

func TestResponseBuilder(t *testing.T) {
	rr := httptest.NewRecorder()
	NewResponse().
		Status(http.StatusCreated).
		Header("Location", "/x").
		JSON(map[string]int{"n": 1}).
		Write(rr)

	if rr.Code != http.StatusCreated {
		t.Errorf("status=%d", rr.Code)
	}
	if rr.Header().Get("Location") != "/x" {
		t.Errorf("missing Location header")
	}
	if ct := rr.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type=%q", ct)
	}
	if got := strings.TrimSpace(rr.Body.String()); got != `{"n":1}` {
		t.Errorf("body=%q", got)
	}
}

func TestResponseBuilderNoContent(t *testing.T) {
	rr := httptest.NewRecorder()
	NewResponse().Status(http.StatusNoContent).Write(rr)
	if rr.Code != http.StatusNoContent || rr.Body.Len() != 0 {
		t.Fatalf("status=%d body=%q", rr.Code, rr.Body.String())
	}
}

func TestResponseBuilderEncodingFailure(t *testing.T) {
	rr := httptest.NewRecorder()
	NewResponse().JSON(math.Inf(1)).Write(rr)
	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("status=%d", rr.Code)
	}
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{fmt.Errorf("%w: bad json", ErrMalformedRequest), http.StatusBadRequest},
		{core.ErrInvalidAmount, http.StatusUnprocessableEntity},
		{fmt.Errorf("set budget: %w", core.ErrInvalidBudget), http.StatusUnprocessableEntity},
		{fmt.Errorf("%w: expense", ErrNotFound), http.StatusNotFound},
		{fmt.Errorf("%w: name taken", ErrConflict), http.StatusConflict},
		{errors.New("disk full"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		if got := StatusFor(tt.err); got != tt.want {
			t.Errorf("StatusFor(%v)=%d want %d", tt.err, got, tt.want)
		}
	}
}

func TestFromErrorHidesInternalErrors(t *testing.T) {
	rr := httptest.NewRecorder()
	FromError(errors.New("secret path /var/lib")).Write(rr)
	if rr.Code != http.StatusInternalServerError || strings.Contains(rr.Body.String(), "secret") {
		t.Fatalf("status=%d body=%s", rr.Code, rr.Body.String())
	}

	rr = httptest.NewRecorder()
	FromError(core.ErrEmptyTitle).Write(rr)
	if rr.Code != http.StatusUnprocessableEntity || !strings.Contains(rr.Body.String(), "empty title") {
		t.Fatalf("status=%d body=%s", rr.Code, rr.Body.String())
	}
}
