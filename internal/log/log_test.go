package log

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
)

func TestNew_JSONIncludesComponent(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Level: slog.LevelDebug, Component: ComponentWorker, Format: "json", Output: &buf})

	logger.Info("hello", FieldStore, "expenses-storage")

	var rec map[string]any
	if err := json.Unmarshal(buf.Bytes(), &rec); err != nil {
		t.Fatalf("expected JSON output, got %q: %v", buf.String(), err)
	}
	if rec[FieldComponent] != ComponentWorker {
		t.Errorf("expected component %q, got %v", ComponentWorker, rec[FieldComponent])
	}
	if rec[FieldStore] != "expenses-storage" {
		t.Errorf("expected store field, got %v", rec[FieldStore])
	}
	if logger.Component() != ComponentWorker {
		t.Errorf("Component() = %q", logger.Component())
	}
}

func TestNew_LevelFilters(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Level: slog.LevelWarn, Output: &buf})
	logger.Info("dropped")
	if buf.Len() != 0 {
		t.Errorf("info should be filtered at warn level, got %q", buf.String())
	}
	logger.Warn("kept")
	if !strings.Contains(buf.String(), "kept") {
		t.Errorf("expected warn record, got %q", buf.String())
	}
}

func TestLogFields(t *testing.T) {
	f := NewFields().
		WithExpense("e1", decimal.RequireFromString("12.50"), "food").
		WithRecord("expenses-storage", 3).
		WithError(nil).
		WithRequestID("")

	if f[FieldAmount] != "12.5" {
		t.Errorf("amount = %v", f[FieldAmount])
	}
	if f[FieldVersion] != int64(3) {
		t.Errorf("version = %v", f[FieldVersion])
	}
	if _, ok := f[FieldError]; ok {
		t.Error("nil error must not add a field")
	}
	if _, ok := f[FieldRequestID]; ok {
		t.Error("empty request id must not add a field")
	}
	if got := len(f.WithError(errors.New("boom")).ToSlice()); got != 2*len(f) {
		t.Errorf("ToSlice length %d for %d fields", got, len(f))
	}
}

func TestMiddlewareCarriesLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Output: &buf, Component: ComponentHTTP})

	handler := Middleware(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := NewContext(r.Context(), FromContext(r.Context()).With(FieldRequestID, r.Header.Get("X-Request-ID")))
		LogHTTPEnd(ctx, r, http.StatusNotFound, 3, "127.0.0.1")
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/expenses?n=2", nil)
	req.Header.Set("X-Request-ID", "req-1")
	handler.ServeHTTP(httptest.NewRecorder(), req)

	out := buf.String()
	for _, want := range []string{"level=WARN", "request_id=req-1", "status_code=404", "component=http"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %q in %q", want, out)
		}
	}
}

func TestFromContextFallsBack(t *testing.T) {
	if got := FromContext(context.Background()); got.Logger == nil || got.Component() != "unknown" {
		t.Errorf("unexpected fallback logger %+v", got)
	}
}
