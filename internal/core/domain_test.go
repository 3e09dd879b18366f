package core

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
)

func TestExpenseInputValidate(t *testing.T) {
	good := ExpenseInput{
		CategoryID: "food",
		Amount:     decimal.NewFromInt(100),
		Title:      "lunch",
	}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}

	bads := []ExpenseInput{
		{CategoryID: "food", Amount: decimal.Zero, Title: "a"},
		{CategoryID: "food", Amount: decimal.NewFromInt(-5), Title: "a"},
		{CategoryID: "food", Amount: decimal.NewFromInt(5), Title: "   "},
	}
	for i, in := range bads {
		err := in.Validate()
		if err == nil {
			t.Fatalf("case %d expected error", i)
		}
		if !errors.Is(err, ErrInvalidArgument) {
			t.Fatalf("case %d expected ErrInvalidArgument, got %v", i, err)
		}
	}
}

func TestExpenseUpdateValidate(t *testing.T) {
	neg := decimal.NewFromInt(-1)
	blank := ""
	if err := (ExpenseUpdate{}).Validate(); err != nil {
		t.Fatalf("empty update should be valid, got %v", err)
	}
	if err := (ExpenseUpdate{Amount: &neg}).Validate(); !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount, got %v", err)
	}
	if err := (ExpenseUpdate{Title: &blank}).Validate(); !errors.Is(err, ErrEmptyTitle) {
		t.Fatalf("expected ErrEmptyTitle, got %v", err)
	}
}

func TestValidateBudget(t *testing.T) {
	if err := ValidateBudget(decimal.Zero); err != nil {
		t.Fatalf("zero budget should be valid, got %v", err)
	}
	if err := ValidateBudget(decimal.NewFromInt(-1)); !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("expected ErrInvalidArgument, got %v", err)
	}
}

func TestCategoryUpdateApply(t *testing.T) {
	c := Category{ID: "c1", Name: "Books", Color: "#fff", Icon: "Book"}
	name := "  Comics "
	got := CategoryUpdate{Name: &name}.Apply(c)
	if got.Name != "Comics" || got.Color != "#fff" || got.Icon != "Book" || got.ID != "c1" {
		t.Fatalf("unexpected merge result: %+v", got)
	}
}

func TestSameName(t *testing.T) {
	cases := []struct {
		a, b string
		want bool
	}{
		{"Food", "food", true},
		{"FOOD ", "food", true},
		{"Food", "Foods", false},
	}
	for _, tc := range cases {
		if got := SameName(tc.a, tc.b); got != tc.want {
			t.Fatalf("SameName(%q,%q)=%v want %v", tc.a, tc.b, got, tc.want)
		}
	}
}
