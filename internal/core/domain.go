package core

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type (
	// Category groups expenses. Built-in categories carry IsDefault=true.
	Category struct {
		ID        string `json:"id" yaml:"id"`
		Name      string `json:"name" yaml:"name"`
		Color     string `json:"color" yaml:"color"`
		Icon      string `json:"icon,omitempty" yaml:"icon"`
		IsDefault bool   `json:"isDefault" yaml:"-"`
	}

	// CategoryUpdate holds the fields to merge into a user category.
	// Nil fields are left untouched.
	CategoryUpdate struct {
		Name  *string `json:"name,omitempty"`
		Color *string `json:"color,omitempty"`
		Icon  *string `json:"icon,omitempty"`
	}

	// Expense is a single recorded spend. Date is always normalized (see NormalizeDate).
	Expense struct {
		ID            string          `json:"id"`
		CategoryID    string          `json:"categoryId"`
		Amount        decimal.Decimal `json:"amount"`
		Date          time.Time       `json:"date"`
		Title         string          `json:"title"`
		Note          string          `json:"note,omitempty"`
		PaymentMethod string          `json:"paymentMethod,omitempty"`
	}

	// Profile holds the user settings that have a remote counterpart.
	Profile struct {
		FullName       string `json:"fullName"`
		ProfilePicture string `json:"profilePicture"`
	}

	// ExpenseInput is what callers hand to the ledger to create an expense.
	// A nil Date means "now".
	ExpenseInput struct {
		CategoryID    string
		Amount        decimal.Decimal
		Date          *When
		Title         string
		Note          string
		PaymentMethod string
	}

	// ExpenseUpdate holds the fields to merge into an existing expense.
	// A nil Date keeps the stored date.
	ExpenseUpdate struct {
		CategoryID    *string
		Amount        *decimal.Decimal
		Date          *When
		Title         *string
		Note          *string
		PaymentMethod *string
	}
)

var (
	// ErrInvalidArgument marks malformed input rejected before it reaches ledger state.
	ErrInvalidArgument = errors.New("invalid argument")

	ErrInvalidAmount = fmt.Errorf("%w: amount must be a finite number greater than zero", ErrInvalidArgument)
	ErrInvalidBudget = fmt.Errorf("%w: budget must be a finite non-negative number", ErrInvalidArgument)
	ErrEmptyTitle    = fmt.Errorf("%w: empty title", ErrInvalidArgument)
	ErrInvalidDate   = fmt.Errorf("%w: unparsable date", ErrInvalidArgument)
	ErrInvalidMonth  = fmt.Errorf("%w: month must be between 0 and 11", ErrInvalidArgument)
)

// ValidateAmount rejects zero and negative amounts.
func ValidateAmount(a decimal.Decimal) error {
	if !a.IsPositive() {
		return ErrInvalidAmount
	}
	return nil
}

// ValidateBudget rejects negative budgets. Zero means "no budget".
func ValidateBudget(b decimal.Decimal) error {
	if b.IsNegative() {
		return ErrInvalidBudget
	}
	return nil
}

func (in ExpenseInput) Validate() error {
	if err := ValidateAmount(in.Amount); err != nil {
		return err
	}
	if strings.TrimSpace(in.Title) == "" {
		return ErrEmptyTitle
	}
	return nil
}

func (u ExpenseUpdate) Validate() error {
	if u.Amount != nil {
		if err := ValidateAmount(*u.Amount); err != nil {
			return err
		}
	}
	if u.Title != nil && strings.TrimSpace(*u.Title) == "" {
		return ErrEmptyTitle
	}
	return nil
}

// SameName reports whether two category names are equal ignoring case.
func SameName(a, b string) bool {
	return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}

// Apply returns a copy of c with the non-nil fields of u merged in.
func (u CategoryUpdate) Apply(c Category) Category {
	if u.Name != nil {
		c.Name = strings.TrimSpace(*u.Name)
	}
	if u.Color != nil {
		c.Color = *u.Color
	}
	if u.Icon != nil {
		c.Icon = *u.Icon
	}
	return c
}
