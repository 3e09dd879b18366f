// Package export renders expense views as CSV.
package export

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"

	"github.com/gocarina/gocsv"

	"pocket/internal/core"
)

// DefaultDelimiter separates CSV fields unless the caller picks another.
const DefaultDelimiter = ','

// Row is one exported expense. Category is empty when the expense refers to
// a category that no longer exists.
type Row struct {
	ID            string `csv:"id"`
	Date          string `csv:"date"`
	Title         string `csv:"title"`
	Amount        string `csv:"amount"`
	CategoryID    string `csv:"category_id"`
	Category      string `csv:"category"`
	PaymentMethod string `csv:"payment_method"`
	Note          string `csv:"note"`
}

// Resolver looks up a category by id.
type Resolver func(id string) (core.Category, bool)

// Rows converts expenses to rows, keeping their order. A nil resolve leaves
// category names empty.
func Rows(expenses []core.Expense, resolve Resolver) []Row {
	rows := make([]Row, 0, len(expenses))
	for _, e := range expenses {
		r := Row{
			ID:            e.ID,
			Date:          core.FormatDate(e.Date),
			Title:         e.Title,
			Amount:        e.Amount.StringFixed(2),
			CategoryID:    e.CategoryID,
			PaymentMethod: e.PaymentMethod,
			Note:          e.Note,
		}
		if resolve != nil {
			if c, ok := resolve(e.CategoryID); ok {
				r.Category = c.Name
			}
		}
		rows = append(rows, r)
	}
	return rows
}

// WriteCSV writes rows with a header line.
func WriteCSV(w io.Writer, rows []Row, delim rune) error {
	if rows == nil {
		return errors.New("cannot write nil rows to CSV")
	}
	if delim == 0 {
		delim = DefaultDelimiter
	}
	cw := csv.NewWriter(w)
	cw.Comma = delim
	if err := gocsv.MarshalCSV(rows, gocsv.NewSafeCSVWriter(cw)); err != nil {
		return fmt.Errorf("write CSV data: %w", err)
	}
	return nil
}

// Expenses is Rows followed by WriteCSV with the default delimiter.
func Expenses(w io.Writer, expenses []core.Expense, resolve Resolver) error {
	return WriteCSV(w, Rows(expenses, resolve), DefaultDelimiter)
}
