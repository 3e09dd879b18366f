package main

import (
	"fmt"
	"io"
	"os"
	"slices"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"pocket/internal/cli"
	"pocket/internal/core"
	"pocket/internal/export"
	"pocket/internal/ledger"
)

func expensesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "expenses",
		Aliases: []string{"exp"},
		Short:   "Add, list, delete and export expenses",
	}
	cmd.AddCommand(addExpenseCmd())
	cmd.AddCommand(listExpensesCmd())
	cmd.AddCommand(recentExpensesCmd())
	cmd.AddCommand(deleteExpenseCmd())
	cmd.AddCommand(exportExpensesCmd())
	return cmd
}

func addExpenseCmd() *cobra.Command {
	var categoryID, date, note, payment string

	cmd := &cobra.Command{
		Use:   "add <amount> <title>",
		Short: "Record an expense",
		Long:  `Record an expense. The amount accepts "12.50" or "12,50"; the date defaults to now.`,
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			amount, err := core.ParseAmount(args[0])
			if err != nil {
				return err
			}
			in := core.ExpenseInput{
				CategoryID:    categoryID,
				Amount:        amount,
				Title:         args[1],
				Note:          note,
				PaymentMethod: payment,
			}
			if date != "" {
				in.Date = core.On(date)
			}
			return withApp(cmd, func(a *app) error {
				if categoryID != "" {
					if _, ok := a.tracker.LookupCategory(categoryID); !ok {
						fmt.Fprintln(cmd.ErrOrStderr(), cli.WarningStyle.Render(fmt.Sprintf("category %q does not exist; the expense will not show in category views", categoryID)))
					}
				}
				e, err := a.tracker.AddExpense(in)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess("Added %s %s (%s)", e.Title, core.FormatAmount(e.Amount), e.ID))
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&categoryID, "category", "c", "", "category id")
	cmd.Flags().StringVarP(&date, "date", "d", "", "date, e.g. 2025-03-01 or 2025-03-01T12:30:00Z")
	cmd.Flags().StringVar(&note, "note", "", "free-form note")
	cmd.Flags().StringVar(&payment, "payment", "", "payment method")
	return cmd
}

func listExpensesCmd() *cobra.Command {
	var categoryID, from, to string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List expenses",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, func(a *app) error {
				expenses, err := selectExpenses(a, categoryID, from, to)
				if err != nil {
					return err
				}
				return printExpenses(cmd.OutOrStdout(), a, expenses)
			})
		},
	}
	cmd.Flags().StringVarP(&categoryID, "category", "c", "", "only this category")
	cmd.Flags().StringVar(&from, "from", "", "first day, inclusive")
	cmd.Flags().StringVar(&to, "to", "", "last day, inclusive")
	return cmd
}

func recentExpensesCmd() *cobra.Command {
	var n int
	cmd := &cobra.Command{
		Use:   "recent",
		Short: "Show the newest expenses",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, func(a *app) error {
				return printExpenses(cmd.OutOrStdout(), a, a.tracker.RecentTransactions(n))
			})
		},
	}
	cmd.Flags().IntVarP(&n, "count", "n", ledger.DefaultRecentCount, "how many expenses")
	return cmd
}

func deleteExpenseCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete an expense",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(a *app) error {
				if !a.tracker.DeleteExpense(args[0]) {
					return fmt.Errorf("expense %q not found", args[0])
				}
				fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess("Deleted %s", args[0]))
				return nil
			})
		},
	}
}

func exportExpensesCmd() *cobra.Command {
	var output, categoryID, from, to string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export expenses as CSV",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, func(a *app) error {
				expenses, err := selectExpenses(a, categoryID, from, to)
				if err != nil {
					return err
				}
				w := cmd.OutOrStdout()
				if output != "" && output != "-" {
					f, err := os.Create(output)
					if err != nil {
						return fmt.Errorf("create %s: %w", output, err)
					}
					defer f.Close()
					w = f
				}
				if err := export.Expenses(w, expenses, a.tracker.LookupCategory); err != nil {
					return err
				}
				if output != "" && output != "-" {
					fmt.Fprintln(cmd.ErrOrStderr(), cli.FormatSuccess("Exported %d expenses to %s", len(expenses), output))
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "file to write, stdout when empty")
	cmd.Flags().StringVarP(&categoryID, "category", "c", "", "only this category")
	cmd.Flags().StringVar(&from, "from", "", "first day, inclusive")
	cmd.Flags().StringVar(&to, "to", "", "last day, inclusive")
	return cmd
}

// selectExpenses narrows the ledger by category and by whole days in the
// configured calendar.
func selectExpenses(a *app, categoryID, from, to string) ([]core.Expense, error) {
	loc := a.tracker.Location()
	expenses := a.tracker.ListExpenses()
	if from != "" || to != "" {
		start, end := time.Time{}, time.Date(9999, 12, 31, 0, 0, 0, 0, loc)
		if from != "" {
			t, err := parseDay(from, loc)
			if err != nil {
				return nil, fmt.Errorf("--from: %w", err)
			}
			start = core.StartOfDay(t, loc)
		}
		if to != "" {
			t, err := parseDay(to, loc)
			if err != nil {
				return nil, fmt.Errorf("--to: %w", err)
			}
			end = core.EndOfDay(t, loc)
		}
		expenses = a.tracker.ExpensesByDateRange(start, end)
	}
	if categoryID != "" {
		expenses = slices.DeleteFunc(expenses, func(e core.Expense) bool { return e.CategoryID != categoryID })
	}
	return expenses, nil
}

// parseDay reads a bare date in loc, or any timestamp core.ParseDate accepts.
func parseDay(s string, loc *time.Location) (time.Time, error) {
	if t, err := time.ParseInLocation("2006-01-02", s, loc); err == nil {
		return t, nil
	}
	return core.ParseDate(s)
}

func printExpenses(out io.Writer, a *app, expenses []core.Expense) error {
	if len(expenses) == 0 {
		fmt.Fprintln(out, cli.SubtleStyle.Render("No expenses."))
		return nil
	}
	loc := a.tracker.Location()
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
		cli.HeaderStyle.Render("DATE"),
		cli.HeaderStyle.Render("AMOUNT"),
		cli.HeaderStyle.Render("CATEGORY"),
		cli.HeaderStyle.Render("TITLE"),
		cli.HeaderStyle.Render("ID"))
	for _, e := range expenses {
		cat := cli.SubtleStyle.Render(e.CategoryID)
		if c, ok := a.tracker.LookupCategory(e.CategoryID); ok {
			cat = cli.Swatch(c.Color) + " " + c.Name
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
			e.Date.In(loc).Format("2006-01-02 15:04"),
			e.Amount.StringFixed(2),
			cat,
			e.Title,
			cli.SubtleStyle.Render(e.ID))
	}
	return w.Flush()
}
