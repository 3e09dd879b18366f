package main

import (
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"pocket/internal/cli"
	"pocket/internal/core"
)

func budgetCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "budget",
		Short: "Show or set the monthly budget",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show the monthly budget",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, func(a *app) error {
				fmt.Fprintln(cmd.OutOrStdout(), core.FormatAmount(a.tracker.Budget()))
				return nil
			})
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "set <amount>",
		Short: "Set the monthly budget; 0 means no budget",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := core.ParseBudget(args[0])
			if err != nil {
				return err
			}
			return withApp(cmd, func(a *app) error {
				if err := a.tracker.SetBudget(b); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess("Budget set to %s", core.FormatAmount(b)))
				return nil
			})
		},
	})
	return cmd
}

func balanceCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "balance",
		Short: "Budget left for the current month",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, func(a *app) error {
				bal := a.tracker.Balance()
				text := core.FormatAmount(bal)
				if bal.IsNegative() {
					text = cli.ErrorStyle.Render(text)
				} else {
					text = cli.SuccessStyle.Render(text)
				}
				fmt.Fprintln(cmd.OutOrStdout(), text)
				return nil
			})
		},
	}
}

func summaryCmd() *cobra.Command {
	var year, month int
	cmd := &cobra.Command{
		Use:   "summary",
		Short: "Spending summary for a month",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Flags().Changed("month") && (month < 1 || month > 12) {
				return fmt.Errorf("--month must be between 1 and 12")
			}
			return withApp(cmd, func(a *app) error {
				if !cmd.Flags().Changed("year") && !cmd.Flags().Changed("month") {
					fmt.Fprintln(cmd.OutOrStdout(), renderSummary(a.tracker.CurrentSummary()))
					return nil
				}
				now := time.Now().In(a.tracker.Location())
				y, m := now.Year(), now.Month()
				if cmd.Flags().Changed("year") {
					y = year
				}
				if cmd.Flags().Changed("month") {
					m = time.Month(month)
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderSummary(a.tracker.Summary(y, m)))
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&year, "year", 0, "year, defaults to the current one")
	cmd.Flags().IntVar(&month, "month", 0, "month 1-12, defaults to the current one")
	return cmd
}

func renderSummary(s core.MonthSummary) string {
	var b strings.Builder
	w := tabwriter.NewWriter(&b, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "Spent\t%s\n", core.FormatAmount(s.Spend))
	fmt.Fprintf(w, "Budget\t%s\n", core.FormatAmount(s.Budget))
	fmt.Fprintf(w, "Remaining\t%s\n", core.FormatAmount(s.Remaining))
	fmt.Fprintf(w, "Progress\t%s %3.0f%%\n", cli.ProgressBar(s.Progress, 20), s.Progress*100)
	if len(s.ByCategory) > 0 {
		fmt.Fprintln(w, "\t")
		for _, t := range s.ByCategory {
			fmt.Fprintf(w, "%s %s\t%s\t%s\n",
				cli.Swatch(t.Category.Color), t.Category.Name,
				core.FormatAmount(t.Total),
				cli.SubtleStyle.Render(fmt.Sprintf("%d", t.Count)))
		}
	}
	_ = w.Flush()
	title := fmt.Sprintf("%s %d", s.Month, s.Year)
	return cli.RenderBox(title, strings.TrimRight(b.String(), "\n"))
}
