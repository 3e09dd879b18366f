package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"pocket/internal/cli"
	"pocket/internal/core"
)

func categoriesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "categories",
		Aliases: []string{"cat"},
		Short:   "Manage expense categories",
		Long:    `List, add, rename and delete categories. Built-in categories cannot be changed.`,
	}
	cmd.AddCommand(listCategoriesCmd())
	cmd.AddCommand(addCategoryCmd())
	cmd.AddCommand(renameCategoryCmd())
	cmd.AddCommand(deleteCategoryCmd())
	return cmd
}

func listCategoriesCmd() *cobra.Command {
	var userOnly bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List all categories",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, func(a *app) error {
				cats := a.tracker.ListCategories()
				if userOnly {
					cats = a.tracker.UserCategories()
				}
				w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
				fmt.Fprintf(w, "  \t \t%s\t%s\t%s\n",
					cli.HeaderStyle.Render("ID"),
					cli.HeaderStyle.Render("NAME"),
					cli.HeaderStyle.Render("KIND"))
				for _, c := range cats {
					kind := "user"
					if c.IsDefault {
						kind = cli.SubtleStyle.Render("built-in")
					}
					fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", cli.Swatch(c.Color), cli.Icon(c.Icon), c.ID, c.Name, kind)
				}
				return w.Flush()
			})
		},
	}
	cmd.Flags().BoolVar(&userOnly, "user", false, "only user-defined categories")
	return cmd
}

func addCategoryCmd() *cobra.Command {
	var id, color, icon string
	cmd := &cobra.Command{
		Use:   "add <name>",
		Short: "Add a category",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(a *app) error {
				c, ok := a.tracker.AddCategory(core.Category{ID: id, Name: args[0], Color: color, Icon: icon})
				if !ok {
					return fmt.Errorf("category %q was rejected: the name is blank or already taken, or the id is in use", args[0])
				}
				fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess("Created category %q (%s)", c.Name, c.ID))
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&id, "id", "", "explicit id, generated when empty")
	cmd.Flags().StringVar(&color, "color", "#9E9E9E", "hex color")
	cmd.Flags().StringVar(&icon, "icon", "", "icon key")
	return cmd
}

func renameCategoryCmd() *cobra.Command {
	var color string
	cmd := &cobra.Command{
		Use:   "rename <id> <name>",
		Short: "Rename a user category",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, name := args[0], args[1]
			u := core.CategoryUpdate{Name: &name}
			if cmd.Flags().Changed("color") {
				u.Color = &color
			}
			return withApp(cmd, func(a *app) error {
				if _, ok := a.tracker.LookupCategory(id); !ok {
					return fmt.Errorf("category %q not found", id)
				}
				if !a.tracker.EditCategory(id, u) {
					return fmt.Errorf("category %q was not renamed: it is built in or %q is blank or taken", id, name)
				}
				fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess("Renamed %s to %q", id, name))
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&color, "color", "", "new hex color")
	return cmd
}

func deleteCategoryCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a user category",
		Long:  `Delete a user category. Expenses filed under it are kept but drop out of category views.`,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(a *app) error {
				c, ok := a.tracker.LookupCategory(args[0])
				if !ok {
					return fmt.Errorf("category %q not found", args[0])
				}
				if !a.tracker.DeleteCategory(args[0]) {
					return fmt.Errorf("category %q is built in", c.Name)
				}
				fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess("Deleted category %q", c.Name))
				return nil
			})
		},
	}
}
