package main

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/mfitchett/tally/internal/cli"
	"github.com/mfitchett/tally/internal/model"
)

func categoriesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "categories",
		Short: "Manage transaction categories",
		Long:  `List and add the categories used for transaction classification.`,
	}

	cmd.AddCommand(listCategoriesCmd())
	cmd.AddCommand(addCategoryCmd())

	return cmd
}

func listCategoriesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all categories",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			categories, err := store.GetCategories(ctx)
			if err != nil {
				return fmt.Errorf("failed to get categories: %w", err)
			}

			if len(categories) == 0 {
				fmt.Println(cli.InfoStyle.Render("No categories found. Use 'tally categories add' to create one."))
				return nil
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			defer w.Flush()

			headerStyle := lipgloss.NewStyle().Bold(true).Foreground(cli.PrimaryColor)
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
				headerStyle.Render("ID"),
				headerStyle.Render("Name"),
				headerStyle.Render("Type"),
				headerStyle.Render("Transactions"),
				headerStyle.Render("Total"))
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
				strings.Repeat("-", 4),
				strings.Repeat("-", 20),
				strings.Repeat("-", 8),
				strings.Repeat("-", 12),
				strings.Repeat("-", 10))

			for _, cat := range categories {
				fmt.Fprintf(w, "%d\t%s\t%s\t%d\t%s\n",
					cat.ID, cat.Name, cat.Type, cat.TransactionCount, cat.TotalAmount.StringFixed(2))
			}

			return nil
		},
	}
}

func addCategoryCmd() *cobra.Command {
	var (
		categoryDescription string
		categoryType        string
		categoryColor       string
	)

	cmd := &cobra.Command{
		Use:   "add <name>",
		Short: "Add a new category",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			categoryName := args[0]

			kind := model.CategoryType(categoryType)
			if categoryType != "" && !kind.Valid() {
				return fmt.Errorf("invalid category type %q (expense, income, transfer)", categoryType)
			}

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			category, err := store.CreateCategory(ctx, categoryName, categoryDescription, kind, categoryColor)
			if err != nil {
				return fmt.Errorf("failed to create category: %w", err)
			}

			fmt.Println(cli.FormatSuccess(fmt.Sprintf("Created category %q (ID: %d)", category.Name, category.ID)))
			return nil
		},
	}

	cmd.Flags().StringVar(&categoryDescription, "description", "", "Category description")
	cmd.Flags().StringVar(&categoryType, "type", "", "Category type: expense, income, or transfer (default expense)")
	cmd.Flags().StringVar(&categoryColor, "color", "", "Display color (hex, e.g. #4CAF50)")

	return cmd
}
