package main

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/mfitchett/tally/internal/cli"
	"github.com/mfitchett/tally/internal/common"
)

func classifyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "classify",
		Short: "Classify transactions into categories",
		Long: `Suggest, set, and approve category assignments.

"classify suggest" runs the trained model against a transaction; high
confidence suggestions are applied and approved automatically, the rest
are left pending for review. "classify set" assigns a category directly,
and "classify approve" accepts a pending suggestion.`,
	}

	cmd.AddCommand(suggestCmd())
	cmd.AddCommand(setCategoryCmd())
	cmd.AddCommand(approveCmd())

	return cmd
}

func suggestCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "suggest <transaction-id>",
		Short: "Suggest a category for a transaction",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			id, err := parseInt64Arg(args[0], "transaction ID")
			if err != nil {
				return err
			}

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			eng := initEngine(store)
			result, err := eng.ClassifyTransaction(ctx, id)
			if err != nil {
				if errors.Is(err, common.ErrInsufficientTrainingData) {
					return fmt.Errorf("not enough classified history to train the model yet: %w", err)
				}
				return err
			}

			category, err := store.GetCategoryByID(ctx, result.SuggestedCategoryID)
			if err != nil {
				return err
			}

			fmt.Println(cli.FormatTitle("Classification Suggestion"))
			fmt.Printf("Transaction: %d\n", result.TransactionID)
			fmt.Printf("Category:    %s\n", category.Name)
			fmt.Printf("Confidence:  %.0f%%\n", result.Confidence*100)
			if result.ShouldAutoApprove {
				fmt.Println(cli.FormatSuccess("Auto-approved"))
			} else {
				fmt.Println(cli.WarningStyle.Render("Pending review - accept with 'tally classify approve'"))
			}

			return nil
		},
	}
}

func setCategoryCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set <transaction-id> <category-id>",
		Short: "Manually assign a category",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			id, err := parseInt64Arg(args[0], "transaction ID")
			if err != nil {
				return err
			}
			categoryID, err := parseInt64Arg(args[1], "category ID")
			if err != nil {
				return err
			}

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			eng := initEngine(store)
			txn, err := eng.ManualClassify(ctx, id, categoryID)
			if err != nil {
				return err
			}

			name := ""
			if txn.CategoryName != nil {
				name = *txn.CategoryName
			}
			fmt.Println(cli.FormatSuccess(fmt.Sprintf("Transaction %d classified as %q", txn.ID, name)))
			return nil
		},
	}
}

func approveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "approve <transaction-id>",
		Short: "Approve a pending classification",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			id, err := parseInt64Arg(args[0], "transaction ID")
			if err != nil {
				return err
			}

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			eng := initEngine(store)
			txn, err := eng.ApproveClassification(ctx, id)
			if err != nil {
				return err
			}

			fmt.Println(cli.FormatSuccess(fmt.Sprintf("Transaction %d approved", txn.ID)))
			return nil
		},
	}
}

func parseInt64Arg(s, what string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid %s: %q", what, s)
	}
	return id, nil
}
