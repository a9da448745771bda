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
	"github.com/mfitchett/tally/internal/service"
)

func transactionsCmd() *cobra.Command {
	var (
		statusFilter string
		review       bool
		limit        int
		offset       int
	)

	cmd := &cobra.Command{
		Use:   "transactions",
		Short: "List imported transactions",
		Long: `Display imported transactions with their classification state.

Use --status to filter by a single state, or --review to show everything
awaiting a decision (unclassified plus pending).`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			var txns []model.Transaction
			switch {
			case review:
				unclassified, err := store.GetTransactionsByStatus(ctx, model.StatusUnclassified)
				if err != nil {
					return err
				}
				pending, err := store.GetTransactionsByStatus(ctx, model.StatusPending)
				if err != nil {
					return err
				}
				txns = append(unclassified, pending...)
			case statusFilter != "":
				status := model.ClassificationStatus(statusFilter)
				if !status.Valid() {
					return fmt.Errorf("invalid status %q (unclassified, pending, approved)", statusFilter)
				}
				txns, err = store.GetTransactionsByStatus(ctx, status)
				if err != nil {
					return err
				}
			default:
				txns, err = store.GetTransactions(ctx, service.TransactionFilter{Limit: limit, Offset: offset})
				if err != nil {
					return err
				}
			}

			if len(txns) == 0 {
				fmt.Println(cli.InfoStyle.Render("No transactions found."))
				return nil
			}

			printTransactionTable(txns)
			return nil
		},
	}

	cmd.Flags().StringVar(&statusFilter, "status", "", "Filter by classification status (unclassified, pending, approved)")
	cmd.Flags().BoolVar(&review, "review", false, "Show transactions requiring review")
	cmd.Flags().IntVar(&limit, "limit", 0, "Maximum number of transactions to show (0 = all)")
	cmd.Flags().IntVar(&offset, "offset", 0, "Number of transactions to skip")

	return cmd
}

func printTransactionTable(txns []model.Transaction) {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	defer w.Flush()

	headerStyle := lipgloss.NewStyle().Bold(true).Foreground(cli.PrimaryColor)
	fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
		headerStyle.Render("ID"),
		headerStyle.Render("Date"),
		headerStyle.Render("Amount"),
		headerStyle.Render("Payee"),
		headerStyle.Render("Category"),
		headerStyle.Render("Status"))
	fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
		strings.Repeat("-", 4),
		strings.Repeat("-", 10),
		strings.Repeat("-", 10),
		strings.Repeat("-", 24),
		strings.Repeat("-", 16),
		strings.Repeat("-", 12))

	for _, txn := range txns {
		category := cli.SubtleStyle.Render("(none)")
		if txn.CategoryName != nil {
			category = *txn.CategoryName
		}

		status := string(txn.Status)
		switch txn.Status {
		case model.StatusApproved:
			status = cli.SuccessStyle.Render(status)
		case model.StatusPending:
			status = cli.WarningStyle.Render(status)
		case model.StatusUnclassified:
			status = cli.SubtleStyle.Render(status)
		}

		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%s\n",
			txn.ID, txn.Date, txn.Amount.StringFixed(2), txn.Payee, category, status)
	}
}
