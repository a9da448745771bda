// Package importer drives the CSV import pipeline: parse, per-row
// duplicate detection, and transaction creation with partial-failure
// accumulation.
package importer

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/mfitchett/tally/internal/ingest"
	"github.com/mfitchett/tally/internal/model"
	"github.com/mfitchett/tally/internal/service"
)

// Result summarizes one import batch. It is always produced, even under
// partial failure: Success is strictly "no errors" and duplicates never
// count as failure.
type Result struct {
	BatchID        string
	ImportedCount  int
	DuplicateCount int
	ErrorCount     int
	Transactions   []model.Transaction
	Duplicates     []model.Transaction
	Errors         []ingest.RowError
	Success        bool
	Message        string
}

// Importer imports bank-statement CSV text into the transaction store.
type Importer struct {
	transactions service.TransactionStore

	// OnRow, when set, is called after each data row is processed. Used by
	// the CLI for progress reporting.
	OnRow func(processed, total int)
}

// New creates an Importer backed by the given transaction store.
func New(transactions service.TransactionStore) *Importer {
	return &Importer{transactions: transactions}
}

// ImportCSV parses the CSV text and imports its rows in document order.
//
// Rows are processed strictly sequentially: each row's duplicate check and
// create complete before the next row starts, which keeps row numbers
// aligned with errors and prevents two rows with the same key from both
// passing the duplicate check. Any per-row failure is captured as a
// row-level error and the batch continues.
func (im *Importer) ImportCSV(ctx context.Context, content string, skipDuplicates bool) *Result {
	batchID := uuid.NewString()
	slog.Info("starting CSV import", "batch_id", batchID, "skip_duplicates", skipDuplicates)

	rows, errs := ingest.Parse(content)

	invalid := make(map[int]bool, len(errs))
	for _, e := range errs {
		invalid[e.Row] = true
	}

	var transactions []model.Transaction
	var duplicates []model.Transaction

	for i, row := range rows {
		rowNumber := i + 2 // 1-based, after the header line

		if invalid[rowNumber] {
			if im.OnRow != nil {
				im.OnRow(i+1, len(rows))
			}
			continue
		}

		if err := im.importRow(ctx, row, skipDuplicates, &transactions, &duplicates); err != nil {
			slog.Error("failed to import row", "batch_id", batchID, "row", rowNumber, "error", err)
			errs = append(errs, ingest.RowError{Row: rowNumber, Message: err.Error()})
		}

		if im.OnRow != nil {
			im.OnRow(i+1, len(rows))
		}
	}

	result := &Result{
		BatchID:        batchID,
		ImportedCount:  len(transactions),
		DuplicateCount: len(duplicates),
		ErrorCount:     len(errs),
		Transactions:   transactions,
		Duplicates:     duplicates,
		Errors:         errs,
		Success:        len(errs) == 0,
		Message: fmt.Sprintf("Imported %d transactions, %d duplicates, %d errors",
			len(transactions), len(duplicates), len(errs)),
	}

	slog.Info("CSV import completed",
		"batch_id", batchID,
		"imported", result.ImportedCount,
		"duplicates", result.DuplicateCount,
		"errors", result.ErrorCount)

	return result
}

// importRow runs the duplicate-check-then-create sequence for one row.
func (im *Importer) importRow(ctx context.Context, row ingest.Row, skipDuplicates bool, transactions, duplicates *[]model.Transaction) error {
	duplicate, err := im.checkDuplicate(ctx, row)
	if err != nil {
		return err
	}

	if duplicate != nil {
		*duplicates = append(*duplicates, *duplicate)
		if skipDuplicates {
			return nil
		}
	}

	fields, err := rowToTransaction(row)
	if err != nil {
		return err
	}

	created, err := im.transactions.CreateTransaction(ctx, fields)
	if err != nil {
		return err
	}
	*transactions = append(*transactions, *created)
	return nil
}

// checkDuplicate asks the store for an existing transaction with the same
// natural key: normalized date, amount, payee, and reference-or-absent.
func (im *Importer) checkDuplicate(ctx context.Context, row ingest.Row) (*model.Transaction, error) {
	amount, err := decimal.NewFromString(row.Amount)
	if err != nil {
		return nil, fmt.Errorf("parsing amount %q: %w", row.Amount, err)
	}

	return im.transactions.FindDuplicate(ctx,
		ingest.ToISODate(row.Date), amount, row.Payee, optional(row.Reference))
}

func rowToTransaction(row ingest.Row) (service.NewTransaction, error) {
	amount, err := decimal.NewFromString(row.Amount)
	if err != nil {
		return service.NewTransaction{}, fmt.Errorf("parsing amount %q: %w", row.Amount, err)
	}

	var processedDate *string
	if row.ProcessedDate != "" {
		iso := ingest.ToISODate(row.ProcessedDate)
		processedDate = &iso
	}

	return service.NewTransaction{
		Date:                  ingest.ToISODate(row.Date),
		Amount:                amount,
		Payee:                 row.Payee,
		Particulars:           optional(row.Particulars),
		Code:                  optional(row.Code),
		Reference:             optional(row.Reference),
		TranType:              optional(row.TranType),
		ThisPartyAccount:      optional(row.ThisPartyAccount),
		OtherPartyAccount:     optional(row.OtherPartyAccount),
		Serial:                optional(row.Serial),
		TransactionCode:       optional(row.TransactionCode),
		BatchNumber:           optional(row.BatchNumber),
		OriginatingBankBranch: optional(row.OriginatingBankBranch),
		ProcessedDate:         processedDate,
	}, nil
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
