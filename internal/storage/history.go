package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/shopspring/decimal"

	"github.com/mfitchett/tally/internal/model"
)

// CreateHistoryEntry appends an immutable classification history record.
func (s *SQLiteStorage) CreateHistoryEntry(ctx context.Context, entry *model.HistoryEntry) (*model.HistoryEntry, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if entry == nil {
		return nil, fmt.Errorf("%w: entry", ErrNilParameter)
	}
	if err := validateString(entry.Payee, "payee"); err != nil {
		return nil, err
	}

	var prevCategory any
	if entry.PreviousCategoryID != nil {
		prevCategory = *entry.PreviousCategoryID
	}

	result, err := s.db.ExecContext(ctx, `
		INSERT INTO classification_history (
			transaction_id, category_id, payee, particulars, tran_type, amount,
			classification_method, confidence_score, was_corrected, previous_category_id
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		entry.TransactionID,
		entry.CategoryID,
		entry.Payee,
		nullString(entry.Particulars),
		nullString(entry.TranType),
		entry.Amount.String(),
		string(entry.Method),
		nullFloat(entry.Confidence),
		boolToInt(entry.WasCorrected),
		prevCategory,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to insert history entry: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to read inserted history id: %w", err)
	}

	return s.getHistoryEntryByID(ctx, id)
}

// GetTrainingData returns the most recent trusted labels: manual and
// accepted-suggestion entries only, newest first, capped at minSamples*10.
func (s *SQLiteStorage) GetTrainingData(ctx context.Context, minSamples int) ([]model.HistoryEntry, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if minSamples < 0 {
		return nil, ErrInvalidLimit
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, transaction_id, category_id, payee, particulars, tran_type,
		       amount, classification_method, confidence_score, was_corrected,
		       previous_category_id, classified_at
		FROM classification_history
		WHERE classification_method IN (?, ?)
		ORDER BY classified_at DESC, id DESC
		LIMIT ?
	`, string(model.MethodManual), string(model.MethodAccepted), minSamples*10)
	if err != nil {
		return nil, fmt.Errorf("failed to query training data: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var entries []model.HistoryEntry
	for rows.Next() {
		entry, err := scanHistoryEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, *entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating history: %w", err)
	}

	slog.Debug("loaded training data", "entries", len(entries))
	return entries, nil
}

func (s *SQLiteStorage) getHistoryEntryByID(ctx context.Context, id int64) (*model.HistoryEntry, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, transaction_id, category_id, payee, particulars, tran_type,
		       amount, classification_method, confidence_score, was_corrected,
		       previous_category_id, classified_at
		FROM classification_history WHERE id = ?
	`, id)

	entry, err := scanHistoryEntry(row)
	if err != nil {
		return nil, fmt.Errorf("failed to query history entry: %w", err)
	}
	return entry, nil
}

func scanHistoryEntry(row rowScanner) (*model.HistoryEntry, error) {
	var (
		entry        model.HistoryEntry
		particulars  sql.NullString
		tranType     sql.NullString
		amount       string
		method       string
		confidence   sql.NullFloat64
		wasCorrected int
		prevCategory sql.NullInt64
	)

	err := row.Scan(
		&entry.ID, &entry.TransactionID, &entry.CategoryID, &entry.Payee,
		&particulars, &tranType, &amount, &method, &confidence,
		&wasCorrected, &prevCategory, &entry.ClassifiedAt,
	)
	if err != nil {
		return nil, err
	}

	entry.Amount, err = decimal.NewFromString(amount)
	if err != nil {
		return nil, fmt.Errorf("corrupt amount %q for history entry %d: %w", amount, entry.ID, err)
	}

	entry.Particulars = scanString(particulars)
	entry.TranType = scanString(tranType)
	entry.Method = model.ClassificationMethod(method)
	entry.Confidence = scanFloat(confidence)
	entry.WasCorrected = wasCorrected == 1
	entry.PreviousCategoryID = scanInt64(prevCategory)

	return &entry, nil
}
