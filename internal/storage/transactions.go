package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mfitchett/tally/internal/common"
	"github.com/mfitchett/tally/internal/model"
	"github.com/mfitchett/tally/internal/service"
)

// transactionColumns is the column list every transaction query selects,
// with the category name joined in.
const transactionColumns = `
	t.id, t.date, t.amount, t.payee,
	t.particulars, t.code, t.reference, t.tran_type,
	t.this_party_account, t.other_party_account, t.serial,
	t.transaction_code, t.batch_number, t.originating_bank_branch,
	t.processed_date,
	t.category_id, t.classification_status, t.confidence_score,
	t.is_auto_approved, t.created_at, t.updated_at, c.name`

const transactionFrom = `
	FROM transactions t
	LEFT JOIN categories c ON t.category_id = c.id`

// CreateTransaction persists a new transaction in the unclassified state.
func (s *SQLiteStorage) CreateTransaction(ctx context.Context, fields service.NewTransaction) (*model.Transaction, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(fields.Date, "date"); err != nil {
		return nil, err
	}
	if err := validateString(fields.Payee, "payee"); err != nil {
		return nil, err
	}

	result, err := s.db.ExecContext(ctx, `
		INSERT INTO transactions (
			date, amount, payee, particulars, code, reference, tran_type,
			this_party_account, other_party_account, serial, transaction_code,
			batch_number, originating_bank_branch, processed_date,
			classification_status
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		fields.Date,
		fields.Amount.String(),
		fields.Payee,
		nullString(fields.Particulars),
		nullString(fields.Code),
		nullString(fields.Reference),
		nullString(fields.TranType),
		nullString(fields.ThisPartyAccount),
		nullString(fields.OtherPartyAccount),
		nullString(fields.Serial),
		nullString(fields.TransactionCode),
		nullString(fields.BatchNumber),
		nullString(fields.OriginatingBankBranch),
		nullString(fields.ProcessedDate),
		string(model.StatusUnclassified),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to insert transaction: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to read inserted transaction id: %w", err)
	}

	return s.GetTransactionByID(ctx, id)
}

// GetTransactionByID returns the transaction with the given id, or a
// NotFoundError naming the id when it does not exist.
func (s *SQLiteStorage) GetTransactionByID(ctx context.Context, id int64) (*model.Transaction, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	row := s.db.QueryRowContext(ctx,
		"SELECT"+transactionColumns+transactionFrom+" WHERE t.id = ?", id)

	txn, err := scanTransaction(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.NewNotFound("transaction", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query transaction: %w", err)
	}
	return txn, nil
}

// GetTransactionsByStatus returns all transactions in the given status,
// newest first.
func (s *SQLiteStorage) GetTransactionsByStatus(ctx context.Context, status model.ClassificationStatus) ([]model.Transaction, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if !status.Valid() {
		return nil, fmt.Errorf("invalid classification status: %q", status)
	}

	rows, err := s.db.QueryContext(ctx,
		"SELECT"+transactionColumns+transactionFrom+
			" WHERE t.classification_status = ? ORDER BY t.date DESC, t.id DESC",
		string(status))
	if err != nil {
		return nil, fmt.Errorf("failed to query transactions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	return collectTransactions(rows)
}

// GetTransactions returns transactions ordered newest first with optional
// paging.
func (s *SQLiteStorage) GetTransactions(ctx context.Context, filter service.TransactionFilter) ([]model.Transaction, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if filter.Limit < 0 || filter.Offset < 0 {
		return nil, ErrInvalidLimit
	}

	query := "SELECT" + transactionColumns + transactionFrom +
		" ORDER BY t.date DESC, t.id DESC"
	args := []any{}

	// SQLite requires a LIMIT clause to use OFFSET; -1 means unbounded.
	limit := int64(-1)
	if filter.Limit > 0 {
		limit = int64(filter.Limit)
	}
	if filter.Limit > 0 || filter.Offset > 0 {
		query += " LIMIT ? OFFSET ?"
		args = append(args, limit, int64(filter.Offset))
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query transactions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	return collectTransactions(rows)
}

// UpdateTransaction applies a partial update and returns the updated
// transaction. Nil fields are left unchanged.
func (s *SQLiteStorage) UpdateTransaction(ctx context.Context, id int64, update model.TransactionUpdate) (*model.Transaction, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	var sets []string
	var args []any

	if update.CategoryID != nil {
		sets = append(sets, "category_id = ?")
		args = append(args, *update.CategoryID)
	}
	if update.Status != nil {
		if !update.Status.Valid() {
			return nil, fmt.Errorf("invalid classification status: %q", *update.Status)
		}
		sets = append(sets, "classification_status = ?")
		args = append(args, string(*update.Status))
	}
	if update.Confidence != nil {
		sets = append(sets, "confidence_score = ?")
		args = append(args, *update.Confidence)
	}
	if update.IsAutoApproved != nil {
		sets = append(sets, "is_auto_approved = ?")
		args = append(args, boolToInt(*update.IsAutoApproved))
	}

	if len(sets) > 0 {
		sets = append(sets, "updated_at = CURRENT_TIMESTAMP")
		args = append(args, id)

		result, err := s.db.ExecContext(ctx,
			"UPDATE transactions SET "+strings.Join(sets, ", ")+" WHERE id = ?", args...)
		if err != nil {
			return nil, fmt.Errorf("failed to update transaction: %w", err)
		}
		affected, err := result.RowsAffected()
		if err != nil {
			return nil, fmt.Errorf("failed to read affected rows: %w", err)
		}
		if affected == 0 {
			return nil, common.NewNotFound("transaction", id)
		}
	}

	return s.GetTransactionByID(ctx, id)
}

// FindDuplicate looks up an existing transaction matching the natural key
// (date, amount, payee, reference). The reference matches when both values
// are equal or both absent. Returns nil when no duplicate exists.
func (s *SQLiteStorage) FindDuplicate(ctx context.Context, date string, amount decimal.Decimal, payee string, reference *string) (*model.Transaction, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	ref := nullString(reference)
	row := s.db.QueryRowContext(ctx,
		"SELECT"+transactionColumns+transactionFrom+`
		WHERE t.date = ? AND t.amount = ? AND t.payee = ?
		  AND (t.reference = ? OR (t.reference IS NULL AND ? IS NULL))
		LIMIT 1`,
		date, amount.String(), payee, ref, ref)

	txn, err := scanTransaction(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query duplicate: %w", err)
	}
	return txn, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTransaction(row rowScanner) (*model.Transaction, error) {
	var (
		txn          model.Transaction
		amount       string
		particulars  sql.NullString
		code         sql.NullString
		reference    sql.NullString
		tranType     sql.NullString
		thisParty    sql.NullString
		otherParty   sql.NullString
		serial       sql.NullString
		txnCode      sql.NullString
		batchNumber  sql.NullString
		origBranch   sql.NullString
		processed    sql.NullString
		categoryID   sql.NullInt64
		status       string
		confidence   sql.NullFloat64
		autoApproved int
		createdAt    time.Time
		updatedAt    time.Time
		categoryName sql.NullString
	)

	err := row.Scan(
		&txn.ID, &txn.Date, &amount, &txn.Payee,
		&particulars, &code, &reference, &tranType,
		&thisParty, &otherParty, &serial,
		&txnCode, &batchNumber, &origBranch,
		&processed,
		&categoryID, &status, &confidence,
		&autoApproved, &createdAt, &updatedAt, &categoryName,
	)
	if err != nil {
		return nil, err
	}

	txn.Amount, err = decimal.NewFromString(amount)
	if err != nil {
		return nil, fmt.Errorf("corrupt amount %q for transaction %d: %w", amount, txn.ID, err)
	}

	txn.Particulars = scanString(particulars)
	txn.Code = scanString(code)
	txn.Reference = scanString(reference)
	txn.TranType = scanString(tranType)
	txn.ThisPartyAccount = scanString(thisParty)
	txn.OtherPartyAccount = scanString(otherParty)
	txn.Serial = scanString(serial)
	txn.TransactionCode = scanString(txnCode)
	txn.BatchNumber = scanString(batchNumber)
	txn.OriginatingBankBranch = scanString(origBranch)
	txn.ProcessedDate = scanString(processed)
	txn.CategoryID = scanInt64(categoryID)
	txn.CategoryName = scanString(categoryName)
	txn.Status = model.ClassificationStatus(status)
	txn.Confidence = scanFloat(confidence)
	txn.IsAutoApproved = autoApproved == 1
	txn.CreatedAt = createdAt
	txn.UpdatedAt = updatedAt

	return &txn, nil
}

func collectTransactions(rows *sql.Rows) ([]model.Transaction, error) {
	var transactions []model.Transaction
	for rows.Next() {
		txn, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		transactions = append(transactions, *txn)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating transactions: %w", err)
	}
	return transactions, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
