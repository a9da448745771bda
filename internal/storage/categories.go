package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mfitchett/tally/internal/common"
	"github.com/mfitchett/tally/internal/model"
)

// CreateCategory creates a new category. Names are unique; creating a
// category with an existing name fails with ErrDuplicateEntry.
func (s *SQLiteStorage) CreateCategory(ctx context.Context, name, description string, categoryType model.CategoryType, color string) (*model.Category, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(name, "name"); err != nil {
		return nil, err
	}
	if categoryType == "" {
		categoryType = model.CategoryTypeExpense
	}
	if !categoryType.Valid() {
		return nil, fmt.Errorf("invalid category type: %q", categoryType)
	}

	result, err := s.db.ExecContext(ctx, `
		INSERT INTO categories (name, description, category_type, color)
		VALUES (?, ?, ?, ?)
	`, name, description, string(categoryType), nullString(&color))
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return nil, fmt.Errorf("%w: category %q", common.ErrDuplicateEntry, name)
		}
		return nil, fmt.Errorf("failed to insert category: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to read inserted category id: %w", err)
	}

	slog.Info("created category", "id", id, "name", name, "type", categoryType)
	return s.GetCategoryByID(ctx, id)
}

// GetCategoryByID returns the category with the given id.
func (s *SQLiteStorage) GetCategoryByID(ctx context.Context, id int64) (*model.Category, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	var (
		cat         model.Category
		description sql.NullString
		color       sql.NullString
		kind        string
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, description, category_type, color, created_at, updated_at
		FROM categories WHERE id = ?
	`, id).Scan(&cat.ID, &cat.Name, &description, &kind, &color, &cat.CreatedAt, &cat.UpdatedAt)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.NewNotFound("category", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query category: %w", err)
	}

	cat.Description = description.String
	cat.Color = color.String
	cat.Type = model.CategoryType(kind)

	count, total, err := s.categoryAggregates(ctx, cat.ID)
	if err != nil {
		return nil, err
	}
	cat.TransactionCount = count
	cat.TotalAmount = total

	return &cat, nil
}

// GetCategories returns all categories ordered by name, with derived
// transaction counts and totals folded in.
func (s *SQLiteStorage) GetCategories(ctx context.Context) ([]model.Category, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, description, category_type, color, created_at, updated_at
		FROM categories ORDER BY name ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query categories: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var categories []model.Category
	for rows.Next() {
		var (
			cat         model.Category
			description sql.NullString
			color       sql.NullString
			kind        string
			createdAt   time.Time
			updatedAt   time.Time
		)
		if err := rows.Scan(&cat.ID, &cat.Name, &description, &kind, &color, &createdAt, &updatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan category: %w", err)
		}
		cat.Description = description.String
		cat.Color = color.String
		cat.Type = model.CategoryType(kind)
		cat.CreatedAt = createdAt
		cat.UpdatedAt = updatedAt
		categories = append(categories, cat)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating categories: %w", err)
	}

	counts, totals, err := s.allCategoryAggregates(ctx)
	if err != nil {
		return nil, err
	}
	for i := range categories {
		categories[i].TransactionCount = counts[categories[i].ID]
		categories[i].TotalAmount = totals[categories[i].ID]
	}

	slog.Debug("retrieved categories", "count", len(categories))
	return categories, nil
}

// categoryAggregates sums one category's assigned transactions. Amounts are
// folded with decimal arithmetic rather than SQL SUM so the TEXT-stored
// values stay exact.
func (s *SQLiteStorage) categoryAggregates(ctx context.Context, categoryID int64) (int, decimal.Decimal, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT amount FROM transactions WHERE category_id = ?", categoryID)
	if err != nil {
		return 0, decimal.Zero, fmt.Errorf("failed to query category totals: %w", err)
	}
	defer func() { _ = rows.Close() }()

	count := 0
	total := decimal.Zero
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return 0, decimal.Zero, fmt.Errorf("failed to scan amount: %w", err)
		}
		amount, err := decimal.NewFromString(raw)
		if err != nil {
			return 0, decimal.Zero, fmt.Errorf("corrupt amount %q: %w", raw, err)
		}
		count++
		total = total.Add(amount)
	}
	if err := rows.Err(); err != nil {
		return 0, decimal.Zero, fmt.Errorf("error iterating amounts: %w", err)
	}
	return count, total, nil
}

func (s *SQLiteStorage) allCategoryAggregates(ctx context.Context) (map[int64]int, map[int64]decimal.Decimal, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT category_id, amount FROM transactions WHERE category_id IS NOT NULL")
	if err != nil {
		return nil, nil, fmt.Errorf("failed to query category totals: %w", err)
	}
	defer func() { _ = rows.Close() }()

	counts := make(map[int64]int)
	totals := make(map[int64]decimal.Decimal)
	for rows.Next() {
		var (
			categoryID int64
			raw        string
		)
		if err := rows.Scan(&categoryID, &raw); err != nil {
			return nil, nil, fmt.Errorf("failed to scan amount: %w", err)
		}
		amount, err := decimal.NewFromString(raw)
		if err != nil {
			return nil, nil, fmt.Errorf("corrupt amount %q: %w", raw, err)
		}
		counts[categoryID]++
		totals[categoryID] = totals[categoryID].Add(amount)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, fmt.Errorf("error iterating amounts: %w", err)
	}
	return counts, totals, nil
}
