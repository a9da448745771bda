package storage

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mfitchett/tally/internal/common"
	"github.com/mfitchett/tally/internal/model"
	"github.com/mfitchett/tally/internal/service"
)

func TestCreateCategory(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()

	t.Run("with explicit type and color", func(t *testing.T) {
		cat, err := store.CreateCategory(ctx, "Consulting Income", "Invoices", model.CategoryTypeIncome, "#8BC34A")
		require.NoError(t, err)
		assert.NotZero(t, cat.ID)
		assert.Equal(t, "Consulting Income", cat.Name)
		assert.Equal(t, model.CategoryTypeIncome, cat.Type)
		assert.Equal(t, "#8BC34A", cat.Color)
		assert.Zero(t, cat.TransactionCount)
		assert.True(t, cat.TotalAmount.IsZero())
	})

	t.Run("defaults to expense", func(t *testing.T) {
		cat, err := store.CreateCategory(ctx, "Misc Spending", "", "", "")
		require.NoError(t, err)
		assert.Equal(t, model.CategoryTypeExpense, cat.Type)
	})

	t.Run("duplicate name", func(t *testing.T) {
		_, err := store.CreateCategory(ctx, "Misc Spending", "", "", "")
		require.Error(t, err)
		assert.ErrorIs(t, err, common.ErrDuplicateEntry)
	})

	t.Run("empty name", func(t *testing.T) {
		_, err := store.CreateCategory(ctx, "", "", "", "")
		assert.Error(t, err)
	})
}

func TestGetCategoryByID(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()

	cat, err := store.CreateCategory(ctx, "Fuel", "", model.CategoryTypeExpense, "")
	require.NoError(t, err)

	got, err := store.GetCategoryByID(ctx, cat.ID)
	require.NoError(t, err)
	assert.Equal(t, "Fuel", got.Name)

	_, err = store.GetCategoryByID(ctx, 9999)
	assert.True(t, common.IsNotFound(err))
}

func TestMigrationSeedsDefaultCategories(t *testing.T) {
	store := newTestStorage(t)

	categories, err := store.GetCategories(context.Background())
	require.NoError(t, err)
	require.Len(t, categories, 10)

	names := make(map[string]model.CategoryType)
	for _, cat := range categories {
		names[cat.Name] = cat.Type
	}
	assert.Equal(t, model.CategoryTypeExpense, names["Groceries"])
	assert.Equal(t, model.CategoryTypeIncome, names["Salary"])
	assert.Contains(t, names, "Other")

	// Sorted by name.
	for i := 1; i < len(categories); i++ {
		assert.LessOrEqual(t, categories[i-1].Name, categories[i].Name)
	}
}

func TestCategoryAggregates(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()

	cat, err := store.CreateCategory(ctx, "Coffee", "", model.CategoryTypeExpense, "")
	require.NoError(t, err)

	amounts := []string{"-4.50", "-5.00", "-3.80"}
	for _, a := range amounts {
		txn, err := store.CreateTransaction(ctx, service.NewTransaction{
			Date:   "2024-03-15",
			Amount: decimal.RequireFromString(a),
			Payee:  "Cafe",
		})
		require.NoError(t, err)
		_, err = store.UpdateTransaction(ctx, txn.ID, model.TransactionUpdate{CategoryID: &cat.ID})
		require.NoError(t, err)
	}

	// One uncategorized transaction must not count anywhere.
	_, err = store.CreateTransaction(ctx, service.NewTransaction{
		Date:   "2024-03-15",
		Amount: decimal.RequireFromString("-99.00"),
		Payee:  "Elsewhere",
	})
	require.NoError(t, err)

	got, err := store.GetCategoryByID(ctx, cat.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, got.TransactionCount)
	assert.True(t, got.TotalAmount.Equal(decimal.RequireFromString("-13.30")),
		"want -13.30, got %s", got.TotalAmount)

	// The list view computes the same aggregates.
	categories, err := store.GetCategories(ctx)
	require.NoError(t, err)
	for _, c := range categories {
		if c.ID == cat.ID {
			assert.Equal(t, 3, c.TransactionCount)
			assert.True(t, c.TotalAmount.Equal(decimal.RequireFromString("-13.30")))
			return
		}
	}
	t.Fatalf("category %d missing from list", cat.ID)
}
