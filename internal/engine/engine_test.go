package engine

import (
	"context"
	"fmt"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mfitchett/tally/internal/common"
	"github.com/mfitchett/tally/internal/model"
	"github.com/mfitchett/tally/internal/service"
	"github.com/mfitchett/tally/internal/testutil"
)

func newTransaction(t *testing.T, store service.Storage, payee string) *model.Transaction {
	t.Helper()
	txn, err := store.CreateTransaction(context.Background(), service.NewTransaction{
		Date:   "2024-03-15",
		Amount: decimal.RequireFromString("-20.00"),
		Payee:  payee,
	})
	require.NoError(t, err)
	return txn
}

// seedTrainingData creates n transactions with the given payee and records
// each as a manually classified label for the category.
func seedTrainingData(t *testing.T, store service.Storage, payee string, categoryID int64, n int) {
	t.Helper()
	ctx := context.Background()
	for i := 0; i < n; i++ {
		txn := newTransaction(t, store, payee)
		_, err := store.CreateHistoryEntry(ctx, &model.HistoryEntry{
			TransactionID: txn.ID,
			CategoryID:    categoryID,
			Payee:         payee,
			Amount:        txn.Amount,
			Method:        model.MethodManual,
		})
		require.NoError(t, err)
	}
}

func trainingDataCount(t *testing.T, store service.Storage) int {
	t.Helper()
	entries, err := store.GetTrainingData(context.Background(), 10)
	require.NoError(t, err)
	return len(entries)
}

func TestTrainModel(t *testing.T) {
	ctx := context.Background()

	t.Run("fails without enough history", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		eng := New(db.Storage, db.Storage, db.Storage)

		err := eng.TrainModel(ctx)
		require.Error(t, err)
		assert.ErrorIs(t, err, common.ErrInsufficientTrainingData)
		assert.False(t, eng.IsTrained())
	})

	t.Run("trains from trusted labels", func(t *testing.T) {
		db := testutil.SetupTestDB(t, testutil.Seed{Name: "Supermarkets"})
		cat := db.MustCategory("Supermarkets")

		seedTrainingData(t, db.Storage, "Countdown Supermarket", cat.ID, 10)

		eng := New(db.Storage, db.Storage, db.Storage)
		require.NoError(t, eng.TrainModel(ctx))
		assert.True(t, eng.IsTrained())
	})
}

func TestClassifyTransaction(t *testing.T) {
	ctx := context.Background()

	t.Run("auto-approves a confident match", func(t *testing.T) {
		db := testutil.SetupTestDB(t, testutil.Seed{Name: "Supermarkets"})
		cat := db.MustCategory("Supermarkets")
		seedTrainingData(t, db.Storage, "Countdown Supermarket", cat.ID, 10)

		eng := New(db.Storage, db.Storage, db.Storage)
		require.NoError(t, eng.TrainModel(ctx))

		before := trainingDataCount(t, db.Storage)
		txn := newTransaction(t, db.Storage, "Countdown Supermarket Auckland")

		result, err := eng.ClassifyTransaction(ctx, txn.ID)
		require.NoError(t, err)
		assert.Equal(t, cat.ID, result.SuggestedCategoryID)
		assert.InDelta(t, 1.0, result.Confidence, 1e-9)
		assert.True(t, result.ShouldAutoApprove)

		updated, err := db.Storage.GetTransactionByID(ctx, txn.ID)
		require.NoError(t, err)
		assert.Equal(t, model.StatusApproved, updated.Status)
		require.NotNil(t, updated.CategoryID)
		assert.Equal(t, cat.ID, *updated.CategoryID)
		assert.True(t, updated.IsAutoApproved)
		require.NotNil(t, updated.Confidence)
		assert.InDelta(t, 1.0, *updated.Confidence, 1e-9)

		// The auto-approved label is recorded, but it is not trusted
		// training data.
		assert.Equal(t, before, trainingDataCount(t, db.Storage))
	})

	t.Run("low confidence suggestions stay pending", func(t *testing.T) {
		db := testutil.SetupTestDB(t, testutil.Seed{Name: "Supermarkets"})
		cat := db.MustCategory("Supermarkets")
		seedTrainingData(t, db.Storage, "Countdown Supermarket", cat.ID, 10)

		eng := New(db.Storage, db.Storage, db.Storage)
		require.NoError(t, eng.TrainModel(ctx))

		before := trainingDataCount(t, db.Storage)
		txn := newTransaction(t, db.Storage, "Mystery Vendor Nobody Knows")

		result, err := eng.ClassifyTransaction(ctx, txn.ID)
		require.NoError(t, err)
		assert.False(t, result.ShouldAutoApprove)
		assert.Zero(t, result.Confidence)

		updated, err := db.Storage.GetTransactionByID(ctx, txn.ID)
		require.NoError(t, err)
		assert.Equal(t, model.StatusPending, updated.Status)
		assert.False(t, updated.IsAutoApproved)

		assert.Equal(t, before, trainingDataCount(t, db.Storage))
	})

	t.Run("trains implicitly on first use", func(t *testing.T) {
		db := testutil.SetupTestDB(t, testutil.Seed{Name: "Supermarkets"})
		cat := db.MustCategory("Supermarkets")
		seedTrainingData(t, db.Storage, "Countdown Supermarket", cat.ID, 10)

		eng := New(db.Storage, db.Storage, db.Storage)
		require.False(t, eng.IsTrained())

		txn := newTransaction(t, db.Storage, "Countdown Supermarket")
		_, err := eng.ClassifyTransaction(ctx, txn.ID)
		require.NoError(t, err)
		assert.True(t, eng.IsTrained())
	})

	t.Run("propagates insufficient training data", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		eng := New(db.Storage, db.Storage, db.Storage)

		txn := newTransaction(t, db.Storage, "Anything")
		_, err := eng.ClassifyTransaction(ctx, txn.ID)
		assert.ErrorIs(t, err, common.ErrInsufficientTrainingData)
	})

	t.Run("missing transaction", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		eng := New(db.Storage, db.Storage, db.Storage)

		_, err := eng.ClassifyTransaction(ctx, 9999)
		assert.True(t, common.IsNotFound(err))
	})
}

func TestManualClassify(t *testing.T) {
	ctx := context.Background()

	t.Run("assigns and approves", func(t *testing.T) {
		db := testutil.SetupTestDB(t, testutil.Seed{Name: "Supermarkets"})
		cat := db.MustCategory("Supermarkets")
		eng := New(db.Storage, db.Storage, db.Storage)

		txn := newTransaction(t, db.Storage, "Countdown")
		updated, err := eng.ManualClassify(ctx, txn.ID, cat.ID)
		require.NoError(t, err)

		assert.Equal(t, model.StatusApproved, updated.Status)
		require.NotNil(t, updated.CategoryID)
		assert.Equal(t, cat.ID, *updated.CategoryID)

		entries, err := db.Storage.GetTrainingData(ctx, 10)
		require.NoError(t, err)
		require.Len(t, entries, 1)
		assert.Equal(t, model.MethodManual, entries[0].Method)
		assert.Equal(t, "Countdown", entries[0].Payee)
		assert.False(t, entries[0].WasCorrected)
		assert.Nil(t, entries[0].PreviousCategoryID)
	})

	t.Run("reclassification records a correction", func(t *testing.T) {
		db := testutil.SetupTestDB(t,
			testutil.Seed{Name: "Supermarkets"},
			testutil.Seed{Name: "Takeaways"},
		)
		first := db.MustCategory("Supermarkets")
		second := db.MustCategory("Takeaways")
		eng := New(db.Storage, db.Storage, db.Storage)

		txn := newTransaction(t, db.Storage, "Countdown")
		_, err := eng.ManualClassify(ctx, txn.ID, first.ID)
		require.NoError(t, err)
		_, err = eng.ManualClassify(ctx, txn.ID, second.ID)
		require.NoError(t, err)

		entries, err := db.Storage.GetTrainingData(ctx, 10)
		require.NoError(t, err)
		require.Len(t, entries, 2)

		correction := entries[0] // newest first
		assert.Equal(t, second.ID, correction.CategoryID)
		assert.True(t, correction.WasCorrected)
		require.NotNil(t, correction.PreviousCategoryID)
		assert.Equal(t, first.ID, *correction.PreviousCategoryID)
	})

	t.Run("unknown category", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		eng := New(db.Storage, db.Storage, db.Storage)

		txn := newTransaction(t, db.Storage, "Countdown")
		_, err := eng.ManualClassify(ctx, txn.ID, 9999)
		assert.True(t, common.IsNotFound(err))
	})

	t.Run("unknown transaction", func(t *testing.T) {
		db := testutil.SetupTestDB(t, testutil.Seed{Name: "Supermarkets"})
		eng := New(db.Storage, db.Storage, db.Storage)

		_, err := eng.ManualClassify(ctx, 9999, db.MustCategory("Supermarkets").ID)
		assert.True(t, common.IsNotFound(err))
	})
}

func TestApproveClassification(t *testing.T) {
	ctx := context.Background()

	t.Run("accepting a pending suggestion becomes trusted history", func(t *testing.T) {
		db := testutil.SetupTestDB(t, testutil.Seed{Name: "Supermarkets"})
		cat := db.MustCategory("Supermarkets")
		eng := New(db.Storage, db.Storage, db.Storage)

		txn := newTransaction(t, db.Storage, "Countdown")
		status := model.StatusPending
		confidence := 0.6
		_, err := db.Storage.UpdateTransaction(ctx, txn.ID, model.TransactionUpdate{
			CategoryID: &cat.ID,
			Status:     &status,
			Confidence: &confidence,
		})
		require.NoError(t, err)

		updated, err := eng.ApproveClassification(ctx, txn.ID)
		require.NoError(t, err)
		assert.Equal(t, model.StatusApproved, updated.Status)
		require.NotNil(t, updated.Confidence)
		assert.InDelta(t, 0.6, *updated.Confidence, 1e-9)

		entries, err := db.Storage.GetTrainingData(ctx, 10)
		require.NoError(t, err)
		require.Len(t, entries, 1)
		assert.Equal(t, model.MethodAccepted, entries[0].Method)
		require.NotNil(t, entries[0].Confidence)
		assert.InDelta(t, 0.6, *entries[0].Confidence, 1e-9)
	})

	t.Run("approving an uncategorized transaction records nothing", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		eng := New(db.Storage, db.Storage, db.Storage)

		txn := newTransaction(t, db.Storage, "Countdown")
		updated, err := eng.ApproveClassification(ctx, txn.ID)
		require.NoError(t, err)
		assert.Equal(t, model.StatusApproved, updated.Status)

		assert.Zero(t, trainingDataCount(t, db.Storage))
	})

	t.Run("unknown transaction", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		eng := New(db.Storage, db.Storage, db.Storage)

		_, err := eng.ApproveClassification(ctx, 9999)
		assert.True(t, common.IsNotFound(err))
	})
}

func TestRetrainingSwapsModel(t *testing.T) {
	ctx := context.Background()

	db := testutil.SetupTestDB(t,
		testutil.Seed{Name: "Supermarkets"},
		testutil.Seed{Name: "Fuel"},
	)
	groceries := db.MustCategory("Supermarkets")
	fuel := db.MustCategory("Fuel")

	seedTrainingData(t, db.Storage, "Countdown Supermarket", groceries.ID, 10)

	eng := New(db.Storage, db.Storage, db.Storage)
	require.NoError(t, eng.TrainModel(ctx))

	// New labels arrive for a payee the first model has never seen.
	for i := 0; i < 10; i++ {
		txn := newTransaction(t, db.Storage, fmt.Sprintf("Gull Station %d", i))
		_, err := db.Storage.CreateHistoryEntry(ctx, &model.HistoryEntry{
			TransactionID: txn.ID,
			CategoryID:    fuel.ID,
			Payee:         "Gull Station",
			Amount:        txn.Amount,
			Method:        model.MethodManual,
		})
		require.NoError(t, err)
	}
	require.NoError(t, eng.TrainModel(ctx))

	txn := newTransaction(t, db.Storage, "Gull Station")
	result, err := eng.ClassifyTransaction(ctx, txn.ID)
	require.NoError(t, err)
	assert.Equal(t, fuel.ID, result.SuggestedCategoryID)
}
