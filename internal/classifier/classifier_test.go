package classifier

import (
	"fmt"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mfitchett/tally/internal/common"
	"github.com/mfitchett/tally/internal/model"
)

func TestTokenize(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want []string
	}{
		{"lowercases and splits", "Countdown Supermarket", []string{"countdown", "supermarket"}},
		{"strips punctuation", "PAK'N'SAVE #123!", []string{"pak", "save", "123"}},
		{"drops short tokens", "BP 2 Go NZ", nil},
		{"keeps three-char tokens", "The BP Cafe", []string{"the", "cafe"}},
		{"collapses whitespace", "  shell   petrol  ", []string{"shell", "petrol"}},
		{"empty input", "", nil},
		{"digits survive", "store 4562 branch", []string{"store", "4562", "branch"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Tokenize(tt.in))
		})
	}
}

func entry(payee string, categoryID int64) model.HistoryEntry {
	return model.HistoryEntry{
		Payee:      payee,
		CategoryID: categoryID,
		Amount:     decimal.NewFromInt(-10),
		Method:     model.MethodManual,
	}
}

func repeatEntries(payee string, categoryID int64, n int) []model.HistoryEntry {
	entries := make([]model.HistoryEntry, 0, n)
	for i := 0; i < n; i++ {
		entries = append(entries, entry(payee, categoryID))
	}
	return entries
}

func TestTrain(t *testing.T) {
	categories := []model.Category{
		{ID: 1, Name: "Groceries"},
		{ID: 2, Name: "Transport"},
	}

	t.Run("fails below minimum samples", func(t *testing.T) {
		entries := repeatEntries("Countdown", 1, 9)

		m, err := Train(entries, categories, DefaultConfig())
		require.Error(t, err)
		assert.ErrorIs(t, err, common.ErrInsufficientTrainingData)
		assert.Nil(t, m)
	})

	t.Run("succeeds at exactly the minimum", func(t *testing.T) {
		entries := repeatEntries("Countdown", 1, 10)

		m, err := Train(entries, categories, DefaultConfig())
		require.NoError(t, err)
		require.NotNil(t, m)
	})

	t.Run("vocabulary caps at first N distinct tokens", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.MinTrainingSamples = 2
		cfg.VocabularySize = 2

		entries := []model.HistoryEntry{
			entry("alpha bravo charlie", 1),
			entry("delta echo", 2),
		}

		m, err := Train(entries, categories, cfg)
		require.NoError(t, err)

		// Only alpha and bravo made the vocabulary; charlie, delta, and echo
		// carry no weight anywhere.
		assert.Len(t, m.vocabulary, 2)
		assert.Contains(t, m.vocabulary, "alpha")
		assert.Contains(t, m.vocabulary, "bravo")
		assert.Equal(t, 2, m.totalWeight)
	})
}

func TestPredict(t *testing.T) {
	categories := []model.Category{
		{ID: 1, Name: "Groceries"},
		{ID: 2, Name: "Transport"},
	}

	t.Run("no categories", func(t *testing.T) {
		m, err := Train(repeatEntries("Countdown", 1, 10), categories, DefaultConfig())
		require.NoError(t, err)

		_, err = m.Predict(&model.Transaction{Payee: "Countdown"}, nil)
		assert.ErrorIs(t, err, common.ErrNoCategories)
	})

	t.Run("strong match auto-approves", func(t *testing.T) {
		entries := append(
			repeatEntries("Countdown Supermarket", 1, 6),
			repeatEntries("Shell Petrol", 2, 4)...,
		)

		m, err := Train(entries, categories, DefaultConfig())
		require.NoError(t, err)

		result, err := m.Predict(&model.Transaction{ID: 42, Payee: "Countdown Supermarket Auckland"}, categories)
		require.NoError(t, err)

		assert.Equal(t, int64(42), result.TransactionID)
		assert.Equal(t, int64(1), result.SuggestedCategoryID)
		// 12 of 20 total weight, scaled by 10 and clamped.
		assert.InDelta(t, 1.0, result.Confidence, 1e-9)
		assert.True(t, result.ShouldAutoApprove)
		assert.Contains(t, result.Explanation, "Countdown Supermarket Auckland")
	})

	t.Run("weak match stays below the threshold", func(t *testing.T) {
		// Nine distinct two-token payees in one category dilute the total
		// weight; a single-token match scores 1 of 20.
		var entries []model.HistoryEntry
		for i := 0; i < 9; i++ {
			entries = append(entries, entry(fmt.Sprintf("payee%dx other%dx", i, i), 1))
		}
		entries = append(entries, entry("zeta store", 2))

		m, err := Train(entries, categories, DefaultConfig())
		require.NoError(t, err)

		result, err := m.Predict(&model.Transaction{Payee: "zeta"}, categories)
		require.NoError(t, err)

		assert.Equal(t, int64(2), result.SuggestedCategoryID)
		assert.InDelta(t, 0.5, result.Confidence, 1e-9)
		assert.False(t, result.ShouldAutoApprove)
	})

	t.Run("unknown payee falls back to first category", func(t *testing.T) {
		entries := append(
			repeatEntries("Countdown Supermarket", 1, 6),
			repeatEntries("Shell Petrol", 2, 4)...,
		)

		m, err := Train(entries, categories, DefaultConfig())
		require.NoError(t, err)

		result, err := m.Predict(&model.Transaction{Payee: "Never Seen Before Ltd"}, categories)
		require.NoError(t, err)

		assert.Equal(t, categories[0].ID, result.SuggestedCategoryID)
		assert.Zero(t, result.Confidence)
		assert.False(t, result.ShouldAutoApprove)
	})

	t.Run("ties resolve to the first category in order", func(t *testing.T) {
		entries := append(
			repeatEntries("shared market", 1, 5),
			repeatEntries("shared market", 2, 5)...,
		)

		m, err := Train(entries, categories, DefaultConfig())
		require.NoError(t, err)

		result, err := m.Predict(&model.Transaction{Payee: "shared market"}, categories)
		require.NoError(t, err)
		assert.Equal(t, int64(1), result.SuggestedCategoryID)

		// Reversing the ordering flips the winner.
		reversed := []model.Category{categories[1], categories[0]}
		result, err = m.Predict(&model.Transaction{Payee: "shared market"}, reversed)
		require.NoError(t, err)
		assert.Equal(t, int64(2), result.SuggestedCategoryID)
	})

	t.Run("zero total weight reports neutral confidence", func(t *testing.T) {
		// Payees whose tokens are all too short leave the vocabulary empty.
		entries := repeatEntries("ab cd", 1, 10)

		m, err := Train(entries, categories, DefaultConfig())
		require.NoError(t, err)

		result, err := m.Predict(&model.Transaction{Payee: "ab cd"}, categories)
		require.NoError(t, err)

		assert.InDelta(t, 0.5, result.Confidence, 1e-9)
		assert.False(t, result.ShouldAutoApprove)
	})
}
