// Package classifier implements a token-frequency classifier over
// transaction payees. A trained model is an immutable value object built
// from scratch on every training run; nothing is persisted across restarts.
package classifier

import (
	"fmt"
	"log/slog"
	"math"
	"regexp"
	"strings"

	"github.com/mfitchett/tally/internal/common"
	"github.com/mfitchett/tally/internal/model"
)

// Config holds the classifier's tuning constants. The defaults reproduce
// the values this tool has always shipped with; they are deliberately not
// derived from any statistical procedure.
type Config struct {
	// MinTrainingSamples is the minimum number of labeled history entries
	// required before training succeeds.
	MinTrainingSamples int
	// VocabularySize caps the vocabulary at the first N distinct tokens in
	// encounter order. A naive cap, not feature selection.
	VocabularySize int
	// AutoApproveThreshold is the confidence at or above which a suggestion
	// skips manual review.
	AutoApproveThreshold float64
	// NeutralConfidence is reported when the model carries zero total
	// weight and no meaningful score exists.
	NeutralConfidence float64
}

// DefaultConfig returns the standard classifier configuration.
func DefaultConfig() Config {
	return Config{
		MinTrainingSamples:   10,
		VocabularySize:       100,
		AutoApproveThreshold: 0.8,
		NeutralConfidence:    0.5,
	}
}

// Result is the transient output of one prediction.
type Result struct {
	TransactionID       int64
	SuggestedCategoryID int64
	Confidence          float64
	ShouldAutoApprove   bool
	Explanation         string
}

// Model holds a trained vocabulary and per-category token weights. It is
// immutable after Train returns; retraining produces a fresh Model that
// callers swap in atomically.
type Model struct {
	vocabulary  map[string]int
	weights     map[int64]map[string]int
	totalWeight int
	cfg         Config
}

var nonToken = regexp.MustCompile(`[^a-z0-9\s]`)

// Tokenize lowercases text, strips everything outside [a-z0-9\s], splits
// on whitespace runs, and drops tokens of length two or less.
func Tokenize(text string) []string {
	cleaned := nonToken.ReplaceAllString(strings.ToLower(text), " ")

	var tokens []string
	for _, tok := range strings.Fields(cleaned) {
		if len(tok) > 2 {
			tokens = append(tokens, tok)
		}
	}
	return tokens
}

// Train builds a model from historical labeled entries and the current
// category list. It fails with ErrInsufficientTrainingData when fewer than
// cfg.MinTrainingSamples entries are supplied.
func Train(entries []model.HistoryEntry, categories []model.Category, cfg Config) (*Model, error) {
	if len(entries) < cfg.MinTrainingSamples {
		return nil, fmt.Errorf("%w: need at least %d labeled transactions, got %d",
			common.ErrInsufficientTrainingData, cfg.MinTrainingSamples, len(entries))
	}

	slog.Info("training classifier", "samples", len(entries), "categories", len(categories))

	// Vocabulary is the first N distinct tokens in encounter order across
	// all entries. Index assignment is positional and arbitrary.
	vocabulary := make(map[string]int, cfg.VocabularySize)
	for _, entry := range entries {
		for _, tok := range Tokenize(entry.Payee) {
			if len(vocabulary) >= cfg.VocabularySize {
				break
			}
			if _, seen := vocabulary[tok]; !seen {
				vocabulary[tok] = len(vocabulary)
			}
		}
	}

	// Per-category occurrence counts over the vocabulary. Intra-payee
	// repeats accumulate.
	weights := make(map[int64]map[string]int, len(categories))
	totalWeight := 0
	for _, cat := range categories {
		catWeights := make(map[string]int)
		for _, entry := range entries {
			if entry.CategoryID != cat.ID {
				continue
			}
			for _, tok := range Tokenize(entry.Payee) {
				if _, ok := vocabulary[tok]; ok {
					catWeights[tok]++
					totalWeight++
				}
			}
		}
		weights[cat.ID] = catWeights
	}

	slog.Info("classifier trained", "vocabulary", len(vocabulary), "total_weight", totalWeight)

	return &Model{
		vocabulary:  vocabulary,
		weights:     weights,
		totalWeight: totalWeight,
		cfg:         cfg,
	}, nil
}

// Predict scores the transaction's payee tokens against every category and
// returns the best match with a normalized confidence.
//
// Selection is strict greatest-score-wins: ties resolve to whichever
// category appears first in the supplied ordering, so callers wanting
// deterministic tie-breaking must pass a stable ordering.
func (m *Model) Predict(txn *model.Transaction, categories []model.Category) (Result, error) {
	if len(categories) == 0 {
		return Result{}, common.ErrNoCategories
	}

	tokens := Tokenize(txn.Payee)

	bestCategoryID := categories[0].ID
	maxScore := 0
	for _, cat := range categories {
		catWeights, ok := m.weights[cat.ID]
		if !ok {
			continue
		}

		score := 0
		for _, tok := range tokens {
			if _, inVocab := m.vocabulary[tok]; inVocab {
				score += catWeights[tok]
			}
		}

		if score > maxScore {
			maxScore = score
			bestCategoryID = cat.ID
		}
	}

	confidence := m.cfg.NeutralConfidence
	if m.totalWeight > 0 {
		confidence = math.Min(float64(maxScore)/float64(m.totalWeight)*10, 1.0)
	}

	return Result{
		TransactionID:       txn.ID,
		SuggestedCategoryID: bestCategoryID,
		Confidence:          confidence,
		ShouldAutoApprove:   confidence >= m.cfg.AutoApproveThreshold,
		Explanation: fmt.Sprintf("classified based on payee %q with %.0f%% confidence",
			txn.Payee, confidence*100),
	}, nil
}
