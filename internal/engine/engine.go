// Package engine implements the classification workflow: prediction,
// confidence-gated auto-approval, manual override, and the recording of
// trusted labels into classification history.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/mfitchett/tally/internal/classifier"
	"github.com/mfitchett/tally/internal/model"
	"github.com/mfitchett/tally/internal/service"
)

// Engine orchestrates classification over the persistent stores. The
// trained model is held as an atomic snapshot: training builds a complete
// replacement and swaps it in, so readers never observe a half-built model.
type Engine struct {
	transactions service.TransactionStore
	categories   service.CategoryStore
	history      service.HistoryStore
	cfg          classifier.Config
	model        atomic.Pointer[classifier.Model]
}

// New creates a classification engine with the default classifier config.
func New(transactions service.TransactionStore, categories service.CategoryStore, history service.HistoryStore) *Engine {
	return NewWithConfig(transactions, categories, history, classifier.DefaultConfig())
}

// NewWithConfig creates a classification engine with a custom classifier
// configuration.
func NewWithConfig(transactions service.TransactionStore, categories service.CategoryStore, history service.HistoryStore, cfg classifier.Config) *Engine {
	return &Engine{
		transactions: transactions,
		categories:   categories,
		history:      history,
		cfg:          cfg,
	}
}

// IsTrained reports whether a model snapshot is available.
func (e *Engine) IsTrained() bool {
	return e.model.Load() != nil
}

// TrainModel rebuilds the classifier from the trusted labels in
// classification history and swaps in the new model. It fails with
// ErrInsufficientTrainingData when fewer than the configured minimum of
// eligible entries exist.
func (e *Engine) TrainModel(ctx context.Context) error {
	entries, err := e.history.GetTrainingData(ctx, e.cfg.MinTrainingSamples)
	if err != nil {
		return fmt.Errorf("failed to load training data: %w", err)
	}

	categories, err := e.categories.GetCategories(ctx)
	if err != nil {
		return fmt.Errorf("failed to load categories: %w", err)
	}

	m, err := classifier.Train(entries, categories, e.cfg)
	if err != nil {
		return err
	}

	e.model.Store(m)
	slog.Info("classifier model swapped in", "samples", len(entries))
	return nil
}

// ClassifyTransaction predicts a category for the transaction and applies
// the suggestion: approved immediately when the confidence clears the
// auto-approval threshold, pending review otherwise. Training is triggered
// implicitly on the first prediction after process start.
//
// Only auto-approved suggestions are mirrored into history; a pending
// suggestion is not a trusted label until it is separately approved or
// corrected.
func (e *Engine) ClassifyTransaction(ctx context.Context, id int64) (*classifier.Result, error) {
	txn, err := e.transactions.GetTransactionByID(ctx, id)
	if err != nil {
		return nil, err
	}

	m := e.model.Load()
	if m == nil {
		if err := e.TrainModel(ctx); err != nil {
			return nil, err
		}
		m = e.model.Load()
	}

	categories, err := e.categories.GetCategories(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load categories: %w", err)
	}

	result, err := m.Predict(txn, categories)
	if err != nil {
		return nil, err
	}

	status := model.StatusPending
	if result.ShouldAutoApprove {
		status = model.StatusApproved
	}
	confidence := result.Confidence

	if _, err := e.transactions.UpdateTransaction(ctx, id, model.TransactionUpdate{
		CategoryID:     &result.SuggestedCategoryID,
		Status:         &status,
		Confidence:     &confidence,
		IsAutoApproved: &result.ShouldAutoApprove,
	}); err != nil {
		return nil, fmt.Errorf("failed to apply classification: %w", err)
	}

	if result.ShouldAutoApprove {
		if _, err := e.history.CreateHistoryEntry(ctx, &model.HistoryEntry{
			TransactionID: id,
			CategoryID:    result.SuggestedCategoryID,
			Payee:         txn.Payee,
			Particulars:   txn.Particulars,
			TranType:      txn.TranType,
			Amount:        txn.Amount,
			Method:        model.MethodAuto,
			Confidence:    &confidence,
		}); err != nil {
			return nil, fmt.Errorf("failed to record classification history: %w", err)
		}
	}

	slog.Info("classified transaction",
		"transaction_id", id,
		"category_id", result.SuggestedCategoryID,
		"confidence", result.Confidence,
		"auto_approved", result.ShouldAutoApprove)

	return &result, nil
}

// ManualClassify assigns the category directly. The transaction is
// approved immediately and the label is recorded as trusted history; when
// the transaction already carried a category the entry is marked as a
// correction with the prior category preserved.
func (e *Engine) ManualClassify(ctx context.Context, id, categoryID int64) (*model.Transaction, error) {
	txn, err := e.transactions.GetTransactionByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if _, err := e.categories.GetCategoryByID(ctx, categoryID); err != nil {
		return nil, err
	}

	status := model.StatusApproved
	autoApprove := true
	updated, err := e.transactions.UpdateTransaction(ctx, id, model.TransactionUpdate{
		CategoryID:     &categoryID,
		Status:         &status,
		IsAutoApproved: &autoApprove,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to apply classification: %w", err)
	}

	if _, err := e.history.CreateHistoryEntry(ctx, &model.HistoryEntry{
		TransactionID:      id,
		CategoryID:         categoryID,
		Payee:              txn.Payee,
		Particulars:        txn.Particulars,
		TranType:           txn.TranType,
		Amount:             txn.Amount,
		Method:             model.MethodManual,
		WasCorrected:       txn.CategoryID != nil,
		PreviousCategoryID: txn.CategoryID,
	}); err != nil {
		return nil, fmt.Errorf("failed to record classification history: %w", err)
	}

	slog.Info("manually classified transaction",
		"transaction_id", id,
		"category_id", categoryID,
		"was_corrected", txn.CategoryID != nil)

	return updated, nil
}

// ApproveClassification forces a transaction's status to approved without
// changing its category or confidence; used to accept a pending
// suggestion. Acceptance of a categorized transaction becomes a trusted
// label and is recorded in history.
func (e *Engine) ApproveClassification(ctx context.Context, id int64) (*model.Transaction, error) {
	txn, err := e.transactions.GetTransactionByID(ctx, id)
	if err != nil {
		return nil, err
	}

	status := model.StatusApproved
	updated, err := e.transactions.UpdateTransaction(ctx, id, model.TransactionUpdate{
		Status: &status,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to approve classification: %w", err)
	}

	if txn.CategoryID != nil {
		if _, err := e.history.CreateHistoryEntry(ctx, &model.HistoryEntry{
			TransactionID: id,
			CategoryID:    *txn.CategoryID,
			Payee:         txn.Payee,
			Particulars:   txn.Particulars,
			TranType:      txn.TranType,
			Amount:        txn.Amount,
			Method:        model.MethodAccepted,
			Confidence:    txn.Confidence,
		}); err != nil {
			return nil, fmt.Errorf("failed to record classification history: %w", err)
		}
	}

	slog.Info("approved classification", "transaction_id", id)
	return updated, nil
}
