// Package service defines the contracts between the pipeline and its
// persistence layer.
package service

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/mfitchett/tally/internal/model"
)

// TransactionFilter defines paging options for transaction queries.
type TransactionFilter struct {
	Limit  int
	Offset int
}

// NewTransaction carries the fields for creating a transaction. The store
// assigns identity, timestamps, and the initial unclassified status.
type NewTransaction struct {
	Date   string
	Amount decimal.Decimal
	Payee  string

	Particulars           *string
	Code                  *string
	Reference             *string
	TranType              *string
	ThisPartyAccount      *string
	OtherPartyAccount     *string
	Serial                *string
	TransactionCode       *string
	BatchNumber           *string
	OriginatingBankBranch *string
	ProcessedDate         *string
}

// TransactionStore persists transactions.
type TransactionStore interface {
	CreateTransaction(ctx context.Context, fields NewTransaction) (*model.Transaction, error)
	GetTransactionByID(ctx context.Context, id int64) (*model.Transaction, error)
	GetTransactionsByStatus(ctx context.Context, status model.ClassificationStatus) ([]model.Transaction, error)
	GetTransactions(ctx context.Context, filter TransactionFilter) ([]model.Transaction, error)
	UpdateTransaction(ctx context.Context, id int64, update model.TransactionUpdate) (*model.Transaction, error)
	// FindDuplicate looks up an existing transaction matching the natural
	// key exactly. Reference matches equal-or-both-absent. Returns nil when
	// no duplicate exists.
	FindDuplicate(ctx context.Context, date string, amount decimal.Decimal, payee string, reference *string) (*model.Transaction, error)
}

// CategoryStore persists categories.
type CategoryStore interface {
	CreateCategory(ctx context.Context, name, description string, categoryType model.CategoryType, color string) (*model.Category, error)
	GetCategoryByID(ctx context.Context, id int64) (*model.Category, error)
	GetCategories(ctx context.Context) ([]model.Category, error)
}

// HistoryStore persists classification history entries.
type HistoryStore interface {
	CreateHistoryEntry(ctx context.Context, entry *model.HistoryEntry) (*model.HistoryEntry, error)
	// GetTrainingData returns up to minSamples*10 of the most recent
	// manual and accepted-suggestion entries, newest first.
	GetTrainingData(ctx context.Context, minSamples int) ([]model.HistoryEntry, error)
}

// Storage aggregates the store contracts plus database lifecycle management.
type Storage interface {
	TransactionStore
	CategoryStore
	HistoryStore

	Migrate(ctx context.Context) error
	Close() error
}
