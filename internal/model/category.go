package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// CategoryType indicates whether a category is for expenses, income, or transfers.
type CategoryType string

const (
	// CategoryTypeExpense represents categories for outgoing money.
	CategoryTypeExpense CategoryType = "expense"
	// CategoryTypeIncome represents categories for incoming money.
	CategoryTypeIncome CategoryType = "income"
	// CategoryTypeTransfer represents internal transfers between accounts.
	CategoryTypeTransfer CategoryType = "transfer"
)

// Valid reports whether t is one of the known category types.
func (t CategoryType) Valid() bool {
	switch t {
	case CategoryTypeExpense, CategoryTypeIncome, CategoryTypeTransfer:
		return true
	}
	return false
}

// Category represents a spending category transactions are assigned to.
// TransactionCount and TotalAmount are derived from the transaction table,
// never stored authoritatively.
type Category struct {
	ID               int64
	Name             string
	Description      string
	Type             CategoryType
	Color            string
	TransactionCount int
	TotalAmount      decimal.Decimal
	CreatedAt        time.Time
	UpdatedAt        time.Time
}
