// Package model defines the core domain models used throughout the application.
package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// ClassificationStatus is the review state of a transaction's category assignment.
type ClassificationStatus string

// Classification status constants.
const (
	StatusUnclassified ClassificationStatus = "unclassified"
	StatusPending      ClassificationStatus = "pending"
	StatusApproved     ClassificationStatus = "approved"
)

// Valid reports whether s is one of the known statuses.
func (s ClassificationStatus) Valid() bool {
	switch s {
	case StatusUnclassified, StatusPending, StatusApproved:
		return true
	}
	return false
}

// Transaction represents a single bank-statement transaction.
//
// Date and ProcessedDate are canonical YYYY-MM-DD strings, not time.Time:
// the importer normalizes DD/MM/YYYY without validating calendar
// correctness, so a day like 31/04 must survive round trips unchanged.
type Transaction struct {
	ID     int64
	Date   string
	Amount decimal.Decimal // negative = outflow
	Payee  string

	// Optional bank-specific columns, carried verbatim from the statement.
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

	CategoryID     *int64
	CategoryName   *string
	Status         ClassificationStatus
	Confidence     *float64 // set only once classified, range [0,1]
	IsAutoApproved bool

	CreatedAt time.Time
	UpdatedAt time.Time
}

// TransactionUpdate describes a partial update to a transaction.
// Nil fields are left unchanged.
type TransactionUpdate struct {
	CategoryID     *int64
	Status         *ClassificationStatus
	Confidence     *float64
	IsAutoApproved *bool
}
