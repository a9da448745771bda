package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// ClassificationMethod records how a label was assigned.
type ClassificationMethod string

const (
	// MethodManual indicates the user picked the category directly.
	MethodManual ClassificationMethod = "manual"
	// MethodAuto indicates the classifier's suggestion was auto-approved.
	MethodAuto ClassificationMethod = "ml_auto"
	// MethodAccepted indicates the user accepted a pending suggestion.
	MethodAccepted ClassificationMethod = "ml_accepted"
)

// HistoryEntry is an immutable record of one trusted labeling decision.
// It snapshots the transaction fields relevant for training and is never
// mutated after creation; the classifier reads these entries as its only
// training data.
type HistoryEntry struct {
	ID            int64
	TransactionID int64
	CategoryID    int64
	Payee         string
	Particulars   *string
	TranType      *string
	Amount        decimal.Decimal
	Method        ClassificationMethod
	Confidence    *float64
	WasCorrected  bool
	// PreviousCategoryID is set when this entry corrects an earlier label.
	PreviousCategoryID *int64
	ClassifiedAt       time.Time
}
