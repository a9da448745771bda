package server

import (
	"fmt"
	"strings"
	"time"

	"github.com/mfitchett/tally/internal/classifier"
	"github.com/mfitchett/tally/internal/importer"
	"github.com/mfitchett/tally/internal/ingest"
	"github.com/mfitchett/tally/internal/model"
)

// Status, category-kind, and method enums cross the API boundary in their
// uppercase wire form. The mapping lives here and only here; everything
// behind this package uses the closed model types.

func statusToWire(s model.ClassificationStatus) string {
	return strings.ToUpper(string(s))
}

func statusFromWire(s string) (model.ClassificationStatus, error) {
	status := model.ClassificationStatus(strings.ToLower(s))
	if !status.Valid() {
		return "", fmt.Errorf("unknown classification status %q", s)
	}
	return status, nil
}

func categoryTypeToWire(t model.CategoryType) string {
	return strings.ToUpper(string(t))
}

func categoryTypeFromWire(s string) (model.CategoryType, error) {
	if s == "" {
		return model.CategoryTypeExpense, nil
	}
	kind := model.CategoryType(strings.ToLower(s))
	if !kind.Valid() {
		return "", fmt.Errorf("unknown category type %q", s)
	}
	return kind, nil
}

type transactionDTO struct {
	ID                   int64    `json:"id"`
	Date                 string   `json:"date"`
	Amount               string   `json:"amount"`
	Payee                string   `json:"payee"`
	Particulars          *string  `json:"particulars,omitempty"`
	Code                 *string  `json:"code,omitempty"`
	Reference            *string  `json:"reference,omitempty"`
	TranType             *string  `json:"tranType,omitempty"`
	CategoryID           *int64   `json:"categoryId"`
	CategoryName         *string  `json:"categoryName,omitempty"`
	ClassificationStatus string   `json:"classificationStatus"`
	ConfidenceScore      *float64 `json:"confidenceScore"`
	IsAutoApproved       bool     `json:"isAutoApproved"`
	CreatedAt            string   `json:"createdAt"`
	UpdatedAt            string   `json:"updatedAt"`
}

func toTransactionDTO(txn *model.Transaction) transactionDTO {
	return transactionDTO{
		ID:                   txn.ID,
		Date:                 txn.Date,
		Amount:               txn.Amount.String(),
		Payee:                txn.Payee,
		Particulars:          txn.Particulars,
		Code:                 txn.Code,
		Reference:            txn.Reference,
		TranType:             txn.TranType,
		CategoryID:           txn.CategoryID,
		CategoryName:         txn.CategoryName,
		ClassificationStatus: statusToWire(txn.Status),
		ConfidenceScore:      txn.Confidence,
		IsAutoApproved:       txn.IsAutoApproved,
		CreatedAt:            txn.CreatedAt.Format(time.RFC3339),
		UpdatedAt:            txn.UpdatedAt.Format(time.RFC3339),
	}
}

func toTransactionDTOs(txns []model.Transaction) []transactionDTO {
	dtos := make([]transactionDTO, 0, len(txns))
	for i := range txns {
		dtos = append(dtos, toTransactionDTO(&txns[i]))
	}
	return dtos
}

type categoryDTO struct {
	ID               int64  `json:"id"`
	Name             string `json:"name"`
	Description      string `json:"description,omitempty"`
	CategoryType     string `json:"categoryType"`
	Color            string `json:"color,omitempty"`
	TransactionCount int    `json:"transactionCount"`
	TotalAmount      string `json:"totalAmount"`
}

func toCategoryDTO(cat *model.Category) categoryDTO {
	return categoryDTO{
		ID:               cat.ID,
		Name:             cat.Name,
		Description:      cat.Description,
		CategoryType:     categoryTypeToWire(cat.Type),
		Color:            cat.Color,
		TransactionCount: cat.TransactionCount,
		TotalAmount:      cat.TotalAmount.String(),
	}
}

type importErrorDTO struct {
	Row     int    `json:"row"`
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
}

type importResultDTO struct {
	BatchID        string           `json:"batchId"`
	ImportedCount  int              `json:"importedCount"`
	DuplicateCount int              `json:"duplicateCount"`
	ErrorCount     int              `json:"errorCount"`
	Transactions   []transactionDTO `json:"transactions"`
	Duplicates     []transactionDTO `json:"duplicates"`
	Errors         []importErrorDTO `json:"errors"`
	Success        bool             `json:"success"`
	Message        string           `json:"message"`
}

func toImportResultDTO(result *importer.Result) importResultDTO {
	errs := make([]importErrorDTO, 0, len(result.Errors))
	for _, e := range result.Errors {
		errs = append(errs, importErrorDTO(ingestError(e)))
	}
	return importResultDTO{
		BatchID:        result.BatchID,
		ImportedCount:  result.ImportedCount,
		DuplicateCount: result.DuplicateCount,
		ErrorCount:     result.ErrorCount,
		Transactions:   toTransactionDTOs(result.Transactions),
		Duplicates:     toTransactionDTOs(result.Duplicates),
		Errors:         errs,
		Success:        result.Success,
		Message:        result.Message,
	}
}

func ingestError(e ingest.RowError) importErrorDTO {
	return importErrorDTO{Row: e.Row, Message: e.Message, Field: e.Field}
}

type classificationResultDTO struct {
	TransactionID       int64   `json:"transactionId"`
	SuggestedCategoryID int64   `json:"suggestedCategoryId"`
	ConfidenceScore     float64 `json:"confidenceScore"`
	ShouldAutoApprove   bool    `json:"shouldAutoApprove"`
	Explanation         string  `json:"explanation"`
}

func toClassificationResultDTO(result *classifier.Result) classificationResultDTO {
	return classificationResultDTO{
		TransactionID:       result.TransactionID,
		SuggestedCategoryID: result.SuggestedCategoryID,
		ConfidenceScore:     result.Confidence,
		ShouldAutoApprove:   result.ShouldAutoApprove,
		Explanation:         result.Explanation,
	}
}
