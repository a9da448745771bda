// Package ingest parses raw bank-statement CSV text into validated rows.
//
// Parsing is a pure function of the input text: rows are returned in
// document order together with row-indexed validation errors, and a
// structurally unreadable document yields zero rows plus a single
// document-level error.
package ingest

import (
	"encoding/csv"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

// Statement column names. The schema is fixed, not configurable.
const (
	ColDate                  = "Date"
	ColAmount                = "Amount"
	ColPayee                 = "Payee"
	ColParticulars           = "Particulars"
	ColCode                  = "Code"
	ColReference             = "Reference"
	ColTranType              = "Tran Type"
	ColThisPartyAccount      = "This Party Account"
	ColOtherPartyAccount     = "Other Party Account"
	ColSerial                = "Serial"
	ColTransactionCode       = "Transaction Code"
	ColBatchNumber           = "Batch Number"
	ColOriginatingBankBranch = "Originating Bank/Branch"
	ColProcessedDate         = "Processed Date"
)

// requiredColumns must be present and non-empty in every row.
var requiredColumns = []string{ColDate, ColAmount, ColPayee}

// dateFormat matches DD/MM/YYYY with one- or two-digit day and month.
var dateFormat = regexp.MustCompile(`^\d{1,2}/\d{1,2}/\d{4}$`)

// previewLen bounds the raw-input excerpt attached to document-level errors.
const previewLen = 100

// Row is one parsed statement line. All values are trimmed strings; a
// missing column reads as the empty string. Rows are transient parse
// artifacts and are never persisted.
type Row struct {
	Date                  string
	Amount                string
	Payee                 string
	Particulars           string
	Code                  string
	Reference             string
	TranType              string
	ThisPartyAccount      string
	OtherPartyAccount     string
	Serial                string
	TransactionCode       string
	BatchNumber           string
	OriginatingBankBranch string
	ProcessedDate         string
}

// RowError describes a validation or import failure attached to a row.
// Row numbers are 1-based and include the header line, so the first data
// row is row 2. Row 0 marks a document-level error.
type RowError struct {
	Row     int
	Message string
	Field   string
	RawData string
}

func (e RowError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("row %d: %s (field %s)", e.Row, e.Message, e.Field)
	}
	return fmt.Sprintf("row %d: %s", e.Row, e.Message)
}

// Parse reads CSV text with a header row and returns the parsed rows plus
// any validation errors. Invalid rows are still returned; callers decide
// whether to act on them.
func Parse(content string) ([]Row, []RowError) {
	reader := csv.NewReader(strings.NewReader(content))
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		slog.Error("CSV parse error", "error", err)
		preview := content
		if len(preview) > previewLen {
			preview = preview[:previewLen]
		}
		return nil, []RowError{{
			Row:     0,
			Message: fmt.Sprintf("CSV parsing failed: %v", err),
			RawData: preview,
		}}
	}

	if len(records) == 0 {
		return nil, nil
	}

	header := make(map[string]int, len(records[0]))
	for i, name := range records[0] {
		header[strings.TrimSpace(name)] = i
	}

	var rows []Row
	var errs []RowError
	for _, record := range records[1:] {
		if blank(record) {
			continue
		}
		row := mapRecord(header, record)
		rows = append(rows, row)
		errs = append(errs, validateRow(row, len(rows)+1)...)
	}

	slog.Info("CSV parsed", "rows", len(rows), "errors", len(errs))
	return rows, errs
}

func blank(record []string) bool {
	for _, v := range record {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

func mapRecord(header map[string]int, record []string) Row {
	cell := func(name string) string {
		idx, ok := header[name]
		if !ok || idx >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[idx])
	}

	return Row{
		Date:                  cell(ColDate),
		Amount:                cell(ColAmount),
		Payee:                 cell(ColPayee),
		Particulars:           cell(ColParticulars),
		Code:                  cell(ColCode),
		Reference:             cell(ColReference),
		TranType:              cell(ColTranType),
		ThisPartyAccount:      cell(ColThisPartyAccount),
		OtherPartyAccount:     cell(ColOtherPartyAccount),
		Serial:                cell(ColSerial),
		TransactionCode:       cell(ColTransactionCode),
		BatchNumber:           cell(ColBatchNumber),
		OriginatingBankBranch: cell(ColOriginatingBankBranch),
		ProcessedDate:         cell(ColProcessedDate),
	}
}

func validateRow(row Row, rowNumber int) []RowError {
	var errs []RowError

	required := map[string]string{
		ColDate:   row.Date,
		ColAmount: row.Amount,
		ColPayee:  row.Payee,
	}
	for _, field := range requiredColumns {
		if strings.TrimSpace(required[field]) == "" {
			errs = append(errs, RowError{
				Row:     rowNumber,
				Message: fmt.Sprintf("missing required field: %s", field),
				Field:   field,
			})
		}
	}

	if row.Amount != "" {
		if _, err := decimal.NewFromString(row.Amount); err != nil {
			errs = append(errs, RowError{
				Row:     rowNumber,
				Message: fmt.Sprintf("invalid amount format: %s", row.Amount),
				Field:   ColAmount,
			})
		}
	}

	if row.Date != "" && !dateFormat.MatchString(row.Date) {
		errs = append(errs, RowError{
			Row:     rowNumber,
			Message: fmt.Sprintf("invalid date format: %s, expected DD/MM/YYYY", row.Date),
			Field:   ColDate,
		})
	}

	return errs
}

// ToISODate converts a DD/MM/YYYY date string to YYYY-MM-DD. It is pure
// string manipulation: calendar correctness is deliberately not checked,
// so 31/04/2024 converts to 2024-04-31 as-is.
func ToISODate(ddmmyyyy string) string {
	parts := strings.Split(ddmmyyyy, "/")
	if len(parts) != 3 {
		return ddmmyyyy
	}
	return parts[2] + "-" + pad2(parts[1]) + "-" + pad2(parts[0])
}

func pad2(s string) string {
	if len(s) == 1 {
		return "0" + s
	}
	return s
}

// FromISODate converts a YYYY-MM-DD date string back to DD/MM/YYYY for
// display. The inverse of ToISODate.
func FromISODate(iso string) string {
	parts := strings.Split(iso, "-")
	if len(parts) != 3 {
		return iso
	}
	return fmt.Sprintf("%s/%s/%s", parts[2], parts[1], parts[0])
}
