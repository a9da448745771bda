package ingest

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const statementHeader = "Date,Amount,Payee,Particulars,Code,Reference,Tran Type,This Party Account,Other Party Account,Serial,Transaction Code,Batch Number,Originating Bank/Branch,Processed Date"

func TestParse(t *testing.T) {
	t.Run("valid statement", func(t *testing.T) {
		content := statementHeader + "\n" +
			"15/03/2024,-45.50,Countdown Auckland,Groceries,,INV-001,EFTPOS,12-3456-7890123-00,,,,,,16/03/2024\n" +
			"1/4/2024,120.00,ACME Corp,Salary,,,DC,,,,,,,"

		rows, errs := Parse(content)
		require.Empty(t, errs)
		require.Len(t, rows, 2)

		assert.Equal(t, "15/03/2024", rows[0].Date)
		assert.Equal(t, "-45.50", rows[0].Amount)
		assert.Equal(t, "Countdown Auckland", rows[0].Payee)
		assert.Equal(t, "Groceries", rows[0].Particulars)
		assert.Equal(t, "INV-001", rows[0].Reference)
		assert.Equal(t, "EFTPOS", rows[0].TranType)
		assert.Equal(t, "16/03/2024", rows[0].ProcessedDate)

		assert.Equal(t, "1/4/2024", rows[1].Date)
		assert.Empty(t, rows[1].Reference)
	})

	t.Run("invalid rows are reported but still returned", func(t *testing.T) {
		content := statementHeader + "\n" +
			"15/03/2024,-45.50,Countdown Auckland,,,,,,,,,,,\n" +
			"not-a-date,abc,,,,,,,,,,,,\n" +
			"16/03/2024,12.00,Cafe,,,,,,,,,,,"

		rows, errs := Parse(content)
		require.Len(t, rows, 3)
		require.Len(t, errs, 3)

		// Row numbers are 1-based including the header.
		for _, e := range errs {
			assert.Equal(t, 3, e.Row)
		}

		fields := make(map[string]bool)
		for _, e := range errs {
			fields[e.Field] = true
		}
		assert.True(t, fields[ColPayee], "missing payee should be reported")
		assert.True(t, fields[ColAmount], "invalid amount should be reported")
		assert.True(t, fields[ColDate], "invalid date should be reported")
	})

	t.Run("missing required fields", func(t *testing.T) {
		content := statementHeader + "\n" +
			",,Somebody,,,,,,,,,,,"

		rows, errs := Parse(content)
		require.Len(t, rows, 1)
		require.Len(t, errs, 2)
		assert.Equal(t, ColDate, errs[0].Field)
		assert.Equal(t, ColAmount, errs[1].Field)
	})

	t.Run("blank lines are skipped", func(t *testing.T) {
		content := statementHeader + "\n" +
			"15/03/2024,-45.50,Countdown Auckland,,,,,,,,,,,\n" +
			",,,,,,,,,,,,,\n" +
			"16/03/2024,12.00,Cafe,,,,,,,,,,,"

		rows, errs := Parse(content)
		assert.Empty(t, errs)
		assert.Len(t, rows, 2)
	})

	t.Run("short records read missing columns as empty", func(t *testing.T) {
		content := "Date,Amount,Payee,Reference\n" +
			"15/03/2024,-45.50,Countdown"

		rows, errs := Parse(content)
		require.Empty(t, errs)
		require.Len(t, rows, 1)
		assert.Empty(t, rows[0].Reference)
	})

	t.Run("structurally unreadable document", func(t *testing.T) {
		content := "Date,Amount,Payee\n\"unterminated"

		rows, errs := Parse(content)
		assert.Empty(t, rows)
		require.Len(t, errs, 1)
		assert.Equal(t, 0, errs[0].Row)
		assert.Contains(t, errs[0].Message, "CSV parsing failed")
		assert.NotEmpty(t, errs[0].RawData)
	})

	t.Run("empty input", func(t *testing.T) {
		rows, errs := Parse("")
		assert.Empty(t, rows)
		assert.Empty(t, errs)
	})

	t.Run("header only", func(t *testing.T) {
		rows, errs := Parse(statementHeader)
		assert.Empty(t, rows)
		assert.Empty(t, errs)
	})

	t.Run("zero amount is valid", func(t *testing.T) {
		content := statementHeader + "\n" +
			"15/03/2024,0.00,Fee Reversal,,,,,,,,,,,"

		rows, errs := Parse(content)
		assert.Empty(t, errs)
		assert.Len(t, rows, 1)
	})
}

func TestDateValidation(t *testing.T) {
	tests := []struct {
		date  string
		valid bool
	}{
		{"15/03/2024", true},
		{"1/3/2024", true},
		{"31/04/2024", true}, // format-valid; calendar correctness is not checked
		{"2024-03-15", false},
		{"15-03-2024", false},
		{"15/03/24", false},
		{"march 15", false},
	}

	for _, tt := range tests {
		t.Run(tt.date, func(t *testing.T) {
			row := Row{Date: tt.date, Amount: "1.00", Payee: "x"}
			errs := validateRow(row, 2)
			if tt.valid {
				assert.Empty(t, errs)
			} else {
				require.Len(t, errs, 1)
				assert.Equal(t, ColDate, errs[0].Field)
			}
		})
	}
}

func TestToISODate(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"15/03/2024", "2024-03-15"},
		{"1/3/2024", "2024-03-01"},
		{"31/04/2024", "2024-04-31"}, // impossible date survives conversion
		{"garbage", "garbage"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, ToISODate(tt.in))
	}
}

func TestFromISODate(t *testing.T) {
	assert.Equal(t, "15/03/2024", FromISODate("2024-03-15"))
	assert.Equal(t, "garbage", FromISODate("garbage"))

	// Round trip for already-padded dates.
	assert.Equal(t, "15/03/2024", FromISODate(ToISODate("15/03/2024")))
}
