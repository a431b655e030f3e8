package ingest

import (
	"errors"
	"strings"
	"testing"
)

func TestDecodeValidUpload(t *testing.T) {
	csv := strings.Join([]string{
		"Date,Category,Amount,Description",
		`2024-03-01,Income,"$3,000.00",Salary`,
		"2024-03-02,Groceries,150.25,Market",
		"2024-03-03,Dining Out,45.50,",
	}, "\n")

	records, summary, err := Decode(strings.NewReader(csv))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("records = %d, want 3", len(records))
	}
	if summary.Rows != 3 {
		t.Errorf("Rows = %d, want 3", summary.Rows)
	}
	if got := summary.GrossAmount.String(); got != "3195.75" {
		t.Errorf("GrossAmount = %s, want 3195.75", got)
	}
	if records[0].Amount != "$3,000.00" {
		t.Errorf("Amount kept raw = %q, want %q", records[0].Amount, "$3,000.00")
	}
	if records[2].Description != "" {
		t.Errorf("Description = %q, want empty (fallback happens in normalization)", records[2].Description)
	}
}

func TestDecodeHeaderValidation(t *testing.T) {
	tests := []struct {
		name    string
		csv     string
		missing string
	}{
		{"no amount", "Date,Category,Description\n2024-03-01,Groceries,Market", "Amount"},
		{"no date or category", "Amount,Description\n10,Market", "Date, Category"},
		{"wrong names entirely", "When,What,HowMuch,Why\n", "Date, Category, Amount, Description"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := Decode(strings.NewReader(tt.csv))
			var headerErr *MissingHeaderError
			if !errors.As(err, &headerErr) {
				t.Fatalf("err = %v, want MissingHeaderError", err)
			}
			if got := strings.Join(headerErr.Columns, ", "); got != tt.missing {
				t.Errorf("missing = %q, want %q", got, tt.missing)
			}
		})
	}
}

func TestDecodeHeaderCaseAndSpacing(t *testing.T) {
	csv := " date , CATEGORY ,Amount, description \n2024-03-01,Groceries,10,Market"
	records, _, err := Decode(strings.NewReader(csv))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if records[0].Category != "Groceries" || records[0].Description != "Market" {
		t.Errorf("record = %+v, want fields mapped despite header case", records[0])
	}
}

func TestDecodeEmptyAndHeaderOnly(t *testing.T) {
	if _, _, err := Decode(strings.NewReader("")); !errors.Is(err, ErrEmptyFile) {
		t.Errorf("empty file: err = %v, want ErrEmptyFile", err)
	}

	records, summary, err := Decode(strings.NewReader("Date,Category,Amount,Description\n"))
	if err != nil {
		t.Fatalf("header only: %v", err)
	}
	if len(records) != 0 || summary.Rows != 0 {
		t.Errorf("header only: records = %d rows = %d, want 0", len(records), summary.Rows)
	}
}

func TestDecodeRaggedAndUnparseableRows(t *testing.T) {
	csv := strings.Join([]string{
		"Date,Category,Amount,Description",
		"2024-03-01,Groceries,abc,Market", // unparseable amount still a row, excluded from gross
		"2024-03-02,Rent",                 // short row, missing cells read as empty
	}, "\n")

	records, summary, err := Decode(strings.NewReader(csv))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("records = %d, want 2 (bad rows kept for downstream handling)", len(records))
	}
	if !summary.GrossAmount.IsZero() {
		t.Errorf("GrossAmount = %s, want 0", summary.GrossAmount)
	}
	if records[1].Amount != "" || records[1].Description != "" {
		t.Errorf("short row = %+v, want empty trailing cells", records[1])
	}
}
