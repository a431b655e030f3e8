// Package ingest decodes uploaded transaction CSVs into raw records.
package ingest

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/shopspring/decimal"

	"finboard/internal/models"
	"finboard/internal/services/normalize"
)

// requiredColumns are the headers every upload must carry. Matching is
// case-insensitive and whitespace-tolerant, but there are no aliases:
// the upload format is ours, not a bank export.
var requiredColumns = []string{"Date", "Category", "Amount", "Description"}

// ErrEmptyFile is returned for an upload with no header row.
var ErrEmptyFile = errors.New("ingest: empty file")

// MissingHeaderError reports which required columns an upload lacks.
type MissingHeaderError struct {
	Columns []string
}

func (e *MissingHeaderError) Error() string {
	return fmt.Sprintf("ingest: missing required columns: %s", strings.Join(e.Columns, ", "))
}

// Summary describes a decoded upload. GrossAmount is the exact sum of
// every parseable amount in the file, kept in decimal so the receipt
// shown back to the user never drifts from the file's own arithmetic.
type Summary struct {
	Rows        int
	GrossAmount decimal.Decimal
}

// buildColumnIndex maps normalized header names to their positions.
// First occurrence wins when a header repeats.
func buildColumnIndex(header []string) map[string]int {
	index := make(map[string]int, len(header))
	for i, col := range header {
		name := strings.TrimSpace(col)
		for _, want := range requiredColumns {
			if strings.EqualFold(name, want) {
				name = want
				break
			}
		}
		if _, exists := index[name]; !exists {
			index[name] = i
		}
	}
	return index
}

// Decode reads a CSV upload and returns its rows as raw records along
// with a receipt summary. The header row is validated up front; data
// rows are never dropped for content problems, normalization handles
// those downstream.
func Decode(r io.Reader) ([]models.RawRecord, Summary, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1 // ragged rows are tolerated, short cells read as empty
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err == io.EOF {
		return nil, Summary{}, ErrEmptyFile
	}
	if err != nil {
		return nil, Summary{}, fmt.Errorf("ingest: reading header: %w", err)
	}

	index := buildColumnIndex(header)
	var missing []string
	for _, col := range requiredColumns {
		if _, ok := index[col]; !ok {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return nil, Summary{}, &MissingHeaderError{Columns: missing}
	}

	cell := func(row []string, col string) string {
		i := index[col]
		if i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	var records []models.RawRecord
	summary := Summary{GrossAmount: decimal.Zero}
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, Summary{}, fmt.Errorf("ingest: reading row %d: %w", summary.Rows+2, err)
		}

		record := models.RawRecord{
			Date:        cell(row, "Date"),
			Category:    cell(row, "Category"),
			Amount:      cell(row, "Amount"),
			Description: cell(row, "Description"),
		}
		records = append(records, record)
		summary.Rows++

		if amount := normalize.StripAmount(record.Amount); amount != "" {
			if d, err := decimal.NewFromString(amount); err == nil {
				summary.GrossAmount = summary.GrossAmount.Add(d)
			}
		}
	}
	return records, summary, nil
}
