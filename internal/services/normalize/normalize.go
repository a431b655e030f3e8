// Package normalize converts raw statement records into canonical
// transactions with derived calendar fields.
package normalize

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"finboard/internal/models"
)

// nonAmount matches every rune that is not part of a signed decimal.
var nonAmount = regexp.MustCompile(`[^0-9.-]`)

// dateFormats are tried in order when parsing statement dates.
var dateFormats = []string{
	"2006-01-02",
	"2006-01-02T15:04:05Z07:00",
	"01/02/2006",
	"1/2/2006",
	"01-02-2006",
	"2006/01/02",
	"Jan 2, 2006",
	"January 2, 2006",
	"2 Jan 2006",
}

// StripAmount removes everything but digits, '.' and '-' from a raw
// amount, leaving whatever residue a numeric parser can judge.
func StripAmount(raw string) string {
	return nonAmount.ReplaceAllString(raw, "")
}

// ParseAmount strips everything but digits, '.' and '-' from the raw
// value and parses the residue as a float. It never fails: any
// non-numeric residue yields 0.
func ParseAmount(raw string) float64 {
	amount, err := strconv.ParseFloat(StripAmount(raw), 64)
	if err != nil {
		return 0
	}
	return amount
}

// ParseDate tries the known statement date formats. A zero time is
// returned when none match; the caller records the transaction as
// invalid rather than dropping it.
func ParseDate(raw string) time.Time {
	raw = strings.TrimSpace(raw)
	for _, format := range dateFormats {
		if t, err := time.Parse(format, raw); err == nil {
			return t
		}
	}
	return time.Time{}
}

// Record normalizes one raw record. Amount parsing never fails
// (defaults to 0); an unparseable date yields Valid=false with zero
// derived fields.
func Record(raw models.RawRecord) models.Transaction {
	t := models.Transaction{
		Date:        ParseDate(raw.Date),
		Amount:      ParseAmount(raw.Amount),
		Category:    strings.TrimSpace(raw.Category),
		Description: strings.TrimSpace(raw.Description),
	}
	if t.Description == "" {
		t.Description = t.Category
	}
	t.ComputeDerivedFields()
	return t
}

// Records normalizes a full snapshot into a fresh TransactionSet.
func Records(raws []models.RawRecord) *models.TransactionSet {
	transactions := make([]models.Transaction, 0, len(raws))
	for _, raw := range raws {
		transactions = append(transactions, Record(raw))
	}
	return models.NewTransactionSet(transactions)
}
