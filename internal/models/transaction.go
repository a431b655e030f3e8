package models

import (
	"sort"
	"time"
)

// ExcludedCategories are the categories left out of every spend-side
// aggregate (breakdowns, trends, waste analysis, forecasts). Income is
// still summed separately for income totals.
var ExcludedCategories = map[string]bool{
	"Income":   true,
	"Savings":  true,
	"Transfer": true,
}

// CategoryIncome is the category whose positive amounts count as income.
const CategoryIncome = "Income"

// RawRecord is a bank-statement row as it arrives from CSV decoding or
// the record store: all fields still strings.
type RawRecord struct {
	Date        string `json:"Date"`
	Category    string `json:"Category"`
	Amount      string `json:"Amount"`
	Description string `json:"Description"`
}

// Transaction is a normalized bank-statement record. The calendar
// fields are derived from Date at normalization time and never mutated
// afterwards.
type Transaction struct {
	Date        time.Time `json:"-"`
	DateKey     string    `json:"date"` // "2006-01-02", empty when the raw date was unparseable
	Amount      float64   `json:"amount"`
	Category    string    `json:"category"`
	Description string    `json:"description"`

	Year        int  `json:"year"`
	Month       int  `json:"month"`       // 1-12
	WeekOfMonth int  `json:"weekOfMonth"` // ceil(day/7), 1-5
	DayOfWeek   int  `json:"dayOfWeek"`   // 0=Sunday .. 6=Saturday
	Valid       bool `json:"valid"`       // false when the raw date failed to parse
}

// ComputeDerivedFields populates the calendar fields from Date.
// A zero Date leaves them zero and marks the transaction invalid.
func (t *Transaction) ComputeDerivedFields() {
	if t.Date.IsZero() {
		t.Valid = false
		t.DateKey = ""
		t.Year, t.Month, t.WeekOfMonth, t.DayOfWeek = 0, 0, 0, 0
		return
	}
	t.Valid = true
	t.DateKey = t.Date.Format("2006-01-02")
	t.Year = t.Date.Year()
	t.Month = int(t.Date.Month())
	t.WeekOfMonth = (t.Date.Day() + 6) / 7
	t.DayOfWeek = int(t.Date.Weekday())
}

// IsSpending reports whether the transaction counts toward spend-side
// aggregates: positive amount, category outside the exclusion set.
func (t *Transaction) IsSpending() bool {
	return t.Amount > 0 && !ExcludedCategories[t.Category]
}

// IsIncome reports whether the transaction counts toward the income total.
func (t *Transaction) IsIncome() bool {
	return t.Category == CategoryIncome && t.Amount > 0
}

// MonthKey returns the "YYYY-MM" key for monthly grouping, or "" for
// invalid dates.
func (t *Transaction) MonthKey() string {
	if !t.Valid {
		return ""
	}
	return t.Date.Format("2006-01")
}

// TransactionSet wraps a slice of transactions with the filtering and
// grouping operations the analytics core needs. Sets are treated as
// immutable: every filter returns a new set sharing no slice header
// with the receiver.
type TransactionSet struct {
	Transactions []Transaction
}

// NewTransactionSet creates a set from a slice.
func NewTransactionSet(transactions []Transaction) *TransactionSet {
	return &TransactionSet{Transactions: transactions}
}

// Len returns the number of transactions.
func (ts *TransactionSet) Len() int {
	return len(ts.Transactions)
}

// FilterByYear returns the transactions dated in the given year.
// Invalid-date records never match.
func (ts *TransactionSet) FilterByYear(year int) *TransactionSet {
	result := &TransactionSet{}
	for _, t := range ts.Transactions {
		if t.Valid && t.Year == year {
			result.Transactions = append(result.Transactions, t)
		}
	}
	return result
}

// FilterByMonth returns the transactions dated in the given month (1-12).
func (ts *TransactionSet) FilterByMonth(month int) *TransactionSet {
	result := &TransactionSet{}
	for _, t := range ts.Transactions {
		if t.Valid && t.Month == month {
			result.Transactions = append(result.Transactions, t)
		}
	}
	return result
}

// FilterByWeekOfMonth returns the transactions in the given week of the
// month (1-5).
func (ts *TransactionSet) FilterByWeekOfMonth(week int) *TransactionSet {
	result := &TransactionSet{}
	for _, t := range ts.Transactions {
		if t.Valid && t.WeekOfMonth == week {
			result.Transactions = append(result.Transactions, t)
		}
	}
	return result
}

// FilterSpending returns the spend-side transactions: positive amount,
// category outside the exclusion set.
func (ts *TransactionSet) FilterSpending() *TransactionSet {
	result := &TransactionSet{}
	for _, t := range ts.Transactions {
		if t.IsSpending() {
			result.Transactions = append(result.Transactions, t)
		}
	}
	return result
}

// IncomeTotal sums positive Income-category amounts.
func (ts *TransactionSet) IncomeTotal() float64 {
	var sum float64
	for _, t := range ts.Transactions {
		if t.IsIncome() {
			sum += t.Amount
		}
	}
	return sum
}

// SpendingTotal sums positive amounts outside the exclusion set.
func (ts *TransactionSet) SpendingTotal() float64 {
	var sum float64
	for _, t := range ts.Transactions {
		if t.IsSpending() {
			sum += t.Amount
		}
	}
	return sum
}

// Latest returns the most recently dated valid transaction.
func (ts *TransactionSet) Latest() (Transaction, bool) {
	var latest Transaction
	found := false
	for _, t := range ts.Transactions {
		if !t.Valid {
			continue
		}
		if !found || t.Date.After(latest.Date) {
			latest = t
			found = true
		}
	}
	return latest, found
}

// Years returns the distinct years present, sorted descending.
func (ts *TransactionSet) Years() []int {
	seen := make(map[int]bool)
	for _, t := range ts.Transactions {
		if t.Valid {
			seen[t.Year] = true
		}
	}
	years := make([]int, 0, len(seen))
	for y := range seen {
		years = append(years, y)
	}
	sort.Sort(sort.Reverse(sort.IntSlice(years)))
	return years
}

// SortByDateDesc returns a copy sorted newest first. Invalid-date
// records sort to the end.
func (ts *TransactionSet) SortByDateDesc() *TransactionSet {
	sorted := make([]Transaction, len(ts.Transactions))
	copy(sorted, ts.Transactions)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Valid != sorted[j].Valid {
			return sorted[i].Valid
		}
		return sorted[i].Date.After(sorted[j].Date)
	})
	return &TransactionSet{Transactions: sorted}
}

// Copy creates a shallow copy of the set.
func (ts *TransactionSet) Copy() *TransactionSet {
	copied := make([]Transaction, len(ts.Transactions))
	copy(copied, ts.Transactions)
	return &TransactionSet{Transactions: copied}
}
