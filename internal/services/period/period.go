// Package period resolves analysis scopes and selectors into filtered
// transaction subsets.
package period

import (
	"fmt"

	"finboard/internal/models"
)

// Scope selects the aggregation granularity.
type Scope string

const (
	ScopeYearly  Scope = "yearly"
	ScopeMonthly Scope = "monthly"
	ScopeWeekly  Scope = "weekly"
)

// ParseScope validates a scope string.
func ParseScope(s string) (Scope, error) {
	switch Scope(s) {
	case ScopeYearly, ScopeMonthly, ScopeWeekly:
		return Scope(s), nil
	}
	return "", fmt.Errorf("unknown scope %q", s)
}

// Key is the grouping key a scope uses for its trend series.
type Key string

const (
	KeyMonth       Key = "Month"
	KeyWeekOfMonth Key = "WeekOfMonth"
	KeyDate        Key = "Date"
)

// GroupingKey maps a scope to its trend grouping key: yearly scopes
// trend by calendar month, monthly by week of month, weekly by date.
func GroupingKey(scope Scope) Key {
	switch scope {
	case ScopeYearly:
		return KeyMonth
	case ScopeMonthly:
		return KeyWeekOfMonth
	default:
		return KeyDate
	}
}

// Selector carries the period values a scope requires: yearly needs
// Year, monthly adds Month (1-12), weekly adds Week (1-5).
type Selector struct {
	Year  int
	Month int
	Week  int
}

// AvailableYears returns the distinct years in the data, newest first.
func AvailableYears(set *models.TransactionSet) []int {
	return set.Years()
}

// DefaultPeriod selects the calendar month immediately preceding the
// most recent transaction's month, wrapping January back to December of
// the previous year. When the wrapped year has no data at all, it falls
// back to the latest transaction's own year and month. ok is false for
// an empty (or entirely undated) set.
func DefaultPeriod(set *models.TransactionSet) (year, month int, ok bool) {
	latest, found := set.Latest()
	if !found {
		return 0, 0, false
	}

	targetYear := latest.Year
	targetMonth := latest.Month - 1
	if targetMonth == 0 {
		targetMonth = 12
		targetYear--
	}

	for _, y := range set.Years() {
		if y == targetYear {
			return targetYear, targetMonth, true
		}
	}
	return latest.Year, latest.Month, true
}

// Filter applies the conjunction of equality filters the scope
// requires. Components the scope does not bind are ignored.
func Filter(set *models.TransactionSet, scope Scope, sel Selector) *models.TransactionSet {
	filtered := set.FilterByYear(sel.Year)
	if scope == ScopeMonthly || scope == ScopeWeekly {
		filtered = filtered.FilterByMonth(sel.Month)
	}
	if scope == ScopeWeekly {
		filtered = filtered.FilterByWeekOfMonth(sel.Week)
	}
	return filtered
}
