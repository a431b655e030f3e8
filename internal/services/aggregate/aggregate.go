// Package aggregate computes the dashboard figures for a filtered
// transaction subset: totals, health classification, category
// breakdowns and spending trends.
package aggregate

import (
	"fmt"
	"math"
	"sort"
	"time"

	"finboard/internal/models"
	"finboard/internal/services/period"
)

// spendingIncomeThreshold is the fraction of income above which
// spending triggers a monitor alert.
const spendingIncomeThreshold = 0.5

// Totals computes income, spending and net change for the subset.
// Income counts positive Income-category amounts; spending counts
// positive amounts outside the exclusion set.
func Totals(set *models.TransactionSet) models.PeriodTotals {
	income := set.IncomeTotal()
	spent := set.SpendingTotal()
	return models.PeriodTotals{
		Income: income,
		Spent:  spent,
		Net:    income - spent,
	}
}

// Health classifies the period's totals. The returned status carries
// the spent/income percentage (one decimal) for display.
func Health(totals models.PeriodTotals) models.HealthStatus {
	var percent float64
	if totals.Income > 0 {
		percent = round1(totals.Spent / totals.Income * 100)
	}

	switch {
	case totals.Income > 0 && totals.Spent > totals.Income:
		return models.HealthStatus{
			Level:        models.HealthCritical,
			SpentPercent: percent,
			Message:      fmt.Sprintf("Critical: expenditure ($%.2f) is exceeding total income ($%.2f)", totals.Spent, totals.Income),
		}
	case totals.Income > 0 && totals.Spent > totals.Income*spendingIncomeThreshold:
		return models.HealthStatus{
			Level:        models.HealthMonitorOverspend,
			SpentPercent: percent,
			Message:      fmt.Sprintf("Monitor: expenditure (%.1f%%) is above the 50%% threshold", percent),
		}
	case totals.Income == 0 && totals.Spent > 0:
		return models.HealthStatus{
			Level:        models.HealthMonitorNoIncome,
			SpentPercent: 0,
			Message:      fmt.Sprintf("Monitor: no income recorded for this period; spending is $%.2f", totals.Spent),
		}
	default:
		return models.HealthStatus{
			Level:        models.HealthHealthy,
			SpentPercent: percent,
			Message:      fmt.Sprintf("Healthy: total expenditure (%.1f%%) is well managed", percent),
		}
	}
}

// CategoryBreakdown sums spending by category, sorted by amount
// descending, each entry carrying its percentage of the included total.
// A zero total yields an empty breakdown, never a division by zero.
func CategoryBreakdown(set *models.TransactionSet) []models.CategoryShare {
	byCategory := make(map[string]float64)
	for _, t := range set.Transactions {
		if t.IsSpending() {
			byCategory[t.Category] += t.Amount
		}
	}

	var total float64
	for _, amount := range byCategory {
		total += amount
	}
	if total == 0 {
		return nil
	}

	shares := make([]models.CategoryShare, 0, len(byCategory))
	for category, amount := range byCategory {
		shares = append(shares, models.CategoryShare{
			Category: category,
			Amount:   amount,
			Percent:  round1(amount / total * 100),
		})
	}
	sort.Slice(shares, func(i, j int) bool {
		if shares[i].Amount != shares[j].Amount {
			return shares[i].Amount > shares[j].Amount
		}
		return shares[i].Category < shares[j].Category
	})
	return shares
}

// TrendSeries groups spending by the scope's grouping key and orders
// the buckets the way the scope defines: yearly by calendar month
// order, monthly by numeric week, weekly by the lexical MM-DD label
// (chronological for same-year dates).
func TrendSeries(set *models.TransactionSet, key period.Key, scope period.Scope) []models.TrendPoint {
	type bucket struct {
		label  string
		order  int    // month or week rank
		lexKey string // weekly ordering
		amount float64
	}
	buckets := make(map[string]*bucket)

	for _, t := range set.Transactions {
		if !t.IsSpending() || !t.Valid {
			continue
		}
		var label string
		var order int
		switch key {
		case period.KeyMonth:
			label = time.Month(t.Month).String()
			order = t.Month
		case period.KeyWeekOfMonth:
			label = fmt.Sprintf("Week %d", t.WeekOfMonth)
			order = t.WeekOfMonth
		default: // period.KeyDate
			label = t.DateKey[5:] // MM-DD
		}
		b, ok := buckets[label]
		if !ok {
			b = &bucket{label: label, order: order, lexKey: label}
			buckets[label] = b
		}
		b.amount += t.Amount
	}

	ordered := make([]*bucket, 0, len(buckets))
	for _, b := range buckets {
		ordered = append(ordered, b)
	}
	sort.Slice(ordered, func(i, j int) bool {
		if scope == period.ScopeWeekly {
			return ordered[i].lexKey < ordered[j].lexKey
		}
		return ordered[i].order < ordered[j].order
	})

	points := make([]models.TrendPoint, 0, len(ordered))
	for _, b := range ordered {
		points = append(points, models.TrendPoint{Label: b.label, Amount: b.amount})
	}
	return points
}

// MultiCategoryTrend builds the spending history of the top-N
// categories across periods. Yearly scope buckets by "YYYY-MM", any
// other scope by the raw date key; both keys sort lexicographically in
// chronological order. Fewer than two periods is reported as
// HasData=false, a defined insufficient-data state.
func MultiCategoryTrend(set *models.TransactionSet, scope period.Scope, topN int) models.MultiCategoryTrend {
	type periodBucket struct {
		key        string
		label      string
		categories map[string]float64
	}
	buckets := make(map[string]*periodBucket)

	for _, t := range set.Transactions {
		if !t.IsSpending() || !t.Valid {
			continue
		}
		var key, label string
		if scope == period.ScopeYearly {
			key = t.MonthKey()
			label = time.Month(t.Month).String()
		} else {
			key = t.DateKey
			label = t.DateKey[5:]
		}
		b, ok := buckets[key]
		if !ok {
			b = &periodBucket{key: key, label: label, categories: make(map[string]float64)}
			buckets[key] = b
		}
		b.categories[t.Category] += t.Amount
	}

	ordered := make([]*periodBucket, 0, len(buckets))
	for _, b := range buckets {
		ordered = append(ordered, b)
	}
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].key < ordered[j].key })

	if len(ordered) < 2 {
		return models.MultiCategoryTrend{HasData: false}
	}

	// Top categories rank by their total across the whole set, not just
	// the spending-filtered buckets, matching the dashboard's history view.
	categoryTotals := make(map[string]float64)
	for _, t := range set.Transactions {
		if models.ExcludedCategories[t.Category] {
			continue
		}
		categoryTotals[t.Category] += t.Amount
	}
	type catTotal struct {
		category string
		total    float64
	}
	ranked := make([]catTotal, 0, len(categoryTotals))
	for category, total := range categoryTotals {
		ranked = append(ranked, catTotal{category, total})
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].total != ranked[j].total {
			return ranked[i].total > ranked[j].total
		}
		return ranked[i].category < ranked[j].category
	})
	if len(ranked) > topN {
		ranked = ranked[:topN]
	}

	trend := models.MultiCategoryTrend{HasData: true}
	for _, b := range ordered {
		trend.Periods = append(trend.Periods, b.label)
	}
	for _, ct := range ranked {
		series := models.CategoryTrendSeries{Category: ct.category}
		for _, b := range ordered {
			series.Amounts = append(series.Amounts, b.categories[ct.category])
		}
		trend.Series = append(trend.Series, series)
	}
	return trend
}

// ScatterByDayOfWeek plots each expense of the top-N spending
// categories by day of week and amount.
func ScatterByDayOfWeek(set *models.TransactionSet, topN int) []models.ScatterSeries {
	spending := set.FilterSpending()

	totals := make(map[string]float64)
	for _, t := range spending.Transactions {
		totals[t.Category] += t.Amount
	}
	type catTotal struct {
		category string
		total    float64
	}
	ranked := make([]catTotal, 0, len(totals))
	for category, total := range totals {
		ranked = append(ranked, catTotal{category, total})
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].total != ranked[j].total {
			return ranked[i].total > ranked[j].total
		}
		return ranked[i].category < ranked[j].category
	})
	if len(ranked) > topN {
		ranked = ranked[:topN]
	}

	index := make(map[string]int, len(ranked))
	series := make([]models.ScatterSeries, len(ranked))
	for i, ct := range ranked {
		index[ct.category] = i
		series[i] = models.ScatterSeries{Category: ct.category}
	}
	for _, t := range spending.Transactions {
		if i, ok := index[t.Category]; ok {
			series[i].Points = append(series[i].Points, models.ScatterPoint{
				DayOfWeek: t.DayOfWeek,
				Amount:    t.Amount,
			})
		}
	}
	return series
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
