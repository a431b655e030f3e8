// Package forecast builds per-category monthly spending series and
// projects future spending with ordinary-least-squares regression.
package forecast

import (
	"math"
	"sort"

	"finboard/internal/models"
)

// minSeriesPoints is the number of distinct spending months a category
// needs before it is eligible for a trend fit.
const minSeriesPoints = 2

// projectionMonths is the horizon of the long projection.
const projectionMonths = 12

// BuildCategorySeries turns a transaction set into one monthly series
// per eligible category. The sequence index is assigned globally: every
// month present in any category's data gets a rank in chronological
// order, so a month one category skipped still advances the index for
// the others. Categories with fewer than two monthly points are dropped.
func BuildCategorySeries(set *models.TransactionSet) map[string]models.CategorySeries {
	type monthAmount struct {
		year   int
		month  int
		amount float64
	}
	spending := make(map[string]map[string]monthAmount) // category -> monthKey -> sums
	allMonths := make(map[string]bool)

	for _, t := range set.Transactions {
		if !t.Valid || t.Category == "" || models.ExcludedCategories[t.Category] || t.Amount <= 0 {
			continue
		}
		key := t.MonthKey()
		allMonths[key] = true
		months, ok := spending[t.Category]
		if !ok {
			months = make(map[string]monthAmount)
			spending[t.Category] = months
		}
		ma := months[key]
		ma.year = t.Year
		ma.month = t.Month
		ma.amount += t.Amount
		months[key] = ma
	}

	sortedMonths := make([]string, 0, len(allMonths))
	for key := range allMonths {
		sortedMonths = append(sortedMonths, key)
	}
	sort.Strings(sortedMonths)
	sequence := make(map[string]int, len(sortedMonths))
	for i, key := range sortedMonths {
		sequence[key] = i + 1
	}

	result := make(map[string]models.CategorySeries)
	for category, months := range spending {
		if len(months) < minSeriesPoints {
			continue
		}
		keys := make([]string, 0, len(months))
		for key := range months {
			keys = append(keys, key)
		}
		sort.Strings(keys)

		series := models.CategorySeries{Category: category}
		for _, key := range keys {
			ma := months[key]
			series.Points = append(series.Points, models.SeriesPoint{
				Sequence: sequence[key],
				Year:     ma.year,
				Month:    ma.month,
				Amount:   ma.amount,
			})
		}
		result[category] = series
	}
	return result
}

// Fit runs ordinary least squares on the series' (sequence, amount)
// pairs. Fewer than two points yields a flat fit at the single amount
// (or zero). A zero denominator (degenerate x-values) yields slope 0
// and intercept mean(y); this is a designed fallback, not an epsilon
// guard.
func Fit(series models.CategorySeries) models.RegressionFit {
	points := series.Points
	if len(points) < 2 {
		fit := models.RegressionFit{}
		if len(points) == 1 {
			fit.Intercept = points[0].Amount
		}
		return fit
	}

	n := float64(len(points))
	var sumX, sumY, sumXY, sumXX float64
	for _, p := range points {
		x := float64(p.Sequence)
		y := p.Amount
		sumX += x
		sumY += y
		sumXY += x * y
		sumXX += x * x
	}

	denominator := n*sumXX - sumX*sumX
	if denominator == 0 {
		return models.RegressionFit{Intercept: sumY / n}
	}

	slope := (n*sumXY - sumX*sumY) / denominator
	intercept := (sumY - slope*sumX) / n

	var mse float64
	for _, p := range points {
		predicted := slope*float64(p.Sequence) + intercept
		mse += (predicted - p.Amount) * (predicted - p.Amount)
	}
	mse /= n

	return models.RegressionFit{Slope: slope, Intercept: intercept, MSE: mse}
}

// Predict projects the fit at a sequence index, clamped at zero:
// spending cannot be negative.
func Predict(sequence int, fit models.RegressionFit) float64 {
	return math.Max(0, fit.Slope*float64(sequence)+fit.Intercept)
}

// ForecastAll fits every category and projects the next month and the
// next twelve months. All categories share a single next-period index,
// max(sequence)+1 across the whole map, rather than continuing each
// category from its own last point; a category with a short history
// therefore forecasts against the same future period as the rest.
func ForecastAll(seriesMap map[string]models.CategorySeries) models.ForecastReport {
	maxSequence := 0
	for _, series := range seriesMap {
		for _, p := range series.Points {
			if p.Sequence > maxSequence {
				maxSequence = p.Sequence
			}
		}
	}
	nextSequence := maxSequence + 1

	categories := make([]string, 0, len(seriesMap))
	for category := range seriesMap {
		categories = append(categories, category)
	}
	sort.Strings(categories)

	var report models.ForecastReport
	for _, category := range categories {
		fit := Fit(seriesMap[category])

		nextMonth := Predict(nextSequence, fit)
		var nextTwelve float64
		for i := 1; i <= projectionMonths; i++ {
			nextTwelve += Predict(maxSequence+i, fit)
		}

		report.Rows = append(report.Rows, models.CategoryForecast{
			Category:   category,
			NextMonth:  nextMonth,
			NextTwelve: nextTwelve,
			MSE:        fit.MSE,
		})
		report.TotalNextMonth += nextMonth
		report.TotalNextTwelve += nextTwelve
	}
	return report
}
