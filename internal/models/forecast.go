package models

// SeriesPoint is one month of a category's spending history. Sequence
// is the dense 1-based chronological rank assigned across the union of
// all months present in any category's data, so a month a category
// skipped still consumes a sequence number.
type SeriesPoint struct {
	Sequence int     `json:"sequence"`
	Year     int     `json:"year"`
	Month    int     `json:"month"`
	Amount   float64 `json:"amount"`
}

// CategorySeries is one category's ordered monthly spending history.
type CategorySeries struct {
	Category string        `json:"category"`
	Points   []SeriesPoint `json:"points"`
}

// RegressionFit holds the ordinary-least-squares fit for one category.
type RegressionFit struct {
	Slope     float64 `json:"slope"`
	Intercept float64 `json:"intercept"`
	MSE       float64 `json:"mse"`
}

// CategoryForecast is one row of the forecast table.
type CategoryForecast struct {
	Category   string  `json:"category"`
	NextMonth  float64 `json:"nextMonth"`
	NextTwelve float64 `json:"nextTwelve"`
	MSE        float64 `json:"mse"`
}

// ForecastReport is the full forecast: one row per eligible category
// plus grand totals across categories.
type ForecastReport struct {
	Rows            []CategoryForecast `json:"rows"`
	TotalNextMonth  float64            `json:"totalNextMonth"`
	TotalNextTwelve float64            `json:"totalNextTwelve"`
}
