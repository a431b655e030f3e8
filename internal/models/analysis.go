package models

// PeriodTotals holds the income/spend/net figures for a filtered period.
type PeriodTotals struct {
	Income float64 `json:"income"`
	Spent  float64 `json:"spent"`
	Net    float64 `json:"net"`
}

// HealthLevel classifies the spending-to-income relationship.
type HealthLevel string

const (
	HealthCritical         HealthLevel = "Critical"
	HealthMonitorOverspend HealthLevel = "Monitor-Overspend"
	HealthMonitorNoIncome  HealthLevel = "Monitor-NoIncome"
	HealthHealthy          HealthLevel = "Healthy"
)

// HealthStatus is the period's health classification with the computed
// spent/income percentage for display.
type HealthStatus struct {
	Level        HealthLevel `json:"level"`
	SpentPercent float64     `json:"spentPercent"`
	Message      string      `json:"message"`
}

// CategoryShare is one slice of the category spending breakdown.
type CategoryShare struct {
	Category string  `json:"category"`
	Amount   float64 `json:"amount"`
	Percent  float64 `json:"percent"` // of the included spending total, 1 decimal
}

// TrendPoint is one bar of the spending trend for the selected scope.
type TrendPoint struct {
	Label  string  `json:"label"`
	Amount float64 `json:"amount"`
}

// CategoryTrendSeries is one category's line in the multi-category trend.
type CategoryTrendSeries struct {
	Category string    `json:"category"`
	Amounts  []float64 `json:"amounts"` // one per period, 0 when absent
}

// MultiCategoryTrend is the top-N category spending history across
// periods. HasData is false when fewer than two periods exist; that is
// a defined insufficient-data state, not an error.
type MultiCategoryTrend struct {
	HasData bool                  `json:"hasData"`
	Periods []string              `json:"periods"`
	Series  []CategoryTrendSeries `json:"series"`
}

// ScatterPoint is one expense plotted by day of week and amount.
type ScatterPoint struct {
	DayOfWeek int     `json:"dayOfWeek"` // 0=Sunday .. 6=Saturday
	Amount    float64 `json:"amount"`
}

// ScatterSeries groups a category's scatter points.
type ScatterSeries struct {
	Category string         `json:"category"`
	Points   []ScatterPoint `json:"points"`
}

// WasteEntry is one aggregated discretionary-spending reason.
type WasteEntry struct {
	Reason  string  `json:"reason"`
	Amount  float64 `json:"amount"`
	Percent float64 `json:"percent"` // of the flagged total, 1 decimal
}

// WasteReport is the discretionary-spending analysis for a period.
// An empty Entries slice means nothing was flagged, a valid outcome.
type WasteReport struct {
	Total   float64      `json:"total"`
	Entries []WasteEntry `json:"entries"`
}
