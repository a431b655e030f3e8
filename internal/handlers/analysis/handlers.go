// Package analysis exposes the drill-down endpoint: the filtered
// transaction table plus the charts derived from it.
package analysis

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	apihttp "finboard/internal/http"
	"finboard/internal/models"
	"finboard/internal/services/aggregate"
	"finboard/internal/services/dashboard"
	"finboard/internal/services/period"
)

// scatterCategories is how many top spending categories the
// day-of-week scatter carries.
const scatterCategories = 8

var (
	holder *dashboard.Holder
	log    zerolog.Logger
)

// Initialize sets up the analysis package with required dependencies
func Initialize(h *dashboard.Holder, l zerolog.Logger) {
	holder = h
	log = l.With().Str("component", "analysis").Logger()
}

// RegisterRoutes registers all analysis routes
func RegisterRoutes(r chi.Router) {
	r.Get("/api/analysis", handleAnalysis)
}

type transactionRow struct {
	Date        string  `json:"date"`
	Category    string  `json:"category"`
	Description string  `json:"description"`
	Amount      float64 `json:"amount"`
}

type analysisResponse struct {
	Scope        period.Scope           `json:"scope"`
	Year         int                    `json:"year"`
	Month        int                    `json:"month,omitempty"`
	Week         int                    `json:"week,omitempty"`
	Transactions []transactionRow       `json:"transactions"`
	Totals       models.PeriodTotals    `json:"totals"`
	Breakdown    []models.CategoryShare `json:"breakdown"`
	Trend        []models.TrendPoint    `json:"trend"`
	Scatter      []models.ScatterSeries `json:"scatter"`
}

func handleAnalysis(w http.ResponseWriter, r *http.Request) {
	user := apihttp.UserFrom(r.Context())
	query, ok := apihttp.ParsePeriodQuery(r, period.ScopeMonthly)
	if !ok {
		apihttp.Error(w, http.StatusBadRequest, "invalid period parameters")
		return
	}

	snapshot, err := holder.Snapshot(user.ID)
	if err != nil {
		log.Error().Err(err).Str("user", user.ID).Msg("loading snapshot")
		apihttp.Error(w, http.StatusInternalServerError, "could not load data")
		return
	}
	set := snapshot.Set

	if query.Selector.Year == 0 {
		if year, month, ok := period.DefaultPeriod(set); ok {
			query.Selector.Year = year
			query.Selector.Month = month
		}
	}
	switch query.Scope {
	case period.ScopeWeekly:
		if query.Selector.Week < 1 || query.Selector.Week > 5 {
			apihttp.Error(w, http.StatusBadRequest, "week must be 1-5 for weekly scope")
			return
		}
		fallthrough
	case period.ScopeMonthly:
		if query.Selector.Year != 0 && query.Selector.Month == 0 {
			apihttp.Error(w, http.StatusBadRequest, "month is required for this scope")
			return
		}
	}

	filtered := period.Filter(set, query.Scope, query.Selector).SortByDateDesc()

	rows := make([]transactionRow, 0, filtered.Len())
	for _, t := range filtered.Transactions {
		rows = append(rows, transactionRow{
			Date:        t.DateKey,
			Category:    t.Category,
			Description: t.Description,
			Amount:      t.Amount,
		})
	}

	resp := analysisResponse{
		Scope:        query.Scope,
		Year:         query.Selector.Year,
		Month:        query.Selector.Month,
		Week:         query.Selector.Week,
		Transactions: rows,
		Totals:       aggregate.Totals(filtered),
		Breakdown:    aggregate.CategoryBreakdown(filtered),
		Trend:        aggregate.TrendSeries(filtered, period.GroupingKey(query.Scope), query.Scope),
		Scatter:      aggregate.ScatterByDayOfWeek(filtered, scatterCategories),
	}
	if resp.Breakdown == nil {
		resp.Breakdown = []models.CategoryShare{}
	}
	if resp.Trend == nil {
		resp.Trend = []models.TrendPoint{}
	}
	if resp.Scatter == nil {
		resp.Scatter = []models.ScatterSeries{}
	}
	apihttp.JSON(w, http.StatusOK, resp)
}
