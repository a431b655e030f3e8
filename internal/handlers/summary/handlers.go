// Package summary exposes the period list and the period summary
// endpoints backing the dashboard's headline view.
package summary

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	apihttp "finboard/internal/http"
	"finboard/internal/models"
	"finboard/internal/services/aggregate"
	"finboard/internal/services/dashboard"
	"finboard/internal/services/period"
	"finboard/internal/services/waste"
)

// trendCategories is how many top spending categories the category
// trend carries.
const trendCategories = 5

var (
	holder     *dashboard.Holder
	classifier *waste.Classifier
	log        zerolog.Logger
)

// Initialize sets up the summary package with required dependencies
func Initialize(h *dashboard.Holder, c *waste.Classifier, l zerolog.Logger) {
	holder = h
	classifier = c
	log = l.With().Str("component", "summary").Logger()
}

// RegisterRoutes registers all summary routes
func RegisterRoutes(r chi.Router) {
	r.Get("/api/periods", handlePeriods)
	r.Get("/api/summary", handleSummary)
}

type periodsResponse struct {
	Years        []int `json:"years"`
	DefaultYear  int   `json:"defaultYear"`
	DefaultMonth int   `json:"defaultMonth"`
	HasData      bool  `json:"hasData"`
}

func handlePeriods(w http.ResponseWriter, r *http.Request) {
	user := apihttp.UserFrom(r.Context())
	snapshot, err := holder.Snapshot(user.ID)
	if err != nil {
		log.Error().Err(err).Str("user", user.ID).Msg("loading snapshot")
		apihttp.Error(w, http.StatusInternalServerError, "could not load data")
		return
	}

	resp := periodsResponse{Years: period.AvailableYears(snapshot.Set)}
	if resp.Years == nil {
		resp.Years = []int{}
	}
	if year, month, ok := period.DefaultPeriod(snapshot.Set); ok {
		resp.DefaultYear = year
		resp.DefaultMonth = month
		resp.HasData = true
	}
	apihttp.JSON(w, http.StatusOK, resp)
}

type summaryResponse struct {
	Scope         period.Scope              `json:"scope"`
	Year          int                       `json:"year"`
	Month         int                       `json:"month,omitempty"`
	PeriodLabel   string                    `json:"periodLabel"`
	Totals        models.PeriodTotals       `json:"totals"`
	Health        models.HealthStatus       `json:"health"`
	Waste         models.WasteReport        `json:"waste"`
	CategoryTrend models.MultiCategoryTrend `json:"categoryTrend"`
}

func handleSummary(w http.ResponseWriter, r *http.Request) {
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

	// No explicit year: fall back to the default period. A user with
	// no dated data at all gets the empty summary, not an error.
	if query.Selector.Year == 0 {
		year, month, ok := period.DefaultPeriod(set)
		if !ok {
			apihttp.JSON(w, http.StatusOK, summaryResponse{
				Scope:         query.Scope,
				PeriodLabel:   "No data",
				Health:        aggregate.Health(models.PeriodTotals{}),
				Waste:         classifier.Classify(models.NewTransactionSet(nil)),
				CategoryTrend: aggregate.MultiCategoryTrend(set, query.Scope, trendCategories),
			})
			return
		}
		query.Selector.Year = year
		query.Selector.Month = month
	}
	if query.Scope != period.ScopeYearly && query.Selector.Month == 0 {
		apihttp.Error(w, http.StatusBadRequest, "month is required for monthly scope")
		return
	}

	filtered := period.Filter(set, query.Scope, query.Selector)
	totals := aggregate.Totals(filtered)

	resp := summaryResponse{
		Scope:       query.Scope,
		Year:        query.Selector.Year,
		Month:       query.Selector.Month,
		PeriodLabel: periodLabel(query.Scope, query.Selector),
		Totals:      totals,
		Health:      aggregate.Health(totals),
		Waste:       classifier.Classify(filtered),
		// The category trend always spans the full history so the
		// period picker does not collapse it to one point.
		CategoryTrend: aggregate.MultiCategoryTrend(set, query.Scope, trendCategories),
	}
	apihttp.JSON(w, http.StatusOK, resp)
}

func periodLabel(scope period.Scope, sel period.Selector) string {
	if sel.Year == 0 {
		return "No data"
	}
	if scope == period.ScopeYearly {
		return time.Date(sel.Year, 1, 1, 0, 0, 0, 0, time.UTC).Format("2006")
	}
	return time.Date(sel.Year, time.Month(sel.Month), 1, 0, 0, 0, 0, time.UTC).Format("January 2006")
}
