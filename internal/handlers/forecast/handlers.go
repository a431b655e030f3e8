// Package forecast exposes the regression forecast endpoints.
package forecast

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	apihttp "finboard/internal/http"
	"finboard/internal/models"
	"finboard/internal/services/dashboard"
	forecastsvc "finboard/internal/services/forecast"
)

var (
	holder *dashboard.Holder
	log    zerolog.Logger
)

// Initialize sets up the forecast package with required dependencies
func Initialize(h *dashboard.Holder, l zerolog.Logger) {
	holder = h
	log = l.With().Str("component", "forecast").Logger()
}

// RegisterRoutes registers all forecast routes
func RegisterRoutes(r chi.Router) {
	r.Get("/api/forecast", handleForecast)
	r.Post("/api/forecast/run", handleForecastRun)
}

type forecastResponse struct {
	State      forecastsvc.State      `json:"state"`
	Error      string                 `json:"error,omitempty"`
	Report     *models.ForecastReport `json:"report,omitempty"`
	ComputedAt *time.Time             `json:"computedAt,omitempty"`
}

func handleForecast(w http.ResponseWriter, r *http.Request) {
	user := apihttp.UserFrom(r.Context())
	engine, err := holder.Engine(user.ID)
	if err != nil {
		log.Error().Err(err).Str("user", user.ID).Msg("loading engine")
		apihttp.Error(w, http.StatusInternalServerError, "could not load data")
		return
	}

	state, message := engine.State()
	resp := forecastResponse{State: state, Error: message}
	if result := engine.Result(); result != nil {
		resp.Report = &result.Report
		resp.ComputedAt = &result.ComputedAt
	}
	apihttp.JSON(w, http.StatusOK, resp)
}

func handleForecastRun(w http.ResponseWriter, r *http.Request) {
	user := apihttp.UserFrom(r.Context())
	engine, err := holder.Engine(user.ID)
	if err != nil {
		log.Error().Err(err).Str("user", user.ID).Msg("loading engine")
		apihttp.Error(w, http.StatusInternalServerError, "could not load data")
		return
	}

	result, err := engine.Run()
	switch {
	case errors.Is(err, forecastsvc.ErrComputing):
		apihttp.Error(w, http.StatusConflict, "a forecast run is already in progress")
		return
	case errors.Is(err, forecastsvc.ErrNoData):
		apihttp.Error(w, http.StatusConflict, "no data loaded")
		return
	case err != nil:
		// Failed run: error state is retryable, surface the message.
		log.Warn().Err(err).Str("user", user.ID).Msg("forecast run failed")
		apihttp.JSON(w, http.StatusOK, forecastResponse{State: forecastsvc.StateError, Error: err.Error()})
		return
	}

	apihttp.JSON(w, http.StatusOK, forecastResponse{
		State:      forecastsvc.StateReady,
		Report:     &result.Report,
		ComputedAt: &result.ComputedAt,
	})
}
