// Package upload receives transaction CSVs and replaces the user's
// data set with their contents.
package upload

import (
	"errors"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"

	apihttp "finboard/internal/http"
	"finboard/internal/logger"
	"finboard/internal/services/ingest"
	"finboard/internal/services/storage"
	"finboard/internal/services/store"
)

var (
	records        *store.Store
	maxUploadBytes int64
)

// Initialize sets up the upload package with required dependencies
func Initialize(s *store.Store, maxBytes int64) {
	records = s
	maxUploadBytes = maxBytes
}

// RegisterRoutes registers all upload routes
func RegisterRoutes(r chi.Router) {
	r.Post("/upload", handleUpload)
}

type uploadResponse struct {
	Rows     int    `json:"rows"`
	Total    string `json:"total"`
	Replaced bool   `json:"replaced"`
}

func handleUpload(w http.ResponseWriter, r *http.Request) {
	user := apihttp.UserFrom(r.Context())
	log := logger.FromContext(r.Context()).With().Str("component", "upload").Logger()

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	file, header, err := r.FormFile("file")
	if err != nil {
		apihttp.Error(w, http.StatusBadRequest, "missing file field")
		return
	}
	defer file.Close()

	if !strings.EqualFold(filepath.Ext(header.Filename), ".csv") {
		apihttp.Error(w, http.StatusUnprocessableEntity, "only .csv files are accepted")
		return
	}

	rows, summary, err := ingest.Decode(file)
	var headerErr *ingest.MissingHeaderError
	switch {
	case errors.As(err, &headerErr):
		apihttp.Error(w, http.StatusUnprocessableEntity, headerErr.Error())
		return
	case errors.Is(err, ingest.ErrEmptyFile):
		apihttp.Error(w, http.StatusUnprocessableEntity, "empty file")
		return
	case err != nil:
		apihttp.Error(w, http.StatusBadRequest, "unreadable CSV: "+err.Error())
		return
	}

	if err := records.ReplaceAll(user.ID, rows); err != nil {
		if errors.Is(err, storage.ErrLocked) {
			apihttp.Error(w, http.StatusServiceUnavailable, "storage is locked")
			return
		}
		log.Error().Err(err).Str("user", user.ID).Msg("persisting upload")
		apihttp.Error(w, http.StatusInternalServerError, "could not save upload")
		return
	}

	log.Info().Str("user", user.ID).Int("rows", summary.Rows).Msg("upload accepted")
	apihttp.JSON(w, http.StatusOK, uploadResponse{
		Rows:     summary.Rows,
		Total:    summary.GrossAmount.StringFixed(2),
		Replaced: true,
	})
}
