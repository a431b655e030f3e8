// Command server runs the personal finance dashboard API.
package main

import (
	"fmt"
	"net/http"
	"os"
	"syscall"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	"golang.org/x/term"

	"finboard/internal/config"
	"finboard/internal/handlers/analysis"
	"finboard/internal/handlers/auth"
	"finboard/internal/handlers/forecast"
	"finboard/internal/handlers/summary"
	"finboard/internal/handlers/upload"
	apihttp "finboard/internal/http"
	"finboard/internal/identity"
	"finboard/internal/logger"
	"finboard/internal/services/dashboard"
	"finboard/internal/services/storage"
	"finboard/internal/services/store"
	"finboard/internal/services/waste"
	"finboard/internal/version"
)

func main() {
	cfg := config.Load()
	log := logger.New(cfg.LogLevel)
	log.Info().Str("version", version.Get().String()).Str("addr", cfg.ListenAddr).Msg("starting finboard")

	files, err := storage.New(cfg.DataDirectory)
	if err != nil {
		log.Fatal().Err(err).Msg("opening storage")
	}
	if files.IsEncrypted() {
		if err := unlockStorage(files); err != nil {
			log.Fatal().Err(err).Msg("unlocking storage")
		}
		log.Info().Msg("storage unlocked")
	}

	users, err := identity.NewManager(files, cfg.SessionKey, cfg.SessionMaxAge)
	if err != nil {
		log.Fatal().Err(err).Msg("loading profiles")
	}

	records := store.New(files)
	holder := dashboard.New(records, log)
	defer holder.Close()

	router := buildRouter(cfg, log, users, records, holder)

	log.Info().Str("addr", cfg.ListenAddr).Msg("listening")
	if err := http.ListenAndServe(cfg.ListenAddr, router); err != nil {
		log.Fatal().Err(err).Msg("server stopped")
	}
}

// unlockStorage takes the passphrase from the environment or, when
// attached to a terminal, prompts for it without echo.
func unlockStorage(files *storage.Storage) error {
	if passphrase := os.Getenv("FINBOARD_PASSPHRASE"); passphrase != "" {
		return files.Unlock(passphrase)
	}
	if !term.IsTerminal(int(syscall.Stdin)) {
		return fmt.Errorf("storage is encrypted; set FINBOARD_PASSPHRASE or run interactively")
	}
	fmt.Fprint(os.Stderr, "Data passphrase: ")
	passphrase, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return fmt.Errorf("reading passphrase: %w", err)
	}
	return files.Unlock(string(passphrase))
}

// buildRouter wires every handler package onto a chi router.
func buildRouter(cfg *config.Config, log zerolog.Logger, users *identity.Manager, records *store.Store, holder *dashboard.Holder) chi.Router {
	auth.Initialize(users, log)
	upload.Initialize(records, cfg.MaxUploadBytes)
	summary.Initialize(holder, waste.New(waste.DefaultConfig()), log)
	analysis.Initialize(holder, log)
	forecast.Initialize(holder, log)

	r := chi.NewRouter()
	r.Use(apihttp.RequestLogger(log))
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))

	r.Get("/api/health", handleHealth)
	auth.RegisterRoutes(r)

	r.Group(func(r chi.Router) {
		r.Use(apihttp.RequireUser(users))
		auth.RegisterProtectedRoutes(r)
		upload.RegisterRoutes(r)
		summary.RegisterRoutes(r)
		analysis.RegisterRoutes(r)
		forecast.RegisterRoutes(r)
	})

	return r
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	apihttp.JSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"version": version.Get().Version,
	})
}
