// Package auth exposes sign-in, sign-out, and profile endpoints.
package auth

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	apihttp "finboard/internal/http"
	"finboard/internal/identity"
)

var (
	users *identity.Manager
	log   zerolog.Logger
)

// Initialize sets up the auth package with required dependencies
func Initialize(m *identity.Manager, l zerolog.Logger) {
	users = m
	log = l.With().Str("component", "auth").Logger()
}

// RegisterRoutes registers all auth routes
func RegisterRoutes(r chi.Router) {
	r.Post("/auth/login", handleLogin)
	r.Post("/auth/logout", handleLogout)
}

// RegisterProtectedRoutes registers the routes that need a session
func RegisterProtectedRoutes(r chi.Router) {
	r.Get("/auth/profile", handleProfile)
}

type loginRequest struct {
	Name  string `json:"name"`
	Phone string `json:"phone"`
	Bank  string `json:"bank"`
	PIN   string `json:"pin"`
}

type profileResponse struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Phone string `json:"phone"`
	Bank  string `json:"bank"`
}

func handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apihttp.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	profile, err := users.SignIn(w, r, req.Name, req.Phone, req.Bank, req.PIN)
	if errors.Is(err, identity.ErrWrongPIN) {
		log.Warn().Str("phone", req.Phone).Msg("sign-in rejected")
		apihttp.Error(w, http.StatusUnauthorized, "incorrect PIN")
		return
	}
	if err != nil {
		apihttp.Error(w, http.StatusBadRequest, err.Error())
		return
	}

	log.Info().Str("user", profile.ID).Msg("signed in")
	apihttp.JSON(w, http.StatusOK, profileResponse{
		ID:    profile.ID,
		Name:  profile.Name,
		Phone: profile.Phone,
		Bank:  profile.Bank,
	})
}

func handleLogout(w http.ResponseWriter, r *http.Request) {
	if err := users.SignOut(w, r); err != nil {
		apihttp.Error(w, http.StatusInternalServerError, "sign-out failed")
		return
	}
	apihttp.JSON(w, http.StatusOK, map[string]string{"status": "signed out"})
}

func handleProfile(w http.ResponseWriter, r *http.Request) {
	profile := apihttp.UserFrom(r.Context())
	apihttp.JSON(w, http.StatusOK, profileResponse{
		ID:    profile.ID,
		Name:  profile.Name,
		Phone: profile.Phone,
		Bank:  profile.Bank,
	})
}
