// Package http holds response helpers and request plumbing shared by
// every handler package.
package http

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"finboard/internal/identity"
	"finboard/internal/services/period"
)

type userContextKey struct{}

// JSON writes a JSON response with the given status. An encode failure
// after the header is written cannot be reported to the client.
func JSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(payload)
}

// Error writes a JSON error body with the given status.
func Error(w http.ResponseWriter, status int, message string) {
	JSON(w, status, map[string]string{"error": message})
}

// RequireUser resolves the session to a profile and stores it on the
// request context, rejecting unauthenticated requests with 401.
func RequireUser(users *identity.Manager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			profile, err := users.CurrentUser(r)
			if err != nil {
				Error(w, http.StatusUnauthorized, "sign in required")
				return
			}
			ctx := context.WithValue(r.Context(), userContextKey{}, profile)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// UserFrom returns the profile RequireUser attached to the context.
// The zero profile means the middleware did not run.
func UserFrom(ctx context.Context) identity.Profile {
	profile, _ := ctx.Value(userContextKey{}).(identity.Profile)
	return profile
}

// PeriodQuery is the parsed scope/year/month/week query parameters of
// the analysis endpoints.
type PeriodQuery struct {
	Scope    period.Scope
	Selector period.Selector
}

// ParsePeriodQuery reads the period parameters of a request. Year is
// required for any explicit query; omitted parameters are zero and the
// handler applies its default period.
func ParsePeriodQuery(r *http.Request, defaultScope period.Scope) (PeriodQuery, bool) {
	q := r.URL.Query()

	scope := defaultScope
	if raw := q.Get("scope"); raw != "" {
		parsed, err := period.ParseScope(raw)
		if err != nil {
			return PeriodQuery{}, false
		}
		scope = parsed
	}

	var selector period.Selector
	for _, p := range []struct {
		name string
		dst  *int
	}{
		{"year", &selector.Year},
		{"month", &selector.Month},
		{"week", &selector.Week},
	} {
		raw := q.Get(p.name)
		if raw == "" {
			continue
		}
		value, err := strconv.Atoi(raw)
		if err != nil || value < 0 {
			return PeriodQuery{}, false
		}
		*p.dst = value
	}
	if selector.Month < 0 || selector.Month > 12 {
		return PeriodQuery{}, false
	}
	return PeriodQuery{Scope: scope, Selector: selector}, true
}
