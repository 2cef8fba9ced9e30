package api

import (
	"context"
	"net/http"
	"strconv"

	"github.com/sheikh-saqib/marketplace-ledger-system/internal/models"
)

type contextKey string

const profileContextKey contextKey = "profile"

// withProfile resolves the calling profile from the profile_id header and
// injects it into the request context. Requests without a resolvable profile
// are rejected with 401 before any handler logic runs.
func (s *Server) withProfile(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("profile_id")
		if header == "" {
			writeError(w, http.StatusUnauthorized, "unauthenticated", "profile_id header required")
			return
		}

		profileID, err := strconv.ParseInt(header, 10, 64)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "unauthenticated", "invalid profile_id header")
			return
		}

		profile, err := s.store.GetProfile(r.Context(), profileID)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "unauthenticated", "unknown profile")
			return
		}

		ctx := context.WithValue(r.Context(), profileContextKey, profile)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func profileFromContext(ctx context.Context) models.Profile {
	profile, _ := ctx.Value(profileContextKey).(models.Profile)
	return profile
}
