package middleware

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/dukerupert/pawboard/internal/auth"
	"github.com/dukerupert/pawboard/internal/model"
)

// TokenLookup resolves a bearer token to its user, returning (nil, nil)
// for unknown tokens.
type TokenLookup interface {
	GetUserByToken(token string) (*model.User, error)
}

// BearerToken extracts the token from "Authorization: Bearer <token>",
// falling back to the token query parameter.
func BearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if len(h) > 7 && strings.EqualFold(h[:7], "bearer ") {
		return strings.TrimSpace(h[7:])
	}
	return r.URL.Query().Get("token")
}

// RequireAuth resolves the bearer token and populates AuthContext.
func RequireAuth(users TokenLookup, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := BearerToken(r)
			if token == "" {
				writeError(w, http.StatusUnauthorized, "unauthorized")
				return
			}

			u, err := users.GetUserByToken(token)
			if err != nil {
				logger.Error("lookup token", "error", err)
				writeError(w, http.StatusInternalServerError, "internal error")
				return
			}
			if u == nil {
				writeError(w, http.StatusUnauthorized, "invalid token")
				return
			}

			ctx := auth.WithAuth(r.Context(), auth.FromUser(u))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireAdmin checks that the authenticated user is a household admin.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !auth.IsAdmin(r.Context()) {
			writeError(w, http.StatusForbidden, "admin only")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
