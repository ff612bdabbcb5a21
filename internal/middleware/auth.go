package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/terralima/portalgo/internal/models"
	"github.com/terralima/portalgo/internal/utils"
)

type contextKey string

const UserContextKey contextKey = "user"

// Auth verifies the session JWT and puts the session user in the request
// context. The secret is injected once at router construction.
func Auth(jwtSecret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				http.Error(w, "Authorization header required", http.StatusUnauthorized)
				return
			}

			// Bearer token
			parts := strings.Split(authHeader, " ")
			if len(parts) != 2 || parts[0] != "Bearer" {
				http.Error(w, "Invalid authorization header format", http.StatusUnauthorized)
				return
			}

			claims, err := utils.ValidateToken(parts[1], jwtSecret)
			if err != nil {
				http.Error(w, "Invalid or expired token", http.StatusUnauthorized)
				return
			}

			user := utils.SessionFromClaims(claims)
			ctx := context.WithValue(r.Context(), UserContextKey, user)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// SessionUser extracts the authenticated user from the request context
func SessionUser(r *http.Request) (models.SessionUser, bool) {
	user, ok := r.Context().Value(UserContextKey).(models.SessionUser)
	return user, ok
}
