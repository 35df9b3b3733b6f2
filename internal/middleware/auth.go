package middleware

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/dukerupert/eventsphere/internal/auth"
	"github.com/dukerupert/eventsphere/internal/model"
	"github.com/dukerupert/eventsphere/internal/store"
)

// RequireAuth validates the bearer token, loads the user it names, and
// populates AuthContext. The user is re-read on every request so role
// changes, blocks and deletions take effect before the token expires.
func RequireAuth(tokens *auth.TokenIssuer, users *store.UserStore) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := bearerToken(r)
			if raw == "" {
				writeError(w, http.StatusUnauthorized, "No token provided")
				return
			}

			claims, err := tokens.Parse(raw)
			if err != nil {
				writeError(w, http.StatusUnauthorized, "Invalid token")
				return
			}

			user, err := users.GetByID(claims.UserID)
			if err != nil {
				writeError(w, http.StatusInternalServerError, "Server error")
				return
			}
			if user == nil {
				writeError(w, http.StatusUnauthorized, "User not found")
				return
			}
			if user.Blocked {
				writeError(w, http.StatusForbidden, "Account is blocked")
				return
			}

			ac := auth.AuthContext{
				UserID: user.ID,
				Name:   user.Name,
				Email:  user.Email,
				Role:   user.Role,
			}

			ctx := auth.WithAuth(r.Context(), ac)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireRoles rejects authenticated users that hold none of the given roles.
func RequireRoles(roles ...model.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !auth.HasRole(r.Context(), roles...) {
				writeError(w, http.StatusForbidden, "Access denied")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireAdmin checks that the authenticated user has the admin role.
func RequireAdmin(next http.Handler) http.Handler {
	return RequireRoles(model.RoleAdmin)(next)
}

// bearerToken reads the Authorization header. Browsers cannot set headers on
// websocket upgrades, so those may pass the token as a query parameter instead.
func bearerToken(r *http.Request) string {
	if h := r.Header.Get("Authorization"); h != "" {
		scheme, token, ok := strings.Cut(h, " ")
		if ok && strings.EqualFold(scheme, "Bearer") {
			return strings.TrimSpace(token)
		}
		return ""
	}
	if strings.EqualFold(r.Header.Get("Upgrade"), "websocket") {
		return r.URL.Query().Get("token")
	}
	return ""
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"message": msg})
}
