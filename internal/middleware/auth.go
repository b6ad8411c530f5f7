package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/gorilla/sessions"

	"github.com/authcode/authcode-go/internal/crypto"
)

type contextKey string

const (
	userIDKey contextKey = "userID"

	// SessionName is the cookie holding the login session.
	SessionName = "auth"
	// SessionUserKey is the session value holding the user ID.
	SessionUserKey = "user_id"
)

// RequireUser returns middleware that authenticates a request from the login
// session or, failing that, a Bearer token in the Authorization header.
func RequireUser(store sessions.Store, secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if id, ok := sessionUserID(store, r); ok {
				next.ServeHTTP(w, withUserID(r, id))
				return
			}

			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				writeJSONError(w, http.StatusUnauthorized, "unauthorized")
				return
			}

			token, found := strings.CutPrefix(authHeader, "Bearer ")
			if !found || token == "" {
				writeJSONError(w, http.StatusUnauthorized, "invalid authorization format")
				return
			}

			claims, err := crypto.ValidateToken(token, secret)
			if err != nil {
				writeJSONError(w, http.StatusUnauthorized, "invalid or expired token")
				return
			}

			next.ServeHTTP(w, withUserID(r, claims.UserID))
		})
	}
}

// UserIDFromContext extracts the authenticated user ID from the request context.
func UserIDFromContext(ctx context.Context) (int64, bool) {
	id, ok := ctx.Value(userIDKey).(int64)
	return id, ok
}

func sessionUserID(store sessions.Store, r *http.Request) (int64, bool) {
	if store == nil {
		return 0, false
	}
	session, err := store.Get(r, SessionName)
	if err != nil {
		return 0, false
	}
	id, ok := session.Values[SessionUserKey].(int64)
	return id, ok && id > 0
}

func withUserID(r *http.Request, id int64) *http.Request {
	return r.WithContext(context.WithValue(r.Context(), userIDKey, id))
}

func writeJSONError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]any{"ok": false, "error": msg})
}
