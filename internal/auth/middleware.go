package auth

import (
	"context"
	"net/http"
	"strings"
)

// contextKey is unexported so only this package can read or write values
// it stores in a request context.
type contextKey string

const userIDKey contextKey = "userID"

// CookieName is the HttpOnly cookie carrying the browser JWT.
const CookieName = "token"

// APITokenVerifier checks an API-token credential and returns the owning
// user ID. Implemented by the auth service; an interface here keeps the
// middleware free of a service-package dependency.
type APITokenVerifier interface {
	VerifyAPIToken(ctx context.Context, credential string) (string, error)
}

// RequireAuth enforces authentication on protected routes.
//
// Two credential forms are accepted:
//   - Authorization: Bearer ci_<id>.<secret> — an API token (agent callers)
//   - Authorization: Bearer <jwt>, or the "token" cookie — a browser JWT
//
// On success the user ID is stored in the request context; otherwise the
// chain stops with 401.
func RequireAuth(tokens *TokenService, apiTokens APITokenVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID, ok := authenticate(r, tokens, apiTokens)
			if !ok {
				http.Error(w, "authentication required", http.StatusUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), userIDKey, userID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func authenticate(r *http.Request, tokens *TokenService, apiTokens APITokenVerifier) (string, bool) {
	// Bearer credentials first: agents do not hold cookies.
	if header := r.Header.Get("Authorization"); strings.HasPrefix(header, "Bearer ") {
		credential := strings.TrimPrefix(header, "Bearer ")

		if strings.HasPrefix(credential, APITokenPrefix) {
			if apiTokens == nil {
				return "", false
			}
			userID, err := apiTokens.VerifyAPIToken(r.Context(), credential)
			if err != nil {
				return "", false
			}
			return userID, true
		}

		userID, err := tokens.Validate(credential)
		if err != nil {
			return "", false
		}
		return userID, true
	}

	cookie, err := r.Cookie(CookieName)
	if err != nil {
		return "", false
	}
	userID, err := tokens.Validate(cookie.Value)
	if err != nil {
		return "", false
	}
	return userID, true
}

// UserID extracts the authenticated user's ID from the request context.
// Returns "" if the request did not pass through RequireAuth.
func UserID(ctx context.Context) string {
	id, _ := ctx.Value(userIDKey).(string)
	return id
}
