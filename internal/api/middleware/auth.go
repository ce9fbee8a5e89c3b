package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/hdu-dev/wordvault/internal/api/shared"
)

// AuthMiddleware guards routes with a static bearer token. Credential
// issuance and session management happen outside this service; callers
// are expected to arrive with a valid token, and a missing one is a
// precondition failure, never retried.
type AuthMiddleware struct {
	apiToken string
}

// NewAuthMiddleware creates a new AuthMiddleware with the given token.
func NewAuthMiddleware(apiToken string) *AuthMiddleware {
	return &AuthMiddleware{apiToken: apiToken}
}

// Authenticate validates the Authorization header on each request.
func (m *AuthMiddleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			shared.RespondWithError(w, r, http.StatusUnauthorized, "Authorization header required")
			return
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			shared.RespondWithError(w, r, http.StatusUnauthorized, "Invalid authorization format")
			return
		}

		if subtle.ConstantTimeCompare([]byte(parts[1]), []byte(m.apiToken)) != 1 {
			shared.RespondWithError(w, r, http.StatusUnauthorized, "Invalid token")
			return
		}

		next.ServeHTTP(w, r)
	})
}
