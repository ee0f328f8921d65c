package middleware

import (
	"encoding/json"
	"net/http"
	"strings"

	"querygate/internal/domain"
)

// Auth returns an HTTP middleware that validates a JWT Bearer token,
// resolves the subject against the principal directory and stores the
// full principal on the request context. A token whose subject no longer
// exists in the directory is rejected, so deactivating a principal takes
// effect immediately regardless of token expiry.
func Auth(issuer *TokenIssuer, directory domain.PrincipalDirectory) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			auth := r.Header.Get("Authorization")
			if !strings.HasPrefix(auth, "Bearer ") {
				writeUnauthorized(w, "provide a valid JWT Bearer token")
				return
			}

			sub, err := issuer.Subject(strings.TrimPrefix(auth, "Bearer "))
			if err != nil {
				writeUnauthorized(w, "invalid or expired token")
				return
			}

			principal, err := directory.GetByID(r.Context(), sub)
			if err != nil {
				writeUnauthorized(w, "unknown principal")
				return
			}

			ctx := domain.WithPrincipal(r.Context(), *principal)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func writeUnauthorized(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"code":    http.StatusUnauthorized,
		"message": "unauthorized: " + message,
	})
}
