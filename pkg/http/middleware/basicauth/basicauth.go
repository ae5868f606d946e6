package basicauth

import (
	"encoding/json"
	"net/http"
)

type authorizer interface {
	Authorize(header string) bool
	Challenge() string
}

// NewBasicAuthMiddleware rejects requests whose Authorization header does not satisfy auth.
func NewBasicAuthMiddleware(auth authorizer) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !auth.Authorize(r.Header.Get("Authorization")) {
				w.Header().Set("WWW-Authenticate", auth.Challenge())
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusUnauthorized)
				_ = json.NewEncoder(w).Encode(map[string]string{"error": "Authentication required"})

				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
