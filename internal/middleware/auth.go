package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"
)

// TokenAuth guards the API with the add-on's pre-shared token. The
// token arrives either as a bearer header or as the legacy
// X-Flatmate-Token header the HA integration sends.
func TokenAuth(apiToken string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := r.Header.Get("X-Flatmate-Token")
			if token == "" {
				authHeader := r.Header.Get("Authorization")
				token = strings.TrimPrefix(authHeader, "Bearer ")
			}
			if token == "" || subtle.ConstantTimeCompare([]byte(token), []byte(apiToken)) != 1 {
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
