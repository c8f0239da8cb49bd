package middleware

import (
	"crypto/subtle"
	"net/http"

	"github.com/gorilla/mux"

	"jamesfarrell.me/youtube-chat/internal/api/handlers"
)

const APIKeyHeader = "X-API-Key"

// APIKey rejects requests whose X-API-Key header does not match key.
// An empty key leaves the routes open.
func APIKey(key string) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		if key == "" {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got := r.Header.Get(APIKeyHeader)
			if got == "" || subtle.ConstantTimeCompare([]byte(got), []byte(key)) != 1 {
				handlers.WriteError(w, http.StatusUnauthorized, "Unauthorized")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
