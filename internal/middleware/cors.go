package middleware

import (
	"net/http"

	"github.com/rs/cors"
)

// CORS allows credentialed requests from the configured UI origins. The
// session cookie is useless cross-origin otherwise, so a wildcard origin is
// only accepted without credentials.
func CORS(origins []string) func(http.Handler) http.Handler {
	credentials := true
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	for _, origin := range origins {
		if origin == "*" {
			credentials = false
		}
	}

	handler := cors.New(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID", expiresInHeader, expiringSoonHeader},
		MaxAge:           3600,
		AllowCredentials: credentials,
	})

	return handler.Handler
}
