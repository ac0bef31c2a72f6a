package middleware

import (
	"log/slog"
	"net/http"
	"strings"
	"unicode"

	"dejure-gateway/internal/model"
)

// RejectTraversal refuses request paths carrying "." or ".." segments or
// control characters. Guards and permission checks match on the raw path
// while proxies forward it, so both must see the same canonical path.
func RejectTraversal(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hasDotSegment(r.URL.Path) {
			slog.Warn("path traversal rejected", "path", r.URL.Path, "request_id", RequestIDFromContext(r.Context()))
			writeJSONError(w, http.StatusBadRequest, &model.APIError{
				Code:    "PATH_TRAVERSAL",
				Message: "path traversal attempt detected",
			})
			return
		}

		if strings.IndexFunc(r.URL.Path, unicode.IsControl) >= 0 {
			writeJSONError(w, http.StatusBadRequest, &model.APIError{
				Code:    "INVALID_PATH",
				Message: "path contains invalid characters",
			})
			return
		}

		next.ServeHTTP(w, r)
	})
}

// hasDotSegment reports whether p has a "." or ".." segment. Backslashes
// count as separators.
func hasDotSegment(p string) bool {
	for _, segment := range strings.Split(strings.ReplaceAll(p, `\`, "/"), "/") {
		if segment == "." || segment == ".." {
			return true
		}
	}

	return false
}
