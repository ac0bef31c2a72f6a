package middleware

import (
	"fmt"
	"log/slog"
	"net/http"
	"runtime/debug"

	"dejure-gateway/internal/model"
)

func Recovery(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			recovered := recover()
			if recovered == nil {
				return
			}
			// Reverse proxies abort a broken stream this way; nothing to write.
			if recovered == http.ErrAbortHandler {
				panic(recovered)
			}

			slog.Error("panic recovered",
				"path", r.URL.Path,
				"error", fmt.Sprintf("%v", recovered),
				"stack", string(debug.Stack()),
			)
			writeJSONError(w, http.StatusInternalServerError, &model.APIError{
				Code:    "INTERNAL_ERROR",
				Message: "Unexpected server error",
			})
		}()

		next.ServeHTTP(w, r)
	})
}
