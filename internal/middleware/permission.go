package middleware

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"dejure-gateway/internal/guard"
	"dejure-gateway/internal/model"
	"dejure-gateway/internal/permission"
)

// RequirePermission checks the guarded user against the module named by the
// moduleParam route parameter, deriving the action from the HTTP method. It
// must run behind a Guard handler.
func RequirePermission(moduleParam string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, ok := guard.UserFromContext(r.Context())
			if !ok {
				writeJSONError(w, http.StatusUnauthorized, &model.APIError{
					Code:    "UNAUTHORIZED",
					Message: "authentication required",
				})
				return
			}

			module := chi.URLParam(r, moduleParam)
			action := permission.ActionForMethod(r.Method)
			if !permission.HasPermission(user, module, action) {
				slog.Info("module permission denied",
					"user_id", user.ID,
					"role", user.Role,
					"module", module,
					"action", action,
				)
				writeJSONError(w, http.StatusForbidden, &model.APIError{
					Code:    "FORBIDDEN",
					Message: "insufficient module permissions",
					Details: module + ":" + action,
				})
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
