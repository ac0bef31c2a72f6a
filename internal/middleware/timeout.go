package middleware

import (
	"encoding/json"
	"net/http"
	"time"

	"dejure-gateway/internal/model"
)

const defaultRequestTimeout = 30 * time.Second

// Timeout bounds buffered JSON handlers and answers 503 with the usual error
// envelope once the budget is spent. Proxied and websocket routes use
// ProxyTimeout: http.TimeoutHandler can neither flush nor hijack.
func Timeout(budget time.Duration) func(http.Handler) http.Handler {
	if budget <= 0 {
		budget = defaultRequestTimeout
	}

	body, _ := json.Marshal(model.APIResponse{
		Success: false,
		Error: &model.APIError{
			Code:    "REQUEST_TIMEOUT",
			Message: "request timed out",
			Details: budget.String(),
		},
	})

	return func(next http.Handler) http.Handler {
		bounded := http.TimeoutHandler(next, budget, string(body))

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// Handlers that set their own Content-Type override this one.
			w.Header().Set("Content-Type", "application/json")
			bounded.ServeHTTP(w, r)
		})
	}
}
