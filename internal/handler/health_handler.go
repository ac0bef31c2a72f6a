package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"dejure-gateway/pkg/apierror"
)

type HealthCheck func(ctx context.Context) error

// HealthHandler reports liveness plus the session backend's reachability.
type HealthHandler struct {
	store string
	check HealthCheck
}

func NewHealthHandler(store string, check HealthCheck) *HealthHandler {
	return &HealthHandler{store: store, check: check}
}

func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	status := map[string]any{"status": "ok", "sessionStore": h.store}

	if h.check != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := h.check(ctx); err != nil {
			slog.Warn("session store health check failed", "store", h.store, "error", err)
			writeError(w, apierror.New(apierror.CodeSessionUnavailable, "session store unreachable", h.store, http.StatusServiceUnavailable))
			return
		}
	}

	writeSuccess(w, http.StatusOK, status)
}
