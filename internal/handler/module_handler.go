package handler

import (
	"net/http"

	"dejure-gateway/internal/backend"
	"dejure-gateway/internal/guard"
	"dejure-gateway/internal/model"
)

// ModuleHandler forwards admin module API calls to the backend once the admin
// guard and the module permission check have passed.
type ModuleHandler struct {
	proxy http.Handler
}

func NewModuleHandler(proxy http.Handler) *ModuleHandler {
	return &ModuleHandler{proxy: proxy}
}

func (h *ModuleHandler) Forward(w http.ResponseWriter, r *http.Request) {
	sess, ok := guard.SessionFromContext(r.Context())
	if !ok || sess.Token == "" {
		writeError(w, model.ErrUnauthorized)
		return
	}

	h.proxy.ServeHTTP(w, r.WithContext(backend.WithToken(r.Context(), sess.Token)))
}
