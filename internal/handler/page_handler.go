package handler

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httputil"
	"net/url"
	"strings"

	"dejure-gateway/internal/guard"
	"dejure-gateway/internal/model"
)

const (
	userIDHeader   = "X-Academy-User-Id"
	userRoleHeader = "X-Academy-User-Role"
)

// PageHandler renders guarded page areas by proxying to the UI origin. The
// guarded user is passed along as headers; the gateway cookie is not.
type PageHandler struct {
	proxy *httputil.ReverseProxy
}

func NewPageHandler(origin string, cookieName string) (*PageHandler, error) {
	target, err := url.Parse(strings.TrimSpace(origin))
	if err != nil {
		return nil, fmt.Errorf("parse UI origin: %w", err)
	}
	if target.Scheme == "" || target.Host == "" {
		return nil, fmt.Errorf("UI origin %q must be absolute", origin)
	}

	proxy := &httputil.ReverseProxy{
		Rewrite: func(pr *httputil.ProxyRequest) {
			pr.SetURL(target)
			pr.SetXForwarded()
			pr.Out.Header.Del(userIDHeader)
			pr.Out.Header.Del(userRoleHeader)
			stripCookie(pr.Out, cookieName)

			if user, ok := guard.UserFromContext(pr.In.Context()); ok {
				pr.Out.Header.Set(userIDHeader, user.ID)
				pr.Out.Header.Set(userRoleHeader, string(user.Role))
			}
		},
		ErrorHandler: func(w http.ResponseWriter, r *http.Request, err error) {
			slog.Error("page proxy failed", "path", r.URL.Path, "error", err)
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusBadGateway)
			_ = json.NewEncoder(w).Encode(model.APIResponse{
				Success: false,
				Error: &model.APIError{
					Code:    "UI_UNAVAILABLE",
					Message: "page origin unreachable",
				},
			})
		},
	}

	return &PageHandler{proxy: proxy}, nil
}

func (h *PageHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.proxy.ServeHTTP(w, r)
}

func stripCookie(r *http.Request, name string) {
	cookies := r.Cookies()
	r.Header.Del("Cookie")
	for _, c := range cookies {
		if c.Name != name {
			r.AddCookie(c)
		}
	}
}
