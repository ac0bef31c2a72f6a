package backend

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httputil"
	"strings"

	"dejure-gateway/internal/model"
)

type tokenContextKey struct{}

// WithToken attaches the bearer token the module proxy forwards upstream.
func WithToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, tokenContextKey{}, token)
}

func tokenFromContext(ctx context.Context) string {
	token, _ := ctx.Value(tokenContextKey{}).(string)
	return token
}

// ModuleProxy forwards {prefix}/{module}/... to /api/v1/admin/{module}/...
// on the backend with the session's bearer token instead of the gateway cookie.
// Paths with dot segments are refused: the permission check only saw the
// first segment.
func (c *Client) ModuleProxy(prefix string) http.Handler {
	prefix = strings.TrimRight(prefix, "/") + "/"

	proxy := &httputil.ReverseProxy{
		Rewrite: func(pr *httputil.ProxyRequest) {
			rest := strings.TrimPrefix(pr.In.URL.Path, prefix)

			pr.Out.URL.Scheme = c.baseURL.Scheme
			pr.Out.URL.Host = c.baseURL.Host
			pr.Out.URL.Path = strings.TrimRight(c.baseURL.Path, "/") + "/api/v1/admin/" + rest
			pr.Out.URL.RawPath = ""
			pr.Out.Host = c.baseURL.Host

			pr.Out.Header.Del("Cookie")
			if token := tokenFromContext(pr.In.Context()); token != "" {
				pr.Out.Header.Set("Authorization", "Bearer "+token)
			} else {
				pr.Out.Header.Del("Authorization")
			}
			pr.SetXForwarded()
		},
		ErrorHandler: func(w http.ResponseWriter, r *http.Request, err error) {
			slog.Error("module proxy failed", "path", r.URL.Path, "error", err)
			writeProxyError(w, http.StatusBadGateway, "UPSTREAM_UNAVAILABLE", "academy backend unreachable")
		},
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rest := strings.TrimPrefix(r.URL.Path, prefix)
		if rest == r.URL.Path || hasDotSegment(rest) {
			slog.Warn("module proxy path refused", "path", r.URL.Path)
			writeProxyError(w, http.StatusBadRequest, "PATH_TRAVERSAL", "invalid module path")
			return
		}

		proxy.ServeHTTP(w, r)
	})
}

func hasDotSegment(p string) bool {
	for _, segment := range strings.Split(strings.ReplaceAll(p, `\`, "/"), "/") {
		if segment == "." || segment == ".." {
			return true
		}
	}

	return false
}

func writeProxyError(w http.ResponseWriter, status int, code string, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(model.APIResponse{
		Success: false,
		Error:   &model.APIError{Code: code, Message: message},
	})
}
