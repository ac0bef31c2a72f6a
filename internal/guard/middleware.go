package guard

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"dejure-gateway/internal/model"
)

type sessionContextKey struct{}

func WithSession(ctx context.Context, sess model.Session) context.Context {
	return context.WithValue(ctx, sessionContextKey{}, sess)
}

// SessionFromContext returns the session an AUTHORIZED mount let through.
func SessionFromContext(ctx context.Context) (model.Session, bool) {
	sess, ok := ctx.Value(sessionContextKey{}).(model.Session)
	return sess, ok
}

func UserFromContext(ctx context.Context) (*model.UserProfile, bool) {
	sess, ok := SessionFromContext(ctx)
	if !ok || sess.User == nil {
		return nil, false
	}
	return sess.User, true
}

// Handler renders next unmodified when the mount is AUTHORIZED and redirects
// otherwise. API callers get a JSON error carrying the redirect instead.
func (g *Guard) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		decision := g.Mount(g.sessions.SessionID(r)).Run(r.Context())

		switch decision.State {
		case StateAuthorized:
			next.ServeHTTP(w, r.WithContext(WithSession(r.Context(), decision.Session)))
		case StateUnauthorized:
			if decision.ClearedSession {
				g.sessions.ExpireCookie(w)
			}
			writeDenied(w, r, decision)
		default:
			// Client went away while the profile was loading.
		}
	})
}

func wantsJSON(r *http.Request) bool {
	if strings.HasPrefix(r.URL.Path, "/api/") {
		return true
	}
	return strings.Contains(r.Header.Get("Accept"), "application/json")
}

func writeDenied(w http.ResponseWriter, r *http.Request, decision Decision) {
	if !wantsJSON(r) {
		http.Redirect(w, r, decision.Redirect, http.StatusFound)
		return
	}

	status := http.StatusUnauthorized
	code := "UNAUTHORIZED"
	message := "authentication required"
	switch decision.Reason {
	case ReasonRoleMismatch, ReasonPermissionDenied:
		status = http.StatusForbidden
		code = "FORBIDDEN"
		message = "insufficient permissions"
	case ReasonSessionUnavailable:
		status = http.StatusServiceUnavailable
		code = "SESSION_UNAVAILABLE"
		message = "session store unavailable"
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(model.APIResponse{
		Success: false,
		Error: &model.APIError{
			Code:     code,
			Message:  message,
			Details:  string(decision.Reason),
			Redirect: decision.Redirect,
		},
	})
}
