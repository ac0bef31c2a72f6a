package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	gws "github.com/gorilla/websocket"

	"dejure-gateway/internal/event"
	"dejure-gateway/internal/model"
	"dejure-gateway/internal/permission"
	"dejure-gateway/internal/session"
	"dejure-gateway/internal/token"
	"dejure-gateway/pkg/apierror"
)

type sessionReader interface {
	Snapshot(ctx context.Context, sessionID string) (model.Session, error)
	SessionID(r *http.Request) string
}

type eventStream interface {
	Serve(conn *gws.Conn, sessionKey string)
}

type SessionHandler struct {
	sessions    sessionReader
	inspector   *token.Inspector
	warnMinutes int
	bus         event.Bus
	stream      eventStream
	upgrader    *gws.Upgrader
}

type SessionHandlerOptions struct {
	Inspector   *token.Inspector
	WarnMinutes int
	Bus         event.Bus
	Stream      eventStream
	Upgrader    *gws.Upgrader
}

func NewSessionHandler(sessions sessionReader, opts SessionHandlerOptions) *SessionHandler {
	if opts.Inspector == nil {
		opts.Inspector = token.New()
	}
	if opts.WarnMinutes <= 0 {
		opts.WarnMinutes = token.DefaultExpiryWarningMinutes
	}
	if opts.Upgrader == nil {
		opts.Upgrader = &gws.Upgrader{}
	}

	return &SessionHandler{
		sessions:    sessions,
		inspector:   opts.Inspector,
		warnMinutes: opts.WarnMinutes,
		bus:         opts.Bus,
		stream:      opts.Stream,
		upgrader:    opts.Upgrader,
	}
}

// Status reports what the browser may know about its session without a
// backend round trip. Token claims are advisory; the guard re-checks access.
func (h *SessionHandler) Status(w http.ResponseWriter, r *http.Request) {
	sessionID := h.sessions.SessionID(r)
	sess, err := h.sessions.Snapshot(r.Context(), sessionID)
	if err != nil {
		writeError(w, apierror.New(apierror.CodeSessionUnavailable, "session store unavailable", "", http.StatusServiceUnavailable))
		slog.Error("session snapshot failed", "error", err)
		return
	}

	status := model.SessionStatus{IsLoading: sess.IsLoading}
	if sess.Token == "" {
		writeSuccess(w, http.StatusOK, status)
		return
	}

	status.Expired = h.inspector.IsExpired(sess.Token)
	status.Authenticated = !status.Expired && sess.User != nil
	status.MinutesUntilExpiry = h.inspector.MinutesUntilExpiry(sess.Token)
	status.ExpiringSoon = !status.Expired && h.inspector.IsExpiringWithin(sess.Token, h.warnMinutes)
	if expiresAt, ok := h.inspector.ExpiresAt(sess.Token); ok {
		status.ExpiresAt = expiresAt.Unix()
	}
	if status.Authenticated {
		status.User = sess.User
	}

	if status.ExpiringSoon && h.bus != nil {
		h.bus.Publish(event.New(event.TypeExpiryWarning, session.Key(sessionID), map[string]any{
			"minutesUntilExpiry": status.MinutesUntilExpiry,
		}))
	}

	writeSuccess(w, http.StatusOK, status)
}

func (h *SessionHandler) Permissions(w http.ResponseWriter, r *http.Request) {
	sess, err := h.sessions.Snapshot(r.Context(), h.sessions.SessionID(r))
	if err != nil {
		writeError(w, apierror.New(apierror.CodeSessionUnavailable, "session store unavailable", "", http.StatusServiceUnavailable))
		return
	}
	if sess.Token == "" || sess.User == nil {
		writeError(w, model.ErrUnauthorized)
		return
	}

	module := chi.URLParam(r, "module")
	if module == "" {
		writeError(w, apierror.New(apierror.CodeBadRequest, "module is required", "module", http.StatusBadRequest))
		return
	}

	writeSuccess(w, http.StatusOK, permission.Summary(sess.User, module))
}

// Events upgrades to a websocket carrying this session's events until the
// session is cleared or the browser goes away.
func (h *SessionHandler) Events(w http.ResponseWriter, r *http.Request) {
	if h.stream == nil {
		writeError(w, apierror.New("NOT_AVAILABLE", "event stream disabled", "", http.StatusNotFound))
		return
	}

	sessionID := h.sessions.SessionID(r)
	sess, err := h.sessions.Snapshot(r.Context(), sessionID)
	if err != nil {
		writeError(w, apierror.New(apierror.CodeSessionUnavailable, "session store unavailable", "", http.StatusServiceUnavailable))
		return
	}
	if sess.Token == "" {
		writeError(w, model.ErrUnauthorized)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the HTTP error.
		slog.Debug("websocket upgrade failed", "error", err)
		return
	}

	h.stream.Serve(conn, session.Key(sessionID))
}
