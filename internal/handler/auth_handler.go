package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"dejure-gateway/internal/backend"
	"dejure-gateway/internal/guard"
	"dejure-gateway/internal/model"
	"dejure-gateway/internal/token"
	"dejure-gateway/pkg/apierror"
)

const maxLoginBody = 16 << 10

type authBackend interface {
	Login(ctx context.Context, family model.RoleFamily, email string, password string) (backend.LoginResult, error)
	FetchProfile(ctx context.Context, family model.RoleFamily, token string) (*model.UserProfile, error)
}

type sessionStarter interface {
	Start(ctx context.Context, token string, user *model.UserProfile) (string, error)
	Snapshot(ctx context.Context, sessionID string) (model.Session, error)
	Clear(ctx context.Context, sessionID string) error
	SessionID(r *http.Request) string
	WriteCookie(w http.ResponseWriter, sessionID string)
	ExpireCookie(w http.ResponseWriter)
}

type AuthHandler struct {
	backend   authBackend
	sessions  sessionStarter
	inspector *token.Inspector
}

func NewAuthHandler(backend authBackend, sessions sessionStarter, inspector *token.Inspector) *AuthHandler {
	if inspector == nil {
		inspector = token.New()
	}
	return &AuthHandler{backend: backend, sessions: sessions, inspector: inspector}
}

// HomePath is where a fresh login of the family lands.
func HomePath(family model.RoleFamily) string {
	switch family {
	case model.FamilyAdmin:
		return "/admin"
	case model.FamilyMentor:
		return "/mentor"
	}
	return "/learner"
}

// Login signs in against the portal's backend endpoint and opens a gateway
// session holding the returned token. An account from another role family is
// refused here rather than bounced by the guard later.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()

	var payload model.LoginRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxLoginBody)).Decode(&payload); err != nil {
		writeError(w, apierror.New(apierror.CodeBadRequest, "invalid JSON body", "", http.StatusBadRequest))
		return
	}
	payload.Email = strings.ToLower(strings.TrimSpace(payload.Email))
	payload.Portal = strings.ToLower(strings.TrimSpace(payload.Portal))
	if err := validate.Struct(payload); err != nil {
		writeError(w, err)
		return
	}

	family := model.FamilyLearner
	if payload.Portal != "" {
		parsed, err := model.ParseRoleFamily(payload.Portal)
		if err != nil {
			writeError(w, apierror.New(apierror.CodeValidation, "unknown portal", payload.Portal, http.StatusBadRequest))
			return
		}
		family = parsed
	}

	result, err := h.backend.Login(r.Context(), family, payload.Email, payload.Password)
	if err != nil {
		writeError(w, err)
		return
	}

	user := result.User
	if user == nil || user.Role == "" {
		user, err = h.backend.FetchProfile(r.Context(), family, result.Token)
		if err != nil {
			writeError(w, err)
			return
		}
	}

	userFamily, ok := user.Role.Family()
	if !ok || userFamily != family {
		slog.Warn("login refused for portal", "portal", family, "role", user.Role, "user_id", user.ID)
		writeError(w, apierror.New(apierror.CodeForbidden, "account cannot sign in to this portal", string(family), http.StatusForbidden))
		return
	}

	// Never reuse a pre-login session id.
	if previous := h.sessions.SessionID(r); previous != "" {
		if err := h.sessions.Clear(r.Context(), previous); err != nil {
			slog.Warn("failed to clear previous session", "error", err)
		}
	}

	sessionID, err := h.sessions.Start(r.Context(), result.Token, user)
	if err != nil {
		writeError(w, apierror.New(apierror.CodeSessionUnavailable, "could not start session", "", http.StatusServiceUnavailable))
		slog.Error("session start failed", "error", err)
		return
	}
	h.sessions.WriteCookie(w, sessionID)

	response := model.LoginResponse{User: user, Redirect: HomePath(family)}
	if expiresAt, ok := h.inspector.ExpiresAt(result.Token); ok {
		response.ExpiresAt = expiresAt.Unix()
	}

	slog.Info("login succeeded", "user_id", user.ID, "role", user.Role)
	writeSuccess(w, http.StatusOK, response)
}

func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	sessionID := h.sessions.SessionID(r)

	redirect := guard.SiteRootPath
	if sess, err := h.sessions.Snapshot(r.Context(), sessionID); err == nil && sess.User != nil && sess.User.Role.Valid() {
		redirect = guard.LoginPath(sess.User.Role)
	}

	if err := h.sessions.Clear(r.Context(), sessionID); err != nil {
		writeError(w, apierror.New(apierror.CodeSessionUnavailable, "could not clear session", "", http.StatusServiceUnavailable))
		slog.Error("session clear failed", "error", err)
		return
	}
	h.sessions.ExpireCookie(w)

	writeSuccess(w, http.StatusOK, map[string]any{"loggedOut": true, "redirect": redirect})
}
