package session

import (
	"net/http"
	"strings"
	"time"
)

const DefaultCookieName = "dja_session"

type CookieConfig struct {
	Name   string
	Secure bool
	Domain string
}

func (m *Manager) SessionID(r *http.Request) string {
	c, err := r.Cookie(m.cookie.Name)
	if err != nil {
		return ""
	}

	return strings.TrimSpace(c.Value)
}

// TokenForRequest returns the bearer token of the request's session, or ""
// when there is none or the store is unreachable.
func (m *Manager) TokenForRequest(r *http.Request) string {
	sess, err := m.Snapshot(r.Context(), m.SessionID(r))
	if err != nil {
		return ""
	}

	return sess.Token
}

func (m *Manager) WriteCookie(w http.ResponseWriter, sessionID string) {
	http.SetCookie(w, &http.Cookie{
		Name:     m.cookie.Name,
		Value:    sessionID,
		Path:     "/",
		Domain:   m.cookie.Domain,
		HttpOnly: true,
		Secure:   m.cookie.Secure,
		SameSite: http.SameSiteLaxMode,
		Expires:  time.Now().Add(m.ttl),
	})
}

func (m *Manager) ExpireCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     m.cookie.Name,
		Value:    "",
		Path:     "/",
		Domain:   m.cookie.Domain,
		HttpOnly: true,
		Secure:   m.cookie.Secure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   -1,
		Expires:  time.Unix(0, 0),
	})
}
