package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dejure-gateway/internal/token"
)

type staticToken string

func (s staticToken) TokenForRequest(*http.Request) string { return string(s) }

var expiryNow = time.Date(2026, 5, 4, 9, 0, 0, 0, time.UTC)

func signedToken(t *testing.T, exp time.Time) string {
	t.Helper()

	raw, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"id":   "u1",
		"role": "mentor",
		"exp":  exp.Unix(),
	}).SignedString([]byte("k"))
	require.NoError(t, err)
	return raw
}

func serveExpiry(t *testing.T, raw string, path string) *httptest.ResponseRecorder {
	t.Helper()

	inspector := token.New(token.WithClock(func() time.Time { return expiryNow }))
	handler := ExpiryRedirect(inspector, staticToken(raw), "/mentor/login", 5)(okHandler())

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestExpiryRedirectWithoutToken(t *testing.T) {
	rec := serveExpiry(t, "", "/mentor/classes")
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/mentor/login", rec.Header().Get("Location"))
}

func TestExpiryRedirectExpiredToken(t *testing.T) {
	rec := serveExpiry(t, signedToken(t, expiryNow.Add(-time.Second)), "/mentor/classes")
	assert.Equal(t, http.StatusFound, rec.Code)
}

func TestExpiryRedirectSkipsPublicPaths(t *testing.T) {
	rec := serveExpiry(t, "", "/mentor/login")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Header().Get(expiresInHeader))
}

func TestExpiryHeaders(t *testing.T) {
	rec := serveExpiry(t, signedToken(t, expiryNow.Add(90*time.Minute)), "/mentor/classes")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "90", rec.Header().Get(expiresInHeader))
	assert.Equal(t, "false", rec.Header().Get(expiringSoonHeader))

	rec = serveExpiry(t, signedToken(t, expiryNow.Add(3*time.Minute)), "/mentor/classes")
	assert.Equal(t, "3", rec.Header().Get(expiresInHeader))
	assert.Equal(t, "true", rec.Header().Get(expiringSoonHeader))
}
