package middleware

import (
	"net/http"
	"strconv"

	"dejure-gateway/internal/token"
)

const (
	expiresInHeader    = "X-Session-Expires-In"
	expiringSoonHeader = "X-Session-Expiring-Soon"
)

type TokenSource interface {
	TokenForRequest(r *http.Request) string
}

// ExpiryRedirect sends page requests without a live token to loginPath
// before any profile round trip. Live tokens get the minutes left and the
// expiring-soon flag as response headers so pages can warn before expiry.
func ExpiryRedirect(inspector *token.Inspector, tokens TokenSource, loginPath string, warnMinutes int) func(http.Handler) http.Handler {
	if inspector == nil {
		inspector = token.New()
	}
	if warnMinutes <= 0 {
		warnMinutes = token.DefaultExpiryWarningMinutes
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := tokens.TokenForRequest(r)

			if inspector.ShouldRedirectToLogin(raw, r.URL.Path) {
				http.Redirect(w, r, loginPath, http.StatusFound)
				return
			}

			if raw != "" && !inspector.IsExpired(raw) {
				w.Header().Set(expiresInHeader, strconv.Itoa(inspector.MinutesUntilExpiry(raw)))
				w.Header().Set(expiringSoonHeader, strconv.FormatBool(inspector.IsExpiringWithin(raw, warnMinutes)))
			}

			next.ServeHTTP(w, r)
		})
	}
}
