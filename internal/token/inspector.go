// Package token inspects academy bearer tokens without verifying them.
//
// Decoded claims are advisory: they drive pre-emptive login redirects and
// expiry warnings only. Authorization is always re-checked against the
// backend profile endpoints. Every decode failure degrades to a safe
// default (expired, no claims) instead of an error.
package token

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const DefaultExpiryWarningMinutes = 5

var DefaultPublicPaths = []string{"/login", "/register", "/forgot-password", "/verify-email"}

type Claims struct {
	ID   string `json:"id"`
	Role string `json:"role"`
	Exp  int64  `json:"exp"`
	Iat  int64  `json:"iat"`
}

type payload struct {
	ID        any              `json:"id"`
	Role      string           `json:"role"`
	ExpiresAt *jwt.NumericDate `json:"exp"`
	IssuedAt  *jwt.NumericDate `json:"iat"`
}

type Inspector struct {
	now         func() time.Time
	publicPaths []string
	parser      *jwt.Parser
}

type Option func(*Inspector)

func WithClock(now func() time.Time) Option {
	return func(i *Inspector) {
		if now != nil {
			i.now = now
		}
	}
}

func WithPublicPaths(paths ...string) Option {
	return func(i *Inspector) {
		i.publicPaths = append([]string(nil), paths...)
	}
}

func New(opts ...Option) *Inspector {
	i := &Inspector{
		now:         time.Now,
		publicPaths: DefaultPublicPaths,
		parser:      jwt.NewParser(jwt.WithPaddingAllowed()),
	}
	for _, opt := range opts {
		opt(i)
	}

	return i
}

// IsWellFormed reports whether token is non-empty with exactly three dot-separated segments.
func (i *Inspector) IsWellFormed(token string) bool {
	if token == "" {
		return false
	}

	return len(strings.Split(token, ".")) == 3
}

// ExtractClaims decodes the middle segment. ok is false for malformed tokens.
func (i *Inspector) ExtractClaims(token string) (Claims, bool) {
	if !i.IsWellFormed(token) {
		return Claims{}, false
	}

	raw, ok := i.decodeSegment(strings.Split(token, ".")[1])
	if !ok {
		return Claims{}, false
	}

	var p payload
	if err := json.Unmarshal(raw, &p); err != nil {
		return Claims{}, false
	}

	claims := Claims{Role: p.Role}
	if p.ID != nil {
		claims.ID = idString(p.ID)
	}
	if p.ExpiresAt != nil {
		claims.Exp = p.ExpiresAt.Unix()
	}
	if p.IssuedAt != nil {
		claims.Iat = p.IssuedAt.Unix()
	}

	return claims, true
}

// decodeSegment accepts base64url first and falls back to standard base64,
// padded or not.
func (i *Inspector) decodeSegment(segment string) ([]byte, bool) {
	if raw, err := i.parser.DecodeSegment(segment); err == nil {
		return raw, true
	}

	if raw, err := base64.RawStdEncoding.DecodeString(strings.TrimRight(segment, "=")); err == nil {
		return raw, true
	}

	return nil, false
}

// IsExpired fails closed: undecodable tokens and tokens without exp are expired.
func (i *Inspector) IsExpired(token string) bool {
	claims, ok := i.ExtractClaims(token)
	if !ok || claims.Exp == 0 {
		return true
	}

	return claims.Exp < i.now().Unix()
}

func (i *Inspector) SecondsUntilExpiry(token string) int64 {
	claims, ok := i.ExtractClaims(token)
	if !ok || claims.Exp == 0 {
		return 0
	}

	remaining := claims.Exp - i.now().Unix()
	if remaining < 0 {
		return 0
	}

	return remaining
}

// MinutesUntilExpiry is floor((exp-now)/60), never negative.
func (i *Inspector) MinutesUntilExpiry(token string) int {
	return int(i.SecondsUntilExpiry(token) / 60)
}

func (i *Inspector) IsExpiringWithin(token string, thresholdMinutes int) bool {
	return i.MinutesUntilExpiry(token) <= thresholdMinutes
}

func (i *Inspector) IsExpiringSoon(token string) bool {
	return i.IsExpiringWithin(token, DefaultExpiryWarningMinutes)
}

func (i *Inspector) ExpiresAt(token string) (time.Time, bool) {
	claims, ok := i.ExtractClaims(token)
	if !ok || claims.Exp == 0 {
		return time.Time{}, false
	}

	return time.Unix(claims.Exp, 0).UTC(), true
}

func (i *Inspector) IsPublicPath(currentPath string) bool {
	for _, public := range i.publicPaths {
		if public != "" && strings.Contains(currentPath, public) {
			return true
		}
	}

	return false
}

func (i *Inspector) ShouldRedirectToLogin(token string, currentPath string) bool {
	if i.IsPublicPath(currentPath) {
		return false
	}

	return token == "" || i.IsExpired(token)
}

func idString(v any) string {
	switch id := v.(type) {
	case string:
		return id
	case float64:
		return fmt.Sprintf("%.0f", id)
	default:
		return fmt.Sprint(id)
	}
}
