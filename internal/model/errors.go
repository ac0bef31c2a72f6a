package model

import "errors"

var (
	// Session related errors
	ErrSessionNotFound = errors.New("session not found")
	ErrNoToken         = errors.New("no token in session")

	// Role / profile related errors
	ErrUnknownRole      = errors.New("unknown role")
	ErrMalformedProfile = errors.New("malformed profile response")
	ErrRoleChanged      = errors.New("profile role differs from session role")

	// Permission/Access related errors
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")

	// Upstream related errors
	ErrUpstreamUnavailable = errors.New("upstream unavailable")

	// Generic errors
	ErrInvalidInput = errors.New("invalid input")
)
