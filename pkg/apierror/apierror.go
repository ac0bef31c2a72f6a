// Package apierror carries a client-facing error code, message and HTTP
// status through error returns.
package apierror

import (
	"errors"
	"fmt"
	"net/http"
)

const (
	CodeBadRequest          = "BAD_REQUEST"
	CodeValidation          = "VALIDATION_ERROR"
	CodeUnauthorized        = "UNAUTHORIZED"
	CodeForbidden           = "FORBIDDEN"
	CodeUpstreamRejected    = "UPSTREAM_REJECTED"
	CodeUpstreamError       = "UPSTREAM_ERROR"
	CodeUpstreamUnavailable = "UPSTREAM_UNAVAILABLE"
	CodeSessionUnavailable  = "SESSION_UNAVAILABLE"
	CodeInternal            = "INTERNAL_ERROR"
)

type APIError struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	Details    string `json:"details,omitempty"`
	HTTPStatus int    `json:"-"`
}

func (e *APIError) Error() string {
	if e == nil {
		return ""
	}

	if e.Details != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Code, e.Message, e.Details)
	}

	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func New(code string, message string, details string, status int) *APIError {
	return &APIError{Code: code, Message: message, Details: details, HTTPStatus: status}
}

// FromUpstream keeps 401, 403 and other 4xx statuses of a backend answer so
// the browser sees the same class of failure. Anything else is a 502.
func FromUpstream(status int, message string, details string) *APIError {
	if message == "" {
		message = http.StatusText(status)
	}

	switch {
	case status == http.StatusUnauthorized:
		return New(CodeUnauthorized, message, details, status)
	case status == http.StatusForbidden:
		return New(CodeForbidden, message, details, status)
	case status >= 400 && status < 500:
		return New(CodeUpstreamRejected, message, details, status)
	default:
		return New(CodeUpstreamError, message, details, http.StatusBadGateway)
	}
}

// StatusOf returns the HTTP status carried by err, or 500.
func StatusOf(err error) int {
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.HTTPStatus != 0 {
		return apiErr.HTTPStatus
	}
	return http.StatusInternalServerError
}
