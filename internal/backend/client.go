// Package backend talks to the academy REST API: role-family profile
// endpoints, portal login and the admin module API.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"dejure-gateway/internal/model"
	"dejure-gateway/pkg/apierror"
)

const (
	maxBodyBytes = 1 << 20

	InsufficientPermissionsMessage = "Insufficient module permissions"
)

// PermissionDeniedError is the backend's well-formed "no access" answer. It
// is not a transport failure.
type PermissionDeniedError struct {
	Message         string          `json:"message"`
	Details         string          `json:"details,omitempty"`
	Required        json.RawMessage `json:"required,omitempty"`
	YourPermissions json.RawMessage `json:"yourPermissions,omitempty"`
}

func (e *PermissionDeniedError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("%s: %s", e.Message, e.Details)
	}
	return e.Message
}

func (e *PermissionDeniedError) PermissionDenied() bool {
	return true
}

type Client struct {
	baseURL *url.URL
	http    *http.Client
}

func New(baseURL string, timeout time.Duration) (*Client, error) {
	parsed, err := url.Parse(strings.TrimRight(strings.TrimSpace(baseURL), "/"))
	if err != nil {
		return nil, fmt.Errorf("parse backend URL: %w", err)
	}
	if parsed.Scheme == "" || parsed.Host == "" {
		return nil, fmt.Errorf("backend URL %q must be absolute", baseURL)
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &Client{
		baseURL: parsed,
		http:    &http.Client{Timeout: timeout},
	}, nil
}

func profilePath(family model.RoleFamily) (string, error) {
	switch family {
	case model.FamilyLearner:
		return "/api/v1/learners/profile", nil
	case model.FamilyMentor:
		return "/api/v1/mentors/profile", nil
	case model.FamilyAdmin:
		return "/api/v1/admin/profile", nil
	}

	return "", fmt.Errorf("%w: family %q", model.ErrUnknownRole, family)
}

func loginPath(family model.RoleFamily) (string, error) {
	switch family {
	case model.FamilyLearner:
		return "/api/v1/learners/auth/login", nil
	case model.FamilyMentor:
		return "/api/v1/mentors/auth/login", nil
	case model.FamilyAdmin:
		return "/api/v1/admin/auth/login", nil
	}

	return "", fmt.Errorf("%w: family %q", model.ErrUnknownRole, family)
}

func (c *Client) endpoint(path string) string {
	u := *c.baseURL
	u.Path = strings.TrimRight(u.Path, "/") + path
	return u.String()
}

// FetchProfile returns the canonical profile for the token's role family.
// Errors are *PermissionDeniedError, *apierror.APIError for backend error
// envelopes, model.ErrMalformedProfile, or a wrapped transport error.
func (c *Client) FetchProfile(ctx context.Context, family model.RoleFamily, token string) (*model.UserProfile, error) {
	path, err := profilePath(family)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint(path), nil)
	if err != nil {
		return nil, fmt.Errorf("build profile request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s profile: %w", family, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("read %s profile: %w", family, err)
	}

	var envelope model.ProfileEnvelope
	decodeErr := json.Unmarshal(body, &envelope)

	if decodeErr == nil && envelope.Message == InsufficientPermissionsMessage {
		return nil, &PermissionDeniedError{
			Message:         envelope.Message,
			Details:         envelope.Details,
			Required:        envelope.Required,
			YourPermissions: envelope.YourPermissions,
		}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, upstreamError(resp.StatusCode, body)
	}

	if decodeErr != nil {
		return nil, fmt.Errorf("%w: %v", model.ErrMalformedProfile, decodeErr)
	}
	if envelope.Success != nil && !*envelope.Success {
		return nil, upstreamError(http.StatusBadGateway, body)
	}
	if envelope.Data == nil || envelope.Data.Role == "" {
		return nil, fmt.Errorf("%w: missing data or role", model.ErrMalformedProfile)
	}

	return envelope.Data, nil
}

type LoginResult struct {
	Token string
	User  *model.UserProfile
}

func (c *Client) Login(ctx context.Context, family model.RoleFamily, email string, password string) (LoginResult, error) {
	path, err := loginPath(family)
	if err != nil {
		return LoginResult{}, err
	}

	payload, err := json.Marshal(map[string]string{"email": email, "password": password})
	if err != nil {
		return LoginResult{}, fmt.Errorf("encode login payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint(path), bytes.NewReader(payload))
	if err != nil {
		return LoginResult{}, fmt.Errorf("build login request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return LoginResult{}, apierror.New(apierror.CodeUpstreamUnavailable, "academy backend unreachable", err.Error(), http.StatusBadGateway)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return LoginResult{}, fmt.Errorf("read login response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return LoginResult{}, upstreamError(resp.StatusCode, body)
	}

	var envelope model.LoginEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil || envelope.Data == nil || envelope.Data.Token == "" {
		return LoginResult{}, apierror.New(apierror.CodeUpstreamError, "malformed login response", "", http.StatusBadGateway)
	}

	return LoginResult{Token: envelope.Data.Token, User: envelope.Data.User}, nil
}

type errorEnvelope struct {
	Message string `json:"message"`
	Details string `json:"details"`
	Error   *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
		Details string `json:"details"`
	} `json:"error"`
}

func upstreamError(status int, body []byte) *apierror.APIError {
	var parsed errorEnvelope
	_ = json.Unmarshal(body, &parsed)

	message := strings.TrimSpace(parsed.Message)
	details := parsed.Details
	if parsed.Error != nil {
		if message == "" {
			message = parsed.Error.Message
		}
		if details == "" {
			details = parsed.Error.Details
		}
	}
	return apierror.FromUpstream(status, message, details)
}

// IsPermissionDenied reports whether err is the backend's permission payload.
func IsPermissionDenied(err error) bool {
	var denied *PermissionDeniedError
	return errors.As(err, &denied)
}
