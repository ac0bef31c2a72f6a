package model

import "encoding/json"

type APIResponse struct {
	Success bool      `json:"success"`
	Data    any       `json:"data,omitempty"`
	Error   *APIError `json:"error,omitempty"`
}

type APIError struct {
	Code     string `json:"code"`
	Message  string `json:"message"`
	Details  string `json:"details,omitempty"`
	Redirect string `json:"redirect,omitempty"`
}

// ProfileEnvelope is what the academy backend returns from a profile endpoint.
// Exactly one of Data or Message is expected to be meaningful.
type ProfileEnvelope struct {
	Success         *bool           `json:"success,omitempty"`
	Data            *UserProfile    `json:"data,omitempty"`
	Message         string          `json:"message,omitempty"`
	Details         string          `json:"details,omitempty"`
	Required        json.RawMessage `json:"required,omitempty"`
	YourPermissions json.RawMessage `json:"yourPermissions,omitempty"`
}

type LoginEnvelope struct {
	Data *struct {
		Token string       `json:"token"`
		User  *UserProfile `json:"user"`
	} `json:"data,omitempty"`
	Message string `json:"message,omitempty"`
}

type SessionStatus struct {
	Authenticated      bool         `json:"authenticated"`
	User               *UserProfile `json:"user,omitempty"`
	IsLoading          bool         `json:"isLoading"`
	Expired            bool         `json:"expired"`
	ExpiresAt          int64        `json:"expiresAt,omitempty"`
	MinutesUntilExpiry int          `json:"minutesUntilExpiry"`
	ExpiringSoon       bool         `json:"expiringSoon"`
}

type PermissionSummary struct {
	Module    string `json:"module"`
	CanView   bool   `json:"canView"`
	CanCreate bool   `json:"canCreate"`
	CanUpdate bool   `json:"canUpdate"`
	CanDelete bool   `json:"canDelete"`
}
