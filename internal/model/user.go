package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
)

type UserProfile struct {
	ID          string        `json:"id"`
	Role        Role          `json:"role"`
	Name        string        `json:"name,omitempty"`
	Email       string        `json:"email,omitempty"`
	Avatar      string        `json:"avatar,omitempty"`
	Permissions PermissionMap `json:"permissions,omitempty"`
}

// UnmarshalJSON tolerates Mongo-style "_id" keys and numeric ids.
func (u *UserProfile) UnmarshalJSON(data []byte) error {
	type plain UserProfile
	var aux struct {
		plain
		ID      json.RawMessage `json:"id"`
		MongoID json.RawMessage `json:"_id"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	*u = UserProfile(aux.plain)
	raw := aux.ID
	if len(raw) == 0 {
		raw = aux.MongoID
	}
	u.ID = idString(raw)

	return nil
}

func idString(raw json.RawMessage) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return ""
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}

	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		return n.String()
	}

	return ""
}

type ModuleRef struct {
	ID   string `json:"id,omitempty"`
	Name string `json:"name"`
	Slug string `json:"slug"`
}

type ModuleGrant struct {
	Module      ModuleRef `json:"module"`
	IsEnabled   bool      `json:"isEnabled"`
	Permissions []string  `json:"permissions"`
}

// PermissionMap is the staff module grant list, kept in backend order.
type PermissionMap []ModuleGrant

// Lookup returns the first grant whose module name or slug equals module.
func (p PermissionMap) Lookup(module string) (ModuleGrant, bool) {
	for _, grant := range p {
		if grant.Module.Name == module || grant.Module.Slug == module {
			return grant, true
		}
	}

	return ModuleGrant{}, false
}

// UnmarshalJSON accepts the list form or an object keyed by module identifier.
func (p *PermissionMap) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		*p = nil
		return nil
	}

	if trimmed[0] == '[' {
		var grants []ModuleGrant
		if err := json.Unmarshal(trimmed, &grants); err != nil {
			return fmt.Errorf("decode permission list: %w", err)
		}
		*p = grants
		return nil
	}

	var keyed map[string]struct {
		Module      *ModuleRef `json:"module"`
		IsEnabled   bool       `json:"isEnabled"`
		Permissions []string   `json:"permissions"`
	}
	if err := json.Unmarshal(trimmed, &keyed); err != nil {
		return fmt.Errorf("decode permission map: %w", err)
	}

	keys := make([]string, 0, len(keyed))
	for key := range keyed {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	grants := make([]ModuleGrant, 0, len(keys))
	for _, key := range keys {
		entry := keyed[key]
		ref := ModuleRef{Name: key, Slug: key}
		if entry.Module != nil {
			ref = *entry.Module
		}
		grants = append(grants, ModuleGrant{Module: ref, IsEnabled: entry.IsEnabled, Permissions: entry.Permissions})
	}
	*p = grants

	return nil
}

// Session is the per-browser session state shared by every page of one login.
type Session struct {
	Token     string       `json:"token,omitempty"`
	User      *UserProfile `json:"user,omitempty"`
	IsLoading bool         `json:"isLoading"`
}

func (s Session) Role() Role {
	if s.User == nil {
		return ""
	}

	return s.User.Role
}
