// Package permission decides whether a user may perform an action on an
// admin module.
package permission

import (
	"net/http"

	"dejure-gateway/internal/model"
)

const (
	ActionView   = "view"
	ActionRead   = "read"
	ActionCreate = "create"
	ActionUpdate = "update"
	ActionEdit   = "edit"
	ActionDelete = "delete"

	Wildcard = "*"
)

// grants lists, per action, the stored permissions that satisfy it.
// Actions missing here are satisfied only by an exact entry or the wildcard.
var grants = map[string][]string{
	ActionView:   {"view", "read", "full", "all", Wildcard},
	ActionRead:   {"view", "read", "full", "all", Wildcard},
	ActionCreate: {"create", "write", "full", "all", Wildcard},
	ActionUpdate: {"write", "update", "edit", Wildcard},
	ActionEdit:   {"write", "update", "edit", Wildcard},
	ActionDelete: {"delete", Wildcard},
}

func HasPermission(user *model.UserProfile, module string, action string) bool {
	if user == nil {
		return false
	}

	if user.Role.IsSuperUser() {
		return true
	}

	switch user.Role {
	case model.RoleStaff:
		grant, ok := user.Permissions.Lookup(module)
		if !ok || !grant.IsEnabled {
			return false
		}
		return allows(grant.Permissions, action)
	case model.RoleRepresentative:
		return action == ActionView || action == ActionRead
	}

	return false
}

func allows(held []string, action string) bool {
	if action == "" {
		return false
	}

	accepted, known := grants[action]
	if !known {
		accepted = []string{action, Wildcard}
	}

	for _, have := range held {
		for _, want := range accepted {
			if have == want {
				return true
			}
		}
	}

	return false
}

func CanView(user *model.UserProfile, module string) bool {
	return HasPermission(user, module, ActionView)
}

func CanCreate(user *model.UserProfile, module string) bool {
	return HasPermission(user, module, ActionCreate)
}

func CanUpdate(user *model.UserProfile, module string) bool {
	return HasPermission(user, module, ActionUpdate)
}

func CanDelete(user *model.UserProfile, module string) bool {
	return HasPermission(user, module, ActionDelete)
}

func Summary(user *model.UserProfile, module string) model.PermissionSummary {
	return model.PermissionSummary{
		Module:    module,
		CanView:   CanView(user, module),
		CanCreate: CanCreate(user, module),
		CanUpdate: CanUpdate(user, module),
		CanDelete: CanDelete(user, module),
	}
}

// ActionForMethod maps an HTTP method onto the evaluator action. Unknown
// methods map to "" which no permission satisfies.
func ActionForMethod(method string) string {
	switch method {
	case http.MethodGet, http.MethodHead:
		return ActionView
	case http.MethodPost:
		return ActionCreate
	case http.MethodPut, http.MethodPatch:
		return ActionUpdate
	case http.MethodDelete:
		return ActionDelete
	}

	return ""
}
