package permission

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dejure-gateway/internal/model"
)

func staffWith(permissions ...string) *model.UserProfile {
	return &model.UserProfile{
		ID:   "s1",
		Role: model.RoleStaff,
		Permissions: model.PermissionMap{
			{Module: model.ModuleRef{Name: "Courses", Slug: "courses"}, IsEnabled: true, Permissions: permissions},
		},
	}
}

func TestAdminAlwaysAllowed(t *testing.T) {
	t.Parallel()

	for _, role := range []model.Role{model.RoleAdmin, model.RoleSuperAdmin} {
		user := &model.UserProfile{Role: role}
		for _, module := range []string{"courses", "orders", ""} {
			for _, action := range []string{"view", "delete", "export", ""} {
				assert.True(t, HasPermission(user, module, action), "%s %s %s", role, module, action)
			}
		}
	}
}

func TestStaffDeleteNeedsDeleteOrWildcard(t *testing.T) {
	t.Parallel()

	assert.False(t, HasPermission(staffWith("view", "write", "full", "all"), "courses", "delete"))
	assert.True(t, HasPermission(staffWith("delete"), "courses", "delete"))
	assert.True(t, HasPermission(staffWith("*"), "courses", "delete"))
}

func TestStaffSynonyms(t *testing.T) {
	t.Parallel()

	tests := []struct {
		held   []string
		action string
		want   bool
	}{
		{[]string{"read"}, "view", true},
		{[]string{"view"}, "read", true},
		{[]string{"full"}, "view", true},
		{[]string{"write"}, "update", true},
		{[]string{"edit"}, "update", true},
		{[]string{"update"}, "edit", true},
		{[]string{"view"}, "update", false},
		{[]string{"write"}, "create", true},
		{[]string{"view"}, "create", false},
		{[]string{"export"}, "export", true},
		{[]string{"view"}, "export", false},
		{[]string{"*"}, "export", true},
		{[]string{"*"}, "", false},
	}

	for _, tc := range tests {
		assert.Equal(t, tc.want, HasPermission(staffWith(tc.held...), "courses", tc.action), "%v %s", tc.held, tc.action)
	}
}

func TestStaffModuleLookup(t *testing.T) {
	t.Parallel()

	user := staffWith("view")
	assert.True(t, CanView(user, "courses"))
	assert.True(t, CanView(user, "Courses"))
	assert.False(t, CanView(user, "orders"))

	disabled := staffWith("*")
	disabled.Permissions[0].IsEnabled = false
	assert.False(t, CanView(disabled, "courses"))

	none := &model.UserProfile{Role: model.RoleStaff}
	assert.False(t, CanView(none, "courses"))
}

func TestStaffFirstMatchWins(t *testing.T) {
	t.Parallel()

	user := &model.UserProfile{
		Role: model.RoleStaff,
		Permissions: model.PermissionMap{
			{Module: model.ModuleRef{Name: "courses", Slug: "courses"}, IsEnabled: true, Permissions: []string{"view"}},
			{Module: model.ModuleRef{Name: "courses", Slug: "courses"}, IsEnabled: true, Permissions: []string{"*"}},
		},
	}

	assert.True(t, CanView(user, "courses"))
	assert.False(t, CanDelete(user, "courses"))
}

func TestRepresentativeReadOnly(t *testing.T) {
	t.Parallel()

	user := &model.UserProfile{Role: model.RoleRepresentative}
	assert.True(t, HasPermission(user, "anything", "view"))
	assert.True(t, HasPermission(user, "anything", "read"))
	assert.False(t, HasPermission(user, "anything", "create"))
	assert.False(t, HasPermission(user, "anything", "delete"))
}

func TestOtherRolesDenied(t *testing.T) {
	t.Parallel()

	assert.False(t, HasPermission(nil, "courses", "view"))
	assert.False(t, HasPermission(&model.UserProfile{Role: model.RoleLearner}, "courses", "view"))
	assert.False(t, HasPermission(&model.UserProfile{Role: model.RoleMentor}, "courses", "view"))
	assert.False(t, HasPermission(&model.UserProfile{Role: "ghost"}, "courses", "view"))
}

func TestSummaryFromKeyedPermissionJSON(t *testing.T) {
	t.Parallel()

	var user model.UserProfile
	require.NoError(t, json.Unmarshal([]byte(`{
		"_id": "64f0",
		"role": "staff",
		"permissions": {
			"orders": {"isEnabled": true, "permissions": ["view", "update"]},
			"courses": {"isEnabled": false, "permissions": ["*"]}
		}
	}`), &user))

	assert.Equal(t, "64f0", user.ID)
	assert.Equal(t, model.PermissionSummary{Module: "orders", CanView: true, CanUpdate: true}, Summary(&user, "orders"))
	assert.Equal(t, model.PermissionSummary{Module: "courses"}, Summary(&user, "courses"))
}

func TestActionForMethod(t *testing.T) {
	t.Parallel()

	assert.Equal(t, ActionView, ActionForMethod(http.MethodGet))
	assert.Equal(t, ActionView, ActionForMethod(http.MethodHead))
	assert.Equal(t, ActionCreate, ActionForMethod(http.MethodPost))
	assert.Equal(t, ActionUpdate, ActionForMethod(http.MethodPatch))
	assert.Equal(t, ActionUpdate, ActionForMethod(http.MethodPut))
	assert.Equal(t, ActionDelete, ActionForMethod(http.MethodDelete))
	assert.Equal(t, "", ActionForMethod(http.MethodOptions))
}
