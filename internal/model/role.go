package model

import (
	"fmt"
	"strings"
)

type Role string

const (
	RoleLearner        Role = "learner"
	RoleMentor         Role = "mentor"
	RoleAdmin          Role = "admin"
	RoleSuperAdmin     Role = "superadmin"
	RoleStaff          Role = "staff"
	RoleRepresentative Role = "representative"
)

// RoleFamily selects which profile endpoint and login page serve a role.
type RoleFamily string

const (
	FamilyLearner RoleFamily = "learner"
	FamilyMentor  RoleFamily = "mentor"
	FamilyAdmin   RoleFamily = "admin"
)

var knownRoles = []Role{RoleLearner, RoleMentor, RoleAdmin, RoleSuperAdmin, RoleStaff, RoleRepresentative}

func ParseRole(raw string) (Role, error) {
	role := Role(strings.ToLower(strings.TrimSpace(raw)))
	if !role.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownRole, raw)
	}

	return role, nil
}

func (r Role) Valid() bool {
	for _, known := range knownRoles {
		if r == known {
			return true
		}
	}

	return false
}

// Family reports the role family. ok is false for roles outside the enumeration.
func (r Role) Family() (RoleFamily, bool) {
	switch r {
	case RoleLearner:
		return FamilyLearner, true
	case RoleMentor:
		return FamilyMentor, true
	case RoleAdmin, RoleSuperAdmin, RoleStaff, RoleRepresentative:
		return FamilyAdmin, true
	}

	return "", false
}

// IsSuperUser reports roles that hold every module permission.
func (r Role) IsSuperUser() bool {
	return r == RoleAdmin || r == RoleSuperAdmin
}

func ParseRoleFamily(raw string) (RoleFamily, error) {
	switch family := RoleFamily(strings.ToLower(strings.TrimSpace(raw))); family {
	case FamilyLearner, FamilyMentor, FamilyAdmin:
		return family, nil
	}

	return "", fmt.Errorf("%w: portal %q", ErrUnknownRole, raw)
}
