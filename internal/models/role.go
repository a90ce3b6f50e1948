package models

import (
	"errors"
	"fmt"
)

// Role is a user's rank within the system. Ranks form a total order and
// this table is the only place they are defined.
type Role string

const (
	RoleSuperAdmin    Role = "super_admin"
	RoleOrgAdmin      Role = "org_admin"
	RoleManager       Role = "manager"
	RoleContentWriter Role = "content_writer"
)

var ErrInvalidRole = errors.New("invalid role")

var roleRanks = map[Role]int{
	RoleSuperAdmin:    4,
	RoleOrgAdmin:      3,
	RoleManager:       2,
	RoleContentWriter: 1,
}

var roleLabels = map[Role]string{
	RoleSuperAdmin:    "Super Admin",
	RoleOrgAdmin:      "Org Admin",
	RoleManager:       "Manager",
	RoleContentWriter: "Content Writer",
}

// ParseRole converts a raw string into a Role.
func ParseRole(s string) (Role, error) {
	r := Role(s)
	if _, ok := roleRanks[r]; !ok {
		return "", fmt.Errorf("%w: %q", ErrInvalidRole, s)
	}
	return r, nil
}

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	_, ok := roleRanks[r]
	return ok
}

// Rank returns the position of r in the role order; unknown roles rank 0.
func (r Role) Rank() int {
	return roleRanks[r]
}

// Outranks reports whether r is strictly above other.
func (r Role) Outranks(other Role) bool {
	return r.Valid() && r.Rank() > other.Rank()
}

// Label is the human readable role name.
func (r Role) Label() string {
	if l, ok := roleLabels[r]; ok {
		return l
	}
	return string(r)
}

// AllRoles lists roles from highest to lowest rank.
func AllRoles() []Role {
	return []Role{RoleSuperAdmin, RoleOrgAdmin, RoleManager, RoleContentWriter}
}
