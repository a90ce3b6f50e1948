// Package policy answers authorization questions for a request's Actor.
// Role ranks come from models.Role; nothing here keeps its own table.
package policy

import "github.com/yukikurage/periodical/internal/models"

// Actor is the authenticated principal of a request.
type Actor struct {
	UserID         uint64
	Role           models.Role
	OrganizationID *uint64
}

// NewActor builds the Actor for a loaded user.
func NewActor(u *models.User) Actor {
	return Actor{
		UserID:         u.ID,
		Role:           u.Role,
		OrganizationID: u.OrganizationID,
	}
}

func (a Actor) IsSuperAdmin() bool {
	return a.Role == models.RoleSuperAdmin
}

// InOrganization reports whether the actor is a member of orgID.
func (a Actor) InOrganization(orgID uint64) bool {
	return a.OrganizationID != nil && *a.OrganizationID == orgID
}

// HasPermission reports whether actor may act on target: strictly higher
// rank only. Equal ranks are denied.
func HasPermission(actor, target models.Role) bool {
	return actor.Outranks(target)
}

// CanModifyGist allows the author, or anyone strictly outranking the author
// within the same organization. Super admins are not bound to an organization.
func CanModifyGist(actor Actor, author *models.User) bool {
	if author == nil {
		return false
	}
	if actor.UserID == author.ID {
		return true
	}
	if !HasPermission(actor.Role, author.Role) {
		return false
	}
	if actor.IsSuperAdmin() {
		return true
	}
	return author.OrganizationID != nil && actor.InOrganization(*author.OrganizationID)
}

// CanManageInvitations is true for managers and above.
func CanManageInvitations(actor Actor) bool {
	return actor.Role.Rank() >= models.RoleManager.Rank()
}

// CanAccessOrganization is true for members of orgID and super admins.
func CanAccessOrganization(actor Actor, orgID uint64) bool {
	return actor.IsSuperAdmin() || actor.InOrganization(orgID)
}

// CanManageUser reports whether actor may change target's role or membership.
func CanManageUser(actor Actor, target *models.User) bool {
	if target == nil || actor.UserID == target.ID {
		return false
	}
	if !HasPermission(actor.Role, target.Role) {
		return false
	}
	if actor.IsSuperAdmin() {
		return true
	}
	return target.OrganizationID != nil && actor.InOrganization(*target.OrganizationID)
}
