package services

import (
	"errors"
	"fmt"

	"github.com/yukikurage/periodical/internal/models"
)

// Errors shared by several services.
var (
	ErrForbidden                = errors.New("insufficient permissions")
	ErrActorWithoutOrganization = errors.New("user is not part of any organization")
	ErrOrganizationRequired     = errors.New("organization id is required")
	ErrOrganizationNotFound     = errors.New("organization not found")
	ErrUserNotFound             = errors.New("user not found")
	ErrPasswordTooShort         = errors.New("password too short")
	ErrFailedToHashPassword     = errors.New("failed to hash password")
)

// ErrInsufficientRole matches any RolePermissionError.
var ErrInsufficientRole = errors.New("insufficient role")

// RolePermissionError reports that the actor's role cannot act on a role of
// equal or higher rank.
type RolePermissionError struct {
	Actor  models.Role
	Target models.Role
}

func (e *RolePermissionError) Error() string {
	return fmt.Sprintf("Your role (%s) cannot invite %ss", e.Actor.Label(), e.Target.Label())
}

func (e *RolePermissionError) Is(target error) bool {
	return target == ErrInsufficientRole
}
