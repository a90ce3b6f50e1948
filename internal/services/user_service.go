package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/yukikurage/periodical/internal/models"
	"github.com/yukikurage/periodical/internal/policy"
	"github.com/yukikurage/periodical/internal/repository"
	"github.com/yukikurage/periodical/internal/utils"
	"gorm.io/gorm"
)

var (
	ErrInvalidUserStatus     = errors.New("invalid user status")
	ErrCannotChangeSelf      = errors.New("cannot change your own role or status")
	ErrUserNotInOrganization = errors.New("user is not part of an organization")
)

// UserService manages organization members.
type UserService struct {
	userRepo repository.UserRepository
	orgRepo  repository.OrganizationRepository
}

// NewUserService creates a new UserService.
func NewUserService(userRepo repository.UserRepository, orgRepo repository.OrganizationRepository) *UserService {
	return &UserService{
		userRepo: userRepo,
		orgRepo:  orgRepo,
	}
}

// ListUsers lists members of an organization. Super admins may list any
// organization, or every user when organizationID is nil.
func (s *UserService) ListUsers(ctx context.Context, actor policy.Actor, organizationID *uint64, params utils.PaginationParams) ([]models.User, int64, error) {
	filter := repository.UserFilter{Pagination: params}

	switch {
	case actor.IsSuperAdmin():
		filter.OrganizationID = organizationID
	case actor.OrganizationID == nil:
		return nil, 0, ErrActorWithoutOrganization
	case organizationID != nil && *organizationID != *actor.OrganizationID:
		return nil, 0, ErrForbidden
	default:
		filter.OrganizationID = actor.OrganizationID
	}

	users, total, err := s.userRepo.List(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list users: %w", err)
	}
	return users, total, nil
}

// GetUser returns a user visible to the actor: themselves, a member of
// their organization, or anyone for super admins.
func (s *UserService) GetUser(ctx context.Context, actor policy.Actor, id uint64) (*models.User, error) {
	user, err := s.userRepo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to find user: %w", err)
	}

	if user.ID == actor.UserID || actor.IsSuperAdmin() {
		return user, nil
	}
	if user.OrganizationID == nil || !actor.InOrganization(*user.OrganizationID) {
		return nil, ErrUserNotFound
	}
	return user, nil
}

// UpdateUserInput holds the optional fields of a member update.
type UpdateUserInput struct {
	Name   *string
	Role   *string
	Status *string
}

// UpdateUser changes a member's name, role or status. Users may rename
// themselves; everything else needs a strictly higher rank than both the
// member's current and new role.
func (s *UserService) UpdateUser(ctx context.Context, actor policy.Actor, id uint64, input UpdateUserInput) (*models.User, error) {
	user, err := s.GetUser(ctx, actor, id)
	if err != nil {
		return nil, err
	}

	self := user.ID == actor.UserID
	if self && (input.Role != nil || input.Status != nil) {
		return nil, ErrCannotChangeSelf
	}
	if !self && !policy.CanManageUser(actor, user) {
		return nil, ErrForbidden
	}

	wasActiveWriter := user.Role == models.RoleContentWriter && user.IsActive()

	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return nil, ErrNameRequired
		}
		user.Name = name
	}
	if input.Role != nil {
		role, err := models.ParseRole(*input.Role)
		if err != nil {
			return nil, err
		}
		if !policy.HasPermission(actor.Role, role) {
			return nil, ErrForbidden
		}
		user.Role = role
	}
	if input.Status != nil {
		status := models.UserStatus(*input.Status)
		if status != models.UserStatusActive && status != models.UserStatusInactive {
			return nil, ErrInvalidUserStatus
		}
		user.Status = status
	}

	// A member becoming an active writer takes a seat.
	if !wasActiveWriter && user.Role == models.RoleContentWriter && user.IsActive() && user.OrganizationID != nil {
		if err := s.checkWriterSeat(ctx, *user.OrganizationID); err != nil {
			return nil, err
		}
	}

	if err := s.userRepo.Update(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to update user: %w", err)
	}
	return user, nil
}

func (s *UserService) checkWriterSeat(ctx context.Context, organizationID uint64) error {
	org, err := s.orgRepo.FindByID(ctx, organizationID)
	if err != nil {
		return fmt.Errorf("failed to find organization: %w", err)
	}
	writers, err := s.userRepo.CountActiveWriters(ctx, organizationID)
	if err != nil {
		return fmt.Errorf("failed to count writers: %w", err)
	}
	return policy.CheckWriterCapacity(writers, policy.WriterCap(org.PlanType, org.MaxWriters))
}

// RemoveFromOrganization detaches a member and resets their role to
// content writer. The account itself is kept.
func (s *UserService) RemoveFromOrganization(ctx context.Context, actor policy.Actor, id uint64) error {
	user, err := s.GetUser(ctx, actor, id)
	if err != nil {
		return err
	}
	if user.OrganizationID == nil {
		return ErrUserNotInOrganization
	}
	if !policy.CanManageUser(actor, user) {
		return ErrForbidden
	}

	if err := s.userRepo.DetachFromOrganization(ctx, user.ID); err != nil {
		return fmt.Errorf("failed to remove user from organization: %w", err)
	}
	return nil
}
