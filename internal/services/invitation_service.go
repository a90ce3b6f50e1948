package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/yukikurage/periodical/internal/constants"
	"github.com/yukikurage/periodical/internal/mailer"
	"github.com/yukikurage/periodical/internal/models"
	"github.com/yukikurage/periodical/internal/policy"
	"github.com/yukikurage/periodical/internal/repository"
	"github.com/yukikurage/periodical/internal/telemetry"
	"github.com/yukikurage/periodical/internal/utils"
	"gorm.io/gorm"
)

var (
	ErrInvalidInvitationRole     = errors.New("invalid invitation role")
	ErrUserInThisOrganization    = errors.New("user is already part of this organization")
	ErrUserInAnotherOrganization = errors.New("user is already part of another organization")
	ErrPendingInvitationExists   = errors.New("pending invitation already exists for this email")
	ErrInvitationEmailFailed     = errors.New("failed to send invitation email")
	ErrInvalidInvitationToken    = errors.New("invalid invitation token")
	ErrInvitationNotFound        = errors.New("invitation not found")
	ErrInvitationExpired         = errors.New("invitation has expired")
	ErrInvitationAlreadyAccepted = errors.New("invitation has already been accepted")
	ErrUserAlreadyInOrganization = errors.New("user is already part of an organization")
	ErrNameAndPasswordRequired   = errors.New("name and password are required for new users")
	ErrTokenGenerationFailed     = errors.New("failed to generate invitation token")
	ErrAcceptedInvitationRevoke  = errors.New("accepted invitations cannot be revoked")
	ErrInvitationWouldDemote     = errors.New("user already holds a higher role than the invitation grants")
)

// InvitationService runs the invitation lifecycle: create, validate, accept
// and revoke.
type InvitationService struct {
	invitationRepo repository.InvitationRepository
	orgRepo        repository.OrganizationRepository
	userRepo       repository.UserRepository
	mailer         mailer.Mailer
	publicURL      string
	now            func() time.Time
}

// NewInvitationService creates a new InvitationService. publicURL is the
// dashboard origin used to build accept links.
func NewInvitationService(
	invitationRepo repository.InvitationRepository,
	orgRepo repository.OrganizationRepository,
	userRepo repository.UserRepository,
	m mailer.Mailer,
	publicURL string,
) *InvitationService {
	return &InvitationService{
		invitationRepo: invitationRepo,
		orgRepo:        orgRepo,
		userRepo:       userRepo,
		mailer:         m,
		publicURL:      strings.TrimRight(publicURL, "/"),
		now:            time.Now,
	}
}

// CreateInvitationInput represents parameters to invite a user.
type CreateInvitationInput struct {
	OrganizationID *uint64
	Email          string
	Role           string
}

// resolveOrganization picks the organization an invitation operation targets.
// Everyone but super admins is pinned to their own organization.
func (s *InvitationService) resolveOrganization(ctx context.Context, actor policy.Actor, requested *uint64) (*models.Organization, error) {
	var orgID uint64
	switch {
	case !actor.IsSuperAdmin() && actor.OrganizationID == nil:
		return nil, ErrActorWithoutOrganization
	case !actor.IsSuperAdmin():
		orgID = *actor.OrganizationID
	case requested == nil:
		return nil, ErrOrganizationRequired
	default:
		orgID = *requested
	}

	org, err := s.orgRepo.FindByID(ctx, orgID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrOrganizationNotFound
		}
		return nil, fmt.Errorf("failed to find organization: %w", err)
	}
	return org, nil
}

// CreateInvitation stores a pending invitation and emails its accept link.
// If the email cannot be delivered the invitation is deleted again.
func (s *InvitationService) CreateInvitation(ctx context.Context, actor policy.Actor, input CreateInvitationInput) (*models.Invitation, error) {
	email := normalizeEmail(input.Email)
	if email == "" {
		return nil, ErrEmailRequired
	}
	role, err := models.ParseRole(input.Role)
	if err != nil {
		return nil, ErrInvalidInvitationRole
	}

	org, err := s.resolveOrganization(ctx, actor, input.OrganizationID)
	if err != nil {
		return nil, err
	}

	if !policy.HasPermission(actor.Role, role) {
		return nil, &RolePermissionError{Actor: actor.Role, Target: role}
	}

	existing, err := s.userRepo.FindByEmail(ctx, email)
	switch {
	case err == nil && existing.BelongsTo(org.ID):
		return nil, ErrUserInThisOrganization
	case err == nil && existing.OrganizationID != nil:
		return nil, ErrUserInAnotherOrganization
	case err == nil && !policy.HasPermission(actor.Role, existing.Role):
		return nil, &RolePermissionError{Actor: actor.Role, Target: existing.Role}
	case err != nil && !errors.Is(err, gorm.ErrRecordNotFound):
		return nil, fmt.Errorf("failed to check existing user: %w", err)
	}

	inviter, err := s.userRepo.FindByID(ctx, actor.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to load inviter: %w", err)
	}

	token, err := utils.GenerateInvitationToken()
	if err != nil {
		return nil, ErrTokenGenerationFailed
	}

	invitation := &models.Invitation{
		Email:          email,
		Role:           role,
		Token:          token,
		OrganizationID: org.ID,
		InvitedByID:    actor.UserID,
		ExpiresAt:      s.now().Add(constants.InvitationTTL),
	}

	if err := s.invitationRepo.CreatePending(ctx, invitation); err != nil {
		switch {
		case errors.Is(err, repository.ErrPendingInvitationExists):
			return nil, ErrPendingInvitationExists
		case errors.Is(err, policy.ErrWriterLimitReached):
			return nil, err
		case errors.Is(err, gorm.ErrRecordNotFound):
			return nil, ErrOrganizationNotFound
		default:
			return nil, fmt.Errorf("failed to create invitation: %w", err)
		}
	}
	telemetry.InvitationsTotal.WithLabelValues("created", string(role)).Inc()

	mail := mailer.InvitationEmail{
		To:               email,
		InviterName:      inviter.Name,
		OrganizationName: org.Name,
		RoleLabel:        role.Label(),
		AcceptURL:        s.AcceptURL(token),
		ExpiresAt:        invitation.ExpiresAt,
	}
	if err := s.mailer.SendInvitation(ctx, mail); err != nil {
		telemetry.InvitationEmailFailuresTotal.Inc()
		slog.ErrorContext(ctx, "invitation email failed, removing invitation",
			"invitation_id", invitation.ID, "organization_id", org.ID, "error", err)

		// The request context may already be canceled; the cleanup must still run.
		if delErr := s.invitationRepo.Delete(context.WithoutCancel(ctx), invitation.ID); delErr != nil {
			slog.ErrorContext(ctx, "failed to remove undelivered invitation",
				"invitation_id", invitation.ID, "error", delErr)
		} else {
			telemetry.InvitationsTotal.WithLabelValues("rolled_back", string(role)).Inc()
		}
		return nil, fmt.Errorf("%w: %v", ErrInvitationEmailFailed, err)
	}

	invitation.Organization = *org
	invitation.InvitedBy = *inviter
	return invitation, nil
}

// AcceptURL builds the dashboard link that accepts token.
func (s *InvitationService) AcceptURL(token string) string {
	return s.publicURL + "/invite/accept?token=" + url.QueryEscape(token)
}

// ListInvitations lists the organization's unaccepted invitations.
func (s *InvitationService) ListInvitations(ctx context.Context, actor policy.Actor, organizationID *uint64) ([]models.Invitation, error) {
	if !policy.CanManageInvitations(actor) {
		return nil, ErrForbidden
	}

	org, err := s.resolveOrganization(ctx, actor, organizationID)
	if err != nil {
		return nil, err
	}

	invitations, err := s.invitationRepo.ListUnaccepted(ctx, org.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list invitations: %w", err)
	}
	return invitations, nil
}

// IsExpired reports whether the invitation expired at the service clock.
func (s *InvitationService) IsExpired(invitation *models.Invitation) bool {
	return invitation.IsExpired(s.now())
}

// findUsable loads an invitation by token that is neither expired nor accepted.
func (s *InvitationService) findUsable(ctx context.Context, token string) (*models.Invitation, error) {
	if strings.TrimSpace(token) == "" {
		return nil, ErrInvalidInvitationToken
	}

	invitation, err := s.invitationRepo.FindByToken(ctx, token)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidInvitationToken
		}
		return nil, fmt.Errorf("failed to find invitation: %w", err)
	}

	if s.IsExpired(invitation) {
		return nil, ErrInvitationExpired
	}
	if invitation.IsAccepted() {
		return nil, ErrInvitationAlreadyAccepted
	}
	return invitation, nil
}

// InvitationPreview is what an invitee sees before accepting.
type InvitationPreview struct {
	Invitation *models.Invitation
	UserExists bool
}

// ValidateInvitation checks a token without consuming it.
func (s *InvitationService) ValidateInvitation(ctx context.Context, token string) (*InvitationPreview, error) {
	invitation, err := s.findUsable(ctx, token)
	if err != nil {
		return nil, err
	}

	_, err = s.userRepo.FindByEmail(ctx, invitation.Email)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("failed to check existing user: %w", err)
	}

	return &InvitationPreview{Invitation: invitation, UserExists: err == nil}, nil
}

// AcceptInvitationInput carries the token and, for new accounts, the profile.
type AcceptInvitationInput struct {
	Token    string
	Name     string
	Password string
}

// AcceptInvitation consumes the token. An existing account without an
// organization joins it; otherwise a verified account is created.
func (s *InvitationService) AcceptInvitation(ctx context.Context, input AcceptInvitationInput) (*models.User, error) {
	invitation, err := s.findUsable(ctx, input.Token)
	if err != nil {
		return nil, err
	}

	user, err := s.userRepo.FindByEmail(ctx, invitation.Email)
	switch {
	case err == nil:
		if user.OrganizationID != nil {
			return nil, ErrUserAlreadyInOrganization
		}
		if user.Role.Outranks(invitation.Role) {
			return nil, ErrInvitationWouldDemote
		}
	case errors.Is(err, gorm.ErrRecordNotFound):
		name := strings.TrimSpace(input.Name)
		if name == "" || input.Password == "" {
			return nil, ErrNameAndPasswordRequired
		}
		hashed, err := hashPassword(input.Password)
		if err != nil {
			return nil, err
		}
		now := s.now()
		user = &models.User{
			Name:            name,
			Email:           invitation.Email,
			PasswordHash:    &hashed,
			Status:          models.UserStatusActive,
			EmailVerifiedAt: &now,
		}
	default:
		return nil, fmt.Errorf("failed to check existing user: %w", err)
	}

	if err := s.invitationRepo.Accept(ctx, invitation, user); err != nil {
		switch {
		case errors.Is(err, repository.ErrInvitationConsumed):
			return nil, ErrInvitationAlreadyAccepted
		case errors.Is(err, repository.ErrUserAlreadyAttached):
			return nil, ErrUserAlreadyInOrganization
		case errors.Is(err, gorm.ErrDuplicatedKey):
			return nil, ErrEmailTaken
		default:
			return nil, fmt.Errorf("failed to accept invitation: %w", err)
		}
	}
	telemetry.InvitationsTotal.WithLabelValues("accepted", string(invitation.Role)).Inc()

	slog.InfoContext(ctx, "invitation accepted",
		"invitation_id", invitation.ID, "user_id", user.ID, "organization_id", invitation.OrganizationID)
	return user, nil
}

// RevokeInvitation deletes a pending invitation. Invitations of other
// organizations are reported as not found.
func (s *InvitationService) RevokeInvitation(ctx context.Context, actor policy.Actor, invitationID uint64) error {
	if !policy.CanManageInvitations(actor) {
		return ErrForbidden
	}

	invitation, err := s.invitationRepo.FindByID(ctx, invitationID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrInvitationNotFound
		}
		return fmt.Errorf("failed to find invitation: %w", err)
	}
	if !policy.CanAccessOrganization(actor, invitation.OrganizationID) {
		return ErrInvitationNotFound
	}
	if invitation.IsAccepted() {
		return ErrAcceptedInvitationRevoke
	}

	if err := s.invitationRepo.Delete(ctx, invitation.ID); err != nil {
		return fmt.Errorf("failed to revoke invitation: %w", err)
	}
	telemetry.InvitationsTotal.WithLabelValues("revoked", string(invitation.Role)).Inc()
	return nil
}
