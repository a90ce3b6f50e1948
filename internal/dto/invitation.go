package dto

import (
	"time"

	"github.com/yukikurage/periodical/internal/models"
)

// InvitationDTO represents an invitation in API responses. The token is
// never exposed.
type InvitationDTO struct {
	ID             uint64                  `json:"id"`
	Email          string                  `json:"email"`
	Role           models.Role             `json:"role"`
	Status         models.InvitationStatus `json:"status"`
	OrganizationID uint64                  `json:"organization_id"`
	ExpiresAt      time.Time               `json:"expires_at"`
	AcceptedAt     *time.Time              `json:"accepted_at"`
	Expired        bool                    `json:"expired"`
	CreatedAt      time.Time               `json:"created_at"`
	InvitedBy      *UserRefDTO             `json:"invited_by,omitempty"`
}

// InvitationPreviewDTO is returned by the public validate endpoint
type InvitationPreviewDTO struct {
	Email        string             `json:"email"`
	Role         models.Role        `json:"role"`
	ExpiresAt    time.Time          `json:"expires_at"`
	Organization OrganizationRefDTO `json:"organization"`
	InvitedBy    UserRefDTO         `json:"invited_by"`
	UserExists   bool               `json:"user_exists"`
}

// AcceptInvitationDTO is returned after a successful acceptance
type AcceptInvitationDTO struct {
	UserID         uint64 `json:"user_id"`
	OrganizationID uint64 `json:"organization_id"`
}

// ToInvitationDTO converts an Invitation model to InvitationDTO
func ToInvitationDTO(invitation models.Invitation, expired bool) InvitationDTO {
	dto := InvitationDTO{
		ID:             invitation.ID,
		Email:          invitation.Email,
		Role:           invitation.Role,
		Status:         invitation.Status,
		OrganizationID: invitation.OrganizationID,
		ExpiresAt:      invitation.ExpiresAt,
		AcceptedAt:     invitation.AcceptedAt,
		Expired:        expired,
		CreatedAt:      invitation.CreatedAt,
	}

	// Include inviter if preloaded
	if invitation.InvitedBy.ID != 0 {
		inviter := ToUserRefDTO(invitation.InvitedBy)
		dto.InvitedBy = &inviter
	}

	return dto
}

// ToInvitationPreviewDTO converts a validated invitation for the invitee
func ToInvitationPreviewDTO(invitation models.Invitation, userExists bool) InvitationPreviewDTO {
	return InvitationPreviewDTO{
		Email:        invitation.Email,
		Role:         invitation.Role,
		ExpiresAt:    invitation.ExpiresAt,
		Organization: ToOrganizationRefDTO(invitation.Organization),
		InvitedBy:    ToUserRefDTO(invitation.InvitedBy),
		UserExists:   userExists,
	}
}
