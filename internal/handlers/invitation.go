package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yukikurage/periodical/internal/dto"
	apierrors "github.com/yukikurage/periodical/internal/errors"
	"github.com/yukikurage/periodical/internal/services"
	"github.com/yukikurage/periodical/internal/utils"
)

// InvitationHandler serves the invitation lifecycle.
type InvitationHandler struct {
	invitationService *services.InvitationService
}

// NewInvitationHandler creates a new InvitationHandler.
func NewInvitationHandler(invitationService *services.InvitationService) *InvitationHandler {
	return &InvitationHandler{
		invitationService: invitationService,
	}
}

// CreateInvitation invites an email address into an organization. The
// organization comes from ?organization_id= or the body; members of an
// organization always invite into their own.
func (h *InvitationHandler) CreateInvitation(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	orgID, ok := parseOptionalIDQuery(c, "organization_id")
	if !ok {
		return
	}

	type CreateInvitationRequest struct {
		Email          string  `json:"email" binding:"required,email"`
		Role           string  `json:"role" binding:"required"`
		OrganizationID *uint64 `json:"organization_id"`
	}

	var req CreateInvitationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Email and role are required")
		return
	}
	if orgID == nil {
		orgID = req.OrganizationID
	}

	invitation, err := h.invitationService.CreateInvitation(c.Request.Context(), actor, services.CreateInvitationInput{
		OrganizationID: orgID,
		Email:          req.Email,
		Role:           req.Role,
	})
	if err != nil {
		respondInvitationError(c, err)
		return
	}

	utils.RespondSuccess(c, http.StatusCreated, "Invitation sent successfully", gin.H{
		"invitation": dto.ToInvitationDTO(*invitation, false),
	})
}

// ListInvitations lists the organization's unaccepted invitations.
func (h *InvitationHandler) ListInvitations(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	orgID, ok := parseOptionalIDQuery(c, "organization_id")
	if !ok {
		return
	}

	invitations, err := h.invitationService.ListInvitations(c.Request.Context(), actor, orgID)
	if err != nil {
		respondInvitationError(c, err)
		return
	}

	items := make([]dto.InvitationDTO, len(invitations))
	for i := range invitations {
		items[i] = dto.ToInvitationDTO(invitations[i], h.invitationService.IsExpired(&invitations[i]))
	}
	utils.RespondSuccess(c, http.StatusOK, "", gin.H{"invitations": items})
}

// RevokeInvitation deletes the pending invitation named by ?invitation_id=
func (h *InvitationHandler) RevokeInvitation(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	id, ok := parseIDQuery(c, "invitation_id")
	if !ok {
		return
	}

	if err := h.invitationService.RevokeInvitation(c.Request.Context(), actor, id); err != nil {
		respondInvitationError(c, err)
		return
	}

	utils.RespondSuccess(c, http.StatusOK, "Invitation revoked successfully", nil)
}

// ValidateInvitation previews an invitation by token. Public.
func (h *InvitationHandler) ValidateInvitation(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		apierrors.BadRequest(c, "Token is required")
		return
	}

	preview, err := h.invitationService.ValidateInvitation(c.Request.Context(), token)
	if err != nil {
		respondInvitationError(c, err)
		return
	}

	utils.RespondSuccess(c, http.StatusOK, "", dto.ToInvitationPreviewDTO(*preview.Invitation, preview.UserExists))
}

// AcceptInvitation consumes a token, creating the account when needed. Public.
func (h *InvitationHandler) AcceptInvitation(c *gin.Context) {
	type AcceptInvitationRequest struct {
		Token    string `json:"token" binding:"required"`
		Name     string `json:"name" binding:"max=255"`
		Password string `json:"password"`
	}

	var req AcceptInvitationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Token is required")
		return
	}

	user, err := h.invitationService.AcceptInvitation(c.Request.Context(), services.AcceptInvitationInput{
		Token:    req.Token,
		Name:     req.Name,
		Password: req.Password,
	})
	if err != nil {
		respondInvitationError(c, err)
		return
	}

	result := dto.AcceptInvitationDTO{UserID: user.ID}
	if user.OrganizationID != nil {
		result.OrganizationID = *user.OrganizationID
	}
	utils.RespondSuccess(c, http.StatusOK, "Invitation accepted successfully", result)
}

func respondInvitationError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrPendingInvitationExists),
		errors.Is(err, services.ErrUserInThisOrganization),
		errors.Is(err, services.ErrUserInAnotherOrganization),
		errors.Is(err, services.ErrEmailTaken),
		errors.Is(err, services.ErrInvitationWouldDemote):
		apierrors.Conflict(c, sentence(err))
	case errors.Is(err, services.ErrInvalidInvitationToken),
		errors.Is(err, services.ErrInvitationNotFound):
		apierrors.NotFound(c, sentence(err))
	case errors.Is(err, services.ErrInvalidInvitationRole),
		errors.Is(err, services.ErrEmailRequired),
		errors.Is(err, services.ErrInvitationExpired),
		errors.Is(err, services.ErrInvitationAlreadyAccepted),
		errors.Is(err, services.ErrUserAlreadyInOrganization),
		errors.Is(err, services.ErrNameAndPasswordRequired),
		errors.Is(err, services.ErrAcceptedInvitationRevoke):
		apierrors.BadRequest(c, sentence(err))
	case errors.Is(err, services.ErrInvitationEmailFailed):
		apierrors.InternalError(c, "Failed to send invitation email")
	default:
		respondCommonError(c, err)
	}
}
