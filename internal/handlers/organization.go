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

type OrganizationHandler struct {
	orgService *services.OrganizationService
}

func NewOrganizationHandler(orgService *services.OrganizationService) *OrganizationHandler {
	return &OrganizationHandler{
		orgService: orgService,
	}
}

// GetOrganizations lists organizations, or returns one when ?slug= or ?id=
// is given.
func (h *OrganizationHandler) GetOrganizations(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()

	if slug := c.Query("slug"); slug != "" {
		summary, err := h.orgService.GetOrganizationBySlug(ctx, actor, slug)
		if err != nil {
			respondOrganizationError(c, err)
			return
		}
		utils.RespondSuccess(c, http.StatusOK, "", dto.ToOrganizationDetailDTO(*summary.Organization, summary.ActiveWriters))
		return
	}

	if c.Query("id") != "" {
		id, ok := parseIDQuery(c, "id")
		if !ok {
			return
		}
		summary, err := h.orgService.GetOrganization(ctx, actor, id)
		if err != nil {
			respondOrganizationError(c, err)
			return
		}
		utils.RespondSuccess(c, http.StatusOK, "", dto.ToOrganizationDetailDTO(*summary.Organization, summary.ActiveWriters))
		return
	}

	orgs, err := h.orgService.ListOrganizations(ctx, actor)
	if err != nil {
		respondOrganizationError(c, err)
		return
	}
	utils.RespondSuccess(c, http.StatusOK, "", dto.ToOrganizationDTOs(orgs))
}

// GetCurrentOrganization returns the caller's organization with seat usage.
func (h *OrganizationHandler) GetCurrentOrganization(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}

	summary, err := h.orgService.GetCurrentOrganization(c.Request.Context(), actor)
	if err != nil {
		respondOrganizationError(c, err)
		return
	}
	utils.RespondSuccess(c, http.StatusOK, "", dto.ToOrganizationDetailDTO(*summary.Organization, summary.ActiveWriters))
}

// CreateOrganization creates a new organization
func (h *OrganizationHandler) CreateOrganization(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}

	type CreateOrgRequest struct {
		Name        string `json:"name" binding:"required,max=255"`
		Description string `json:"description"`
		Logo        string `json:"logo" binding:"max=512"`
		PlanType    string `json:"plan_type" binding:"required,oneof=free premium enterprise"`
		MaxWriters  int    `json:"max_writers" binding:"gte=0"`
	}

	var req CreateOrgRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	org, err := h.orgService.CreateOrganization(c.Request.Context(), actor, services.CreateOrganizationInput{
		Name:        req.Name,
		Description: req.Description,
		Logo:        req.Logo,
		PlanType:    req.PlanType,
		MaxWriters:  req.MaxWriters,
	})
	if err != nil {
		respondOrganizationError(c, err)
		return
	}

	utils.RespondSuccess(c, http.StatusCreated, "Organization created", dto.ToOrganizationDTO(*org))
}

// UpdateOrganization updates the organization named by ?id=
func (h *OrganizationHandler) UpdateOrganization(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	id, ok := parseIDQuery(c, "id")
	if !ok {
		return
	}

	type UpdateOrgRequest struct {
		Name        *string `json:"name" binding:"omitempty,max=255"`
		Description *string `json:"description"`
		Logo        *string `json:"logo" binding:"omitempty,max=512"`
		PlanType    *string `json:"plan_type" binding:"omitempty,oneof=free premium enterprise"`
		MaxWriters  *int    `json:"max_writers"`
		Status      *string `json:"status" binding:"omitempty,oneof=active inactive"`
	}

	var req UpdateOrgRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	org, err := h.orgService.UpdateOrganization(c.Request.Context(), actor, id, services.UpdateOrganizationInput{
		Name:        req.Name,
		Description: req.Description,
		Logo:        req.Logo,
		PlanType:    req.PlanType,
		MaxWriters:  req.MaxWriters,
		Status:      req.Status,
	})
	if err != nil {
		respondOrganizationError(c, err)
		return
	}

	utils.RespondSuccess(c, http.StatusOK, "Organization updated", dto.ToOrganizationDTO(*org))
}

// DeleteOrganization deletes the organization named by ?id=
func (h *OrganizationHandler) DeleteOrganization(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	id, ok := parseIDQuery(c, "id")
	if !ok {
		return
	}

	if err := h.orgService.DeleteOrganization(c.Request.Context(), actor, id); err != nil {
		respondOrganizationError(c, err)
		return
	}

	utils.RespondSuccess(c, http.StatusOK, "Organization deleted successfully", nil)
}

func respondOrganizationError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrOrganizationExists):
		apierrors.Conflict(c, "Organization with this name already exists")
	case errors.Is(err, services.ErrInvalidOrganizationName),
		errors.Is(err, services.ErrInvalidPlanType),
		errors.Is(err, services.ErrInvalidMaxWriters),
		errors.Is(err, services.ErrInvalidOrganizationStatus):
		apierrors.BadRequest(c, sentence(err))
	default:
		respondCommonError(c, err)
	}
}
