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

// UserHandler serves member administration.
type UserHandler struct {
	userService *services.UserService
}

// NewUserHandler creates a new UserHandler.
func NewUserHandler(userService *services.UserService) *UserHandler {
	return &UserHandler{
		userService: userService,
	}
}

// ListUsers returns a page of organization members.
func (h *UserHandler) ListUsers(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	orgID, ok := parseOptionalIDQuery(c, "organization_id")
	if !ok {
		return
	}

	params := utils.GetPaginationParams(c)
	users, total, err := h.userService.ListUsers(c.Request.Context(), actor, orgID, params)
	if err != nil {
		respondUserError(c, err)
		return
	}

	utils.RespondSuccess(c, http.StatusOK, "", dto.ToUserListResponse(users, utils.NewPaginationResponse(params, total)))
}

// GetUser returns one member.
func (h *UserHandler) GetUser(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	user, err := h.userService.GetUser(c.Request.Context(), actor, id)
	if err != nil {
		respondUserError(c, err)
		return
	}

	utils.RespondSuccess(c, http.StatusOK, "", dto.ToUserDTO(*user))
}

// UpdateUser changes a member's name, role or status.
func (h *UserHandler) UpdateUser(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	type UpdateUserRequest struct {
		Name   *string `json:"name" binding:"omitempty,max=255"`
		Role   *string `json:"role"`
		Status *string `json:"status"`
	}

	var req UpdateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	user, err := h.userService.UpdateUser(c.Request.Context(), actor, id, services.UpdateUserInput{
		Name:   req.Name,
		Role:   req.Role,
		Status: req.Status,
	})
	if err != nil {
		respondUserError(c, err)
		return
	}

	utils.RespondSuccess(c, http.StatusOK, "User updated", dto.ToUserDTO(*user))
}

// RemoveFromOrganization detaches a member from their organization.
func (h *UserHandler) RemoveFromOrganization(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	if err := h.userService.RemoveFromOrganization(c.Request.Context(), actor, id); err != nil {
		respondUserError(c, err)
		return
	}

	utils.RespondSuccess(c, http.StatusOK, "User removed from organization", nil)
}

func respondUserError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrCannotChangeSelf):
		apierrors.Forbidden(c, sentence(err))
	case errors.Is(err, services.ErrInvalidUserStatus),
		errors.Is(err, services.ErrUserNotInOrganization),
		errors.Is(err, services.ErrNameRequired):
		apierrors.BadRequest(c, sentence(err))
	default:
		respondCommonError(c, err)
	}
}
