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

type GistHandler struct {
	gistService *services.GistService
}

func NewGistHandler(gistService *services.GistService) *GistHandler {
	return &GistHandler{
		gistService: gistService,
	}
}

// ListGists returns a page of gists. Writers only see their own.
func (h *GistHandler) ListGists(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	orgID, ok := parseOptionalIDQuery(c, "organization_id")
	if !ok {
		return
	}

	params := utils.GetPaginationParams(c)
	gists, total, err := h.gistService.ListGists(c.Request.Context(), actor, orgID, params)
	if err != nil {
		respondGistError(c, err)
		return
	}

	utils.RespondSuccess(c, http.StatusOK, "", dto.ToGistListResponse(gists, utils.NewPaginationResponse(params, total)))
}

// CreateGist creates a gist, optionally on behalf of another author
func (h *GistHandler) CreateGist(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}

	type CreateGistRequest struct {
		Title       string  `json:"title" binding:"required"`
		Description string  `json:"description"`
		From        string  `json:"from" binding:"required"`
		To          string  `json:"to" binding:"required"`
		AuthorID    *uint64 `json:"author_id"`
	}

	var req CreateGistRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	from, err := parseDate(req.From)
	if err != nil {
		apierrors.BadRequest(c, "Invalid from date")
		return
	}
	to, err := parseDate(req.To)
	if err != nil {
		apierrors.BadRequest(c, "Invalid to date")
		return
	}

	gist, err := h.gistService.CreateGist(c.Request.Context(), actor, services.CreateGistInput{
		Title:       req.Title,
		Description: req.Description,
		From:        from,
		To:          to,
		AuthorID:    req.AuthorID,
	})
	if err != nil {
		respondGistError(c, err)
		return
	}

	utils.RespondSuccess(c, http.StatusCreated, "Gist created", dto.ToGistDTO(*gist))
}

// GetGist returns a gist with its ordered topics
func (h *GistHandler) GetGist(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}

	gist, err := h.gistService.GetGist(c.Request.Context(), actor, c.Param("slug"))
	if err != nil {
		respondGistError(c, err)
		return
	}

	utils.RespondSuccess(c, http.StatusOK, "", dto.ToGistDTO(*gist))
}

// UpdateGist updates a gist's fields
func (h *GistHandler) UpdateGist(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}

	type UpdateGistRequest struct {
		Title       *string `json:"title"`
		Description *string `json:"description"`
		From        *string `json:"from"`
		To          *string `json:"to"`
	}

	var req UpdateGistRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	input := services.UpdateGistInput{
		Title:       req.Title,
		Description: req.Description,
	}
	if req.From != nil {
		from, err := parseDate(*req.From)
		if err != nil {
			apierrors.BadRequest(c, "Invalid from date")
			return
		}
		input.From = &from
	}
	if req.To != nil {
		to, err := parseDate(*req.To)
		if err != nil {
			apierrors.BadRequest(c, "Invalid to date")
			return
		}
		input.To = &to
	}

	gist, err := h.gistService.UpdateGist(c.Request.Context(), actor, c.Param("slug"), input)
	if err != nil {
		respondGistError(c, err)
		return
	}

	utils.RespondSuccess(c, http.StatusOK, "Gist updated", dto.ToGistDTO(*gist))
}

// DeleteGist deletes a gist and its topics
func (h *GistHandler) DeleteGist(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}

	if err := h.gistService.DeleteGist(c.Request.Context(), actor, c.Param("slug")); err != nil {
		respondGistError(c, err)
		return
	}

	utils.RespondSuccess(c, http.StatusOK, "Gist deleted successfully", nil)
}

func respondGistError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrGistNotFound),
		errors.Is(err, services.ErrAuthorNotFound):
		apierrors.NotFound(c, sentence(err))
	case errors.Is(err, services.ErrInvalidGistTitle),
		errors.Is(err, services.ErrInvalidGistDates):
		apierrors.BadRequest(c, sentence(err))
	default:
		respondCommonError(c, err)
	}
}

