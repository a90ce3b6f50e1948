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

type TopicHandler struct {
	topicService *services.TopicService
}

func NewTopicHandler(topicService *services.TopicService) *TopicHandler {
	return &TopicHandler{
		topicService: topicService,
	}
}

// CreateTopic appends a topic to a gist
func (h *TopicHandler) CreateTopic(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}

	type CreateTopicRequest struct {
		GistID  uint64 `json:"gist_id" binding:"required"`
		Title   string `json:"title" binding:"required"`
		Content string `json:"content"`
	}

	var req CreateTopicRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	topic, err := h.topicService.CreateTopic(c.Request.Context(), actor, services.CreateTopicInput{
		GistID:  req.GistID,
		Title:   req.Title,
		Content: req.Content,
	})
	if err != nil {
		respondTopicError(c, err)
		return
	}

	utils.RespondSuccess(c, http.StatusCreated, "Topic created", dto.ToTopicDTO(*topic))
}

// GetTopic returns a topic
func (h *TopicHandler) GetTopic(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	topic, err := h.topicService.GetTopic(c.Request.Context(), actor, id)
	if err != nil {
		respondTopicError(c, err)
		return
	}

	utils.RespondSuccess(c, http.StatusOK, "", dto.ToTopicDTO(*topic))
}

// UpdateTopic changes a topic's title or content
func (h *TopicHandler) UpdateTopic(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	type UpdateTopicRequest struct {
		Title   *string `json:"title"`
		Content *string `json:"content"`
	}

	var req UpdateTopicRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	topic, err := h.topicService.UpdateTopic(c.Request.Context(), actor, id, services.UpdateTopicInput{
		Title:   req.Title,
		Content: req.Content,
	})
	if err != nil {
		respondTopicError(c, err)
		return
	}

	utils.RespondSuccess(c, http.StatusOK, "Topic updated", dto.ToTopicDTO(*topic))
}

// DeleteTopic removes a topic; later topics move up one position
func (h *TopicHandler) DeleteTopic(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	if err := h.topicService.DeleteTopic(c.Request.Context(), actor, id); err != nil {
		respondTopicError(c, err)
		return
	}

	utils.RespondSuccess(c, http.StatusOK, "Topic deleted successfully", nil)
}

// ReorderTopics rewrites the order of every topic of one gist at once
func (h *TopicHandler) ReorderTopics(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}

	type topicOrder struct {
		ID    uint64 `json:"id" binding:"required"`
		Order *int   `json:"order" binding:"required"`
	}
	type ReorderRequest struct {
		Topics []topicOrder `json:"topics" binding:"required,min=1,dive"`
	}

	var req ReorderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	pairs := make([]services.TopicOrderInput, len(req.Topics))
	for i, t := range req.Topics {
		pairs[i] = services.TopicOrderInput{ID: t.ID, Order: *t.Order}
	}

	topics, err := h.topicService.ReorderTopics(c.Request.Context(), actor, pairs)
	if err != nil {
		respondTopicError(c, err)
		return
	}

	utils.RespondSuccess(c, http.StatusOK, "Topics reordered successfully", dto.ToTopicDTOs(topics))
}

func respondTopicError(c *gin.Context, err error) {
	var reorderErr *services.ReorderError

	switch {
	case errors.As(err, &reorderErr):
		apierrors.BadRequest(c, sentence(reorderErr))
	case errors.Is(err, services.ErrTopicNotFound),
		errors.Is(err, services.ErrGistNotFound):
		apierrors.NotFound(c, sentence(err))
	case errors.Is(err, services.ErrNotGistAuthor):
		apierrors.Forbidden(c, sentence(err))
	case errors.Is(err, services.ErrInvalidTopicTitle):
		apierrors.BadRequest(c, sentence(err))
	case errors.Is(err, services.ErrTopicsChanged):
		apierrors.Conflict(c, sentence(err))
	default:
		respondCommonError(c, err)
	}
}
