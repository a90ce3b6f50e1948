package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	apierrors "github.com/yukikurage/periodical/internal/errors"
	"github.com/yukikurage/periodical/internal/media"
	"github.com/yukikurage/periodical/internal/middleware"
	"github.com/yukikurage/periodical/internal/utils"
)

// MediaHandler serves ImageKit upload signatures and file deletion for the
// topic editor.
type MediaHandler struct {
	imageKit *media.ImageKit
}

func NewMediaHandler(imageKit *media.ImageKit) *MediaHandler {
	return &MediaHandler{imageKit: imageKit}
}

// UploadAuth returns signed parameters for one browser upload.
func (h *MediaHandler) UploadAuth(c *gin.Context) {
	auth, err := h.imageKit.UploadAuth()
	if err != nil {
		respondMediaError(c, err)
		return
	}
	utils.RespondSuccess(c, http.StatusOK, "", auth)
}

// DeleteFile removes an uploaded image.
func (h *MediaHandler) DeleteFile(c *gin.Context) {
	var req struct {
		FileID string `json:"file_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "File id is required")
		return
	}

	if err := h.imageKit.DeleteFile(c.Request.Context(), req.FileID); err != nil {
		respondMediaError(c, err)
		return
	}
	utils.RespondSuccess(c, http.StatusOK, "File deleted successfully", nil)
}

func respondMediaError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, media.ErrNotConfigured):
		apierrors.ServiceUnavailable(c, "Media storage is not configured")
	case errors.Is(err, media.ErrFileIDRequired):
		apierrors.BadRequest(c, "File id is required")
	case errors.Is(err, media.ErrFileNotFound):
		apierrors.NotFound(c, "File not found")
	default:
		slog.ErrorContext(c.Request.Context(), "media request failed",
			"request_id", middleware.GetRequestID(c), "error", err)
		apierrors.InternalError(c, "Failed to delete file")
	}
}
