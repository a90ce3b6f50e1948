package handlers

import (
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/gin-gonic/gin"
	apierrors "github.com/yukikurage/periodical/internal/errors"
	"github.com/yukikurage/periodical/internal/middleware"
	"github.com/yukikurage/periodical/internal/models"
	"github.com/yukikurage/periodical/internal/policy"
	"github.com/yukikurage/periodical/internal/services"
)

// currentActor returns the actor loaded by RequireAuth or writes a 401.
func currentActor(c *gin.Context) (policy.Actor, bool) {
	actor, ok := middleware.GetActor(c)
	if !ok {
		apierrors.Unauthorized(c, "Not authenticated")
	}
	return actor, ok
}

// parseIDParam reads a positive integer path parameter or writes a 400.
func parseIDParam(c *gin.Context, name string) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		apierrors.BadRequest(c, fmt.Sprintf("Invalid %s", name))
		return 0, false
	}
	return id, true
}

// parseIDQuery reads a required positive integer query parameter.
func parseIDQuery(c *gin.Context, name string) (uint64, bool) {
	raw := c.Query(name)
	if raw == "" {
		apierrors.BadRequest(c, fmt.Sprintf("%s is required", name))
		return 0, false
	}
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		apierrors.BadRequest(c, fmt.Sprintf("Invalid %s", name))
		return 0, false
	}
	return id, true
}

// parseOptionalIDQuery reads an optional positive integer query parameter.
// The bool is false only when a 400 was written.
func parseOptionalIDQuery(c *gin.Context, name string) (*uint64, bool) {
	if c.Query(name) == "" {
		return nil, true
	}
	id, ok := parseIDQuery(c, name)
	if !ok {
		return nil, false
	}
	return &id, true
}

var dateLayouts = []string{time.RFC3339, "2006-01-02"}

// parseDate accepts RFC 3339 timestamps and plain dates.
func parseDate(value string) (time.Time, error) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid date %q", value)
}

// sentence upper-cases the first letter of a service error message.
func sentence(err error) string {
	msg := err.Error()
	r, size := utf8.DecodeRuneInString(msg)
	if r == utf8.RuneError {
		return msg
	}
	return string(unicode.ToUpper(r)) + msg[size:]
}

// respondCommonError maps errors shared by every service. Anything unknown
// is logged and reported as a 500.
func respondCommonError(c *gin.Context, err error) {
	var limitErr *policy.WriterLimitError
	var roleErr *services.RolePermissionError

	switch {
	case errors.As(err, &roleErr):
		apierrors.Forbidden(c, roleErr.Error())
	case errors.As(err, &limitErr):
		apierrors.Conflict(c, limitErr.Error())
	case errors.Is(err, services.ErrForbidden):
		apierrors.Forbidden(c, "")
	case errors.Is(err, services.ErrOrganizationRequired):
		apierrors.BadRequest(c, sentence(err))
	case errors.Is(err, models.ErrInvalidRole):
		apierrors.BadRequest(c, "Invalid role")
	case errors.Is(err, services.ErrPasswordTooShort):
		apierrors.BadRequest(c, passwordTooShortMessage())
	case errors.Is(err, services.ErrActorWithoutOrganization),
		errors.Is(err, services.ErrOrganizationNotFound),
		errors.Is(err, services.ErrUserNotFound):
		apierrors.NotFound(c, sentence(err))
	default:
		slog.ErrorContext(c.Request.Context(), "request failed",
			"request_id", middleware.GetRequestID(c), "path", c.FullPath(), "error", err)
		apierrors.InternalError(c, "")
	}
}
