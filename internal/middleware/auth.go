package middleware

import (
	"context"
	"errors"
	"log/slog"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/yukikurage/periodical/internal/constants"
	apierrors "github.com/yukikurage/periodical/internal/errors"
	"github.com/yukikurage/periodical/internal/policy"
	"github.com/yukikurage/periodical/internal/services"
)

// ActorResolver loads the caller's current role and organization.
type ActorResolver interface {
	ResolveActor(ctx context.Context, userID uint64) (policy.Actor, error)
}

// RequireAuth checks if the user is authenticated via session and loads the
// actor. The role is read from the database on every request so demotions
// and deactivations take effect immediately.
func RequireAuth(resolver ActorResolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		session := sessions.Default(c)
		userID, ok := toUserID(session.Get(constants.ContextKeyUserID))
		if !ok {
			apierrors.Unauthorized(c, "")
			return
		}

		actor, err := resolver.ResolveActor(c.Request.Context(), userID)
		if err != nil {
			if errors.Is(err, services.ErrUserNotFound) || errors.Is(err, services.ErrAccountInactive) {
				session.Clear()
				_ = session.Save()
				apierrors.Unauthorized(c, "")
				return
			}
			slog.ErrorContext(c.Request.Context(), "failed to resolve session user", "user_id", userID, "error", err)
			apierrors.InternalError(c, "")
			return
		}

		// Store user ID and actor in context for easy access in handlers
		c.Set(constants.ContextKeyUserID, userID)
		c.Set(constants.ContextKeyActor, actor)
		c.Next()
	}
}

// GetUserID retrieves the current user ID from context
func GetUserID(c *gin.Context) (uint64, bool) {
	userID, exists := c.Get(constants.ContextKeyUserID)
	if !exists {
		return 0, false
	}
	return toUserID(userID)
}

// GetActor retrieves the actor loaded by RequireAuth.
func GetActor(c *gin.Context) (policy.Actor, bool) {
	value, exists := c.Get(constants.ContextKeyActor)
	if !exists {
		return policy.Actor{}, false
	}
	actor, ok := value.(policy.Actor)
	return actor, ok
}

func toUserID(value interface{}) (uint64, bool) {
	switch v := value.(type) {
	case uint64:
		return v, v != 0
	case uint:
		return uint64(v), v != 0
	case int:
		if v <= 0 {
			return 0, false
		}
		return uint64(v), true
	case int64:
		if v <= 0 {
			return 0, false
		}
		return uint64(v), true
	default:
		return 0, false
	}
}
