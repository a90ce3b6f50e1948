package handlers

import (
	"log/slog"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/yukikurage/periodical/internal/constants"
	"github.com/yukikurage/periodical/internal/media"
	"github.com/yukikurage/periodical/internal/middleware"
	"github.com/yukikurage/periodical/internal/services"
	"gorm.io/gorm"
)

// Dependencies are the collaborators the router wires into handlers.
type Dependencies struct {
	DB                  *gorm.DB
	SessionStore        sessions.Store
	Logger              *slog.Logger
	AuthService         *services.AuthService
	OrganizationService *services.OrganizationService
	UserService         *services.UserService
	InvitationService   *services.InvitationService
	GistService         *services.GistService
	TopicService        *services.TopicService
	// ImageKit backs /api/imagekit; nil or unconfigured answers 503.
	ImageKit *media.ImageKit
	// RateLimiter guards login, signup and the public invitation routes.
	// nil disables rate limiting.
	RateLimiter middleware.Limiter
}

// NewRouter builds the gin engine with every route under /api.
func NewRouter(deps Dependencies) *gin.Engine {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Metrics())
	r.Use(middleware.Logger(logger))
	r.Use(sessions.Sessions(constants.SessionCookieName, deps.SessionStore))

	limited := func(c *gin.Context) { c.Next() }
	if deps.RateLimiter != nil {
		limited = middleware.RateLimit(deps.RateLimiter)
	}
	requireAuth := middleware.RequireAuth(deps.AuthService)

	authHandler := NewAuthHandler(deps.AuthService)
	orgHandler := NewOrganizationHandler(deps.OrganizationService)
	userHandler := NewUserHandler(deps.UserService)
	invitationHandler := NewInvitationHandler(deps.InvitationService)
	gistHandler := NewGistHandler(deps.GistService)
	topicHandler := NewTopicHandler(deps.TopicService)
	mediaHandler := NewMediaHandler(deps.ImageKit)
	healthHandler := NewHealthHandler(deps.DB)

	r.GET("/health", healthHandler.Health)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/api")
	{
		// Auth routes (public)
		auth := api.Group("/auth")
		{
			auth.POST("/signup", limited, authHandler.Signup)
			auth.POST("/login", limited, authHandler.Login)
			auth.POST("/logout", authHandler.Logout)
			auth.GET("/me", requireAuth, authHandler.GetCurrentUser)
			auth.PUT("/password", requireAuth, authHandler.ChangePassword)
		}

		orgs := api.Group("/organizations")
		orgs.Use(requireAuth)
		{
			orgs.GET("", orgHandler.GetOrganizations)
			orgs.POST("", orgHandler.CreateOrganization)
			orgs.PUT("", orgHandler.UpdateOrganization)
			orgs.DELETE("", orgHandler.DeleteOrganization)
			orgs.GET("/current", orgHandler.GetCurrentOrganization)
		}

		users := api.Group("/users")
		users.Use(requireAuth)
		{
			users.GET("", userHandler.ListUsers)
			users.GET("/:id", userHandler.GetUser)
			users.PUT("/:id", userHandler.UpdateUser)
			users.DELETE("/:id/organization", userHandler.RemoveFromOrganization)
		}

		invitations := api.Group("/invitations")
		{
			// Public: the invitee has no account or session yet
			invitations.GET("/validate", limited, invitationHandler.ValidateInvitation)
			invitations.POST("/accept", limited, invitationHandler.AcceptInvitation)

			invitations.POST("", requireAuth, invitationHandler.CreateInvitation)
			invitations.GET("", requireAuth, invitationHandler.ListInvitations)
			invitations.DELETE("", requireAuth, invitationHandler.RevokeInvitation)
		}

		gists := api.Group("/gist")
		gists.Use(requireAuth)
		{
			gists.GET("", gistHandler.ListGists)
			gists.POST("", gistHandler.CreateGist)

			gists.POST("/topic", topicHandler.CreateTopic)
			gists.PATCH("/topic/reorder", topicHandler.ReorderTopics)
			gists.GET("/topic/:id", topicHandler.GetTopic)
			gists.PUT("/topic/:id", topicHandler.UpdateTopic)
			gists.DELETE("/topic/:id", topicHandler.DeleteTopic)

			gists.GET("/:slug", gistHandler.GetGist)
			gists.PUT("/:slug", gistHandler.UpdateGist)
			gists.DELETE("/:slug", gistHandler.DeleteGist)
		}

		imageKit := api.Group("/imagekit")
		imageKit.Use(requireAuth)
		{
			imageKit.GET("/auth", mediaHandler.UploadAuth)
			imageKit.DELETE("/delete", mediaHandler.DeleteFile)
		}
	}

	return r
}
