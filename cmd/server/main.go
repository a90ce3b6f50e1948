package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	redisStore "github.com/gin-contrib/sessions/redis"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/yukikurage/periodical/internal/config"
	"github.com/yukikurage/periodical/internal/database"
	"github.com/yukikurage/periodical/internal/handlers"
	"github.com/yukikurage/periodical/internal/mailer"
	"github.com/yukikurage/periodical/internal/media"
	"github.com/yukikurage/periodical/internal/middleware"
	"github.com/yukikurage/periodical/internal/repository"
	"github.com/yukikurage/periodical/internal/services"
	"github.com/yukikurage/periodical/internal/telemetry"
)

func main() {
	configPath := flag.String("config", "", "path to a YAML config file")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	telemetry.SetupLogger(cfg.Logging.Format, cfg.Logging.Level)
	gin.SetMode(cfg.Server.GinMode)

	// Connect to database
	if err := database.Connect(cfg); err != nil {
		fatal("failed to connect to database", err)
	}

	// Run migrations
	if err := database.Migrate(); err != nil {
		fatal("failed to run migrations", err)
	}
	db := database.GetDB()

	store, err := newSessionStore(cfg)
	if err != nil {
		fatal("failed to create session store", err)
	}

	userRepo := repository.NewUserRepository(db)
	orgRepo := repository.NewOrganizationRepository(db)
	gistRepo := repository.NewGistRepository(db)
	authService := services.NewAuthService(userRepo)

	if cfg.Bootstrap.SuperAdminEmail != "" {
		admin, err := authService.EnsureSuperAdmin(context.Background(), services.BootstrapInput{
			Email:    cfg.Bootstrap.SuperAdminEmail,
			Password: cfg.Bootstrap.SuperAdminPassword,
			Name:     cfg.Bootstrap.SuperAdminName,
		})
		if err != nil {
			fatal("failed to bootstrap super admin", err)
		}
		slog.Info("super admin ready", "user_id", admin.ID, "email", admin.Email)
	}

	limiter, closeLimiter, err := newRateLimiter(cfg)
	if err != nil {
		fatal("failed to create rate limiter", err)
	}
	defer closeLimiter()

	router := handlers.NewRouter(handlers.Dependencies{
		DB:                  db,
		SessionStore:        store,
		Logger:              slog.Default(),
		AuthService:         authService,
		OrganizationService: services.NewOrganizationService(orgRepo, userRepo),
		UserService:         services.NewUserService(userRepo, orgRepo),
		InvitationService: services.NewInvitationService(
			repository.NewInvitationRepository(db), orgRepo, userRepo,
			mailer.New(cfg.Mail), cfg.Server.PublicURL,
		),
		GistService:  services.NewGistService(gistRepo, userRepo),
		TopicService: services.NewTopicService(repository.NewTopicRepository(db), gistRepo),
		ImageKit:     media.NewImageKit(cfg.Media),
		RateLimiter:  limiter,
	})

	srv := &http.Server{
		Addr:              cfg.Server.GetAddress(),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		slog.Info("server starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			fatal("failed to start server", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down server")
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("server forced to shutdown", "error", err)
	}
}

func fatal(msg string, err error) {
	slog.Error(msg, "error", err)
	os.Exit(1)
}

// newSessionStore returns the Redis store, or the cookie store when
// session.store is "cookie".
func newSessionStore(cfg *config.Config) (sessions.Store, error) {
	var store sessions.Store
	if cfg.Session.Store == "cookie" {
		store = cookie.NewStore([]byte(cfg.Session.Secret))
	} else {
		s, err := redisStore.NewStore(
			cfg.Redis.PoolSize,
			"tcp",
			cfg.Redis.RedisAddr(),
			"", // username (empty for default user)
			cfg.Redis.Password,
			[]byte(cfg.Session.Secret),
		)
		if err != nil {
			return nil, err
		}
		store = s
	}

	store.Options(sessions.Options{
		Path:     "/",
		MaxAge:   cfg.Session.MaxAge,
		HttpOnly: true,
		Secure:   cfg.Server.IsProduction(),
		SameSite: http.SameSiteLaxMode,
	})
	return store, nil
}

// newRateLimiter builds the limiter for the public and login routes. A nil
// limiter disables rate limiting.
func newRateLimiter(cfg *config.Config) (middleware.Limiter, func(), error) {
	noop := func() {}
	if !cfg.RateLimit.Enabled {
		return nil, noop, nil
	}

	limits := middleware.RateLimitConfig{
		RequestsPerMinute: cfg.RateLimit.RequestsPerMinute,
		Burst:             cfg.RateLimit.Burst,
	}
	if cfg.RateLimit.Backend != "redis" {
		return middleware.NewMemoryLimiter(limits), noop, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.RedisAddr(),
		Password: cfg.Redis.Password,
		PoolSize: cfg.Redis.PoolSize,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, noop, err
	}
	return middleware.NewRedisLimiter(client, limits), func() { _ = client.Close() }, nil
}
