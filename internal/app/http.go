package app

import (
	"context"
	"errors"

	"kluvs-auth/internal/auth/handler"
	"kluvs-auth/internal/auth/provider"
	"kluvs-auth/internal/auth/provider/discord"
	"kluvs-auth/internal/auth/provider/google"
	"kluvs-auth/internal/authstate"
	"kluvs-auth/internal/config"
	"kluvs-auth/internal/logger"
	"kluvs-auth/internal/member"
	"kluvs-auth/internal/middleware"
	"kluvs-auth/internal/session"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

func setupHTTP(ctx context.Context, cfg config.Config) (*gin.Engine, func() error, error) {

	infra, err := setupInfra(cfg)
	if err != nil {
		return nil, nil, err
	}

	// ----------------------------
	// Dependencies
	// ----------------------------

	sessionStore := session.NewRedisStore(infra.Redis.Client)
	hub := session.NewHub()

	registry, err := setupProviders(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}

	memberGateway := member.NewGateway(cfg.ClubAPIBaseURL, cfg.ClubAPIServiceKey)

	states := authstate.NewRegistry(
		sessionStore,
		hub,
		registry,
		memberGateway,
		cfg.SessionTTL,
	)

	authHandler := handler.NewHandler(
		registry,
		sessionStore,
		states,
		memberGateway,
		cfg.FrontendOrigin,
		cfg.SessionTTL,
	)

	authMiddleware := middleware.NewAuthMiddleware(states)

	// ----------------------------
	// Router
	// ----------------------------

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestID())

	corsCfg := cors.DefaultConfig()
	corsCfg.AllowOrigins = []string{cfg.FrontendOrigin}
	corsCfg.AllowCredentials = true
	corsCfg.AllowMethods = []string{"GET", "POST", "PATCH", "OPTIONS"}
	router.Use(cors.New(corsCfg))

	// ----------------------------
	// Routes
	// ----------------------------

	authHandler.RegisterRoutes(router, authMiddleware)

	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	// ----------------------------
	// Cleanup
	// ----------------------------

	return router, func() error {
		return infra.Redis.Close()
	}, nil
}

// setupProviders registers every OAuth provider with credentials
// configured. At least one must be usable.
func setupProviders(ctx context.Context, cfg config.Config) (*provider.Registry, error) {
	var list []provider.OAuthProvider

	if cfg.DiscordClientID != "" {
		discordProvider, err := discord.New(
			cfg.DiscordClientID,
			cfg.DiscordClientSecret,
			cfg.DiscordRedirectURL,
		)
		if err != nil {
			return nil, err
		}
		list = append(list, discordProvider)
	}

	if cfg.GoogleClientID != "" {
		googleProvider, err := google.New(
			ctx,
			cfg.GoogleClientID,
			cfg.GoogleClientSecret,
			cfg.GoogleRedirectURL,
		)
		if err != nil {
			return nil, err
		}
		list = append(list, googleProvider)
	}

	if len(list) == 0 {
		return nil, errors.New("no oauth providers configured")
	}

	logger.Info("oauth providers registered", map[string]any{
		"count": len(list),
	})

	return provider.NewRegistry(list...), nil
}
