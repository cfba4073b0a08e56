package app

import (
	"context"
	"errors"
	"net/http"

	"kluvs-auth/internal/config"
	"kluvs-auth/internal/logger"
)

// App owns the HTTP server and the cleanup chain assembled during
// wiring (redis connection, background caches).
type App struct {
	server  *http.Server
	cleanup func() error
}

func New(ctx context.Context, cfg config.Config) (*App, error) {
	router, cleanup, err := setupHTTP(ctx, cfg)
	if err != nil {
		return nil, err
	}

	return &App{
		server: &http.Server{
			Addr:    ":" + cfg.AppPort,
			Handler: router,
		},
		cleanup: cleanup,
	}, nil
}

// Run blocks serving requests. A graceful Shutdown is not reported as
// an error.
func (a *App) Run() error {
	logger.Info("listening", map[string]any{"addr": a.server.Addr})

	if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests, then tears down the wiring.
func (a *App) Shutdown(ctx context.Context) error {
	if err := a.server.Shutdown(ctx); err != nil {
		return err
	}
	if a.cleanup == nil {
		return nil
	}
	return a.cleanup()
}
