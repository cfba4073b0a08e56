package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"kluvs-auth/internal/app"
	"kluvs-auth/internal/config"
	"kluvs-auth/internal/logger"
)

const shutdownGrace = 10 * time.Second

func main() {
	cfg := config.Load()
	logger.Init(cfg.AppEnv)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	application, err := app.New(ctx, cfg)
	if err != nil {
		logger.Fatal("failed to initialize app", map[string]any{
			"error": err.Error(),
		})
	}

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- application.Run()
	}()

	select {
	case err := <-serveErr:
		if err != nil {
			logger.Fatal("http server failed", map[string]any{
				"error": err.Error(),
			})
		}
		return
	case <-ctx.Done():
		logger.Info("shutdown signal received", nil)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()

	if err := application.Shutdown(shutdownCtx); err != nil {
		logger.Fatal("graceful shutdown failed", map[string]any{
			"error": err.Error(),
		})
	}

	if err := <-serveErr; err != nil {
		logger.Fatal("http server failed", map[string]any{
			"error": err.Error(),
		})
	}

	logger.Info("kluvs-auth stopped cleanly", nil)
}
