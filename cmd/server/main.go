// Command server runs the caption board HTTP and websocket API.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"captionboard/internal/bootstrap"
	"captionboard/internal/config"
	"captionboard/internal/server"

	"go.uber.org/zap"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// The schema is owned by cmd/migrate; readiness reports missing tables.
	rt, err := bootstrap.InitRuntime(context.Background(), cfg, bootstrap.Options{
		Redis:   true,
		Tracing: true,
	})
	if err != nil {
		log.Fatalf("Failed to initialize runtime: %v", err)
	}
	logger := zap.L()

	srv, err := server.NewServerWithDeps(cfg, rt.DB, rt.Redis)
	if err != nil {
		logger.Fatal("failed to create server", zap.Error(err))
	}

	// Graceful shutdown
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigChan

		logger.Info("shutting down server", zap.String("signal", sig.String()))
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			logger.Warn("server shutdown error", zap.Error(err))
		}
		if err := rt.Shutdown(ctx); err != nil {
			logger.Warn("tracing shutdown error", zap.Error(err))
		}
	}()

	if err := srv.Start(); err != nil {
		logger.Fatal("server stopped", zap.Error(err))
	}
	_ = logger.Sync()
}
