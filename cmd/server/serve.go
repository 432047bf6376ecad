package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"

	"identity/backend/internal/httpserver"
	"identity/backend/internal/infrastructure/password"
	"identity/backend/internal/infrastructure/token"
	authusecase "identity/backend/internal/usecase/auth"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
)

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, logger, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	tokenManager, err := token.NewJWTManager(cfg.JWT.Secret, cfg.JWT.Expiry, cfg.JWT.Issuer)
	if err != nil {
		return err
	}
	hasher, err := password.NewBcryptHasher(cfg.Password.Cost, cfg.Password.Workers)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, users, err := openStore(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()
	if err := db.Migrate(ctx); err != nil {
		return fmt.Errorf("failed to run database migrations: %w", err)
	}

	authService := authusecase.NewService(users, hasher, tokenManager, logger)
	server := httpserver.NewServer(cfg.HTTP, authService, authService.VerifyToken, httpserver.Options{
		Logger:   logger,
		Registry: prometheus.NewRegistry(),
		Ready:    db.Ping,
	})

	errCh := make(chan error, 1)
	go func() {
		logger.Info("HTTP server listening", "addr", server.Addr(), "driver", cfg.Database.Driver)
		if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", "error", err)
		return err
	}
	logger.Info("graceful shutdown completed")
	return nil
}
