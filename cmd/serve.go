package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/weaverai/weaver/internal/app"
	"github.com/weaverai/weaver/internal/config"
)

// HTTP server timeouts. Write timeout is generous because ingestion
// requests hold the connection while fetching from GitHub or Slack.
const (
	readHeaderTimeout = 10 * time.Second
	readTimeout       = 30 * time.Second
	writeTimeout      = 2 * time.Minute
	idleTimeout       = 2 * time.Minute
	shutdownTimeout   = 30 * time.Second
)

// runServe starts the HTTP API server and blocks until SIGINT/SIGTERM.
func runServe() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if err := config.RequireAPIKey(); err != nil {
		return err
	}

	addr, err := parseServeAddr(os.Args[2:], cfg.ListenAddr())
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger := initLogger()
	slog.SetDefault(logger)

	a, err := app.Setup(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("setup application: %w", err)
	}
	defer func() {
		if err := a.Close(); err != nil {
			logger.Warn("application shutdown", "error", err)
		}
	}()

	go pruneSessions(ctx, a, logger)

	srv := &http.Server{
		Addr:              addr,
		Handler:           a.Server.Handler(),
		ReadHeaderTimeout: readHeaderTimeout,
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http server listening", "addr", addr, "version", AppVersion)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown http server: %w", err)
	}

	logger.Info("server stopped")
	return nil
}

// pruneSessions removes expired and revoked sessions every hour until
// ctx is cancelled.
func pruneSessions(ctx context.Context, a *app.App, logger *slog.Logger) {
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := a.Auth.PruneSessions(ctx)
			if err != nil {
				logger.Warn("session prune failed", "error", err)
				continue
			}
			if n > 0 {
				logger.Debug("pruned expired sessions", "count", n)
			}
		}
	}
}
