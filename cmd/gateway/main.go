// Storefront gateway - fronts the storefront backend API with a
// synchronized admin list surface and a public discount surface.
// Designed for Cloud Run deployment with stateless operation.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/phovu7426/truyentranh/internal/backend"
	"github.com/phovu7426/truyentranh/internal/config"
	"github.com/phovu7426/truyentranh/internal/handler"
	"github.com/phovu7426/truyentranh/internal/middleware"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// Initialize structured logger
	logger := initLogger()

	// Load configuration
	ctx := context.Background()
	cfg, err := config.Load(ctx)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger.Info("configuration loaded",
		slog.String("environment", cfg.Environment),
		slog.String("backend", cfg.Backend.BaseURL),
		slog.Int("resources", len(cfg.Resources)),
	)

	// Create backend client
	client, err := backend.New(backend.Config{
		BaseURL:    cfg.Backend.BaseURL,
		Token:      cfg.Backend.Token,
		BrowserTLS: cfg.Backend.BrowserTLS,
	})
	if err != nil {
		return fmt.Errorf("creating backend client: %w", err)
	}

	// Refuse to start against a backend too old to speak our envelopes
	if cfg.Backend.MinVersion != "" {
		checkCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		info, err := client.CheckVersion(checkCtx, cfg.Backend.MinVersion)
		cancel()
		if err != nil {
			return fmt.Errorf("backend version gate: %w", err)
		}
		logger.Info("backend version verified",
			slog.String("version", info.Version),
			slog.String("minimum", cfg.Backend.MinVersion),
		)
	}

	// Create handler with the configured admin resources
	h := handler.New(client, cfg.Resources, []byte(cfg.Backend.AdminJWTSecret), logger)

	// Apply middleware chain: recovery → request id → logging → router
	// Recovery must be outermost to catch panics from logging middleware
	httpHandler := middleware.Chain(
		middleware.Recovery(logger),
		middleware.RequestID(),
		middleware.Logging(logger),
	)(h.Router())

	// Create HTTP server with timeouts
	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      httpHandler,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// Channel for shutdown signals
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	// Channel for server errors
	serverErr := make(chan error, 1)

	// Start server in goroutine
	go func() {
		logger.Info("server starting",
			slog.String("port", cfg.Port),
			slog.String("addr", server.Addr),
		)
		serverErr <- server.ListenAndServe()
	}()

	// Wait for shutdown signal or server error
	select {
	case err := <-serverErr:
		if err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}

	case sig := <-shutdown:
		logger.Info("shutdown signal received", slog.String("signal", sig.String()))

		// Give outstanding requests time to complete
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			// Force close if graceful shutdown fails
			server.Close()
			return fmt.Errorf("shutdown error: %w", err)
		}
	}

	logger.Info("server stopped")
	return nil
}

// initLogger creates a structured logger configured for the environment.
// Production uses JSON format for GCP Cloud Logging compatibility.
// Development uses text format for readability.
func initLogger() *slog.Logger {
	level := slog.LevelInfo
	if os.Getenv("LOG_LEVEL") == "debug" {
		level = slog.LevelDebug
	}

	opts := &slog.HandlerOptions{
		Level: level,
		// Add source location in debug mode
		AddSource: level == slog.LevelDebug,
	}

	// JSON for production (Cloud Logging compatible), text for development
	if os.Getenv("ENVIRONMENT") == "production" {
		return slog.New(slog.NewJSONHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, opts))
}
