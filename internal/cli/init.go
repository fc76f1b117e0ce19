// Package cli provides common process initialization shared by
// cmd/budget-receiver, cmd/budget-reset and cmd/budgetctl.
package cli

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/aws/aws-lambda-go/lambdacontext"
	"github.com/google/uuid"

	"budgetmail/internal/backend"
	"budgetmail/internal/config"
	blog "budgetmail/internal/log"
)

// SetupLogger initializes structured logging at the given level and format.
// Returns the configured logger and sets it as the default logger.
func SetupLogger(level, format string) *slog.Logger {
	logger := blog.New(blog.Config{
		Level:  blog.ParseLevel(level),
		Format: format,
		Writer: os.Stdout,
	})
	slog.SetDefault(logger)
	return logger
}

// LoadAndValidateConfig loads configuration and validates it.
// Returns the config or exits the process on validation failure.
func LoadAndValidateConfig() *config.Config {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}
	return cfg
}

// Bootstrap loads configuration, replaces the default logger with the
// configured one and builds the collaborators. It exits the process on
// failure.
func Bootstrap(ctx context.Context) (*config.Config, *slog.Logger, *backend.Collaborators) {
	cfg := LoadAndValidateConfig()
	logger := SetupLogger(cfg.LogLevel, cfg.LogFormat)

	collab, err := backend.NewFactory(blog.WithComponent(logger, blog.ComponentBackend)).Create(ctx, cfg)
	if err != nil {
		logger.Error("Failed to initialize backend", "error", err,
			"storage", cfg.StorageBackend,
			"notify", cfg.NotifyBackend)
		os.Exit(1)
	}
	logger.Info("Initialized backend",
		"storage", cfg.StorageBackend,
		"notify", cfg.NotifyBackend,
		"export", cfg.ExportEnabled(),
		"mirror", cfg.MirrorEnabled(),
		blog.FieldDryRun, cfg.DryRun)
	return cfg, logger, collab
}

// InvocationID returns the Lambda request id carried by ctx, or a fresh
// random id outside Lambda.
func InvocationID(ctx context.Context) string {
	if lc, ok := lambdacontext.FromContext(ctx); ok && lc.AwsRequestID != "" {
		return lc.AwsRequestID
	}
	return uuid.NewString()
}

// SignalContext returns a context cancelled on SIGINT or SIGTERM.
func SignalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}
