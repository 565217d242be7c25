// Package main provides the entry point for the interview prep backend server.
// It loads configuration, wires services through the DI container and serves the HTTP API.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"interviewprep/internal/config"
	"interviewprep/internal/di"
	"interviewprep/internal/handlers"
	"interviewprep/internal/observability"
	contextutils "interviewprep/internal/utils"
	"interviewprep/internal/version"
)

// Application encapsulates the main application logic and can be tested
type Application struct {
	container di.ServiceContainerInterface
	handler   http.Handler
}

// NewApplication creates a new application instance
func NewApplication(container di.ServiceContainerInterface) (*Application, error) {
	userService, err := container.GetUserService()
	if err != nil {
		return nil, contextutils.WrapError(err, "failed to get user service")
	}

	sessionService, err := container.GetSessionService()
	if err != nil {
		return nil, contextutils.WrapError(err, "failed to get session service")
	}

	questionService, err := container.GetQuestionService()
	if err != nil {
		return nil, contextutils.WrapError(err, "failed to get question service")
	}

	aiService, err := container.GetAIService()
	if err != nil {
		return nil, contextutils.WrapError(err, "failed to get AI service")
	}

	collector, registry := container.GetMetrics()

	router := handlers.NewRouter(
		container.GetConfig(),
		container.GetVerifier(),
		container.GetIssuer(),
		userService,
		sessionService,
		questionService,
		aiService,
		container.GetAIRateLimiter(),
		collector,
		registry,
		container.GetDatabase(),
		container.GetLogger(),
	)

	return &Application{
		container: container,
		handler:   router,
	}, nil
}

// Run serves HTTP on addr until ctx is cancelled, then drains in-flight requests
// for at most shutdownTimeout.
func (a *Application) Run(ctx context.Context, addr string, shutdownTimeout time.Duration) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           a.handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case err := <-serverErr:
		if err != nil {
			return contextutils.WrapError(err, "server failed")
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return contextutils.WrapError(err, "failed to drain server")
	}
	return nil
}

// Shutdown releases the container's resources
func (a *Application) Shutdown(ctx context.Context) error {
	return a.container.Shutdown(ctx)
}

func main() {
	os.Exit(run())
}

func run() int {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.NewConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		return 1
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Invalid configuration: %v\n", err)
		return 1
	}

	_, _, logger, shutdownObservability, err := observability.SetupObservability(&cfg.OpenTelemetry, cfg.OpenTelemetry.ServiceName, observability.ParseLevel(cfg.Server.LogLevel))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize observability: %v\n", err)
		return 1
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownObservability(shutdownCtx); err != nil {
			fmt.Fprintf(os.Stderr, "Error shutting down observability: %v\n", err)
		}
	}()

	logger.Info(ctx, "Starting interview prep backend", map[string]interface{}{
		"port":     cfg.Server.Port,
		"logLevel": cfg.Server.LogLevel,
		"version":  version.Version,
		"provider": cfg.AI.Provider,
	})

	container := di.NewServiceContainer(cfg, logger)
	if err := container.Initialize(ctx); err != nil {
		logger.Error(ctx, "Failed to initialize services", err, nil)
		return 1
	}

	app, err := NewApplication(container)
	if err != nil {
		logger.Error(ctx, "Failed to create application", err, nil)
		_ = container.Shutdown(context.Background())
		return 1
	}

	exitCode := 0
	if err := app.Run(ctx, ":"+cfg.Server.Port, cfg.Server.ShutdownTimeout); err != nil {
		logger.Error(ctx, "Application failed", err, nil)
		exitCode = 1
	} else {
		logger.Info(ctx, "Received shutdown signal, shutting down gracefully", nil)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := app.Shutdown(shutdownCtx); err != nil {
		logger.Error(ctx, "Error during application shutdown", err, nil)
		return 1
	}

	logger.Info(ctx, "Shutdown completed successfully", nil)
	return exitCode
}
