// Package di provides dependency injection container for managing service lifecycle and dependencies.
package di

import (
	"context"
	"database/sql"
	"sync"

	"interviewprep/internal/auth"
	"interviewprep/internal/config"
	"interviewprep/internal/database"
	"interviewprep/internal/metrics"
	"interviewprep/internal/middleware"
	"interviewprep/internal/observability"
	"interviewprep/internal/services"
	contextutils "interviewprep/internal/utils"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// ServiceContainerInterface defines the interface for service containers
type ServiceContainerInterface interface {
	GetService(name string) (interface{}, error)
	GetUserService() (services.UserServiceInterface, error)
	GetSessionService() (services.SessionServiceInterface, error)
	GetQuestionService() (services.QuestionServiceInterface, error)
	GetAIService() (services.AIServiceInterface, error)
	GetVerifier() *auth.Verifier
	GetIssuer() *auth.Issuer
	GetAIRateLimiter() *middleware.RateLimiter
	GetMetrics() (*metrics.Collector, *prometheus.Registry)
	GetDatabase() *sql.DB
	GetConfig() *config.Config
	GetLogger() *observability.Logger
	Initialize(ctx context.Context) error
	Shutdown(ctx context.Context) error
}

// ServiceContainer manages all service dependencies and lifecycle
type ServiceContainer struct {
	cfg       *config.Config
	logger    *observability.Logger
	dbManager *database.Manager
	db        *sql.DB

	registry  *prometheus.Registry
	collector *metrics.Collector
	verifier  *auth.Verifier
	issuer    *auth.Issuer
	aiLimiter *middleware.RateLimiter

	services      map[string]interface{}
	mu            sync.RWMutex
	shutdownFuncs []func(context.Context) error
}

// NewServiceContainer creates a new dependency injection container
func NewServiceContainer(cfg *config.Config, logger *observability.Logger) *ServiceContainer {
	return &ServiceContainer{
		cfg:      cfg,
		logger:   logger,
		services: make(map[string]interface{}),
	}
}

// Initialize sets up all services and their dependencies
func (sc *ServiceContainer) Initialize(ctx context.Context) error {
	sc.mu.Lock()
	defer sc.mu.Unlock()

	sc.dbManager = database.NewManager(sc.logger)
	db, err := sc.dbManager.InitDB(ctx, sc.cfg.Database)
	if err != nil {
		return contextutils.WrapError(err, "failed to initialize database")
	}
	sc.db = db
	sc.shutdownFuncs = append(sc.shutdownFuncs, func(_ context.Context) error {
		return db.Close()
	})

	if err := sc.initializeServices(ctx); err != nil {
		_ = sc.cleanup(ctx)
		return contextutils.WrapError(err, "failed to initialize services")
	}
	return nil
}

// initializeServices builds everything that sits on top of the database handle
func (sc *ServiceContainer) initializeServices(ctx context.Context) error {
	sc.registry = prometheus.NewRegistry()
	sc.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	sc.collector = metrics.NewCollector(sc.registry)

	sc.verifier = auth.NewVerifier(sc.cfg.Auth.JWTSecret, sc.cfg.Auth.Issuer)
	sc.issuer = auth.NewIssuer(sc.cfg.Auth.JWTSecret, sc.cfg.Auth.Issuer, sc.cfg.Auth.TokenTTL)

	sc.services["user"] = services.NewUserServiceWithLogger(sc.db, sc.logger)
	sc.services["session"] = services.NewSessionService(sc.db, sc.logger)
	sc.services["question"] = services.NewQuestionService(sc.db, sc.logger)

	aiService, err := services.NewAIService(sc.cfg, sc.logger, sc.collector)
	if err != nil {
		return err
	}
	sc.shutdownFuncs = append(sc.shutdownFuncs, func(_ context.Context) error {
		aiService.Close()
		return nil
	})
	sc.services["ai"] = aiService

	sc.aiLimiter = middleware.NewRateLimiter(
		middleware.PerMinute(sc.cfg.AI.RateLimitPerMinute, sc.cfg.AI.RateLimitBurst), sc.logger)
	sc.shutdownFuncs = append(sc.shutdownFuncs, func(_ context.Context) error {
		sc.aiLimiter.Stop()
		return nil
	})

	sc.logger.Info(ctx, "Services initialized", map[string]interface{}{
		"ai_provider":    client.Provider(),
		"ai_model":       sc.cfg.AI.Model,
		"ai_api_key":     contextutils.MaskAPIKey(sc.cfg.AI.APIKey),
		"max_concurrent": sc.cfg.AI.MaxConcurrent,
	})
	return nil
}

// GetService retrieves a service by name with type assertion
func (sc *ServiceContainer) GetService(name string) (interface{}, error) {
	sc.mu.RLock()
	defer sc.mu.RUnlock()

	service, exists := sc.services[name]
	if !exists {
		return nil, contextutils.ErrorWithContextf("service %s not found", name)
	}
	return service, nil
}

// GetServiceAs performs type-safe service retrieval
func GetServiceAs[T any](sc *ServiceContainer, name string) (T, error) {
	var zero T
	service, err := sc.GetService(name)
	if err != nil {
		return zero, err
	}

	typed, ok := service.(T)
	if !ok {
		return zero, contextutils.ErrorWithContextf("service %s is not of expected type %T", name, zero)
	}
	return typed, nil
}

// GetUserService returns the user service
func (sc *ServiceContainer) GetUserService() (services.UserServiceInterface, error) {
	return GetServiceAs[services.UserServiceInterface](sc, "user")
}

// GetSessionService returns the session service
func (sc *ServiceContainer) GetSessionService() (services.SessionServiceInterface, error) {
	return GetServiceAs[services.SessionServiceInterface](sc, "session")
}

// GetQuestionService returns the question service
func (sc *ServiceContainer) GetQuestionService() (services.QuestionServiceInterface, error) {
	return GetServiceAs[services.QuestionServiceInterface](sc, "question")
}

// GetAIService returns the AI service
func (sc *ServiceContainer) GetAIService() (services.AIServiceInterface, error) {
	return GetServiceAs[services.AIServiceInterface](sc, "ai")
}

// GetVerifier returns the credential verifier
func (sc *ServiceContainer) GetVerifier() *auth.Verifier {
	return sc.verifier
}

// GetIssuer returns the credential issuer
func (sc *ServiceContainer) GetIssuer() *auth.Issuer {
	return sc.issuer
}

// GetAIRateLimiter returns the per-identity limiter for the generation routes
func (sc *ServiceContainer) GetAIRateLimiter() *middleware.RateLimiter {
	return sc.aiLimiter
}

// GetMetrics returns the Prometheus collector and the registry it writes to
func (sc *ServiceContainer) GetMetrics() (*metrics.Collector, *prometheus.Registry) {
	return sc.collector, sc.registry
}

// GetDatabase returns the database instance
func (sc *ServiceContainer) GetDatabase() *sql.DB {
	return sc.db
}

// GetConfig returns the configuration
func (sc *ServiceContainer) GetConfig() *config.Config {
	return sc.cfg
}

// GetLogger returns the logger
func (sc *ServiceContainer) GetLogger() *observability.Logger {
	return sc.logger
}

// Shutdown gracefully shuts down all services
func (sc *ServiceContainer) Shutdown(ctx context.Context) error {
	sc.mu.Lock()
	defer sc.mu.Unlock()

	return sc.cleanup(ctx)
}

// cleanup runs shutdown functions in reverse order of registration
func (sc *ServiceContainer) cleanup(ctx context.Context) error {
	var errs []error
	for i := len(sc.shutdownFuncs) - 1; i >= 0; i-- {
		if err := sc.shutdownFuncs[i](ctx); err != nil {
			sc.logger.Error(ctx, "Shutdown step failed", err)
			errs = append(errs, err)
		}
	}
	sc.shutdownFuncs = nil

	if len(errs) > 0 {
		return contextutils.ErrorWithContextf("shutdown errors: %v", errs)
	}
	return nil
}
