package handlers

import (
	"context"
	"net/http"
	"slices"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-contrib/secure"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"

	"interviewprep/internal/config"
	"interviewprep/internal/metrics"
	"interviewprep/internal/middleware"
	"interviewprep/internal/observability"
	"interviewprep/internal/services"
	contextutils "interviewprep/internal/utils"
	"interviewprep/internal/version"
)

// Pinger reports whether a backing store is reachable. *sql.DB satisfies it.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// NewRouter creates the gin engine with all middleware and routes.
// aiLimiter and db may be nil; collector and gatherer may be nil together.
func NewRouter(
	cfg *config.Config,
	verifier middleware.TokenVerifier,
	issuer TokenIssuer,
	userService services.UserServiceInterface,
	sessionService services.SessionServiceInterface,
	questionService services.QuestionServiceInterface,
	aiService services.AIServiceInterface,
	aiLimiter *middleware.RateLimiter,
	collector *metrics.Collector,
	gatherer prometheus.Gatherer,
	db Pinger,
	logger *observability.Logger,
) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	if cfg.Server.Debug {
		gin.SetMode(gin.DebugMode)
	}

	router := gin.New()
	router.RedirectTrailingSlash = false

	router.Use(middleware.RequestID())
	router.Use(requestLogger(logger))
	router.Use(middleware.ErrorRecoveryMiddleware(logger))

	// Tracing and error attributes on the server span
	router.Use(observability.GinMiddleware(cfg.OpenTelemetry.ServiceName))
	router.Use(observability.ErrorSpanAttributes())

	if collector != nil {
		router.Use(collector.GinMiddleware())
	}

	// Disallowed origins are answered 403 by the cors middleware before any handler runs
	allowed := slices.Clone(cfg.Server.CORSOrigins)
	router.Use(cors.New(cors.Config{
		AllowOriginFunc: func(origin string) bool {
			return slices.Contains(allowed, origin)
		},
		AllowMethods:     config.CORSAllowedMethods,
		AllowHeaders:     config.CORSAllowedHeaders,
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	secureConfig := secure.DefaultConfig()
	secureConfig.SSLRedirect = false
	secureConfig.ContentSecurityPolicy = config.DefaultCSP
	router.Use(secure.New(secureConfig))

	router.Use(gzip.Gzip(gzip.DefaultCompression))

	router.GET("/", func(c *gin.Context) {
		c.String(http.StatusOK, "Backend is working.")
	})
	router.GET("/health", healthHandler(cfg.OpenTelemetry.ServiceName, db))
	if gatherer != nil {
		router.GET("/metrics", gin.WrapH(metrics.Handler(gatherer)))
	}

	authHandler := NewAuthHandler(userService, issuer, logger)
	sessionHandler := NewSessionHandler(sessionService, logger)
	questionHandler := NewQuestionHandler(questionService, logger)
	aiHandler := NewAIHandler(aiService, logger)

	requireAuth := middleware.RequireAuth(verifier, logger)

	api := router.Group("/api")
	{
		authRoutes := api.Group("/auth")
		{
			authRoutes.POST("/register", authHandler.Register)
			authRoutes.POST("/login", authHandler.Login)
			authRoutes.GET("/profile", requireAuth, authHandler.Profile)
		}

		sessions := api.Group("/sessions")
		sessions.Use(requireAuth)
		{
			sessions.POST("/create", sessionHandler.CreateSession)
			sessions.GET("/my-sessions", sessionHandler.GetMySessions)
			sessions.GET("/:id", sessionHandler.GetSession)
			sessions.DELETE("/:id", sessionHandler.DeleteSession)
		}

		questions := api.Group("/questions")
		questions.Use(requireAuth)
		{
			questions.POST("/add", questionHandler.AddQuestions)
			questions.POST("/:id/pin", questionHandler.TogglePin)
			questions.POST("/:id/note", questionHandler.UpdateNote)
		}

		ai := api.Group("/ai")
		ai.Use(requireAuth)
		if aiLimiter != nil {
			ai.Use(aiLimiter.Middleware())
		}
		{
			ai.POST("/generate-questions", aiHandler.GenerateQuestions)
			ai.POST("/generate-explanation", aiHandler.GenerateExplanation)
		}
	}

	router.NoRoute(func(c *gin.Context) {
		middleware.StandardizeAppError(c, contextutils.ErrNotFound)
	})

	return router
}

func healthHandler(service string, db Pinger) gin.HandlerFunc {
	return func(c *gin.Context) {
		body := gin.H{
			"status":  "ok",
			"service": service,
			"version": version.Get(),
		}
		if db != nil {
			ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
			defer cancel()
			if err := db.PingContext(ctx); err != nil {
				body["status"] = "degraded"
				body["database"] = "unreachable"
				c.JSON(http.StatusServiceUnavailable, body)
				return
			}
			body["database"] = "ok"
		}
		c.JSON(http.StatusOK, body)
	}
}

// requestLogger logs one line per request at a level chosen by status code
func requestLogger(logger *observability.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		statusCode := c.Writer.Status()
		fields := map[string]interface{}{
			"http.method":      c.Request.Method,
			"http.path":        c.Request.URL.Path,
			"http.status_code": statusCode,
			"http.latency_ms":  time.Since(start).Milliseconds(),
			"http.client_ip":   c.ClientIP(),
			"http.user_agent":  c.Request.UserAgent(),
			"request_id":       c.GetString(middleware.RequestIDKey),
		}
		if id, ok := middleware.IdentityFrom(c); ok {
			fields["user_id"] = id.UserID
		}
		if last := c.Errors.Last(); last != nil {
			fields["http.error"] = c.Errors.String()
			fields["error_code"] = string(contextutils.GetErrorCode(last.Err))
			fields["error_severity"] = string(contextutils.GetErrorSeverity(last.Err))
		}

		switch {
		case statusCode >= 500:
			logger.Error(c.Request.Context(), "HTTP request failed", nil, fields)
		case statusCode >= 400:
			logger.Warn(c.Request.Context(), "HTTP request warning", fields)
		default:
			logger.Info(c.Request.Context(), "HTTP request", fields)
		}
	}
}
