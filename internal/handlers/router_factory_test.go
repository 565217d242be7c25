package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"interviewprep/internal/auth"
	"interviewprep/internal/config"
	"interviewprep/internal/metrics"
	"interviewprep/internal/middleware"
	"interviewprep/internal/models"
	"interviewprep/internal/observability"
	"interviewprep/internal/services"
	contextutils "interviewprep/internal/utils"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

const (
	testSecret = "handlers-test-secret"
	testOrigin = "http://localhost:5173"
)

type testEnv struct {
	router    *gin.Engine
	issuer    *auth.Issuer
	users     *MockUserService
	sessions  *MockSessionService
	questions *MockQuestionService
	ai        services.AIServiceInterface
	registry  *prometheus.Registry
}

type envOption func(*envSettings)

type envSettings struct {
	ai      services.AIServiceInterface
	limiter *middleware.RateLimiter
	db      Pinger
}

func withAIService(ai services.AIServiceInterface) envOption {
	return func(s *envSettings) { s.ai = ai }
}

func withLimiter(l *middleware.RateLimiter) envOption {
	return func(s *envSettings) { s.limiter = l }
}

func withDB(db Pinger) envOption {
	return func(s *envSettings) { s.db = db }
}

func testConfig() *config.Config {
	cfg := config.Defaults()
	cfg.Auth.JWTSecret = testSecret
	cfg.Server.CORSOrigins = []string{testOrigin}
	return cfg
}

func newTestEnv(t *testing.T, opts ...envOption) *testEnv {
	t.Helper()
	settings := &envSettings{ai: &MockAIService{}}
	for _, opt := range opts {
		opt(settings)
	}

	cfg := testConfig()
	logger := observability.NewNopLogger()
	registry := prometheus.NewRegistry()

	env := &testEnv{
		issuer:    auth.NewIssuer(cfg.Auth.JWTSecret, cfg.Auth.Issuer, time.Hour),
		users:     &MockUserService{},
		sessions:  &MockSessionService{},
		questions: &MockQuestionService{},
		ai:        settings.ai,
		registry:  registry,
	}
	env.router = NewRouter(
		cfg,
		auth.NewVerifier(cfg.Auth.JWTSecret, cfg.Auth.Issuer),
		env.issuer,
		env.users,
		env.sessions,
		env.questions,
		env.ai,
		settings.limiter,
		metrics.NewCollector(registry),
		registry,
		settings.db,
		logger,
	)
	return env
}

func (e *testEnv) token(t *testing.T, userID string) string {
	t.Helper()
	token, _, err := e.issuer.Issue(userID, userID+"@example.com", services.RoleUser)
	require.NoError(t, err)
	return token
}

func (e *testEnv) do(method, path string, body interface{}, token string, headers ...string) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(b))
	default:
		data, _ := json.Marshal(b)
		reader = bytes.NewReader(data)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}

	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body), w.Body.String())
	return body
}

type stubPinger struct{ err error }

func (p stubPinger) PingContext(context.Context) error { return p.err }

func TestRouter_Liveness(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(http.MethodGet, "/", nil, "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Backend is working.", w.Body.String())
}

func TestRouter_Health(t *testing.T) {
	env := newTestEnv(t, withDB(stubPinger{}))

	w := env.do(http.MethodGet, "/health", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	body := decodeBody(t, w)
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, "ok", body["database"])
	assert.Contains(t, body, "version")
}

func TestRouter_HealthDegradedWithoutDatabase(t *testing.T) {
	env := newTestEnv(t, withDB(stubPinger{err: errors.New("connection refused")}))

	w := env.do(http.MethodGet, "/health", nil, "")
	require.Equal(t, http.StatusServiceUnavailable, w.Code)
	body := decodeBody(t, w)
	assert.Equal(t, "degraded", body["status"])
	assert.NotContains(t, w.Body.String(), "connection refused")
}

func TestRouter_UnknownEndpoint(t *testing.T) {
	env := newTestEnv(t)

	for _, path := range []string{"/nope", "/api/unknown", "/api/ai/generate-everything"} {
		w := env.do(http.MethodGet, path, nil, "")
		assert.Equal(t, http.StatusNotFound, w.Code, path)
		assert.Equal(t, "Endpoint not found", decodeBody(t, w)["message"], path)
	}
}

func TestRouter_CORS(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(http.MethodGet, "/health", nil, "", "Origin", testOrigin)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, testOrigin, w.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", w.Header().Get("Access-Control-Allow-Credentials"))

	w = env.do(http.MethodGet, "/health", nil, "", "Origin", "http://evil.example")
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
}

func TestRouter_CORSPreflight(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(http.MethodOptions, "/api/ai/generate-questions", nil, "",
		"Origin", testOrigin,
		"Access-Control-Request-Method", http.MethodPost,
		"Access-Control-Request-Headers", "Authorization, Content-Type")
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Contains(t, w.Header().Get("Access-Control-Allow-Methods"), "POST")
	assert.Contains(t, w.Header().Get("Access-Control-Allow-Headers"), "Authorization")
}

func TestRouter_SecurityHeaders(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(http.MethodGet, "/", nil, "")
	assert.Equal(t, "DENY", w.Header().Get("X-Frame-Options"))
	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, config.DefaultCSP, w.Header().Get("Content-Security-Policy"))
	assert.NotEmpty(t, w.Header().Get(middleware.RequestIDHeader))
}

func TestRouter_Gzip(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(http.MethodGet, "/", nil, "", "Accept-Encoding", "gzip")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "gzip", w.Header().Get("Content-Encoding"))
}

func TestRouter_Metrics(t *testing.T) {
	env := newTestEnv(t)
	env.do(http.MethodGet, "/", nil, "")

	w := env.do(http.MethodGet, "/metrics", nil, "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "prep_http_requests_total")
}

func TestRouter_ProtectedRoutesRequireCredential(t *testing.T) {
	aiService := &MockAIService{}
	env := newTestEnv(t, withAIService(aiService))

	routes := []struct{ method, path string }{
		{http.MethodGet, "/api/auth/profile"},
		{http.MethodPost, "/api/sessions/create"},
		{http.MethodGet, "/api/sessions/my-sessions"},
		{http.MethodGet, "/api/sessions/abc"},
		{http.MethodDelete, "/api/sessions/abc"},
		{http.MethodPost, "/api/questions/add"},
		{http.MethodPost, "/api/questions/abc/pin"},
		{http.MethodPost, "/api/questions/abc/note"},
		{http.MethodPost, "/api/ai/generate-questions"},
		{http.MethodPost, "/api/ai/generate-explanation"},
	}
	for _, r := range routes {
		w := env.do(r.method, r.path, map[string]interface{}{}, "")
		assert.Equal(t, http.StatusUnauthorized, w.Code, "%s %s", r.method, r.path)

		w = env.do(r.method, r.path, map[string]interface{}{}, "not-a-jwt")
		assert.Equal(t, http.StatusUnauthorized, w.Code, "%s %s", r.method, r.path)
	}

	aiService.AssertNotCalled(t, "GenerateQuestions", mock.Anything, mock.Anything)
	aiService.AssertNotCalled(t, "GenerateExplanation", mock.Anything, mock.Anything)
	env.sessions.AssertExpectations(t)
	env.questions.AssertExpectations(t)
}

func TestRouter_AIRateLimit(t *testing.T) {
	aiService := &MockAIService{}
	aiService.On("GenerateExplanation", mock.Anything, mock.Anything).
		Return(&models.Explanation{Title: "Mutex", Explanation: "Mutual exclusion."}, nil)

	limiter := middleware.NewRateLimiter(middleware.PerMinute(1, 1), observability.NewNopLogger())
	t.Cleanup(limiter.Stop)
	env := newTestEnv(t, withAIService(aiService), withLimiter(limiter))

	alice := env.token(t, "alice")
	body := map[string]string{"conceptName": "mutex"}

	w := env.do(http.MethodPost, "/api/ai/generate-explanation", body, alice)
	assert.Equal(t, http.StatusOK, w.Code)

	w = env.do(http.MethodPost, "/api/ai/generate-explanation", body, alice)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "60", w.Header().Get("Retry-After"))

	w = env.do(http.MethodPost, "/api/ai/generate-explanation", body, env.token(t, "bob"))
	assert.Equal(t, http.StatusOK, w.Code)

	aiService.AssertNumberOfCalls(t, "GenerateExplanation", 2)
}

func TestRequestLogger_RecordsErrorCode(t *testing.T) {
	gin.SetMode(gin.TestMode)
	core, logs := observer.New(zap.InfoLevel)
	logger := &observability.Logger{Logger: zap.New(core)}

	router := gin.New()
	router.Use(requestLogger(logger))
	router.GET("/missing", func(c *gin.Context) {
		HandleAppError(c, contextutils.WrapErrorf(contextutils.ErrRecordNotFound, "session %s owned by %s", "s1", "internal-owner"))
	})
	router.GET("/ok", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/missing", nil))
	require.Equal(t, http.StatusNotFound, w.Code)

	entries := logs.FilterMessage("HTTP request warning").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, string(contextutils.ErrorCodeRecordNotFound), fields["error_code"])
	assert.Equal(t, string(contextutils.SeverityInfo), fields["error_severity"])
	assert.NotContains(t, fields["http.error"], "internal-owner")

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ok", nil))
	entries = logs.FilterMessage("HTTP request").All()
	require.Len(t, entries, 1)
	assert.NotContains(t, entries[0].ContextMap(), "error_code")
}
