package handlers

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"interviewprep/internal/models"
	"interviewprep/internal/observability"
	"interviewprep/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestAIHandler_GenerateQuestions(t *testing.T) {
	aiService := &MockAIService{}
	env := newTestEnv(t, withAIService(aiService))

	set := models.QuestionSet{
		{Question: "What is an index?", Answer: "A structure that speeds up lookups."},
		{Question: "What is a transaction?", Answer: "A unit of work that is atomic."},
	}
	aiService.On("GenerateQuestions", mock.Anything, mock.MatchedBy(func(req *models.GenerationRequest) bool {
		return req.Role == "backend" && req.ExperienceLevel == "junior" && req.Topics == "databases" && req.Count == 2
	})).Return(set, nil).Once()

	w := env.do(http.MethodPost, "/api/ai/generate-questions", map[string]interface{}{
		"role":            "backend",
		"experienceLevel": "junior",
		"topics":          "databases",
		"count":           2,
	}, env.token(t, "u1"))

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.JSONEq(t, `[
		{"question": "What is an index?", "answer": "A structure that speeds up lookups."},
		{"question": "What is a transaction?", "answer": "A unit of work that is atomic."}
	]`, w.Body.String())
	aiService.AssertExpectations(t)
}

func TestAIHandler_AcceptsClientFieldNames(t *testing.T) {
	aiService := &MockAIService{}
	env := newTestEnv(t, withAIService(aiService))

	aiService.On("GenerateQuestions", mock.Anything, mock.MatchedBy(func(req *models.GenerationRequest) bool {
		return req.ExperienceLevel == "2 years" && req.Topics == "React" && req.Count == 10
	})).Return(models.QuestionSet{{Question: "Q", Answer: "A"}}, nil).Once()
	aiService.On("GenerateExplanation", mock.Anything, mock.MatchedBy(func(req *models.GenerationRequest) bool {
		return req.ConceptName == "What is a closure?"
	})).Return(&models.Explanation{Title: "Closures", Explanation: "Functions capturing scope."}, nil).Once()

	token := env.token(t, "u1")
	w := env.do(http.MethodPost, "/api/ai/generate-questions", map[string]interface{}{
		"role":              "Frontend",
		"experience":        "2 years",
		"topicsToFocus":     "React",
		"numberOfQuestions": 10,
	}, token)
	assert.Equal(t, http.StatusOK, w.Code)

	w = env.do(http.MethodPost, "/api/ai/generate-explanation", map[string]string{"question": "What is a closure?"}, token)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"title": "Closures", "explanation": "Functions capturing scope."}`, w.Body.String())

	aiService.AssertExpectations(t)
}

func TestAIHandler_InvalidRequestNamesField(t *testing.T) {
	aiService := &MockAIService{}
	env := newTestEnv(t, withAIService(aiService))
	aiService.On("GenerateQuestions", mock.Anything, mock.Anything).
		Return(nil, &services.InvalidRequestError{Field: "count", Reason: "must be between 1 and 50"}).Once()

	w := env.do(http.MethodPost, "/api/ai/generate-questions", map[string]interface{}{
		"role": "backend", "experienceLevel": "junior", "topics": "databases", "count": 0,
	}, env.token(t, "u1"))

	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "count must be between 1 and 50", decodeBody(t, w)["message"])
}

func TestAIHandler_MalformedBody(t *testing.T) {
	aiService := &MockAIService{}
	env := newTestEnv(t, withAIService(aiService))

	w := env.do(http.MethodPost, "/api/ai/generate-questions", `{"role": `, env.token(t, "u1"))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do(http.MethodPost, "/api/ai/generate-questions", `{"count": "five"}`, env.token(t, "u1"))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	aiService.AssertNotCalled(t, "GenerateQuestions", mock.Anything, mock.Anything)
}

func TestAIHandler_FailureMapping(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		status     int
		retryAfter string
	}{
		{"timeout", &services.ProviderFailure{Kind: services.FailureTimeout}, http.StatusGatewayTimeout, ""},
		{"transport", &services.ProviderFailure{Kind: services.FailureTransport, StatusCode: 503}, http.StatusBadGateway, ""},
		{"rate limited", &services.ProviderFailure{Kind: services.FailureRateLimited, StatusCode: 429, RetryAfter: 1500 * time.Millisecond}, http.StatusTooManyRequests, "2"},
		{"rate limited without hint", &services.ProviderFailure{Kind: services.FailureRateLimited, StatusCode: 429}, http.StatusTooManyRequests, ""},
		{"malformed", &services.ProviderFailure{Kind: services.FailureMalformedResponse, Raw: "secret provider prose"}, http.StatusBadGateway, ""},
		{"unknown kind", &services.ProviderFailure{Kind: services.FailureKind(99)}, http.StatusInternalServerError, ""},
		{"other error", errors.New("pq: connection reset"), http.StatusInternalServerError, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			aiService := &MockAIService{}
			env := newTestEnv(t, withAIService(aiService))
			aiService.On("GenerateExplanation", mock.Anything, mock.Anything).Return(nil, tt.err).Once()

			w := env.do(http.MethodPost, "/api/ai/generate-explanation",
				map[string]string{"conceptName": "Deadlock"}, env.token(t, "u1"))

			assert.Equal(t, tt.status, w.Code)
			assert.Equal(t, tt.retryAfter, w.Header().Get("Retry-After"))

			body := decodeBody(t, w)
			assert.NotEmpty(t, body["message"])
			assert.NotEmpty(t, body["code"])
			assert.NotContains(t, w.Body.String(), "secret provider prose")
			assert.NotContains(t, w.Body.String(), "pq:")
		})
	}
}

func TestAIHandler_WithoutIdentityNeverGenerates(t *testing.T) {
	gin.SetMode(gin.TestMode)
	aiService := &MockAIService{}
	h := NewAIHandler(aiService, observability.NewNopLogger())

	router := gin.New()
	router.POST("/questions", h.GenerateQuestions)
	router.POST("/explanation", h.GenerateExplanation)

	for path, body := range map[string]string{
		"/questions":   `{"role":"backend","experienceLevel":"junior","topics":"databases","count":2}`,
		"/explanation": `{"conceptName":"mutex"}`,
	} {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusInternalServerError, w.Code, path)
		assert.Contains(t, w.Body.String(), "Something went wrong")
	}
	aiService.AssertNotCalled(t, "GenerateQuestions", mock.Anything, mock.Anything)
	aiService.AssertNotCalled(t, "GenerateExplanation", mock.Anything, mock.Anything)
}
