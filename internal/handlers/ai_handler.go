package handlers

import (
	"errors"
	"math"
	"net/http"
	"strconv"

	"interviewprep/internal/auth"
	"interviewprep/internal/middleware"
	"interviewprep/internal/models"
	"interviewprep/internal/observability"
	"interviewprep/internal/services"
	contextutils "interviewprep/internal/utils"

	"github.com/gin-gonic/gin"
)

// AIHandler serves the generation endpoints under /api/ai
type AIHandler struct {
	aiService services.AIServiceInterface
	logger    *observability.Logger
}

// NewAIHandler creates a new AIHandler
func NewAIHandler(aiService services.AIServiceInterface, logger *observability.Logger) *AIHandler {
	return &AIHandler{
		aiService: aiService,
		logger:    logger,
	}
}

// GenerateQuestions handles POST /api/ai/generate-questions
func (h *AIHandler) GenerateQuestions(c *gin.Context) {
	ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "generate_questions",
		observability.AttributeGenerationKind(string(models.GenerationKindQuestions)))
	defer observability.FinishSpan(span, nil)

	var body models.GenerateQuestionsRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		handleBindError(c, err)
		return
	}

	id, ok := h.identity(c)
	if !ok {
		return
	}
	span.SetAttributes(observability.AttributeUserID(id.UserID))

	questions, err := h.aiService.GenerateQuestions(ctx, body.ToGenerationRequest())
	if err != nil {
		h.handleGenerationError(c, err, id.UserID, models.GenerationKindQuestions)
		return
	}

	span.SetAttributes(observability.AttributeCount(len(questions)))
	c.JSON(http.StatusOK, questions)
}

// GenerateExplanation handles POST /api/ai/generate-explanation
func (h *AIHandler) GenerateExplanation(c *gin.Context) {
	ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "generate_explanation",
		observability.AttributeGenerationKind(string(models.GenerationKindExplanation)))
	defer observability.FinishSpan(span, nil)

	var body models.GenerateExplanationRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		handleBindError(c, err)
		return
	}

	id, ok := h.identity(c)
	if !ok {
		return
	}
	span.SetAttributes(observability.AttributeUserID(id.UserID))

	explanation, err := h.aiService.GenerateExplanation(ctx, body.ToGenerationRequest())
	if err != nil {
		h.handleGenerationError(c, err, id.UserID, models.GenerationKindExplanation)
		return
	}

	c.JSON(http.StatusOK, explanation)
}

// identity returns the caller attached by RequireAuth. A generation route mounted without it
// is a wiring bug, so the request fails with the generic 500 instead of running anonymously.
func (h *AIHandler) identity(c *gin.Context) (auth.Identity, bool) {
	id, ok := middleware.IdentityFrom(c)
	if !ok || id.UserID == "" {
		h.logger.Error(c.Request.Context(), "Generation route reached without an identity", nil, map[string]interface{}{
			"path": c.FullPath(),
		})
		HandleAppError(c, contextutils.ErrInternalError)
		return auth.Identity{}, false
	}
	return id, true
}

// handleGenerationError maps a generation failure onto its response. Provider details never
// leave the server.
func (h *AIHandler) handleGenerationError(c *gin.Context, err error, userID string, kind models.GenerationKind) {
	ctx := c.Request.Context()
	fields := map[string]interface{}{
		"user_id": userID,
		"kind":    string(kind),
	}

	var invalid *services.InvalidRequestError
	if errors.As(err, &invalid) {
		fields["field"] = invalid.Field
		h.logger.Info(ctx, "Rejected generation request", fields)
		HandleValidationError(c, invalid.Field, invalid.Reason)
		return
	}

	pf, ok := services.AsProviderFailure(err)
	if !ok {
		h.logger.Error(ctx, "Generation failed", err, fields)
		middleware.StandardizeAppError(c, contextutils.ErrInternalError)
		return
	}

	fields["failure_kind"] = pf.Kind.String()
	fields["provider_status"] = pf.StatusCode
	h.logger.Warn(ctx, "Generation failed", fields)

	switch pf.Kind {
	case services.FailureTimeout:
		middleware.StandardizeAppError(c, contextutils.ErrAITimeout)
	case services.FailureTransport:
		middleware.StandardizeAppError(c, contextutils.ErrAIRequestFailed)
	case services.FailureRateLimited:
		if pf.RetryAfter > 0 {
			c.Header("Retry-After", strconv.Itoa(int(math.Ceil(pf.RetryAfter.Seconds()))))
		}
		middleware.StandardizeAppError(c, contextutils.ErrAIRateLimited)
	case services.FailureMalformedResponse:
		middleware.StandardizeAppError(c, contextutils.ErrAIResponseInvalid)
	default:
		middleware.StandardizeAppError(c, contextutils.ErrInternalError)
	}
}
