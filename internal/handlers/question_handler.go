package handlers

import (
	"net/http"

	"interviewprep/internal/middleware"
	"interviewprep/internal/models"
	"interviewprep/internal/observability"
	"interviewprep/internal/services"
	contextutils "interviewprep/internal/utils"

	"github.com/gin-gonic/gin"
)

// QuestionHandler serves /api/questions
type QuestionHandler struct {
	questionService services.QuestionServiceInterface
	logger          *observability.Logger
}

// NewQuestionHandler creates a new QuestionHandler
func NewQuestionHandler(questionService services.QuestionServiceInterface, logger *observability.Logger) *QuestionHandler {
	return &QuestionHandler{questionService: questionService, logger: logger}
}

// AddQuestions handles POST /api/questions/add
func (h *QuestionHandler) AddQuestions(c *gin.Context) {
	ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "add_questions")
	defer observability.FinishSpan(span, nil)

	id, ok := middleware.IdentityFrom(c)
	if !ok {
		HandleAppError(c, contextutils.ErrUnauthorized)
		return
	}

	var req models.AddQuestionsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handleBindError(c, err)
		return
	}
	span.SetAttributes(observability.AttributeSessionID(req.SessionID), observability.AttributeCount(len(req.Questions)))

	questions, err := h.questionService.AddQuestions(ctx, id.UserID, &req)
	if err != nil {
		h.fail(c, "Failed to add questions", err, id.UserID)
		return
	}

	c.JSON(http.StatusCreated, questions)
}

// TogglePin handles POST /api/questions/:id/pin
func (h *QuestionHandler) TogglePin(c *gin.Context) {
	ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "toggle_pin",
		observability.AttributeQuestionID(c.Param("id")))
	defer observability.FinishSpan(span, nil)

	id, ok := middleware.IdentityFrom(c)
	if !ok {
		HandleAppError(c, contextutils.ErrUnauthorized)
		return
	}

	question, err := h.questionService.TogglePin(ctx, id.UserID, c.Param("id"))
	if err != nil {
		h.fail(c, "Failed to toggle pin", err, id.UserID)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "question": question})
}

// UpdateNote handles POST /api/questions/:id/note
func (h *QuestionHandler) UpdateNote(c *gin.Context) {
	ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "update_note",
		observability.AttributeQuestionID(c.Param("id")))
	defer observability.FinishSpan(span, nil)

	id, ok := middleware.IdentityFrom(c)
	if !ok {
		HandleAppError(c, contextutils.ErrUnauthorized)
		return
	}

	var req models.UpdateNoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handleBindError(c, err)
		return
	}

	question, err := h.questionService.UpdateNote(ctx, id.UserID, c.Param("id"), req.Note)
	if err != nil {
		h.fail(c, "Failed to update note", err, id.UserID)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "question": question})
}

func (h *QuestionHandler) fail(c *gin.Context, msg string, err error, userID string) {
	if !contextutils.IsError(err, contextutils.ErrRecordNotFound) && !contextutils.IsError(err, contextutils.ErrInvalidInput) {
		h.logger.Error(c.Request.Context(), msg, err, map[string]interface{}{"user_id": userID})
	}
	HandleAppError(c, err)
}
