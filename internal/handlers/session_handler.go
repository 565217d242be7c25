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

// SessionHandler serves /api/sessions. Every route requires an identity.
type SessionHandler struct {
	sessionService services.SessionServiceInterface
	logger         *observability.Logger
}

// NewSessionHandler creates a new SessionHandler
func NewSessionHandler(sessionService services.SessionServiceInterface, logger *observability.Logger) *SessionHandler {
	return &SessionHandler{sessionService: sessionService, logger: logger}
}

// CreateSession handles POST /api/sessions/create
func (h *SessionHandler) CreateSession(c *gin.Context) {
	ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "create_session")
	defer observability.FinishSpan(span, nil)

	id, ok := middleware.IdentityFrom(c)
	if !ok {
		HandleAppError(c, contextutils.ErrUnauthorized)
		return
	}

	var req models.CreateSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handleBindError(c, err)
		return
	}

	session, err := h.sessionService.CreateSession(ctx, id.UserID, &req)
	if err != nil {
		h.fail(c, "Failed to create session", err, id.UserID)
		return
	}
	span.SetAttributes(observability.AttributeSessionID(session.ID))

	c.JSON(http.StatusCreated, session)
}

// GetMySessions handles GET /api/sessions/my-sessions
func (h *SessionHandler) GetMySessions(c *gin.Context) {
	ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "get_my_sessions")
	defer observability.FinishSpan(span, nil)

	id, ok := middleware.IdentityFrom(c)
	if !ok {
		HandleAppError(c, contextutils.ErrUnauthorized)
		return
	}

	sessions, err := h.sessionService.GetMySessions(ctx, id.UserID)
	if err != nil {
		h.fail(c, "Failed to list sessions", err, id.UserID)
		return
	}
	if sessions == nil {
		sessions = []models.Session{}
	}

	c.JSON(http.StatusOK, sessions)
}

// GetSession handles GET /api/sessions/:id
func (h *SessionHandler) GetSession(c *gin.Context) {
	ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "get_session",
		observability.AttributeSessionID(c.Param("id")))
	defer observability.FinishSpan(span, nil)

	id, ok := middleware.IdentityFrom(c)
	if !ok {
		HandleAppError(c, contextutils.ErrUnauthorized)
		return
	}

	session, err := h.sessionService.GetSession(ctx, id.UserID, c.Param("id"))
	if err != nil {
		h.fail(c, "Failed to load session", err, id.UserID)
		return
	}

	c.JSON(http.StatusOK, session)
}

// DeleteSession handles DELETE /api/sessions/:id
func (h *SessionHandler) DeleteSession(c *gin.Context) {
	ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "delete_session",
		observability.AttributeSessionID(c.Param("id")))
	defer observability.FinishSpan(span, nil)

	id, ok := middleware.IdentityFrom(c)
	if !ok {
		HandleAppError(c, contextutils.ErrUnauthorized)
		return
	}

	if err := h.sessionService.DeleteSession(ctx, id.UserID, c.Param("id")); err != nil {
		h.fail(c, "Failed to delete session", err, id.UserID)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Session deleted successfully"})
}

// fail logs unexpected errors; not-found is an ordinary outcome and only answered
func (h *SessionHandler) fail(c *gin.Context, msg string, err error, userID string) {
	if !contextutils.IsError(err, contextutils.ErrRecordNotFound) {
		h.logger.Error(c.Request.Context(), msg, err, map[string]interface{}{"user_id": userID})
	}
	HandleAppError(c, err)
}
