package handlers

import (
	"net/http"
	"time"

	"interviewprep/internal/middleware"
	"interviewprep/internal/models"
	"interviewprep/internal/observability"
	"interviewprep/internal/services"
	contextutils "interviewprep/internal/utils"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
)

// TokenIssuer signs bearer credentials for authenticated users
type TokenIssuer interface {
	Issue(userID, email, role string) (string, time.Time, error)
}

// AuthHandler handles authentication related HTTP requests
type AuthHandler struct {
	userService services.UserServiceInterface
	issuer      TokenIssuer
	logger      *observability.Logger
}

// NewAuthHandler creates a new AuthHandler instance
func NewAuthHandler(userService services.UserServiceInterface, issuer TokenIssuer, logger *observability.Logger) *AuthHandler {
	return &AuthHandler{
		userService: userService,
		issuer:      issuer,
		logger:      logger,
	}
}

// Register creates an account and returns a credential for it
func (h *AuthHandler) Register(c *gin.Context) {
	ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "register")
	defer observability.FinishSpan(span, nil)

	var req models.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handleBindError(c, err)
		return
	}

	user, err := h.userService.CreateUser(ctx, &req)
	if err != nil {
		if !contextutils.IsError(err, contextutils.ErrRecordExists) && !contextutils.IsError(err, contextutils.ErrValidationFailed) {
			h.logger.Error(ctx, "Failed to register user", err)
		}
		HandleAppError(c, err)
		return
	}
	span.SetAttributes(observability.AttributeUserID(user.ID))

	h.respondWithToken(c, http.StatusCreated, user)
}

// Login handles user login requests
func (h *AuthHandler) Login(c *gin.Context) {
	ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "login")
	defer observability.FinishSpan(span, nil)

	var req models.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handleBindError(c, err)
		return
	}
	span.SetAttributes(attribute.Bool("auth.password_provided", req.Password != ""))

	user, err := h.userService.AuthenticateUser(ctx, req.Email, req.Password)
	if err != nil {
		if contextutils.IsError(err, contextutils.ErrInvalidCredentials) {
			h.logger.Info(ctx, "Login rejected", map[string]interface{}{"email_valid": contextutils.IsValidEmail(req.Email)})
		} else {
			h.logger.Error(ctx, "Login failed", err)
		}
		HandleAppError(c, err)
		return
	}
	span.SetAttributes(observability.AttributeUserID(user.ID))

	h.respondWithToken(c, http.StatusOK, user)
}

// Profile returns the authenticated caller's account
func (h *AuthHandler) Profile(c *gin.Context) {
	ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "profile")
	defer observability.FinishSpan(span, nil)

	id, ok := middleware.IdentityFrom(c)
	if !ok {
		HandleAppError(c, contextutils.ErrUnauthorized)
		return
	}

	user, err := h.userService.GetUserByID(ctx, id.UserID)
	if err != nil {
		if !contextutils.IsError(err, contextutils.ErrRecordNotFound) {
			h.logger.Error(ctx, "Failed to load profile", err, map[string]interface{}{"user_id": id.UserID})
		}
		HandleAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, user)
}

func (h *AuthHandler) respondWithToken(c *gin.Context, status int, user *models.User) {
	token, expiresAt, err := h.issuer.Issue(user.ID, user.Email, user.Role)
	if err != nil {
		h.logger.Error(c.Request.Context(), "Failed to issue token", err, map[string]interface{}{"user_id": user.ID})
		HandleAppError(c, err)
		return
	}

	c.JSON(status, models.AuthResponse{
		User:      user,
		Token:     token,
		ExpiresAt: expiresAt,
	})
}
