package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"runtime/debug"

	"interviewprep/internal/observability"
	contextutils "interviewprep/internal/utils"

	"github.com/gin-gonic/gin"
)

// ErrorRecoveryMiddleware converts panics into a generic 500 response
func ErrorRecoveryMiddleware(logger *observability.Logger) gin.HandlerFunc {
	if logger == nil {
		logger = observability.NewNopLogger()
	}

	return func(c *gin.Context) {
		defer func() {
			if rec := recover(); rec != nil {
				panicErr, ok := rec.(error)
				if !ok {
					panicErr = fmt.Errorf("panic: %v", rec)
				}
				logger.Error(c.Request.Context(), "Panic recovered", panicErr, map[string]interface{}{
					"method":      c.Request.Method,
					"path":        c.Request.URL.Path,
					"stack_trace": string(debug.Stack()),
				})

				HandleAppError(c, contextutils.ErrInternalError)
				c.Abort()
			}
		}()

		c.Next()
	}
}

// HandleAppError handles any AppError and sends appropriate HTTP response.
// Anything that is not an AppError becomes the generic 500.
func HandleAppError(c *gin.Context, err error) {
	var appErr *contextutils.AppError
	if errors.As(err, &appErr) {
		StandardizeAppError(c, appErr)
		return
	}
	StandardizeAppError(c, contextutils.ErrInternalError)
}

// StandardizeAppError sends a structured error response using AppError and records it on
// the context for the request logger and span attributes
func StandardizeAppError(c *gin.Context, err *contextutils.AppError) {
	_ = c.Error(err)
	statusCode := mapErrorCodeToHTTPStatus(err.Code)
	c.JSON(statusCode, err.ToJSON())
}

// mapErrorCodeToHTTPStatus maps AppError codes to appropriate HTTP status codes
func mapErrorCodeToHTTPStatus(code contextutils.ErrorCode) int {
	switch code {
	// 4xx Client Errors
	case contextutils.ErrorCodeInvalidInput, contextutils.ErrorCodeMissingRequired,
		contextutils.ErrorCodeInvalidFormat, contextutils.ErrorCodeValidationFailed:
		return http.StatusBadRequest

	case contextutils.ErrorCodeUnauthorized, contextutils.ErrorCodeInvalidCredentials:
		return http.StatusUnauthorized

	case contextutils.ErrorCodeForbidden:
		return http.StatusForbidden

	case contextutils.ErrorCodeRecordNotFound, contextutils.ErrorCodeNotFound:
		return http.StatusNotFound

	case contextutils.ErrorCodeRecordExists:
		return http.StatusConflict

	case contextutils.ErrorCodeRateLimit, contextutils.ErrorCodeAIRateLimited:
		return http.StatusTooManyRequests

	// 5xx Server Errors
	case contextutils.ErrorCodeAIRequestFailed, contextutils.ErrorCodeAIResponseInvalid:
		return http.StatusBadGateway

	case contextutils.ErrorCodeAITimeout:
		return http.StatusGatewayTimeout

	case contextutils.ErrorCodeServiceUnavailable, contextutils.ErrorCodeDatabaseConnection:
		return http.StatusServiceUnavailable

	default:
		return http.StatusInternalServerError
	}
}
