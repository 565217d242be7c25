package handlers

import (
	"errors"
	"fmt"

	"interviewprep/internal/middleware"
	contextutils "interviewprep/internal/utils"

	"github.com/gin-gonic/gin"
)

// publicErrors holds the caller-facing error for each code services may return.
// Service errors carry internal context in their message; only these reach the client.
var publicErrors = map[contextutils.ErrorCode]*contextutils.AppError{
	contextutils.ErrorCodeRecordNotFound:     contextutils.ErrRecordNotFound,
	contextutils.ErrorCodeRecordExists:       contextutils.ErrRecordExists,
	contextutils.ErrorCodeInvalidCredentials: contextutils.ErrInvalidCredentials,
	contextutils.ErrorCodeUnauthorized:       contextutils.ErrUnauthorized,
	contextutils.ErrorCodeForbidden:          contextutils.ErrForbidden,
	contextutils.ErrorCodeMissingRequired:    contextutils.ErrMissingRequired,
	contextutils.ErrorCodeInvalidInput:       contextutils.ErrInvalidInput,
	contextutils.ErrorCodeDatabaseConnection: contextutils.ErrServiceUnavailable,
	contextutils.ErrorCodeServiceUnavailable: contextutils.ErrServiceUnavailable,
	contextutils.ErrorCodeAITimeout:          contextutils.ErrAITimeout,
	contextutils.ErrorCodeAIRequestFailed:    contextutils.ErrAIRequestFailed,
	contextutils.ErrorCodeAIRateLimited:      contextutils.ErrAIRateLimited,
	contextutils.ErrorCodeAIResponseInvalid:  contextutils.ErrAIResponseInvalid,
	contextutils.ErrorCodeRateLimit:          contextutils.ErrRateLimit,
	contextutils.ErrorCodeInternalError:      contextutils.ErrInternalError,
	contextutils.ErrorCodeDatabaseQuery:      contextutils.ErrInternalError,
	contextutils.ErrorCodeAIConfigInvalid:    contextutils.ErrInternalError,
	contextutils.ErrorCodeNotFound:           contextutils.ErrNotFound,
	contextutils.ErrorCodeInvalidFormat:      contextutils.ErrInvalidFormat,
	contextutils.ErrorCodeValidationFailed:   contextutils.ErrValidationFailed,
}

// publicError maps err onto the generic error for its code. Validation failures keep
// their details so the caller can see which field was rejected.
func publicError(err error) *contextutils.AppError {
	var appErr *contextutils.AppError
	if !errors.As(err, &appErr) {
		return contextutils.ErrInternalError
	}
	if appErr.Code == contextutils.ErrorCodeValidationFailed {
		return appErr
	}
	if public, ok := publicErrors[appErr.Code]; ok {
		return public
	}
	return contextutils.ErrInternalError
}

// HandleAppError writes the public form of err
func HandleAppError(c *gin.Context, err error) {
	middleware.StandardizeAppError(c, publicError(err))
}

// HandleValidationError rejects a request naming the offending field
func HandleValidationError(c *gin.Context, field, reason string) {
	middleware.StandardizeAppError(c, contextutils.NewAppError(
		contextutils.ErrorCodeInvalidInput,
		contextutils.SeverityWarn,
		fmt.Sprintf("%s %s", field, reason),
		"",
	))
}

// handleBindError reports a body that could not be decoded or is missing required fields
func handleBindError(c *gin.Context, err error) {
	middleware.StandardizeAppError(c, contextutils.NewAppErrorWithCause(
		contextutils.ErrorCodeInvalidInput,
		contextutils.SeverityWarn,
		"Invalid request body",
		"",
		err,
	))
}
