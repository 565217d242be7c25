// Package middleware provides authentication, recovery and throttling middleware for the Gin web framework.
package middleware

import (
	"errors"
	"strings"

	"interviewprep/internal/auth"
	"interviewprep/internal/observability"
	contextutils "interviewprep/internal/utils"

	"github.com/gin-gonic/gin"
)

// TokenVerifier turns a raw bearer credential into an Identity
type TokenVerifier interface {
	Verify(credential string) (auth.Identity, error)
}

// RequireAuth returns a middleware that admits only requests carrying a valid bearer credential.
// Every rejection produces the same 401 body; the failure kind is only logged.
func RequireAuth(verifier TokenVerifier, logger *observability.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()

		credential, ok := bearerCredential(c.GetHeader("Authorization"))
		if !ok {
			logger.Debug(ctx, "Rejected request without bearer credential", map[string]interface{}{
				"path": c.Request.URL.Path,
			})
			abortUnauthorized(c)
			return
		}

		id, err := verifier.Verify(credential)
		if err != nil {
			kind := "unknown"
			var authErr *auth.Error
			if errors.As(err, &authErr) {
				kind = authErr.Kind.String()
			}
			logger.Info(ctx, "Rejected bearer credential", map[string]interface{}{
				"path":          c.Request.URL.Path,
				"failure_kind":  kind,
				"authorization": contextutils.MaskBearer(c.GetHeader("Authorization")),
			})
			abortUnauthorized(c)
			return
		}

		c.Request = c.Request.WithContext(auth.WithIdentity(ctx, id))
		c.Set(auth.IdentityKey, id)

		c.Next()
	}
}

// IdentityFrom returns the identity attached by RequireAuth
func IdentityFrom(c *gin.Context) (auth.Identity, bool) {
	if v, exists := c.Get(auth.IdentityKey); exists {
		if id, ok := v.(auth.Identity); ok {
			return id, true
		}
	}
	return auth.FromContext(c.Request.Context())
}

// bearerCredential extracts the token from "Bearer <token>". The scheme is case-insensitive.
func bearerCredential(header string) (string, bool) {
	scheme, token, found := strings.Cut(strings.TrimSpace(header), " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	if token == "" || strings.ContainsAny(token, " \t") {
		return "", false
	}
	return token, true
}

func abortUnauthorized(c *gin.Context) {
	StandardizeAppError(c, contextutils.ErrUnauthorized)
	c.Abort()
}
