package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/voicebot/codexreview/pkg/errors"
	"github.com/voicebot/codexreview/pkg/logger"
)

// ContextKeySubject is the gin context key holding the authenticated token subject
const ContextKeySubject = "username"

// TokenValidator validates bearer tokens and returns their subject
type TokenValidator interface {
	ValidateToken(token string) (subject string, err error)
}

// JWTAuth requires a valid "Authorization: Bearer <token>" header
func JWTAuth(validator TokenValidator) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			abortUnauthorized(c, "Authorization header required")
			return
		}

		scheme, token, found := strings.Cut(header, " ")
		if !found || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
			abortUnauthorized(c, "Invalid authorization format")
			return
		}

		subject, err := validator.ValidateToken(strings.TrimSpace(token))
		if err != nil {
			logger.Debug("Token validation failed", zap.Error(err), zap.String("path", c.Request.URL.Path))
			abortUnauthorized(c, "Invalid or expired token")
			return
		}

		c.Set(ContextKeySubject, subject)
		c.Next()
	}
}

func abortUnauthorized(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"code":    errors.ErrCodeUnauthorized,
		"message": message,
	})
}
