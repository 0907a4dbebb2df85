package middleware

import (
	"net/http"
	"runtime/debug"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/voicebot/codexreview/pkg/errors"
	"github.com/voicebot/codexreview/pkg/logger"
)

// Recovery turns a handler panic into a 500 carrying the request id
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			logger.Error("Panic recovered",
				zap.Any("panic", rec),
				zap.ByteString("stack", debug.Stack()),
				zap.String("method", c.Request.Method),
				zap.String("path", c.Request.URL.Path),
			)
			body := gin.H{
				"code":    errors.ErrCodeInternal,
				"message": "Internal server error",
			}
			if id := GetRequestID(c); id != "" {
				body["request_id"] = id
			}
			c.AbortWithStatusJSON(http.StatusInternalServerError, body)
		}()
		c.Next()
	}
}
