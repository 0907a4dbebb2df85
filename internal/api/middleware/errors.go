package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/voicebot/codexreview/pkg/errors"
)

// ErrorHandler renders the last error attached with c.Error when the handler
// wrote no body. Messages of 5xx errors are hidden outside debug mode.
func ErrorHandler(debugMode bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}

		appErr, ok := errors.AsAppError(c.Errors.Last().Err)
		if !ok {
			appErr = errors.Wrap(errors.ErrCodeInternal, c.Errors.Last().Err.Error(), c.Errors.Last().Err)
		}
		status := appErr.HTTPStatus()

		body := gin.H{"code": appErr.Code, "message": appErr.Message}
		if status >= http.StatusInternalServerError && !debugMode {
			body["message"] = "Internal server error"
		}
		if debugMode && appErr.Err != nil {
			body["details"] = appErr.Err.Error()
		}
		if id := GetRequestID(c); id != "" {
			body["request_id"] = id
		}
		c.JSON(status, body)
	}
}
