// Package handler provides HTTP handlers for the API.
package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/voicebot/codexreview/pkg/errors"
	"github.com/voicebot/codexreview/pkg/idgen"
)

// respondError writes the standard {code, message} error body.
// Internal errors never expose their message.
func respondError(c *gin.Context, err error) {
	appErr, ok := errors.AsAppError(err)
	if !ok {
		appErr = errors.ErrInternal("internal error", err)
	}

	status := appErr.HTTPStatus()
	msg := appErr.Message
	if status >= http.StatusInternalServerError {
		msg = "Internal server error"
		_ = c.Error(err)
	}
	c.JSON(status, gin.H{
		"code":    appErr.Code,
		"message": msg,
	})
}

// taskIDParam returns the :id path parameter when it is a well-formed task id.
// It writes a 400 and returns false otherwise.
func taskIDParam(c *gin.Context) (string, bool) {
	id := c.Param("id")
	if !idgen.IsValid(id) {
		c.JSON(http.StatusBadRequest, gin.H{
			"code":    errors.ErrCodeInvalidTaskID,
			"message": "Invalid task ID",
		})
		return "", false
	}
	return id, true
}

// queryInt reads a positive integer query parameter, falling back to def
func queryInt(c *gin.Context, key string, def int) int {
	v, err := strconv.Atoi(c.Query(key))
	if err != nil || v < 1 {
		return def
	}
	return v
}
