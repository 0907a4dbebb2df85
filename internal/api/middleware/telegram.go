package middleware

import (
	"crypto/subtle"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/voicebot/codexreview/pkg/logger"
)

// TelegramHeaderSecret is the header Telegram sends with the webhook secret token
const TelegramHeaderSecret = "X-Telegram-Bot-Api-Secret-Token"

// TelegramSecret rejects webhook calls whose secret token header does not
// match. An empty secret disables the check.
func TelegramSecret(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if secret == "" {
			c.Next()
			return
		}
		got := c.GetHeader(TelegramHeaderSecret)
		if subtle.ConstantTimeCompare([]byte(got), []byte(secret)) != 1 {
			logger.Warn("Rejected telegram webhook with bad secret token", zap.String("ip", c.ClientIP()))
			abortUnauthorized(c, "Invalid webhook secret")
			return
		}
		c.Next()
	}
}
