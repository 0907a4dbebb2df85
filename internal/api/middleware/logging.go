// Package middleware provides HTTP middleware for the API server.
package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/voicebot/codexreview/pkg/logger"
	"github.com/voicebot/codexreview/pkg/telemetry"
)

// unmatchedRoute labels requests that hit no route, keeping metric cardinality bounded
const unmatchedRoute = "unmatched"

// LoggerConfig holds the configuration for the Logger middleware
type LoggerConfig struct {
	// AccessLog logs successful requests at info level
	AccessLog bool
	// SkipPaths are never logged, whatever their status (health checks and scrapes)
	SkipPaths []string
}

// Logger returns a middleware that records request metrics and logs requests.
// Failed requests are always logged; successful ones only with AccessLog.
func Logger(cfg LoggerConfig) gin.HandlerFunc {
	skip := make(map[string]bool, len(cfg.SkipPaths))
	for _, p := range cfg.SkipPaths {
		skip[p] = true
	}
	metrics := telemetry.GetMetrics()

	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		latency := time.Since(start)

		status := c.Writer.Status()
		route := c.FullPath()
		if route == "" {
			route = unmatchedRoute
		}
		metrics.RecordHTTPRequest(c.Request.Context(), c.Request.Method, route, status, latency.Seconds())

		if skip[c.Request.URL.Path] {
			return
		}
		if status < 400 && !cfg.AccessLog {
			return
		}

		fields := []zap.Field{
			zap.Int("status", status),
			zap.String("method", c.Request.Method),
			zap.String("route", route),
			zap.String("path", c.Request.URL.Path),
			zap.String("ip", c.ClientIP()),
			zap.Duration("latency", latency),
		}
		if id := GetRequestID(c); id != "" {
			fields = append(fields, zap.String("request_id", id))
		}
		if len(c.Errors) > 0 {
			fields = append(fields, zap.String("error", c.Errors.String()))
		}

		switch {
		case status >= 500:
			logger.Error("Server error", fields...)
		case status >= 400:
			logger.Warn("Client error", fields...)
		default:
			logger.Info("Request", fields...)
		}
	}
}
