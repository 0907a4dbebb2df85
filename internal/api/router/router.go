// Package router sets up the API routes for the server mode.
package router

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/voicebot/codexreview/consts"
	"github.com/voicebot/codexreview/internal/api/handler"
	"github.com/voicebot/codexreview/internal/api/middleware"
	"github.com/voicebot/codexreview/internal/config"
	"github.com/voicebot/codexreview/internal/engine"
	"github.com/voicebot/codexreview/internal/store"
)

// Queue is the job queue as seen by the API
type Queue interface {
	engine.Enqueuer
	GetStats() engine.QueueStats
}

// Deps holds everything the routes are wired to
type Deps struct {
	Config   *config.Config
	Tasks    store.TaskStore
	TaskLogs store.TaskLogStore // nil when task log capture is disabled
	Queue    Queue
	Jobs     engine.JobHandler
	Auth     *handler.AuthHandler

	// Callbacks and Bot serve the Telegram webhook; the route is skipped when Callbacks is nil
	Callbacks handler.CallbackProcessor
	Bot       handler.BotAPI

	// Metrics is served at /metrics when set
	Metrics http.Handler
}

// Setup configures all API routes
func Setup(r *gin.Engine, d Deps) {
	cfg := d.Config

	r.Use(middleware.Recovery())
	r.Use(middleware.Logger(middleware.LoggerConfig{
		AccessLog: cfg.Logging.AccessLog,
		SkipPaths: []string{"/health", "/metrics"},
	}))
	r.Use(middleware.RequestID())
	r.Use(middleware.ErrorHandler(cfg.Server.Debug))
	r.Use(otelgin.Middleware(consts.ServiceName))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"version": consts.Version,
			"uptime":  consts.GetUptime().Round(time.Second).String(),
		})
	})
	if d.Metrics != nil {
		r.GET("/metrics", gin.WrapH(d.Metrics))
	}

	v1 := r.Group("/api/v1")

	// ============== Telegram webhook (secret token header) ==============

	if d.Callbacks != nil {
		telegramHandler := handler.NewTelegramHandler(d.Callbacks, d.Bot)
		v1.POST("/telegram/webhook",
			middleware.TelegramSecret(cfg.Telegram.WebhookSecret),
			telegramHandler.HandleUpdate,
		)
	}

	// ============== Operator routes (JWT) ==============

	auth := middleware.JWTAuth(d.Auth)

	v1.GET("/auth/me", auth, d.Auth.Me)

	v1.GET("/queue/status", auth, func(c *gin.Context) {
		c.JSON(http.StatusOK, d.Queue.GetStats())
	})

	taskHandler := handler.NewTaskHandler(d.Tasks, d.TaskLogs, d.Queue, d.Jobs)
	tasks := v1.Group("/tasks")
	tasks.Use(auth)
	{
		tasks.POST("", taskHandler.CreateTask)
		tasks.GET("/:id", taskHandler.GetTask)
		tasks.POST("/:id/review", taskHandler.ReviewTask)
		tasks.GET("/:id/logs", taskHandler.GetTaskLogs)
	}
}
