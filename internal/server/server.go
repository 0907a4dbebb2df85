// Package server wires the review worker together and runs it: the HTTP API,
// the job queue with its workers, the due-task scanner and task log cleanup.
package server

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/voicebot/codexreview/internal/api/handler"
	"github.com/voicebot/codexreview/internal/api/router"
	"github.com/voicebot/codexreview/internal/config"
	"github.com/voicebot/codexreview/internal/engine"
	"github.com/voicebot/codexreview/internal/store"
	"github.com/voicebot/codexreview/pkg/logger"
	"github.com/voicebot/codexreview/pkg/telemetry"
)

// HTTP server timeout configuration
const (
	defaultReadTimeout     = 30 * time.Second
	defaultIdleTimeout     = 60 * time.Second
	defaultShutdownTimeout = 30 * time.Second
	defaultStopTimeout     = 5 * time.Second
)

// Server represents the worker process in server mode
type Server struct {
	cfg        *config.Config
	app        *App
	telemetry  *telemetry.Telemetry
	httpServer *http.Server
	router     *gin.Engine

	queue      *engine.JobQueue
	dispatcher *engine.Dispatcher
	scheduler  *engine.Scheduler
	cleanup    *store.TaskLogCleanupService

	ctx    context.Context
	cancel context.CancelFunc
}

// New creates a server over app. tel may be nil.
func New(app *App, tel *telemetry.Telemetry) *Server {
	cfg := app.Config

	if cfg.Server.Debug {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, cancel := context.WithCancel(context.Background())

	queue := engine.NewJobQueue(ctx, cfg.Worker.QueueSize)
	s := &Server{
		cfg:        cfg,
		app:        app,
		telemetry:  tel,
		router:     gin.New(),
		queue:      queue,
		dispatcher: engine.NewDispatcher(ctx, queue, &engine.DispatcherConfig{MaxWorkers: cfg.Worker.Workers}, app.Jobs),
		scheduler: engine.NewScheduler(app.Store.Task(), queue, engine.SchedulerConfig{
			Schedule:        cfg.Worker.ScanCron,
			BatchSize:       cfg.Worker.BatchSize,
			StaleClaimAfter: cfg.Worker.StaleClaimAfter(),
		}),
		ctx:    ctx,
		cancel: cancel,
	}

	if cfg.TaskLog.Enabled {
		s.cleanup = store.NewTaskLogCleanupService(app.Store.TaskLog(), cfg.TaskLog.CleanupCron, cfg.TaskLog.RetentionDays)
	}
	return s
}

// SetupRoutes configures the API routes
func (s *Server) SetupRoutes() {
	deps := router.Deps{
		Config:    s.cfg,
		Tasks:     s.app.Store.Task(),
		Queue:     s.queue,
		Jobs:      s.app.Jobs,
		Auth:      handler.NewAuthHandler(s.cfg.Auth.JWTSecret, s.cfg.Auth.TokenExpiry()),
		Callbacks: s.app.Callbacks,
		Bot:       s.app.Bot,
	}
	if s.cfg.TaskLog.Enabled {
		deps.TaskLogs = s.app.Store.TaskLog()
	}
	if s.telemetry != nil && s.telemetry.IsEnabled() &&
		s.cfg.Telemetry.Prometheus.Enabled && s.cfg.Telemetry.Prometheus.Port == 0 {
		deps.Metrics = s.telemetry.MetricsHandler()
	}
	if s.cfg.Auth.JWTSecret == "" {
		logger.Warn("auth.jwt_secret is empty, the task API rejects every request")
	}

	router.Setup(s.router, deps)
}

// Start starts the background services and the HTTP server
func (s *Server) Start() error {
	s.dispatcher.Start()

	if err := s.scheduler.Start(); err != nil {
		s.dispatcher.Stop()
		return err
	}

	if s.cleanup != nil {
		if err := s.cleanup.Start(); err != nil {
			logger.Warn("Task log cleanup disabled", zap.Error(err))
			s.cleanup = nil
		}
	}

	s.httpServer = &http.Server{
		Addr:        s.cfg.Server.Address(),
		Handler:     s.router,
		ReadTimeout: defaultReadTimeout,
		IdleTimeout: defaultIdleTimeout,
	}

	logger.Info("Starting HTTP server",
		zap.String("address", s.cfg.Server.Address()),
		zap.Bool("debug", s.cfg.Server.Debug),
		zap.Int("workers", s.dispatcher.GetWorkerCount()),
	)

	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	return nil
}

// WaitForShutdown waits for shutdown signal and gracefully stops the server.
// First signal triggers graceful shutdown, second signal forces immediate exit.
func (s *Server) WaitForShutdown() {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	sig := <-quit
	logger.Info("Received shutdown signal, starting graceful shutdown (press Ctrl+C again to force exit)",
		zap.String("signal", sig.String()))

	go func() {
		sig := <-quit
		logger.Warn("Received second shutdown signal, forcing exit",
			zap.String("signal", sig.String()))
		os.Exit(1)
	}()

	ctx, cancel := context.WithTimeout(context.Background(), defaultShutdownTimeout)
	defer cancel()

	s.Shutdown(ctx)
	logger.Info("Server stopped")
}

// Shutdown stops intake first, then waits for in-flight review jobs.
// Jobs still running when ctx expires are canceled.
func (s *Server) Shutdown(ctx context.Context) {
	if s.httpServer != nil {
		if err := s.httpServer.Shutdown(ctx); err != nil {
			logger.Error("Server forced to shutdown", zap.Error(err))
		}
	}

	s.scheduler.Stop()
	if s.cleanup != nil {
		s.cleanup.Stop()
	}

	done := make(chan struct{})
	go func() {
		s.dispatcher.Stop()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		logger.Warn("Shutdown deadline reached, canceling in-flight review jobs")
		s.cancel()
		<-done
	}

	s.queue.Stop()
	s.cancel()

	if s.telemetry != nil {
		if err := s.telemetry.Shutdown(ctx); err != nil {
			logger.Error("Failed to shutdown telemetry", zap.Error(err))
		}
	}
}

// Stop shuts the server down with a short deadline
func (s *Server) Stop() error {
	ctx, cancel := context.WithTimeout(context.Background(), defaultStopTimeout)
	defer cancel()
	s.Shutdown(ctx)
	return nil
}

// Router returns the underlying Gin router
func (s *Server) Router() *gin.Engine {
	return s.router
}

// Queue returns the job queue
func (s *Server) Queue() *engine.JobQueue {
	return s.queue
}
