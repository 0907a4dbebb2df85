package handler

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/voicebot/codexreview/internal/engine"
	"github.com/voicebot/codexreview/internal/model"
	"github.com/voicebot/codexreview/internal/review"
	"github.com/voicebot/codexreview/internal/store"
	"github.com/voicebot/codexreview/pkg/errors"
	"github.com/voicebot/codexreview/pkg/idgen"
	"github.com/voicebot/codexreview/pkg/logger"
	"github.com/voicebot/codexreview/pkg/telemetry"
)

// Task log pagination
const (
	defaultLogPageSize = 50
	maxLogPageSize     = 500
)

// TaskHandler handles deferred review task requests
type TaskHandler struct {
	tasks   store.TaskStore
	logs    store.TaskLogStore
	queue   engine.Enqueuer
	jobs    engine.JobHandler
	metrics *telemetry.Metrics
}

// NewTaskHandler creates a task handler. logs may be nil when task log
// capture is disabled.
func NewTaskHandler(tasks store.TaskStore, logs store.TaskLogStore, queue engine.Enqueuer, jobs engine.JobHandler) *TaskHandler {
	return &TaskHandler{
		tasks:   tasks,
		logs:    logs,
		queue:   queue,
		jobs:    jobs,
		metrics: telemetry.GetMetrics(),
	}
}

// CreateTaskRequest is the body of POST /api/v1/tasks
type CreateTaskRequest struct {
	Name         string     `json:"name" binding:"required"`
	Description  string     `json:"description"`
	Priority     string     `json:"priority"`
	Project      string     `json:"project"`
	ExternalID   string     `json:"external_id"`
	IssueID      string     `json:"issue_id"`
	CodexIssueID string     `json:"codex_issue_id"`
	SourceKind   string     `json:"source_kind"`
	SourceRef    string     `json:"source_ref"`
	ExternalRef  string     `json:"external_ref"`
	DueAt        *time.Time `json:"due_at"`
}

// CreateTask handles POST /api/v1/tasks
func (h *TaskHandler) CreateTask(c *gin.Context) {
	var req CreateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"code":    errors.ErrCodeValidation,
			"message": "Invalid request body",
		})
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"code":    errors.ErrCodeValidation,
			"message": "name is required",
		})
		return
	}

	task := &model.Task{
		ID:           idgen.NewTaskID(),
		Name:         strings.TrimSpace(req.Name),
		Description:  req.Description,
		Priority:     req.Priority,
		Project:      req.Project,
		ExternalID:   strings.TrimSpace(req.ExternalID),
		IssueID:      strings.TrimSpace(req.IssueID),
		CodexIssueID: strings.TrimSpace(req.CodexIssueID),
		SourceKind:   req.SourceKind,
		SourceRef:    req.SourceRef,
		ExternalRef:  req.ExternalRef,
		CodexTask:    true,
		ReviewState:  model.ReviewStateDeferred,
		ReviewDueAt:  req.DueAt,
	}

	if err := h.tasks.Create(c.Request.Context(), task); err != nil {
		logger.Error("Failed to create task", zap.Error(err))
		respondError(c, errors.Wrap(errors.ErrCodeDBQuery, "failed to create task", err))
		return
	}

	logger.Info("Deferred review task created",
		zap.String(logger.FieldTaskID, task.ID),
		zap.String(logger.FieldIssueID, review.ResolveIssueID(task)),
	)
	c.JSON(http.StatusCreated, task)
}

// GetTask handles GET /api/v1/tasks/:id
func (h *TaskHandler) GetTask(c *gin.Context) {
	id, ok := taskIDParam(c)
	if !ok {
		return
	}

	task, err := h.tasks.GetActive(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, task)
}

// ReviewTask handles POST /api/v1/tasks/:id/review.
// With ?sync=true the job runs inline and its result is returned;
// otherwise the job is queued and 202 is returned.
func (h *TaskHandler) ReviewTask(c *gin.Context) {
	id, ok := taskIDParam(c)
	if !ok {
		return
	}

	ctx := c.Request.Context()
	if _, err := h.tasks.FindCodexTask(ctx, id); err != nil {
		respondError(c, err)
		return
	}

	data := review.JobData{TaskID: id, JobID: idgen.NewJobID()}

	if c.Query("sync") == "true" {
		// the job must not die with the client connection
		result, err := h.jobs.Handle(context.WithoutCancel(ctx), data)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, result)
		return
	}

	if !h.queue.Enqueue(&engine.Job{Data: data, Origin: engine.OriginAPI}) {
		c.JSON(http.StatusConflict, gin.H{
			"code":    errors.ErrCodeConflict,
			"message": "Task is already queued or running",
		})
		return
	}
	h.metrics.RecordEnqueued(ctx, engine.OriginAPI)

	c.JSON(http.StatusAccepted, gin.H{
		"task_id": id,
		"job_id":  data.JobID,
		"queued":  true,
	})
}

// GetTaskLogs handles GET /api/v1/tasks/:id/logs
func (h *TaskHandler) GetTaskLogs(c *gin.Context) {
	id, ok := taskIDParam(c)
	if !ok {
		return
	}
	if h.logs == nil {
		c.JSON(http.StatusNotFound, gin.H{
			"code":    errors.ErrCodeNotFound,
			"message": "Task logs are disabled",
		})
		return
	}

	var level model.LogLevel
	if raw := c.Query("level"); raw != "" {
		switch model.LogLevel(raw) {
		case model.LogLevelDebug, model.LogLevelInfo, model.LogLevelWarn, model.LogLevelError, model.LogLevelFatal:
			level = model.LogLevel(raw)
		default:
			c.JSON(http.StatusBadRequest, gin.H{
				"code":    errors.ErrCodeValidation,
				"message": "Invalid log level, must be one of: debug, info, warn, error, fatal",
			})
			return
		}
	}

	page := queryInt(c, "page", 1)
	pageSize := queryInt(c, "page_size", defaultLogPageSize)
	if pageSize > maxLogPageSize {
		pageSize = defaultLogPageSize
	}

	logs, total, err := h.logs.List(c.Request.Context(), model.TaskLogQuery{
		TaskID: id,
		Level:  level,
		Limit:  pageSize,
		Offset: (page - 1) * pageSize,
	})
	if err != nil {
		logger.Error("Failed to fetch task logs", zap.String(logger.FieldTaskID, id), zap.Error(err))
		respondError(c, errors.Wrap(errors.ErrCodeDBQuery, "failed to fetch logs", err))
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data":    logs,
		"total":   total,
		"task_id": id,
	})
}
