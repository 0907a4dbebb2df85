package handler

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/voicebot/codexreview/internal/engine"
	"github.com/voicebot/codexreview/internal/model"
	"github.com/voicebot/codexreview/internal/review"
	"github.com/voicebot/codexreview/internal/store"
	"github.com/voicebot/codexreview/pkg/errors"
	"github.com/voicebot/codexreview/pkg/idgen"
)

type taskFixture struct {
	store  store.Store
	queue  *MockEnqueuer
	jobs   *MockJobHandler
	router *gin.Engine
}

func newTaskFixture(t *testing.T, withLogs bool) *taskFixture {
	t.Helper()
	s, cleanup := store.SetupTestDB(t)
	t.Cleanup(cleanup)

	f := &taskFixture{
		store: s,
		queue: &MockEnqueuer{},
		jobs:  &MockJobHandler{},
	}

	var logs store.TaskLogStore
	if withLogs {
		logs = s.TaskLog()
	}
	h := NewTaskHandler(s.Task(), logs, f.queue, f.jobs)

	f.router = SetupTestRouter()
	f.router.POST("/api/v1/tasks", h.CreateTask)
	f.router.GET("/api/v1/tasks/:id", h.GetTask)
	f.router.POST("/api/v1/tasks/:id/review", h.ReviewTask)
	f.router.GET("/api/v1/tasks/:id/logs", h.GetTaskLogs)
	return f
}

func (f *taskFixture) do(req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func TestTaskHandler_CreateTask(t *testing.T) {
	f := newTaskFixture(t, false)

	w := f.do(CreateTestRequest(http.MethodPost, "/api/v1/tasks", map[string]interface{}{
		"name":           "  Prepare release note ",
		"description":    "Draft the text.",
		"codex_issue_id": "copilot-ab12",
	}))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	body := DecodeJSON(t, w)
	id, _ := body["id"].(string)
	assert.True(t, idgen.IsValid(id))
	assert.Equal(t, "Prepare release note", body["name"])
	assert.Equal(t, true, body["codex_task"])
	assert.Equal(t, "deferred", body["codex_review_state"])

	stored, err := f.store.Task().GetByID(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, "copilot-ab12", stored.CodexIssueID)
	assert.Equal(t, model.ReviewStateDeferred, stored.ReviewState)
}

func TestTaskHandler_CreateTask_InvalidRequest(t *testing.T) {
	f := newTaskFixture(t, false)

	tests := []struct {
		name string
		req  *http.Request
	}{
		{"empty body", CreateTestRequest(http.MethodPost, "/api/v1/tasks", nil)},
		{"missing name", CreateTestRequest(http.MethodPost, "/api/v1/tasks", map[string]interface{}{"description": "x"})},
		{"blank name", CreateTestRequest(http.MethodPost, "/api/v1/tasks", map[string]interface{}{"name": "   "})},
		{"invalid json", func() *http.Request {
			req, _ := http.NewRequest(http.MethodPost, "/api/v1/tasks", bytes.NewBufferString("invalid json"))
			req.Header.Set("Content-Type", "application/json")
			return req
		}()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			AssertErrorResponse(t, f.do(tt.req), http.StatusBadRequest, string(errors.ErrCodeValidation))
		})
	}
}

func TestTaskHandler_GetTask(t *testing.T) {
	f := newTaskFixture(t, false)
	task := store.CreateTestTask(t, f.store)
	deleted := store.CreateTestTask(t, f.store, func(tk *model.Task) { tk.IsDeleted = true })

	t.Run("found", func(t *testing.T) {
		w := f.do(CreateTestRequest(http.MethodGet, "/api/v1/tasks/"+task.ID, nil))
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, task.ID, DecodeJSON(t, w)["id"])
	})

	t.Run("invalid id", func(t *testing.T) {
		w := f.do(CreateTestRequest(http.MethodGet, "/api/v1/tasks/65f1c2a9b4d3e8f7a6b5c4d3", nil))
		AssertErrorResponse(t, w, http.StatusBadRequest, string(errors.ErrCodeInvalidTaskID))
	})

	t.Run("unknown id", func(t *testing.T) {
		w := f.do(CreateTestRequest(http.MethodGet, "/api/v1/tasks/"+idgen.NewTaskID(), nil))
		AssertErrorResponse(t, w, http.StatusNotFound, string(errors.ErrCodeNotFound))
	})

	t.Run("soft deleted", func(t *testing.T) {
		w := f.do(CreateTestRequest(http.MethodGet, "/api/v1/tasks/"+deleted.ID, nil))
		AssertErrorResponse(t, w, http.StatusNotFound, string(errors.ErrCodeNotFound))
	})
}

func TestTaskHandler_ReviewTask_Enqueues(t *testing.T) {
	f := newTaskFixture(t, false)
	task := store.CreateTestTask(t, f.store)

	w := f.do(CreateTestRequest(http.MethodPost, "/api/v1/tasks/"+task.ID+"/review", nil))
	require.Equal(t, http.StatusAccepted, w.Code, w.Body.String())

	body := DecodeJSON(t, w)
	assert.Equal(t, task.ID, body["task_id"])
	assert.Equal(t, true, body["queued"])

	require.Len(t, f.queue.Jobs, 1)
	job := f.queue.Jobs[0]
	assert.Equal(t, task.ID, job.Data.TaskID)
	assert.Equal(t, body["job_id"], job.Data.JobID)
	assert.Equal(t, engine.OriginAPI, job.Origin)
	assert.Empty(t, f.jobs.Calls)
}

func TestTaskHandler_ReviewTask_AlreadyQueued(t *testing.T) {
	f := newTaskFixture(t, false)
	f.queue.Refuse = true
	task := store.CreateTestTask(t, f.store)

	w := f.do(CreateTestRequest(http.MethodPost, "/api/v1/tasks/"+task.ID+"/review", nil))
	AssertErrorResponse(t, w, http.StatusConflict, string(errors.ErrCodeConflict))
}

func TestTaskHandler_ReviewTask_Sync(t *testing.T) {
	f := newTaskFixture(t, false)
	task := store.CreateTestTask(t, f.store)
	f.jobs.Result = review.Result{OK: true, TaskID: task.ID, Summary: "Checked.", Source: model.SummarySourceCodexCLI}

	w := f.do(CreateTestRequest(http.MethodPost, "/api/v1/tasks/"+task.ID+"/review?sync=true", nil))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	body := DecodeJSON(t, w)
	assert.Equal(t, true, body["ok"])
	assert.Equal(t, "Checked.", body["summary"])
	require.Len(t, f.jobs.Calls, 1)
	assert.Equal(t, task.ID, f.jobs.Calls[0].TaskID)
	assert.True(t, idgen.IsValid(f.jobs.Calls[0].JobID))
	assert.Empty(t, f.queue.Jobs)
}

func TestTaskHandler_ReviewTask_SyncError(t *testing.T) {
	f := newTaskFixture(t, false)
	task := store.CreateTestTask(t, f.store)
	f.jobs.Err = fmt.Errorf("database is locked")

	w := f.do(CreateTestRequest(http.MethodPost, "/api/v1/tasks/"+task.ID+"/review?sync=true", nil))
	AssertErrorResponse(t, w, http.StatusInternalServerError, string(errors.ErrCodeInternal))
	assert.Equal(t, "Internal server error", DecodeJSON(t, w)["message"])
}

func TestTaskHandler_ReviewTask_NotReviewable(t *testing.T) {
	f := newTaskFixture(t, false)
	plain := store.CreateTestTask(t, f.store, func(tk *model.Task) { tk.CodexTask = false })

	tests := []struct {
		name   string
		id     string
		status int
		code   errors.ErrorCode
	}{
		{"invalid id", "not-an-id", http.StatusBadRequest, errors.ErrCodeInvalidTaskID},
		{"unknown", idgen.NewTaskID(), http.StatusNotFound, errors.ErrCodeNotFound},
		{"not a codex task", plain.ID, http.StatusNotFound, errors.ErrCodeNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := f.do(CreateTestRequest(http.MethodPost, "/api/v1/tasks/"+tt.id+"/review", nil))
			AssertErrorResponse(t, w, tt.status, string(tt.code))
		})
	}
	assert.Empty(t, f.queue.Jobs)
}

func TestTaskHandler_GetTaskLogs(t *testing.T) {
	f := newTaskFixture(t, true)
	task := store.CreateTestTask(t, f.store)

	require.NoError(t, f.store.TaskLog().BatchCreate([]model.TaskLog{
		{TaskID: task.ID, Level: model.LogLevelInfo, Message: "Review job started"},
		{TaskID: task.ID, Level: model.LogLevelError, Message: "codex exited"},
		{TaskID: idgen.NewTaskID(), Level: model.LogLevelInfo, Message: "other task"},
	}))

	t.Run("all levels", func(t *testing.T) {
		w := f.do(CreateTestRequest(http.MethodGet, "/api/v1/tasks/"+task.ID+"/logs", nil))
		require.Equal(t, http.StatusOK, w.Code)
		body := DecodeJSON(t, w)
		assert.Equal(t, float64(2), body["total"])
		assert.Len(t, body["data"], 2)
	})

	t.Run("level filter", func(t *testing.T) {
		w := f.do(CreateTestRequest(http.MethodGet, "/api/v1/tasks/"+task.ID+"/logs?level=error", nil))
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, float64(1), DecodeJSON(t, w)["total"])
	})

	t.Run("paging", func(t *testing.T) {
		w := f.do(CreateTestRequest(http.MethodGet, "/api/v1/tasks/"+task.ID+"/logs?page=2&page_size=1", nil))
		require.Equal(t, http.StatusOK, w.Code)
		body := DecodeJSON(t, w)
		assert.Equal(t, float64(2), body["total"])
		assert.Len(t, body["data"], 1)
	})

	t.Run("invalid level", func(t *testing.T) {
		w := f.do(CreateTestRequest(http.MethodGet, "/api/v1/tasks/"+task.ID+"/logs?level=loud", nil))
		AssertErrorResponse(t, w, http.StatusBadRequest, string(errors.ErrCodeValidation))
	})
}

func TestTaskHandler_GetTaskLogs_Disabled(t *testing.T) {
	f := newTaskFixture(t, false)
	w := f.do(CreateTestRequest(http.MethodGet, "/api/v1/tasks/"+idgen.NewTaskID()+"/logs", nil))
	AssertErrorResponse(t, w, http.StatusNotFound, string(errors.ErrCodeNotFound))
}
