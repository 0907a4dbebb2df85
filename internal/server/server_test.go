package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/voicebot/codexreview/internal/config"
	"github.com/voicebot/codexreview/internal/model"
	"github.com/voicebot/codexreview/internal/store"
	"github.com/voicebot/codexreview/pkg/logger"
)

func init() {
	logger.Init(logger.Config{
		Level:  "error",
		Format: "text",
	})
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.Server.Host = "127.0.0.1"
	cfg.Server.Port = 0
	cfg.Review.CodexBin = filepath.Join(t.TempDir(), "missing-codex")
	cfg.Review.Workdir = t.TempDir()
	cfg.Beads.Bin = filepath.Join(t.TempDir(), "missing-bd")
	cfg.Telegram.BotToken = ""
	cfg.Auth.JWTSecret = "server-test-secret"
	cfg.Worker.ScanCron = "@every 1h"
	return cfg
}

func newTestApp(t *testing.T, cfg *config.Config) *App {
	t.Helper()
	s, cleanup := store.SetupTestDB(t)
	t.Cleanup(cleanup)

	app, err := NewApp(cfg, s)
	require.NoError(t, err)
	t.Cleanup(func() { _ = app.Close() })
	return app
}

func TestNewApp(t *testing.T) {
	cfg := testConfig(t)
	app := newTestApp(t, cfg)

	assert.Equal(t, cfg, app.Config)
	assert.NotNil(t, app.Beads)
	assert.NotNil(t, app.Bot)
	assert.False(t, app.Bot.HasToken())
	assert.NotNil(t, app.Jobs)
	assert.NotNil(t, app.Callbacks)
	assert.Equal(t, "codex", app.Agent.Name())
	assert.False(t, app.Agent.Available())
}

func TestNewApp_PromptCardFromBackendCwd(t *testing.T) {
	repo := t.TempDir()
	backend := filepath.Join(repo, "backend")
	card := filepath.Join(backend, config.DefaultPromptCardRelativePath)
	require.NoError(t, os.MkdirAll(filepath.Dir(card), 0755))
	require.NoError(t, os.WriteFile(card, []byte("Backend card"), 0644))
	t.Chdir(backend)

	cfg := testConfig(t)
	cfg.Review.Workdir = ""
	app := newTestApp(t, cfg)

	loaded := app.Cards.Load()
	assert.False(t, loaded.IsFallback())
	assert.Equal(t, "Backend card", loaded.Text)
	assert.Equal(t, filepath.Base(card), filepath.Base(loaded.Path))

	t.Run("relative configured path resolves against cwd", func(t *testing.T) {
		custom := filepath.Join(backend, "cards", "review.md")
		require.NoError(t, os.MkdirAll(filepath.Dir(custom), 0755))
		require.NoError(t, os.WriteFile(custom, []byte("Custom card"), 0644))

		cfg := testConfig(t)
		cfg.Review.Workdir = ""
		cfg.Review.PromptCardPath = "cards/review.md"
		app := newTestApp(t, cfg)

		assert.Equal(t, "Custom card", app.Cards.Load().Text)
	})
}

func TestServer_New(t *testing.T) {
	cfg := testConfig(t)
	srv := New(newTestApp(t, cfg), nil)

	require.NotNil(t, srv)
	assert.NotNil(t, srv.Router())
	assert.NotNil(t, srv.Queue())
	assert.NotNil(t, srv.cleanup)
	assert.Equal(t, cfg.Worker.Workers, srv.dispatcher.GetWorkerCount())
}

func TestServer_NewWithoutTaskLogs(t *testing.T) {
	cfg := testConfig(t)
	cfg.TaskLog.Enabled = false

	srv := New(newTestApp(t, cfg), nil)
	assert.Nil(t, srv.cleanup)
}

func TestServer_SetupRoutes(t *testing.T) {
	srv := New(newTestApp(t, testConfig(t)), nil)
	srv.SetupRoutes()

	tests := []struct {
		method string
		path   string
		want   int
	}{
		{http.MethodGet, "/health", http.StatusOK},
		{http.MethodGet, "/api/v1/tasks/cnkofmsq2oga1sse1l10", http.StatusUnauthorized},
		{http.MethodGet, "/api/v1/queue/status", http.StatusUnauthorized},
		{http.MethodGet, "/metrics", http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			w := httptest.NewRecorder()
			req, _ := http.NewRequest(tt.method, tt.path, nil)
			srv.Router().ServeHTTP(w, req)
			assert.Equal(t, tt.want, w.Code)
		})
	}
}

func TestServer_StartInvalidSchedule(t *testing.T) {
	cfg := testConfig(t)
	cfg.Worker.ScanCron = "every now and then"

	srv := New(newTestApp(t, cfg), nil)
	srv.SetupRoutes()
	assert.Error(t, srv.Start())
	assert.False(t, srv.dispatcher.IsRunning())
}

// TestServer_ScannerCompletesDueTask runs a due task end to end. The codex
// binary is missing, so the summary falls back to the task fields, and the
// task has no issue id, so neither bd nor Telegram is called.
func TestServer_ScannerCompletesDueTask(t *testing.T) {
	cfg := testConfig(t)
	app := newTestApp(t, cfg)

	task := store.CreateTestTask(t, app.Store, func(tk *model.Task) {
		tk.ExternalID = ""
		tk.CodexIssueID = ""
		tk.IssueID = ""
	})

	srv := New(app, nil)
	srv.SetupRoutes()
	require.NoError(t, srv.Start())
	defer srv.Stop()

	require.Eventually(t, func() bool {
		got, err := app.Store.Task().GetByID(context.Background(), task.ID)
		return err == nil && got.HasSummary()
	}, 5*time.Second, 20*time.Millisecond)

	got, err := app.Store.Task().GetByID(context.Background(), task.ID)
	require.NoError(t, err)
	assert.Equal(t, model.SummarySourceFallbackFields, got.SummarySource)
	assert.NotEmpty(t, got.Summary)
	assert.False(t, got.SummaryProcessing)
	assert.Nil(t, got.ApprovalCardMessageID)
}

func TestServer_StopWithoutStart(t *testing.T) {
	srv := New(newTestApp(t, testConfig(t)), nil)
	assert.NoError(t, srv.Stop())
}
