// Package store provides test utilities for database testing.
package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/voicebot/codexreview/internal/database"
	"github.com/voicebot/codexreview/internal/model"
	"github.com/voicebot/codexreview/pkg/idgen"
)

// SetupTestDB creates a SQLite database in a temp directory for testing.
// It returns a Store instance and a cleanup function.
// The cleanup function should be called with defer in tests.
func SetupTestDB(t testing.TB) (Store, func()) {
	t.Helper()

	db, err := database.Open(database.Config{Path: filepath.Join(t.TempDir(), "test.db")})
	if err != nil {
		t.Fatalf("Failed to initialize test database: %v", err)
	}

	cleanup := func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	}
	return NewStore(db), cleanup
}

// CreateTestTask creates a deferred codex task that is eligible for review right away.
// Fields can be overridden by passing a function that modifies the task.
func CreateTestTask(t testing.TB, store Store, overrides ...func(*model.Task)) *model.Task {
	t.Helper()

	task := &model.Task{
		ID:           idgen.NewTaskID(),
		ExternalID:   "copilot-ab12",
		Name:         "Prepare release note",
		Description:  "Draft and verify the customer release text.",
		Priority:     "P2",
		Project:      "voicebot",
		SourceKind:   "voice_session",
		CodexTask:    true,
		CodexIssueID: "copilot-ab12",
		ReviewState:  model.ReviewStateDeferred,
	}

	for _, override := range overrides {
		override(task)
	}

	if err := store.Task().Create(context.Background(), task); err != nil {
		t.Fatalf("Failed to create test task: %v", err)
	}
	return task
}
