package review

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/voicebot/codexreview/internal/model"
	"github.com/voicebot/codexreview/pkg/errors"
)

func TestResolveIssueID(t *testing.T) {
	tests := []struct {
		name string
		task model.Task
		want string
	}{
		{"codex issue id first", model.Task{CodexIssueID: "copilot-aa1", IssueID: "copilot-bb2", ExternalID: "copilot-cc3"}, "copilot-aa1"},
		{"issue id second", model.Task{CodexIssueID: "JIRA-1", IssueID: " copilot-bb2 ", ExternalID: "copilot-cc3"}, "copilot-bb2"},
		{"external id last", model.Task{ExternalID: "COPILOT-CC3"}, "COPILOT-CC3"},
		{"no match", model.Task{CodexIssueID: "copilot-", IssueID: "copilot_x", ExternalID: "T-1"}, ""},
		{"empty", model.Task{}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ResolveIssueID(&tt.task))
		})
	}
}

func TestLoadIssue(t *testing.T) {
	tracker := &fakeTracker{issue: map[string]any{"id": "copilot-ab12"}}
	assert.Equal(t, map[string]any{"id": "copilot-ab12"}, LoadIssue(context.Background(), tracker, "copilot-ab12"))

	tracker.showErr = errors.Reason(errors.ErrCodeBDShowTimeout)
	assert.Nil(t, LoadIssue(context.Background(), tracker, "copilot-ab12"))
}

func TestMarkerAndNote(t *testing.T) {
	marker := Marker("cnkofmsq2oga1sse1l10")
	assert.Equal(t, "[codex-deferred-review:cnkofmsq2oga1sse1l10]", marker)
	assert.Equal(t,
		"[codex-deferred-review:cnkofmsq2oga1sse1l10] Codex deferred review summary (codex_cli): Fixes login bug.",
		FormatNote(marker, model.SummarySourceCodexCLI, "Fixes login bug."),
	)
}

func TestAnnotator_Append(t *testing.T) {
	const taskID = "cnkofmsq2oga1sse1l10"
	input := func(issue map[string]any) AppendInput {
		return AppendInput{
			IssueID: "copilot-ab12",
			TaskID:  taskID,
			Summary: "Fixes login bug.",
			Source:  model.SummarySourceCodexCLI,
			Issue:   issue,
		}
	}

	t.Run("appends when marker is absent", func(t *testing.T) {
		tracker := &fakeTracker{}
		result, err := NewAnnotator(tracker).Append(context.Background(), input(map[string]any{"notes": ""}))
		require.NoError(t, err)
		assert.True(t, result.Appended)
		assert.Equal(t, Marker(taskID), result.Marker)
		require.Len(t, tracker.notes, 1)
		assert.Equal(t, "copilot-ab12", tracker.notes[0].IssueID)
		assert.Equal(t, result.Note, tracker.notes[0].Note)
	})

	t.Run("appends when issue is unknown", func(t *testing.T) {
		tracker := &fakeTracker{}
		result, err := NewAnnotator(tracker).Append(context.Background(), input(nil))
		require.NoError(t, err)
		assert.True(t, result.Appended)
		assert.Len(t, tracker.notes, 1)
	})

	t.Run("skips when marker is present", func(t *testing.T) {
		tracker := &fakeTracker{}
		notes := "older note\n" + Marker(taskID) + " Codex deferred review summary (codex_cli): old"
		result, err := NewAnnotator(tracker).Append(context.Background(), input(map[string]any{"notes": notes}))
		require.NoError(t, err)
		assert.False(t, result.Appended)
		assert.Equal(t, Marker(taskID), result.Marker)
		assert.Empty(t, tracker.notes)
	})

	t.Run("propagates tracker errors", func(t *testing.T) {
		tracker := &fakeTracker{appendErr: errors.Reason(errors.ErrCodeBDUpdateTimeout)}
		result, err := NewAnnotator(tracker).Append(context.Background(), input(nil))
		require.Error(t, err)
		assert.False(t, result.Appended)
		assert.Equal(t, "codex_review_bd_update_timeout", err.Error())
	})
}
