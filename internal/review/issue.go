package review

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/voicebot/codexreview/internal/model"
	"github.com/voicebot/codexreview/pkg/logger"
)

var issueIDPattern = regexp.MustCompile(`(?i)^copilot-[a-z0-9]+$`)

// IssueTracker is the issue CLI used by the review pipeline
type IssueTracker interface {
	Show(ctx context.Context, issueID string) (map[string]any, error)
	AppendNotes(ctx context.Context, issueID, note string) error
	UpdateStatus(ctx context.Context, issueID, status, note string) error
}

// ResolveIssueID returns the first of codex_issue_id, issue_id and the
// external id that looks like a tracker id, or "".
func ResolveIssueID(task *model.Task) string {
	for _, candidate := range []string{task.CodexIssueID, task.IssueID, task.ExternalID} {
		candidate = strings.TrimSpace(candidate)
		if candidate != "" && issueIDPattern.MatchString(candidate) {
			return candidate
		}
	}
	return ""
}

// LoadIssue fetches the issue. Failures are logged and yield nil.
func LoadIssue(ctx context.Context, tracker IssueTracker, issueID string) map[string]any {
	issue, err := tracker.Show(ctx, issueID)
	if err != nil {
		logger.Warn("Issue lookup failed, continuing without issue context",
			zap.String(logger.FieldIssueID, issueID),
			zap.Error(err),
		)
		return nil
	}
	return issue
}

// Marker tags the note written for a task so it is appended only once
func Marker(taskID string) string {
	return "[codex-deferred-review:" + taskID + "]"
}

// FormatNote renders the issue note body
func FormatNote(marker, source, summary string) string {
	return fmt.Sprintf("%s Codex deferred review summary (%s): %s", marker, source, summary)
}

// AppendInput describes a note to append
type AppendInput struct {
	IssueID string
	TaskID  string
	Summary string
	Source  string
	// Issue is the issue as loaded before the review, nil if unknown
	Issue map[string]any
}

// AppendResult describes the annotation outcome
type AppendResult struct {
	Appended bool
	Marker   string
	Note     string
}

// Annotator appends review notes to issues
type Annotator struct {
	tracker IssueTracker
}

// NewAnnotator creates an Annotator
func NewAnnotator(tracker IssueTracker) *Annotator {
	return &Annotator{tracker: tracker}
}

// Append writes the note unless the issue notes already carry the task's marker.
func (a *Annotator) Append(ctx context.Context, in AppendInput) (AppendResult, error) {
	marker := Marker(in.TaskID)
	note := FormatNote(marker, in.Source, in.Summary)
	result := AppendResult{Marker: marker, Note: note}

	if notes, ok := in.Issue["notes"].(string); ok && strings.Contains(notes, marker) {
		logger.Debug("Issue already carries review note",
			zap.String(logger.FieldTaskID, in.TaskID),
			zap.String(logger.FieldIssueID, in.IssueID),
		)
		return result, nil
	}

	if err := a.tracker.AppendNotes(ctx, in.IssueID, note); err != nil {
		return result, err
	}
	result.Appended = true
	return result, nil
}
