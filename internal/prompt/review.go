package prompt

import (
	"bytes"
	"encoding/json"
	"strings"
	"time"

	"github.com/voicebot/codexreview/internal/model"
)

const (
	inputHeader  = "Input JSON:"
	outputFooter = "Return strictly one JSON object:\n{\"summary\":\"...\"}"
)

// TaskContext is the task part of the prompt input.
type TaskContext struct {
	TaskID      string     `json:"task_id"`
	Name        string     `json:"name"`
	Description string     `json:"description"`
	Priority    string     `json:"priority"`
	Project     string     `json:"project"`
	SourceKind  string     `json:"source_kind"`
	SourceRef   *string    `json:"source_ref"`
	ExternalRef *string    `json:"external_ref"`
	DueAt       *time.Time `json:"codex_review_due_at"`
}

type reviewInput struct {
	Task  TaskContext    `json:"task"`
	Issue map[string]any `json:"issue"`
}

func optional(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

// NewTaskContext extracts the prompt fields of a task. The task id is the
// business id when present, otherwise the store id.
func NewTaskContext(task *model.Task) TaskContext {
	taskID := strings.TrimSpace(task.ExternalID)
	if taskID == "" {
		taskID = task.ID
	}
	return TaskContext{
		TaskID:      taskID,
		Name:        strings.TrimSpace(task.Name),
		Description: strings.TrimSpace(task.Description),
		Priority:    strings.TrimSpace(task.Priority),
		Project:     strings.TrimSpace(task.Project),
		SourceKind:  strings.TrimSpace(task.SourceKind),
		SourceRef:   optional(task.SourceRef),
		ExternalRef: optional(task.ExternalRef),
		DueAt:       task.ReviewDueAt,
	}
}

// BuildReviewPrompt renders the card, the task and issue as indented JSON,
// and the output contract.
func BuildReviewPrompt(card Card, task *model.Task, issue map[string]any) (string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(reviewInput{Task: NewTaskContext(task), Issue: issue}); err != nil {
		return "", err
	}

	var sb strings.Builder
	sb.WriteString(strings.TrimSpace(card.Text))
	sb.WriteString("\n\n")
	sb.WriteString(inputHeader)
	sb.WriteString("\n")
	sb.WriteString(strings.TrimRight(buf.String(), "\n"))
	sb.WriteString("\n\n")
	sb.WriteString(outputFooter)
	return sb.String(), nil
}
