// Package model defines the data models for the application.
// All models use GORM for ORM operations with SQLite database.
package model

import (
	"database/sql/driver"
	"encoding/json"
	"time"
)

// JSONMap is a custom type for storing JSON maps in SQLite
type JSONMap map[string]interface{}

// Value implements driver.Valuer interface
func (j JSONMap) Value() (driver.Value, error) {
	if j == nil {
		return "{}", nil
	}
	data, err := json.Marshal(j)
	return string(data), err
}

// Scan implements sql.Scanner interface
func (j *JSONMap) Scan(value interface{}) error {
	if value == nil {
		*j = make(map[string]interface{})
		return nil
	}
	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	}
	return json.Unmarshal(bytes, j)
}

// ReviewState is the deferred review lifecycle state of a task.
type ReviewState string

const (
	ReviewStateNone       ReviewState = ""
	ReviewStateDeferred   ReviewState = "deferred"
	ReviewStateProcessing ReviewState = "processing"
	ReviewStateDone       ReviewState = "done"
	ReviewStateCanceled   ReviewState = "canceled"
)

// ReviewDecision is the operator decision taken from the approval card.
type ReviewDecision string

const (
	ReviewDecisionStart  ReviewDecision = "start"
	ReviewDecisionCancel ReviewDecision = "cancel"
)

// Summary source tags
const (
	SummarySourceCodexCLI       = "codex_cli"
	SummarySourceFallbackFields = "fallback_task_fields"
)

// Task is a work item that may be queued for a deferred Codex review.
// Column names keep the codex_review_* prefix shared with the other
// services reading the same table.
type Task struct {
	ID        string    `gorm:"primarykey;size:20" json:"id"` // xid
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Business fields
	ExternalID  string `gorm:"column:external_id;size:255;index" json:"external_id,omitempty"`
	Name        string `gorm:"size:512" json:"name"`
	Description string `gorm:"type:text" json:"description"`
	Priority    string `gorm:"size:50" json:"priority,omitempty"`
	Project     string `gorm:"size:255" json:"project,omitempty"`
	SourceKind  string `gorm:"size:50" json:"source_kind,omitempty"`
	SourceRef   string `gorm:"size:1024" json:"source_ref,omitempty"`
	ExternalRef string `gorm:"size:1024" json:"external_ref,omitempty"`

	// Issue links
	IssueID      string `gorm:"size:255" json:"issue_id,omitempty"`
	CodexIssueID string `gorm:"size:255" json:"codex_issue_id,omitempty"`

	IsDeleted bool `gorm:"not null;default:false;index" json:"is_deleted"`
	CodexTask bool `gorm:"not null;default:false;index" json:"codex_task"`

	// Review scheduling
	ReviewState ReviewState `gorm:"column:codex_review_state;size:20;index" json:"codex_review_state"`
	ReviewDueAt *time.Time  `gorm:"column:codex_review_due_at" json:"codex_review_due_at,omitempty"`

	// Claim guard
	SummaryProcessing bool       `gorm:"column:codex_review_summary_processing;not null;default:false" json:"codex_review_summary_processing"`
	SummaryJobID      *string    `gorm:"column:codex_review_summary_job_id;size:64" json:"codex_review_summary_job_id,omitempty"`
	SummaryStartedAt  *time.Time `gorm:"column:codex_review_summary_started_at" json:"codex_review_summary_started_at,omitempty"`
	SummaryAttempts   int        `gorm:"column:codex_review_summary_attempts;not null;default:0" json:"codex_review_summary_attempts"`

	// Outcome
	Summary            string     `gorm:"column:codex_review_summary;type:text" json:"codex_review_summary,omitempty"`
	SummarySource      string     `gorm:"column:codex_review_summary_source;size:50" json:"codex_review_summary_source,omitempty"`
	SummaryIssueID     *string    `gorm:"column:codex_review_summary_issue_id;size:255" json:"codex_review_summary_issue_id,omitempty"`
	SummaryGeneratedAt *time.Time `gorm:"column:codex_review_summary_generated_at" json:"codex_review_summary_generated_at,omitempty"`
	SummaryFinishedAt  *time.Time `gorm:"column:codex_review_summary_finished_at" json:"codex_review_summary_finished_at,omitempty"`

	// Issue note and approval card metadata
	SummaryNoteMarker     *string    `gorm:"column:codex_review_summary_note_marker;size:128" json:"codex_review_summary_note_marker,omitempty"`
	SummaryNoteAppended   bool       `gorm:"column:codex_review_summary_note_appended;not null;default:false" json:"codex_review_summary_note_appended"`
	ApprovalCardChatID    *string    `gorm:"column:codex_review_approval_card_chat_id;size:64" json:"codex_review_approval_card_chat_id,omitempty"`
	ApprovalCardThreadID  *int64     `gorm:"column:codex_review_approval_card_thread_id" json:"codex_review_approval_card_thread_id,omitempty"`
	ApprovalCardMessageID *int64     `gorm:"column:codex_review_approval_card_message_id" json:"codex_review_approval_card_message_id,omitempty"`
	ApprovalCardSentAt    *time.Time `gorm:"column:codex_review_approval_card_sent_at" json:"codex_review_approval_card_sent_at,omitempty"`

	// Failure bookkeeping
	LastRunnerError *string    `gorm:"column:codex_review_summary_last_runner_error;type:text" json:"codex_review_summary_last_runner_error,omitempty"`
	LastErrorAt     *time.Time `gorm:"column:codex_review_summary_last_error_at" json:"codex_review_summary_last_error_at,omitempty"`
	NextAttemptAt   *time.Time `gorm:"column:codex_review_summary_next_attempt_at;index" json:"codex_review_summary_next_attempt_at,omitempty"`

	// Approval decision
	Decision            ReviewDecision `gorm:"column:codex_review_decision;size:20" json:"codex_review_decision,omitempty"`
	DecidedAt           *time.Time     `gorm:"column:codex_review_decided_at" json:"codex_review_decided_at,omitempty"`
	DecidedByTelegramID *string        `gorm:"column:codex_review_decided_by_telegram_id;size:64" json:"codex_review_decided_by_telegram_id,omitempty"`
}

// TableName specifies the table name for Task
func (Task) TableName() string {
	return "tasks"
}

// HasSummary reports whether a summary has already been generated.
func (t *Task) HasSummary() bool {
	return t.SummaryGeneratedAt != nil
}

// AllModels returns all models for auto-migration
func AllModels() []interface{} {
	return []interface{}{
		&Task{},
		&TaskLog{},
	}
}
