package store

import (
	"context"
	stderrors "errors"
	"time"

	"gorm.io/gorm"

	"github.com/voicebot/codexreview/internal/model"
	"github.com/voicebot/codexreview/pkg/errors"
)

// Completion carries everything recorded when a review job succeeds.
type Completion struct {
	Summary      string
	Source       string
	IssueID      string
	NoteMarker   string
	NoteAppended bool

	// Approval card metadata, left unset when no card was sent
	CardChatID    string
	CardThreadID  *int64
	CardMessageID *int64
	CardSentAt    *time.Time

	CompletedAt time.Time
}

// Decision is an operator decision taken from an approval card.
type Decision struct {
	Action         model.ReviewDecision
	State          model.ReviewState
	DecidedAt      time.Time
	TelegramUserID string
}

// TaskStore defines operations for the Task model.
type TaskStore interface {
	Create(ctx context.Context, task *model.Task) error
	GetByID(ctx context.Context, id string) (*model.Task, error)
	// GetActive returns a task that is not soft-deleted.
	GetActive(ctx context.Context, id string) (*model.Task, error)
	// FindCodexTask returns a task that is not soft-deleted and takes part in deferred review.
	FindCodexTask(ctx context.Context, id string) (*model.Task, error)

	// ClaimForReview atomically marks an eligible task as processing.
	// It returns false without error when the task is not eligible at now.
	ClaimForReview(ctx context.Context, id, jobID string, now time.Time) (bool, error)
	CompleteReview(ctx context.Context, id string, c Completion) error
	FailReview(ctx context.Context, id, errText string, failedAt time.Time, retryDelay time.Duration) error
	ReleaseMissingClaim(ctx context.Context, id, errText string, at time.Time) error
	// ReleaseStaleClaims frees claims started before startedBefore, stamping errText
	// and making the tasks eligible again at at.
	ReleaseStaleClaims(ctx context.Context, startedBefore time.Time, errText string, at time.Time) (int64, error)

	// ListDue returns ids of tasks eligible for a claim at now, oldest due first.
	ListDue(ctx context.Context, now time.Time, limit int) ([]string, error)
	// ApplyDecision persists an approval decision. It returns false when no task matched.
	ApplyDecision(ctx context.Context, id string, d Decision) (bool, error)
}

// taskStore implements TaskStore using GORM.
type taskStore struct {
	db *gorm.DB
}

func newTaskStore(db *gorm.DB) TaskStore {
	return &taskStore{db: db}
}

// SQLite compares timestamps as text, so every stored and compared time is UTC.
func utc(t time.Time) time.Time {
	return t.UTC()
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := t.UTC()
	return &v
}

func nullableString(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

// eligibleAt restricts a query to tasks that may be claimed at now.
func eligibleAt(now time.Time) func(*gorm.DB) *gorm.DB {
	now = utc(now)
	return func(db *gorm.DB) *gorm.DB {
		return db.
			Where("is_deleted = ? AND codex_task = ?", false, true).
			Where("codex_review_state = ?", model.ReviewStateDeferred).
			Where("codex_review_summary_processing = ?", false).
			Where("codex_review_summary_generated_at IS NULL").
			Where("(codex_review_due_at IS NULL OR codex_review_due_at <= ?)", now).
			Where("(codex_review_summary_next_attempt_at IS NULL OR codex_review_summary_next_attempt_at <= ?)", now)
	}
}

func (s *taskStore) Create(ctx context.Context, task *model.Task) error {
	task.ReviewDueAt = utcPtr(task.ReviewDueAt)
	task.NextAttemptAt = utcPtr(task.NextAttemptAt)
	task.SummaryGeneratedAt = utcPtr(task.SummaryGeneratedAt)
	return s.db.WithContext(ctx).Create(task).Error
}

func (s *taskStore) first(ctx context.Context, scope func(*gorm.DB) *gorm.DB, id string) (*model.Task, error) {
	var task model.Task
	err := s.db.WithContext(ctx).Scopes(scope).Where("id = ?", id).First(&task).Error
	if err != nil {
		if stderrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.ErrNotFound("task")
		}
		return nil, errors.Wrap(errors.ErrCodeDBQuery, "failed to load task", err)
	}
	return &task, nil
}

func (s *taskStore) GetByID(ctx context.Context, id string) (*model.Task, error) {
	return s.first(ctx, func(db *gorm.DB) *gorm.DB { return db }, id)
}

func (s *taskStore) GetActive(ctx context.Context, id string) (*model.Task, error) {
	return s.first(ctx, func(db *gorm.DB) *gorm.DB {
		return db.Where("is_deleted = ?", false)
	}, id)
}

func (s *taskStore) FindCodexTask(ctx context.Context, id string) (*model.Task, error) {
	return s.first(ctx, func(db *gorm.DB) *gorm.DB {
		return db.Where("is_deleted = ? AND codex_task = ?", false, true)
	}, id)
}

func (s *taskStore) ClaimForReview(ctx context.Context, id, jobID string, now time.Time) (bool, error) {
	now = utc(now)
	result := s.db.WithContext(ctx).Model(&model.Task{}).
		Where("id = ?", id).
		Scopes(eligibleAt(now)).
		Updates(map[string]interface{}{
			"codex_review_summary_processing": true,
			"codex_review_summary_job_id":     nullableString(jobID),
			"codex_review_summary_started_at": now,
			"codex_review_summary_attempts":   gorm.Expr("codex_review_summary_attempts + 1"),
			"updated_at":                      now,
		})
	if result.Error != nil {
		return false, errors.Wrap(errors.ErrCodeDBQuery, "failed to claim task", result.Error)
	}
	return result.RowsAffected == 1, nil
}

func (s *taskStore) CompleteReview(ctx context.Context, id string, c Completion) error {
	at := utc(c.CompletedAt)
	updates := map[string]interface{}{
		"codex_review_summary":                  c.Summary,
		"codex_review_summary_source":           c.Source,
		"codex_review_summary_issue_id":         nullableString(c.IssueID),
		"codex_review_summary_generated_at":     at,
		"codex_review_summary_processing":       false,
		"codex_review_summary_finished_at":      at,
		"codex_review_summary_note_marker":      nullableString(c.NoteMarker),
		"codex_review_summary_note_appended":    c.NoteAppended,
		"codex_review_summary_last_runner_error": nil,
		"codex_review_summary_last_error_at":    nil,
		"codex_review_summary_next_attempt_at":  nil,
		"updated_at":                            at,
	}
	if c.CardChatID != "" {
		updates["codex_review_approval_card_chat_id"] = c.CardChatID
		updates["codex_review_approval_card_thread_id"] = c.CardThreadID
		updates["codex_review_approval_card_message_id"] = c.CardMessageID
		updates["codex_review_approval_card_sent_at"] = utcPtr(c.CardSentAt)
	}

	err := s.db.WithContext(ctx).Model(&model.Task{}).Where("id = ?", id).Updates(updates).Error
	if err != nil {
		return errors.Wrap(errors.ErrCodeDBQuery, "failed to record review completion", err)
	}
	return nil
}

func (s *taskStore) FailReview(ctx context.Context, id, errText string, failedAt time.Time, retryDelay time.Duration) error {
	failedAt = utc(failedAt)
	err := s.db.WithContext(ctx).Model(&model.Task{}).Where("id = ?", id).
		Updates(map[string]interface{}{
			"codex_review_summary_processing":        false,
			"codex_review_summary_last_runner_error": errText,
			"codex_review_summary_last_error_at":     failedAt,
			"codex_review_summary_next_attempt_at":   failedAt.Add(retryDelay),
			"updated_at":                             failedAt,
		}).Error
	if err != nil {
		return errors.Wrap(errors.ErrCodeDBQuery, "failed to record review failure", err)
	}
	return nil
}

func (s *taskStore) ReleaseMissingClaim(ctx context.Context, id, errText string, at time.Time) error {
	at = utc(at)
	err := s.db.WithContext(ctx).Model(&model.Task{}).Where("id = ?", id).
		Updates(map[string]interface{}{
			"codex_review_summary_processing":        false,
			"codex_review_summary_last_runner_error": errText,
			"codex_review_summary_last_error_at":     at,
			"updated_at":                             at,
		}).Error
	if err != nil {
		return errors.Wrap(errors.ErrCodeDBQuery, "failed to release claim", err)
	}
	return nil
}

func (s *taskStore) ReleaseStaleClaims(ctx context.Context, startedBefore time.Time, errText string, at time.Time) (int64, error) {
	at = utc(at)
	result := s.db.WithContext(ctx).Model(&model.Task{}).
		Where("codex_review_summary_processing = ?", true).
		Where("(codex_review_summary_started_at IS NULL OR codex_review_summary_started_at < ?)", utc(startedBefore)).
		Updates(map[string]interface{}{
			"codex_review_summary_processing":        false,
			"codex_review_summary_last_runner_error": errText,
			"codex_review_summary_last_error_at":     at,
			"codex_review_summary_next_attempt_at":   at,
			"updated_at":                             at,
		})
	if result.Error != nil {
		return 0, errors.Wrap(errors.ErrCodeDBQuery, "failed to release stale claims", result.Error)
	}
	return result.RowsAffected, nil
}

func (s *taskStore) ListDue(ctx context.Context, now time.Time, limit int) ([]string, error) {
	var ids []string
	query := s.db.WithContext(ctx).Model(&model.Task{}).
		Scopes(eligibleAt(now)).
		Order("codex_review_due_at ASC").
		Order("created_at ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Pluck("id", &ids).Error; err != nil {
		return nil, errors.Wrap(errors.ErrCodeDBQuery, "failed to list due tasks", err)
	}
	return ids, nil
}

func (s *taskStore) ApplyDecision(ctx context.Context, id string, d Decision) (bool, error) {
	at := utc(d.DecidedAt)
	result := s.db.WithContext(ctx).Model(&model.Task{}).
		Where("id = ? AND is_deleted = ? AND codex_task = ?", id, false, true).
		Updates(map[string]interface{}{
			"codex_review_state":                   d.State,
			"codex_review_decision":                d.Action,
			"codex_review_decided_at":              at,
			"codex_review_decided_by_telegram_id":  nullableString(d.TelegramUserID),
			"codex_review_due_at":                  nil,
			"codex_review_summary_next_attempt_at": nil,
			"updated_at":                           at,
		})
	if result.Error != nil {
		return false, errors.Wrap(errors.ErrCodeDBQuery, "failed to apply review decision", result.Error)
	}
	return result.RowsAffected > 0, nil
}
