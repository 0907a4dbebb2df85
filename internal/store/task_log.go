package store

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/voicebot/codexreview/internal/model"
)

// TaskLogStore defines operations for TaskLog model.
// TaskLogStore also implements the logger.TaskLogWriter interface.
type TaskLogStore interface {
	// Write implements logger.TaskLogWriter interface for batch writing logs.
	Write(logs []model.TaskLog) error

	// BatchCreate creates multiple task log entries in a single statement
	BatchCreate(logs []model.TaskLog) error

	// List returns logs matching the query in chronological order, plus the total count
	List(ctx context.Context, q model.TaskLogQuery) ([]model.TaskLog, int64, error)

	// DeleteOlderThan deletes logs created before now minus the given number of days
	DeleteOlderThan(days int) (int64, error)
}

// taskLogStore implements TaskLogStore using GORM.
type taskLogStore struct {
	db *gorm.DB
}

// NewTaskLogStore creates a new TaskLogStore.
func NewTaskLogStore(db *gorm.DB) TaskLogStore {
	return &taskLogStore{db: db}
}

func (s *taskLogStore) Write(logs []model.TaskLog) error {
	return s.BatchCreate(logs)
}

func (s *taskLogStore) BatchCreate(logs []model.TaskLog) error {
	if len(logs) == 0 {
		return nil
	}
	for i := range logs {
		if logs[i].CreatedAt.IsZero() {
			logs[i].CreatedAt = time.Now()
		}
		logs[i].CreatedAt = logs[i].CreatedAt.UTC()
	}
	return s.db.Create(&logs).Error
}

func (s *taskLogStore) List(ctx context.Context, q model.TaskLogQuery) ([]model.TaskLog, int64, error) {
	var logs []model.TaskLog
	var total int64

	query := s.db.WithContext(ctx).Model(&model.TaskLog{}).Where("task_id = ?", q.TaskID)
	if q.Level != "" {
		query = query.Where("level IN ?", levelsAtAndAbove(q.Level))
	}
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	query = query.Order("created_at ASC").Order("id ASC").Offset(q.Offset)
	if q.Limit > 0 {
		query = query.Limit(q.Limit)
	}
	err := query.Find(&logs).Error
	return logs, total, err
}

func (s *taskLogStore) DeleteOlderThan(days int) (int64, error) {
	cutoff := time.Now().UTC().AddDate(0, 0, -days)
	result := s.db.Where("created_at < ?", cutoff).Delete(&model.TaskLog{})
	return result.RowsAffected, result.Error
}

// levelsAtAndAbove returns all log levels at or above the specified level.
// Level priority: debug < info < warn < error < fatal
func levelsAtAndAbove(level model.LogLevel) []model.LogLevel {
	all := []model.LogLevel{
		model.LogLevelDebug, model.LogLevelInfo, model.LogLevelWarn, model.LogLevelError, model.LogLevelFatal,
	}
	for i, l := range all {
		if l == level {
			return all[i:]
		}
	}
	return all
}
