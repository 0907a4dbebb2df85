// Package store provides data access operations for all models.
package store

import (
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/voicebot/codexreview/pkg/logger"
)

const (
	// DefaultTaskLogRetentionDays is the default number of days to retain task logs
	DefaultTaskLogRetentionDays = 14
	// DefaultTaskLogCleanupSchedule runs the cleanup daily at 3 AM
	DefaultTaskLogCleanupSchedule = "0 3 * * *"
)

// TaskLogCleanupService manages periodic cleanup of old task logs
type TaskLogCleanupService struct {
	store         TaskLogStore
	cron          *cron.Cron
	schedule      string
	retentionDays int
	entryID       cron.EntryID
	mu            sync.RWMutex
}

// NewTaskLogCleanupService creates a new task log cleanup service
// An empty schedule falls back to DefaultTaskLogCleanupSchedule.
func NewTaskLogCleanupService(store TaskLogStore, schedule string, retentionDays int) *TaskLogCleanupService {
	if retentionDays <= 0 {
		retentionDays = DefaultTaskLogRetentionDays
	}
	if schedule == "" {
		schedule = DefaultTaskLogCleanupSchedule
	}

	return &TaskLogCleanupService{
		store:         store,
		cron:          cron.New(),
		schedule:      schedule,
		retentionDays: retentionDays,
	}
}

// Start starts the cleanup service with scheduled cleanup tasks
func (s *TaskLogCleanupService) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entryID, err := s.cron.AddFunc(s.schedule, func() { s.Cleanup() })
	if err != nil {
		logger.Error("Failed to schedule task log cleanup", zap.Error(err))
		return err
	}

	s.entryID = entryID

	s.cron.Start()

	logger.Info("Task log cleanup service started",
		zap.String("schedule", s.schedule),
		zap.Int("retention_days", s.retentionDays),
	)

	go s.Cleanup()

	return nil
}

// Stop stops the cleanup service and waits for a running cleanup to finish
func (s *TaskLogCleanupService) Stop() {
	logger.Info("Stopping task log cleanup service")
	<-s.cron.Stop().Done()
	logger.Info("Task log cleanup service stopped")
}

// Cleanup deletes task logs older than the retention period and returns the count removed.
func (s *TaskLogCleanupService) Cleanup() int64 {
	s.mu.RLock()
	days := s.retentionDays
	s.mu.RUnlock()

	startTime := time.Now()
	deletedCount, err := s.store.DeleteOlderThan(days)
	if err != nil {
		logger.Error("Failed to cleanup old task logs",
			zap.Int("retention_days", days),
			zap.Error(err),
		)
		return 0
	}

	logger.Info("Task log cleanup completed",
		zap.Int64("deleted_count", deletedCount),
		zap.Int("retention_days", days),
		zap.Duration("duration", time.Since(startTime)),
	)
	return deletedCount
}

// SetRetentionDays updates the retention period (takes effect on next cleanup)
func (s *TaskLogCleanupService) SetRetentionDays(days int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if days <= 0 {
		days = DefaultTaskLogRetentionDays
	}

	s.retentionDays = days
	logger.Info("Task log retention days updated",
		zap.Int("retention_days", days),
	)
}
