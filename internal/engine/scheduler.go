package engine

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/voicebot/codexreview/internal/review"
	"github.com/voicebot/codexreview/pkg/errors"
	"github.com/voicebot/codexreview/pkg/idgen"
	"github.com/voicebot/codexreview/pkg/logger"
	"github.com/voicebot/codexreview/pkg/telemetry"
)

// Scheduler defaults
const (
	DefaultScanSchedule    = "@every 30s"
	DefaultScanBatchSize   = 50
	DefaultStaleClaimAfter = 15 * time.Minute
)

// DueTaskStore is the part of the task store the scanner uses
type DueTaskStore interface {
	ListDue(ctx context.Context, now time.Time, limit int) ([]string, error)
	ReleaseStaleClaims(ctx context.Context, startedBefore time.Time, errText string, at time.Time) (int64, error)
}

// SchedulerConfig holds scanner settings
type SchedulerConfig struct {
	Schedule        string
	BatchSize       int
	StaleClaimAfter time.Duration
}

// Scheduler periodically releases abandoned claims and enqueues tasks that
// are due for review. Enqueueing is advisory; the claim decides.
type Scheduler struct {
	tasks   DueTaskStore
	queue   Enqueuer
	cfg     SchedulerConfig
	cron    *cron.Cron
	now     func() time.Time
	metrics *telemetry.Metrics
}

// NewScheduler creates a scheduler. Zero config values take the defaults.
func NewScheduler(tasks DueTaskStore, queue Enqueuer, cfg SchedulerConfig) *Scheduler {
	if cfg.Schedule == "" {
		cfg.Schedule = DefaultScanSchedule
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultScanBatchSize
	}
	if cfg.StaleClaimAfter <= 0 {
		cfg.StaleClaimAfter = DefaultStaleClaimAfter
	}

	return &Scheduler{
		tasks:   tasks,
		queue:   queue,
		cfg:     cfg,
		cron:    cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger))),
		now:     time.Now,
		metrics: telemetry.GetMetrics(),
	}
}

// Start schedules the scan and runs one immediately
func (s *Scheduler) Start() error {
	if _, err := s.cron.AddFunc(s.cfg.Schedule, func() { s.Scan(context.Background()) }); err != nil {
		logger.Error("Failed to schedule due task scan", zap.Error(err))
		return err
	}
	s.cron.Start()

	logger.Info("Scheduler started",
		zap.String("schedule", s.cfg.Schedule),
		zap.Int("batch_size", s.cfg.BatchSize),
		zap.Duration("stale_claim_after", s.cfg.StaleClaimAfter),
	)

	go s.Scan(context.Background())
	return nil
}

// Stop stops the scheduler and waits for a running scan to finish
func (s *Scheduler) Stop() {
	logger.Info("Stopping scheduler")
	<-s.cron.Stop().Done()
	logger.Info("Scheduler stopped")
}

// Scan releases stale claims, then enqueues due tasks. It returns the
// number of jobs accepted by the queue.
func (s *Scheduler) Scan(ctx context.Context) int {
	now := s.now()

	released, err := s.tasks.ReleaseStaleClaims(ctx, now.Add(-s.cfg.StaleClaimAfter), string(errors.ErrCodeClaimAbandoned), now)
	if err != nil {
		logger.Error("Failed to release stale claims", zap.Error(err))
	} else if released > 0 {
		logger.Warn("Released abandoned review claims", zap.Int64("count", released))
	}

	ids, err := s.tasks.ListDue(ctx, now, s.cfg.BatchSize)
	if err != nil {
		logger.Error("Failed to list due tasks", zap.Error(err))
		return 0
	}

	enqueued := 0
	for _, id := range ids {
		if s.queue.HasTask(id) {
			continue
		}
		job := &Job{
			Data:   review.JobData{TaskID: id, JobID: idgen.NewJobID()},
			Origin: OriginScheduler,
		}
		if s.queue.Enqueue(job) {
			enqueued++
			s.metrics.RecordEnqueued(ctx, OriginScheduler)
		}
	}

	if len(ids) > 0 {
		logger.Debug("Due task scan completed",
			zap.Int("due", len(ids)),
			zap.Int("enqueued", enqueued),
		)
	}
	return enqueued
}
