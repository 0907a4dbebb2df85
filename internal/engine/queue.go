// Package engine runs review jobs in-process: a deduplicating job queue,
// a worker pool that drains it and a cron scanner that feeds it.
package engine

import (
	"container/list"
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/voicebot/codexreview/internal/review"
	"github.com/voicebot/codexreview/pkg/logger"
)

// Job origins
const (
	OriginScheduler = "scheduler"
	OriginAPI       = "api"
)

// Job is a queued review job
type Job struct {
	Data       review.JobData
	Origin     string
	EnqueuedAt time.Time
}

// JobQueue is a FIFO of review jobs. A task id is held at most once,
// whether pending or running.
type JobQueue struct {
	mu sync.RWMutex

	// pending is the FIFO of jobs waiting for a worker
	pending *list.List

	// jobsByTaskID indexes pending jobs for dedupe and removal
	jobsByTaskID map[string]*list.Element

	// running holds task ids handed to a worker and not yet completed
	running map[string]bool

	capacity int

	// jobReady signals that there are jobs ready to be processed
	jobReady chan struct{}

	ctx    context.Context
	cancel context.CancelFunc
}

// NewJobQueue creates a queue holding at most capacity pending jobs.
// A non-positive capacity means unbounded.
func NewJobQueue(ctx context.Context, capacity int) *JobQueue {
	queueCtx, cancel := context.WithCancel(ctx)

	q := &JobQueue{
		pending:      list.New(),
		jobsByTaskID: make(map[string]*list.Element),
		running:      make(map[string]bool),
		capacity:     capacity,
		jobReady:     make(chan struct{}, 1),
		ctx:          queueCtx,
		cancel:       cancel,
	}

	logger.Info("Job queue initialized", zap.Int("capacity", capacity))
	return q
}

// Enqueue adds a job. It returns false when the task is already queued or
// running, or when the queue is full.
func (q *JobQueue) Enqueue(job *Job) bool {
	if job == nil || job.Data.TaskID == "" {
		logger.Warn("Attempted to enqueue job without task id")
		return false
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	taskID := job.Data.TaskID
	if _, exists := q.jobsByTaskID[taskID]; exists || q.running[taskID] {
		logger.Debug("Job already queued, skipping", zap.String(logger.FieldTaskID, taskID))
		return false
	}
	if q.capacity > 0 && q.pending.Len() >= q.capacity {
		logger.Warn("Job queue is full, dropping job",
			zap.String(logger.FieldTaskID, taskID),
			zap.Int("capacity", q.capacity),
		)
		return false
	}

	if job.EnqueuedAt.IsZero() {
		job.EnqueuedAt = time.Now()
	}
	q.jobsByTaskID[taskID] = q.pending.PushBack(job)
	q.signalJobReady()
	return true
}

// Dequeue returns the oldest pending job and marks its task running, or nil.
func (q *JobQueue) Dequeue() *Job {
	q.mu.Lock()
	defer q.mu.Unlock()

	elem := q.pending.Front()
	if elem == nil {
		return nil
	}
	job := q.pending.Remove(elem).(*Job)
	delete(q.jobsByTaskID, job.Data.TaskID)
	q.running[job.Data.TaskID] = true
	return job
}

// MarkComplete releases a running task id so it may be queued again.
func (q *JobQueue) MarkComplete(taskID string) {
	q.mu.Lock()
	defer q.mu.Unlock()

	delete(q.running, taskID)
	if q.pending.Len() > 0 {
		q.signalJobReady()
	}
}

// JobReady returns the channel that signals when jobs are ready
func (q *JobQueue) JobReady() <-chan struct{} {
	return q.jobReady
}

// signalJobReady sends a non-blocking signal to the jobReady channel
func (q *JobQueue) signalJobReady() {
	select {
	case q.jobReady <- struct{}{}:
	default:
		// a signal is already pending
	}
}

// QueueStats holds queue statistics
type QueueStats struct {
	Pending int `json:"pending"`
	Running int `json:"running"`
}

// GetStats returns queue statistics
func (q *JobQueue) GetStats() QueueStats {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return QueueStats{Pending: q.pending.Len(), Running: len(q.running)}
}

// IsEmpty reports whether nothing is pending or running
func (q *JobQueue) IsEmpty() bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.pending.Len() == 0 && len(q.running) == 0
}

// HasTask reports whether the task is pending or running
func (q *JobQueue) HasTask(taskID string) bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	_, pending := q.jobsByTaskID[taskID]
	return pending || q.running[taskID]
}

// RemoveTask drops a pending job. Running jobs are left alone.
func (q *JobQueue) RemoveTask(taskID string) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	elem, ok := q.jobsByTaskID[taskID]
	if !ok {
		return false
	}
	q.pending.Remove(elem)
	delete(q.jobsByTaskID, taskID)
	logger.Info("Pending job removed from queue", zap.String(logger.FieldTaskID, taskID))
	return true
}

// Stop cancels the queue context
func (q *JobQueue) Stop() {
	q.cancel()
	logger.Info("Job queue stopped")
}

// Context returns the queue's context
func (q *JobQueue) Context() context.Context {
	return q.ctx
}
