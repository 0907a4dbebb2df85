package engine

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/voicebot/codexreview/pkg/logger"
)

// Dispatcher moves jobs from the queue to a fixed pool of workers.
type Dispatcher struct {
	queue      *JobQueue
	jobs       chan *Job // output channel to workers
	handler    JobHandler
	maxWorkers int
	workerWg   sync.WaitGroup

	// loopCtx stops the dispatch loop; workCtx is handed to jobs and outlives Stop
	loopCtx    context.Context
	loopCancel context.CancelFunc
	loopDone   chan struct{}
	workCtx    context.Context

	running bool
	mu      sync.Mutex
}

// DispatcherConfig holds configuration for the Dispatcher
type DispatcherConfig struct {
	MaxWorkers int // Maximum number of concurrent jobs
}

// DefaultDispatcherConfig returns default dispatcher configuration
func DefaultDispatcherConfig() *DispatcherConfig {
	return &DispatcherConfig{MaxWorkers: 2}
}

// NewDispatcher creates a new Dispatcher. Jobs run with ctx, so canceling
// it aborts in-flight jobs.
func NewDispatcher(ctx context.Context, queue *JobQueue, config *DispatcherConfig, handler JobHandler) *Dispatcher {
	if config == nil || config.MaxWorkers <= 0 {
		config = DefaultDispatcherConfig()
	}

	loopCtx, cancel := context.WithCancel(ctx)

	d := &Dispatcher{
		queue:      queue,
		jobs:       make(chan *Job, config.MaxWorkers),
		handler:    handler,
		maxWorkers: config.MaxWorkers,
		loopCtx:    loopCtx,
		loopCancel: cancel,
		loopDone:   make(chan struct{}),
		workCtx:    ctx,
	}

	logger.Info("Dispatcher created", zap.Int("max_workers", config.MaxWorkers))
	return d
}

// Start starts the dispatcher and workers
func (d *Dispatcher) Start() {
	d.mu.Lock()
	if d.running {
		d.mu.Unlock()
		return
	}
	d.running = true
	d.mu.Unlock()

	logger.Info("Starting dispatcher", zap.Int("workers", d.maxWorkers))

	for i := 0; i < d.maxWorkers; i++ {
		d.workerWg.Add(1)
		go d.worker(i)
	}

	go d.dispatchLoop()
}

// dispatchLoop waits for ready signals and hands jobs to workers
func (d *Dispatcher) dispatchLoop() {
	defer close(d.loopDone)

	// jobs queued before Start have already signalled
	d.tryDispatch()

	for {
		select {
		case <-d.loopCtx.Done():
			logger.Info("Dispatch loop stopping")
			return
		case <-d.queue.JobReady():
			d.tryDispatch()
		}
	}
}

// tryDispatch dispatches until the queue is empty or the dispatcher stops
func (d *Dispatcher) tryDispatch() {
	for {
		job := d.queue.Dequeue()
		if job == nil {
			return
		}

		select {
		case d.jobs <- job:
			logger.Debug("Job dispatched to worker",
				zap.String(logger.FieldTaskID, job.Data.TaskID),
				zap.String("origin", job.Origin),
			)
		case <-d.loopCtx.Done():
			// The scanner finds the task again on a later tick.
			d.queue.MarkComplete(job.Data.TaskID)
			logger.Warn("Dispatcher stopped before job was dispatched",
				zap.String(logger.FieldTaskID, job.Data.TaskID),
			)
			return
		}
	}
}

// worker runs jobs until the job channel is closed
func (d *Dispatcher) worker(id int) {
	defer d.workerWg.Done()

	logger.Debug("Worker started", zap.Int("worker_id", id))
	for job := range d.jobs {
		d.process(id, job)
	}
	logger.Debug("Worker stopped", zap.Int("worker_id", id))
}

func (d *Dispatcher) process(workerID int, job *Job) {
	defer d.queue.MarkComplete(job.Data.TaskID)

	log := logger.ForTask(job.Data.TaskID, job.Data.JobID)
	log.Info("Worker processing job",
		zap.Int("worker_id", workerID),
		zap.String("origin", job.Origin),
		zap.Duration("queued_for", time.Since(job.EnqueuedAt)),
	)

	startTime := time.Now()
	result, err := d.handler.Handle(d.workCtx, job.Data)
	duration := time.Since(startTime)

	if err != nil {
		log.Error("Review job errored",
			zap.Int("worker_id", workerID),
			zap.Duration("duration", duration),
			zap.Error(err),
		)
		return
	}
	log.Info("Worker completed job",
		zap.Int("worker_id", workerID),
		zap.Duration("duration", duration),
		zap.Bool("ok", result.OK),
		zap.Bool("skipped", result.Skipped),
		zap.String("error", result.Error),
	)
}

// Stop stops dispatching and waits for in-flight jobs to finish
func (d *Dispatcher) Stop() {
	d.mu.Lock()
	if !d.running {
		d.mu.Unlock()
		return
	}
	d.running = false
	d.mu.Unlock()

	logger.Info("Stopping dispatcher")

	d.loopCancel()
	<-d.loopDone
	close(d.jobs)
	d.workerWg.Wait()

	logger.Info("Dispatcher stopped")
}

// IsRunning returns true if the dispatcher is running
func (d *Dispatcher) IsRunning() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.running
}

// GetWorkerCount returns the number of workers
func (d *Dispatcher) GetWorkerCount() int {
	return d.maxWorkers
}
