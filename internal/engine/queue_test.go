package engine

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/voicebot/codexreview/internal/review"
)

func newTestJob(taskID string) *Job {
	return &Job{
		Data:   review.JobData{TaskID: taskID, JobID: "job-" + taskID},
		Origin: OriginAPI,
	}
}

// TestNewJobQueue tests creating a new queue
func TestNewJobQueue(t *testing.T) {
	q := NewJobQueue(context.Background(), 10)

	if q == nil {
		t.Fatal("NewJobQueue() returned nil")
	}
	if q.pending == nil {
		t.Error("pending list is nil")
	}
	if q.jobsByTaskID == nil {
		t.Error("jobsByTaskID map is nil")
	}
	if q.jobReady == nil {
		t.Error("jobReady channel is nil")
	}
	if !q.IsEmpty() {
		t.Error("new queue should be empty")
	}
}

// TestJobQueue_Enqueue tests enqueueing jobs
func TestJobQueue_Enqueue(t *testing.T) {
	q := NewJobQueue(context.Background(), 0)

	if !q.Enqueue(newTestJob("task-1")) {
		t.Fatal("Enqueue() = false, want true")
	}
	if !q.HasTask("task-1") {
		t.Error("HasTask(task-1) = false after enqueue")
	}

	select {
	case <-q.JobReady():
	default:
		t.Error("JobReady() not signalled after enqueue")
	}
}

// TestJobQueue_EnqueueStampsTime tests that EnqueuedAt is filled in
func TestJobQueue_EnqueueStampsTime(t *testing.T) {
	q := NewJobQueue(context.Background(), 0)
	job := newTestJob("task-1")
	q.Enqueue(job)

	if job.EnqueuedAt.IsZero() {
		t.Error("EnqueuedAt was not set")
	}
}

// TestJobQueue_EnqueueRejects tests the cases Enqueue refuses
func TestJobQueue_EnqueueRejects(t *testing.T) {
	tests := []struct {
		name  string
		setup func(q *JobQueue)
		job   *Job
	}{
		{"nil job", func(q *JobQueue) {}, nil},
		{"empty task id", func(q *JobQueue) {}, newTestJob("")},
		{"duplicate pending", func(q *JobQueue) { q.Enqueue(newTestJob("task-1")) }, newTestJob("task-1")},
		{"duplicate running", func(q *JobQueue) {
			q.Enqueue(newTestJob("task-1"))
			q.Dequeue()
		}, newTestJob("task-1")},
		{"full", func(q *JobQueue) {
			q.Enqueue(newTestJob("task-1"))
			q.Enqueue(newTestJob("task-2"))
		}, newTestJob("task-3")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := NewJobQueue(context.Background(), 2)
			tt.setup(q)
			if q.Enqueue(tt.job) {
				t.Error("Enqueue() = true, want false")
			}
		})
	}
}

// TestJobQueue_DequeueOrder tests FIFO ordering
func TestJobQueue_DequeueOrder(t *testing.T) {
	q := NewJobQueue(context.Background(), 0)
	for i := 1; i <= 3; i++ {
		q.Enqueue(newTestJob(fmt.Sprintf("task-%d", i)))
	}

	for i := 1; i <= 3; i++ {
		job := q.Dequeue()
		if job == nil {
			t.Fatalf("Dequeue() #%d returned nil", i)
		}
		want := fmt.Sprintf("task-%d", i)
		if job.Data.TaskID != want {
			t.Errorf("Dequeue() #%d = %s, want %s", i, job.Data.TaskID, want)
		}
	}

	if job := q.Dequeue(); job != nil {
		t.Errorf("Dequeue() on empty queue = %v, want nil", job)
	}
}

// TestJobQueue_MarkComplete tests that a completed task can be queued again
func TestJobQueue_MarkComplete(t *testing.T) {
	q := NewJobQueue(context.Background(), 0)
	q.Enqueue(newTestJob("task-1"))
	q.Dequeue()

	stats := q.GetStats()
	if stats.Pending != 0 || stats.Running != 1 {
		t.Errorf("GetStats() = %+v, want pending 0 running 1", stats)
	}

	q.MarkComplete("task-1")
	if q.HasTask("task-1") {
		t.Error("HasTask(task-1) = true after MarkComplete")
	}
	if !q.IsEmpty() {
		t.Error("queue should be empty after MarkComplete")
	}
	if !q.Enqueue(newTestJob("task-1")) {
		t.Error("Enqueue() after MarkComplete = false, want true")
	}
}

// TestJobQueue_MarkCompleteSignalsPending tests the ready signal after completion
func TestJobQueue_MarkCompleteSignalsPending(t *testing.T) {
	q := NewJobQueue(context.Background(), 0)
	q.Enqueue(newTestJob("task-1"))
	q.Enqueue(newTestJob("task-2"))
	<-q.JobReady()
	q.Dequeue()

	q.MarkComplete("task-1")
	select {
	case <-q.JobReady():
	default:
		t.Error("JobReady() not signalled while jobs are pending")
	}
}

// TestJobQueue_RemoveTask tests removing pending jobs
func TestJobQueue_RemoveTask(t *testing.T) {
	q := NewJobQueue(context.Background(), 0)
	q.Enqueue(newTestJob("task-1"))
	q.Enqueue(newTestJob("task-2"))
	q.Dequeue()

	if q.RemoveTask("task-1") {
		t.Error("RemoveTask() removed a running task")
	}
	if !q.RemoveTask("task-2") {
		t.Error("RemoveTask(task-2) = false, want true")
	}
	if q.RemoveTask("task-2") {
		t.Error("RemoveTask(task-2) twice = true, want false")
	}
	if got := q.GetStats().Pending; got != 0 {
		t.Errorf("Pending = %d, want 0", got)
	}
}

// TestJobQueue_Stop tests canceling the queue context
func TestJobQueue_Stop(t *testing.T) {
	q := NewJobQueue(context.Background(), 0)
	q.Stop()

	select {
	case <-q.Context().Done():
	default:
		t.Error("queue context not canceled after Stop")
	}
}

// TestJobQueue_ConcurrentEnqueue tests that concurrent duplicates collapse
func TestJobQueue_ConcurrentEnqueue(t *testing.T) {
	q := NewJobQueue(context.Background(), 0)

	var wg sync.WaitGroup
	var mu sync.Mutex
	accepted := 0
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if q.Enqueue(newTestJob(fmt.Sprintf("task-%d", i%5))) {
				mu.Lock()
				accepted++
				mu.Unlock()
			}
		}(i)
	}
	wg.Wait()

	if accepted != 5 {
		t.Errorf("accepted = %d, want 5", accepted)
	}
	if got := q.GetStats().Pending; got != 5 {
		t.Errorf("Pending = %d, want 5", got)
	}
}
