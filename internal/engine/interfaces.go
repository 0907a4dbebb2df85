package engine

import (
	"context"

	"github.com/voicebot/codexreview/internal/review"
)

// Enqueuer accepts review jobs. The API and the scheduler submit through it.
type Enqueuer interface {
	// Enqueue adds a job; it returns false when the job was not accepted.
	Enqueue(job *Job) bool
	HasTask(taskID string) bool
}

// JobHandler runs a review job
type JobHandler interface {
	Handle(ctx context.Context, job review.JobData) (review.Result, error)
}
