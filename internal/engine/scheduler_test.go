package engine

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/voicebot/codexreview/pkg/idgen"
)

type fakeDueStore struct {
	mu sync.Mutex

	due        []string
	listErr    error
	releaseErr error
	released   int64

	listCalls     int
	lastLimit     int
	lastNow       time.Time
	staleBefore   time.Time
	staleErrText  string
	releaseCalled bool
}

func (f *fakeDueStore) ListDue(ctx context.Context, now time.Time, limit int) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listCalls++
	f.lastNow = now
	f.lastLimit = limit
	return f.due, f.listErr
}

func (f *fakeDueStore) ReleaseStaleClaims(ctx context.Context, startedBefore time.Time, errText string, at time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.releaseCalled = true
	f.staleBefore = startedBefore
	f.staleErrText = errText
	return f.released, f.releaseErr
}

func (f *fakeDueStore) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.listCalls
}

func newTestScheduler(store DueTaskStore, q Enqueuer, cfg SchedulerConfig, now time.Time) *Scheduler {
	s := NewScheduler(store, q, cfg)
	s.now = func() time.Time { return now }
	return s
}

func TestNewScheduler_Defaults(t *testing.T) {
	s := NewScheduler(&fakeDueStore{}, NewJobQueue(context.Background(), 0), SchedulerConfig{})

	assert.Equal(t, DefaultScanSchedule, s.cfg.Schedule)
	assert.Equal(t, DefaultScanBatchSize, s.cfg.BatchSize)
	assert.Equal(t, DefaultStaleClaimAfter, s.cfg.StaleClaimAfter)
}

func TestScheduler_ScanEnqueuesDueTasks(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	store := &fakeDueStore{due: []string{"task-1", "task-2"}}
	q := NewJobQueue(context.Background(), 0)
	s := newTestScheduler(store, q, SchedulerConfig{BatchSize: 10, StaleClaimAfter: 10 * time.Minute}, now)

	n := s.Scan(context.Background())

	assert.Equal(t, 2, n)
	assert.Equal(t, 10, store.lastLimit)
	assert.True(t, store.lastNow.Equal(now))

	first := q.Dequeue()
	require.NotNil(t, first)
	assert.Equal(t, "task-1", first.Data.TaskID)
	assert.Equal(t, OriginScheduler, first.Origin)
	assert.True(t, idgen.IsValid(first.Data.JobID))

	second := q.Dequeue()
	require.NotNil(t, second)
	assert.NotEqual(t, first.Data.JobID, second.Data.JobID)
}

func TestScheduler_ScanReleasesStaleClaims(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	store := &fakeDueStore{released: 3}
	s := newTestScheduler(store, NewJobQueue(context.Background(), 0), SchedulerConfig{StaleClaimAfter: 10 * time.Minute}, now)

	s.Scan(context.Background())

	assert.True(t, store.releaseCalled)
	assert.True(t, store.staleBefore.Equal(now.Add(-10*time.Minute)))
	assert.Equal(t, "codex_review_claim_abandoned", store.staleErrText)
}

func TestScheduler_ScanSkipsQueuedTasks(t *testing.T) {
	store := &fakeDueStore{due: []string{"task-1", "task-2"}}
	q := NewJobQueue(context.Background(), 0)
	q.Enqueue(newTestJob("task-1"))
	s := newTestScheduler(store, q, SchedulerConfig{}, time.Now())

	assert.Equal(t, 1, s.Scan(context.Background()))
	assert.Equal(t, 2, q.GetStats().Pending)
}

func TestScheduler_ScanErrors(t *testing.T) {
	tests := []struct {
		name  string
		store *fakeDueStore
		want  int
	}{
		{"list fails", &fakeDueStore{listErr: errors.New("db locked")}, 0},
		{"release fails but listing continues", &fakeDueStore{releaseErr: errors.New("db locked"), due: []string{"task-1"}}, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestScheduler(tt.store, NewJobQueue(context.Background(), 0), SchedulerConfig{}, time.Now())
			assert.Equal(t, tt.want, s.Scan(context.Background()))
		})
	}
}

func TestScheduler_StartRunsInitialScan(t *testing.T) {
	store := &fakeDueStore{}
	s := NewScheduler(store, NewJobQueue(context.Background(), 0), SchedulerConfig{Schedule: "@every 1h"})

	require.NoError(t, s.Start())
	waitFor(t, func() bool { return store.calls() >= 1 })
	s.Stop()
}

func TestScheduler_StartInvalidSchedule(t *testing.T) {
	s := NewScheduler(&fakeDueStore{}, NewJobQueue(context.Background(), 0), SchedulerConfig{Schedule: "not a schedule"})
	assert.Error(t, s.Start())
}
