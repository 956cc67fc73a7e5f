package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/overnight/pkg/config"
	"github.com/wonny/overnight/pkg/logger"
)

type countingJob struct {
	name string
	runs int64
	err  error
}

func (j *countingJob) Name() string     { return j.name }
func (j *countingJob) Schedule() string { return "0 30 16 * * *" }
func (j *countingJob) Run(ctx context.Context) error {
	atomic.AddInt64(&j.runs, 1)
	return j.err
}

func testScheduler() *Scheduler {
	return New(logger.New(&config.Config{LogLevel: "error"}))
}

func TestScheduler_AddJob(t *testing.T) {
	s := testScheduler()

	require.NoError(t, s.AddJob(&countingJob{name: "daily_cycle"}))
	assert.Error(t, s.AddJob(&countingJob{name: "daily_cycle"}), "duplicate job name must be rejected")
}

func TestScheduler_AddJob_BadSchedule(t *testing.T) {
	s := testScheduler()

	bad := &badScheduleJob{}
	assert.Error(t, s.AddJob(bad))
}

type badScheduleJob struct{}

func (badScheduleJob) Name() string                  { return "broken" }
func (badScheduleJob) Schedule() string              { return "not a cron expr" }
func (badScheduleJob) Run(ctx context.Context) error { return nil }

func TestScheduler_RunJob(t *testing.T) {
	s := testScheduler()
	job := &countingJob{name: "daily_cycle"}
	require.NoError(t, s.AddJob(job))

	assert.Error(t, s.RunJob("missing"))

	require.NoError(t, s.RunJob("daily_cycle"))
	require.Eventually(t, func() bool {
		return atomic.LoadInt64(&job.runs) == 1
	}, time.Second, 10*time.Millisecond)

	require.Eventually(t, func() bool {
		stats, ok := s.GetJobStats()["daily_cycle"]
		return ok && stats.TotalRuns == 1 && stats.SuccessRate == 1.0
	}, time.Second, 10*time.Millisecond)
}

func TestScheduler_FailedRunIsRecordedNotRetried(t *testing.T) {
	s := testScheduler()
	job := &countingJob{name: "daily_cycle", err: errors.New("scorer down")}
	require.NoError(t, s.AddJob(job))

	require.NoError(t, s.RunJob("daily_cycle"))
	require.Eventually(t, func() bool {
		stats, ok := s.GetJobStats()["daily_cycle"]
		return ok && stats.TotalRuns == 1
	}, time.Second, 10*time.Millisecond)

	// One invocation, one run: recovery belongs to the next scheduled firing.
	assert.Equal(t, int64(1), atomic.LoadInt64(&job.runs))

	stats := s.GetJobStats()["daily_cycle"]
	assert.Zero(t, stats.SuccessRate)
	assert.Equal(t, "scorer down", stats.LastError)
}

func TestJobHistory(t *testing.T) {
	h := &JobHistory{}
	assert.Zero(t, h.GetSuccessRate())

	for i := 0; i < 150; i++ {
		h.AddResult(JobResult{JobName: "daily_cycle", Success: i%2 == 0})
	}
	assert.Len(t, h.Results, 100, "history is capped")

	latest := h.GetLatestResults(3)
	assert.Len(t, latest, 3)

	assert.InDelta(t, 0.5, h.GetSuccessRate(), 0.01)
}
