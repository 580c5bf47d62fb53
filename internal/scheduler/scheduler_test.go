package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/quantsnap/pkg/logger"
)

type stubJob struct {
	name     string
	failures int32 // fail this many times before succeeding
	calls    atomic.Int32
	block    chan struct{}
}

func (j *stubJob) Name() string     { return j.name }
func (j *stubJob) Schedule() string { return "0 0 0 * * *" }

func (j *stubJob) Run(ctx context.Context) error {
	n := j.calls.Add(1)
	if j.block != nil {
		select {
		case <-j.block:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	if n <= j.failures {
		return errors.New("boom")
	}
	return nil
}

func newTestScheduler() *Scheduler {
	return New(logger.Nop()).WithRetry(2, time.Millisecond).WithTimeout(time.Second)
}

func TestScheduler_AddJob(t *testing.T) {
	s := newTestScheduler()

	require.NoError(t, s.AddJob(&stubJob{name: "b"}))
	require.NoError(t, s.AddJob(&stubJob{name: "a"}))
	assert.Error(t, s.AddJob(&stubJob{name: "a"}), "duplicate")
	assert.Equal(t, []string{"a", "b"}, s.GetAllJobs())

	require.NoError(t, s.RemoveJob("a"))
	assert.Equal(t, []string{"b"}, s.GetAllJobs())
	assert.Error(t, s.RemoveJob("a"))
}

func TestScheduler_InvalidSchedule(t *testing.T) {
	s := newTestScheduler()
	err := s.AddJob(&badScheduleJob{})
	assert.Error(t, err)
}

type badScheduleJob struct{ stubJob }

func (j *badScheduleJob) Schedule() string { return "not a cron" }

func TestScheduler_RetryThenSuccess(t *testing.T) {
	s := newTestScheduler()
	job := &stubJob{name: "flaky", failures: 2}
	require.NoError(t, s.AddJob(job))

	res, err := s.RunJobSync("flaky")
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, 3, res.Attempts)

	history, err := s.GetJobHistory("flaky")
	require.NoError(t, err)
	require.Len(t, history, 1)

	stats := s.GetJobStats()["flaky"]
	assert.Equal(t, 1, stats.TotalRuns)
	assert.Equal(t, 1.0, stats.SuccessRate)
	assert.NotNil(t, stats.LastSuccess)
}

func TestScheduler_FailsAfterRetries(t *testing.T) {
	s := newTestScheduler()
	job := &stubJob{name: "broken", failures: 100}
	require.NoError(t, s.AddJob(job))

	res, err := s.RunJobSync("broken")
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.Equal(t, "boom", res.Error)
	assert.Equal(t, int32(3), job.calls.Load())

	stats := s.GetJobStats()["broken"]
	assert.Equal(t, 1, stats.FailureCount)
	assert.NotNil(t, stats.LastFailure)

	_, err = s.RunJobSync("missing")
	assert.Error(t, err)
}

func TestScheduler_SkipsOverlappingRun(t *testing.T) {
	s := newTestScheduler()
	job := &stubJob{name: "slow", block: make(chan struct{})}
	require.NoError(t, s.AddJob(job))

	require.NoError(t, s.RunJob("slow"))
	require.Eventually(t, func() bool { return job.calls.Load() == 1 }, time.Second, time.Millisecond)

	res, err := s.RunJobSync("slow")
	require.NoError(t, err)
	assert.Contains(t, res.Error, "already running")

	close(job.block)
	s.Stop()
	assert.Equal(t, int32(1), job.calls.Load())
}

func TestJobHistory(t *testing.T) {
	h := &JobHistory{}
	start := time.Date(2026, 3, 2, 21, 30, 0, 0, time.UTC)
	for i := 0; i < maxHistory+5; i++ {
		h.AddResult(JobResult{
			StartTime: start.Add(time.Duration(i) * time.Hour),
			Success:   i%2 == 0,
		})
	}

	assert.Len(t, h.Results, maxHistory)
	assert.Len(t, h.Latest(3), 3)
	assert.Empty(t, h.Latest(0))

	sum := h.Summary()
	assert.Equal(t, maxHistory, sum.Total)
	assert.Equal(t, maxHistory/2, sum.Failed)
	assert.InDelta(t, 0.5, sum.SuccessRate(), 1e-9)

	// last index 104 succeeded, 103 failed
	require.NotNil(t, sum.LastSuccess)
	require.NotNil(t, sum.LastFailure)
	assert.Equal(t, start.Add(104*time.Hour), *sum.LastSuccess)
	assert.Equal(t, start.Add(103*time.Hour), *sum.LastFailure)
	assert.Equal(t, *sum.LastSuccess, *sum.LastRun)
}
