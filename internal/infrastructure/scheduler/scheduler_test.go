package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alem-hub/academy-ledger/pkg/logger"
)

type countingJob struct {
	name  string
	runs  atomic.Int32
	err   error
	block chan struct{}
}

func (j *countingJob) Name() string        { return j.name }
func (j *countingJob) Description() string { return "counts runs" }

func (j *countingJob) Run(ctx context.Context) error {
	j.runs.Add(1)
	if j.block != nil {
		select {
		case <-j.block:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return j.err
}

func TestRegisterRejectsDuplicatesAndNils(t *testing.T) {
	s := New(Config{Logger: logger.Discard()})
	job := &countingJob{name: "a"}

	require.NoError(t, s.Register(job, Every(time.Minute)))
	assert.ErrorIs(t, s.Register(job, Every(time.Minute)), ErrJobAlreadyExists)
	assert.ErrorIs(t, s.Register(nil, Every(time.Minute)), ErrNilJob)
	assert.ErrorIs(t, s.Register(&countingJob{name: "b"}, nil), ErrNilSchedule)
}

func TestRunNowRecordsResult(t *testing.T) {
	s := New(Config{Logger: logger.Discard()})
	ok := &countingJob{name: "ok"}
	bad := &countingJob{name: "bad", err: errors.New("boom")}
	require.NoError(t, s.Register(ok, Every(time.Hour)))
	require.NoError(t, s.Register(bad, Every(time.Hour)))

	res, err := s.RunNow(context.Background(), "ok")
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.True(t, res.Manual)

	_, err = s.RunNow(context.Background(), "bad")
	assert.EqualError(t, err, "boom")

	_, err = s.RunNow(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrJobNotFound)

	infos := s.ListJobs()
	require.Len(t, infos, 2)
	assert.Equal(t, "bad", infos[0].Name)
	assert.Equal(t, int64(1), infos[0].FailCount)
	assert.Equal(t, int64(1), infos[1].RunCount)
	assert.Equal(t, "@every 1h0m0s", infos[1].Schedule)
}

func TestScheduledJobRunsWithoutOverlap(t *testing.T) {
	s := New(Config{Logger: logger.Discard()})
	job := &countingJob{name: "slow", block: make(chan struct{})}
	require.NoError(t, s.Register(job, Every(time.Second)))

	require.NoError(t, s.Start(context.Background()))
	assert.ErrorIs(t, s.Start(context.Background()), ErrSchedulerAlreadyRunning)

	assert.Eventually(t, func() bool { return job.runs.Load() == 1 }, 3*time.Second, 10*time.Millisecond)
	time.Sleep(1500 * time.Millisecond)
	assert.Equal(t, int32(1), job.runs.Load())

	_, err := s.RunNow(context.Background(), "slow")
	assert.ErrorIs(t, err, ErrJobBusy)

	require.NoError(t, s.Stop())
	assert.ErrorIs(t, s.Stop(), ErrSchedulerNotRunning)

	infos := s.ListJobs()
	require.Len(t, infos, 1)
	assert.Equal(t, int64(1), infos[0].FailCount, "the blocked run returns the cancelled context")
}

func TestCronExpressions(t *testing.T) {
	sched, err := Cron("30 3 * * *")
	require.NoError(t, err)
	assert.Equal(t, "30 3 * * *", sched.String())
	from := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2024, 5, 2, 3, 30, 0, 0, time.UTC), sched.Next(from))

	_, err = Cron("every now and then")
	assert.ErrorIs(t, err, ErrInvalidSchedule)

	assert.Equal(t, from.Add(time.Second), Every(time.Millisecond).Next(from))
	assert.Equal(t, from.Add(time.Hour), Every(time.Hour).Next(from))
}

func TestListJobsReportsNextRunBeforeStart(t *testing.T) {
	s := New(Config{Logger: logger.Discard()})
	sched, err := Cron("@daily")
	require.NoError(t, err)
	require.NoError(t, s.Register(&countingJob{name: "nightly"}, sched))

	infos := s.ListJobs()
	require.Len(t, infos, 1)
	assert.Equal(t, "@daily", infos[0].Schedule)
	assert.True(t, infos[0].NextRun.After(time.Now()))
	assert.True(t, infos[0].LastRun.IsZero())
}
