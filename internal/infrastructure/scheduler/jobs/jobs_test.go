package jobs

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type warmerFunc func(ctx context.Context) (int, error)

func (f warmerFunc) Warm(ctx context.Context) (int, error) { return f(ctx) }

func TestRebuildRankingJob(t *testing.T) {
	var sawDeadline bool
	job := NewRebuildRankingJob(warmerFunc(func(ctx context.Context) (int, error) {
		_, sawDeadline = ctx.Deadline()
		return 7, nil
	}), time.Second, nil)

	assert.Equal(t, "rebuild_ranking", job.Name())
	assert.Nil(t, job.LastStats())

	require.NoError(t, job.Run(context.Background()))
	assert.True(t, sawDeadline)
	require.NotNil(t, job.LastStats())
	assert.Equal(t, 7, job.LastStats().Accounts)
}

func TestRebuildRankingJobKeepsLastGoodStats(t *testing.T) {
	calls := 0
	job := NewRebuildRankingJob(warmerFunc(func(context.Context) (int, error) {
		calls++
		if calls > 1 {
			return 0, errors.New("redis down")
		}
		return 3, nil
	}), 0, nil)

	require.NoError(t, job.Run(context.Background()))
	err := job.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rebuild ranking")
	assert.Equal(t, 3, job.LastStats().Accounts)
}
