// Package jobs contains the scheduled jobs of the ledger.
package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/alem-hub/academy-ledger/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// REBUILD RANKING JOB
// ══════════════════════════════════════════════════════════════════════════════

// Warmer copies committed balances into the ranking cache and reports how
// many accounts it wrote.
type Warmer interface {
	Warm(ctx context.Context) (int, error)
}

// RebuildRankingJob replaces the ranking cache with the ledger's balances.
// Event handlers keep the cache current between runs; the job repairs
// whatever they dropped.
type RebuildRankingJob struct {
	warmer  Warmer
	timeout time.Duration
	logger  *slog.Logger

	last atomic.Pointer[RebuildStats]
}

// RebuildStats contains statistics from a rebuild run.
type RebuildStats struct {
	StartedAt time.Time
	Duration  time.Duration
	Accounts  int
}

// NewRebuildRankingJob creates the job. Each run is bounded by timeout.
func NewRebuildRankingJob(warmer Warmer, timeout time.Duration, log *slog.Logger) *RebuildRankingJob {
	if log == nil {
		log = slog.Default()
	}
	if timeout <= 0 {
		timeout = time.Minute
	}
	return &RebuildRankingJob{warmer: warmer, timeout: timeout, logger: log.With("job", "rebuild_ranking")}
}

// Name returns the job name.
func (j *RebuildRankingJob) Name() string { return "rebuild_ranking" }

// Description returns a human-readable description.
func (j *RebuildRankingJob) Description() string {
	return "Rebuilds the XP ranking cache from committed balances"
}

// Run executes the rebuild.
func (j *RebuildRankingJob) Run(ctx context.Context) error {
	started := time.Now()

	ctx, cancel := context.WithTimeout(ctx, j.timeout)
	defer cancel()

	n, err := j.warmer.Warm(ctx)
	if err != nil {
		return fmt.Errorf("rebuild ranking: %w", err)
	}

	stats := &RebuildStats{StartedAt: started, Duration: time.Since(started), Accounts: n}
	j.last.Store(stats)
	j.logger.Debug("ranking rebuilt", "accounts", n, logger.Latency(stats.Duration))
	return nil
}

// LastStats returns the stats of the last successful run, or nil.
func (j *RebuildRankingJob) LastStats() *RebuildStats {
	return j.last.Load()
}
