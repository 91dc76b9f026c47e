package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/alem-hub/academy-ledger/internal/domain/shared"
	"github.com/alem-hub/academy-ledger/internal/domain/store"
	"github.com/alem-hub/academy-ledger/internal/domain/token"
	"github.com/alem-hub/academy-ledger/pkg/logger"
)

// RankingRebuilder replaces the whole ranking in one step.
type RankingRebuilder interface {
	Rebuild(ctx context.Context, accounts []token.Account) error
}

// MintBinder is implemented by rankings that learn the XP mint at runtime.
type MintBinder interface {
	Bind(mint shared.Address)
}

// LeaderboardService keeps the ranking cache aligned with the token ledger.
type LeaderboardService struct {
	uow    store.UnitOfWork
	cache  RankingRebuilder
	logger *slog.Logger
}

// NewLeaderboardService creates a new LeaderboardService.
func NewLeaderboardService(uow store.UnitOfWork, cache RankingRebuilder, log *slog.Logger) *LeaderboardService {
	if log == nil {
		log = slog.Default()
	}
	return &LeaderboardService{uow: uow, cache: cache, logger: log.With(logger.Component("leaderboard"))}
}

// Warm copies every balance of the configured XP mint into the cache.
// It returns the number of accounts written. An uninitialized ledger is not
// an error: there is simply nothing to rank yet.
func (s *LeaderboardService) Warm(ctx context.Context) (int, error) {
	start := time.Now()

	var (
		mint     shared.Address
		accounts []token.Account
	)
	err := s.uow.View(ctx, func(ctx context.Context, tx store.Tx) error {
		cfg, err := tx.Config().Get(ctx)
		if err != nil {
			return err
		}
		mint = cfg.XPMint
		accounts, err = tx.Balances().Top(ctx, cfg.XPMint, 0)
		return err
	})
	if shared.IsNotFound(err) {
		s.logger.InfoContext(ctx, "ledger not initialized, ranking left empty")
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("load balances: %w", err)
	}

	if b, ok := s.cache.(MintBinder); ok {
		b.Bind(mint)
	}
	if err := s.cache.Rebuild(ctx, accounts); err != nil {
		return 0, fmt.Errorf("rebuild ranking: %w", err)
	}

	s.logger.InfoContext(ctx, "ranking warmed",
		"accounts", len(accounts),
		logger.Latency(time.Since(start)),
	)
	return len(accounts), nil
}
