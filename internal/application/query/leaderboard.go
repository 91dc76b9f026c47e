package query

import (
	"context"
	"log/slog"
	"time"

	"github.com/alem-hub/academy-ledger/internal/domain/shared"
	"github.com/alem-hub/academy-ledger/internal/domain/store"
	"github.com/alem-hub/academy-ledger/internal/domain/token"
	"github.com/alem-hub/academy-ledger/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// GET LEADERBOARD QUERY
// Топ по балансу XP-токена. Сначала Redis, при ошибке или пустом кеше -
// чтение балансов из хранилища.
// ══════════════════════════════════════════════════════════════════════════════

// GetLeaderboardQuery содержит параметры запроса лидерборда.
type GetLeaderboardQuery struct {
	// Limit - количество записей (по умолчанию 20, максимум 100).
	Limit int

	// Offset - смещение для пагинации.
	Offset int
}

// Validate проверяет корректность параметров запроса.
func (q *GetLeaderboardQuery) Validate() error {
	if q.Limit < 0 || q.Offset < 0 {
		return shared.NewDomainError("query", "GetLeaderboard", shared.ErrValidation, "invalid_page", "limit and offset cannot be negative")
	}
	if q.Limit == 0 {
		q.Limit = shared.DefaultPageSize
	}
	if q.Limit > shared.MaxPageSize {
		q.Limit = shared.MaxPageSize
	}
	return nil
}

// LeaderboardEntryDTO - запись лидерборда.
type LeaderboardEntryDTO struct {
	Rank    int    `json:"rank"`
	Owner   string `json:"owner"`
	Balance uint64 `json:"balance"`
	Level   uint32 `json:"level"`
}

// GetLeaderboardResult содержит результат запроса лидерборда.
type GetLeaderboardResult struct {
	Entries     []LeaderboardEntryDTO `json:"entries"`
	Source      string                `json:"source"`
	GeneratedAt time.Time             `json:"generated_at"`
}

const (
	SourceCache = "cache"
	SourceStore = "store"
)

// GetLeaderboardHandler обрабатывает запросы на получение лидерборда.
type GetLeaderboardHandler struct {
	uow    store.UnitOfWork
	cache  token.RankingCache
	logger *slog.Logger
}

// NewGetLeaderboardHandler создаёт обработчик. cache может быть nil.
func NewGetLeaderboardHandler(uow store.UnitOfWork, cache token.RankingCache, log *slog.Logger) *GetLeaderboardHandler {
	if log == nil {
		log = slog.Default()
	}
	return &GetLeaderboardHandler{uow: uow, cache: cache, logger: log.With(logger.Component("leaderboard"))}
}

// Handle выполняет запрос на получение лидерборда.
func (h *GetLeaderboardHandler) Handle(ctx context.Context, q GetLeaderboardQuery) (*GetLeaderboardResult, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}

	if standings, ok := h.fromCache(ctx, q); ok {
		return buildLeaderboard(standings, SourceCache), nil
	}

	var standings []token.Standing
	err := h.uow.View(ctx, func(ctx context.Context, tx store.Tx) error {
		cfg, err := tx.Config().Get(ctx)
		if err != nil {
			return err
		}
		accounts, err := tx.Balances().Top(ctx, cfg.XPMint, q.Offset+q.Limit)
		if err != nil {
			return err
		}
		standings = token.RankAccounts(accounts, 0)
		return nil
	})
	if err != nil {
		return nil, err
	}
	if q.Offset >= len(standings) {
		standings = nil
	} else {
		standings = standings[q.Offset:]
	}
	return buildLeaderboard(standings, SourceStore), nil
}

func (h *GetLeaderboardHandler) fromCache(ctx context.Context, q GetLeaderboardQuery) ([]token.Standing, bool) {
	if h.cache == nil {
		return nil, false
	}
	size, err := h.cache.Size(ctx)
	if err != nil {
		h.logger.WarnContext(ctx, "leaderboard cache unavailable", logger.Err(err))
		return nil, false
	}
	if size == 0 {
		return nil, false
	}
	standings, err := h.cache.Top(ctx, q.Offset, q.Limit)
	if err != nil {
		h.logger.WarnContext(ctx, "leaderboard cache read failed", logger.Err(err))
		return nil, false
	}
	return standings, true
}

func buildLeaderboard(standings []token.Standing, source string) *GetLeaderboardResult {
	res := &GetLeaderboardResult{
		Entries:     make([]LeaderboardEntryDTO, len(standings)),
		Source:      source,
		GeneratedAt: time.Now().UTC(),
	}
	for i, s := range standings {
		res.Entries[i] = LeaderboardEntryDTO{
			Rank:    s.Rank,
			Owner:   s.Owner.String(),
			Balance: s.Balance,
			Level:   uint32(shared.LevelFor(s.Balance)),
		}
	}
	return res
}
