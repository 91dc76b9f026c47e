package redis

import (
	"context"
	"errors"
	"strconv"

	"github.com/redis/go-redis/v9"

	"github.com/alem-hub/academy-ledger/internal/domain/shared"
	"github.com/alem-hub/academy-ledger/internal/domain/token"
)

// ══════════════════════════════════════════════════════════════════════════════
// RANKING CACHE
// ══════════════════════════════════════════════════════════════════════════════

// RankingCache mirrors XP balances in a sorted set "leaderboard:xp:{mint}"
// (member = owner, score = balance). Balances only grow, so ZADD GT keeps
// a late, stale write from lowering a score.
//
// Ranks are dense on ties: owners with equal balances share a rank.
type RankingCache struct {
	cache *Cache
	key   string
}

var _ token.RankingCache = (*RankingCache)(nil)

// NewRankingCache creates a cache for one XP mint.
func NewRankingCache(cache *Cache, mint shared.Address) *RankingCache {
	return &RankingCache{cache: cache, key: LeaderboardKey(mint.String())}
}

// Set implements token.RankingCache.
func (r *RankingCache) Set(ctx context.Context, owner shared.Address, balance uint64) error {
	if owner == "" {
		return ErrCacheKeyEmpty
	}
	return r.cache.Client().ZAddGT(ctx, r.key, redis.Z{
		Score:  float64(balance),
		Member: owner.String(),
	}).Err()
}

// Rebuild replaces the set with accounts in one transaction.
func (r *RankingCache) Rebuild(ctx context.Context, accounts []token.Account) error {
	_, err := r.cache.Client().TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, r.key)
		if len(accounts) == 0 {
			return nil
		}
		members := make([]redis.Z, len(accounts))
		for i, acc := range accounts {
			members[i] = redis.Z{Score: float64(acc.Balance), Member: acc.Owner.String()}
		}
		pipe.ZAdd(ctx, r.key, members...)
		return nil
	})
	return err
}

// Top implements token.RankingCache.
func (r *RankingCache) Top(ctx context.Context, offset, limit int) ([]token.Standing, error) {
	if offset < 0 || limit <= 0 {
		return nil, nil
	}
	client := r.cache.Client()
	zs, err := client.ZRevRangeWithScores(ctx, r.key, int64(offset), int64(offset+limit-1)).Result()
	if err != nil {
		return nil, err
	}
	if len(zs) == 0 {
		return []token.Standing{}, nil
	}

	first, err := r.rankOfScore(ctx, zs[0].Score)
	if err != nil {
		return nil, err
	}
	out := make([]token.Standing, len(zs))
	for i, z := range zs {
		rank := first
		if i > 0 {
			rank = offset + i + 1
			if z.Score == zs[i-1].Score {
				rank = out[i-1].Rank
			}
		}
		out[i] = token.Standing{
			Owner:   shared.Address(memberString(z.Member)),
			Balance: uint64(z.Score),
			Rank:    rank,
		}
	}
	return out, nil
}

// Rank implements token.RankingCache.
func (r *RankingCache) Rank(ctx context.Context, owner shared.Address) (token.Standing, bool, error) {
	score, err := r.cache.Client().ZScore(ctx, r.key, owner.String()).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return token.Standing{}, false, nil
		}
		return token.Standing{}, false, err
	}
	rank, err := r.rankOfScore(ctx, score)
	if err != nil {
		return token.Standing{}, false, err
	}
	return token.Standing{Owner: owner, Balance: uint64(score), Rank: rank}, true, nil
}

// Size implements token.RankingCache.
func (r *RankingCache) Size(ctx context.Context) (int64, error) {
	return r.cache.Client().ZCard(ctx, r.key).Result()
}

// rankOfScore is one plus the number of owners with a strictly higher
// balance.
func (r *RankingCache) rankOfScore(ctx context.Context, score float64) (int, error) {
	above, err := r.cache.Client().ZCount(ctx, r.key, exclusiveMin(score), "+inf").Result()
	if err != nil {
		return 0, err
	}
	return int(above) + 1, nil
}

func exclusiveMin(score float64) string {
	return "(" + strconv.FormatFloat(score, 'f', -1, 64)
}

func memberString(m interface{}) string {
	switch v := m.(type) {
	case string:
		return v
	case []byte:
		return string(v)
	default:
		return ""
	}
}
