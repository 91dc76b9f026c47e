package service

import (
	"context"
	"sync"

	"github.com/alem-hub/academy-ledger/internal/domain/shared"
	"github.com/alem-hub/academy-ledger/internal/domain/token"
)

// MintRanking is a token.RankingCache for the ledger's XP mint, which is
// only known once the ledger is initialized. Until Bind is called it ranks
// nobody: writes are dropped and reads come back empty, so readers fall
// back to the store.
type MintRanking struct {
	open func(mint shared.Address) token.RankingCache

	mu    sync.RWMutex
	mint  shared.Address
	cache token.RankingCache
}

var (
	_ token.RankingCache = (*MintRanking)(nil)
	_ RankingRebuilder   = (*MintRanking)(nil)
)

// NewMintRanking creates an unbound ranking. open builds the cache for a mint.
func NewMintRanking(open func(mint shared.Address) token.RankingCache) *MintRanking {
	return &MintRanking{open: open}
}

// Bind routes the ranking to mint. Binding the same mint again is a no-op.
func (m *MintRanking) Bind(mint shared.Address) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.cache != nil && m.mint == mint {
		return
	}
	m.mint = mint
	m.cache = m.open(mint)
}

// XPMint returns the bound mint or the zero address.
func (m *MintRanking) XPMint() shared.Address {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.mint
}

func (m *MintRanking) current() token.RankingCache {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.cache
}

// Set implements token.RankingCache.
func (m *MintRanking) Set(ctx context.Context, owner shared.Address, balance uint64) error {
	if c := m.current(); c != nil {
		return c.Set(ctx, owner, balance)
	}
	return nil
}

// Top implements token.RankingCache.
func (m *MintRanking) Top(ctx context.Context, offset, limit int) ([]token.Standing, error) {
	if c := m.current(); c != nil {
		return c.Top(ctx, offset, limit)
	}
	return nil, nil
}

// Rank implements token.RankingCache.
func (m *MintRanking) Rank(ctx context.Context, owner shared.Address) (token.Standing, bool, error) {
	if c := m.current(); c != nil {
		return c.Rank(ctx, owner)
	}
	return token.Standing{}, false, nil
}

// Size implements token.RankingCache.
func (m *MintRanking) Size(ctx context.Context) (int64, error) {
	if c := m.current(); c != nil {
		return c.Size(ctx)
	}
	return 0, nil
}

// Rebuild implements RankingRebuilder when the bound cache does.
func (m *MintRanking) Rebuild(ctx context.Context, accounts []token.Account) error {
	if rb, ok := m.current().(RankingRebuilder); ok {
		return rb.Rebuild(ctx, accounts)
	}
	return nil
}
