package service

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alem-hub/academy-ledger/internal/domain/credential"
	"github.com/alem-hub/academy-ledger/internal/domain/governance"
	"github.com/alem-hub/academy-ledger/internal/domain/shared"
	"github.com/alem-hub/academy-ledger/internal/domain/store"
	"github.com/alem-hub/academy-ledger/internal/domain/token"
	"github.com/alem-hub/academy-ledger/internal/infrastructure/persistence/memory"
	"github.com/alem-hub/academy-ledger/internal/infrastructure/persistence/redis"
	"github.com/alem-hub/academy-ledger/pkg/logger"
)

var now = time.Date(2024, 6, 3, 12, 0, 0, 0, time.UTC)

type mapStore struct {
	docs map[string][]byte
	err  error
}

func (m *mapStore) Set(_ context.Context, key string, value any, _ time.Duration) error {
	if m.err != nil {
		return m.err
	}
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	if m.docs == nil {
		m.docs = map[string][]byte{}
	}
	m.docs[key] = data
	return nil
}

func (m *mapStore) Get(_ context.Context, key string, dest any) error {
	data, ok := m.docs[key]
	if !ok {
		return redis.ErrCacheMiss
	}
	return json.Unmarshal(data, dest)
}

func TestCredentialIssuerIssueIsDeterministic(t *testing.T) {
	ms := &mapStore{}
	iss := NewCredentialIssuer(ms, func() time.Time { return now }, logger.Discard())
	ctx := context.Background()
	req := credential.IssueRequest{Learner: "alice", CourseID: "go-101", TrackID: 2, TrackLevel: 1, Name: "Go 101", URI: "https://x/1"}

	a1 := iss.AssetFor(req.Learner, req.CourseID)
	require.NoError(t, iss.Issue(ctx, req))
	req.Asset = a1
	require.NoError(t, iss.Issue(ctx, req))
	assert.Equal(t, AssetFor("alice", "go-101"), a1)
	assert.NotEqual(t, a1, AssetFor("alice", "go-102"))

	req.Asset = AssetFor("alice", "go-102")
	assert.ErrorIs(t, iss.Issue(ctx, req), shared.ErrCredentialMismatch)

	doc, err := iss.Document(ctx, a1)
	require.NoError(t, err)
	assert.Equal(t, uint32(1), doc.Revision)
	assert.Equal(t, "Go 101", doc.Name)
	assert.Equal(t, uint32(2), doc.TrackID)
}

func TestCredentialIssuerUpgrade(t *testing.T) {
	ms := &mapStore{}
	iss := NewCredentialIssuer(ms, func() time.Time { return now }, nil)
	ctx := context.Background()

	asset := AssetFor("alice", "go-101")
	require.NoError(t, iss.Issue(ctx, credential.IssueRequest{Asset: asset, Learner: "alice", CourseID: "go-101", Name: "Go", URI: "u"}))

	require.NoError(t, iss.Upgrade(ctx, credential.UpgradeRequest{
		Asset: asset, Learner: "alice", CourseID: "go-101", Name: "Go+", URI: "u2", CoursesCompleted: 3, TotalXP: 900,
	}))
	doc, err := iss.Document(ctx, asset)
	require.NoError(t, err)
	assert.Equal(t, uint32(2), doc.Revision)
	assert.Equal(t, "Go+", doc.Name)
	assert.Equal(t, uint32(900), doc.TotalXP)

	err = iss.Upgrade(ctx, credential.UpgradeRequest{Asset: asset, Learner: "bob", CourseID: "go-101", Name: "x", URI: "y"})
	assert.ErrorIs(t, err, shared.ErrCredentialMismatch)

	lost := AssetFor("carol", "go-101")
	require.NoError(t, iss.Upgrade(ctx, credential.UpgradeRequest{Asset: lost, Learner: "carol", CourseID: "go-101", Name: "n", URI: "u"}))
	doc, err = iss.Document(ctx, lost)
	require.NoError(t, err)
	assert.Equal(t, uint32(1), doc.Revision)

	ms.err = errors.New("redis down")
	assert.Error(t, iss.Issue(ctx, credential.IssueRequest{Learner: "dave", CourseID: "go-101", Name: "n", URI: "u"}))
}

type recordingRebuilder struct {
	accounts []token.Account
	calls    int
}

func (r *recordingRebuilder) Rebuild(_ context.Context, accounts []token.Account) error {
	r.calls++
	r.accounts = accounts
	return nil
}

func TestLeaderboardServiceWarm(t *testing.T) {
	ctx := context.Background()
	s := memory.New()
	rb := &recordingRebuilder{}
	svc := NewLeaderboardService(s, rb, logger.Discard())

	n, err := svc.Warm(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Zero(t, rb.calls)

	require.NoError(t, s.Do(ctx, func(ctx context.Context, tx store.Tx) error {
		cfg, err := governance.New("authority", "xp-mint", now)
		if err != nil {
			return err
		}
		if err := tx.Config().Create(ctx, cfg); err != nil {
			return err
		}
		for owner, bal := range map[shared.Address]uint64{"alice": 10, "bob": 30} {
			if _, err := tx.Balances().Credit(ctx, token.AccountRef{Mint: "xp-mint", Owner: owner}, bal, now); err != nil {
				return err
			}
		}
		_, err = tx.Balances().Credit(ctx, token.AccountRef{Mint: "other", Owner: "carol"}, 99, now)
		return err
	}))

	n, err = svc.Warm(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	require.Len(t, rb.accounts, 2)
	assert.Equal(t, shared.Address("bob"), rb.accounts[0].Owner)
}

func TestLocalMetadataStoreBacksIssuer(t *testing.T) {
	ctx := context.Background()
	ms := NewLocalMetadataStore()

	var doc CredentialDocument
	assert.ErrorIs(t, ms.Get(ctx, "missing", &doc), redis.ErrCacheMiss)

	iss := NewCredentialIssuer(ms, func() time.Time { return now }, nil)
	asset := iss.AssetFor("alice", "go-101")
	require.NoError(t, iss.Issue(ctx, credential.IssueRequest{Learner: "alice", CourseID: "go-101", Name: "Go", URI: "u"}))
	require.NoError(t, iss.Upgrade(ctx, credential.UpgradeRequest{Asset: asset, Learner: "alice", CourseID: "go-101", Name: "Go+", URI: "u2"}))

	got, err := iss.Document(ctx, asset)
	require.NoError(t, err)
	assert.Equal(t, uint32(2), got.Revision)
	assert.Equal(t, "Go+", got.Name)
	assert.True(t, now.Equal(got.IssuedAt))
}

type mapRanking struct {
	mint    shared.Address
	scores  map[shared.Address]uint64
	rebuilt int
}

func (r *mapRanking) Set(_ context.Context, owner shared.Address, balance uint64) error {
	r.scores[owner] = balance
	return nil
}

func (r *mapRanking) Top(context.Context, int, int) ([]token.Standing, error) {
	return []token.Standing{{Owner: "x", Rank: 1}}, nil
}

func (r *mapRanking) Rank(_ context.Context, owner shared.Address) (token.Standing, bool, error) {
	b, ok := r.scores[owner]
	return token.Standing{Owner: owner, Balance: b, Rank: 1}, ok, nil
}

func (r *mapRanking) Size(context.Context) (int64, error) { return int64(len(r.scores)), nil }

func (r *mapRanking) Rebuild(_ context.Context, accounts []token.Account) error {
	r.rebuilt++
	r.scores = map[shared.Address]uint64{}
	for _, a := range accounts {
		r.scores[a.Owner] = a.Balance
	}
	return nil
}

func TestMintRankingIsInertUntilBound(t *testing.T) {
	ctx := context.Background()
	opened := map[shared.Address]*mapRanking{}
	mr := NewMintRanking(func(mint shared.Address) token.RankingCache {
		r := &mapRanking{mint: mint, scores: map[shared.Address]uint64{}}
		opened[mint] = r
		return r
	})

	require.NoError(t, mr.Set(ctx, "alice", 10))
	size, err := mr.Size(ctx)
	require.NoError(t, err)
	assert.Zero(t, size)
	top, err := mr.Top(ctx, 0, 10)
	require.NoError(t, err)
	assert.Empty(t, top)
	assert.True(t, mr.XPMint().IsZero())
	require.NoError(t, mr.Rebuild(ctx, []token.Account{{Owner: "a", Balance: 1}}))

	mr.Bind("xp-mint")
	mr.Bind("xp-mint")
	assert.Len(t, opened, 1)
	assert.Equal(t, shared.Address("xp-mint"), mr.XPMint())

	require.NoError(t, mr.Set(ctx, "alice", 10))
	_, ok, err := mr.Rank(ctx, "alice")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestLeaderboardServiceBindsMintOnWarm(t *testing.T) {
	ctx := context.Background()
	s := memory.New()
	var bound *mapRanking
	mr := NewMintRanking(func(mint shared.Address) token.RankingCache {
		bound = &mapRanking{mint: mint, scores: map[shared.Address]uint64{}}
		return bound
	})
	svc := NewLeaderboardService(s, mr, nil)

	n, err := svc.Warm(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Nil(t, bound)

	require.NoError(t, s.Do(ctx, func(ctx context.Context, tx store.Tx) error {
		cfg, err := governance.New("authority", "xp-mint", now)
		if err != nil {
			return err
		}
		if err := tx.Config().Create(ctx, cfg); err != nil {
			return err
		}
		_, err = tx.Balances().Credit(ctx, token.AccountRef{Mint: "xp-mint", Owner: "alice"}, 40, now)
		return err
	}))

	n, err = svc.Warm(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	require.NotNil(t, bound)
	assert.Equal(t, shared.Address("xp-mint"), bound.mint)
	assert.Equal(t, 1, bound.rebuilt)
	assert.Equal(t, uint64(40), bound.scores["alice"])
}
