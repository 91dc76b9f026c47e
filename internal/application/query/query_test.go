package query

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alem-hub/academy-ledger/internal/domain/achievement"
	"github.com/alem-hub/academy-ledger/internal/domain/course"
	"github.com/alem-hub/academy-ledger/internal/domain/enrollment"
	"github.com/alem-hub/academy-ledger/internal/domain/governance"
	"github.com/alem-hub/academy-ledger/internal/domain/learner"
	"github.com/alem-hub/academy-ledger/internal/domain/minter"
	"github.com/alem-hub/academy-ledger/internal/domain/shared"
	"github.com/alem-hub/academy-ledger/internal/domain/store"
	"github.com/alem-hub/academy-ledger/internal/domain/token"
	"github.com/alem-hub/academy-ledger/internal/infrastructure/persistence/memory"
	"github.com/alem-hub/academy-ledger/pkg/logger"
	"github.com/alem-hub/academy-ledger/pkg/timeutil"
)

var now = time.Date(2024, 6, 3, 15, 0, 0, 0, time.UTC)

const xpMint shared.Address = "xp-mint"

func seed(t *testing.T, fn func(ctx context.Context, tx store.Tx)) *memory.Store {
	t.Helper()
	s := memory.New()
	require.NoError(t, s.Do(context.Background(), func(ctx context.Context, tx store.Tx) error {
		cfg, err := governance.New("authority", xpMint, now)
		require.NoError(t, err)
		require.NoError(t, tx.Config().Create(ctx, cfg))
		fn(ctx, tx)
		return nil
	}))
	return s
}

func mutate(t *testing.T, s *memory.Store, fn func(ctx context.Context, tx store.Tx)) {
	t.Helper()
	require.NoError(t, s.Do(context.Background(), func(ctx context.Context, tx store.Tx) error {
		fn(ctx, tx)
		return nil
	}))
}

func TestCourseCatalogCachesReads(t *testing.T) {
	s := seed(t, func(ctx context.Context, tx store.Tx) {
		c, err := course.New(course.Params{CourseID: "go-101", Creator: "creator", LessonCount: 4, XPPerLesson: 25}, now)
		require.NoError(t, err)
		require.NoError(t, tx.Courses().Create(ctx, c))
	})
	cat := NewCourseCatalog(s, time.Minute, logger.Discard())
	ctx := context.Background()

	dto, err := cat.GetCourse(ctx, "go-101")
	require.NoError(t, err)
	assert.Equal(t, uint64(100), dto.TotalXP)
	assert.Equal(t, 1, cat.CachedCount())

	mutate(t, s, func(ctx context.Context, tx store.Tx) {
		c, err := tx.Courses().Get(ctx, "go-101")
		require.NoError(t, err)
		_, err = c.RecordCompletion(now)
		require.NoError(t, err)
		require.NoError(t, tx.Courses().Update(ctx, c))
	})

	dto, err = cat.GetCourse(ctx, "go-101")
	require.NoError(t, err)
	assert.Zero(t, dto.CompletionCount, "served from cache")

	cat.Invalidate("go-101")
	dto, err = cat.GetCourse(ctx, "go-101")
	require.NoError(t, err)
	assert.Equal(t, uint32(1), dto.CompletionCount)

	_, err = cat.GetCourse(ctx, "missing")
	assert.ErrorIs(t, err, shared.ErrCourseNotFound)
}

func TestCourseCatalogList(t *testing.T) {
	track := uint32(2)
	s := seed(t, func(ctx context.Context, tx store.Tx) {
		for i, id := range []string{"a", "b", "c"} {
			c, err := course.New(course.Params{CourseID: id, Creator: "creator", LessonCount: 1, TrackID: uint32(i)}, now)
			require.NoError(t, err)
			require.NoError(t, tx.Courses().Create(ctx, c))
		}
	})
	cat := NewCourseCatalog(s, 0, nil)

	res, err := cat.ListCourses(context.Background(), ListCoursesQuery{PageSize: 2})
	require.NoError(t, err)
	require.Len(t, res.Courses, 2)
	assert.True(t, res.HasMore)
	assert.Equal(t, "a", res.Courses[0].CourseID)

	res, err = cat.ListCourses(context.Background(), ListCoursesQuery{TrackID: &track})
	require.NoError(t, err)
	require.Len(t, res.Courses, 1)
	assert.Equal(t, "c", res.Courses[0].CourseID)
	assert.Zero(t, cat.CachedCount())
}

func TestGetLearnerAppliesLazyResets(t *testing.T) {
	s := seed(t, func(ctx context.Context, tx store.Tx) {
		p, err := learner.New("alice", 1, now)
		require.NoError(t, err)
		_, err = p.CreditXP(450, now, learner.Rules{DailyCap: 2000, Season: 1})
		require.NoError(t, err)
		require.NoError(t, tx.Learners().Create(ctx, p))
		_, err = tx.Balances().Credit(ctx, token.AccountRef{Mint: xpMint, Owner: "alice"}, 450, now)
		require.NoError(t, err)
	})
	clock := &timeutil.FixedClock{T: now}
	h := NewGetLearnerHandler(s, clock, 2000)
	ctx := context.Background()

	dto, err := h.Handle(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, uint64(450), dto.Balance)
	assert.Equal(t, uint32(3), dto.Level)
	assert.Equal(t, uint64(900-450), dto.XPToNextLevel)
	assert.Equal(t, uint32(1550), dto.DailyXPRemaining)

	clock.Advance(24 * time.Hour)
	dto, err = h.Handle(ctx, "alice")
	require.NoError(t, err)
	assert.Zero(t, dto.XPEarnedToday)
	assert.Equal(t, uint32(2000), dto.DailyXPRemaining)

	_, err = h.Handle(ctx, "bob")
	assert.ErrorIs(t, err, shared.ErrLearnerNotFound)
}

func TestProgress(t *testing.T) {
	s := seed(t, func(ctx context.Context, tx store.Tx) {
		c, err := course.New(course.Params{CourseID: "go-101", Creator: "creator", LessonCount: 4}, now)
		require.NoError(t, err)
		require.NoError(t, tx.Courses().Create(ctx, c))
		e := enrollment.New("go-101", "alice", now)
		require.NoError(t, e.CompleteLesson(0, 4))
		require.NoError(t, e.CompleteLesson(2, 4))
		require.NoError(t, tx.Enrollments().Create(ctx, e))
	})
	h := NewGetProgressHandler(s)

	dto, err := h.Handle(context.Background(), "go-101", "alice")
	require.NoError(t, err)
	assert.Equal(t, []uint32{0, 2}, dto.CompletedLessons)
	assert.Equal(t, 50.0, dto.Percent)
	assert.Equal(t, string(enrollment.StatusInProgress), dto.Status)

	list, err := h.ListForLearner(context.Background(), "alice")
	require.NoError(t, err)
	assert.Len(t, list, 1)

	_, err = h.Handle(context.Background(), "go-101", "bob")
	assert.ErrorIs(t, err, shared.ErrEnrollmentNotFound)
}

func TestRegistry(t *testing.T) {
	s := seed(t, func(ctx context.Context, tx store.Tx) {
		role, err := minter.NewUnlimited("authority", now)
		require.NoError(t, err)
		require.NoError(t, tx.Minters().Create(ctx, role))
		typ, err := achievement.NewType(achievement.Params{AchievementID: "first", Name: "First", MaxSupply: 3}, now)
		require.NoError(t, err)
		require.NoError(t, typ.Grant())
		require.NoError(t, tx.Achievements().CreateType(ctx, typ))
		require.NoError(t, tx.Achievements().CreateReceipt(ctx, &achievement.Receipt{
			AchievementID: "first", Recipient: "alice", Asset: "asset-1", GrantedBy: "authority", AwardedAt: now,
		}))
	})
	r := NewRegistry(s)
	ctx := context.Background()

	cfg, err := r.Config(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint32(1), cfg.CurrentSeason)

	role, err := r.MinterRole(ctx, "authority")
	require.NoError(t, err)
	assert.True(t, role.Unlimited)
	assert.Equal(t, "0", role.TotalXPMinted)

	typ, err := r.AchievementType(ctx, "first")
	require.NoError(t, err)
	assert.Equal(t, uint32(2), typ.Remaining)

	rec, err := r.Receipt(ctx, "first", "alice")
	require.NoError(t, err)
	assert.Equal(t, "asset-1", rec.Asset)

	list, err := r.Receipts(ctx, "bob")
	require.NoError(t, err)
	assert.Empty(t, list)
}

type stubRanking struct {
	standings []token.Standing
	err       error
}

func (s *stubRanking) Set(context.Context, shared.Address, uint64) error { return nil }

func (s *stubRanking) Top(_ context.Context, offset, limit int) ([]token.Standing, error) {
	if offset >= len(s.standings) {
		return nil, s.err
	}
	end := offset + limit
	if end > len(s.standings) {
		end = len(s.standings)
	}
	return s.standings[offset:end], s.err
}

func (s *stubRanking) Rank(context.Context, shared.Address) (token.Standing, bool, error) {
	return token.Standing{}, false, s.err
}

func (s *stubRanking) Size(context.Context) (int64, error) {
	return int64(len(s.standings)), s.err
}

func TestLeaderboardFallsBackToStore(t *testing.T) {
	s := seed(t, func(ctx context.Context, tx store.Tx) {
		for owner, bal := range map[shared.Address]uint64{"alice": 300, "bob": 500, "carol": 300} {
			_, err := tx.Balances().Credit(ctx, token.AccountRef{Mint: xpMint, Owner: owner}, bal, now)
			require.NoError(t, err)
		}
	})
	ctx := context.Background()

	cases := map[string]token.RankingCache{
		"no cache":     nil,
		"empty cache":  &stubRanking{},
		"broken cache": &stubRanking{standings: []token.Standing{{Owner: "x"}}, err: errors.New("redis down")},
	}
	for name, cache := range cases {
		t.Run(name, func(t *testing.T) {
			res, err := NewGetLeaderboardHandler(s, cache, logger.Discard()).Handle(ctx, GetLeaderboardQuery{})
			require.NoError(t, err)
			assert.Equal(t, SourceStore, res.Source)
			require.Len(t, res.Entries, 3)
			assert.Equal(t, "bob", res.Entries[0].Owner)
			assert.Equal(t, 2, res.Entries[1].Rank)
			assert.Equal(t, 2, res.Entries[2].Rank, "ties share a rank")
		})
	}

	res, err := NewGetLeaderboardHandler(s, nil, nil).Handle(ctx, GetLeaderboardQuery{Offset: 1, Limit: 1})
	require.NoError(t, err)
	require.Len(t, res.Entries, 1)
	assert.Equal(t, "alice", res.Entries[0].Owner)
}

func TestLeaderboardPrefersCache(t *testing.T) {
	s := seed(t, func(context.Context, store.Tx) {})
	cache := &stubRanking{standings: []token.Standing{{Owner: "zed", Balance: 900, Rank: 1}}}

	res, err := NewGetLeaderboardHandler(s, cache, logger.Discard()).Handle(context.Background(), GetLeaderboardQuery{})
	require.NoError(t, err)
	assert.Equal(t, SourceCache, res.Source)
	require.Len(t, res.Entries, 1)
	assert.Equal(t, uint32(4), res.Entries[0].Level)

	_, err = NewGetLeaderboardHandler(s, cache, nil).Handle(context.Background(), GetLeaderboardQuery{Limit: -1})
	assert.ErrorIs(t, err, shared.ErrValidation)
}
