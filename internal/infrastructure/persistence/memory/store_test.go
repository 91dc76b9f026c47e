package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alem-hub/academy-ledger/internal/domain/achievement"
	"github.com/alem-hub/academy-ledger/internal/domain/course"
	"github.com/alem-hub/academy-ledger/internal/domain/shared"
	"github.com/alem-hub/academy-ledger/internal/domain/store"
	"github.com/alem-hub/academy-ledger/internal/domain/token"
)

var now = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func newCourse(t *testing.T, id string) *course.Course {
	t.Helper()
	c, err := course.New(course.Params{CourseID: id, Creator: "creator", LessonCount: 3, XPPerLesson: 10}, now)
	require.NoError(t, err)
	return c
}

func TestDoCommitsOnSuccess(t *testing.T) {
	s := New()
	ctx := context.Background()

	err := s.Do(ctx, func(ctx context.Context, tx store.Tx) error {
		return tx.Courses().Create(ctx, newCourse(t, "rust-101"))
	})
	require.NoError(t, err)

	err = s.View(ctx, func(ctx context.Context, tx store.Tx) error {
		c, err := tx.Courses().Get(ctx, "rust-101")
		require.NoError(t, err)
		assert.Equal(t, uint32(3), c.LessonCount)
		return nil
	})
	require.NoError(t, err)
}

func TestDoDiscardsEverythingOnError(t *testing.T) {
	s := New()
	ctx := context.Background()
	boom := errors.New("boom")
	ref := token.AccountRef{Mint: "xp", Owner: "alice"}

	err := s.Do(ctx, func(ctx context.Context, tx store.Tx) error {
		require.NoError(t, tx.Courses().Create(ctx, newCourse(t, "rust-101")))
		_, err := tx.Balances().Credit(ctx, ref, 100, now)
		require.NoError(t, err)
		require.NoError(t, tx.Outbox().Append(ctx, shared.SeasonStartedEvent{}))
		return boom
	})
	assert.ErrorIs(t, err, boom)

	err = s.View(ctx, func(ctx context.Context, tx store.Tx) error {
		_, err := tx.Courses().Get(ctx, "rust-101")
		assert.ErrorIs(t, err, shared.ErrCourseNotFound)
		bal, err := tx.Balances().Balance(ctx, ref)
		require.NoError(t, err)
		assert.Zero(t, bal)
		return nil
	})
	require.NoError(t, err)
	assert.Empty(t, s.Events())
}

func TestMutatingReturnedEntityDoesNotLeak(t *testing.T) {
	s := New()
	ctx := context.Background()
	require.NoError(t, s.Do(ctx, func(ctx context.Context, tx store.Tx) error {
		return tx.Courses().Create(ctx, newCourse(t, "rust-101"))
	}))

	require.NoError(t, s.View(ctx, func(ctx context.Context, tx store.Tx) error {
		c, err := tx.Courses().Get(ctx, "rust-101")
		require.NoError(t, err)
		c.XPPerLesson = 999
		return nil
	}))

	require.NoError(t, s.View(ctx, func(ctx context.Context, tx store.Tx) error {
		c, err := tx.Courses().Get(ctx, "rust-101")
		require.NoError(t, err)
		assert.Equal(t, uint32(10), c.XPPerLesson)
		return nil
	}))
}

func TestViewIsReadOnly(t *testing.T) {
	s := New()
	err := s.View(context.Background(), func(ctx context.Context, tx store.Tx) error {
		return tx.Courses().Create(ctx, newCourse(t, "rust-101"))
	})
	assert.ErrorIs(t, err, ErrReadOnly)
}

func TestReceiptUniqueness(t *testing.T) {
	s := New()
	ctx := context.Background()
	rc := &achievement.Receipt{AchievementID: "first", Recipient: "alice", AwardedAt: now}

	require.NoError(t, s.Do(ctx, func(ctx context.Context, tx store.Tx) error {
		return tx.Achievements().CreateReceipt(ctx, rc)
	}))
	err := s.Do(ctx, func(ctx context.Context, tx store.Tx) error {
		return tx.Achievements().CreateReceipt(ctx, rc)
	})
	assert.ErrorIs(t, err, shared.ErrAchievementAlreadyAwarded)
}

func TestBalancesTopAndOverflow(t *testing.T) {
	s := New()
	ctx := context.Background()
	require.NoError(t, s.Do(ctx, func(ctx context.Context, tx store.Tx) error {
		for owner, amt := range map[shared.Address]uint64{"alice": 30, "bob": 50, "carol": 10} {
			if _, err := tx.Balances().Credit(ctx, token.AccountRef{Mint: "xp", Owner: owner}, amt, now); err != nil {
				return err
			}
		}
		return nil
	}))

	require.NoError(t, s.View(ctx, func(ctx context.Context, tx store.Tx) error {
		top, err := tx.Balances().Top(ctx, "xp", 2)
		require.NoError(t, err)
		require.Len(t, top, 2)
		assert.Equal(t, shared.Address("bob"), top[0].Owner)
		assert.Equal(t, shared.Address("alice"), top[1].Owner)
		return nil
	}))

	err := s.Do(ctx, func(ctx context.Context, tx store.Tx) error {
		_, err := tx.Balances().Credit(ctx, token.AccountRef{Mint: "xp", Owner: "bob"}, ^uint64(0), now)
		return err
	})
	assert.ErrorIs(t, err, shared.ErrArithmetic)
}

func TestCourseListFilters(t *testing.T) {
	s := New()
	ctx := context.Background()
	require.NoError(t, s.Do(ctx, func(ctx context.Context, tx store.Tx) error {
		for _, id := range []string{"c", "a", "b"} {
			if err := tx.Courses().Create(ctx, newCourse(t, id)); err != nil {
				return err
			}
		}
		b, err := tx.Courses().Get(ctx, "b")
		if err != nil {
			return err
		}
		b.IsActive = false
		return tx.Courses().Update(ctx, b)
	}))

	require.NoError(t, s.View(ctx, func(ctx context.Context, tx store.Tx) error {
		all, err := tx.Courses().List(ctx, course.ListOptions{})
		require.NoError(t, err)
		require.Len(t, all, 3)
		assert.Equal(t, "a", all[0].CourseID)

		active, err := tx.Courses().List(ctx, course.ListOptions{ActiveOnly: true})
		require.NoError(t, err)
		assert.Len(t, active, 2)
		return nil
	}))
}
