package command

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/alem-hub/academy-ledger/internal/domain/achievement"
	"github.com/alem-hub/academy-ledger/internal/domain/course"
	"github.com/alem-hub/academy-ledger/internal/domain/shared"
	"github.com/alem-hub/academy-ledger/internal/domain/store"
	"github.com/alem-hub/academy-ledger/internal/domain/token"
	"github.com/alem-hub/academy-ledger/internal/infrastructure/persistence/memory"
	"github.com/alem-hub/academy-ledger/pkg/fixedpoint"
	"github.com/alem-hub/academy-ledger/pkg/logger"
	"github.com/alem-hub/academy-ledger/pkg/timeutil"
)

func newRapidLedger(t *rapid.T) (*Ledger, *memory.Store, *timeutil.FixedClock) {
	s := memory.New()
	clock := &timeutil.FixedClock{T: start}
	l := NewLedger(Dependencies{UnitOfWork: s, Clock: clock, Logger: logger.Discard()}, Rules{})
	_, err := l.Initialize(context.Background(), InitializeCommand{Caller: authority, XPMint: xpMint})
	require.NoError(t, err)
	return l, s, clock
}

// Lesson bits only ever go from unset to set, every successful credit lands
// on both the profile and the token balance, and no day exceeds the cap.
func TestLessonProgressProperties(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		ctx := context.Background()
		l, s, clock := newRapidLedger(t)
		const lessons = 8
		_, err := l.CreateCourse(ctx, CreateCourseCommand{Caller: authority, Params: course.Params{
			CourseID: "prop", LessonCount: lessons, XPPerLesson: 300, Creator: creator,
		}})
		require.NoError(t, err)

		learners := []shared.Address{alice, bob}
		completed := map[shared.Address]map[uint32]bool{}
		for _, who := range learners {
			_, err := l.Enroll(ctx, EnrollCommand{Caller: who, CourseID: "prop"})
			require.NoError(t, err)
			completed[who] = map[uint32]bool{}
		}

		steps := rapid.IntRange(1, 60).Draw(t, "steps")
		for i := 0; i < steps; i++ {
			who := rapid.SampledFrom(learners).Draw(t, "learner")
			switch rapid.IntRange(0, 2).Draw(t, "op") {
			case 0:
				idx := rapid.Uint32Range(0, lessons).Draw(t, "index")
				_, err := l.CompleteLesson(ctx, CompleteLessonCommand{Caller: authority, Learner: who, CourseID: "prop", LessonIndex: idx})
				if err == nil {
					require.False(t, completed[who][idx], "lesson %d credited twice", idx)
					completed[who][idx] = true
				} else {
					require.True(t, IsRejection(err), "unexpected error %v", err)
				}
			case 1:
				_, err := l.FinalizeCourse(ctx, FinalizeCourseCommand{Caller: authority, Learner: who, CourseID: "prop"})
				if err != nil {
					require.True(t, IsRejection(err), "unexpected error %v", err)
				}
			case 2:
				clock.Advance(time.Duration(rapid.IntRange(1, 48).Draw(t, "hours")) * time.Hour)
			}

			require.NoError(t, s.View(ctx, func(ctx context.Context, tx store.Tx) error {
				for _, who := range learners {
					e, err := tx.Enrollments().Get(ctx, "prop", who)
					require.NoError(t, err)
					for idx := uint32(0); idx < lessons; idx++ {
						require.Equal(t, completed[who][idx], e.IsLessonComplete(idx))
					}
					p, err := tx.Learners().Get(ctx, who)
					require.NoError(t, err)
					require.LessOrEqual(t, p.XPEarnedToday, l.Rules().DailyXPCap)
					require.LessOrEqual(t, p.CurrentStreak, p.LongestStreak)
					bal, err := tx.Balances().Balance(ctx, token.AccountRef{Mint: xpMint, Owner: who})
					require.NoError(t, err)
					require.Equal(t, uint64(p.TotalXP), bal)
				}
				return nil
			}))
		}
	})
}

// Every accepted reward is within the per-call limit and the minted total
// is their exact sum.
func TestMinterTotalProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		ctx := context.Background()
		l, _, _ := newRapidLedger(t)
		partner := shared.Address("partner")
		limit := rapid.Uint64Range(1, 5000).Draw(t, "limit")
		_, err := l.RegisterMinter(ctx, RegisterMinterCommand{
			Caller: authority, Minter: partner, Label: "partner", MaxXPPerCall: fixedpoint.FromInteger(limit),
		})
		require.NoError(t, err)

		var sum uint64
		for _, amount := range rapid.SliceOf(rapid.Uint64Range(0, 6000)).Draw(t, "amounts") {
			res, err := l.RewardXP(ctx, RewardXPCommand{Caller: partner, Recipient: alice, Amount: fixedpoint.FromInteger(amount)})
			if amount == 0 {
				require.ErrorIs(t, err, shared.ErrInvalidAmount)
				continue
			}
			if amount > limit {
				require.ErrorIs(t, err, shared.ErrMinterAmountExceeded)
				continue
			}
			require.NoError(t, err)
			sum += amount
			require.Equal(t, sum, res.NewBalance)
			require.Zero(t, res.TotalXPMinted.Cmp(fixedpoint.FromInteger(sum)))
		}
	})
}

// Supply never exceeds the maximum and each recipient holds at most one
// receipt per achievement.
func TestAchievementSupplyProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		ctx := context.Background()
		l, s, _ := newRapidLedger(t)
		maxSupply := rapid.Uint32Range(1, 5).Draw(t, "max_supply")
		_, err := l.CreateAchievementType(ctx, CreateAchievementTypeCommand{
			Caller: authority,
			Params: achievement.Params{AchievementID: "prop", Name: "prop", MaxSupply: maxSupply, XPReward: 10},
		})
		require.NoError(t, err)

		recipients := []shared.Address{"r1", "r2", "r3", "r4", "r5", "r6"}
		awarded := map[shared.Address]bool{}
		for _, who := range rapid.SliceOf(rapid.SampledFrom(recipients)).Draw(t, "awards") {
			_, err := l.AwardAchievement(ctx, GrantAchievementCommand{Caller: authority, AchievementID: "prop", Recipient: who})
			switch {
			case awarded[who]:
				require.Error(t, err)
			case uint32(len(awarded)) >= maxSupply:
				require.ErrorIs(t, err, shared.ErrAchievementSupplyExceeded)
			default:
				require.NoError(t, err)
				awarded[who] = true
			}
		}

		require.NoError(t, s.View(ctx, func(ctx context.Context, tx store.Tx) error {
			typ, err := tx.Achievements().GetType(ctx, "prop")
			require.NoError(t, err)
			require.LessOrEqual(t, typ.CurrentSupply, typ.MaxSupply)
			require.Equal(t, uint32(len(awarded)), typ.CurrentSupply)
			for _, who := range recipients {
				_, err := tx.Achievements().GetReceipt(ctx, "prop", who)
				if awarded[who] {
					require.NoError(t, err)
				} else {
					require.ErrorIs(t, err, shared.ErrReceiptNotFound)
				}
			}
			return nil
		}))
	})
}
