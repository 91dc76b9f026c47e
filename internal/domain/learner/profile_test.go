package learner

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/alem-hub/academy-ledger/internal/domain/shared"
)

var day0 = time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)

var rules = Rules{DailyCap: 500, Season: 1}

func newProfile(t *testing.T) *Profile {
	t.Helper()
	p, err := New("alice", 1, day0)
	require.NoError(t, err)
	return p
}

func TestCreditXPWithinDay(t *testing.T) {
	p := newProfile(t)

	res, err := p.CreditXP(200, day0.Add(time.Hour), rules)
	require.NoError(t, err)
	assert.Equal(t, uint32(200), res.EarnedToday)
	assert.Equal(t, uint32(1), res.StreakAfter)

	_, err = p.CreditXP(300, day0.Add(2*time.Hour), rules)
	require.NoError(t, err)
	assert.Equal(t, uint32(500), p.XPEarnedToday)
	assert.Equal(t, uint32(500), p.TotalXP)
	assert.Equal(t, uint32(500), p.SeasonXP)
	assert.Equal(t, shared.Level(3), p.Level())
}

func TestDailyCapRejectsWithoutMutation(t *testing.T) {
	p := newProfile(t)
	_, err := p.CreditXP(450, day0, rules)
	require.NoError(t, err)
	before := *p

	_, err = p.CreditXP(51, day0.Add(time.Hour), rules)
	assert.ErrorIs(t, err, shared.ErrDailyXPLimitExceeded)
	assert.ErrorIs(t, err, shared.ErrRateLimited)
	assert.Equal(t, before, *p)
}

func TestDailyCounterResetsOnNewDay(t *testing.T) {
	p := newProfile(t)
	_, err := p.CreditXP(500, day0, rules)
	require.NoError(t, err)

	res, err := p.CreditXP(100, day0.Add(24*time.Hour), rules)
	require.NoError(t, err)
	assert.Equal(t, uint32(100), res.EarnedToday)
	assert.Equal(t, uint32(600), p.TotalXP)
	assert.Equal(t, uint32(2), p.CurrentStreak)
}

func TestStreakResetsAfterGap(t *testing.T) {
	p := newProfile(t)
	p.CurrentStreak = 5
	p.LongestStreak = 5

	res, err := p.CreditXP(10, day0.Add(48*time.Hour), rules)
	require.NoError(t, err)

	assert.True(t, res.StreakReset)
	assert.Equal(t, uint32(1), p.CurrentStreak)
	assert.Equal(t, uint32(5), p.LongestStreak)
}

func TestStreakFreezeAbsorbsGap(t *testing.T) {
	p := newProfile(t)
	p.CurrentStreak = 5
	p.LongestStreak = 5
	p.AwardStreakFreeze(MaxStreakFreezes)

	res, err := p.CreditXP(10, day0.Add(72*time.Hour), rules)
	require.NoError(t, err)

	assert.True(t, res.FreezeUsed)
	assert.Equal(t, uint32(0), p.StreakFreezes)
	assert.Equal(t, uint32(6), p.CurrentStreak)
	assert.Equal(t, uint32(6), p.LongestStreak)
}

func TestZeroCreditLeavesProfileUntouched(t *testing.T) {
	p := newProfile(t)
	p.CurrentStreak = 5
	p.LongestStreak = 5
	p.AwardStreakFreeze(MaxStreakFreezes)
	before := *p

	res, err := p.CreditXP(0, day0.Add(72*time.Hour), Rules{DailyCap: 500, Season: 2})
	require.NoError(t, err)

	assert.Equal(t, before, *p)
	assert.False(t, res.FreezeUsed)
	assert.False(t, res.StreakReset)
	assert.False(t, res.SeasonChanged)
	assert.Equal(t, uint32(5), res.StreakAfter)
	assert.Zero(t, res.EarnedToday)

	_, err = p.CreditXP(0, day0.Add(time.Hour), rules)
	require.NoError(t, err)
	assert.True(t, day0.Equal(p.LastActivity))
}

func TestStreakFreezeCap(t *testing.T) {
	p := newProfile(t)
	for i := 0; i < 5; i++ {
		p.AwardStreakFreeze(MaxStreakFreezes)
	}
	assert.Equal(t, MaxStreakFreezes, p.StreakFreezes)
}

func TestSeasonRollover(t *testing.T) {
	p := newProfile(t)
	_, err := p.CreditXP(100, day0, rules)
	require.NoError(t, err)

	res, err := p.CreditXP(50, day0.Add(time.Hour), Rules{DailyCap: 500, Season: 2})
	require.NoError(t, err)

	assert.True(t, res.SeasonChanged)
	assert.Equal(t, uint32(2), p.Season)
	assert.Equal(t, uint32(50), p.SeasonXP)
	assert.Equal(t, uint32(150), p.TotalXP)
}

func TestTotalXPOverflow(t *testing.T) {
	p := newProfile(t)
	p.TotalXP = math.MaxUint32

	_, err := p.CreditXP(1, day0, rules)
	assert.ErrorIs(t, err, shared.ErrArithmetic)
	assert.Equal(t, uint32(0), p.CurrentStreak)
}

func TestReferral(t *testing.T) {
	p := newProfile(t)

	assert.ErrorIs(t, p.SetReferrer("alice"), shared.ErrSelfReferral)
	require.NoError(t, p.SetReferrer("bob"))
	assert.ErrorIs(t, p.SetReferrer("carol"), shared.ErrAlreadyReferred)
	assert.Equal(t, shared.Address("bob"), *p.ReferredBy)

	cp := p.Clone()
	*cp.ReferredBy = "mallory"
	assert.Equal(t, shared.Address("bob"), *p.ReferredBy)
}

func TestSameDayCreditsNeverExceedCap(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		dailyCap := rapid.Uint32Range(0, 5000).Draw(t, "cap")
		p, err := New("alice", 1, day0)
		require.NoError(t, err)

		var accepted uint32
		for i, amt := range rapid.SliceOf(rapid.Uint32Range(0, 1000)).Draw(t, "amounts") {
			at := day0.Add(time.Duration(i) * time.Second)
			_, err := p.CreditXP(amt, at, Rules{DailyCap: dailyCap, Season: 1})
			if err != nil {
				require.ErrorIs(t, err, shared.ErrRateLimited)
				continue
			}
			accepted += amt
		}
		require.LessOrEqual(t, accepted, dailyCap)
		require.Equal(t, accepted, p.XPEarnedToday)
		require.Equal(t, accepted, p.TotalXP)
	})
}
