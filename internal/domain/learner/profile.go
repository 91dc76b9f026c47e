// Package learner содержит профиль учащегося: учёт XP, дневной лимит,
// серии (streaks), заморозки серий и рефералы.
// Это ядро бизнес-логики - здесь нет внешних зависимостей.
package learner

import (
	"time"

	"github.com/alem-hub/academy-ledger/internal/domain/shared"
	"github.com/alem-hub/academy-ledger/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// CONSTANTS
// ══════════════════════════════════════════════════════════════════════════════

const (
	// DefaultDailyXPCap - сколько XP можно заработать за один день.
	DefaultDailyXPCap uint32 = 2000

	// MaxStreakFreezes - максимум накопленных заморозок серии.
	MaxStreakFreezes uint32 = 3
)

// ══════════════════════════════════════════════════════════════════════════════
// PROFILE
// ══════════════════════════════════════════════════════════════════════════════

// Profile - агрегат учащегося. Создаётся один раз на адрес.
type Profile struct {
	User             shared.Address
	TotalXP          uint32
	Season           uint32
	SeasonXP         uint32
	XPEarnedToday    uint32
	LastActivity     time.Time
	CurrentStreak    uint32
	LongestStreak    uint32
	StreakFreezes    uint32
	AchievementCount uint32
	CoursesCompleted uint32
	ReferredBy       *shared.Address
	ReferralCount    uint32
	CreatedAt        time.Time
}

// New создаёт пустой профиль. LastActivity = момент создания, поэтому
// первое начисление в тот же день не считается пропуском.
func New(user shared.Address, season uint32, now time.Time) (*Profile, error) {
	if !user.IsValid() {
		return nil, shared.ErrInvalidAddress.Withf("learner %q", user)
	}
	return &Profile{
		User:         user,
		Season:       season,
		LastActivity: now,
		CreatedAt:    now,
	}, nil
}

// Level вычисляется из общего XP.
func (p *Profile) Level() shared.Level {
	return shared.LevelFor(uint64(p.TotalXP))
}

// HasReferrer - был ли учащийся приглашён.
func (p *Profile) HasReferrer() bool {
	return p.ReferredBy != nil
}

// Clone возвращает глубокую копию.
func (p *Profile) Clone() *Profile {
	cp := *p
	if p.ReferredBy != nil {
		r := *p.ReferredBy
		cp.ReferredBy = &r
	}
	return &cp
}

// ══════════════════════════════════════════════════════════════════════════════
// XP ACCOUNTING
// ══════════════════════════════════════════════════════════════════════════════

// Rules - параметры начисления, общие для всего леджера.
type Rules struct {
	DailyCap uint32
	Season   uint32
}

// CreditResult описывает, что произошло при начислении.
type CreditResult struct {
	Amount        uint32
	EarnedToday   uint32
	StreakBefore  uint32
	StreakAfter   uint32
	FreezeUsed    bool
	StreakReset   bool
	LevelBefore   shared.Level
	LevelAfter    shared.Level
	SeasonChanged bool
}

// LeveledUp - изменился ли уровень.
func (r CreditResult) LeveledUp() bool {
	return r.LevelAfter > r.LevelBefore
}

// CreditXP начисляет XP за учебную активность.
//
// Порядок:
//  1. если наступил новый день - дневной счётчик обнуляется;
//  2. новый дневной итог не должен превышать лимит;
//  3. total_xp и season_xp увеличиваются (с проверкой переполнения);
//  4. серия: если пропущено больше суток - тратится заморозка или серия
//     сбрасывается, затем серия всегда +1.
//
// Профиль меняется только если все шаги прошли успешно. Нулевое
// начисление не считается активностью: профиль не меняется вовсе.
func (p *Profile) CreditXP(amount uint32, now time.Time, rules Rules) (CreditResult, error) {
	today := timeutil.DayIndex(now)
	lastDay := timeutil.DayIndex(p.LastActivity)

	earned := p.XPEarnedToday
	if today > lastDay {
		earned = 0
	}
	if amount == 0 {
		return CreditResult{
			EarnedToday:  earned,
			StreakBefore: p.CurrentStreak,
			StreakAfter:  p.CurrentStreak,
			LevelBefore:  p.Level(),
			LevelAfter:   p.Level(),
		}, nil
	}
	earned, ok := shared.AddU32(earned, amount)
	if !ok {
		return CreditResult{}, shared.Overflow("learner", "CreditXP", "daily xp")
	}
	if earned > rules.DailyCap {
		return CreditResult{}, shared.ErrDailyXPLimitExceeded.Withf("%d > %d", earned, rules.DailyCap)
	}

	total, ok := shared.AddU32(p.TotalXP, amount)
	if !ok {
		return CreditResult{}, shared.Overflow("learner", "CreditXP", "total xp")
	}

	seasonXP := p.SeasonXP
	seasonChanged := p.Season != rules.Season
	if seasonChanged {
		seasonXP = 0
	}
	seasonXP, ok = shared.AddU32(seasonXP, amount)
	if !ok {
		return CreditResult{}, shared.Overflow("learner", "CreditXP", "season xp")
	}

	res := CreditResult{
		Amount:        amount,
		EarnedToday:   earned,
		StreakBefore:  p.CurrentStreak,
		LevelBefore:   p.Level(),
		SeasonChanged: seasonChanged,
	}

	streak := p.CurrentStreak
	freezes := p.StreakFreezes
	if today > lastDay+1 {
		if freezes > 0 {
			freezes--
			res.FreezeUsed = true
		} else {
			streak = 0
			res.StreakReset = true
		}
	}
	streak, ok = shared.AddU32(streak, 1)
	if !ok {
		return CreditResult{}, shared.Overflow("learner", "CreditXP", "streak")
	}
	longest := p.LongestStreak
	if streak > longest {
		longest = streak
	}

	p.XPEarnedToday = earned
	p.TotalXP = total
	p.Season = rules.Season
	p.SeasonXP = seasonXP
	p.CurrentStreak = streak
	p.LongestStreak = longest
	p.StreakFreezes = freezes
	p.LastActivity = now

	res.StreakAfter = streak
	res.LevelAfter = p.Level()
	return res, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// COUNTERS
// ══════════════════════════════════════════════════════════════════════════════

// AwardStreakFreeze добавляет заморозку, но не больше max.
func (p *Profile) AwardStreakFreeze(max uint32) uint32 {
	if p.StreakFreezes < max {
		p.StreakFreezes++
	}
	return p.StreakFreezes
}

// RecordCourseCompleted увеличивает счётчик завершённых курсов.
func (p *Profile) RecordCourseCompleted() error {
	n, ok := shared.AddU32(p.CoursesCompleted, 1)
	if !ok {
		return shared.Overflow("learner", "RecordCourseCompleted", "courses completed")
	}
	p.CoursesCompleted = n
	return nil
}

// RecordAchievement увеличивает счётчик достижений.
func (p *Profile) RecordAchievement() error {
	n, ok := shared.AddU32(p.AchievementCount, 1)
	if !ok {
		return shared.Overflow("learner", "RecordAchievement", "achievement count")
	}
	p.AchievementCount = n
	return nil
}

// ══════════════════════════════════════════════════════════════════════════════
// REFERRALS
// ══════════════════════════════════════════════════════════════════════════════

// SetReferrer привязывает пригласившего. Привязка возможна только один раз.
func (p *Profile) SetReferrer(referrer shared.Address) error {
	if referrer == p.User {
		return shared.ErrSelfReferral
	}
	if p.HasReferrer() {
		return shared.ErrAlreadyReferred
	}
	r := referrer
	p.ReferredBy = &r
	return nil
}

// RecordReferral увеличивает счётчик приглашённых.
func (p *Profile) RecordReferral() error {
	n, ok := shared.AddU32(p.ReferralCount, 1)
	if !ok {
		return shared.Overflow("learner", "RecordReferral", "referral count")
	}
	p.ReferralCount = n
	return nil
}
