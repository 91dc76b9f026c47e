package query

import (
	"context"
	"time"

	"github.com/alem-hub/academy-ledger/internal/domain/enrollment"
	"github.com/alem-hub/academy-ledger/internal/domain/learner"
	"github.com/alem-hub/academy-ledger/internal/domain/shared"
	"github.com/alem-hub/academy-ledger/internal/domain/store"
	"github.com/alem-hub/academy-ledger/internal/domain/token"
	"github.com/alem-hub/academy-ledger/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// LEARNER PROFILE
// ══════════════════════════════════════════════════════════════════════════════

// LearnerProfileDTO - профиль учащегося с производными полями.
type LearnerProfileDTO struct {
	User             string    `json:"user"`
	TotalXP          uint32    `json:"total_xp"`
	Balance          uint64    `json:"balance"`
	Level            uint32    `json:"level"`
	XPToNextLevel    uint64    `json:"xp_to_next_level"`
	Season           uint32    `json:"season"`
	SeasonXP         uint32    `json:"season_xp"`
	XPEarnedToday    uint32    `json:"xp_earned_today"`
	DailyXPRemaining uint32    `json:"daily_xp_remaining"`
	CurrentStreak    uint32    `json:"current_streak"`
	LongestStreak    uint32    `json:"longest_streak"`
	StreakFreezes    uint32    `json:"streak_freezes"`
	AchievementCount uint32    `json:"achievement_count"`
	CoursesCompleted uint32    `json:"courses_completed"`
	ReferredBy       string    `json:"referred_by,omitempty"`
	ReferralCount    uint32    `json:"referral_count"`
	LastActivity     time.Time `json:"last_activity"`
	CreatedAt        time.Time `json:"created_at"`
}

// GetLearnerHandler читает профили.
type GetLearnerHandler struct {
	uow      store.UnitOfWork
	clock    timeutil.Clock
	dailyCap uint32
}

// NewGetLearnerHandler создаёт обработчик. dailyCap нужен для расчёта
// оставшегося на сегодня XP.
func NewGetLearnerHandler(uow store.UnitOfWork, clock timeutil.Clock, dailyCap uint32) *GetLearnerHandler {
	if clock == nil {
		clock = timeutil.SystemClock{}
	}
	if dailyCap == 0 {
		dailyCap = learner.DefaultDailyXPCap
	}
	return &GetLearnerHandler{uow: uow, clock: clock, dailyCap: dailyCap}
}

// Handle возвращает профиль вместе с балансом токена.
func (h *GetLearnerHandler) Handle(ctx context.Context, user shared.Address) (*LearnerProfileDTO, error) {
	if !user.IsValid() {
		return nil, shared.ErrInvalidAddress.Withf("learner %q", user)
	}

	var dto *LearnerProfileDTO
	err := h.uow.View(ctx, func(ctx context.Context, tx store.Tx) error {
		cfg, err := tx.Config().Get(ctx)
		if err != nil {
			return err
		}
		p, err := tx.Learners().Get(ctx, user)
		if err != nil {
			return err
		}
		bal, err := tx.Balances().Balance(ctx, token.AccountRef{Mint: cfg.XPMint, Owner: user})
		if err != nil {
			return err
		}
		dto = h.toDTO(p, bal, cfg.CurrentSeason)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return dto, nil
}

// toDTO показывает значения так, как их увидит следующее начисление:
// дневной счётчик и сезонный XP обнуляются лениво.
func (h *GetLearnerHandler) toDTO(p *learner.Profile, balance uint64, season uint32) *LearnerProfileDTO {
	level := p.Level()
	earned := p.XPEarnedToday
	if !timeutil.IsSameDay(p.LastActivity, h.clock.Now()) {
		earned = 0
	}
	seasonXP := p.SeasonXP
	if p.Season != season {
		seasonXP = 0
	}
	var remaining uint32
	if earned < h.dailyCap {
		remaining = h.dailyCap - earned
	}

	dto := &LearnerProfileDTO{
		User:             p.User.String(),
		TotalXP:          p.TotalXP,
		Balance:          balance,
		Level:            uint32(level),
		XPToNextLevel:    shared.XPForLevel(level+1) - uint64(p.TotalXP),
		Season:           season,
		SeasonXP:         seasonXP,
		XPEarnedToday:    earned,
		DailyXPRemaining: remaining,
		CurrentStreak:    p.CurrentStreak,
		LongestStreak:    p.LongestStreak,
		StreakFreezes:    p.StreakFreezes,
		AchievementCount: p.AchievementCount,
		CoursesCompleted: p.CoursesCompleted,
		ReferralCount:    p.ReferralCount,
		LastActivity:     p.LastActivity,
		CreatedAt:        p.CreatedAt,
	}
	if p.ReferredBy != nil {
		dto.ReferredBy = p.ReferredBy.String()
	}
	return dto
}

// ══════════════════════════════════════════════════════════════════════════════
// ENROLLMENT PROGRESS
// ══════════════════════════════════════════════════════════════════════════════

// ProgressDTO - прогресс по одному курсу.
type ProgressDTO struct {
	CourseID         string     `json:"course_id"`
	Learner          string     `json:"learner"`
	Status           string     `json:"status"`
	LessonCount      uint32     `json:"lesson_count"`
	LessonsCompleted uint32     `json:"lessons_completed"`
	CompletedLessons []uint32   `json:"completed_lessons"`
	Percent          float64    `json:"percent"`
	EnrolledAt       time.Time  `json:"enrolled_at"`
	CompletedAt      *time.Time `json:"completed_at,omitempty"`
	CredentialAsset  string     `json:"credential_asset,omitempty"`
}

// GetProgressHandler читает записи о зачислении.
type GetProgressHandler struct {
	uow store.UnitOfWork
}

// NewGetProgressHandler создаёт обработчик.
func NewGetProgressHandler(uow store.UnitOfWork) *GetProgressHandler {
	return &GetProgressHandler{uow: uow}
}

// Handle возвращает прогресс learner по courseID.
func (h *GetProgressHandler) Handle(ctx context.Context, courseID string, who shared.Address) (*ProgressDTO, error) {
	var dto *ProgressDTO
	err := h.uow.View(ctx, func(ctx context.Context, tx store.Tx) error {
		e, err := tx.Enrollments().Get(ctx, courseID, who)
		if err != nil {
			return err
		}
		c, err := tx.Courses().Get(ctx, courseID)
		if err != nil {
			return err
		}
		dto = toProgressDTO(e, c.LessonCount)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return dto, nil
}

// ListForLearner возвращает все зачисления учащегося. Курсы, которых уже
// нет в каталоге, пропускаются.
func (h *GetProgressHandler) ListForLearner(ctx context.Context, who shared.Address) ([]ProgressDTO, error) {
	var out []ProgressDTO
	err := h.uow.View(ctx, func(ctx context.Context, tx store.Tx) error {
		list, err := tx.Enrollments().ListByLearner(ctx, who)
		if err != nil {
			return err
		}
		out = make([]ProgressDTO, 0, len(list))
		for _, e := range list {
			c, err := tx.Courses().Get(ctx, e.CourseID)
			if err != nil {
				if shared.IsNotFound(err) {
					continue
				}
				return err
			}
			out = append(out, *toProgressDTO(e, c.LessonCount))
		}
		return nil
	})
	return out, err
}

func toProgressDTO(e *enrollment.Enrollment, lessonCount uint32) *ProgressDTO {
	done := e.LessonsCompleted()
	dto := &ProgressDTO{
		CourseID:         e.CourseID,
		Learner:          e.Learner.String(),
		Status:           string(e.Status(lessonCount)),
		LessonCount:      lessonCount,
		LessonsCompleted: done,
		CompletedLessons: e.Lessons.Indices(),
		EnrolledAt:       e.EnrolledAt,
		CompletedAt:      e.CompletedAt,
	}
	if lessonCount > 0 {
		dto.Percent = float64(done) * 100 / float64(lessonCount)
	}
	if e.CredentialAsset != nil {
		dto.CredentialAsset = e.CredentialAsset.String()
	}
	return dto
}
