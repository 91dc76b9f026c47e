package command

import (
	"context"

	"github.com/alem-hub/academy-ledger/internal/domain/course"
	"github.com/alem-hub/academy-ledger/internal/domain/enrollment"
	"github.com/alem-hub/academy-ledger/internal/domain/governance"
	"github.com/alem-hub/academy-ledger/internal/domain/learner"
	"github.com/alem-hub/academy-ledger/internal/domain/shared"
	"github.com/alem-hub/academy-ledger/internal/domain/token"
)

// ══════════════════════════════════════════════════════════════════════════════
// ENROLL
// ══════════════════════════════════════════════════════════════════════════════

// EnrollCommand enrolls the caller in a course. When the course has a
// prerequisite, PrerequisiteCourseID must name it; the caller's enrollment
// in that course must be finalized.
type EnrollCommand struct {
	Caller               shared.Address
	CourseID             string
	PrerequisiteCourseID string
}

// Validate validates the command.
func (c EnrollCommand) Validate() error {
	if err := requireCaller(c.Caller); err != nil {
		return err
	}
	return course.ValidateID(c.CourseID)
}

// Enroll executes EnrollCommand. The learner profile is created on first
// enrollment.
func (l *Ledger) Enroll(ctx context.Context, cmd EnrollCommand) (*enrollment.Enrollment, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}

	var out *enrollment.Enrollment
	_, err := l.execute(ctx, "Enroll", cmd.Caller, func(ctx context.Context, tc *txContext) error {
		cfg, err := l.loadConfig(ctx, tc)
		if err != nil {
			return err
		}
		c, err := tc.tx.Courses().Get(ctx, cmd.CourseID)
		if err != nil {
			return err
		}
		if err := c.RequireActive(); err != nil {
			return err
		}
		if err := l.checkPrerequisite(ctx, tc, c, cmd); err != nil {
			return err
		}
		if _, err := l.ensureProfile(ctx, tc, cfg, cmd.Caller); err != nil {
			return err
		}

		e := enrollment.New(c.CourseID, cmd.Caller, tc.now)
		if err := tc.tx.Enrollments().Create(ctx, e); err != nil {
			return err
		}
		tc.emit(shared.EnrolledEvent{
			BaseEvent: tc.base(shared.EventEnrolled, e.Key()),
			CourseID:  e.CourseID,
			Learner:   e.Learner,
		})
		out = e
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (l *Ledger) checkPrerequisite(ctx context.Context, tc *txContext, c *course.Course, cmd EnrollCommand) error {
	if c.Prerequisite == "" {
		if cmd.PrerequisiteCourseID != "" {
			return shared.ErrPrerequisiteMismatch.Withf("course %q has no prerequisite", c.CourseID)
		}
		return nil
	}
	if cmd.PrerequisiteCourseID != c.Prerequisite {
		return shared.ErrPrerequisiteMismatch.Withf("course %q requires %q, got %q", c.CourseID, c.Prerequisite, cmd.PrerequisiteCourseID)
	}
	pre, err := tc.tx.Enrollments().Get(ctx, c.Prerequisite, cmd.Caller)
	if err != nil {
		if shared.IsNotFound(err) {
			return shared.ErrPrerequisiteNotMet.Withf("not enrolled in %q", c.Prerequisite)
		}
		return err
	}
	if pre.Learner != cmd.Caller || pre.CourseID != c.Prerequisite {
		return shared.ErrPrerequisiteMismatch
	}
	if !pre.IsFinalized() {
		return shared.ErrPrerequisiteNotMet.Withf("%q is not finalized", c.Prerequisite)
	}
	return nil
}

// ensureProfile returns the learner's profile, creating it when absent.
func (l *Ledger) ensureProfile(ctx context.Context, tc *txContext, cfg *governance.Config, user shared.Address) (*learner.Profile, error) {
	p, err := tc.tx.Learners().Get(ctx, user)
	if err == nil {
		return p, nil
	}
	if !shared.IsNotFound(err) {
		return nil, err
	}
	p, err = learner.New(user, cfg.CurrentSeason, tc.now)
	if err != nil {
		return nil, err
	}
	if err := tc.tx.Learners().Create(ctx, p); err != nil {
		return nil, err
	}
	tc.emit(shared.LearnerInitializedEvent{
		BaseEvent: tc.base(shared.EventLearnerInitialized, user.String()),
		Learner:   user,
		Season:    p.Season,
	})
	return p, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// CLOSE ENROLLMENT
// ══════════════════════════════════════════════════════════════════════════════

// CloseEnrollmentCommand removes the caller's enrollment.
type CloseEnrollmentCommand struct {
	Caller   shared.Address
	CourseID string
}

// CloseEnrollment executes CloseEnrollmentCommand. Finalized enrollments
// close at once; others only after the cooldown.
func (l *Ledger) CloseEnrollment(ctx context.Context, cmd CloseEnrollmentCommand) error {
	if err := requireCaller(cmd.Caller); err != nil {
		return err
	}
	if err := course.ValidateID(cmd.CourseID); err != nil {
		return err
	}

	_, err := l.execute(ctx, "CloseEnrollment", cmd.Caller, func(ctx context.Context, tc *txContext) error {
		e, err := tc.tx.Enrollments().Get(ctx, cmd.CourseID, cmd.Caller)
		if err != nil {
			return err
		}
		if e.Learner != cmd.Caller {
			return shared.ErrNotEnrollmentOwner
		}
		if err := e.CanClose(tc.now, l.rules.CloseCooldown); err != nil {
			return err
		}
		if err := tc.tx.Enrollments().Delete(ctx, e.CourseID, e.Learner); err != nil {
			return err
		}
		tc.emit(shared.EnrollmentClosedEvent{
			BaseEvent: tc.base(shared.EventEnrollmentClosed, e.Key()),
			CourseID:  e.CourseID,
			Learner:   e.Learner,
			Completed: e.IsFinalized(),
		})
		return nil
	})
	return err
}

// ══════════════════════════════════════════════════════════════════════════════
// COMPLETE LESSON
// ══════════════════════════════════════════════════════════════════════════════

// CompleteLessonCommand records one lesson for a learner. Backend signer only.
type CompleteLessonCommand struct {
	Caller      shared.Address
	Learner     shared.Address
	CourseID    string
	LessonIndex uint32
}

// Validate validates the command.
func (c CompleteLessonCommand) Validate() error {
	if err := requireCaller(c.Caller); err != nil {
		return err
	}
	if !c.Learner.IsValid() {
		return shared.ErrInvalidAddress.Withf("learner %q", c.Learner)
	}
	return course.ValidateID(c.CourseID)
}

// CompleteLessonResult describes the credit.
type CompleteLessonResult struct {
	Result
	XPEarned         uint32
	LessonsCompleted uint32
	LessonCount      uint32
	Credit           learner.CreditResult
}

// CompleteLesson executes CompleteLessonCommand. A lesson can be completed
// only once; the repeat fails and changes nothing.
func (l *Ledger) CompleteLesson(ctx context.Context, cmd CompleteLessonCommand) (*CompleteLessonResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}

	res := &CompleteLessonResult{}
	events, err := l.execute(ctx, "CompleteLesson", cmd.Caller, func(ctx context.Context, tc *txContext) error {
		cfg, err := l.loadConfig(ctx, tc)
		if err != nil {
			return err
		}
		if err := cfg.RequireBackendSigner(cmd.Caller); err != nil {
			return err
		}
		c, err := tc.tx.Courses().Get(ctx, cmd.CourseID)
		if err != nil {
			return err
		}
		e, err := tc.tx.Enrollments().Get(ctx, cmd.CourseID, cmd.Learner)
		if err != nil {
			return err
		}
		profile, err := tc.tx.Learners().Get(ctx, cmd.Learner)
		if err != nil {
			return err
		}

		if err := e.CompleteLesson(cmd.LessonIndex, c.LessonCount); err != nil {
			return err
		}
		credit, err := l.creditActivity(ctx, tc, cfg, profile, c.XPPerLesson, token.ReasonLesson)
		if err != nil {
			return err
		}
		if err := tc.tx.Enrollments().Update(ctx, e); err != nil {
			return err
		}
		if err := tc.tx.Learners().Update(ctx, profile); err != nil {
			return err
		}

		tc.emit(shared.LessonCompletedEvent{
			BaseEvent:        tc.base(shared.EventLessonCompleted, e.Key()),
			CourseID:         c.CourseID,
			Learner:          cmd.Learner,
			LessonIndex:      cmd.LessonIndex,
			XPEarned:         c.XPPerLesson,
			LessonsCompleted: e.LessonsCompleted(),
			CurrentStreak:    profile.CurrentStreak,
		})
		res.XPEarned = c.XPPerLesson
		res.LessonsCompleted = e.LessonsCompleted()
		res.LessonCount = c.LessonCount
		res.Credit = credit
		return nil
	})
	if err != nil {
		return nil, err
	}
	res.Events = events
	return res, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// FINALIZE COURSE
// ══════════════════════════════════════════════════════════════════════════════

// FinalizeCourseCommand closes out a fully completed course. Backend signer only.
type FinalizeCourseCommand struct {
	Caller   shared.Address
	Learner  shared.Address
	CourseID string
}

// FinalizeCourseResult describes the payouts.
type FinalizeCourseResult struct {
	Result
	BaseXP          uint32
	BonusXP         uint32
	CreatorRewardXP uint32
	CompletionCount uint32
}

// FinalizeCourse executes FinalizeCourseCommand: the learner receives half
// the course's base XP as a bonus, and the creator is paid once the course
// has enough completions.
func (l *Ledger) FinalizeCourse(ctx context.Context, cmd FinalizeCourseCommand) (*FinalizeCourseResult, error) {
	if err := (CompleteLessonCommand{Caller: cmd.Caller, Learner: cmd.Learner, CourseID: cmd.CourseID}).Validate(); err != nil {
		return nil, err
	}

	res := &FinalizeCourseResult{}
	events, err := l.execute(ctx, "FinalizeCourse", cmd.Caller, func(ctx context.Context, tc *txContext) error {
		cfg, err := l.loadConfig(ctx, tc)
		if err != nil {
			return err
		}
		if err := cfg.RequireBackendSigner(cmd.Caller); err != nil {
			return err
		}
		c, err := tc.tx.Courses().Get(ctx, cmd.CourseID)
		if err != nil {
			return err
		}
		e, err := tc.tx.Enrollments().Get(ctx, cmd.CourseID, cmd.Learner)
		if err != nil {
			return err
		}
		profile, err := tc.tx.Learners().Get(ctx, cmd.Learner)
		if err != nil {
			return err
		}

		if err := e.Finalize(c.LessonCount, tc.now); err != nil {
			return err
		}
		base, err := c.BaseXP()
		if err != nil {
			return err
		}
		bonus := base / 2
		if _, err := l.creditActivity(ctx, tc, cfg, profile, bonus, token.ReasonCourseBonus); err != nil {
			return err
		}
		if err := profile.RecordCourseCompleted(); err != nil {
			return err
		}
		rewardDue, err := c.RecordCompletion(tc.now)
		if err != nil {
			return err
		}
		var creatorReward uint32
		if rewardDue {
			creatorReward = c.CreatorRewardXP
			if err := l.creditToken(ctx, tc, cfg, c.Creator, uint64(creatorReward), token.ReasonCreatorReward); err != nil {
				return err
			}
		}

		if err := tc.tx.Enrollments().Update(ctx, e); err != nil {
			return err
		}
		if err := tc.tx.Learners().Update(ctx, profile); err != nil {
			return err
		}
		if err := tc.tx.Courses().Update(ctx, c); err != nil {
			return err
		}

		tc.emit(shared.CourseFinalizedEvent{
			BaseEvent:        tc.base(shared.EventCourseFinalized, e.Key()),
			CourseID:         c.CourseID,
			Learner:          cmd.Learner,
			BaseXP:           base,
			BonusXP:          bonus,
			Creator:          c.Creator,
			CreatorRewardXP:  creatorReward,
			CompletionCount:  c.CompletionCount,
			CoursesCompleted: profile.CoursesCompleted,
		})
		res.BaseXP = base
		res.BonusXP = bonus
		res.CreatorRewardXP = creatorReward
		res.CompletionCount = c.CompletionCount
		return nil
	})
	if err != nil {
		return nil, err
	}
	res.Events = events
	return res, nil
}
