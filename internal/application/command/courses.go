package command

import (
	"context"

	"github.com/alem-hub/academy-ledger/internal/domain/course"
	"github.com/alem-hub/academy-ledger/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// CREATE COURSE
// ══════════════════════════════════════════════════════════════════════════════

// CreateCourseCommand adds a course to the catalog. An empty Creator
// defaults to the caller.
type CreateCourseCommand struct {
	Caller shared.Address
	course.Params
}

// Validate validates the command.
func (c *CreateCourseCommand) Validate() error {
	if err := requireCaller(c.Caller); err != nil {
		return err
	}
	if c.Creator == "" {
		c.Creator = c.Caller
	}
	return c.Params.Validate()
}

// CreateCourse executes CreateCourseCommand. Authority only.
func (l *Ledger) CreateCourse(ctx context.Context, cmd CreateCourseCommand) (*course.Course, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}

	var out *course.Course
	_, err := l.execute(ctx, "CreateCourse", cmd.Caller, func(ctx context.Context, tc *txContext) error {
		cfg, err := l.loadConfig(ctx, tc)
		if err != nil {
			return err
		}
		if err := cfg.RequireAuthority(cmd.Caller); err != nil {
			return err
		}
		if cmd.Prerequisite != "" {
			if _, err := tc.tx.Courses().Get(ctx, cmd.Prerequisite); err != nil {
				if shared.IsNotFound(err) {
					return shared.ErrInvalidPrerequisite.Withf("%q does not exist", cmd.Prerequisite)
				}
				return err
			}
		}

		c, err := course.New(cmd.Params, tc.now)
		if err != nil {
			return err
		}
		if err := c.FitsDailyCap(l.rules.DailyXPCap); err != nil {
			return err
		}
		if err := tc.tx.Courses().Create(ctx, c); err != nil {
			return err
		}
		tc.emit(shared.CourseCreatedEvent{
			BaseEvent:    tc.base(shared.EventCourseCreated, c.CourseID),
			CourseID:     c.CourseID,
			Creator:      c.Creator,
			LessonCount:  c.LessonCount,
			XPPerLesson:  c.XPPerLesson,
			Prerequisite: c.Prerequisite,
		})
		out = c
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// UPDATE COURSE
// ══════════════════════════════════════════════════════════════════════════════

// UpdateCourseCommand applies a partial change-set.
type UpdateCourseCommand struct {
	Caller   shared.Address
	CourseID string
	Update   course.Update
}

// Validate validates the command.
func (c UpdateCourseCommand) Validate() error {
	if err := requireCaller(c.Caller); err != nil {
		return err
	}
	if err := course.ValidateID(c.CourseID); err != nil {
		return err
	}
	if len(c.Update.Fields()) == 0 {
		return shared.ErrEmptyCourseUpdate
	}
	return nil
}

// UpdateCourse executes UpdateCourseCommand. Authority only.
func (l *Ledger) UpdateCourse(ctx context.Context, cmd UpdateCourseCommand) (*course.Course, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}

	var out *course.Course
	_, err := l.execute(ctx, "UpdateCourse", cmd.Caller, func(ctx context.Context, tc *txContext) error {
		cfg, err := l.loadConfig(ctx, tc)
		if err != nil {
			return err
		}
		if err := cfg.RequireAuthority(cmd.Caller); err != nil {
			return err
		}
		c, err := tc.tx.Courses().Get(ctx, cmd.CourseID)
		if err != nil {
			return err
		}
		if err := c.Apply(cmd.Update, tc.now); err != nil {
			return err
		}
		if err := c.FitsDailyCap(l.rules.DailyXPCap); err != nil {
			return err
		}
		if err := tc.tx.Courses().Update(ctx, c); err != nil {
			return err
		}
		tc.emit(shared.CourseUpdatedEvent{
			BaseEvent:     tc.base(shared.EventCourseUpdated, c.CourseID),
			CourseID:      c.CourseID,
			ChangedFields: cmd.Update.Fields(),
			IsActive:      c.IsActive,
		})
		out = c
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
