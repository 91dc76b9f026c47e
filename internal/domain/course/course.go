// Package course models the course catalog: definitions, activation and
// completion accounting.
package course

import (
	"time"
	"unicode/utf8"

	"github.com/alem-hub/academy-ledger/internal/domain/shared"
	"github.com/alem-hub/academy-ledger/pkg/bitset"
)

const (
	// MaxIDLength bounds course identifiers.
	MaxIDLength = 64

	// MaxContentRefLength bounds the content reference (e.g. an archive tx id).
	MaxContentRefLength = 64

	// MaxLessons is the lesson capacity of a course.
	MaxLessons = bitset.Capacity
)

// Difficulty is an informational rating.
type Difficulty uint8

const (
	DifficultyBeginner Difficulty = iota + 1
	DifficultyIntermediate
	DifficultyAdvanced
)

// Course is a catalog entry. CourseID and LessonCount never change after
// creation; CompletionCount only grows.
type Course struct {
	CourseID                string
	Creator                 shared.Address
	ContentRef              string
	LessonCount             uint32
	XPPerLesson             uint32
	Difficulty              Difficulty
	TrackID                 uint32
	TrackLevel              uint32
	Prerequisite            string
	CreatorRewardXP         uint32
	MinCompletionsForReward uint32
	CompletionCount         uint32
	IsActive                bool
	CreatedAt               time.Time
	UpdatedAt               time.Time
}

// Params are the creation inputs.
type Params struct {
	CourseID                string
	Creator                 shared.Address
	ContentRef              string
	LessonCount             uint32
	XPPerLesson             uint32
	Difficulty              Difficulty
	TrackID                 uint32
	TrackLevel              uint32
	Prerequisite            string
	CreatorRewardXP         uint32
	MinCompletionsForReward uint32
}

// ValidateID checks the course identifier format.
func ValidateID(id string) error {
	if id == "" || utf8.RuneCountInString(id) > MaxIDLength {
		return shared.ErrInvalidCourseID.Withf("%q", id)
	}
	return nil
}

// Validate checks the inputs that do not need storage access. Prerequisite
// existence is checked by the caller.
func (p Params) Validate() error {
	if err := ValidateID(p.CourseID); err != nil {
		return err
	}
	if !p.Creator.IsValid() {
		return shared.ErrInvalidAddress.Withf("creator %q", p.Creator)
	}
	if p.LessonCount == 0 || p.LessonCount > MaxLessons {
		return shared.ErrInvalidLessonCount.Withf("got %d", p.LessonCount)
	}
	if len(p.ContentRef) > MaxContentRefLength {
		return shared.ErrInvalidContentRef
	}
	if p.TrackLevel > 255 {
		return shared.ErrInvalidTrack
	}
	if p.Prerequisite != "" {
		if err := ValidateID(p.Prerequisite); err != nil {
			return err
		}
		if p.Prerequisite == p.CourseID {
			return shared.ErrInvalidPrerequisite.Withf("course %q cannot require itself", p.CourseID)
		}
	}
	return nil
}

// New creates an active course with zero completions.
func New(p Params, now time.Time) (*Course, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return &Course{
		CourseID:                p.CourseID,
		Creator:                 p.Creator,
		ContentRef:              p.ContentRef,
		LessonCount:             p.LessonCount,
		XPPerLesson:             p.XPPerLesson,
		Difficulty:              p.Difficulty,
		TrackID:                 p.TrackID,
		TrackLevel:              p.TrackLevel,
		Prerequisite:            p.Prerequisite,
		CreatorRewardXP:         p.CreatorRewardXP,
		MinCompletionsForReward: p.MinCompletionsForReward,
		IsActive:                true,
		CreatedAt:               now,
		UpdatedAt:               now,
	}, nil
}

// RequireActive fails for deactivated courses.
func (c *Course) RequireActive() error {
	if !c.IsActive {
		return shared.ErrCourseNotActive.Withf("%q", c.CourseID)
	}
	return nil
}

// BaseXP is xp_per_lesson × lesson_count, checked.
func (c *Course) BaseXP() (uint32, error) {
	v, ok := shared.MulU32(c.XPPerLesson, c.LessonCount)
	if !ok {
		return 0, shared.Overflow("course", "BaseXP", "base xp")
	}
	return v, nil
}

// CompletionBonus is half the base XP, rounded down.
func (c *Course) CompletionBonus() (uint32, error) {
	base, err := c.BaseXP()
	if err != nil {
		return 0, err
	}
	return base / 2, nil
}

// FitsDailyCap checks that a single lesson credit and the completion bonus
// can each be paid within one day's XP cap.
func (c *Course) FitsDailyCap(dailyCap uint32) error {
	if c.XPPerLesson > dailyCap {
		return shared.ErrCourseXPOverCap.Withf("xp per lesson %d > %d", c.XPPerLesson, dailyCap)
	}
	bonus, err := c.CompletionBonus()
	if err != nil {
		return err
	}
	if bonus > dailyCap {
		return shared.ErrCourseXPOverCap.Withf("completion bonus %d > %d", bonus, dailyCap)
	}
	return nil
}

// RecordCompletion increments the completion count and reports whether the
// creator reward is due for this completion. Once the threshold is reached
// every later completion pays the creator again.
func (c *Course) RecordCompletion(now time.Time) (rewardDue bool, err error) {
	n, ok := shared.AddU32(c.CompletionCount, 1)
	if !ok {
		return false, shared.Overflow("course", "RecordCompletion", "completion count")
	}
	c.CompletionCount = n
	c.UpdatedAt = now
	return c.CreatorRewardXP > 0 && n >= c.MinCompletionsForReward, nil
}

// Clone returns a deep copy.
func (c *Course) Clone() *Course {
	cp := *c
	return &cp
}
