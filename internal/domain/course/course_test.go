package course

import (
	"math"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alem-hub/academy-ledger/internal/domain/shared"
)

var now = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func validParams() Params {
	return Params{
		CourseID:    "rust-101",
		Creator:     "creator",
		LessonCount: 3,
		XPPerLesson: 100,
	}
}

func TestNewCourse(t *testing.T) {
	c, err := New(validParams(), now)
	require.NoError(t, err)

	assert.True(t, c.IsActive)
	assert.Zero(t, c.CompletionCount)
	bonus, err := c.CompletionBonus()
	require.NoError(t, err)
	assert.Equal(t, uint32(150), bonus)
}

func TestParamsValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Params)
		want   error
	}{
		{"empty id", func(p *Params) { p.CourseID = "" }, shared.ErrInvalidCourseID},
		{"long id", func(p *Params) { p.CourseID = strings.Repeat("a", 65) }, shared.ErrInvalidCourseID},
		{"zero lessons", func(p *Params) { p.LessonCount = 0 }, shared.ErrInvalidLessonCount},
		{"too many lessons", func(p *Params) { p.LessonCount = 257 }, shared.ErrInvalidLessonCount},
		{"self prerequisite", func(p *Params) { p.Prerequisite = p.CourseID }, shared.ErrInvalidPrerequisite},
		{"bad creator", func(p *Params) { p.Creator = "" }, shared.ErrInvalidAddress},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := validParams()
			tt.mutate(&p)
			assert.ErrorIs(t, p.Validate(), tt.want)
		})
	}

	p := validParams()
	p.CourseID = strings.Repeat("a", 64)
	p.LessonCount = 256
	assert.NoError(t, p.Validate())
}

func TestApplyOnlyTouchesPresentFields(t *testing.T) {
	c, err := New(validParams(), now)
	require.NoError(t, err)
	c.CompletionCount = 7

	inactive := false
	require.NoError(t, c.Apply(Update{IsActive: &inactive}, now.Add(time.Hour)))

	assert.False(t, c.IsActive)
	assert.Equal(t, uint32(100), c.XPPerLesson)
	assert.Equal(t, uint32(7), c.CompletionCount)
	assert.ErrorIs(t, c.RequireActive(), shared.ErrCourseNotActive)

	assert.ErrorIs(t, c.Apply(Update{}, now), shared.ErrValidation)
}

func TestRecordCompletionThreshold(t *testing.T) {
	p := validParams()
	p.CreatorRewardXP = 50
	p.MinCompletionsForReward = 2
	c, err := New(p, now)
	require.NoError(t, err)

	due, err := c.RecordCompletion(now)
	require.NoError(t, err)
	assert.False(t, due)

	for i := 0; i < 3; i++ {
		due, err = c.RecordCompletion(now)
		require.NoError(t, err)
		assert.True(t, due)
	}
	assert.Equal(t, uint32(4), c.CompletionCount)
}

func TestBaseXPOverflow(t *testing.T) {
	p := validParams()
	p.XPPerLesson = math.MaxUint32
	c, err := New(p, now)
	require.NoError(t, err)

	_, err = c.BaseXP()
	assert.ErrorIs(t, err, shared.ErrArithmetic)
}

func TestFitsDailyCap(t *testing.T) {
	tests := []struct {
		name        string
		lessons     uint32
		xpPerLesson uint32
		want        error
	}{
		{"within cap", 3, 100, nil},
		{"bonus exactly at cap", 4, 1000, nil},
		{"lesson over cap", 1, 2001, shared.ErrCourseXPOverCap},
		{"bonus over cap", 5, 1500, shared.ErrCourseXPOverCap},
		{"huge lesson", 2, math.MaxUint32, shared.ErrCourseXPOverCap},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := validParams()
			p.LessonCount, p.XPPerLesson = tt.lessons, tt.xpPerLesson
			c, err := New(p, now)
			require.NoError(t, err)

			err = c.FitsDailyCap(2000)
			if tt.want == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.want)
			assert.ErrorIs(t, err, shared.ErrValidation)
		})
	}

	p := validParams()
	p.LessonCount, p.XPPerLesson = 256, math.MaxUint32/200
	c, err := New(p, now)
	require.NoError(t, err)
	assert.ErrorIs(t, c.FitsDailyCap(math.MaxUint32), shared.ErrArithmetic)
}
