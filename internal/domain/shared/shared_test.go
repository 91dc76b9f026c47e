package shared

import (
	"errors"
	"fmt"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testTime = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func TestDomainErrorMatchesKindAndCode(t *testing.T) {
	err := fmt.Errorf("complete lesson: %w", ErrLessonAlreadyCompleted)

	assert.ErrorIs(t, err, ErrStateConflict)
	assert.ErrorIs(t, err, ErrLessonAlreadyCompleted)
	assert.NotErrorIs(t, err, ErrValidation)
	assert.NotErrorIs(t, err, ErrCourseAlreadyFinalized)
	assert.Equal(t, ErrStateConflict, KindOf(err))
	assert.Equal(t, "lesson_already_completed", CodeOf(err))
}

func TestDerivedErrorsKeepIdentity(t *testing.T) {
	err := ErrInvalidLessonIndex.Withf("index %d >= %d", 9, 3)

	assert.ErrorIs(t, err, ErrInvalidLessonIndex)
	assert.ErrorIs(t, err, ErrValidation)
	assert.Contains(t, err.Error(), "index 9 >= 3")
}

func TestEveryKindIsDistinct(t *testing.T) {
	for i, a := range Kinds {
		for j, b := range Kinds {
			assert.Equal(t, i == j, errors.Is(a, b))
		}
	}
}

func TestIsNotFound(t *testing.T) {
	assert.True(t, IsNotFound(ErrCourseNotFound))
	assert.True(t, IsNotFound(fmt.Errorf("wrap: %w", ErrLearnerNotFound)))
	assert.False(t, IsNotFound(ErrMintMismatch))
	assert.False(t, IsNotFound(errors.New("plain")))
	assert.Nil(t, KindOf(errors.New("plain")))
}

func TestNewAddress(t *testing.T) {
	a, err := NewAddress(" alice ")
	require.NoError(t, err)
	assert.Equal(t, Address("alice"), a)

	_, err = NewAddress("has space")
	assert.ErrorIs(t, err, ErrValidation)
	_, err = NewAddress("")
	assert.ErrorIs(t, err, ErrInvalidAddress)
}

func TestDeriveKey(t *testing.T) {
	k := DeriveKey("receipt", "first-steps", "alice")
	assert.Len(t, k, 64)
	assert.Equal(t, k, DeriveKey("receipt", "first-steps", "alice"))
	assert.NotEqual(t, DeriveKey("receipt", "ab", "c"), DeriveKey("receipt", "a", "bc"))
	assert.True(t, DeriveAddress("credential", "x").IsValid())
}

func TestCheckedArithmetic(t *testing.T) {
	_, ok := AddU32(math.MaxUint32, 1)
	assert.False(t, ok)
	s, ok := AddU32(2, 3)
	assert.True(t, ok)
	assert.Equal(t, uint32(5), s)

	_, ok = MulU32(1<<16, 1<<16)
	assert.False(t, ok)
	p, ok := MulU32(100, 3)
	assert.True(t, ok)
	assert.Equal(t, uint32(300), p)

	_, ok = AddU64(math.MaxUint64, 1)
	assert.False(t, ok)
}

func TestLevelFor(t *testing.T) {
	cases := map[uint64]Level{0: 1, 99: 1, 100: 2, 399: 2, 400: 3, 900: 4, 10000: 11}
	for xp, want := range cases {
		assert.Equal(t, want, LevelFor(xp), "xp=%d", xp)
	}
	assert.Equal(t, uint64(400), XPForLevel(3))
	assert.Equal(t, Level(3), LevelFor(XPForLevel(3)))
}

func TestEventPayload(t *testing.T) {
	ev := LessonCompletedEvent{
		BaseEvent:   NewBaseEvent(EventLessonCompleted, "rust-101", testTime),
		CourseID:    "rust-101",
		Learner:     "alice",
		LessonIndex: 2,
		XPEarned:    100,
	}
	p := ev.Payload()

	assert.Equal(t, "enrollment.lesson_completed", p["type"])
	assert.Equal(t, "alice", p["learner"])
	assert.Equal(t, float64(2), p["lesson_index"])
	assert.NotEmpty(t, ev.EventID())
}
