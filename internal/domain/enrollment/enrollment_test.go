package enrollment

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/alem-hub/academy-ledger/internal/domain/shared"
)

var now = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func TestCompleteLesson(t *testing.T) {
	e := New("rust-101", "alice", now)

	require.NoError(t, e.CompleteLesson(0, 3))
	assert.True(t, e.IsLessonComplete(0))
	assert.False(t, e.IsLessonComplete(1))
	assert.False(t, e.IsLessonComplete(999))

	err := e.CompleteLesson(0, 3)
	assert.ErrorIs(t, err, shared.ErrLessonAlreadyCompleted)
	assert.ErrorIs(t, err, shared.ErrStateConflict)

	err = e.CompleteLesson(3, 3)
	assert.ErrorIs(t, err, shared.ErrInvalidLessonIndex)
	assert.ErrorIs(t, err, shared.ErrValidation)
	assert.Equal(t, uint32(1), e.LessonsCompleted())
}

func TestFinalize(t *testing.T) {
	e := New("rust-101", "alice", now)
	require.NoError(t, e.CompleteLesson(0, 2))

	assert.ErrorIs(t, e.Finalize(2, now), shared.ErrCourseNotCompleted)
	assert.Equal(t, StatusInProgress, e.Status(2))

	require.NoError(t, e.CompleteLesson(1, 2))
	assert.Equal(t, StatusCompleted, e.Status(2))
	require.NoError(t, e.Finalize(2, now))
	assert.Equal(t, StatusFinalized, e.Status(2))

	assert.ErrorIs(t, e.Finalize(2, now), shared.ErrCourseAlreadyFinalized)
}

func TestCanClose(t *testing.T) {
	e := New("rust-101", "alice", now)

	assert.ErrorIs(t, e.CanClose(now.Add(23*time.Hour), DefaultCloseCooldown), shared.ErrUnenrollCooldown)
	assert.NoError(t, e.CanClose(now.Add(24*time.Hour), DefaultCloseCooldown))

	require.NoError(t, e.CompleteLesson(0, 1))
	require.NoError(t, e.Finalize(1, now))
	assert.NoError(t, e.CanClose(now, DefaultCloseCooldown))
}

func TestCredentialLifecycle(t *testing.T) {
	e := New("rust-101", "alice", now)
	assert.ErrorIs(t, e.AttachCredential("asset-1"), shared.ErrCourseNotFinalized)

	require.NoError(t, e.CompleteLesson(0, 1))
	require.NoError(t, e.Finalize(1, now))
	assert.ErrorIs(t, e.VerifyCredential("asset-1"), shared.ErrCredentialNotIssued)

	require.NoError(t, e.AttachCredential("asset-1"))
	assert.ErrorIs(t, e.AttachCredential("asset-2"), shared.ErrCredentialAlreadyIssued)
	assert.NoError(t, e.VerifyCredential("asset-1"))
	assert.ErrorIs(t, e.VerifyCredential("asset-2"), shared.ErrCrossReference)
}

func TestCloneIsIndependent(t *testing.T) {
	e := New("rust-101", "alice", now)
	require.NoError(t, e.CompleteLesson(0, 1))
	require.NoError(t, e.Finalize(1, now))

	cp := e.Clone()
	*cp.CompletedAt = now.Add(time.Hour)
	require.NoError(t, cp.AttachCredential("asset"))

	assert.Equal(t, now, *e.CompletedAt)
	assert.Nil(t, e.CredentialAsset)
	assert.Equal(t, e.Key(), cp.Key())
}

func TestLessonBitsNeverRevert(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		lessonCount := rapid.Uint32Range(1, 256).Draw(t, "lessonCount")
		e := New("c", "alice", now)
		done := map[uint32]bool{}

		for _, idx := range rapid.SliceOf(rapid.Uint32Range(0, 300)).Draw(t, "indices") {
			before := e.LessonsCompleted()
			err := e.CompleteLesson(idx, lessonCount)
			switch {
			case idx >= lessonCount:
				require.ErrorIs(t, err, shared.ErrValidation)
				require.Equal(t, before, e.LessonsCompleted())
			case done[idx]:
				require.ErrorIs(t, err, shared.ErrLessonAlreadyCompleted)
				require.Equal(t, before, e.LessonsCompleted())
			default:
				require.NoError(t, err)
				done[idx] = true
			}
			for i := range done {
				require.True(t, e.IsLessonComplete(i))
			}
		}
		require.Equal(t, uint32(len(done)), e.LessonsCompleted())
		require.Equal(t, uint32(len(done)) == lessonCount, e.Status(lessonCount) == StatusCompleted)
	})
}
