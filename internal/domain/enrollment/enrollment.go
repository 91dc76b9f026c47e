// Package enrollment tracks a learner's progress through one course.
//
// Lifecycle:
//
//	enrolled (incomplete) → enrolled (all lessons done) → finalized → closed
//
// Lesson bits are only ever set, completed_at and credential_asset are
// each set at most once, and an incomplete enrollment can only be closed
// after the cooldown.
package enrollment

import (
	"context"
	"time"

	"github.com/alem-hub/academy-ledger/internal/domain/shared"
	"github.com/alem-hub/academy-ledger/pkg/bitset"
)

// DefaultCloseCooldown is the minimum age of an unfinished enrollment
// before its learner may close it.
const DefaultCloseCooldown = 24 * time.Hour

// Status is derived from the enrollment fields.
type Status string

const (
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusFinalized  Status = "finalized"
)

// Enrollment is unique per (course, learner).
type Enrollment struct {
	CourseID        string
	Learner         shared.Address
	Lessons         bitset.BitSet
	EnrolledAt      time.Time
	CompletedAt     *time.Time
	CredentialAsset *shared.Address
}

// New starts an empty enrollment.
func New(courseID string, learner shared.Address, now time.Time) *Enrollment {
	return &Enrollment{CourseID: courseID, Learner: learner, EnrolledAt: now}
}

// Key is the storage identity of an enrollment.
func Key(courseID string, learner shared.Address) string {
	return shared.DeriveKey("enrollment", courseID, learner.String())
}

// Key returns the storage identity of e.
func (e *Enrollment) Key() string { return Key(e.CourseID, e.Learner) }

// IsFinalized reports whether completed_at is set.
func (e *Enrollment) IsFinalized() bool { return e.CompletedAt != nil }

// LessonsCompleted counts set lesson bits.
func (e *Enrollment) LessonsCompleted() uint32 { return e.Lessons.Count() }

// IsLessonComplete reports whether lesson i is done. Out-of-range indices are
// simply not complete.
func (e *Enrollment) IsLessonComplete(i uint32) bool { return e.Lessons.IsSet(i) }

// Status derives the lifecycle state for a course with lessonCount lessons.
func (e *Enrollment) Status(lessonCount uint32) Status {
	switch {
	case e.IsFinalized():
		return StatusFinalized
	case e.Lessons.IsFull(lessonCount):
		return StatusCompleted
	}
	return StatusInProgress
}

// CompleteLesson marks lesson index done. It fails for indices outside
// the course and for lessons already completed.
func (e *Enrollment) CompleteLesson(index, lessonCount uint32) error {
	if index >= lessonCount {
		return shared.ErrInvalidLessonIndex.Withf("index %d, lesson count %d", index, lessonCount)
	}
	if e.Lessons.IsSet(index) {
		return shared.ErrLessonAlreadyCompleted.Withf("lesson %d", index)
	}
	if err := e.Lessons.Set(index); err != nil {
		return shared.ErrInvalidLessonIndex.With(err)
	}
	return nil
}

// Finalize stamps completed_at once every lesson is done.
func (e *Enrollment) Finalize(lessonCount uint32, now time.Time) error {
	if e.IsFinalized() {
		return shared.ErrCourseAlreadyFinalized
	}
	if !e.Lessons.IsFull(lessonCount) {
		return shared.ErrCourseNotCompleted.Withf("%d of %d lessons", e.Lessons.Count(), lessonCount)
	}
	t := now
	e.CompletedAt = &t
	return nil
}

// RequireFinalized fails unless the course was finalized.
func (e *Enrollment) RequireFinalized() error {
	if !e.IsFinalized() {
		return shared.ErrCourseNotFinalized
	}
	return nil
}

// CanClose fails while an unfinished enrollment is younger than cooldown.
func (e *Enrollment) CanClose(now time.Time, cooldown time.Duration) error {
	if e.IsFinalized() {
		return nil
	}
	if now.Sub(e.EnrolledAt) < cooldown {
		return shared.ErrUnenrollCooldown.Withf("enrolled at %s", e.EnrolledAt.UTC().Format(time.RFC3339))
	}
	return nil
}

// AttachCredential stores the credential asset. It can be set only once,
// and only after finalization.
func (e *Enrollment) AttachCredential(asset shared.Address) error {
	if err := e.RequireFinalized(); err != nil {
		return err
	}
	if e.CredentialAsset != nil {
		return shared.ErrCredentialAlreadyIssued
	}
	if !asset.IsValid() {
		return shared.ErrInvalidAddress.Withf("credential asset %q", asset)
	}
	a := asset
	e.CredentialAsset = &a
	return nil
}

// VerifyCredential checks that asset is the credential attached to e.
func (e *Enrollment) VerifyCredential(asset shared.Address) error {
	if err := e.RequireFinalized(); err != nil {
		return err
	}
	if e.CredentialAsset == nil {
		return shared.ErrCredentialNotIssued
	}
	if *e.CredentialAsset != asset {
		return shared.ErrCredentialMismatch.Withf("got %s", asset)
	}
	return nil
}

// Clone returns a deep copy.
func (e *Enrollment) Clone() *Enrollment {
	cp := *e
	if e.CompletedAt != nil {
		t := *e.CompletedAt
		cp.CompletedAt = &t
	}
	if e.CredentialAsset != nil {
		a := *e.CredentialAsset
		cp.CredentialAsset = &a
	}
	return &cp
}

// Repository persists enrollments.
type Repository interface {
	// Create returns ErrAlreadyEnrolled for an existing (course, learner) pair.
	Create(ctx context.Context, e *Enrollment) error

	// Get returns ErrEnrollmentNotFound.
	Get(ctx context.Context, courseID string, learner shared.Address) (*Enrollment, error)

	// Update returns ErrEnrollmentNotFound.
	Update(ctx context.Context, e *Enrollment) error

	// Delete returns ErrEnrollmentNotFound.
	Delete(ctx context.Context, courseID string, learner shared.Address) error

	// ListByLearner returns the learner's enrollments ordered by course id.
	ListByLearner(ctx context.Context, learner shared.Address) ([]*Enrollment, error)
}
