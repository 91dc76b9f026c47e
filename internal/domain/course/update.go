package course

import (
	"time"

	"github.com/alem-hub/academy-ledger/internal/domain/shared"
)

// Update is a change-set: only non-nil fields are applied. Identity,
// lesson count and completion count are not updatable.
type Update struct {
	ContentRef              *string
	IsActive                *bool
	XPPerLesson             *uint32
	CreatorRewardXP         *uint32
	MinCompletionsForReward *uint32
}

// Fields lists the names of the present fields.
func (u Update) Fields() []string {
	var out []string
	if u.ContentRef != nil {
		out = append(out, "content_ref")
	}
	if u.IsActive != nil {
		out = append(out, "is_active")
	}
	if u.XPPerLesson != nil {
		out = append(out, "xp_per_lesson")
	}
	if u.CreatorRewardXP != nil {
		out = append(out, "creator_reward_xp")
	}
	if u.MinCompletionsForReward != nil {
		out = append(out, "min_completions_for_reward")
	}
	return out
}

// Apply validates the whole change-set before touching c.
func (c *Course) Apply(u Update, now time.Time) error {
	if len(u.Fields()) == 0 {
		return shared.ErrEmptyCourseUpdate
	}
	if u.ContentRef != nil && len(*u.ContentRef) > MaxContentRefLength {
		return shared.ErrInvalidContentRef
	}

	if u.ContentRef != nil {
		c.ContentRef = *u.ContentRef
	}
	if u.IsActive != nil {
		c.IsActive = *u.IsActive
	}
	if u.XPPerLesson != nil {
		c.XPPerLesson = *u.XPPerLesson
	}
	if u.CreatorRewardXP != nil {
		c.CreatorRewardXP = *u.CreatorRewardXP
	}
	if u.MinCompletionsForReward != nil {
		c.MinCompletionsForReward = *u.MinCompletionsForReward
	}
	c.UpdatedAt = now
	return nil
}
