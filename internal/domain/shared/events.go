package shared

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// EventType represents the type of domain event.
type EventType string

// Every ledger transition emits at least one of these.
const (
	// Governance events
	EventLedgerInitialized EventType = "config.initialized"
	EventConfigUpdated     EventType = "config.updated"
	EventSeasonStarted     EventType = "config.season_started"

	// Course events
	EventCourseCreated EventType = "course.created"
	EventCourseUpdated EventType = "course.updated"

	// Enrollment events
	EventEnrolled           EventType = "enrollment.enrolled"
	EventEnrollmentClosed   EventType = "enrollment.closed"
	EventLessonCompleted    EventType = "enrollment.lesson_completed"
	EventCourseFinalized    EventType = "enrollment.course_finalized"
	EventCredentialIssued   EventType = "enrollment.credential_issued"
	EventCredentialUpgraded EventType = "enrollment.credential_upgraded"

	// Learner events
	EventLearnerInitialized  EventType = "learner.initialized"
	EventStreakFreezeAwarded EventType = "learner.streak_freeze_awarded"
	EventReferralRegistered  EventType = "learner.referral_registered"

	// Minter events
	EventMinterRegistered EventType = "minter.registered"
	EventMinterRevoked    EventType = "minter.revoked"
	EventXPRewarded       EventType = "minter.xp_rewarded"

	// Achievement events
	EventAchievementTypeCreated     EventType = "achievement.type_created"
	EventAchievementTypeDeactivated EventType = "achievement.type_deactivated"
	EventAchievementAwarded         EventType = "achievement.awarded"
	EventAchievementClaimed         EventType = "achievement.claimed"

	// Token events
	EventXPCredited EventType = "token.xp_credited"
)

// Event is the base interface for all domain events.
type Event interface {
	// EventID returns the unique id of this event instance.
	EventID() string

	// EventType returns the type of the event.
	EventType() EventType

	// OccurredAt returns when the event occurred.
	OccurredAt() time.Time

	// AggregateID returns the ID of the aggregate that produced this event.
	AggregateID() string

	// Payload returns the event data as a map for serialization.
	Payload() map[string]interface{}
}

// BaseEvent provides common event functionality.
type BaseEvent struct {
	ID            string    `json:"id"`
	Type          EventType `json:"type"`
	Timestamp     time.Time `json:"timestamp"`
	AggregateId   string    `json:"aggregate_id"`
	Version       int       `json:"version"`
	CorrelationID string    `json:"correlation_id,omitempty"`
}

// EventID implements Event interface.
func (e BaseEvent) EventID() string { return e.ID }

// EventType implements Event interface.
func (e BaseEvent) EventType() EventType { return e.Type }

// OccurredAt implements Event interface.
func (e BaseEvent) OccurredAt() time.Time { return e.Timestamp }

// AggregateID implements Event interface.
func (e BaseEvent) AggregateID() string { return e.AggregateId }

// NewBaseEvent creates a new base event stamped with the ledger time.
func NewBaseEvent(eventType EventType, aggregateID string, at time.Time) BaseEvent {
	return BaseEvent{
		ID:          uuid.NewString(),
		Type:        eventType,
		Timestamp:   at,
		AggregateId: aggregateID,
		Version:     1,
	}
}

// WithCorrelationID sets the correlation ID for tracing.
func (e BaseEvent) WithCorrelationID(id string) BaseEvent {
	e.CorrelationID = id
	return e
}

func payloadOf(v interface{}) map[string]interface{} {
	data, err := json.Marshal(v)
	if err != nil {
		return map[string]interface{}{"error": err.Error()}
	}
	var m map[string]interface{}
	if err := json.Unmarshal(data, &m); err != nil {
		return map[string]interface{}{"error": err.Error()}
	}
	return m
}

// ═══════════════════════════════════════════════════════════════════════════
// Governance Events
// ═══════════════════════════════════════════════════════════════════════════

// LedgerInitializedEvent is emitted once, when the global config is created.
type LedgerInitializedEvent struct {
	BaseEvent
	Authority     Address `json:"authority"`
	BackendSigner Address `json:"backend_signer"`
	XPMint        Address `json:"xp_mint"`
}

func (e LedgerInitializedEvent) Payload() map[string]interface{} { return payloadOf(e) }

// ConfigUpdatedEvent is emitted when the backend signer is rotated.
type ConfigUpdatedEvent struct {
	BaseEvent
	PreviousBackendSigner Address `json:"previous_backend_signer"`
	BackendSigner         Address `json:"backend_signer"`
}

func (e ConfigUpdatedEvent) Payload() map[string]interface{} { return payloadOf(e) }

// SeasonStartedEvent is emitted when the authority opens a new season.
type SeasonStartedEvent struct {
	BaseEvent
	Season uint32 `json:"season"`
}

func (e SeasonStartedEvent) Payload() map[string]interface{} { return payloadOf(e) }

// ═══════════════════════════════════════════════════════════════════════════
// Course Events
// ═══════════════════════════════════════════════════════════════════════════

// CourseCreatedEvent is emitted when a course is added to the catalog.
type CourseCreatedEvent struct {
	BaseEvent
	CourseID     string  `json:"course_id"`
	Creator      Address `json:"creator"`
	LessonCount  uint32  `json:"lesson_count"`
	XPPerLesson  uint32  `json:"xp_per_lesson"`
	Prerequisite string  `json:"prerequisite,omitempty"`
}

func (e CourseCreatedEvent) Payload() map[string]interface{} { return payloadOf(e) }

// CourseUpdatedEvent lists the fields that changed.
type CourseUpdatedEvent struct {
	BaseEvent
	CourseID      string   `json:"course_id"`
	ChangedFields []string `json:"changed_fields"`
	IsActive      bool     `json:"is_active"`
}

func (e CourseUpdatedEvent) Payload() map[string]interface{} { return payloadOf(e) }

// ═══════════════════════════════════════════════════════════════════════════
// Enrollment Events
// ═══════════════════════════════════════════════════════════════════════════

// EnrolledEvent is emitted when a learner enrolls in a course.
type EnrolledEvent struct {
	BaseEvent
	CourseID string  `json:"course_id"`
	Learner  Address `json:"learner"`
}

func (e EnrolledEvent) Payload() map[string]interface{} { return payloadOf(e) }

// EnrollmentClosedEvent is emitted when an enrollment record is removed.
type EnrollmentClosedEvent struct {
	BaseEvent
	CourseID  string  `json:"course_id"`
	Learner   Address `json:"learner"`
	Completed bool    `json:"completed"`
}

func (e EnrollmentClosedEvent) Payload() map[string]interface{} { return payloadOf(e) }

// LessonCompletedEvent is emitted for every newly completed lesson.
type LessonCompletedEvent struct {
	BaseEvent
	CourseID         string  `json:"course_id"`
	Learner          Address `json:"learner"`
	LessonIndex      uint32  `json:"lesson_index"`
	XPEarned         uint32  `json:"xp_earned"`
	LessonsCompleted uint32  `json:"lessons_completed"`
	CurrentStreak    uint32  `json:"current_streak"`
}

func (e LessonCompletedEvent) Payload() map[string]interface{} { return payloadOf(e) }

// CourseFinalizedEvent is emitted when a fully completed course is finalized.
type CourseFinalizedEvent struct {
	BaseEvent
	CourseID         string  `json:"course_id"`
	Learner          Address `json:"learner"`
	BaseXP           uint32  `json:"base_xp"`
	BonusXP          uint32  `json:"bonus_xp"`
	Creator          Address `json:"creator"`
	CreatorRewardXP  uint32  `json:"creator_reward_xp"`
	CompletionCount  uint32  `json:"completion_count"`
	CoursesCompleted uint32  `json:"courses_completed"`
}

func (e CourseFinalizedEvent) Payload() map[string]interface{} { return payloadOf(e) }

// CredentialIssuedEvent is emitted when a completion credential is attached.
type CredentialIssuedEvent struct {
	BaseEvent
	CourseID   string  `json:"course_id"`
	Learner    Address `json:"learner"`
	Asset      Address `json:"asset"`
	TrackID    uint32  `json:"track_id"`
	TrackLevel uint32  `json:"track_level"`
}

func (e CredentialIssuedEvent) Payload() map[string]interface{} { return payloadOf(e) }

// CredentialUpgradedEvent is emitted when credential metadata is refreshed.
type CredentialUpgradedEvent struct {
	BaseEvent
	CourseID         string  `json:"course_id"`
	Learner          Address `json:"learner"`
	Asset            Address `json:"asset"`
	CoursesCompleted uint32  `json:"courses_completed"`
	TotalXP          uint32  `json:"total_xp"`
}

func (e CredentialUpgradedEvent) Payload() map[string]interface{} { return payloadOf(e) }

// ═══════════════════════════════════════════════════════════════════════════
// Learner Events
// ═══════════════════════════════════════════════════════════════════════════

// LearnerInitializedEvent is emitted when a profile is created.
type LearnerInitializedEvent struct {
	BaseEvent
	Learner Address `json:"learner"`
	Season  uint32  `json:"season"`
}

func (e LearnerInitializedEvent) Payload() map[string]interface{} { return payloadOf(e) }

// StreakFreezeAwardedEvent is emitted when a learner receives a freeze.
type StreakFreezeAwardedEvent struct {
	BaseEvent
	Learner       Address `json:"learner"`
	StreakFreezes uint32  `json:"streak_freezes"`
}

func (e StreakFreezeAwardedEvent) Payload() map[string]interface{} { return payloadOf(e) }

// ReferralRegisteredEvent links a referred learner to a referrer.
type ReferralRegisteredEvent struct {
	BaseEvent
	Referrer      Address `json:"referrer"`
	Referred      Address `json:"referred"`
	ReferralCount uint32  `json:"referral_count"`
}

func (e ReferralRegisteredEvent) Payload() map[string]interface{} { return payloadOf(e) }

// ═══════════════════════════════════════════════════════════════════════════
// Minter Events
// ═══════════════════════════════════════════════════════════════════════════

// MinterRegisteredEvent is emitted when a minter role is granted.
type MinterRegisteredEvent struct {
	BaseEvent
	Minter       Address `json:"minter"`
	Label        string  `json:"label"`
	MaxXPPerCall string  `json:"max_xp_per_call"`
}

func (e MinterRegisteredEvent) Payload() map[string]interface{} { return payloadOf(e) }

// MinterRevokedEvent is emitted when a minter role is removed.
type MinterRevokedEvent struct {
	BaseEvent
	Minter        Address `json:"minter"`
	TotalXPMinted string  `json:"total_xp_minted"`
}

func (e MinterRevokedEvent) Payload() map[string]interface{} { return payloadOf(e) }

// XPRewardedEvent is emitted for each successful minter reward.
type XPRewardedEvent struct {
	BaseEvent
	Minter        Address `json:"minter"`
	Recipient     Address `json:"recipient"`
	Amount        uint64  `json:"amount"`
	Reason        string  `json:"reason"`
	TotalXPMinted string  `json:"total_xp_minted"`
}

func (e XPRewardedEvent) Payload() map[string]interface{} { return payloadOf(e) }

// ═══════════════════════════════════════════════════════════════════════════
// Achievement Events
// ═══════════════════════════════════════════════════════════════════════════

// AchievementTypeCreatedEvent is emitted when a new achievement type is defined.
type AchievementTypeCreatedEvent struct {
	BaseEvent
	AchievementID string `json:"achievement_id"`
	Name          string `json:"name"`
	MaxSupply     uint32 `json:"max_supply"`
	XPReward      uint32 `json:"xp_reward"`
}

func (e AchievementTypeCreatedEvent) Payload() map[string]interface{} { return payloadOf(e) }

// AchievementTypeDeactivatedEvent is emitted when awarding is switched off.
type AchievementTypeDeactivatedEvent struct {
	BaseEvent
	AchievementID string `json:"achievement_id"`
}

func (e AchievementTypeDeactivatedEvent) Payload() map[string]interface{} { return payloadOf(e) }

// AchievementGrantedEvent is shared by the award and claim paths; Type
// tells them apart.
type AchievementGrantedEvent struct {
	BaseEvent
	AchievementID string  `json:"achievement_id"`
	Recipient     Address `json:"recipient"`
	Asset         Address `json:"asset"`
	GrantedBy     Address `json:"granted_by"`
	XPReward      uint32  `json:"xp_reward"`
	CurrentSupply uint32  `json:"current_supply"`
}

func (e AchievementGrantedEvent) Payload() map[string]interface{} { return payloadOf(e) }

// ═══════════════════════════════════════════════════════════════════════════
// Token Events
// ═══════════════════════════════════════════════════════════════════════════

// XPCreditedEvent is emitted for every credit to a token account.
type XPCreditedEvent struct {
	BaseEvent
	Mint       Address `json:"mint"`
	Owner      Address `json:"owner"`
	Amount     uint64  `json:"amount"`
	Reason     string  `json:"reason"`
	NewBalance uint64  `json:"new_balance"`
}

func (e XPCreditedEvent) Payload() map[string]interface{} { return payloadOf(e) }

// ═══════════════════════════════════════════════════════════════════════════
// Event Bus contracts
// ═══════════════════════════════════════════════════════════════════════════

// EventHandler is a function that handles an event.
type EventHandler func(event Event) error

// EventPublisher defines the interface for publishing events.
type EventPublisher interface {
	// Publish sends an event to subscribers.
	Publish(event Event) error
}

// EventSubscriber defines the interface for subscribing to events.
type EventSubscriber interface {
	// Subscribe registers a handler for an event type.
	Subscribe(eventType EventType, handler EventHandler) error

	// SubscribeAll registers a handler for all events.
	SubscribeAll(handler EventHandler) error
}

// EventBus combines publishing and subscribing.
type EventBus interface {
	EventPublisher
	EventSubscriber
}
