// Package shared contains common domain types, errors, events, and value objects
// that are used across all ledger domain packages.
package shared

import (
	"errors"
	"fmt"
	"strings"
)

// Error kinds. Every ledger failure matches exactly one of these with errors.Is.
var (
	// ErrUnauthorized: the caller does not hold the required capability.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrValidation: an input is malformed or out of range.
	ErrValidation = errors.New("validation error")

	// ErrStateConflict: the entity is not in a state that admits the transition.
	ErrStateConflict = errors.New("state conflict")

	// ErrArithmetic: a checked addition or multiplication overflowed.
	ErrArithmetic = errors.New("arithmetic overflow")

	// ErrRateLimited: a daily cap or per-call mint cap would be exceeded.
	ErrRateLimited = errors.New("rate limited")

	// ErrCrossReference: a supplied identifier does not match the linked entity.
	ErrCrossReference = errors.New("cross-reference mismatch")
)

// Kinds lists the error kinds in a stable order.
var Kinds = []error{
	ErrUnauthorized,
	ErrValidation,
	ErrStateConflict,
	ErrArithmetic,
	ErrRateLimited,
	ErrCrossReference,
}

// DomainError represents a domain-specific error with context.
type DomainError struct {
	Domain  string // e.g. "course", "enrollment", "minter"
	Op      string // operation that failed, e.g. "CompleteLesson"
	Kind    error  // one of the error kinds above
	Code    string // stable machine-readable code, e.g. "lesson_already_completed"
	Message string // human-readable message
	Err     error  // underlying error (optional)
}

// Error implements the error interface.
func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s.%s: %s: %v", e.Domain, e.Op, e.Message, e.Err)
	}
	return fmt.Sprintf("%s.%s: %s", e.Domain, e.Op, e.Message)
}

// Unwrap returns the underlying error for errors.Unwrap().
func (e *DomainError) Unwrap() error {
	if e.Err != nil {
		return e.Err
	}
	return e.Kind
}

// Is matches the kind, the underlying error, or another DomainError with
// the same code.
func (e *DomainError) Is(target error) bool {
	if e.Kind != nil && errors.Is(e.Kind, target) {
		return true
	}
	if e.Err != nil && errors.Is(e.Err, target) {
		return true
	}
	var other *DomainError
	if errors.As(target, &other) {
		return other.Code != "" && other.Code == e.Code
	}
	return false
}

// NewDomainError creates a new domain error.
func NewDomainError(domain, op string, kind error, code, message string) *DomainError {
	return &DomainError{Domain: domain, Op: op, Kind: kind, Code: code, Message: message}
}

// WrapError wraps an existing error with domain context.
func WrapError(domain, op string, kind error, message string, err error) *DomainError {
	return &DomainError{Domain: domain, Op: op, Kind: kind, Code: codeForKind(kind), Message: message, Err: err}
}

// With returns a copy of e carrying err as cause, keeping the code.
func (e *DomainError) With(err error) *DomainError {
	c := *e
	c.Err = err
	return &c
}

// Withf returns a copy of e with a formatted detail appended to the message.
func (e *DomainError) Withf(format string, args ...any) *DomainError {
	c := *e
	c.Message = e.Message + ": " + fmt.Sprintf(format, args...)
	return &c
}

// KindOf returns the kind of err, or nil if err is not a ledger error.
func KindOf(err error) error {
	for _, k := range Kinds {
		if errors.Is(err, k) {
			return k
		}
	}
	return nil
}

// CodeOf returns the code of the outermost DomainError in err's chain.
func CodeOf(err error) string {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Code
	}
	return ""
}

// IsNotFound reports whether err is a missing-entity error.
func IsNotFound(err error) bool {
	return strings.HasSuffix(CodeOf(err), "_not_found")
}

func codeForKind(kind error) string {
	switch kind {
	case ErrUnauthorized:
		return "unauthorized"
	case ErrValidation:
		return "invalid_input"
	case ErrStateConflict:
		return "state_conflict"
	case ErrArithmetic:
		return "arithmetic_overflow"
	case ErrRateLimited:
		return "rate_limited"
	case ErrCrossReference:
		return "cross_reference_mismatch"
	}
	return "internal"
}

// Arithmetic overflow, shared by every domain.
func Overflow(domain, op, what string) *DomainError {
	return NewDomainError(domain, op, ErrArithmetic, "arithmetic_overflow", what+" overflow")
}

// ═══════════════════════════════════════════════════════════════════════════
// Governance errors
// ═══════════════════════════════════════════════════════════════════════════

var (
	ErrConfigNotInitialized     = NewDomainError("config", "Get", ErrCrossReference, "config_not_found", "ledger is not initialized")
	ErrConfigAlreadyInitialized = NewDomainError("config", "Initialize", ErrStateConflict, "config_already_initialized", "ledger is already initialized")
	ErrNotAuthority             = NewDomainError("config", "Authorize", ErrUnauthorized, "not_authority", "caller is not the authority")
	ErrNotBackendSigner         = NewDomainError("config", "Authorize", ErrUnauthorized, "not_backend_signer", "caller is not the backend signer")
	ErrMintMismatch             = NewDomainError("config", "VerifyMint", ErrCrossReference, "mint_mismatch", "token account mint does not match the XP mint")
	ErrOwnerMismatch            = NewDomainError("config", "VerifyOwner", ErrCrossReference, "owner_mismatch", "token account owner does not match the recipient")
	ErrInvalidAddress           = NewDomainError("config", "Validate", ErrValidation, "invalid_address", "invalid address")
)

// ═══════════════════════════════════════════════════════════════════════════
// Course errors
// ═══════════════════════════════════════════════════════════════════════════

var (
	ErrCourseNotFound      = NewDomainError("course", "Get", ErrCrossReference, "course_not_found", "course not found")
	ErrCourseAlreadyExists = NewDomainError("course", "Create", ErrStateConflict, "course_already_exists", "course already exists")
	ErrInvalidCourseID     = NewDomainError("course", "Validate", ErrValidation, "invalid_course_id", "course id must be 1..64 characters")
	ErrInvalidLessonCount  = NewDomainError("course", "Validate", ErrValidation, "invalid_lesson_count", "lesson count must be 1..256")
	ErrInvalidContentRef   = NewDomainError("course", "Validate", ErrValidation, "invalid_content_ref", "content reference is too long")
	ErrInvalidPrerequisite = NewDomainError("course", "Validate", ErrCrossReference, "invalid_prerequisite", "prerequisite must reference another existing course")
	ErrCourseNotActive     = NewDomainError("course", "CheckActive", ErrStateConflict, "course_not_active", "course is not active")
	ErrEmptyCourseUpdate   = NewDomainError("course", "Update", ErrValidation, "empty_update", "update contains no fields")
	ErrInvalidTrack        = NewDomainError("course", "Validate", ErrValidation, "invalid_track", "track level must be between 0 and 255")
	ErrCourseXPOverCap     = NewDomainError("course", "Validate", ErrValidation, "course_xp_over_daily_cap", "course rewards exceed the daily XP cap")
)

// ═══════════════════════════════════════════════════════════════════════════
// Enrollment errors
// ═══════════════════════════════════════════════════════════════════════════

var (
	ErrEnrollmentNotFound      = NewDomainError("enrollment", "Get", ErrCrossReference, "enrollment_not_found", "enrollment not found")
	ErrAlreadyEnrolled         = NewDomainError("enrollment", "Enroll", ErrStateConflict, "already_enrolled", "learner is already enrolled")
	ErrInvalidLessonIndex      = NewDomainError("enrollment", "CompleteLesson", ErrValidation, "invalid_lesson_index", "lesson index out of range")
	ErrLessonAlreadyCompleted  = NewDomainError("enrollment", "CompleteLesson", ErrStateConflict, "lesson_already_completed", "lesson already completed")
	ErrCourseNotCompleted      = NewDomainError("enrollment", "Finalize", ErrStateConflict, "course_not_completed", "not all lessons are completed")
	ErrCourseAlreadyFinalized  = NewDomainError("enrollment", "Finalize", ErrStateConflict, "course_already_finalized", "course already finalized")
	ErrCourseNotFinalized      = NewDomainError("enrollment", "CheckFinalized", ErrStateConflict, "course_not_finalized", "course is not finalized")
	ErrUnenrollCooldown        = NewDomainError("enrollment", "Close", ErrStateConflict, "unenroll_cooldown", "enrollment cannot be closed before the cooldown elapses")
	ErrNotEnrollmentOwner      = NewDomainError("enrollment", "Authorize", ErrUnauthorized, "not_enrollment_owner", "caller does not own the enrollment")
	ErrPrerequisiteMismatch    = NewDomainError("enrollment", "Enroll", ErrCrossReference, "prerequisite_mismatch", "supplied prerequisite does not match the course")
	ErrPrerequisiteNotMet      = NewDomainError("enrollment", "Enroll", ErrStateConflict, "prerequisite_not_met", "prerequisite course is not finalized")
	ErrCredentialAlreadyIssued = NewDomainError("enrollment", "IssueCredential", ErrStateConflict, "credential_already_issued", "credential already issued")
	ErrCredentialNotIssued     = NewDomainError("enrollment", "UpgradeCredential", ErrStateConflict, "credential_not_issued", "no credential has been issued")
	ErrCredentialMismatch      = NewDomainError("enrollment", "UpgradeCredential", ErrCrossReference, "credential_mismatch", "credential asset does not match the enrollment")
	ErrInvalidCredentialMeta   = NewDomainError("enrollment", "IssueCredential", ErrValidation, "invalid_credential_metadata", "credential name or uri is invalid")
)

// ═══════════════════════════════════════════════════════════════════════════
// Learner errors
// ═══════════════════════════════════════════════════════════════════════════

var (
	ErrLearnerNotFound      = NewDomainError("learner", "Get", ErrCrossReference, "learner_not_found", "learner profile not found")
	ErrLearnerAlreadyExists = NewDomainError("learner", "Create", ErrStateConflict, "learner_already_exists", "learner profile already exists")
	ErrDailyXPLimitExceeded = NewDomainError("learner", "CreditXP", ErrRateLimited, "daily_xp_limit_exceeded", "daily XP limit exceeded")
	ErrSelfReferral         = NewDomainError("learner", "RegisterReferral", ErrValidation, "self_referral", "learner cannot refer themselves")
	ErrAlreadyReferred      = NewDomainError("learner", "RegisterReferral", ErrStateConflict, "already_referred", "learner already has a referrer")
	ErrNotProfileOwner      = NewDomainError("learner", "Authorize", ErrUnauthorized, "not_profile_owner", "caller does not own the profile")
)

// ═══════════════════════════════════════════════════════════════════════════
// Minter errors
// ═══════════════════════════════════════════════════════════════════════════

var (
	ErrMinterNotFound       = NewDomainError("minter", "Get", ErrCrossReference, "minter_not_found", "minter role not found")
	ErrMinterRoleMismatch   = NewDomainError("minter", "Authorize", ErrUnauthorized, "minter_role_mismatch", "caller holds no minter role")
	ErrMinterAlreadyExists  = NewDomainError("minter", "Register", ErrStateConflict, "minter_already_exists", "minter role already exists")
	ErrMinterNotActive      = NewDomainError("minter", "Authorize", ErrStateConflict, "minter_not_active", "minter role is not active")
	ErrInvalidAmount        = NewDomainError("minter", "Authorize", ErrValidation, "invalid_amount", "amount must be a positive whole number")
	ErrMinterAmountExceeded = NewDomainError("minter", "Authorize", ErrRateLimited, "minter_amount_exceeded", "amount exceeds the per-call limit")
	ErrInvalidMinterLabel   = NewDomainError("minter", "Validate", ErrValidation, "invalid_label", "label must be at most 32 characters")
	ErrInvalidMinterLimit   = NewDomainError("minter", "Validate", ErrValidation, "invalid_limit", "per-call limit must be positive")
	ErrInvalidRewardReason  = NewDomainError("minter", "Validate", ErrValidation, "invalid_reason", "reason is too long")
)

// ═══════════════════════════════════════════════════════════════════════════
// Achievement errors
// ═══════════════════════════════════════════════════════════════════════════

var (
	ErrAchievementNotFound       = NewDomainError("achievement", "Get", ErrCrossReference, "achievement_not_found", "achievement type not found")
	ErrReceiptNotFound           = NewDomainError("achievement", "GetReceipt", ErrCrossReference, "receipt_not_found", "achievement receipt not found")
	ErrAchievementAlreadyExists  = NewDomainError("achievement", "Create", ErrStateConflict, "achievement_already_exists", "achievement type already exists")
	ErrAchievementNotActive      = NewDomainError("achievement", "Award", ErrStateConflict, "achievement_not_active", "achievement type is not active")
	ErrAchievementSupplyExceeded = NewDomainError("achievement", "Award", ErrStateConflict, "achievement_supply_exceeded", "achievement supply exhausted")
	ErrAchievementAlreadyAwarded = NewDomainError("achievement", "Award", ErrStateConflict, "achievement_already_awarded", "achievement already awarded to recipient")
	ErrInvalidAchievementID      = NewDomainError("achievement", "Validate", ErrValidation, "invalid_achievement_id", "achievement id must be 1..32 characters")
	ErrInvalidAchievementName    = NewDomainError("achievement", "Validate", ErrValidation, "invalid_achievement_name", "name must be 1..64 characters")
	ErrInvalidMetadataURI        = NewDomainError("achievement", "Validate", ErrValidation, "invalid_metadata_uri", "metadata uri must be at most 200 characters")
	ErrInvalidMaxSupply          = NewDomainError("achievement", "Validate", ErrValidation, "invalid_max_supply", "max supply must be positive")
)
