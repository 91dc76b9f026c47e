package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/alem-hub/academy-ledger/internal/domain/shared"
	"github.com/alem-hub/academy-ledger/pkg/fixedpoint"
)

// ══════════════════════════════════════════════════════════════════════════════
// REQUEST BODIES
// ══════════════════════════════════════════════════════════════════════════════
// Tags check shape only. Range rules live in the domain and come back as
// ledger validation errors with their own codes.

type initializeRequest struct {
	XPMint string `json:"xp_mint" validate:"required,address"`
}

type updateConfigRequest struct {
	BackendSigner *string `json:"backend_signer" validate:"omitempty,address"`
}

type createCourseRequest struct {
	CourseID                string `json:"course_id" validate:"required,max=32"`
	Creator                 string `json:"creator" validate:"required,address"`
	ContentRef              string `json:"content_ref"`
	LessonCount             uint32 `json:"lesson_count" validate:"required"`
	XPPerLesson             uint32 `json:"xp_per_lesson"`
	Difficulty              uint8  `json:"difficulty" validate:"required"`
	TrackID                 uint32 `json:"track_id"`
	TrackLevel              uint32 `json:"track_level"`
	Prerequisite            string `json:"prerequisite" validate:"omitempty,max=32"`
	CreatorRewardXP         uint32 `json:"creator_reward_xp"`
	MinCompletionsForReward uint32 `json:"min_completions_for_reward"`
}

type updateCourseRequest struct {
	ContentRef              *string `json:"content_ref"`
	IsActive                *bool   `json:"is_active"`
	XPPerLesson             *uint32 `json:"xp_per_lesson"`
	CreatorRewardXP         *uint32 `json:"creator_reward_xp"`
	MinCompletionsForReward *uint32 `json:"min_completions_for_reward"`
}

type enrollRequest struct {
	PrerequisiteCourseID string `json:"prerequisite_course_id" validate:"omitempty,max=32"`
}

type completeLessonRequest struct {
	LessonIndex *uint32 `json:"lesson_index" validate:"required"`
}

type issueCredentialRequest struct {
	Name string `json:"name" validate:"required,max=64"`
	URI  string `json:"uri" validate:"required"`
}

type upgradeCredentialRequest struct {
	Asset string `json:"asset" validate:"required,address"`
	Name  string `json:"name" validate:"required,max=64"`
	URI   string `json:"uri" validate:"required"`
}

type referralRequest struct {
	Referrer string `json:"referrer" validate:"required,address"`
}

// amountField accepts either whole XP or a raw fixed-point value.
type amountField struct {
	Amount    *uint64 `json:"amount" validate:"required_without=AmountRaw,excluded_with=AmountRaw"`
	AmountRaw string  `json:"amount_raw" validate:"omitempty,numeric"`
}

func (a amountField) value() (fixedpoint.Amount, error) {
	if a.Amount != nil {
		return fixedpoint.FromInteger(*a.Amount), nil
	}
	return fixedpoint.ParseRaw(a.AmountRaw)
}

type registerMinterRequest struct {
	Minter string `json:"minter" validate:"required,address"`
	Label  string `json:"label" validate:"max=32"`
	amountField
}

type rewardXPRequest struct {
	Recipient     string `json:"recipient" validate:"required,address"`
	RecipientMint string `json:"recipient_mint" validate:"required,address"`
	Reason        string `json:"reason" validate:"max=64"`
	amountField
}

type createAchievementRequest struct {
	AchievementID string `json:"achievement_id" validate:"required,max=32"`
	Name          string `json:"name" validate:"required,max=64"`
	MetadataURI   string `json:"metadata_uri"`
	Collection    string `json:"collection" validate:"omitempty,address"`
	MaxSupply     uint32 `json:"max_supply" validate:"required"`
	XPReward      uint32 `json:"xp_reward"`
}

type grantAchievementRequest struct {
	Recipient     string `json:"recipient" validate:"required,address"`
	RecipientMint string `json:"recipient_mint" validate:"required,address"`
	Asset         string `json:"asset" validate:"omitempty,address"`
}

// ══════════════════════════════════════════════════════════════════════════════
// RESPONSE BODIES
// ══════════════════════════════════════════════════════════════════════════════

type seasonResponse struct {
	CurrentSeason uint32 `json:"current_season"`
}

type completeLessonResponse struct {
	XPEarned         uint32 `json:"xp_earned"`
	LessonsCompleted uint32 `json:"lessons_completed"`
	LessonCount      uint32 `json:"lesson_count"`
	EarnedToday      uint32 `json:"earned_today"`
	Streak           uint32 `json:"streak"`
	FreezeUsed       bool   `json:"freeze_used,omitempty"`
	StreakReset      bool   `json:"streak_reset,omitempty"`
	Level            uint32 `json:"level"`
	LeveledUp        bool   `json:"leveled_up,omitempty"`
	SeasonChanged    bool   `json:"season_changed,omitempty"`
}

type finalizeCourseResponse struct {
	BaseXP          uint32 `json:"base_xp"`
	BonusXP         uint32 `json:"bonus_xp"`
	CreatorRewardXP uint32 `json:"creator_reward_xp"`
	CompletionCount uint32 `json:"completion_count"`
}

type credentialResponse struct {
	Asset string `json:"asset"`
}

type streakFreezeResponse struct {
	StreakFreezes uint32 `json:"streak_freezes"`
}

type rewardXPResponse struct {
	Amount        uint64 `json:"amount"`
	NewBalance    uint64 `json:"new_balance"`
	TotalXPMinted string `json:"total_xp_minted"`
}

type grantAchievementResponse struct {
	AchievementID string `json:"achievement_id"`
	Recipient     string `json:"recipient"`
	Asset         string `json:"asset"`
	GrantedBy     string `json:"granted_by"`
	XPReward      uint32 `json:"xp_reward"`
	CurrentSupply uint32 `json:"current_supply"`
}

// ══════════════════════════════════════════════════════════════════════════════
// DECODING
// ══════════════════════════════════════════════════════════════════════════════

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	_ = v.RegisterValidation("address", func(fl validator.FieldLevel) bool {
		return shared.Address(fl.Field().String()).IsValid()
	})
	return v
}

// decode reads a JSON body into dst and validates it. An empty body is
// accepted when optional is set. It writes the error response itself and
// reports whether the handler should continue.
func (s *Server) decode(w http.ResponseWriter, r *http.Request, dst any, optional bool) bool {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(dst); err != nil {
		switch {
		case errors.Is(err, io.EOF) && optional:
		case errors.Is(err, io.EOF):
			writeJSONError(w, r, http.StatusBadRequest, "empty_body", "Request body is required")
			return false
		default:
			var maxErr *http.MaxBytesError
			if errors.As(err, &maxErr) {
				writeJSONError(w, r, http.StatusRequestEntityTooLarge, "payload_too_large", "Request body too large")
				return false
			}
			writeAPIError(w, r, http.StatusBadRequest, &APIError{
				Code:    "invalid_json",
				Message: "Request body is not valid JSON for this endpoint",
				Details: err.Error(),
			})
			return false
		}
	}

	if err := s.validate.Struct(dst); err != nil {
		writeAPIError(w, r, http.StatusBadRequest, &APIError{
			Code:    "invalid_request",
			Message: "Request body failed validation",
			Kind:    shared.ErrValidation.Error(),
			Details: describeValidation(err),
		})
		return false
	}
	return true
}

func describeValidation(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		if fe.Param() != "" {
			parts = append(parts, fmt.Sprintf("%s: %s=%s", fe.Field(), fe.Tag(), fe.Param()))
		} else {
			parts = append(parts, fmt.Sprintf("%s: %s", fe.Field(), fe.Tag()))
		}
	}
	return strings.Join(parts, "; ")
}

// pathAddress reads an address path segment.
func pathAddress(w http.ResponseWriter, r *http.Request, name string) (shared.Address, bool) {
	addr, err := shared.NewAddress(r.PathValue(name))
	if err != nil {
		writeError(w, r, err)
		return "", false
	}
	return addr, true
}
