package http

import (
	"context"
	"net/http"

	"github.com/alem-hub/academy-ledger/internal/application/command"
	"github.com/alem-hub/academy-ledger/internal/domain/achievement"
	"github.com/alem-hub/academy-ledger/internal/domain/course"
	"github.com/alem-hub/academy-ledger/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// GOVERNANCE
// ══════════════════════════════════════════════════════════════════════════════

func (s *Server) handleInitialize(w http.ResponseWriter, r *http.Request) {
	caller, ok := requireCaller(w, r)
	if !ok {
		return
	}
	var req initializeRequest
	if !s.decode(w, r, &req, false) {
		return
	}

	if _, err := s.deps.Ledger.Initialize(r.Context(), command.InitializeCommand{
		Caller: caller,
		XPMint: shared.Address(req.XPMint),
	}); err != nil {
		writeError(w, r, err)
		return
	}
	s.respondConfig(w, r, http.StatusCreated)
}

func (s *Server) handleUpdateConfig(w http.ResponseWriter, r *http.Request) {
	caller, ok := requireCaller(w, r)
	if !ok {
		return
	}
	var req updateConfigRequest
	if !s.decode(w, r, &req, false) {
		return
	}

	cmd := command.UpdateConfigCommand{Caller: caller}
	if req.BackendSigner != nil {
		signer := shared.Address(*req.BackendSigner)
		cmd.BackendSigner = &signer
	}
	if _, err := s.deps.Ledger.UpdateConfig(r.Context(), cmd); err != nil {
		writeError(w, r, err)
		return
	}
	s.respondConfig(w, r, http.StatusOK)
}

func (s *Server) handleStartSeason(w http.ResponseWriter, r *http.Request) {
	caller, ok := requireCaller(w, r)
	if !ok {
		return
	}

	season, err := s.deps.Ledger.StartSeason(r.Context(), command.StartSeasonCommand{Caller: caller})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, seasonResponse{CurrentSeason: season})
}

// ══════════════════════════════════════════════════════════════════════════════
// COURSES
// ══════════════════════════════════════════════════════════════════════════════

func (s *Server) handleCreateCourse(w http.ResponseWriter, r *http.Request) {
	caller, ok := requireCaller(w, r)
	if !ok {
		return
	}
	var req createCourseRequest
	if !s.decode(w, r, &req, false) {
		return
	}

	c, err := s.deps.Ledger.CreateCourse(r.Context(), command.CreateCourseCommand{
		Caller: caller,
		Params: course.Params{
			CourseID:                req.CourseID,
			Creator:                 shared.Address(req.Creator),
			ContentRef:              req.ContentRef,
			LessonCount:             req.LessonCount,
			XPPerLesson:             req.XPPerLesson,
			Difficulty:              course.Difficulty(req.Difficulty),
			TrackID:                 req.TrackID,
			TrackLevel:              req.TrackLevel,
			Prerequisite:            req.Prerequisite,
			CreatorRewardXP:         req.CreatorRewardXP,
			MinCompletionsForReward: req.MinCompletionsForReward,
		},
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	s.respondCourse(w, r, http.StatusCreated, c.CourseID)
}

func (s *Server) handleUpdateCourse(w http.ResponseWriter, r *http.Request) {
	caller, ok := requireCaller(w, r)
	if !ok {
		return
	}
	var req updateCourseRequest
	if !s.decode(w, r, &req, false) {
		return
	}

	courseID := r.PathValue("courseID")
	if _, err := s.deps.Ledger.UpdateCourse(r.Context(), command.UpdateCourseCommand{
		Caller:   caller,
		CourseID: courseID,
		Update: course.Update{
			ContentRef:              req.ContentRef,
			IsActive:                req.IsActive,
			XPPerLesson:             req.XPPerLesson,
			CreatorRewardXP:         req.CreatorRewardXP,
			MinCompletionsForReward: req.MinCompletionsForReward,
		},
	}); err != nil {
		writeError(w, r, err)
		return
	}
	// The change event invalidates asynchronously; read our own write.
	s.deps.Catalog.Invalidate(courseID)
	s.respondCourse(w, r, http.StatusOK, courseID)
}

// ══════════════════════════════════════════════════════════════════════════════
// ENROLLMENTS
// ══════════════════════════════════════════════════════════════════════════════

func (s *Server) handleEnroll(w http.ResponseWriter, r *http.Request) {
	caller, ok := requireCaller(w, r)
	if !ok {
		return
	}
	var req enrollRequest
	if !s.decode(w, r, &req, true) {
		return
	}

	courseID := r.PathValue("courseID")
	if _, err := s.deps.Ledger.Enroll(r.Context(), command.EnrollCommand{
		Caller:               caller,
		CourseID:             courseID,
		PrerequisiteCourseID: req.PrerequisiteCourseID,
	}); err != nil {
		writeError(w, r, err)
		return
	}
	s.respondProgress(w, r, http.StatusCreated, courseID, caller)
}

// handleCloseEnrollment closes the caller's own enrollment. The path names
// the learner so the route mirrors the progress resource; it must match.
func (s *Server) handleCloseEnrollment(w http.ResponseWriter, r *http.Request) {
	caller, ok := requireCaller(w, r)
	if !ok {
		return
	}
	learner, ok := pathAddress(w, r, "learner")
	if !ok {
		return
	}
	if learner != caller {
		writeJSONError(w, r, http.StatusForbidden, "not_enrollment_owner", "Only the enrolled learner can close an enrollment")
		return
	}

	if err := s.deps.Ledger.CloseEnrollment(r.Context(), command.CloseEnrollmentCommand{
		Caller:   caller,
		CourseID: r.PathValue("courseID"),
	}); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleCompleteLesson(w http.ResponseWriter, r *http.Request) {
	caller, ok := requireCaller(w, r)
	if !ok {
		return
	}
	learner, ok := pathAddress(w, r, "learner")
	if !ok {
		return
	}
	var req completeLessonRequest
	if !s.decode(w, r, &req, false) {
		return
	}

	res, err := s.deps.Ledger.CompleteLesson(r.Context(), command.CompleteLessonCommand{
		Caller:      caller,
		Learner:     learner,
		CourseID:    r.PathValue("courseID"),
		LessonIndex: *req.LessonIndex,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, completeLessonResponse{
		XPEarned:         res.XPEarned,
		LessonsCompleted: res.LessonsCompleted,
		LessonCount:      res.LessonCount,
		EarnedToday:      res.Credit.EarnedToday,
		Streak:           res.Credit.StreakAfter,
		FreezeUsed:       res.Credit.FreezeUsed,
		StreakReset:      res.Credit.StreakReset,
		Level:            uint32(res.Credit.LevelAfter),
		LeveledUp:        res.Credit.LevelAfter > res.Credit.LevelBefore,
		SeasonChanged:    res.Credit.SeasonChanged,
	})
}

func (s *Server) handleFinalizeCourse(w http.ResponseWriter, r *http.Request) {
	caller, ok := requireCaller(w, r)
	if !ok {
		return
	}
	learner, ok := pathAddress(w, r, "learner")
	if !ok {
		return
	}

	res, err := s.deps.Ledger.FinalizeCourse(r.Context(), command.FinalizeCourseCommand{
		Caller:   caller,
		Learner:  learner,
		CourseID: r.PathValue("courseID"),
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, finalizeCourseResponse{
		BaseXP:          res.BaseXP,
		BonusXP:         res.BonusXP,
		CreatorRewardXP: res.CreatorRewardXP,
		CompletionCount: res.CompletionCount,
	})
}

// ══════════════════════════════════════════════════════════════════════════════
// CREDENTIALS
// ══════════════════════════════════════════════════════════════════════════════

func (s *Server) handleIssueCredential(w http.ResponseWriter, r *http.Request) {
	caller, ok := requireCaller(w, r)
	if !ok {
		return
	}
	learner, ok := pathAddress(w, r, "learner")
	if !ok {
		return
	}
	var req issueCredentialRequest
	if !s.decode(w, r, &req, false) {
		return
	}

	asset, err := s.deps.Ledger.IssueCredential(r.Context(), command.IssueCredentialCommand{
		Caller:   caller,
		Learner:  learner,
		CourseID: r.PathValue("courseID"),
		Name:     req.Name,
		URI:      req.URI,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusCreated, credentialResponse{Asset: asset.String()})
}

func (s *Server) handleUpgradeCredential(w http.ResponseWriter, r *http.Request) {
	caller, ok := requireCaller(w, r)
	if !ok {
		return
	}
	learner, ok := pathAddress(w, r, "learner")
	if !ok {
		return
	}
	var req upgradeCredentialRequest
	if !s.decode(w, r, &req, false) {
		return
	}

	if err := s.deps.Ledger.UpgradeCredential(r.Context(), command.UpgradeCredentialCommand{
		Caller:   caller,
		Learner:  learner,
		CourseID: r.PathValue("courseID"),
		Asset:    shared.Address(req.Asset),
		Name:     req.Name,
		URI:      req.URI,
	}); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, credentialResponse{Asset: req.Asset})
}

// ══════════════════════════════════════════════════════════════════════════════
// LEARNERS
// ══════════════════════════════════════════════════════════════════════════════

func (s *Server) handleInitLearner(w http.ResponseWriter, r *http.Request) {
	caller, ok := requireCaller(w, r)
	if !ok {
		return
	}

	if _, err := s.deps.Ledger.InitLearner(r.Context(), command.InitLearnerCommand{Caller: caller}); err != nil {
		writeError(w, r, err)
		return
	}
	s.respondLearner(w, r, http.StatusCreated, caller)
}

func (s *Server) handleAwardStreakFreeze(w http.ResponseWriter, r *http.Request) {
	caller, ok := requireCaller(w, r)
	if !ok {
		return
	}
	learner, ok := pathAddress(w, r, "learner")
	if !ok {
		return
	}

	freezes, err := s.deps.Ledger.AwardStreakFreeze(r.Context(), command.AwardStreakFreezeCommand{
		Caller:  caller,
		Learner: learner,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, streakFreezeResponse{StreakFreezes: freezes})
}

func (s *Server) handleRegisterReferral(w http.ResponseWriter, r *http.Request) {
	caller, ok := requireCaller(w, r)
	if !ok {
		return
	}
	var req referralRequest
	if !s.decode(w, r, &req, false) {
		return
	}

	if err := s.deps.Ledger.RegisterReferral(r.Context(), command.RegisterReferralCommand{
		Caller:   caller,
		Referrer: shared.Address(req.Referrer),
	}); err != nil {
		writeError(w, r, err)
		return
	}
	s.respondLearner(w, r, http.StatusOK, caller)
}

// ══════════════════════════════════════════════════════════════════════════════
// MINTING
// ══════════════════════════════════════════════════════════════════════════════

func (s *Server) handleRegisterMinter(w http.ResponseWriter, r *http.Request) {
	caller, ok := requireCaller(w, r)
	if !ok {
		return
	}
	var req registerMinterRequest
	if !s.decode(w, r, &req, false) {
		return
	}
	limit, err := req.value()
	if err != nil {
		writeAPIError(w, r, http.StatusBadRequest, &APIError{Code: "invalid_amount", Message: "amount_raw is not a valid fixed-point value", Details: err.Error()})
		return
	}

	role, err := s.deps.Ledger.RegisterMinter(r.Context(), command.RegisterMinterCommand{
		Caller:       caller,
		Minter:       shared.Address(req.Minter),
		Label:        req.Label,
		MaxXPPerCall: limit,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	s.respondMinter(w, r, http.StatusCreated, role.Minter)
}

func (s *Server) handleRevokeMinter(w http.ResponseWriter, r *http.Request) {
	caller, ok := requireCaller(w, r)
	if !ok {
		return
	}
	minterAddr, ok := pathAddress(w, r, "minter")
	if !ok {
		return
	}

	if err := s.deps.Ledger.RevokeMinter(r.Context(), command.RevokeMinterCommand{
		Caller: caller,
		Minter: minterAddr,
	}); err != nil {
		writeError(w, r, err)
		return
	}
	s.respondMinter(w, r, http.StatusOK, minterAddr)
}

func (s *Server) handleRewardXP(w http.ResponseWriter, r *http.Request) {
	caller, ok := requireCaller(w, r)
	if !ok {
		return
	}
	var req rewardXPRequest
	if !s.decode(w, r, &req, false) {
		return
	}
	amount, err := req.value()
	if err != nil {
		writeAPIError(w, r, http.StatusBadRequest, &APIError{Code: "invalid_amount", Message: "amount_raw is not a valid fixed-point value", Details: err.Error()})
		return
	}

	res, err := s.deps.Ledger.RewardXP(r.Context(), command.RewardXPCommand{
		Caller:        caller,
		Recipient:     shared.Address(req.Recipient),
		RecipientMint: shared.Address(req.RecipientMint),
		Amount:        amount,
		Reason:        req.Reason,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, rewardXPResponse{
		Amount:        res.Amount,
		NewBalance:    res.NewBalance,
		TotalXPMinted: res.TotalXPMinted.String(),
	})
}

// ══════════════════════════════════════════════════════════════════════════════
// ACHIEVEMENTS
// ══════════════════════════════════════════════════════════════════════════════

func (s *Server) handleCreateAchievementType(w http.ResponseWriter, r *http.Request) {
	caller, ok := requireCaller(w, r)
	if !ok {
		return
	}
	var req createAchievementRequest
	if !s.decode(w, r, &req, false) {
		return
	}

	t, err := s.deps.Ledger.CreateAchievementType(r.Context(), command.CreateAchievementTypeCommand{
		Caller: caller,
		Params: achievement.Params{
			AchievementID: req.AchievementID,
			Name:          req.Name,
			MetadataURI:   req.MetadataURI,
			Collection:    shared.Address(req.Collection),
			MaxSupply:     req.MaxSupply,
			XPReward:      req.XPReward,
		},
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	s.respondAchievementType(w, r, http.StatusCreated, t.AchievementID)
}

func (s *Server) handleDeactivateAchievementType(w http.ResponseWriter, r *http.Request) {
	caller, ok := requireCaller(w, r)
	if !ok {
		return
	}

	id := r.PathValue("achievementID")
	if err := s.deps.Ledger.DeactivateAchievementType(r.Context(), command.DeactivateAchievementTypeCommand{
		Caller:        caller,
		AchievementID: id,
	}); err != nil {
		writeError(w, r, err)
		return
	}
	s.respondAchievementType(w, r, http.StatusOK, id)
}

func (s *Server) handleAwardAchievement(w http.ResponseWriter, r *http.Request) {
	s.grantAchievement(w, r, s.deps.Ledger.AwardAchievement)
}

func (s *Server) handleClaimAchievement(w http.ResponseWriter, r *http.Request) {
	s.grantAchievement(w, r, s.deps.Ledger.ClaimAchievement)
}

type grantFunc func(ctx context.Context, cmd command.GrantAchievementCommand) (*command.GrantAchievementResult, error)

// grantAchievement serves both grant paths; they differ only in who may
// call and where the XP is accounted.
func (s *Server) grantAchievement(w http.ResponseWriter, r *http.Request, grant grantFunc) {
	caller, ok := requireCaller(w, r)
	if !ok {
		return
	}
	var req grantAchievementRequest
	if !s.decode(w, r, &req, false) {
		return
	}

	res, err := grant(r.Context(), command.GrantAchievementCommand{
		Caller:        caller,
		AchievementID: r.PathValue("achievementID"),
		Recipient:     shared.Address(req.Recipient),
		RecipientMint: shared.Address(req.RecipientMint),
		Asset:         shared.Address(req.Asset),
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusCreated, grantAchievementResponse{
		AchievementID: res.Receipt.AchievementID,
		Recipient:     res.Receipt.Recipient.String(),
		Asset:         res.Receipt.Asset.String(),
		GrantedBy:     res.Receipt.GrantedBy.String(),
		XPReward:      res.XPReward,
		CurrentSupply: res.CurrentSupply,
	})
}
