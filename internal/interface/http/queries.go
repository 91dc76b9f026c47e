package http

import (
	"net/http"
	"strconv"

	"github.com/alem-hub/academy-ledger/internal/application/query"
	"github.com/alem-hub/academy-ledger/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// HEALTH & STATUS HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, map[string]interface{}{
		"name":    "Academy Ledger API",
		"version": s.config.Version,
		"endpoints": map[string]string{
			"health":      "/health",
			"config":      "/api/v1/ledger/config",
			"courses":     "/api/v1/courses",
			"leaderboard": "/api/v1/leaderboard",
		},
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.deps.HealthChecker == nil {
		writeJSON(w, r, http.StatusOK, map[string]interface{}{
			"healthy": true,
			"uptime":  s.Uptime().String(),
			"version": s.config.Version,
		})
		return
	}
	status := s.deps.HealthChecker.Check(r.Context())
	code := http.StatusOK
	if !status.Healthy {
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, r, code, status)
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.deps.HealthChecker != nil && !s.deps.HealthChecker.Check(r.Context()).Ready {
		writeJSONError(w, r, http.StatusServiceUnavailable, "not_ready", "Service is not ready")
		return
	}
	writeJSON(w, r, http.StatusOK, map[string]bool{"ready": true})
}

func (s *Server) handleLive(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, map[string]bool{"alive": true})
}

// ══════════════════════════════════════════════════════════════════════════════
// GOVERNANCE
// ══════════════════════════════════════════════════════════════════════════════

func (s *Server) handleGetConfig(w http.ResponseWriter, r *http.Request) {
	s.respondConfig(w, r, http.StatusOK)
}

func (s *Server) respondConfig(w http.ResponseWriter, r *http.Request, status int) {
	cfg, err := s.deps.Registry.Config(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, status, cfg)
}

// ══════════════════════════════════════════════════════════════════════════════
// COURSES
// ══════════════════════════════════════════════════════════════════════════════

func (s *Server) handleListCourses(w http.ResponseWriter, r *http.Request) {
	page, err := getQueryParamInt(r, "page", 1)
	if err != nil {
		writeJSONError(w, r, http.StatusBadRequest, "invalid_query", err.Error())
		return
	}
	pageSize, err := getQueryParamInt(r, "page_size", shared.DefaultPageSize)
	if err != nil {
		writeJSONError(w, r, http.StatusBadRequest, "invalid_query", err.Error())
		return
	}

	q := query.ListCoursesQuery{
		ActiveOnly: getQueryParamBool(r, "active"),
		Page:       page,
		PageSize:   pageSize,
	}
	if raw := r.URL.Query().Get("track"); raw != "" {
		track, err := strconv.ParseUint(raw, 10, 32)
		if err != nil {
			writeJSONError(w, r, http.StatusBadRequest, "invalid_query", "track must be an unsigned 32-bit integer")
			return
		}
		t := uint32(track)
		q.TrackID = &t
	}

	res, err := s.deps.Catalog.ListCourses(r.Context(), q)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSONWithMeta(w, r, http.StatusOK, res.Courses, &ResponseMeta{
		Page:     res.Page,
		PageSize: res.PageSize,
		HasMore:  res.HasMore,
	})
}

func (s *Server) handleGetCourse(w http.ResponseWriter, r *http.Request) {
	s.respondCourse(w, r, http.StatusOK, r.PathValue("courseID"))
}

func (s *Server) respondCourse(w http.ResponseWriter, r *http.Request, status int, courseID string) {
	c, err := s.deps.Catalog.GetCourse(r.Context(), courseID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, status, c)
}

// ══════════════════════════════════════════════════════════════════════════════
// ENROLLMENTS & LEARNERS
// ══════════════════════════════════════════════════════════════════════════════

func (s *Server) handleGetProgress(w http.ResponseWriter, r *http.Request) {
	learner, ok := pathAddress(w, r, "learner")
	if !ok {
		return
	}
	s.respondProgress(w, r, http.StatusOK, r.PathValue("courseID"), learner)
}

func (s *Server) respondProgress(w http.ResponseWriter, r *http.Request, status int, courseID string, learner shared.Address) {
	p, err := s.deps.Progress.Handle(r.Context(), courseID, learner)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, status, p)
}

func (s *Server) handleListEnrollments(w http.ResponseWriter, r *http.Request) {
	learner, ok := pathAddress(w, r, "learner")
	if !ok {
		return
	}
	list, err := s.deps.Progress.ListForLearner(r.Context(), learner)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, list)
}

func (s *Server) handleGetLearner(w http.ResponseWriter, r *http.Request) {
	learner, ok := pathAddress(w, r, "learner")
	if !ok {
		return
	}
	s.respondLearner(w, r, http.StatusOK, learner)
}

func (s *Server) respondLearner(w http.ResponseWriter, r *http.Request, status int, learner shared.Address) {
	p, err := s.deps.Learners.Handle(r.Context(), learner)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, status, p)
}

func (s *Server) handleListReceipts(w http.ResponseWriter, r *http.Request) {
	learner, ok := pathAddress(w, r, "learner")
	if !ok {
		return
	}
	receipts, err := s.deps.Registry.Receipts(r.Context(), learner)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, receipts)
}

// ══════════════════════════════════════════════════════════════════════════════
// MINTERS & ACHIEVEMENTS
// ══════════════════════════════════════════════════════════════════════════════

func (s *Server) handleGetMinter(w http.ResponseWriter, r *http.Request) {
	minterAddr, ok := pathAddress(w, r, "minter")
	if !ok {
		return
	}
	s.respondMinter(w, r, http.StatusOK, minterAddr)
}

func (s *Server) respondMinter(w http.ResponseWriter, r *http.Request, status int, minterAddr shared.Address) {
	role, err := s.deps.Registry.MinterRole(r.Context(), minterAddr)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, status, role)
}

func (s *Server) handleGetAchievementType(w http.ResponseWriter, r *http.Request) {
	s.respondAchievementType(w, r, http.StatusOK, r.PathValue("achievementID"))
}

func (s *Server) respondAchievementType(w http.ResponseWriter, r *http.Request, status int, id string) {
	t, err := s.deps.Registry.AchievementType(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, status, t)
}

func (s *Server) handleGetReceipt(w http.ResponseWriter, r *http.Request) {
	recipient, ok := pathAddress(w, r, "recipient")
	if !ok {
		return
	}
	receipt, err := s.deps.Registry.Receipt(r.Context(), r.PathValue("achievementID"), recipient)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, receipt)
}

// ══════════════════════════════════════════════════════════════════════════════
// LEADERBOARD
// ══════════════════════════════════════════════════════════════════════════════

func (s *Server) handleGetLeaderboard(w http.ResponseWriter, r *http.Request) {
	limit, err := getQueryParamInt(r, "limit", shared.DefaultPageSize)
	if err != nil {
		writeJSONError(w, r, http.StatusBadRequest, "invalid_query", err.Error())
		return
	}
	offset, err := getQueryParamInt(r, "offset", 0)
	if err != nil {
		writeJSONError(w, r, http.StatusBadRequest, "invalid_query", err.Error())
		return
	}

	res, err := s.deps.Leaderboard.Handle(r.Context(), query.GetLeaderboardQuery{Limit: limit, Offset: offset})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, res)
}
