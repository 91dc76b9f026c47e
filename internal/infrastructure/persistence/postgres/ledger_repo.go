package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/alem-hub/academy-ledger/internal/domain/course"
	"github.com/alem-hub/academy-ledger/internal/domain/enrollment"
	"github.com/alem-hub/academy-ledger/internal/domain/governance"
	"github.com/alem-hub/academy-ledger/internal/domain/learner"
	"github.com/alem-hub/academy-ledger/internal/domain/shared"
	"github.com/alem-hub/academy-ledger/pkg/bitset"
)

// ══════════════════════════════════════════════════════════════════════════════
// CONFIG REPOSITORY
// ══════════════════════════════════════════════════════════════════════════════

type configRepo struct{ q Querier }

func (r configRepo) Get(ctx context.Context) (*governance.Config, error) {
	var (
		c      governance.Config
		season int64
	)
	err := r.q.QueryRow(ctx, `
		SELECT authority, backend_signer, xp_mint, current_season, initialized_at, updated_at
		FROM ledger_config
		WHERE id = 1
	`).Scan(&c.Authority, &c.BackendSigner, &c.XPMint, &season, &c.InitializedAt, &c.UpdatedAt)
	if IsNoRows(err) {
		return nil, shared.ErrConfigNotInitialized
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get config: %w", err)
	}
	c.CurrentSeason = uint32(season)
	c.InitializedAt = c.InitializedAt.UTC()
	c.UpdatedAt = c.UpdatedAt.UTC()
	return &c, nil
}

func (r configRepo) Create(ctx context.Context, c *governance.Config) error {
	_, err := r.q.Exec(ctx, `
		INSERT INTO ledger_config (id, authority, backend_signer, xp_mint, current_season, initialized_at, updated_at)
		VALUES (1, $1, $2, $3, $4, $5, $6)
	`, c.Authority, c.BackendSigner, c.XPMint, int64(c.CurrentSeason), c.InitializedAt, c.UpdatedAt)
	if IsUniqueViolation(err) {
		return shared.ErrConfigAlreadyInitialized
	}
	if err != nil {
		return fmt.Errorf("failed to create config: %w", err)
	}
	return nil
}

func (r configRepo) Update(ctx context.Context, c *governance.Config) error {
	tag, err := r.q.Exec(ctx, `
		UPDATE ledger_config SET
			authority = $1,
			backend_signer = $2,
			xp_mint = $3,
			current_season = $4,
			updated_at = $5
		WHERE id = 1
	`, c.Authority, c.BackendSigner, c.XPMint, int64(c.CurrentSeason), c.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to update config: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrConfigNotInitialized
	}
	return nil
}

// ══════════════════════════════════════════════════════════════════════════════
// COURSE REPOSITORY
// ══════════════════════════════════════════════════════════════════════════════

type courseRepo struct{ q Querier }

const courseColumns = `
	course_id, creator, content_ref, lesson_count, xp_per_lesson, difficulty,
	track_id, track_level, prerequisite, creator_reward_xp, min_completions_for_reward,
	completion_count, is_active, created_at, updated_at`

func (r courseRepo) Create(ctx context.Context, c *course.Course) error {
	_, err := r.q.Exec(ctx, `INSERT INTO courses (`+courseColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`,
		c.CourseID, c.Creator, c.ContentRef,
		int64(c.LessonCount), int64(c.XPPerLesson), int16(c.Difficulty),
		int64(c.TrackID), int64(c.TrackLevel), c.Prerequisite,
		int64(c.CreatorRewardXP), int64(c.MinCompletionsForReward),
		int64(c.CompletionCount), c.IsActive, c.CreatedAt, c.UpdatedAt,
	)
	if IsUniqueViolation(err) {
		return shared.ErrCourseAlreadyExists.Withf("course %q", c.CourseID)
	}
	if err != nil {
		return fmt.Errorf("failed to create course: %w", err)
	}
	return nil
}

func (r courseRepo) Get(ctx context.Context, courseID string) (*course.Course, error) {
	row := r.q.QueryRow(ctx, `SELECT `+courseColumns+` FROM courses WHERE course_id = $1`, courseID)
	c, err := scanCourse(row)
	if IsNoRows(err) {
		return nil, shared.ErrCourseNotFound.Withf("course %q", courseID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get course: %w", err)
	}
	return c, nil
}

func (r courseRepo) Update(ctx context.Context, c *course.Course) error {
	tag, err := r.q.Exec(ctx, `
		UPDATE courses SET
			content_ref = $2,
			lesson_count = $3,
			xp_per_lesson = $4,
			difficulty = $5,
			track_id = $6,
			track_level = $7,
			prerequisite = $8,
			creator_reward_xp = $9,
			min_completions_for_reward = $10,
			completion_count = $11,
			is_active = $12,
			updated_at = $13
		WHERE course_id = $1
	`,
		c.CourseID, c.ContentRef,
		int64(c.LessonCount), int64(c.XPPerLesson), int16(c.Difficulty),
		int64(c.TrackID), int64(c.TrackLevel), c.Prerequisite,
		int64(c.CreatorRewardXP), int64(c.MinCompletionsForReward),
		int64(c.CompletionCount), c.IsActive, c.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update course: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrCourseNotFound.Withf("course %q", c.CourseID)
	}
	return nil
}

func (r courseRepo) List(ctx context.Context, opts course.ListOptions) ([]*course.Course, error) {
	query, args := buildCourseListQuery(opts)
	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list courses: %w", err)
	}
	defer rows.Close()

	var out []*course.Course
	for rows.Next() {
		c, err := scanCourse(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan course: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// buildCourseListQuery mirrors the in-memory store: no pagination when both
// page and page size are zero.
func buildCourseListQuery(opts course.ListOptions) (string, []interface{}) {
	var (
		where []string
		args  []interface{}
	)
	if opts.ActiveOnly {
		where = append(where, "is_active")
	}
	if opts.TrackID != nil {
		args = append(args, int64(*opts.TrackID))
		where = append(where, fmt.Sprintf("track_id = $%d", len(args)))
	}

	var b strings.Builder
	b.WriteString(`SELECT ` + courseColumns + ` FROM courses`)
	if len(where) > 0 {
		b.WriteString(" WHERE " + strings.Join(where, " AND "))
	}
	b.WriteString(" ORDER BY course_id")

	p := opts.Pagination
	if p.Page != 0 || p.PageSize != 0 {
		args = append(args, p.Limit(), p.Offset())
		fmt.Fprintf(&b, " LIMIT $%d OFFSET $%d", len(args)-1, len(args))
	}
	return b.String(), args
}

func scanCourse(row pgx.Row) (*course.Course, error) {
	var (
		c                                              course.Course
		lessons, xpPerLesson, trackID, trackLevel      int64
		creatorReward, minCompletions, completionCount int64
		difficulty                                     int16
	)
	err := row.Scan(
		&c.CourseID, &c.Creator, &c.ContentRef, &lessons, &xpPerLesson, &difficulty,
		&trackID, &trackLevel, &c.Prerequisite, &creatorReward, &minCompletions,
		&completionCount, &c.IsActive, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	c.LessonCount = uint32(lessons)
	c.XPPerLesson = uint32(xpPerLesson)
	c.Difficulty = course.Difficulty(difficulty)
	c.TrackID = uint32(trackID)
	c.TrackLevel = uint32(trackLevel)
	c.CreatorRewardXP = uint32(creatorReward)
	c.MinCompletionsForReward = uint32(minCompletions)
	c.CompletionCount = uint32(completionCount)
	c.CreatedAt = c.CreatedAt.UTC()
	c.UpdatedAt = c.UpdatedAt.UTC()
	return &c, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// ENROLLMENT REPOSITORY
// ══════════════════════════════════════════════════════════════════════════════

type enrollmentRepo struct{ q Querier }

const enrollmentColumns = `course_id, learner, lesson_bits, enrolled_at, completed_at, credential_asset`

func (r enrollmentRepo) Create(ctx context.Context, e *enrollment.Enrollment) error {
	_, err := r.q.Exec(ctx, `INSERT INTO enrollments (`+enrollmentColumns+`) VALUES ($1, $2, $3, $4, $5, $6)`,
		e.CourseID, e.Learner, e.Lessons.Bytes(), e.EnrolledAt, e.CompletedAt, e.CredentialAsset,
	)
	switch {
	case IsUniqueViolation(err):
		return shared.ErrAlreadyEnrolled
	case IsForeignKeyViolation(err):
		return shared.ErrCourseNotFound.Withf("course %q", e.CourseID)
	case err != nil:
		return fmt.Errorf("failed to create enrollment: %w", err)
	}
	return nil
}

func (r enrollmentRepo) Get(ctx context.Context, courseID string, who shared.Address) (*enrollment.Enrollment, error) {
	row := r.q.QueryRow(ctx, `SELECT `+enrollmentColumns+` FROM enrollments WHERE course_id = $1 AND learner = $2`, courseID, who)
	e, err := scanEnrollment(row)
	if IsNoRows(err) {
		return nil, shared.ErrEnrollmentNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get enrollment: %w", err)
	}
	return e, nil
}

func (r enrollmentRepo) Update(ctx context.Context, e *enrollment.Enrollment) error {
	tag, err := r.q.Exec(ctx, `
		UPDATE enrollments SET
			lesson_bits = $3,
			completed_at = $4,
			credential_asset = $5
		WHERE course_id = $1 AND learner = $2
	`, e.CourseID, e.Learner, e.Lessons.Bytes(), e.CompletedAt, e.CredentialAsset)
	if err != nil {
		return fmt.Errorf("failed to update enrollment: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrEnrollmentNotFound
	}
	return nil
}

func (r enrollmentRepo) Delete(ctx context.Context, courseID string, who shared.Address) error {
	tag, err := r.q.Exec(ctx, `DELETE FROM enrollments WHERE course_id = $1 AND learner = $2`, courseID, who)
	if err != nil {
		return fmt.Errorf("failed to delete enrollment: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrEnrollmentNotFound
	}
	return nil
}

func (r enrollmentRepo) ListByLearner(ctx context.Context, who shared.Address) ([]*enrollment.Enrollment, error) {
	rows, err := r.q.Query(ctx, `SELECT `+enrollmentColumns+` FROM enrollments WHERE learner = $1 ORDER BY course_id`, who)
	if err != nil {
		return nil, fmt.Errorf("failed to list enrollments: %w", err)
	}
	defer rows.Close()

	var out []*enrollment.Enrollment
	for rows.Next() {
		e, err := scanEnrollment(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan enrollment: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func scanEnrollment(row pgx.Row) (*enrollment.Enrollment, error) {
	var (
		e           enrollment.Enrollment
		bits        []byte
		completedAt *time.Time
		asset       *string
	)
	if err := row.Scan(&e.CourseID, &e.Learner, &bits, &e.EnrolledAt, &completedAt, &asset); err != nil {
		return nil, err
	}
	lessons, err := bitset.FromBytes(bits)
	if err != nil {
		return nil, fmt.Errorf("enrollment %s/%s: %w", e.CourseID, e.Learner, err)
	}
	e.Lessons = lessons
	e.EnrolledAt = e.EnrolledAt.UTC()
	if completedAt != nil {
		t := completedAt.UTC()
		e.CompletedAt = &t
	}
	if asset != nil {
		a := shared.Address(*asset)
		e.CredentialAsset = &a
	}
	return &e, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// LEARNER REPOSITORY
// ══════════════════════════════════════════════════════════════════════════════

type learnerRepo struct{ q Querier }

const learnerColumns = `
	learner, total_xp, season, season_xp, xp_earned_today, last_activity,
	current_streak, longest_streak, streak_freezes, achievement_count,
	courses_completed, referred_by, referral_count, created_at`

func (r learnerRepo) Create(ctx context.Context, p *learner.Profile) error {
	_, err := r.q.Exec(ctx, `INSERT INTO learner_profiles (`+learnerColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`,
		learnerArgs(p)...,
	)
	if IsUniqueViolation(err) {
		return shared.ErrLearnerAlreadyExists
	}
	if err != nil {
		return fmt.Errorf("failed to create learner: %w", err)
	}
	return nil
}

func (r learnerRepo) Get(ctx context.Context, user shared.Address) (*learner.Profile, error) {
	row := r.q.QueryRow(ctx, `SELECT `+learnerColumns+` FROM learner_profiles WHERE learner = $1`, user)
	p, err := scanLearner(row)
	if IsNoRows(err) {
		return nil, shared.ErrLearnerNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get learner: %w", err)
	}
	return p, nil
}

func (r learnerRepo) Update(ctx context.Context, p *learner.Profile) error {
	tag, err := r.q.Exec(ctx, `
		UPDATE learner_profiles SET
			total_xp = $2,
			season = $3,
			season_xp = $4,
			xp_earned_today = $5,
			last_activity = $6,
			current_streak = $7,
			longest_streak = $8,
			streak_freezes = $9,
			achievement_count = $10,
			courses_completed = $11,
			referred_by = $12,
			referral_count = $13
		WHERE learner = $1
	`, learnerArgs(p)[:13]...)
	if err != nil {
		return fmt.Errorf("failed to update learner: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrLearnerNotFound
	}
	return nil
}

// learnerArgs is ordered like learnerColumns.
func learnerArgs(p *learner.Profile) []interface{} {
	return []interface{}{
		p.User,
		int64(p.TotalXP),
		int64(p.Season),
		int64(p.SeasonXP),
		int64(p.XPEarnedToday),
		p.LastActivity,
		int64(p.CurrentStreak),
		int64(p.LongestStreak),
		int64(p.StreakFreezes),
		int64(p.AchievementCount),
		int64(p.CoursesCompleted),
		p.ReferredBy,
		int64(p.ReferralCount),
		p.CreatedAt,
	}
}

func scanLearner(row pgx.Row) (*learner.Profile, error) {
	var (
		p                                      learner.Profile
		total, season, seasonXP, today         int64
		streak, longest, freezes, achievements int64
		completed, referrals                   int64
		referredBy                             *string
	)
	err := row.Scan(
		&p.User, &total, &season, &seasonXP, &today, &p.LastActivity,
		&streak, &longest, &freezes, &achievements,
		&completed, &referredBy, &referrals, &p.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	p.TotalXP = uint32(total)
	p.Season = uint32(season)
	p.SeasonXP = uint32(seasonXP)
	p.XPEarnedToday = uint32(today)
	p.CurrentStreak = uint32(streak)
	p.LongestStreak = uint32(longest)
	p.StreakFreezes = uint32(freezes)
	p.AchievementCount = uint32(achievements)
	p.CoursesCompleted = uint32(completed)
	p.ReferralCount = uint32(referrals)
	if referredBy != nil {
		a := shared.Address(*referredBy)
		p.ReferredBy = &a
	}
	p.LastActivity = p.LastActivity.UTC()
	p.CreatedAt = p.CreatedAt.UTC()
	return &p, nil
}
