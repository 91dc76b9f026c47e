// Package query contains read operations following CQRS pattern.
// Queries never modify state - they only read and return data.
package query

import (
	"context"
	"log/slog"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/alem-hub/academy-ledger/internal/domain/course"
	"github.com/alem-hub/academy-ledger/internal/domain/shared"
	"github.com/alem-hub/academy-ledger/internal/domain/store"
	"github.com/alem-hub/academy-ledger/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// COURSE CATALOG
// Read-through кеш каталога курсов. Инвалидируется событиями course.*
// и enrollment.course_finalized (меняется completion_count).
// ══════════════════════════════════════════════════════════════════════════════

// CourseDTO - представление курса для API.
type CourseDTO struct {
	CourseID                string    `json:"course_id"`
	Creator                 string    `json:"creator"`
	ContentRef              string    `json:"content_ref,omitempty"`
	LessonCount             uint32    `json:"lesson_count"`
	XPPerLesson             uint32    `json:"xp_per_lesson"`
	TotalXP                 uint64    `json:"total_xp"`
	Difficulty              uint8     `json:"difficulty,omitempty"`
	TrackID                 uint32    `json:"track_id"`
	TrackLevel              uint32    `json:"track_level"`
	Prerequisite            string    `json:"prerequisite,omitempty"`
	CreatorRewardXP         uint32    `json:"creator_reward_xp"`
	MinCompletionsForReward uint32    `json:"min_completions_for_reward"`
	CompletionCount         uint32    `json:"completion_count"`
	IsActive                bool      `json:"is_active"`
	CreatedAt               time.Time `json:"created_at"`
	UpdatedAt               time.Time `json:"updated_at"`
}

func toCourseDTO(c *course.Course) CourseDTO {
	return CourseDTO{
		CourseID:                c.CourseID,
		Creator:                 c.Creator.String(),
		ContentRef:              c.ContentRef,
		LessonCount:             c.LessonCount,
		XPPerLesson:             c.XPPerLesson,
		TotalXP:                 uint64(c.LessonCount) * uint64(c.XPPerLesson),
		Difficulty:              uint8(c.Difficulty),
		TrackID:                 c.TrackID,
		TrackLevel:              c.TrackLevel,
		Prerequisite:            c.Prerequisite,
		CreatorRewardXP:         c.CreatorRewardXP,
		MinCompletionsForReward: c.MinCompletionsForReward,
		CompletionCount:         c.CompletionCount,
		IsActive:                c.IsActive,
		CreatedAt:               c.CreatedAt,
		UpdatedAt:               c.UpdatedAt,
	}
}

// ListCoursesQuery - параметры списка курсов.
type ListCoursesQuery struct {
	ActiveOnly bool
	TrackID    *uint32
	Page       int
	PageSize   int
}

// ListCoursesResult - страница каталога.
type ListCoursesResult struct {
	Courses  []CourseDTO `json:"courses"`
	Page     int         `json:"page"`
	PageSize int         `json:"page_size"`
	HasMore  bool        `json:"has_more"`
}

// CourseCatalog обслуживает чтение курсов.
type CourseCatalog struct {
	uow    store.UnitOfWork
	cache  *gocache.Cache
	logger *slog.Logger
}

// NewCourseCatalog создаёт каталог. ttl <= 0 отключает кеш.
func NewCourseCatalog(uow store.UnitOfWork, ttl time.Duration, log *slog.Logger) *CourseCatalog {
	if log == nil {
		log = slog.Default()
	}
	cat := &CourseCatalog{uow: uow, logger: log.With(logger.Component("course_catalog"))}
	if ttl > 0 {
		cat.cache = gocache.New(ttl, 2*ttl)
	}
	return cat
}

// GetCourse возвращает курс по id.
func (c *CourseCatalog) GetCourse(ctx context.Context, courseID string) (*CourseDTO, error) {
	if err := course.ValidateID(courseID); err != nil {
		return nil, err
	}
	if c.cache != nil {
		if v, ok := c.cache.Get(courseID); ok {
			dto := v.(CourseDTO)
			return &dto, nil
		}
	}

	var dto CourseDTO
	err := c.uow.View(ctx, func(ctx context.Context, tx store.Tx) error {
		crs, err := tx.Courses().Get(ctx, courseID)
		if err != nil {
			return err
		}
		dto = toCourseDTO(crs)
		return nil
	})
	if err != nil {
		return nil, err
	}
	if c.cache != nil {
		c.cache.SetDefault(courseID, dto)
	}
	return &dto, nil
}

// ListCourses возвращает страницу каталога. Списки не кешируются.
// HasMore приблизителен: true, если страница заполнена целиком.
func (c *CourseCatalog) ListCourses(ctx context.Context, q ListCoursesQuery) (*ListCoursesResult, error) {
	page := shared.NewPagination(q.Page, q.PageSize)

	var courses []*course.Course
	err := c.uow.View(ctx, func(ctx context.Context, tx store.Tx) error {
		var err error
		courses, err = tx.Courses().List(ctx, course.ListOptions{
			ActiveOnly: q.ActiveOnly,
			TrackID:    q.TrackID,
			Pagination: page,
		})
		return err
	})
	if err != nil {
		return nil, err
	}

	res := &ListCoursesResult{
		Courses:  make([]CourseDTO, len(courses)),
		Page:     page.Page,
		PageSize: page.Limit(),
		HasMore:  len(courses) == page.Limit(),
	}
	for i, crs := range courses {
		res.Courses[i] = toCourseDTO(crs)
	}
	return res, nil
}

// Invalidate удаляет курс из кеша.
func (c *CourseCatalog) Invalidate(courseID string) {
	if c.cache == nil {
		return
	}
	c.cache.Delete(courseID)
	c.logger.Debug("course cache invalidated", logger.Course(courseID))
}

// CachedCount - сколько курсов сейчас в кеше.
func (c *CourseCatalog) CachedCount() int {
	if c.cache == nil {
		return 0
	}
	return c.cache.ItemCount()
}
