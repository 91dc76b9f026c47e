package eventhandler

import (
	"log/slog"

	"github.com/alem-hub/academy-ledger/internal/domain/shared"
	"github.com/alem-hub/academy-ledger/pkg/logger"
)

// CatalogInvalidator - то, что умеет выбросить курс из кеша чтения.
type CatalogInvalidator interface {
	Invalidate(courseID string)
}

// OnCourseChangedHandler сбрасывает кеш каталога, когда курс меняется:
// обновление полей или очередное завершение (растёт completion_count).
type OnCourseChangedHandler struct {
	catalog CatalogInvalidator
	logger  *slog.Logger
}

// NewOnCourseChangedHandler создаёт обработчик.
func NewOnCourseChangedHandler(catalog CatalogInvalidator, log *slog.Logger) *OnCourseChangedHandler {
	if log == nil {
		log = slog.Default()
	}
	return &OnCourseChangedHandler{catalog: catalog, logger: log.With("handler", "on_course_changed")}
}

// Handle реализует shared.EventHandler.
func (h *OnCourseChangedHandler) Handle(event shared.Event) error {
	var courseID string
	switch e := event.(type) {
	case shared.CourseCreatedEvent:
		courseID = e.CourseID
	case shared.CourseUpdatedEvent:
		courseID = e.CourseID
	case shared.CourseFinalizedEvent:
		courseID = e.CourseID
	default:
		return nil
	}
	h.catalog.Invalidate(courseID)
	h.logger.Debug("catalog entry invalidated", logger.Course(courseID), "event_type", event.EventType())
	return nil
}

// CourseEvents - события, после которых запись каталога устаревает.
var CourseEvents = []shared.EventType{
	shared.EventCourseCreated,
	shared.EventCourseUpdated,
	shared.EventCourseFinalized,
}
