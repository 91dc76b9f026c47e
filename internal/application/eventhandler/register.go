package eventhandler

import (
	"fmt"

	"github.com/alem-hub/academy-ledger/internal/domain/shared"
)

// Handlers - набор обработчиков; nil-поля пропускаются.
type Handlers struct {
	XPCredited    *OnXPCreditedHandler
	CourseChanged *OnCourseChangedHandler
}

// Register подписывает обработчики на шину.
func Register(bus shared.EventSubscriber, h Handlers) error {
	if h.XPCredited != nil {
		if err := bus.Subscribe(shared.EventXPCredited, h.XPCredited.Handle); err != nil {
			return fmt.Errorf("subscribe %s: %w", shared.EventXPCredited, err)
		}
	}
	if h.CourseChanged != nil {
		for _, t := range CourseEvents {
			if err := bus.Subscribe(t, h.CourseChanged.Handle); err != nil {
				return fmt.Errorf("subscribe %s: %w", t, err)
			}
		}
	}
	return nil
}
