package messaging

import (
	"errors"
	"fmt"

	"github.com/alem-hub/academy-ledger/internal/domain/shared"
)

// Fanout publishes every event to each target in order. One failing target
// does not stop delivery to the rest; all failures are joined.
type Fanout struct {
	targets []shared.EventPublisher
}

// NewFanout skips nil targets.
func NewFanout(targets ...shared.EventPublisher) *Fanout {
	f := &Fanout{}
	for _, t := range targets {
		if t != nil {
			f.targets = append(f.targets, t)
		}
	}
	return f
}

// Publish implements shared.EventPublisher.
func (f *Fanout) Publish(event shared.Event) error {
	var errs []error
	for i, t := range f.targets {
		if err := t.Publish(event); err != nil {
			errs = append(errs, fmt.Errorf("target %d: %w", i, err))
		}
	}
	return errors.Join(errs...)
}

// Len returns the number of targets.
func (f *Fanout) Len() int { return len(f.targets) }
