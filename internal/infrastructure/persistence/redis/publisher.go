package redis

import (
	"context"
	"log/slog"
	"time"

	"github.com/alem-hub/academy-ledger/internal/domain/shared"
	"github.com/alem-hub/academy-ledger/pkg/logger"
)

// Envelope is the JSON message published for each event.
type Envelope struct {
	ID          string                 `json:"id"`
	Type        string                 `json:"type"`
	AggregateID string                 `json:"aggregate_id"`
	OccurredAt  time.Time              `json:"occurred_at"`
	Payload     map[string]interface{} `json:"payload"`
}

// NewEnvelope wraps ev.
func NewEnvelope(ev shared.Event) Envelope {
	return Envelope{
		ID:          ev.EventID(),
		Type:        string(ev.EventType()),
		AggregateID: ev.AggregateID(),
		OccurredAt:  ev.OccurredAt(),
		Payload:     ev.Payload(),
	}
}

// EventPublisher publishes committed events to "ledger:events:{type}".
type EventPublisher struct {
	cache   *Cache
	timeout time.Duration
	logger  *slog.Logger
}

var _ shared.EventPublisher = (*EventPublisher)(nil)

// NewEventPublisher creates a publisher. Each publish is bounded by timeout.
func NewEventPublisher(cache *Cache, timeout time.Duration, log *slog.Logger) *EventPublisher {
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	if log == nil {
		log = slog.Default()
	}
	return &EventPublisher{cache: cache, timeout: timeout, logger: log.With(logger.Component("redis_publisher"))}
}

// Publish implements shared.EventPublisher.
func (p *EventPublisher) Publish(ev shared.Event) error {
	ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
	defer cancel()

	channel := PubSubChannel(string(ev.EventType()))
	if err := p.cache.Publish(ctx, channel, NewEnvelope(ev)); err != nil {
		return err
	}
	p.logger.Debug("event published", slog.String("channel", channel), slog.String("event_id", ev.EventID()))
	return nil
}
