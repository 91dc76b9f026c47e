package messaging

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alem-hub/academy-ledger/internal/domain/shared"
	"github.com/alem-hub/academy-ledger/pkg/logger"
)

func credited(owner shared.Address, balance uint64) shared.Event {
	return shared.XPCreditedEvent{
		BaseEvent:  shared.NewBaseEvent(shared.EventXPCredited, string(owner), time.Now()),
		Mint:       "xp-mint",
		Owner:      owner,
		Amount:     balance,
		NewBalance: balance,
	}
}

func syncBus() *InMemoryEventBus {
	return NewInMemoryEventBus(InMemoryEventBusConfig{Logger: logger.Discard(), EnableMetrics: true})
}

func TestInMemoryEventBusRoutesByType(t *testing.T) {
	bus := syncBus()
	var typed, all []shared.EventType

	require.NoError(t, bus.Subscribe(shared.EventXPCredited, func(e shared.Event) error {
		typed = append(typed, e.EventType())
		return nil
	}))
	require.NoError(t, bus.SubscribeAll(func(e shared.Event) error {
		all = append(all, e.EventType())
		return nil
	}))

	require.NoError(t, bus.Publish(credited("alice", 10)))
	require.NoError(t, bus.Publish(shared.EnrolledEvent{
		BaseEvent: shared.NewBaseEvent(shared.EventEnrolled, "go-101", time.Now()),
	}))

	assert.Equal(t, []shared.EventType{shared.EventXPCredited}, typed)
	assert.Equal(t, []shared.EventType{shared.EventXPCredited, shared.EventEnrolled}, all)

	snap := bus.Metrics().Snapshot()
	assert.Equal(t, int64(2), snap.Published)
	assert.Equal(t, int64(3), snap.Succeeded)
}

func TestInMemoryEventBusSwallowsHandlerFailures(t *testing.T) {
	bus := syncBus()
	var after bool

	require.NoError(t, bus.SubscribeAll(func(shared.Event) error { return errors.New("boom") }))
	require.NoError(t, bus.SubscribeAll(func(shared.Event) error { panic("kaboom") }))
	require.NoError(t, bus.SubscribeAll(func(shared.Event) error {
		after = true
		return nil
	}))

	require.NoError(t, bus.Publish(credited("alice", 1)))
	assert.True(t, after)

	snap := bus.Metrics().Snapshot()
	assert.Equal(t, int64(2), snap.Failed)
	assert.Equal(t, int64(2), snap.FailedByType[shared.EventXPCredited])
}

func TestInMemoryEventBusAsync(t *testing.T) {
	cfg := DefaultInMemoryEventBusConfig()
	cfg.Logger = logger.Discard()
	cfg.WorkerPoolSize = 2
	bus := NewInMemoryEventBus(cfg)

	var n atomic.Int64
	require.NoError(t, bus.Subscribe(shared.EventXPCredited, func(shared.Event) error {
		n.Add(1)
		return nil
	}))
	for i := 0; i < 20; i++ {
		require.NoError(t, bus.Publish(credited("alice", uint64(i))))
	}
	bus.Wait()
	assert.Equal(t, int64(20), n.Load())

	require.NoError(t, bus.Close())
	require.NoError(t, bus.Close())
	assert.ErrorIs(t, bus.Publish(credited("alice", 1)), ErrEventBusClosed)
	assert.ErrorIs(t, bus.SubscribeAll(func(shared.Event) error { return nil }), ErrEventBusClosed)
}

func TestInMemoryEventBusMiddlewareOrder(t *testing.T) {
	bus := syncBus()
	var mu sync.Mutex
	var trace []string
	mark := func(name string) Middleware {
		return func(next shared.EventHandler) shared.EventHandler {
			return func(e shared.Event) error {
				mu.Lock()
				trace = append(trace, name)
				mu.Unlock()
				return next(e)
			}
		}
	}
	bus.Use(mark("outer"), mark("inner"), LoggingMiddleware(logger.Discard()))
	require.NoError(t, bus.SubscribeAll(func(shared.Event) error {
		trace = append(trace, "handler")
		return nil
	}))

	require.NoError(t, bus.Publish(credited("bob", 5)))
	assert.Equal(t, []string{"outer", "inner", "handler"}, trace)
}

func TestInMemoryEventBusRejectsNil(t *testing.T) {
	bus := syncBus()
	assert.ErrorIs(t, bus.Subscribe(shared.EventXPCredited, nil), ErrNilHandler)
	assert.ErrorIs(t, bus.Publish(nil), ErrNilEvent)
}

type failingPublisher struct{ calls int }

func (p *failingPublisher) Publish(shared.Event) error {
	p.calls++
	return errors.New("unreachable")
}

func TestFanoutDeliversToAllTargets(t *testing.T) {
	bus := syncBus()
	var got int
	require.NoError(t, bus.SubscribeAll(func(shared.Event) error {
		got++
		return nil
	}))
	broken := &failingPublisher{}

	f := NewFanout(broken, nil, bus)
	assert.Equal(t, 2, f.Len())

	err := f.Publish(credited("alice", 3))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "target 0")
	assert.Equal(t, 1, broken.calls)
	assert.Equal(t, 1, got)

	assert.NoError(t, NewFanout().Publish(credited("alice", 3)))
}
