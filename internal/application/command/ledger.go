// Package command contains write operations (CQRS - Commands).
//
// Every exported method of Ledger is one atomic transition: it validates the
// command, runs inside a single unit of work, records its events in the
// outbox, and publishes them only after the commit succeeded. A failed
// transition leaves no trace in the store.
package command

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/alem-hub/academy-ledger/internal/domain/credential"
	"github.com/alem-hub/academy-ledger/internal/domain/enrollment"
	"github.com/alem-hub/academy-ledger/internal/domain/governance"
	"github.com/alem-hub/academy-ledger/internal/domain/learner"
	"github.com/alem-hub/academy-ledger/internal/domain/shared"
	"github.com/alem-hub/academy-ledger/internal/domain/store"
	"github.com/alem-hub/academy-ledger/internal/domain/token"
	"github.com/alem-hub/academy-ledger/pkg/logger"
	"github.com/alem-hub/academy-ledger/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// CONFIGURATION
// ══════════════════════════════════════════════════════════════════════════════

// Rules are the tunable limits of the ledger.
type Rules struct {
	// DailyXPCap bounds learning XP per learner per day.
	DailyXPCap uint32

	// MaxStreakFreezes bounds accumulated streak freezes.
	MaxStreakFreezes uint32

	// CloseCooldown is how long an unfinished enrollment must exist before
	// its learner may close it.
	CloseCooldown time.Duration
}

// DefaultRules returns the production limits.
func DefaultRules() Rules {
	return Rules{
		DailyXPCap:       learner.DefaultDailyXPCap,
		MaxStreakFreezes: learner.MaxStreakFreezes,
		CloseCooldown:    enrollment.DefaultCloseCooldown,
	}
}

// Dependencies are the collaborators of Ledger. UnitOfWork is required.
type Dependencies struct {
	UnitOfWork     store.UnitOfWork
	Issuer         credential.Issuer
	EventPublisher shared.EventPublisher
	Clock          timeutil.Clock
	Logger         *slog.Logger
	Tracer         trace.Tracer
}

// Ledger executes transitions.
type Ledger struct {
	uow       store.UnitOfWork
	issuer    credential.Issuer
	publisher shared.EventPublisher
	clock     timeutil.Clock
	logger    *slog.Logger
	tracer    trace.Tracer
	rules     Rules
}

// NewLedger creates a Ledger. Zero rules fall back to DefaultRules.
func NewLedger(deps Dependencies, rules Rules) *Ledger {
	if rules == (Rules{}) {
		rules = DefaultRules()
	}
	if deps.Clock == nil {
		deps.Clock = timeutil.SystemClock{}
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Tracer == nil {
		deps.Tracer = otel.Tracer("github.com/alem-hub/academy-ledger/command")
	}
	return &Ledger{
		uow:       deps.UnitOfWork,
		issuer:    deps.Issuer,
		publisher: deps.EventPublisher,
		clock:     deps.Clock,
		logger:    deps.Logger.With(logger.Component("ledger")),
		tracer:    deps.Tracer,
		rules:     rules,
	}
}

// Rules returns the active limits.
func (l *Ledger) Rules() Rules { return l.rules }

// Result carries the events a transition emitted.
type Result struct {
	Events []shared.Event
}

// ══════════════════════════════════════════════════════════════════════════════
// EXECUTION
// ══════════════════════════════════════════════════════════════════════════════

// txContext is what a transition body sees.
type txContext struct {
	tx          store.Tx
	now         time.Time
	events      []shared.Event
	afterCommit []commitHook
	corrID      string
}

// commitHook is an external side effect that must happen once per
// committed transition.
type commitHook struct {
	name string
	fn   func(ctx context.Context) error
}

func (c *txContext) emit(ev shared.Event) {
	c.events = append(c.events, ev)
}

// onCommit defers fn until the unit of work has committed. Hooks of a
// rolled back or retried attempt are dropped.
func (c *txContext) onCommit(name string, fn func(ctx context.Context) error) {
	c.afterCommit = append(c.afterCommit, commitHook{name: name, fn: fn})
}

func (c *txContext) base(t shared.EventType, aggregateID string) shared.BaseEvent {
	b := shared.NewBaseEvent(t, aggregateID, c.now)
	if c.corrID != "" {
		b = b.WithCorrelationID(c.corrID)
	}
	return b
}

type correlationKey struct{}

// WithCorrelationID tags the events of transitions run with ctx.
func WithCorrelationID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, correlationKey{}, id)
}

// execute runs body in one unit of work. The body may run more than once
// when the store retries a conflicting transaction, so it must only touch
// state through tc. External side effects go through tc.onCommit.
func (l *Ledger) execute(
	ctx context.Context,
	op string,
	caller shared.Address,
	body func(ctx context.Context, tc *txContext) error,
) ([]shared.Event, error) {
	ctx, span := l.tracer.Start(ctx, "ledger."+op, trace.WithAttributes(
		attribute.String("ledger.caller", caller.String()),
	))
	defer span.End()

	start := time.Now()
	now := l.clock.Now().UTC()
	corrID, _ := ctx.Value(correlationKey{}).(string)

	var (
		committed []shared.Event
		hooks     []commitHook
	)
	err := l.uow.Do(ctx, func(ctx context.Context, tx store.Tx) error {
		committed, hooks = nil, nil
		tc := &txContext{tx: tx, now: now, corrID: corrID}
		if err := body(ctx, tc); err != nil {
			return err
		}
		if err := tx.Outbox().Append(ctx, tc.events...); err != nil {
			return err
		}
		committed, hooks = tc.events, tc.afterCommit
		return nil
	})

	log := l.logger.With(logger.Operation(op), logger.Caller(caller.String()), logger.Latency(time.Since(start)))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		if kind := shared.KindOf(err); kind != nil {
			span.SetAttributes(attribute.String("ledger.error_kind", kind.Error()))
			log.Info("transition rejected", slog.String("code", shared.CodeOf(err)), logger.Err(err))
		} else {
			log.Error("transition failed", logger.Err(err))
		}
		return nil, err
	}

	span.SetAttributes(attribute.Int("ledger.events", len(committed)))
	log.Debug("transition committed", slog.Int("events", len(committed)))
	l.runHooks(ctx, log, hooks)
	l.publish(ctx, committed)
	return committed, nil
}

// runHooks runs the post-commit side effects in order. The transition has
// already committed, so a failing hook is logged and the rest still run.
func (l *Ledger) runHooks(ctx context.Context, log *slog.Logger, hooks []commitHook) {
	for _, h := range hooks {
		if err := h.fn(ctx); err != nil {
			trace.SpanFromContext(ctx).RecordError(err)
			log.ErrorContext(ctx, "post-commit step failed", slog.String("step", h.name), logger.Err(err))
		}
	}
}

// publish fans committed events out. Delivery failures are logged; the
// outbox still holds the events.
func (l *Ledger) publish(ctx context.Context, events []shared.Event) {
	if l.publisher == nil {
		return
	}
	for _, ev := range events {
		if err := l.publisher.Publish(ev); err != nil {
			l.logger.WarnContext(ctx, "event publish failed",
				slog.String("event_type", string(ev.EventType())),
				slog.String("event_id", ev.EventID()),
				logger.Err(err),
			)
		}
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// SHARED STEPS
// ══════════════════════════════════════════════════════════════════════════════

func (l *Ledger) loadConfig(ctx context.Context, tc *txContext) (*governance.Config, error) {
	return tc.tx.Config().Get(ctx)
}

// creditToken adds amount to owner's XP balance and records xp.credited.
func (l *Ledger) creditToken(
	ctx context.Context,
	tc *txContext,
	cfg *governance.Config,
	owner shared.Address,
	amount uint64,
	reason string,
) error {
	if amount == 0 {
		return nil
	}
	ref := token.AccountRef{Mint: cfg.XPMint, Owner: owner}
	bal, err := tc.tx.Balances().Credit(ctx, ref, amount, tc.now)
	if err != nil {
		return err
	}
	tc.emit(shared.XPCreditedEvent{
		BaseEvent:  tc.base(shared.EventXPCredited, owner.String()),
		Mint:       cfg.XPMint,
		Owner:      owner,
		Amount:     amount,
		Reason:     reason,
		NewBalance: bal,
	})
	return nil
}

// creditActivity applies learning XP: daily cap, season and streak
// accounting on the profile, then the token credit. The caller persists
// the profile.
func (l *Ledger) creditActivity(
	ctx context.Context,
	tc *txContext,
	cfg *governance.Config,
	profile *learner.Profile,
	amount uint32,
	reason string,
) (learner.CreditResult, error) {
	res, err := profile.CreditXP(amount, tc.now, learner.Rules{
		DailyCap: l.rules.DailyXPCap,
		Season:   cfg.CurrentSeason,
	})
	if err != nil {
		return res, err
	}
	if err := l.creditToken(ctx, tc, cfg, profile.User, uint64(amount), reason); err != nil {
		return res, err
	}
	return res, nil
}

// requireCaller rejects an empty or malformed caller before any lookup.
func requireCaller(caller shared.Address) error {
	if !caller.IsValid() {
		return shared.NewDomainError("ledger", "Authenticate", shared.ErrUnauthorized, "missing_caller", "caller identity is missing or malformed")
	}
	return nil
}

// IsRejection reports whether err is a ledger rejection rather than an
// infrastructure failure.
func IsRejection(err error) bool {
	var de *shared.DomainError
	return errors.As(err, &de) && shared.KindOf(err) != nil
}
