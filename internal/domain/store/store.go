// Package store defines the unit of work every ledger transition runs in.
//
// A transition reads and writes only through the Tx it is given. When the
// function returns an error nothing it wrote becomes visible; when it
// returns nil every write, including the recorded events, commits together.
package store

import (
	"context"

	"github.com/alem-hub/academy-ledger/internal/domain/achievement"
	"github.com/alem-hub/academy-ledger/internal/domain/course"
	"github.com/alem-hub/academy-ledger/internal/domain/enrollment"
	"github.com/alem-hub/academy-ledger/internal/domain/governance"
	"github.com/alem-hub/academy-ledger/internal/domain/learner"
	"github.com/alem-hub/academy-ledger/internal/domain/minter"
	"github.com/alem-hub/academy-ledger/internal/domain/shared"
	"github.com/alem-hub/academy-ledger/internal/domain/token"
)

// Tx exposes the repositories bound to one transaction.
type Tx interface {
	Config() governance.Repository
	Courses() course.Repository
	Enrollments() enrollment.Repository
	Learners() learner.Repository
	Minters() minter.Repository
	Achievements() achievement.Repository
	Balances() token.Ledger
	Outbox() Outbox
}

// Outbox records events in the same transaction as the state they describe.
type Outbox interface {
	Append(ctx context.Context, events ...shared.Event) error
}

// UnitOfWork runs functions atomically.
type UnitOfWork interface {
	// Do runs fn in a read-write transaction. Transitions are applied in a
	// single global order.
	Do(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error

	// View runs fn against a consistent read-only snapshot.
	View(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
}
