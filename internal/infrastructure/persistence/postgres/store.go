package postgres

import (
	"context"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/alem-hub/academy-ledger/internal/domain/achievement"
	"github.com/alem-hub/academy-ledger/internal/domain/course"
	"github.com/alem-hub/academy-ledger/internal/domain/enrollment"
	"github.com/alem-hub/academy-ledger/internal/domain/governance"
	"github.com/alem-hub/academy-ledger/internal/domain/learner"
	"github.com/alem-hub/academy-ledger/internal/domain/minter"
	"github.com/alem-hub/academy-ledger/internal/domain/store"
	"github.com/alem-hub/academy-ledger/internal/domain/token"
	"github.com/alem-hub/academy-ledger/pkg/logger"
	"github.com/alem-hub/academy-ledger/pkg/retry"
)

// ══════════════════════════════════════════════════════════════════════════════
// UNIT OF WORK
// ══════════════════════════════════════════════════════════════════════════════

// Store implements store.UnitOfWork on PostgreSQL.
type Store struct {
	conn    *Connection
	retrier *retry.Retrier
	logger  *slog.Logger
}

var _ store.UnitOfWork = (*Store)(nil)

// NewStore creates a store over an open connection.
func NewStore(conn *Connection, log *slog.Logger) *Store {
	if log == nil {
		log = slog.Default()
	}
	s := &Store{conn: conn, logger: log.With(logger.Component("postgres_store"))}
	s.retrier = retry.TransactionRetrier(IsSerializationFailure, func(attempt int, err error, delay time.Duration) {
		s.logger.Debug("replaying transaction after serialization failure",
			"attempt", attempt,
			"delay", delay,
			logger.Err(err),
		)
	})
	return s
}

// Do runs fn in a SERIALIZABLE transaction. On a serialization failure the
// transaction is rolled back and fn runs again from a fresh read, so fn must
// not have effects outside tx.
func (s *Store) Do(ctx context.Context, fn func(ctx context.Context, tx store.Tx) error) error {
	return s.retrier.Do(ctx, func(ctx context.Context) error {
		return s.conn.WithTx(ctx, ledgerTx, func(tx pgx.Tx) error {
			return fn(ctx, newTx(tx))
		})
	})
}

// View runs fn in a read-only deferrable transaction.
func (s *Store) View(ctx context.Context, fn func(ctx context.Context, tx store.Tx) error) error {
	return s.conn.WithTx(ctx, snapshotTx, func(tx pgx.Tx) error {
		return fn(ctx, newTx(tx))
	})
}

// Ping checks the database.
func (s *Store) Ping(ctx context.Context) error {
	return s.conn.Ping(ctx)
}

// Migrate applies pending schema migrations.
func (s *Store) Migrate(ctx context.Context) error {
	return NewMigrator(s.conn).Migrate(ctx)
}

type sqlTx struct{ q Querier }

func newTx(q Querier) sqlTx { return sqlTx{q: q} }

func (t sqlTx) Config() governance.Repository      { return configRepo{t.q} }
func (t sqlTx) Courses() course.Repository         { return courseRepo{t.q} }
func (t sqlTx) Enrollments() enrollment.Repository { return enrollmentRepo{t.q} }
func (t sqlTx) Learners() learner.Repository       { return learnerRepo{t.q} }
func (t sqlTx) Minters() minter.Repository         { return minterRepo{t.q} }
func (t sqlTx) Achievements() achievement.Repository {
	return achievementRepo{t.q}
}
func (t sqlTx) Balances() token.Ledger { return balanceRepo{t.q} }
func (t sqlTx) Outbox() store.Outbox   { return outbox{t.q} }
