package postgres

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/jackc/pgx/v5"
)

// migrationLockID serializes migrators started by several replicas at once.
const migrationLockID int64 = 0x6c6564676572 // "ledger"

// Migration is one schema step. AppliedAt is zero while pending.
type Migration struct {
	Version   int
	Name      string
	UpSQL     string
	DownSQL   string
	AppliedAt time.Time
	IsApplied bool
}

// Migrator applies the embedded schema to the ledger database.
type Migrator struct {
	conn       *Connection
	migrations []Migration
}

// NewMigrator creates a migrator over the embedded migrations.
func NewMigrator(conn *Connection) *Migrator {
	migs := GetMigrations()
	sort.Slice(migs, func(i, j int) bool { return migs[i].Version < migs[j].Version })
	return &Migrator{conn: conn, migrations: migs}
}

const createSchemaTable = `
	CREATE TABLE IF NOT EXISTS schema_migrations (
		version INTEGER PRIMARY KEY,
		name TEXT NOT NULL,
		applied_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
	)`

// step runs fn in a schema transaction holding the migration lock.
func (m *Migrator) step(ctx context.Context, fn func(tx pgx.Tx, applied map[int]time.Time) error) error {
	err := m.conn.WithTx(ctx, schemaTx, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock($1)`, migrationLockID); err != nil {
			return fmt.Errorf("lock: %w", err)
		}
		if _, err := tx.Exec(ctx, createSchemaTable); err != nil {
			return fmt.Errorf("create schema_migrations: %w", err)
		}
		applied, err := appliedVersions(ctx, tx)
		if err != nil {
			return err
		}
		return fn(tx, applied)
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrMigrationFailed, err)
	}
	return nil
}

func appliedVersions(ctx context.Context, tx pgx.Tx) (map[int]time.Time, error) {
	rows, err := tx.Query(ctx, `SELECT version, applied_at FROM schema_migrations`)
	if err != nil {
		return nil, fmt.Errorf("read schema_migrations: %w", err)
	}
	defer rows.Close()

	applied := make(map[int]time.Time)
	for rows.Next() {
		var (
			version int
			at      time.Time
		)
		if err := rows.Scan(&version, &at); err != nil {
			return nil, fmt.Errorf("scan schema_migrations: %w", err)
		}
		applied[version] = at.UTC()
	}
	return applied, rows.Err()
}

// Migrate applies every pending migration in version order inside one
// transaction, so a failure leaves the schema where it was.
func (m *Migrator) Migrate(ctx context.Context) error {
	return m.step(ctx, func(tx pgx.Tx, applied map[int]time.Time) error {
		for _, mig := range m.migrations {
			if _, ok := applied[mig.Version]; ok {
				continue
			}
			if mig.UpSQL == "" {
				return fmt.Errorf("migration %d has no up SQL", mig.Version)
			}
			if _, err := tx.Exec(ctx, mig.UpSQL); err != nil {
				return fmt.Errorf("apply %03d_%s: %w", mig.Version, mig.Name, err)
			}
			if _, err := tx.Exec(ctx,
				`INSERT INTO schema_migrations (version, name) VALUES ($1, $2)`,
				mig.Version, mig.Name); err != nil {
				return fmt.Errorf("record %03d_%s: %w", mig.Version, mig.Name, err)
			}
		}
		return nil
	})
}

// Rollback reverts the most recent applied migration. It is a no-op on an
// empty schema.
func (m *Migrator) Rollback(ctx context.Context) error {
	return m.step(ctx, func(tx pgx.Tx, applied map[int]time.Time) error {
		for i := len(m.migrations) - 1; i >= 0; i-- {
			mig := m.migrations[i]
			if _, ok := applied[mig.Version]; !ok {
				continue
			}
			if mig.DownSQL == "" {
				return fmt.Errorf("migration %d has no down SQL", mig.Version)
			}
			if _, err := tx.Exec(ctx, mig.DownSQL); err != nil {
				return fmt.Errorf("revert %03d_%s: %w", mig.Version, mig.Name, err)
			}
			_, err := tx.Exec(ctx, `DELETE FROM schema_migrations WHERE version = $1`, mig.Version)
			return err
		}
		return nil
	})
}

// Status lists the embedded migrations with their applied state.
func (m *Migrator) Status(ctx context.Context) ([]Migration, error) {
	var out []Migration
	err := m.step(ctx, func(_ pgx.Tx, applied map[int]time.Time) error {
		out = markApplied(m.migrations, applied)
		return nil
	})
	return out, err
}

func markApplied(migs []Migration, applied map[int]time.Time) []Migration {
	out := make([]Migration, len(migs))
	copy(out, migs)
	for i := range out {
		if at, ok := applied[out[i].Version]; ok {
			out[i].IsApplied = true
			out[i].AppliedAt = at
		}
	}
	return out
}

// GetMigrations returns the embedded schema.
func GetMigrations() []Migration {
	return []Migration{
		{Version: 1, Name: "create_ledger_state", UpSQL: migration001Up, DownSQL: migration001Down},
		{Version: 2, Name: "create_token_accounts", UpSQL: migration002Up, DownSQL: migration002Down},
		{Version: 3, Name: "create_event_outbox", UpSQL: migration003Up, DownSQL: migration003Down},
	}
}
