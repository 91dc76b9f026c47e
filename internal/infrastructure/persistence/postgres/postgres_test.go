package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alem-hub/academy-ledger/internal/domain/course"
	"github.com/alem-hub/academy-ledger/internal/domain/shared"
)

func TestConfigDSNAndPool(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Password = "secret"
	assert.Equal(t, "host=localhost port=5432 dbname=ledger user=postgres password=secret sslmode=disable connect_timeout=10", cfg.DSN())

	pc, err := cfg.PoolConfig()
	require.NoError(t, err)
	assert.Equal(t, int32(10), pc.MaxConns)
	assert.Equal(t, time.Hour, pc.MaxConnLifetime)

	cfg.URL = "postgres://u:p@db.internal:6543/other?sslmode=require"
	pc, err = cfg.PoolConfig()
	require.NoError(t, err)
	assert.Equal(t, "db.internal", pc.ConnConfig.Host)
	assert.Equal(t, "other", pc.ConnConfig.Database)
}

func TestErrorClassification(t *testing.T) {
	wrap := func(code string) error {
		return fmt.Errorf("commit error: %w", &pgconn.PgError{Code: code})
	}

	assert.True(t, IsSerializationFailure(wrap("40001")))
	assert.True(t, IsSerializationFailure(wrap("40P01")))
	assert.False(t, IsSerializationFailure(wrap("23505")))
	assert.False(t, IsSerializationFailure(shared.ErrCourseNotFound))
	assert.False(t, IsSerializationFailure(nil))

	assert.True(t, IsUniqueViolation(wrap("23505")))
	assert.True(t, IsForeignKeyViolation(wrap("23503")))
	assert.True(t, IsNoRows(fmt.Errorf("get: %w", pgx.ErrNoRows)))
	assert.False(t, IsNoRows(errors.New("other")))
}

func TestBuildCourseListQuery(t *testing.T) {
	q, args := buildCourseListQuery(course.ListOptions{})
	assert.NotContains(t, q, "WHERE")
	assert.NotContains(t, q, "LIMIT")
	assert.True(t, strings.HasSuffix(q, "ORDER BY course_id"))
	assert.Empty(t, args)

	track := uint32(3)
	q, args = buildCourseListQuery(course.ListOptions{
		ActiveOnly: true,
		TrackID:    &track,
		Pagination: shared.NewPagination(2, 10),
	})
	assert.Contains(t, q, "WHERE is_active AND track_id = $1")
	assert.Contains(t, q, "LIMIT $2 OFFSET $3")
	assert.Equal(t, []interface{}{int64(3), 10, 10}, args)
}

func TestParseBalance(t *testing.T) {
	v, err := parseBalance("18446744073709551615")
	require.NoError(t, err)
	assert.Equal(t, ^uint64(0), v)

	_, err = parseBalance("18446744073709551616")
	assert.Error(t, err)
	_, err = parseBalance("-1")
	assert.Error(t, err)
}

func TestMigrationsAreOrdered(t *testing.T) {
	migs := GetMigrations()
	require.NotEmpty(t, migs)
	for i, m := range migs {
		assert.Equal(t, i+1, m.Version)
		assert.NotEmpty(t, m.UpSQL, m.Name)
		assert.NotEmpty(t, m.DownSQL, m.Name)
	}
	assert.Contains(t, migs[0].UpSQL, "PRIMARY KEY (achievement_id, recipient)")
	assert.Contains(t, migs[2].UpSQL, "ledger_events")
}

func TestTxOptions(t *testing.T) {
	assert.Equal(t, pgx.Serializable, ledgerTx.IsoLevel)
	assert.Equal(t, pgx.ReadOnly, snapshotTx.AccessMode)
	assert.Equal(t, pgx.Deferrable, snapshotTx.DeferrableMode)
	assert.Equal(t, pgx.ReadCommitted, schemaTx.IsoLevel)
}

func TestMarkApplied(t *testing.T) {
	at := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	migs := GetMigrations()
	out := markApplied(migs, map[int]time.Time{1: at})

	require.Len(t, out, len(migs))
	assert.True(t, out[0].IsApplied)
	assert.Equal(t, at, out[0].AppliedAt)
	assert.False(t, out[1].IsApplied)
	assert.False(t, migs[0].IsApplied, "input must not be modified")
}

func TestClosedConnection(t *testing.T) {
	c := &Connection{}
	c.closed.Store(true)
	c.Close()
	assert.ErrorIs(t, c.Ping(context.Background()), ErrConnectionClosed)
	assert.ErrorIs(t, c.WithTx(context.Background(), ledgerTx, func(pgx.Tx) error { return nil }), ErrConnectionClosed)
	_, err := c.Query(context.Background(), "SELECT 1")
	assert.ErrorIs(t, err, ErrConnectionClosed)
}
