package sqldb

import (
	"context"
	"database/sql"
	"strings"
	"testing"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/forkserve/readerpool"
	"github.com/forkserve/readerpool/journal"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()

	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	config := Config{Dialect: DialectSQLite}
	_, err = db.Exec(MigrationUp(config))
	require.NoError(t, err)

	return NewWithConfig(db, config)
}

func TestStore_RecordAndRecent(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Record(ctx, journal.Event{
		Type:         journal.EventSpawn,
		Pid:          5,
		GenerationID: "gen-1",
	}))
	require.NoError(t, store.Record(ctx, journal.Event{
		Type:         journal.EventExit,
		Pid:          5,
		GenerationID: "gen-1",
		Detail:       "signalled",
	}))

	events, err := store.Recent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, events, 2)

	assert.Equal(t, journal.EventExit, events[0].Type)
	assert.Equal(t, readerpool.Pid(5), events[0].Pid)
	assert.Equal(t, "signalled", events[0].Detail)
	assert.Equal(t, journal.EventSpawn, events[1].Type)
	assert.False(t, events[1].At.IsZero())
}

func TestStore_RecentHonorsLimit(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	for pid := 1; pid <= 5; pid++ {
		require.NoError(t, store.Record(ctx, journal.Event{
			Type: journal.EventSpawn,
			Pid:  readerpool.Pid(pid),
		}))
	}

	events, err := store.Recent(ctx, 2)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, readerpool.Pid(5), events[0].Pid)
	assert.Equal(t, readerpool.Pid(4), events[1].Pid)
}

func TestStore_RecentZeroLimit(t *testing.T) {
	store := newTestStore(t)

	events, err := store.Recent(context.Background(), 0)
	require.NoError(t, err)
	assert.Empty(t, events)
}

func TestStore_ClosedFailsFurtherCalls(t *testing.T) {
	store := newTestStore(t)
	require.NoError(t, store.Close())

	err := store.Record(context.Background(), journal.Event{Type: journal.EventSpawn})
	assert.ErrorIs(t, err, journal.ErrClosed)

	_, err = store.Recent(context.Background(), 1)
	assert.ErrorIs(t, err, journal.ErrClosed)
}

func TestStore_CustomTableName(t *testing.T) {
	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	config := Config{Table: "pool_audit", Dialect: DialectSQLite}
	_, err = db.Exec(MigrationUp(config))
	require.NoError(t, err)

	store := NewWithConfig(db, config)
	require.NoError(t, store.Record(context.Background(), journal.Event{Type: journal.EventRotate}))

	var count int
	require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM pool_audit").Scan(&count))
	assert.Equal(t, 1, count)
}

func TestPlaceholders_ByDialect(t *testing.T) {
	pg := NewWithConfig(nil, Config{Dialect: DialectPostgres})
	assert.Equal(t, "$1, $2, $3", pg.placeholders(3))

	lite := NewWithConfig(nil, Config{Dialect: DialectSQLite})
	assert.Equal(t, "?, ?, ?", lite.placeholders(3))

	my := NewWithConfig(nil, Config{Dialect: DialectMySQL})
	assert.Equal(t, "?, ?", my.placeholders(2))
}

func TestMigrationUp_DialectColumnTypes(t *testing.T) {
	pg := MigrationUp(Config{Dialect: DialectPostgres})
	assert.True(t, strings.Contains(pg, "BIGSERIAL"))
	assert.True(t, strings.Contains(pg, "TIMESTAMPTZ"))

	my := MigrationUp(Config{Dialect: DialectMySQL})
	assert.True(t, strings.Contains(my, "AUTO_INCREMENT"))

	lite := MigrationUp(Config{Dialect: DialectSQLite})
	assert.True(t, strings.Contains(lite, "AUTOINCREMENT"))
}

func TestMigrationDown_DropsTable(t *testing.T) {
	stmt := MigrationDown(Config{Table: "pool_audit"})
	assert.Contains(t, stmt, "DROP TABLE IF EXISTS pool_audit")
}
