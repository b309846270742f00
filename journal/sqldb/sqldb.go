// Package sqldb provides a database/sql implementation of journal.Journal.
// It works against any driver the caller registers; the Dialect setting
// only controls placeholder style and column types in the migration SQL.
package sqldb

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/forkserve/readerpool"
	"github.com/forkserve/readerpool/journal"
)

// Dialect selects the SQL flavor used for placeholders and migrations.
type Dialect string

const (
	// DialectPostgres uses $1-style placeholders and TIMESTAMPTZ columns.
	DialectPostgres Dialect = "postgres"

	// DialectSQLite uses ?-style placeholders.
	DialectSQLite Dialect = "sqlite"

	// DialectMySQL uses ?-style placeholders and DATETIME columns.
	DialectMySQL Dialect = "mysql"
)

// Config configures the SQL journal store.
type Config struct {
	// Table is the events table name. Defaults to "readerpool_events".
	Table string

	// Dialect selects placeholder style. Defaults to DialectPostgres.
	Dialect Dialect
}

// Store is a SQL implementation of journal.Journal.
type Store struct {
	db      *sql.DB
	table   string
	dialect Dialect

	mu     sync.Mutex
	closed bool
}

var _ journal.Journal = (*Store)(nil)

// New creates a SQL journal store with default configuration.
func New(db *sql.DB) *Store {
	return NewWithConfig(db, Config{})
}

// NewWithConfig creates a SQL journal store with a custom table name
// and dialect.
func NewWithConfig(db *sql.DB, config Config) *Store {
	if config.Table == "" {
		config.Table = "readerpool_events"
	}
	if config.Dialect == "" {
		config.Dialect = DialectPostgres
	}
	return &Store{
		db:      db,
		table:   config.Table,
		dialect: config.Dialect,
	}
}

// placeholders returns n comma-separated placeholders in the store's dialect.
func (s *Store) placeholders(n int) string {
	parts := make([]string, n)
	for i := range parts {
		if s.dialect == DialectPostgres {
			parts[i] = fmt.Sprintf("$%d", i+1)
		} else {
			parts[i] = "?"
		}
	}
	return strings.Join(parts, ", ")
}

// Record appends one event to the events table.
func (s *Store) Record(ctx context.Context, e journal.Event) error {
	s.mu.Lock()
	closed := s.closed
	s.mu.Unlock()
	if closed {
		return journal.ErrClosed
	}

	if e.At.IsZero() {
		e.At = time.Now().UTC()
	}

	query := fmt.Sprintf(`
		INSERT INTO %s (event_type, pid, generation_id, detail, recorded_at)
		VALUES (%s)
	`, s.table, s.placeholders(5))

	_, err := s.db.ExecContext(ctx, query, string(e.Type), int(e.Pid), e.GenerationID, e.Detail, e.At)
	if err != nil {
		return fmt.Errorf("failed to record event: %w", err)
	}
	return nil
}

// Recent returns up to limit events, most recent first.
func (s *Store) Recent(ctx context.Context, limit int) ([]journal.Event, error) {
	s.mu.Lock()
	closed := s.closed
	s.mu.Unlock()
	if closed {
		return nil, journal.ErrClosed
	}
	if limit <= 0 {
		return nil, nil
	}

	query := fmt.Sprintf(`
		SELECT event_type, pid, generation_id, detail, recorded_at
		FROM %s
		ORDER BY id DESC
		LIMIT %s
	`, s.table, s.placeholders(1))

	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query events: %w", err)
	}
	defer rows.Close()

	var events []journal.Event
	for rows.Next() {
		var (
			e   journal.Event
			typ string
			pid int
		)
		if err := rows.Scan(&typ, &pid, &e.GenerationID, &e.Detail, &e.At); err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		e.Type = journal.EventType(typ)
		e.Pid = readerpool.Pid(pid)
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate events: %w", err)
	}
	return events, nil
}

// Close marks the store closed. The caller owns the *sql.DB and closes it
// separately.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}
