// Package memory provides an in-memory Journal, used in tests and in
// deployments that do not need events to survive a primary restart.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/forkserve/readerpool/journal"
)

// DefaultCapacity is the number of events retained when none is configured.
const DefaultCapacity = 1024

// Store is an in-memory ring of recent events. Once capacity is reached the
// oldest events are discarded.
type Store struct {
	mu     sync.RWMutex
	events []journal.Event
	cap    int
	closed bool
}

// Compile-time check that Store implements Journal.
var _ journal.Journal = (*Store)(nil)

// New creates an in-memory journal with DefaultCapacity.
func New() *Store {
	return NewWithCapacity(DefaultCapacity)
}

// NewWithCapacity creates an in-memory journal retaining at most capacity
// events. A non-positive capacity falls back to DefaultCapacity.
func NewWithCapacity(capacity int) *Store {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Store{cap: capacity}
}

// Record appends one event, discarding the oldest when full.
func (s *Store) Record(ctx context.Context, e journal.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return journal.ErrClosed
	}

	if e.At.IsZero() {
		e.At = time.Now()
	}

	s.events = append(s.events, e)
	if len(s.events) > s.cap {
		s.events = s.events[len(s.events)-s.cap:]
	}

	return nil
}

// Recent returns up to limit events, most recent first.
func (s *Store) Recent(ctx context.Context, limit int) ([]journal.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, journal.ErrClosed
	}

	if limit <= 0 || limit > len(s.events) {
		limit = len(s.events)
	}

	out := make([]journal.Event, 0, limit)
	for i := len(s.events) - 1; i >= len(s.events)-limit; i-- {
		out = append(out, s.events[i])
	}

	return out, nil
}

// Close marks the journal closed; further calls fail with ErrClosed.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}
