package journal

import (
	"context"
	"sync"
)

// MockJournal is a mock implementation of Journal for testing.
// It records every event by default and allows overriding behavior
// through function fields.
type MockJournal struct {
	mu sync.Mutex

	// RecordFunc overrides the default Record behavior.
	RecordFunc func(ctx context.Context, e Event) error

	// RecentFunc overrides the default Recent behavior.
	RecentFunc func(ctx context.Context, limit int) ([]Event, error)

	// CloseFunc overrides the default Close behavior.
	CloseFunc func() error

	// Recorded holds every event passed to Record, oldest first.
	Recorded []Event
}

var _ Journal = (*MockJournal)(nil)

// NewMockJournal creates a new mock journal.
func NewMockJournal() *MockJournal {
	return &MockJournal{}
}

// Record implements Journal.
func (m *MockJournal) Record(ctx context.Context, e Event) error {
	m.mu.Lock()
	m.Recorded = append(m.Recorded, e)
	m.mu.Unlock()

	if m.RecordFunc != nil {
		return m.RecordFunc(ctx, e)
	}
	return nil
}

// Recent implements Journal. The default returns recorded events most
// recent first.
func (m *MockJournal) Recent(ctx context.Context, limit int) ([]Event, error) {
	if m.RecentFunc != nil {
		return m.RecentFunc(ctx, limit)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	n := len(m.Recorded)
	if limit > n {
		limit = n
	}
	out := make([]Event, 0, limit)
	for i := 0; i < limit; i++ {
		out = append(out, m.Recorded[n-1-i])
	}
	return out, nil
}

// Close implements Journal.
func (m *MockJournal) Close() error {
	if m.CloseFunc != nil {
		return m.CloseFunc()
	}
	return nil
}

// Types returns the event types recorded so far, oldest first.
func (m *MockJournal) Types() []EventType {
	m.mu.Lock()
	defer m.mu.Unlock()
	types := make([]EventType, len(m.Recorded))
	for i, e := range m.Recorded {
		types[i] = e.Type
	}
	return types
}
