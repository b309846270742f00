// Package journal records pool lifecycle events. Spawns, exits, rotations
// and retirements are the only surface operators have into pool health
// besides metrics, so the pool writes one event per state change here.
package journal

import (
	"context"
	"errors"
	"time"

	"github.com/forkserve/readerpool"
)

// ErrClosed indicates the journal has been closed.
var ErrClosed = errors.New("journal closed")

// EventType defines the kind of lifecycle event.
type EventType string

const (
	// EventSpawn records a worker joining the active generation.
	EventSpawn EventType = "spawn"

	// EventExit records a worker leaving the pool's bookkeeping.
	EventExit EventType = "exit"

	// EventRotate records a full-generation rotation.
	EventRotate EventType = "rotate"

	// EventRetire records a worker parked on the retired drain list after
	// surviving kill escalation during rotation.
	EventRetire EventType = "retire"
)

// Event is one recorded pool lifecycle event.
type Event struct {
	Type         EventType
	Pid          readerpool.Pid
	GenerationID string
	Detail       string
	At           time.Time
}

// Journal provides persistence for pool lifecycle events.
// Implementations must be safe for concurrent use.
type Journal interface {
	// Record appends one event. Implementations should stamp At with the
	// current time when it is zero.
	Record(ctx context.Context, e Event) error

	// Recent returns up to limit events, most recent first.
	Recent(ctx context.Context, limit int) ([]Event, error)

	// Close releases any resources held by the journal.
	Close() error
}
