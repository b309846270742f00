package readerpool

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Pid identifies a worker process by its OS process ID.
// The OS guarantees uniqueness only among live processes; a pid may be
// reused after the process has been fully reaped.
type Pid int

// Generation is an ordered collection of live worker pids spawned together
// at one rotation point. Pids are kept most-recently-spawned first.
// A generation is always retired and replaced as a unit.
//
// Generation is not safe for concurrent use; the pool controller serializes
// all access on its control goroutine.
type Generation struct {
	// ID is the unique identifier for this generation (UUID).
	ID string

	// CreatedAt is when this generation was created.
	CreatedAt time.Time

	pids    []Pid
	maxSize int
}

// NewGeneration creates an empty generation. maxSize bounds the number of
// tracked pids; 0 means unbounded.
func NewGeneration(maxSize int) *Generation {
	return &Generation{
		ID:        uuid.New().String(),
		CreatedAt: time.Now(),
		maxSize:   maxSize,
	}
}

// Add records a freshly spawned worker at the head of the generation.
// Returns ErrBookkeepingFailed if the generation is at capacity; the caller
// is then responsible for terminating the untracked process.
func (g *Generation) Add(pid Pid) error {
	if g.maxSize > 0 && len(g.pids) >= g.maxSize {
		return ErrBookkeepingFailed
	}
	g.pids = append([]Pid{pid}, g.pids...)
	return nil
}

// Remove deletes pid from the generation. Returns true if it was tracked.
func (g *Generation) Remove(pid Pid) bool {
	for i, p := range g.pids {
		if p == pid {
			g.pids = append(g.pids[:i], g.pids[i+1:]...)
			return true
		}
	}
	return false
}

// Contains reports whether pid is tracked by this generation.
func (g *Generation) Contains(pid Pid) bool {
	for _, p := range g.pids {
		if p == pid {
			return true
		}
	}
	return false
}

// Pids returns a copy of the tracked pids, most recently spawned first.
func (g *Generation) Pids() []Pid {
	out := make([]Pid, len(g.pids))
	copy(out, g.pids)
	return out
}

// Len returns the number of live workers tracked by the generation.
func (g *Generation) Len() int {
	return len(g.pids)
}

// Age returns how long ago the generation was created.
func (g *Generation) Age() time.Duration {
	return time.Since(g.CreatedAt)
}

// PoolState is the process-wide bookkeeping for the reader pool. The primary
// process owns exactly one PoolState for its lifetime and passes it to the
// pool controller; workers never observe it.
type PoolState struct {
	// Active is the currently serving generation.
	Active *Generation

	// Retired holds pids from a previous generation that were signalled
	// during rotation but whose exit has not yet been reaped. Their exit
	// notifications are absorbed without triggering a replacement spawn.
	Retired []Pid

	// TargetSize is the desired worker count. 0 disables the pool.
	TargetSize int

	// Dirty is set when TargetSize or rotation-triggering configuration
	// changed since the last rotation attempt, and cleared once a rotation
	// or spawn batch completes, even partially.
	Dirty bool

	// LastSpawn is the wall-clock time of the most recent spawn batch.
	LastSpawn time.Time

	maxSize int
}

// NewPoolState initializes pool bookkeeping with an empty generation and
// Dirty set, so the first maintenance tick spawns the initial batch.
// maxSize bounds generation bookkeeping; 0 means unbounded.
func NewPoolState(targetSize, maxSize int) *PoolState {
	return &PoolState{
		Active:     NewGeneration(maxSize),
		TargetSize: targetSize,
		Dirty:      true,
		maxSize:    maxSize,
	}
}

// ResetGeneration replaces the active generation with a fresh empty one and
// returns it. Called during rotation once the old generation is cleared.
func (ps *PoolState) ResetGeneration() *Generation {
	ps.Active = NewGeneration(ps.maxSize)
	return ps.Active
}

// RetirePid moves a pid to the retired drain list.
func (ps *PoolState) RetirePid(pid Pid) {
	ps.Retired = append(ps.Retired, pid)
}

// DropRetired removes pid from the retired drain list.
// Returns true if it was present.
func (ps *PoolState) DropRetired(pid Pid) bool {
	for i, p := range ps.Retired {
		if p == pid {
			ps.Retired = append(ps.Retired[:i], ps.Retired[i+1:]...)
			return true
		}
	}
	return false
}

// Logger is the minimal logging interface used across the module.
// Implementations must be safe for concurrent use. A nil Logger disables
// logging at every call site.
type Logger interface {
	Debug(ctx context.Context, msg string, args ...any)
	Info(ctx context.Context, msg string, args ...any)
	Warn(ctx context.Context, msg string, args ...any)
	Error(ctx context.Context, msg string, args ...any)
}
