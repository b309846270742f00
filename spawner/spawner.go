package spawner

import (
	"context"
	"syscall"

	"github.com/forkserve/readerpool"
)

// ExitStatus describes how a reaped worker terminated.
type ExitStatus struct {
	// Code is the worker's exit code. Only meaningful when Signaled is false.
	Code int

	// Signal is the signal that killed the worker. Only meaningful when
	// Signaled is true.
	Signal syscall.Signal

	// Signaled reports whether the worker died from a signal rather than
	// exiting on its own.
	Signaled bool
}

// Spawner creates, signals and reaps worker processes. The production
// implementation is OSSpawner; tests use MockSpawner.
type Spawner interface {
	// Spawn creates exactly one worker process for the given generation and
	// returns its pid. It never blocks waiting for the worker to become
	// ready: the worker either serves, or its exit is observed later.
	// Returns an error wrapping readerpool.ErrForkFailed if the OS refused
	// to create the process.
	Spawn(ctx context.Context, generationID string) (readerpool.Pid, error)

	// Signal delivers sig to the worker. Returns an error wrapping
	// readerpool.ErrSignalDelivery if the signal could not be delivered,
	// which callers treat as the worker already being gone.
	Signal(pid readerpool.Pid, sig syscall.Signal) error

	// Wait blocks until the worker has exited and its status has been
	// collected, or ctx is done. If the worker's status was already
	// collected elsewhere (the SIGCHLD reaper got there first), Wait
	// returns a zero ExitStatus and nil error.
	Wait(ctx context.Context, pid readerpool.Pid) (ExitStatus, error)
}
