// Package reaper turns SIGCHLD into exit notifications. The signal-handling
// side only collects exit statuses and queues them; all pool bookkeeping
// happens later, on the controller's goroutine, when the queue is drained.
package reaper

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"sync"

	"golang.org/x/sys/unix"

	"github.com/forkserve/readerpool"
	"github.com/forkserve/readerpool/spawner"
)

// Exit is one reaped child-exit notification. Exactly one Exit is emitted
// per terminated child of the primary, pool worker or not; consumers decide
// whether the pid is theirs.
type Exit struct {
	Pid    readerpool.Pid
	Status spawner.ExitStatus
}

// WaitFunc collects one terminated child without blocking.
// ok is false when no reapable child remains.
type WaitFunc func() (pid readerpool.Pid, status spawner.ExitStatus, ok bool)

// Config holds configuration for the Notifier.
type Config struct {
	// Buffer is the exit queue capacity (default: 64).
	Buffer int

	// Logger is for observability (optional).
	Logger readerpool.Logger

	// Wait overrides the reap primitive (default: wait4 with WNOHANG).
	// Tests inject this to simulate child exits.
	Wait WaitFunc
}

// Notifier owns the primary's SIGCHLD handling. On every signal it drains
// all reapable children and queues one Exit per child. It never mutates
// pool state itself.
type Notifier struct {
	config  Config
	sigCh   chan os.Signal
	events  chan Exit
	pokeCh  chan struct{}
	stopped sync.Once
	done    chan struct{}
}

// New creates a Notifier. Call Start to begin receiving SIGCHLD.
func New(cfg Config) *Notifier {
	if cfg.Buffer == 0 {
		cfg.Buffer = 64
	}
	if cfg.Wait == nil {
		cfg.Wait = waitNoHang
	}

	return &Notifier{
		config: cfg,
		sigCh:  make(chan os.Signal, 1),
		events: make(chan Exit, cfg.Buffer),
		pokeCh: make(chan struct{}, 1),
		done:   make(chan struct{}),
	}
}

// Start registers for SIGCHLD and runs the drain loop until ctx is done.
func (n *Notifier) Start(ctx context.Context) {
	signal.Notify(n.sigCh, unix.SIGCHLD)

	go func() {
		defer close(n.done)
		defer signal.Stop(n.sigCh)

		for {
			select {
			case <-ctx.Done():
				return
			case <-n.sigCh:
				n.drain(ctx)
			case <-n.pokeCh:
				n.drain(ctx)
			}
		}
	}()
}

// Events returns the queue of reaped exits. The pool controller consumes it
// on its control goroutine.
func (n *Notifier) Events() <-chan Exit {
	return n.events
}

// Poke forces a drain pass without a SIGCHLD delivery. Tests use it after
// installing a Wait override; production code never needs it.
func (n *Notifier) Poke() {
	select {
	case n.pokeCh <- struct{}{}:
	default:
	}
}

// Done is closed once the drain loop has stopped.
func (n *Notifier) Done() <-chan struct{} {
	return n.done
}

// drain reaps every currently terminated child and queues its exit.
// One SIGCHLD may stand for several exits, so it loops until the OS has
// nothing left to report.
func (n *Notifier) drain(ctx context.Context) {
	for {
		pid, status, ok := n.config.Wait()
		if !ok {
			return
		}

		if n.config.Logger != nil {
			n.config.Logger.Debug(ctx, "reaped child",
				"pid", pid,
				"exitCode", status.Code,
				"signal", status.Signal,
				"signaled", status.Signaled)
		}

		select {
		case n.events <- Exit{Pid: pid, Status: status}:
		case <-ctx.Done():
			return
		}
	}
}

// waitNoHang is the production reap primitive.
func waitNoHang() (readerpool.Pid, spawner.ExitStatus, bool) {
	for {
		var ws unix.WaitStatus
		pid, err := unix.Wait4(-1, &ws, unix.WNOHANG, nil)

		switch {
		case errors.Is(err, unix.EINTR):
			continue
		case err != nil || pid <= 0:
			return 0, spawner.ExitStatus{}, false
		}

		return readerpool.Pid(pid), spawner.StatusFromWait(ws), true
	}
}
