package spawner

import (
	"context"
	"errors"
	"fmt"
	"os"
	"syscall"
	"time"

	"golang.org/x/sys/unix"

	"github.com/forkserve/readerpool"
	"github.com/forkserve/readerpool/metrics"
)

const (
	workerEnv     = "READERPOOL_WORKER"
	generationEnv = "READERPOOL_GENERATION"

	// DefaultProcessTitle is the argv[0] given to worker processes so they
	// are distinguishable from the primary in process listings.
	DefaultProcessTitle = "readerpool-worker"

	waitPollInterval = 20 * time.Millisecond
)

// Config holds configuration for the OSSpawner.
type Config struct {
	// ProcessTitle is the argv[0] of spawned workers (default: "readerpool-worker").
	ProcessTitle string

	// ExtraEnv is appended to the worker's environment after the pool's own
	// marker variables.
	ExtraEnv []string

	// Logger is for observability (optional).
	Logger readerpool.Logger

	// Collector records fork latency if set (optional).
	Collector *metrics.Collector
}

// OSSpawner creates worker processes by re-executing the current binary with
// a worker marker in the environment. This substitutes duplicate-then-
// reinitialize for fork-and-continue: the worker binary detects the marker
// via IsWorkerProcess early in startup, short-circuits primary startup, and
// enters worker-serving mode instead.
type OSSpawner struct {
	config Config
	exe    string
}

// Compile-time check that OSSpawner implements Spawner.
var _ Spawner = (*OSSpawner)(nil)

// NewOS creates an OSSpawner. It resolves the current executable path once
// at construction so later spawns do not depend on the working directory.
func NewOS(cfg Config) (*OSSpawner, error) {
	if cfg.ProcessTitle == "" {
		cfg.ProcessTitle = DefaultProcessTitle
	}

	exe, err := os.Executable()
	if err != nil {
		return nil, fmt.Errorf("resolve executable: %w", err)
	}

	return &OSSpawner{config: cfg, exe: exe}, nil
}

// Spawn creates one worker process and returns its pid. The new process
// inherits stdin/stdout/stderr and the parent's arguments; the worker marker
// and generation ID are passed in the environment and argv[0] is rewritten
// to the configured process title.
func (s *OSSpawner) Spawn(ctx context.Context, generationID string) (readerpool.Pid, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	env := append(os.Environ(),
		workerEnv+"=1",
		generationEnv+"="+generationID,
	)
	env = append(env, s.config.ExtraEnv...)

	argv := append([]string{s.config.ProcessTitle}, os.Args[1:]...)

	start := time.Now()
	proc, err := os.StartProcess(s.exe, argv, &os.ProcAttr{
		Env:   env,
		Files: []*os.File{os.Stdin, os.Stdout, os.Stderr},
	})
	latency := time.Since(start)

	if s.config.Collector != nil {
		s.config.Collector.ObserveForkLatency(latency.Seconds())
	}

	if err != nil {
		if s.config.Logger != nil {
			s.config.Logger.Error(ctx, "cannot spawn worker", "error", err)
		}
		return 0, fmt.Errorf("%w: %v", readerpool.ErrForkFailed, err)
	}

	pid := readerpool.Pid(proc.Pid)

	// The pool reaps through wait4, not through os.Process.
	_ = proc.Release()

	if s.config.Logger != nil {
		s.config.Logger.Debug(ctx, "worker spawned",
			"pid", pid,
			"generationID", generationID,
			"forkLatency", latency)
	}

	return pid, nil
}

// Signal delivers sig to pid. A delivery failure is reported as
// readerpool.ErrSignalDelivery; callers treat the worker as already gone.
func (s *OSSpawner) Signal(pid readerpool.Pid, sig syscall.Signal) error {
	if err := unix.Kill(int(pid), sig); err != nil {
		return fmt.Errorf("%w: pid %d: %v", readerpool.ErrSignalDelivery, pid, err)
	}
	return nil
}

// Wait blocks until pid has exited and collects its status. It polls with
// WNOHANG so the wait can be bounded by ctx. ECHILD means another waiter
// (the SIGCHLD reaper) already collected the status; that is reported as a
// successful zero-status reap.
func (s *OSSpawner) Wait(ctx context.Context, pid readerpool.Pid) (ExitStatus, error) {
	for {
		var ws unix.WaitStatus
		wpid, err := unix.Wait4(int(pid), &ws, unix.WNOHANG, nil)

		switch {
		case errors.Is(err, unix.EINTR):
			continue
		case errors.Is(err, unix.ECHILD):
			return ExitStatus{}, nil
		case err != nil:
			return ExitStatus{}, fmt.Errorf("wait4 pid %d: %w", pid, err)
		}

		if wpid == int(pid) {
			return StatusFromWait(ws), nil
		}

		select {
		case <-ctx.Done():
			return ExitStatus{}, ctx.Err()
		case <-time.After(waitPollInterval):
		}
	}
}

// StatusFromWait converts a wait4 status word into an ExitStatus.
func StatusFromWait(ws unix.WaitStatus) ExitStatus {
	if ws.Signaled() {
		return ExitStatus{Signal: ws.Signal(), Signaled: true}
	}
	return ExitStatus{Code: ws.ExitStatus()}
}

// IsWorkerProcess reports whether the current process was spawned as a pool
// worker. The embedding binary must check this early in startup and route
// into worker-serving mode instead of primary startup.
func IsWorkerProcess() bool {
	return os.Getenv(workerEnv) != ""
}

// WorkerGeneration returns the generation ID this worker belongs to.
// Returns readerpool.ErrNotWorker when called outside a worker process.
func WorkerGeneration() (string, error) {
	if !IsWorkerProcess() {
		return "", readerpool.ErrNotWorker
	}
	return os.Getenv(generationEnv), nil
}
