// Package pool implements the reader pool controller for the primary
// process. The controller owns all pool bookkeeping and serializes every
// mutation on one goroutine: maintenance ticks, child-exit notifications
// and configuration changes all funnel through the same loop, so no state
// is ever touched from a signal-handling path.
package pool

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"syscall"
	"time"

	"github.com/forkserve/readerpool"
	"github.com/forkserve/readerpool/journal"
	"github.com/forkserve/readerpool/metrics"
	"github.com/forkserve/readerpool/reaper"
	"github.com/forkserve/readerpool/spawner"
)

const (
	// DefaultMaxReaderAge is how old a generation may grow before the
	// maintenance loop rotates it.
	DefaultMaxReaderAge = 5 * time.Minute

	// DefaultTickInterval is how often the maintenance loop wakes up.
	DefaultTickInterval = time.Second

	// DefaultReapTimeout bounds how long rotation waits for one worker to
	// exit before escalating to the kill signal.
	DefaultReapTimeout = 10 * time.Second
)

// Config holds configuration for the pool Controller.
type Config struct {
	// Spawner creates, signals and reaps workers (required).
	Spawner spawner.Spawner

	// TargetSize is the desired worker count. 0 disables the pool until
	// SetTargetSize raises it.
	TargetSize int

	// MaxReaderAge is the generation age that triggers rotation
	// (default: 5m).
	MaxReaderAge time.Duration

	// TickInterval is the maintenance loop period (default: 1s).
	TickInterval time.Duration

	// ReapTimeout bounds the per-worker wait during rotation before
	// escalating to KillSignal (default: 10s).
	ReapTimeout time.Duration

	// MaxPoolSize bounds generation bookkeeping. 0 means unbounded.
	MaxPoolSize int

	// TermSignal asks a worker to exit during rotation
	// (default: SIGTERM).
	TermSignal syscall.Signal

	// KillSignal forcibly terminates a worker that ignored TermSignal or
	// whose bookkeeping failed (default: SIGKILL).
	KillSignal syscall.Signal

	// Logger is for observability (optional).
	Logger readerpool.Logger

	// Journal records lifecycle events (optional).
	Journal journal.Journal

	// Collector records pool metrics (optional).
	Collector *metrics.Collector
}

// Controller maintains a pool of forked read-only workers at a target size,
// rotating the whole generation when configuration changes or the workers
// grow stale, and replacing individual crashed workers one for one.
type Controller struct {
	config Config

	mu    sync.Mutex
	state *readerpool.PoolState
}

// Status is a point-in-time snapshot of pool state.
type Status struct {
	Live          int           `json:"live"`
	Target        int           `json:"target"`
	Dirty         bool          `json:"dirty"`
	GenerationID  string        `json:"generation_id"`
	GenerationAge time.Duration `json:"generation_age"`
	LastSpawn     time.Time     `json:"last_spawn"`
	Retired       int           `json:"retired"`
}

// New creates a pool Controller.
// Returns an error if the spawner is missing.
func New(cfg Config) (*Controller, error) {
	if cfg.Spawner == nil {
		return nil, errors.New("spawner is required")
	}
	if cfg.TargetSize < 0 {
		return nil, fmt.Errorf("target size must be >= 0, got %d", cfg.TargetSize)
	}
	if cfg.MaxReaderAge == 0 {
		cfg.MaxReaderAge = DefaultMaxReaderAge
	}
	if cfg.TickInterval == 0 {
		cfg.TickInterval = DefaultTickInterval
	}
	if cfg.ReapTimeout == 0 {
		cfg.ReapTimeout = DefaultReapTimeout
	}
	if cfg.TermSignal == 0 {
		cfg.TermSignal = syscall.SIGTERM
	}
	if cfg.KillSignal == 0 {
		cfg.KillSignal = syscall.SIGKILL
	}

	return &Controller{
		config: cfg,
		state:  readerpool.NewPoolState(cfg.TargetSize, cfg.MaxPoolSize),
	}, nil
}

// Reconcile tops the active generation up to the target size. Each missing
// slot gets exactly one spawn attempt; a failed slot is skipped rather than
// retried, so a fork storm cannot wedge the loop. Even a partial batch
// clears the dirty flag and stamps the spawn time, which keeps a failing
// spawner from being hammered on every tick. At or above the target,
// including a target of zero, Reconcile is a no-op and returns nil.
// Returns the joined spawn errors, if any.
func (c *Controller) Reconcile(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.reconcileLocked(ctx)
}

// reconcileLocked is a strict no-op at or above target. In particular it
// must not touch the dirty flag there: a pending dirty-triggered rotation
// survives any number of at-target maintenance ticks until Rotate runs.
func (c *Controller) reconcileLocked(ctx context.Context) error {
	if c.state.Active.Len() >= c.state.TargetSize {
		return nil
	}

	var errs []error
	for i := c.state.Active.Len(); i < c.state.TargetSize; i++ {
		if err := c.spawnOneLocked(ctx); err != nil {
			errs = append(errs, err)
		}
	}

	c.state.Dirty = false
	c.state.LastSpawn = time.Now()
	c.updateGaugesLocked()

	return errors.Join(errs...)
}

// spawnOneLocked creates one worker and tracks it. A worker whose
// bookkeeping fails is killed immediately so an untracked process never
// outlives the call.
func (c *Controller) spawnOneLocked(ctx context.Context) error {
	gen := c.state.Active

	pid, err := c.config.Spawner.Spawn(ctx, gen.ID)
	if err != nil {
		if c.config.Logger != nil {
			c.config.Logger.Error(ctx, "failed to spawn worker",
				"generation_id", gen.ID,
				"error", err)
		}
		if c.config.Collector != nil {
			c.config.Collector.IncSpawnFailure("fork")
		}
		return err
	}

	if err := gen.Add(pid); err != nil {
		if c.config.Logger != nil {
			c.config.Logger.Warn(ctx, "failed to track spawned worker, killing it",
				"pid", int(pid),
				"generation_id", gen.ID,
				"error", err)
		}
		if c.config.Collector != nil {
			c.config.Collector.IncSpawnFailure("bookkeeping")
		}
		if kerr := c.config.Spawner.Signal(pid, c.config.KillSignal); kerr != nil && c.config.Logger != nil {
			c.config.Logger.Error(ctx, "failed to kill untracked worker",
				"pid", int(pid),
				"error", kerr)
		}
		return fmt.Errorf("tracking pid %d: %w", int(pid), err)
	}

	if c.config.Collector != nil {
		c.config.Collector.IncSpawns()
	}
	c.recordEvent(ctx, journal.Event{
		Type:         journal.EventSpawn,
		Pid:          pid,
		GenerationID: gen.ID,
	})
	if c.config.Logger != nil {
		c.config.Logger.Debug(ctx, "spawned worker",
			"pid", int(pid),
			"generation_id", gen.ID)
	}
	return nil
}

// Rotate retires the entire active generation and spawns a fresh one.
// Every worker is asked to exit, then reaped with a bounded wait that
// escalates to the kill signal; a worker that survives both waits is
// parked on the retired drain list so its eventual exit is absorbed
// without a replacement spawn. The pool never holds workers from two
// generations at once, so live count never exceeds the target.
func (c *Controller) Rotate(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state.TargetSize == 0 && c.state.Active.Len() == 0 {
		return readerpool.ErrPoolDisabled
	}
	return c.rotateLocked(ctx)
}

func (c *Controller) rotateLocked(ctx context.Context) error {
	old := c.state.Active
	pids := old.Pids()

	if c.config.Logger != nil {
		c.config.Logger.Info(ctx, "rotating reader pool",
			"generation_id", old.ID,
			"generation_age", old.Age().String(),
			"workers", len(pids))
	}
	if c.config.Collector != nil {
		c.config.Collector.IncRotations()
	}

	// Signal everyone first so the workers exit in parallel, then reap.
	// A failed signal means the worker is already gone; drop it from
	// bookkeeping and let the reap loop skip it.
	toReap := make([]readerpool.Pid, 0, len(pids))
	for _, pid := range pids {
		if err := c.config.Spawner.Signal(pid, c.config.TermSignal); err != nil {
			if c.config.Logger != nil {
				c.config.Logger.Warn(ctx, "failed to signal worker for rotation, assuming gone",
					"pid", int(pid),
					"error", err)
			}
			old.Remove(pid)
			continue
		}
		toReap = append(toReap, pid)
	}

	reapStart := time.Now()
	for _, pid := range toReap {
		c.reapLocked(ctx, old, pid)
	}
	if c.config.Collector != nil {
		c.config.Collector.ObserveReapDuration(time.Since(reapStart).Seconds())
	}

	fresh := c.state.ResetGeneration()
	c.recordEvent(ctx, journal.Event{
		Type:         journal.EventRotate,
		GenerationID: fresh.ID,
		Detail:       fmt.Sprintf("replaced %s", old.ID),
	})

	err := c.reconcileLocked(ctx)

	// The rotation this flag asked for has happened, even when the new
	// target is zero and the spawn batch was empty.
	c.state.Dirty = false
	c.updateGaugesLocked()
	return err
}

// reapLocked collects one signalled worker's exit status. It waits up to
// ReapTimeout, escalates to KillSignal and waits once more, and finally
// retires the pid if it still refuses to die. In every case the pid leaves
// the generation before rotation proceeds.
func (c *Controller) reapLocked(ctx context.Context, gen *readerpool.Generation, pid readerpool.Pid) {
	defer gen.Remove(pid)

	if c.waitLocked(ctx, pid) {
		return
	}

	if c.config.Logger != nil {
		c.config.Logger.Warn(ctx, "worker ignored termination signal, escalating",
			"pid", int(pid),
			"reap_timeout", c.config.ReapTimeout.String())
	}
	if err := c.config.Spawner.Signal(pid, c.config.KillSignal); err != nil {
		// Already gone.
		return
	}
	if c.waitLocked(ctx, pid) {
		return
	}

	// Unkillable (likely stuck in the kernel). Park it so its eventual
	// exit notification is absorbed without a respawn.
	c.state.RetirePid(pid)
	c.recordEvent(ctx, journal.Event{
		Type:         journal.EventRetire,
		Pid:          pid,
		GenerationID: gen.ID,
	})
	if c.config.Logger != nil {
		c.config.Logger.Error(ctx, "worker survived kill signal, parking on retired list",
			"pid", int(pid))
	}
	if c.config.Collector != nil {
		c.config.Collector.SetRetiredWorkers(len(c.state.Retired))
	}
}

// waitLocked waits for pid up to ReapTimeout. Returns true once the exit
// status has been collected, here or by the exit notifier.
func (c *Controller) waitLocked(ctx context.Context, pid readerpool.Pid) bool {
	waitCtx, cancel := context.WithTimeout(ctx, c.config.ReapTimeout)
	defer cancel()

	_, err := c.config.Spawner.Wait(waitCtx, pid)
	return err == nil
}

// OnChildExited handles one reaped child-exit notification. Retired pids
// are absorbed without a replacement; a pid from the active generation is
// removed and replaced with exactly one spawn attempt. Returns false when
// the pid does not belong to the pool, so the caller can route the exit to
// whoever owns it.
func (c *Controller) OnChildExited(ctx context.Context, pid readerpool.Pid, status spawner.ExitStatus) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state.DropRetired(pid) {
		if c.config.Logger != nil {
			c.config.Logger.Info(ctx, "retired worker exited",
				"pid", int(pid))
		}
		if c.config.Collector != nil {
			c.config.Collector.IncWorkerExit("retired")
			c.config.Collector.SetRetiredWorkers(len(c.state.Retired))
		}
		c.recordEvent(ctx, journal.Event{
			Type:   journal.EventExit,
			Pid:    pid,
			Detail: "retired",
		})
		return true
	}

	gen := c.state.Active
	if !gen.Remove(pid) {
		return false
	}

	cause := "exited"
	if status.Signaled {
		cause = "signalled"
		if c.config.Logger != nil {
			c.config.Logger.Error(ctx, "worker killed by signal",
				"pid", int(pid),
				"signal", int(status.Signal),
				"generation_id", gen.ID)
		}
	} else if c.config.Logger != nil {
		c.config.Logger.Warn(ctx, "worker exited",
			"pid", int(pid),
			"exit_code", status.Code,
			"generation_id", gen.ID)
	}
	if c.config.Collector != nil {
		c.config.Collector.IncWorkerExit(cause)
	}
	c.recordEvent(ctx, journal.Event{
		Type:         journal.EventExit,
		Pid:          pid,
		GenerationID: gen.ID,
		Detail:       cause,
	})

	// One replacement per exit. The slot stays empty on failure; the next
	// maintenance tick retries through Reconcile.
	if err := c.spawnOneLocked(ctx); err != nil && c.config.Logger != nil {
		c.config.Logger.Error(ctx, "failed to replace exited worker",
			"pid", int(pid),
			"error", err)
	}
	c.updateGaugesLocked()

	return true
}

// SetTargetSize changes the desired worker count and marks the pool dirty
// so the next maintenance tick rotates. Negative values clamp to zero.
func (c *Controller) SetTargetSize(n int) {
	if n < 0 {
		n = 0
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if n == c.state.TargetSize {
		return
	}
	c.state.TargetSize = n
	c.state.Dirty = true
	if c.config.Collector != nil {
		c.config.Collector.SetTargetSize(n)
	}
}

// SetMaxReaderAge changes the staleness threshold and marks the pool dirty.
func (c *Controller) SetMaxReaderAge(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if d == c.config.MaxReaderAge {
		return
	}
	c.config.MaxReaderAge = d
	c.state.Dirty = true
}

// Run is the controller's maintenance loop. It blocks until ctx is done,
// rotating when the pool is dirty or the generation has grown stale,
// reconciling otherwise, and handling exit notifications from events.
// All pool mutations happen on this goroutine.
func (c *Controller) Run(ctx context.Context, events <-chan reaper.Exit) {
	ticker := time.NewTicker(c.config.TickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				events = nil
				continue
			}
			c.OnChildExited(ctx, ev.Pid, ev.Status)
		case <-ticker.C:
			c.tick(ctx)
		}
	}
}

func (c *Controller) tick(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()

	stale := !c.state.LastSpawn.IsZero() && c.state.Active.Age() > c.config.MaxReaderAge
	if c.state.Dirty || stale {
		if err := c.rotateLocked(ctx); err != nil && c.config.Logger != nil {
			c.config.Logger.Error(ctx, "rotation completed with spawn failures",
				"error", err)
		}
		return
	}
	if err := c.reconcileLocked(ctx); err != nil && c.config.Logger != nil {
		c.config.Logger.Error(ctx, "reconcile completed with spawn failures",
			"error", err)
	}
}

// Shutdown terminates every live worker without respawning. Workers get the
// termination signal and a bounded reap with kill escalation; the target
// size drops to zero so a concurrent tick cannot spawn replacements.
func (c *Controller) Shutdown(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.state.TargetSize = 0
	c.state.Dirty = false

	gen := c.state.Active
	pids := gen.Pids()
	if c.config.Logger != nil {
		c.config.Logger.Info(ctx, "shutting down reader pool",
			"workers", len(pids))
	}

	for _, pid := range pids {
		if err := c.config.Spawner.Signal(pid, c.config.TermSignal); err != nil {
			gen.Remove(pid)
		}
	}
	for _, pid := range gen.Pids() {
		c.reapLocked(ctx, gen, pid)
	}
	c.updateGaugesLocked()

	if len(c.state.Retired) > 0 {
		return fmt.Errorf("%d workers survived shutdown signals", len(c.state.Retired))
	}
	return nil
}

// Status returns a snapshot of the pool's current state.
func (c *Controller) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()

	return Status{
		Live:          c.state.Active.Len(),
		Target:        c.state.TargetSize,
		Dirty:         c.state.Dirty,
		GenerationID:  c.state.Active.ID,
		GenerationAge: c.state.Active.Age(),
		LastSpawn:     c.state.LastSpawn,
		Retired:       len(c.state.Retired),
	}
}

func (c *Controller) updateGaugesLocked() {
	if c.config.Collector == nil {
		return
	}
	c.config.Collector.SetLiveWorkers(c.state.Active.Len())
	c.config.Collector.SetTargetSize(c.state.TargetSize)
	c.config.Collector.SetGenerationAge(c.state.Active.Age().Seconds())
	c.config.Collector.SetRetiredWorkers(len(c.state.Retired))
}

func (c *Controller) recordEvent(ctx context.Context, e journal.Event) {
	if c.config.Journal == nil {
		return
	}
	if err := c.config.Journal.Record(ctx, e); err != nil && c.config.Logger != nil {
		c.config.Logger.Warn(ctx, "failed to record lifecycle event",
			"event_type", string(e.Type),
			"error", err)
	}
}
