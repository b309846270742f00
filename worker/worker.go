// Package worker holds the child side of worker creation: the steps that
// turn a freshly spawned copy of the primary into a read-only responder
// serving a frozen snapshot of the dataset.
package worker

import (
	"context"
	"fmt"

	"github.com/forkserve/readerpool"
)

// Runtime is implemented by the embedding data server. The pool never
// inspects the server itself; it only drives these reconfiguration hooks in
// a fixed order inside the new worker process.
type Runtime interface {
	// CloseListeners closes every listening socket inherited from the
	// primary. Workers receive traffic through an external mechanism
	// (for example a shared socket with kernel-level accept distribution),
	// never through the primary's own listeners.
	CloseListeners(ctx context.Context) error

	// DisablePersistence turns off snapshotting and append-log writes.
	// A worker never writes, so it must never persist.
	DisablePersistence(ctx context.Context) error

	// DisableReplication turns off replication fan-out to downstream
	// replicas.
	DisableReplication(ctx context.Context) error

	// EnterReadOnlyMode switches the server into a stale-serving replica
	// that will never connect to an upstream source.
	EnterReadOnlyMode(ctx context.Context) error

	// DisconnectClients drops client connections inherited from the
	// primary; those clients belong to the primary's event loop.
	DisconnectClients(ctx context.Context) error

	// DisableReaderPool turns off the reader-pool feature in this process,
	// so a worker can never spawn sub-workers of its own.
	DisableReaderPool(ctx context.Context) error

	// ClusterEnabled reports whether the server is configured for cluster
	// membership, which is incompatible with the worker role.
	ClusterEnabled() bool

	// DisableCluster turns off cluster membership.
	DisableCluster(ctx context.Context) error

	// SetProcessTitle renames the process for observability.
	SetProcessTitle(title string) error

	// Serve runs the worker's read-serving loop until ctx is done or the
	// process is terminated. It does not return control to pool code.
	Serve(ctx context.Context) error
}

// Options configures worker startup.
type Options struct {
	// ProcessTitle is the title given to the worker process
	// (default: "readerpool-worker").
	ProcessTitle string

	// Logger is for observability (optional).
	Logger readerpool.Logger
}

// Configure applies the reconfiguration steps that turn the current process
// into a read-only worker. The order matters: listeners and persistence go
// first so a half-configured worker can never accept primary traffic or
// write to disk.
func Configure(ctx context.Context, rt Runtime, opts Options) error {
	if opts.ProcessTitle == "" {
		opts.ProcessTitle = "readerpool-worker"
	}

	if err := rt.CloseListeners(ctx); err != nil {
		return fmt.Errorf("close listeners: %w", err)
	}
	if err := rt.DisablePersistence(ctx); err != nil {
		return fmt.Errorf("disable persistence: %w", err)
	}
	if err := rt.DisableReplication(ctx); err != nil {
		return fmt.Errorf("disable replication: %w", err)
	}
	if err := rt.EnterReadOnlyMode(ctx); err != nil {
		return fmt.Errorf("enter read-only mode: %w", err)
	}
	if err := rt.DisconnectClients(ctx); err != nil {
		return fmt.Errorf("disconnect clients: %w", err)
	}
	if err := rt.DisableReaderPool(ctx); err != nil {
		return fmt.Errorf("disable reader pool: %w", err)
	}

	// Cluster membership and the worker role are mutually exclusive.
	if rt.ClusterEnabled() {
		if opts.Logger != nil {
			opts.Logger.Warn(ctx, "cluster membership is incompatible with the worker role, disabling")
		}
		if err := rt.DisableCluster(ctx); err != nil {
			return fmt.Errorf("disable cluster: %w", err)
		}
	}

	if err := rt.SetProcessTitle(opts.ProcessTitle); err != nil {
		return fmt.Errorf("set process title: %w", err)
	}

	return nil
}

// Main configures the current process as a worker and enters its serving
// loop. It is the worker-side entry point: the embedding binary calls it
// after spawner.IsWorkerProcess reports true, instead of running primary
// startup. Main only returns when serving ends.
func Main(ctx context.Context, rt Runtime, opts Options) error {
	if err := Configure(ctx, rt, opts); err != nil {
		return fmt.Errorf("configure worker: %w", err)
	}

	if opts.Logger != nil {
		opts.Logger.Info(ctx, "worker configured, serving reads", "title", opts.ProcessTitle)
	}

	return rt.Serve(ctx)
}
