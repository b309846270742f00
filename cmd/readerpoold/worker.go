package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/forkserve/readerpool/logger"
	"github.com/forkserve/readerpool/spawner"
	"github.com/forkserve/readerpool/worker"
)

// stubRuntime is the runtime readerpoold workers run. The daemon carries no
// real dataset, so every reconfiguration hook is a recorded no-op and Serve
// just parks until terminated. An embedding data server supplies its own
// Runtime instead.
type stubRuntime struct {
	log *logger.ZapLogger
}

func (r *stubRuntime) CloseListeners(ctx context.Context) error     { return nil }
func (r *stubRuntime) DisablePersistence(ctx context.Context) error { return nil }
func (r *stubRuntime) DisableReplication(ctx context.Context) error { return nil }
func (r *stubRuntime) EnterReadOnlyMode(ctx context.Context) error  { return nil }
func (r *stubRuntime) DisconnectClients(ctx context.Context) error  { return nil }
func (r *stubRuntime) DisableReaderPool(ctx context.Context) error  { return nil }
func (r *stubRuntime) ClusterEnabled() bool                         { return false }
func (r *stubRuntime) DisableCluster(ctx context.Context) error     { return nil }
func (r *stubRuntime) SetProcessTitle(title string) error           { return nil }

func (r *stubRuntime) Serve(ctx context.Context) error {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, os.Interrupt)
	defer signal.Stop(sigCh)

	select {
	case <-ctx.Done():
		return ctx.Err()
	case sig := <-sigCh:
		r.log.Info(ctx, "worker terminating", "signal", sig.String())
		return nil
	}
}

func runWorker(ctx context.Context) error {
	log, err := logger.NewZap()
	if err != nil {
		return err
	}
	defer log.Sync()

	generation, err := spawner.WorkerGeneration()
	if err != nil {
		return err
	}
	log.Info(ctx, "worker starting", "generation_id", generation, "pid", os.Getpid())

	return worker.Main(ctx, &stubRuntime{log: log}, worker.Options{
		Logger: log,
	})
}
