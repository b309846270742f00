package readerpool

import "errors"

var (
	// ErrForkFailed indicates the OS refused to create the worker process.
	// Recovered locally: the spawn batch continues with the remaining slots.
	ErrForkFailed = errors.New("fork failed")

	// ErrBookkeepingFailed indicates a worker was created but could not be
	// recorded in the active generation. The spawner terminates the
	// untracked worker so it is never left unmanaged.
	ErrBookkeepingFailed = errors.New("worker bookkeeping failed")

	// ErrSignalDelivery indicates a termination signal could not be
	// delivered to a tracked worker. The worker is treated as already gone
	// and dropped from bookkeeping without waiting for a reap.
	ErrSignalDelivery = errors.New("signal delivery failed")

	// ErrPoolDisabled indicates an explicit rotation was requested while
	// the target size is zero and no workers are live.
	ErrPoolDisabled = errors.New("reader pool is disabled")

	// ErrNotWorker indicates worker-side state was requested from a process
	// that was not spawned as a pool worker.
	ErrNotWorker = errors.New("process is not a pool worker")
)
