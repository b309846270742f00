package spawner

import (
	"context"
	"sync"
	"syscall"

	"github.com/forkserve/readerpool"
)

// MockSpawner is a configurable mock implementation of Spawner for use in
// tests. It allows setting up expected return values, tracking method calls,
// and injecting errors for testing failure paths. When no SpawnFunc is set,
// Spawn hands out sequential pids starting at 100.
type MockSpawner struct {
	mu sync.Mutex

	// SpawnFunc is called by Spawn if set.
	SpawnFunc func(ctx context.Context, generationID string) (readerpool.Pid, error)

	// SignalFunc is called by Signal if set.
	SignalFunc func(pid readerpool.Pid, sig syscall.Signal) error

	// WaitFunc is called by Wait if set.
	WaitFunc func(ctx context.Context, pid readerpool.Pid) (ExitStatus, error)

	// Call tracking
	SpawnCalls  []SpawnCall
	SignalCalls []SignalCall
	WaitCalls   []WaitCall

	nextPid readerpool.Pid
}

// SpawnCall records the parameters of a single Spawn call.
type SpawnCall struct {
	GenerationID string
}

// SignalCall records the parameters of a single Signal call.
type SignalCall struct {
	Pid    readerpool.Pid
	Signal syscall.Signal
}

// WaitCall records the parameters of a single Wait call.
type WaitCall struct {
	Pid readerpool.Pid
}

// Compile-time check that MockSpawner implements Spawner.
var _ Spawner = (*MockSpawner)(nil)

// NewMockSpawner creates a new MockSpawner with an empty call history.
func NewMockSpawner() *MockSpawner {
	return &MockSpawner{
		SpawnCalls:  make([]SpawnCall, 0),
		SignalCalls: make([]SignalCall, 0),
		WaitCalls:   make([]WaitCall, 0),
		nextPid:     100,
	}
}

// Spawn implements the Spawner interface.
func (m *MockSpawner) Spawn(ctx context.Context, generationID string) (readerpool.Pid, error) {
	m.mu.Lock()
	m.SpawnCalls = append(m.SpawnCalls, SpawnCall{GenerationID: generationID})
	next := m.nextPid
	m.mu.Unlock()

	if m.SpawnFunc != nil {
		return m.SpawnFunc(ctx, generationID)
	}

	m.mu.Lock()
	m.nextPid++
	m.mu.Unlock()
	return next, nil
}

// Signal implements the Spawner interface.
func (m *MockSpawner) Signal(pid readerpool.Pid, sig syscall.Signal) error {
	m.mu.Lock()
	m.SignalCalls = append(m.SignalCalls, SignalCall{Pid: pid, Signal: sig})
	m.mu.Unlock()

	if m.SignalFunc != nil {
		return m.SignalFunc(pid, sig)
	}
	return nil
}

// Wait implements the Spawner interface.
func (m *MockSpawner) Wait(ctx context.Context, pid readerpool.Pid) (ExitStatus, error) {
	m.mu.Lock()
	m.WaitCalls = append(m.WaitCalls, WaitCall{Pid: pid})
	m.mu.Unlock()

	if m.WaitFunc != nil {
		return m.WaitFunc(ctx, pid)
	}
	return ExitStatus{}, nil
}

// SpawnCount returns the number of Spawn calls recorded.
func (m *MockSpawner) SpawnCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.SpawnCalls)
}

// SignalledPids returns the pids that received a signal, in call order.
func (m *MockSpawner) SignalledPids() []readerpool.Pid {
	m.mu.Lock()
	defer m.mu.Unlock()
	pids := make([]readerpool.Pid, 0, len(m.SignalCalls))
	for _, call := range m.SignalCalls {
		pids = append(pids, call.Pid)
	}
	return pids
}

// Reset clears the call history.
func (m *MockSpawner) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.SpawnCalls = make([]SpawnCall, 0)
	m.SignalCalls = make([]SignalCall, 0)
	m.WaitCalls = make([]WaitCall, 0)
}
