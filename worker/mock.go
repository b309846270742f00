package worker

import (
	"context"
	"sync"
)

// MockRuntime is a configurable mock implementation of Runtime for use in
// tests. Each hook records its invocation in Steps (in call order) and then
// calls the corresponding Func field if set.
type MockRuntime struct {
	mu sync.Mutex

	// Steps records the names of invoked hooks in call order.
	Steps []string

	// Cluster controls what ClusterEnabled reports.
	Cluster bool

	CloseListenersFunc     func(ctx context.Context) error
	DisablePersistenceFunc func(ctx context.Context) error
	DisableReplicationFunc func(ctx context.Context) error
	EnterReadOnlyModeFunc  func(ctx context.Context) error
	DisconnectClientsFunc  func(ctx context.Context) error
	DisableReaderPoolFunc  func(ctx context.Context) error
	DisableClusterFunc     func(ctx context.Context) error
	SetProcessTitleFunc    func(title string) error
	ServeFunc              func(ctx context.Context) error

	// Title records the last title passed to SetProcessTitle.
	Title string
}

// Compile-time check that MockRuntime implements Runtime.
var _ Runtime = (*MockRuntime)(nil)

// NewMockRuntime creates a MockRuntime with an empty step history.
func NewMockRuntime() *MockRuntime {
	return &MockRuntime{Steps: make([]string, 0)}
}

func (m *MockRuntime) record(step string) {
	m.mu.Lock()
	m.Steps = append(m.Steps, step)
	m.mu.Unlock()
}

func (m *MockRuntime) CloseListeners(ctx context.Context) error {
	m.record("close_listeners")
	if m.CloseListenersFunc != nil {
		return m.CloseListenersFunc(ctx)
	}
	return nil
}

func (m *MockRuntime) DisablePersistence(ctx context.Context) error {
	m.record("disable_persistence")
	if m.DisablePersistenceFunc != nil {
		return m.DisablePersistenceFunc(ctx)
	}
	return nil
}

func (m *MockRuntime) DisableReplication(ctx context.Context) error {
	m.record("disable_replication")
	if m.DisableReplicationFunc != nil {
		return m.DisableReplicationFunc(ctx)
	}
	return nil
}

func (m *MockRuntime) EnterReadOnlyMode(ctx context.Context) error {
	m.record("enter_read_only")
	if m.EnterReadOnlyModeFunc != nil {
		return m.EnterReadOnlyModeFunc(ctx)
	}
	return nil
}

func (m *MockRuntime) DisconnectClients(ctx context.Context) error {
	m.record("disconnect_clients")
	if m.DisconnectClientsFunc != nil {
		return m.DisconnectClientsFunc(ctx)
	}
	return nil
}

func (m *MockRuntime) DisableReaderPool(ctx context.Context) error {
	m.record("disable_reader_pool")
	if m.DisableReaderPoolFunc != nil {
		return m.DisableReaderPoolFunc(ctx)
	}
	return nil
}

func (m *MockRuntime) ClusterEnabled() bool {
	return m.Cluster
}

func (m *MockRuntime) DisableCluster(ctx context.Context) error {
	m.record("disable_cluster")
	if m.DisableClusterFunc != nil {
		return m.DisableClusterFunc(ctx)
	}
	return nil
}

func (m *MockRuntime) SetProcessTitle(title string) error {
	m.record("set_process_title")
	m.mu.Lock()
	m.Title = title
	m.mu.Unlock()
	if m.SetProcessTitleFunc != nil {
		return m.SetProcessTitleFunc(title)
	}
	return nil
}

func (m *MockRuntime) Serve(ctx context.Context) error {
	m.record("serve")
	if m.ServeFunc != nil {
		return m.ServeFunc(ctx)
	}
	<-ctx.Done()
	return ctx.Err()
}

// StepNames returns a copy of the recorded step history.
func (m *MockRuntime) StepNames() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.Steps))
	copy(out, m.Steps)
	return out
}
