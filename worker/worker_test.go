package worker

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigure_AppliesStepsInOrder(t *testing.T) {
	rt := NewMockRuntime()

	err := Configure(context.Background(), rt, Options{})
	require.NoError(t, err)

	assert.Equal(t, []string{
		"close_listeners",
		"disable_persistence",
		"disable_replication",
		"enter_read_only",
		"disconnect_clients",
		"disable_reader_pool",
		"set_process_title",
	}, rt.StepNames())
	assert.Equal(t, "readerpool-worker", rt.Title)
}

func TestConfigure_CustomProcessTitle(t *testing.T) {
	rt := NewMockRuntime()

	err := Configure(context.Background(), rt, Options{ProcessTitle: "myapp-reader"})
	require.NoError(t, err)

	assert.Equal(t, "myapp-reader", rt.Title)
}

func TestConfigure_DisablesClusterWhenEnabled(t *testing.T) {
	rt := NewMockRuntime()
	rt.Cluster = true

	err := Configure(context.Background(), rt, Options{})
	require.NoError(t, err)

	assert.Contains(t, rt.StepNames(), "disable_cluster")
}

func TestConfigure_SkipsClusterWhenDisabled(t *testing.T) {
	rt := NewMockRuntime()

	err := Configure(context.Background(), rt, Options{})
	require.NoError(t, err)

	assert.NotContains(t, rt.StepNames(), "disable_cluster")
}

func TestConfigure_StopsOnFirstFailure(t *testing.T) {
	rt := NewMockRuntime()
	rt.DisablePersistenceFunc = func(ctx context.Context) error {
		return errors.New("rdb still writing")
	}

	err := Configure(context.Background(), rt, Options{})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "disable persistence")
	assert.Equal(t, []string{"close_listeners", "disable_persistence"}, rt.StepNames())
}

func TestMain_ConfiguresThenServes(t *testing.T) {
	rt := NewMockRuntime()
	served := false
	rt.ServeFunc = func(ctx context.Context) error {
		served = true
		return nil
	}

	err := Main(context.Background(), rt, Options{})
	require.NoError(t, err)

	assert.True(t, served)
	steps := rt.StepNames()
	assert.Equal(t, "serve", steps[len(steps)-1])
}

func TestMain_DoesNotServeIfConfigureFails(t *testing.T) {
	rt := NewMockRuntime()
	rt.CloseListenersFunc = func(ctx context.Context) error {
		return errors.New("no such socket")
	}

	err := Main(context.Background(), rt, Options{})

	require.Error(t, err)
	assert.NotContains(t, rt.StepNames(), "serve")
}
