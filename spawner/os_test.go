package spawner

import (
	"context"
	"syscall"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/forkserve/readerpool"
)

func TestNewOS_AppliesDefaultTitle(t *testing.T) {
	s, err := NewOS(Config{})
	require.NoError(t, err)

	assert.Equal(t, DefaultProcessTitle, s.config.ProcessTitle)
	assert.NotEmpty(t, s.exe)
}

func TestOSSpawner_SpawnRespectsCancelledContext(t *testing.T) {
	s, err := NewOS(Config{})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = s.Spawn(ctx, "gen-1")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestOSSpawner_SignalUnknownPid(t *testing.T) {
	s, err := NewOS(Config{})
	require.NoError(t, err)

	// Pid arithmetic makes collisions with a live process implausible.
	err = s.Signal(readerpool.Pid(1<<22-1), syscall.Signal(0))
	assert.ErrorIs(t, err, readerpool.ErrSignalDelivery)
}

func TestOSSpawner_WaitNonChildReturnsZeroStatus(t *testing.T) {
	s, err := NewOS(Config{})
	require.NoError(t, err)

	// wait4 on a pid that is not our child fails with ECHILD, which Wait
	// reports as an already collected status.
	status, err := s.Wait(context.Background(), readerpool.Pid(1))
	assert.NoError(t, err)
	assert.Equal(t, ExitStatus{}, status)
}

func TestIsWorkerProcess_FollowsEnvMarker(t *testing.T) {
	assert.False(t, IsWorkerProcess())

	t.Setenv(workerEnv, "1")
	assert.True(t, IsWorkerProcess())
}

func TestWorkerGeneration(t *testing.T) {
	_, err := WorkerGeneration()
	assert.ErrorIs(t, err, readerpool.ErrNotWorker)

	t.Setenv(workerEnv, "1")
	t.Setenv(generationEnv, "gen-abc")

	gen, err := WorkerGeneration()
	require.NoError(t, err)
	assert.Equal(t, "gen-abc", gen)
}
