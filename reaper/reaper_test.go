package reaper

import (
	"context"
	"sync"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/forkserve/readerpool"
	"github.com/forkserve/readerpool/spawner"
)

// exitQueue feeds scripted exits to a Notifier through its Wait override.
type exitQueue struct {
	mu    sync.Mutex
	exits []Exit
}

func (q *exitQueue) push(exits ...Exit) {
	q.mu.Lock()
	q.exits = append(q.exits, exits...)
	q.mu.Unlock()
}

func (q *exitQueue) wait() (readerpool.Pid, spawner.ExitStatus, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.exits) == 0 {
		return 0, spawner.ExitStatus{}, false
	}
	e := q.exits[0]
	q.exits = q.exits[1:]
	return e.Pid, e.Status, true
}

func TestNew_AppliesDefaults(t *testing.T) {
	n := New(Config{})

	assert.Equal(t, 64, cap(n.events))
	assert.NotNil(t, n.config.Wait)
}

func TestNotifier_QueuesOneEventPerExit(t *testing.T) {
	q := &exitQueue{}
	q.push(
		Exit{Pid: 5, Status: spawner.ExitStatus{Code: 0}},
		Exit{Pid: 6, Status: spawner.ExitStatus{Signaled: true, Signal: syscall.SIGKILL}},
	)

	n := New(Config{Wait: q.wait})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	n.Start(ctx)

	n.Poke()

	var got []Exit
	for len(got) < 2 {
		select {
		case e := <-n.Events():
			got = append(got, e)
		case <-time.After(time.Second):
			t.Fatalf("timed out waiting for exits, got %d", len(got))
		}
	}

	assert.Equal(t, readerpool.Pid(5), got[0].Pid)
	assert.Equal(t, readerpool.Pid(6), got[1].Pid)
	assert.True(t, got[1].Status.Signaled)
}

func TestNotifier_OneSignalDrainsAllPending(t *testing.T) {
	// A single SIGCHLD can stand for any number of exited children; a
	// single poke must drain the whole backlog.
	q := &exitQueue{}
	for pid := 10; pid < 20; pid++ {
		q.push(Exit{Pid: readerpool.Pid(pid)})
	}

	n := New(Config{Wait: q.wait, Buffer: 16})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	n.Start(ctx)

	n.Poke()

	for pid := 10; pid < 20; pid++ {
		select {
		case e := <-n.Events():
			assert.Equal(t, readerpool.Pid(pid), e.Pid)
		case <-time.After(time.Second):
			t.Fatalf("timed out waiting for pid %d", pid)
		}
	}
}

func TestNotifier_StopsWhenContextCancelled(t *testing.T) {
	n := New(Config{Wait: (&exitQueue{}).wait})
	ctx, cancel := context.WithCancel(context.Background())
	n.Start(ctx)

	cancel()

	select {
	case <-n.Done():
	case <-time.After(time.Second):
		t.Fatal("drain loop did not stop")
	}
}

func TestNotifier_LateExitsAfterNewPokes(t *testing.T) {
	q := &exitQueue{}
	n := New(Config{Wait: q.wait})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	n.Start(ctx)

	// Nothing pending yet.
	n.Poke()
	select {
	case e := <-n.Events():
		t.Fatalf("unexpected event: %+v", e)
	case <-time.After(50 * time.Millisecond):
	}

	q.push(Exit{Pid: 42, Status: spawner.ExitStatus{Code: 3}})
	n.Poke()

	select {
	case e := <-n.Events():
		assert.Equal(t, readerpool.Pid(42), e.Pid)
		assert.Equal(t, 3, e.Status.Code)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for late exit")
	}
}

func TestWaitNoHang_NoChildren(t *testing.T) {
	// The test binary has no unreaped children of its own here.
	pid, _, ok := waitNoHang()
	require.False(t, ok)
	assert.Equal(t, readerpool.Pid(0), pid)
}
