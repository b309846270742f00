// Package readerpool manages a pool of disposable read-only worker processes
// spawned from a primary in-memory data server.
//
// Workers exist to put idle CPU cores to work on read traffic that can
// tolerate slightly stale data. Each worker inherits a point-in-time snapshot
// of the primary's dataset at spawn and never replicates afterwards, so its
// view grows stale over time. Staleness is resolved by rotation: the whole
// generation of workers is killed, reaped, and respawned as a unit.
//
// The core pieces are the pool controller (package pool), which reconciles
// the live worker count against a target and sequences rotations; the
// spawner (package spawner), which creates worker processes and delivers
// signals; and the reaper (package reaper), which turns SIGCHLD into exit
// notifications consumed on the controller's goroutine. Worker-side
// reconfiguration lives in package worker.
package readerpool
