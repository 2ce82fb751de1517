// Package task holds the in-memory registry of background generation
// tasks and the manager operations over it. The registry is the only
// shared mutable state in the engine: handlers create pending records,
// exactly one detached adapter goroutine writes each record through its
// lifecycle, and pollers read snapshots until a terminal state.
// Records are TTL-bounded and evicted lazily on create and get.
package task
