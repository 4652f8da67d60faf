// Package engine composes a stroke store, its document and the render
// pipeline behind a single-owner event loop.
//
// ARCHITECTURE:
//
// Single-Owner Event Loop:
// The store is not safe for concurrent use. One goroutine, the owner,
// makes every store and document call. Other goroutines (UI input, worker
// results, timers) reach the engine only through its event queue:
//
//  1. Render workers enqueue store.Task results through Engine.Tasks()
//  2. Any goroutine enqueues a Command with Engine.Do
//  3. The owner drains events with Engine.Run (blocking loop) or
//     Engine.DrainEvents (poll, for a host that has its own loop)
//  4. Each event yields store.Flags, merged and passed to the flags handler
//
// Work that only reads, such as saving and exporting, runs on the shared
// worker pool against a store.Snapshot and reports through a one-shot
// error channel, so the owner never blocks on I/O.
//
// Methods other than Do, Tasks and Stop must be called on the owner
// goroutine.
package engine
