// Package store is the stroke store: a multi-table entity store keyed by
// generational handles.
//
// A Store keeps parallel component tables (content, chrono tag, render
// cache, selection, trash), an R-tree over stroke bounds, a bounded
// copy-on-write history and the render coordinator that hands rasterization
// to worker goroutines and reconciles their results.
//
// # Ownership
//
// A Store is not safe for concurrent use. Exactly one goroutine, the owner,
// performs every mutation and query. Work that leaves the owner (rendering,
// export, saving) only ever sees a clone or a Snapshot.
//
// # Render currency
//
// Every dirtying mutation and every dispatch stamps the key's render entry
// with a fresh generation taken from one store-wide counter. Worker results
// carry the generation they were dispatched with and ProcessTask applies a
// result only if the key still exists and its generation still matches.
// Superseded jobs are never cancelled; they finish and are dropped.
//
// # History
//
// Record pushes a Snapshot that shares every table with the live store.
// Tables are cloned on the first write after sharing and strokes are cloned
// on their first mutation, so recording is O(1) and an edit copies only what
// it touches.
package store
