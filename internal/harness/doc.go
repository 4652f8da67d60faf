// Package harness runs YAML store scenarios against a real engine.
//
// A scenario drives the engine step by step, records a trace of every step
// with the flags it produced, checks per-step expectations and finally
// evaluates assertions on the trace and the resulting store state.
//
// # Scenario Format
//
//	name: undo_restores_strokes
//	description: "Undo brings back a removed stroke"
//	config:
//	  history_max_len: 10
//	setup:
//	  - do: insert
//	    args: { as: a, kind: brush, points: [[0, 0], [10, 10]] }
//	flow:
//	  - do: record
//	  - do: remove
//	    args: { key: a }
//	    expect: { len: 0, flags: [store_changed] }
//	  - do: undo
//	    expect: { len: 1 }
//	assertions:
//	  - type: trace_order
//	    actions: [remove, undo]
//	  - type: final_state
//	    expect: { len: 1, order: [a] }
//	  - type: render_state
//	    key: a
//	    state: dirty
//
// Strokes are named with the "as" argument and referenced by that name
// afterwards. Step names are listed in Actions.
//
// # Assertion Types
//
//   - trace_contains: a step with the action and matching args ran
//   - trace_order: actions ran in the given order
//   - trace_count: an action ran exactly N times
//   - final_state: store and document values after the flow (subset match)
//   - render_state: the render state of one stroke
//
// # Deterministic Testing
//
// Every run uses a fixed document ID and a fresh engine, and the render
// step waits until all visible strokes settle, so traces are stable enough
// for golden comparison with RunWithGolden.
package harness
