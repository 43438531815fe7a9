// Package harness runs compiler scenarios end to end.
//
// A scenario names a fragment description, a lane count and a branch
// oracle. The harness loads the fragment, optimizes it, emits code,
// interprets it before and after optimization, simulates the multi-lane
// scheduler, records the run in an in-memory store, and evaluates the
// scenario's assertions.
//
// # Scenario Format
//
// Scenarios are YAML files:
//
//	name: loop_two_lanes
//	description: "What this scenario validates"
//	fragment: ../fragments/loop.yaml
//	lanes: 2
//	oracle:
//	  "(i < limit)": [true, true, false]
//	assertions:
//	  - type: removed
//	    count: 1
//	  - type: trace_order
//	    stmts: ["i = 0", "do emit(acc)"]
//	  - type: placement
//	    var: acc
//	    class: lane
//
// The fragment path is relative to the scenario file. Oracle keys are
// branch conditions as ir.FormatExpr spells them with plain names; the
// n-th question about a condition gets the n-th listed answer, the last
// answer repeats, and unlisted conditions are false.
//
// # Assertion Types
//
//   - blocks_after: number of surviving blocks
//   - removed: number of blocks the optimizer removed
//   - trace_contains: a statement appears in the trace
//   - trace_order: statements appear in the given order
//   - trace_count: a statement appears exactly N times
//   - placement: storage class (stack, lane, thread) of a variable
//   - emitted_contains: text appears in the body (or decls) stream
//   - valid: the optimized fragment has no validator findings
//   - equivalent: the optimized trace equals the unoptimized trace
//   - lanes_terminate: every simulated lane terminates with the
//     single-lane trace
//
// # Deterministic Testing
//
// Every scenario runs against a fresh in-memory store with a fixed run ID
// (scenario.run_id, default "test-run-default") and a deterministic
// clock, so results and golden snapshots are byte-identical across runs.
package harness
