// Package interp executes fragments directly, without generating code.
//
// Run walks a Fragment from its entry block and records a side-effect
// trace: every Assign, Effect and Plain statement that executes, in
// order. Branch and Predicated conditions are not evaluated; their
// outcomes come from an Oracle keyed by the condition's text and how many
// times that text has been asked about so far. Two fragments that produce
// the same trace under the same oracle are observably equivalent, which
// is how the optimizer is tested.
//
// Simulate runs the same fragment on several lanes under a model of the
// cooperative scheduler the code generator emits: the same reserved
// states, the same branch lowering per threading hint and the same lane
// rotation policy.
//
// # Trace
//
// Events are rendered with ir.DumpStmt, so a trace reads like the
// statements themselves:
//
//	x = (x + 1)
//	do emit(x)
//	plain probe();
//
// Comments and InlineTarget markers leave no trace.
package interp
