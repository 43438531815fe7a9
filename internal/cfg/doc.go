// Package cfg checks structural invariants of a Fragment's control-flow
// graph.
//
// The validator is a diagnostic oracle, not a gate: the optimizer runs it
// before and after every round and code generation proceeds regardless of
// what it finds. A finding points at a latent bug in an upstream producer
// or in an optimization pass; it does not by itself corrupt the optimizer's
// own invariants, so it is logged and counted instead of aborting.
//
// CHECKS:
//
//	W101 statement after unconditional branch (sealing invariant)
//	W102 branch target not registered with the fragment
//	W103 non-exit branch without a target
//	W104 exit branch that also names a target
//
// Findings are reported in block order, then statement order, so output is
// deterministic.
package cfg
