// Package opt implements the structural optimizer: dead-code elimination,
// block-degree analysis and the iterative block-inlining driver.
//
// ROUND:
//
// One round is
//
//	EliminateDeadCode → AnalyzeDegrees → reachability → worklist
//
// followed by dropping every removed block and every block left with an
// empty statement list. Degrees and reachability are recomputed from
// scratch at the start of every round.
//
// MODES:
//
// Normal rounds fold single-predecessor blocks into their caller; a folded
// block is always removed, never duplicated. Copy rounds may duplicate a
// shared block into up to CopyLimit call sites and prefer blocks their
// producer marked with ir.InlineTarget.
//
// DRIVER:
//
//	normal rounds until nothing is removed   (bounded by the round quota)
//	CopyRounds copy rounds
//	normal rounds until nothing is removed   (bounded by the round quota)
//
// The cfg validator runs before and after every round as a diagnostic
// oracle. After every round the driver re-checks that no surviving block
// branches to a removed one; a hit is an ir.InvariantError panic.
//
// NEVER INLINED:
//
//   - exit branches
//   - branches with ir.ThreadingMustYield: a forced yield point stays a
//     real scheduling transition
//   - the entry block, self-edges, and any block on a cycle or able to
//     reach back to the caller
//   - a block the caller branches to more than once
//   - blocks larger than MaxInlineSize statements (recursive count)
package opt
