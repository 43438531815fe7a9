// Package ir provides the imperative intermediate representation that
// relational pipelines are lowered into before code generation.
//
// This package contains the data model only. All other internal packages
// import ir; ir imports nothing internal. This keeps the IR the
// foundational layer with no circular dependencies.
//
// MODEL:
//
// A Fragment is the complete control-flow graph for one compiled pipeline.
// It owns its Blocks and its name→Variable map. Producers build it once,
// the optimizer simplifies it, and the code generator consumes it. A
// Fragment is never reused across pipelines.
//
//	Fragment
//	├── Variables (name → *Variable, declaration order preserved)
//	└── Blocks    (*Block, creation order preserved, first = entry)
//	      └── Stmts []Stmt
//	            ├── Assign / Effect / Comment / Plain / InlineTarget
//	            ├── Scope{Body} / Predicated{Cond, Body}
//	            └── Branch{Cond?, Target, Likelihood, Threading, Exit}
//
// HANDLES:
//
// Blocks and Variables are addressed by pointer. A *Block's identity is its
// address; every Branch.Target and Ref.Var is a non-owning handle whose
// validity is tied to the owning Fragment.
//
// SEALED INTERFACES:
//
// Expr and Stmt are sealed with marker methods, so consumers switch over
// them exhaustively:
//
//	switch s := stmt.(type) {
//	case *Assign:
//	case *Branch:
//	...
//	}
//
// EXPRESSIONS ARE VALUES:
//
// Expression nodes are immutable once built. The same node may appear
// under several statements (and in several blocks after copy-inlining) and
// is re-emitted textually at every use site. Nothing in this module
// mutates an Expr after construction. Statements, in contrast, are owned by
// exactly one list; CloneStmts deep-copies statement trees while keeping
// their expressions shared.
//
// SEALING INVARIANT:
//
// Within one statement list no statement may follow an unconditional
// Branch except a Comment. The invariant is checked by the cfg package and
// enforced by dead-code elimination in the opt package; the IR itself does
// not auto-repair it.
package ir
