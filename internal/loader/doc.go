// Package loader reads fragment descriptions and builds ir.Fragments from
// them through the regular builder API, standing in for the upstream
// producers that normally construct fragments in code.
//
// Descriptions are YAML (one fragment per document) or CUE (a
// "fragments" struct, validated against the embedded #Fragment schema).
// Both decode into the same FragmentDesc.
//
// # Statements
//
// Every statement is a map with exactly one kind key:
//
//	do: emit(x)                         effect
//	set: x          value: x + 1        assignment
//	guard: c        then: [...]         predicated list
//	scope: [...]                        nested scope
//	br: loop        when: c             branch to the block labelled loop
//	exit: true      when: c             exit branch
//	note: text                          comment
//	plain: text                         raw passthrough
//	inline_target: true                 forced-inlining marker
//
// Branches and exits also take likelihood and threading. The first block
// is the entry.
//
// # Expressions
//
// Expressions use a small C-like syntax: integer and string literals,
// identifiers (a declared variable becomes a reference, anything else a
// literal such as NULL), calls f(a, b), indexing a[i], casts cast<T>(x),
// unary ! - ~ and the usual binary operators with C precedence.
package loader
