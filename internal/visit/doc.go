// Package visit provides recursive traversal over IR statement and
// expression trees, and block-local variable-usage collection built on it.
//
// The walk follows tree children only. A Branch's target block is a graph
// edge, not a child: Walk visits the branch condition and never descends
// into the target. Callers that need the graph iterate blocks themselves.
package visit
