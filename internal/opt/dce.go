package opt

import "github.com/roach88/weave/internal/ir"

// EliminateDeadCode truncates every statement list in f (recursively into
// Scope and Predicated bodies) after its first unconditional Branch and
// returns the number of statements dropped. It is idempotent.
func EliminateDeadCode(f *ir.Fragment) int {
	removed := 0
	for _, b := range f.Blocks() {
		var n int
		b.Stmts, n = TruncateAfterBranch(b.Stmts)
		removed += n
	}
	return removed
}

// TruncateAfterBranch returns stmts cut right after the first
// unconditional Branch, with nested lists truncated as well, and the
// number of statements dropped (nested drops included).
func TruncateAfterBranch(stmts []ir.Stmt) ([]ir.Stmt, int) {
	removed := 0
	for i, s := range stmts {
		switch st := s.(type) {
		case *ir.Scope:
			var n int
			st.Body, n = TruncateAfterBranch(st.Body)
			removed += n
		case *ir.Predicated:
			var n int
			st.Body, n = TruncateAfterBranch(st.Body)
			removed += n
		case *ir.Branch:
			if st.Unconditional() {
				removed += len(stmts) - (i + 1)
				return stmts[:i+1], removed
			}
		}
	}
	return stmts, removed
}
