package opt

import "github.com/roach88/weave/internal/ir"

// reachability answers "can control get from a to b" over the branch
// graph of one round. Successor sets are collected once; per-source
// reachable sets are computed lazily and memoized.
//
// The answers go stale as blocks are folded, but only towards "yes": a
// fold never creates a path that did not exist before, so stale answers
// only make the inliner more conservative.
type reachability struct {
	succ map[*ir.Block][]*ir.Block
	memo map[*ir.Block]map[*ir.Block]bool
}

func newReachability(f *ir.Fragment) *reachability {
	r := &reachability{
		succ: make(map[*ir.Block][]*ir.Block, len(f.Blocks())),
		memo: make(map[*ir.Block]map[*ir.Block]bool),
	}
	for _, b := range f.Blocks() {
		seen := make(map[*ir.Block]bool)
		ir.Branches(b.Stmts, func(br *ir.Branch) {
			if br.Exit || br.Target == nil || seen[br.Target] {
				return
			}
			seen[br.Target] = true
			r.succ[b] = append(r.succ[b], br.Target)
		})
	}
	return r
}

// reaches reports whether a path of one or more edges leads from a to b.
// reaches(x, x) is true exactly when x lies on a cycle.
func (r *reachability) reaches(a, b *ir.Block) bool {
	set, ok := r.memo[a]
	if !ok {
		set = r.walk(a)
		r.memo[a] = set
	}
	return set[b]
}

func (r *reachability) walk(from *ir.Block) map[*ir.Block]bool {
	visited := make(map[*ir.Block]bool)
	stack := append([]*ir.Block(nil), r.succ[from]...)
	for len(stack) > 0 {
		b := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if visited[b] {
			continue
		}
		visited[b] = true
		stack = append(stack, r.succ[b]...)
	}
	return visited
}

// onCycle reports whether b can reach itself.
func (r *reachability) onCycle(b *ir.Block) bool {
	return r.reaches(b, b)
}
