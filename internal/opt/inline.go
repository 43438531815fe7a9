package opt

import (
	"log/slog"
	"sort"

	"github.com/roach88/weave/internal/ir"
)

// Mode selects the inlining policy of a round.
type Mode int

const (
	// ModeNormal folds single-predecessor blocks and removes them.
	ModeNormal Mode = iota
	// ModeCopy may duplicate a block into up to CopyLimit call sites.
	ModeCopy
)

func (m Mode) String() string {
	if m == ModeCopy {
		return "copy"
	}
	return "normal"
}

// Comment texts bracketing a folded block.
const (
	beginInlineMarker = "begin inline "
	endInlineMarker   = "end inline "
)

// candidate is an eligible branch and its position.
type candidate struct {
	list   *[]ir.Stmt
	index  int
	branch *ir.Branch
	marked bool
}

// inliner runs the worklist of a single round.
type inliner struct {
	frag    *ir.Fragment
	mode    Mode
	limits  Limits
	logger  *slog.Logger
	deg     *Degrees
	reach   *reachability
	removed map[*ir.Block]bool
	copies  map[*ir.Block]int
	folds   int
}

// worklist returns the blocks a round processes as callers.
//
// Normal mode: the entry and every block whose in-degree is not exactly
// one (the roots and the join points) come first. A block with a single
// predecessor is itself a folding candidate and is normally absorbed by
// its caller; the ones that were not (behind a yield point or on a
// cycle) follow, so their own successors still get folded.
//
// Copy mode: every block, by descending out-degree (stable).
func (in *inliner) worklist() []*ir.Block {
	var list []*ir.Block
	if in.mode == ModeNormal {
		var rest []*ir.Block
		for _, b := range in.frag.Blocks() {
			if b == in.frag.Entry() || in.deg.In(b) != 1 {
				list = append(list, b)
			} else {
				rest = append(rest, b)
			}
		}
		return append(list, rest...)
	}
	list = append(list, in.frag.Blocks()...)
	sort.SliceStable(list, func(i, j int) bool {
		return in.deg.Out(list[i]) > in.deg.Out(list[j])
	})
	return list
}

func (in *inliner) run() {
	for _, b := range in.worklist() {
		if in.removed[b] {
			continue
		}
		in.processBlock(b)
	}
}

// processBlock folds the best eligible branch of b until none is left.
func (in *inliner) processBlock(b *ir.Block) {
	for {
		c := in.bestCandidate(b)
		if c == nil {
			return
		}
		in.fold(b, c)
	}
}

// bestCandidate picks the branch to fold next: in normal mode the highest
// likelihood; in copy mode an InlineTarget-marked target first, then the
// highest likelihood. Ties keep statement order.
func (in *inliner) bestCandidate(b *ir.Block) *candidate {
	counts := make(map[*ir.Block]int)
	ir.Branches(b.Stmts, func(br *ir.Branch) {
		if !br.Exit && br.Target != nil {
			counts[br.Target]++
		}
	})

	var best *candidate
	in.collect(b, &b.Stmts, 0, counts, func(c *candidate) {
		if best == nil || in.better(c, best) {
			best = c
		}
	})
	return best
}

func (in *inliner) better(c, best *candidate) bool {
	if in.mode == ModeCopy && c.marked != best.marked {
		return c.marked
	}
	return c.branch.Likelihood > best.branch.Likelihood
}

// collect reports every eligible branch of list, recursing into nested
// bodies up to MaxDepth levels.
func (in *inliner) collect(b *ir.Block, list *[]ir.Stmt, depth int, counts map[*ir.Block]int, report func(*candidate)) {
	for i, s := range *list {
		switch st := s.(type) {
		case *ir.Branch:
			if in.eligible(b, st, counts) {
				report(&candidate{
					list:   list,
					index:  i,
					branch: st,
					marked: ir.HasInlineTarget(st.Target.Stmts),
				})
			}
		case *ir.Scope:
			if depth < in.limits.MaxDepth {
				in.collect(b, &st.Body, depth+1, counts, report)
			}
		case *ir.Predicated:
			if depth < in.limits.MaxDepth {
				in.collect(b, &st.Body, depth+1, counts, report)
			}
		}
	}
}

// eligible decides whether br (inside caller b) may be folded.
func (in *inliner) eligible(b *ir.Block, br *ir.Branch, counts map[*ir.Block]int) bool {
	t := br.Target
	switch {
	case br.Exit || t == nil:
		return false
	case br.Threading == ir.ThreadingMustYield:
		return false
	case t == b || t == in.frag.Entry():
		return false
	case in.removed[t] || !in.deg.Known(t):
		return false
	case counts[t] > 1:
		return false
	}
	if in.mode == ModeNormal {
		if in.deg.In(t) > 1 {
			return false
		}
	} else if in.copies[t] >= in.limits.CopyLimit {
		return false
	}
	if in.reach.onCycle(t) || in.reach.reaches(t, b) {
		return false
	}
	return ir.CountStmts(t.Stmts) <= in.limits.MaxInlineSize
}

// fold replaces the candidate branch with a copy of its target's
// statements, guarded by the branch condition when there is one.
func (in *inliner) fold(b *ir.Block, c *candidate) {
	t := c.branch.Target
	name := ir.BlockName(t)

	body := stripInlineTargets(ir.CloneStmts(t.Stmts))
	if !ir.Terminates(body) {
		// Falling off the target was an exit; falling off the copy
		// would continue in the caller.
		body = append(body, ir.Exit())
	}

	repl := []ir.Stmt{ir.Note(beginInlineMarker + name)}
	if c.branch.Unconditional() {
		repl = append(repl, body...)
	} else {
		repl = append(repl, &ir.Predicated{Cond: c.branch.Cond, Body: body})
	}
	repl = append(repl, ir.Note(endInlineMarker+name))

	list := *c.list
	spliced := make([]ir.Stmt, 0, len(list)-1+len(repl))
	spliced = append(spliced, list[:c.index]...)
	spliced = append(spliced, repl...)
	spliced = append(spliced, list[c.index+1:]...)
	*c.list = spliced

	in.folds++
	in.copies[t]++

	// The copy adds references to everything t branches to.
	ir.Branches(body, func(br *ir.Branch) {
		if !br.Exit && br.Target != nil {
			in.deg.in[br.Target]++
			in.deg.out[b]++
		}
	})
	in.deg.out[b]--
	in.deg.in[t]--

	if in.deg.in[t] <= 0 {
		in.remove(b, t)
	}

	in.logger.Debug("block inlined",
		"fragment", in.frag.Name,
		"mode", in.mode.String(),
		"caller", ir.BlockName(b),
		"target", name,
		"conditional", !c.branch.Unconditional(),
		"removed", in.removed[t],
	)
}

// remove marks t removed once its last reference was folded into b, and
// re-scans b to confirm nothing still branches to t.
func (in *inliner) remove(b, t *ir.Block) {
	in.removed[t] = true
	ir.Branches(t.Stmts, func(br *ir.Branch) {
		if !br.Exit && br.Target != nil {
			in.deg.in[br.Target]--
		}
	})
	in.deg.out[t] = 0

	ir.Branches(b.Stmts, func(br *ir.Branch) {
		if br.Target == t {
			panic(ir.Invariantf(ir.ErrRemovedReference,
				"block %s still branches to %s after it was inlined and removed",
				ir.BlockName(b), ir.BlockName(t)))
		}
	})
}

func stripInlineTargets(stmts []ir.Stmt) []ir.Stmt {
	out := stmts[:0]
	for _, s := range stmts {
		if _, ok := s.(*ir.InlineTarget); ok {
			continue
		}
		out = append(out, s)
	}
	return out
}
