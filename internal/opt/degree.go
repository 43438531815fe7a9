package opt

import "github.com/roach88/weave/internal/ir"

// Degrees holds per-block in- and out-degree counts. Every non-exit Branch
// (including branches nested in Scope and Predicated bodies) contributes
// one out-edge to its containing block and one in-edge to its target.
type Degrees struct {
	in    map[*ir.Block]int
	out   map[*ir.Block]int
	known map[*ir.Block]bool
}

// AnalyzeDegrees computes degrees for every block of f in a single pass.
func AnalyzeDegrees(f *ir.Fragment) *Degrees {
	d := &Degrees{
		in:    make(map[*ir.Block]int),
		out:   make(map[*ir.Block]int),
		known: make(map[*ir.Block]bool, len(f.Blocks())),
	}
	for _, b := range f.Blocks() {
		d.known[b] = true
	}
	for _, b := range f.Blocks() {
		ir.Branches(b.Stmts, func(br *ir.Branch) {
			if br.Exit || br.Target == nil {
				return
			}
			d.out[b]++
			d.in[br.Target]++
		})
	}
	return d
}

// In returns the number of branches targeting b.
func (d *Degrees) In(b *ir.Block) int {
	return d.in[b]
}

// Out returns the number of branches leaving b.
func (d *Degrees) Out(b *ir.Block) int {
	return d.out[b]
}

// Known reports whether b was registered with the analyzed fragment.
func (d *Degrees) Known(b *ir.Block) bool {
	return d.known[b]
}
