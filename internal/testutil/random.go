package testutil

import (
	"fmt"
	"hash/fnv"
	"math/rand"

	"github.com/roach88/weave/internal/ir"
)

// RandomFragment builds a pseudo-random fragment from seed.
//
// Blocks carry effects, assignments and nested Predicated/Scope lists.
// Conditional branches go anywhere, including backwards; unconditional
// branches only go forwards or exit, so every cycle passes through a
// conditional branch. Under an oracle that answers true a bounded number
// of times per condition (see BoundedOracle) every run terminates. Some
// blocks carry dead statements after their final branch.
func RandomFragment(seed int64) *ir.Fragment {
	r := rand.New(rand.NewSource(seed))
	f := ir.NewFragment(fmt.Sprintf("random%d", seed))

	n := 2 + r.Intn(9)
	blocks := make([]*ir.Block, n)
	for i := range blocks {
		blocks[i] = f.NewBlock(fmt.Sprintf("r%d", i))
	}
	vars := make([]*ir.Variable, 1+r.Intn(3))
	for i := range vars {
		vars[i] = f.NewVar(ir.VarSpec{Name: fmt.Sprintf("v%d", i), Type: "int64_t", Default: ir.Int(0)})
	}

	cond := 0
	newCond := func(b int) ir.Expr {
		cond++
		return ir.Lit(fmt.Sprintf("c%d_%d", b, cond))
	}
	threading := func() ir.Threading {
		return ir.Threading(r.Intn(3))
	}
	likelihood := func() ir.Likelihood {
		return ir.Likelihood(r.Intn(5))
	}
	simple := func(b, k int) ir.Stmt {
		if r.Intn(3) == 0 {
			v := vars[r.Intn(len(vars))]
			return ir.Set(v, ir.Op("+", ir.RefOf(v), ir.Int(int64(k))))
		}
		return ir.Do(ir.Call(fmt.Sprintf("f%d_%d", b, k)))
	}

	for i, b := range blocks {
		// A few blocks start out empty.
		if i > 0 && r.Intn(8) == 0 {
			continue
		}
		for k := 0; k < 1+r.Intn(3); k++ {
			switch r.Intn(6) {
			case 0:
				b.Append(ir.If(newCond(i), simple(i, k), simple(i, k+10)))
			case 1:
				b.Append(&ir.Scope{Body: []ir.Stmt{simple(i, k), ir.Note("scoped")}})
			default:
				b.Append(simple(i, k))
			}
		}
		for k := 0; k < r.Intn(3); k++ {
			br := &ir.Branch{
				Cond:       newCond(i),
				Target:     blocks[r.Intn(n)],
				Likelihood: likelihood(),
				Threading:  threading(),
			}
			if r.Intn(5) == 0 {
				br.Target = nil
				br.Exit = true
			}
			if r.Intn(4) == 0 {
				b.Append(ir.If(newCond(i), br))
			} else {
				b.Append(br)
			}
		}
		switch {
		case i+1 < n && r.Intn(4) != 0:
			br := ir.Jump(blocks[i+1+r.Intn(n-i-1)])
			br.Threading = threading()
			b.Append(br)
		case r.Intn(2) == 0:
			b.Append(ir.Exit())
		}
		if ir.Terminates(b.Stmts) && r.Intn(4) == 0 {
			b.Append(ir.Do(ir.Call(fmt.Sprintf("dead%d", i))))
		}
		if r.Intn(6) == 0 {
			b.Stmts = append([]ir.Stmt{&ir.InlineTarget{}}, b.Stmts...)
		}
	}
	return f
}

// BoundedOracle answers true at most limit times per condition, choosing
// pseudo-randomly from the condition text and occurrence.
func BoundedOracle(limit int) func(cond string, n int) bool {
	return func(cond string, n int) bool {
		if n >= limit {
			return false
		}
		h := fnv.New32a()
		fmt.Fprintf(h, "%s#%d", cond, n)
		return h.Sum32()%3 != 0
	}
}
