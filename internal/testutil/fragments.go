package testutil

import (
	"fmt"

	"github.com/roach88/weave/internal/ir"
)

// Loop builds a counting loop whose entry jumps into the loop with the
// given threading hint:
//
//	entry: i = 0; br loop
//	loop:  acc = acc + i; i = i + 1; br loop if (i < limit); br done
//	done:  do emit(acc)
//
// Under an oracle, the loop repeats while "(i < limit)" is answered true.
func Loop(threading ir.Threading) *ir.Fragment {
	f := ir.NewFragment("loop")
	limit := f.NewVar(ir.VarSpec{Name: "limit", Type: "int64_t", Const: true, Default: ir.Int(10)})
	acc := f.NewVar(ir.VarSpec{Name: "acc", Type: "int64_t", Default: ir.Int(0)})
	i := f.NewVar(ir.VarSpec{Name: "i", Type: "int64_t", Default: ir.Int(0)})

	entry := f.NewBlock("entry")
	loop := f.NewBlock("loop")
	done := f.NewBlock("done")

	toLoop := ir.Jump(loop)
	toLoop.Threading = threading
	entry.Append(ir.Set(i, ir.Int(0)), toLoop)
	loop.Append(
		ir.Set(acc, ir.Op("+", ir.RefOf(acc), ir.RefOf(i))),
		ir.Set(i, ir.Op("+", ir.RefOf(i), ir.Int(1))),
		ir.JumpIf(ir.Op("<", ir.RefOf(i), ir.RefOf(limit)), loop, ir.LikelihoodLikely),
		ir.Jump(done),
	)
	done.Append(ir.Do(ir.Call("emit", ir.RefOf(acc))))
	return f
}

// Chain builds n blocks in a straight line. Block k runs "do step(k)" and
// jumps to block k+1 with the given threading hint; the last block falls
// off its end.
func Chain(n int, threading ir.Threading) *ir.Fragment {
	f := ir.NewFragment(fmt.Sprintf("chain%d", n))
	blocks := make([]*ir.Block, n)
	for k := range blocks {
		blocks[k] = f.NewBlock(fmt.Sprintf("s%d", k))
	}
	for k, b := range blocks {
		b.Append(ir.Do(ir.Call("step", ir.Int(int64(k)))))
		if k+1 < n {
			br := ir.Jump(blocks[k+1])
			br.Threading = threading
			b.Append(br)
		}
	}
	return f
}

// Diamond builds a two-way branch joining again:
//
//	entry: do begin(); br left if c; br right
//	left:  do l(); br join
//	right: do r(); br join
//	join:  do end()
func Diamond() *ir.Fragment {
	f := ir.NewFragment("diamond")
	entry := f.NewBlock("entry")
	left := f.NewBlock("left")
	right := f.NewBlock("right")
	join := f.NewBlock("join")

	entry.Append(
		ir.Do(ir.Call("begin")),
		ir.JumpIf(ir.Lit("c"), left, ir.LikelihoodUnknown),
		ir.Jump(right),
	)
	left.Append(ir.Do(ir.Call("l")), ir.Jump(join))
	right.Append(ir.Do(ir.Call("r")), ir.Jump(join))
	join.Append(ir.Do(ir.Call("end")))
	return f
}

// Probe builds a hash-probe pipeline the way an operator producer would:
// a scan loop whose lookups yield to other lanes, a small trampoline that
// asks to be inlined into its callers, and thread-wide table state.
func Probe() *ir.Fragment {
	f := ir.NewFragment("probe")
	table := f.NewVar(ir.VarSpec{Name: "table", Type: "ht_t*", Scope: ir.ScopeThreadWide, Label: "hash table"})
	table.Init = ir.Call("ht_open", ir.Str("orders"))
	pos := f.NewVar(ir.VarSpec{Name: "pos", Type: "int64_t", Default: ir.Int(0)})
	end := f.NewVar(ir.VarSpec{Name: "end", Type: "int64_t", Const: true, Default: ir.Call("input_rows")})
	key := f.NewVar(ir.VarSpec{Name: "key", Type: "int64_t", NoPromote: true})
	hit := f.NewVar(ir.VarSpec{Name: "hit", Type: "row_t*"})
	hash := f.NewVar(ir.VarSpec{Name: "h", Type: "uint64_t"})

	entry := f.NewBlock("entry")
	scan := f.NewBlock("scan")
	lookup := f.NewBlock("lookup")
	match := f.NewBlock("match")
	next := f.NewBlock("next")
	done := f.NewBlock("done")

	entry.Append(ir.Note("scan orders"), ir.Set(pos, ir.Int(0)), ir.Jump(scan))
	scan.Append(
		ir.JumpIf(ir.Op(">=", ir.RefOf(pos), ir.RefOf(end)), done, ir.LikelihoodUnlikely),
		ir.Set(key, ir.Call("input_key", ir.RefOf(pos))),
		ir.Set(hash, ir.Call("hash64", ir.RefOf(key))),
		ir.Do(ir.Call("prefetch", ir.RefOf(table), ir.RefOf(hash))),
		&ir.Branch{Target: lookup, Likelihood: ir.LikelihoodAlways, Threading: ir.ThreadingMustYield},
	)
	lookup.Append(
		ir.Set(hit, ir.Call("ht_find", ir.RefOf(table), ir.RefOf(key))),
		ir.JumpIf(ir.Op("!=", ir.RefOf(hit), ir.Lit("NULL")), match, ir.LikelihoodLikely),
		ir.Jump(next),
	)
	match.Append(ir.Do(ir.Call("emit", ir.RefOf(key), ir.RefOf(hit))), ir.Jump(next))
	next.Append(
		&ir.InlineTarget{},
		ir.Set(pos, ir.Op("+", ir.RefOf(pos), ir.Int(1))),
		&ir.Branch{Target: scan, Likelihood: ir.LikelihoodAlways, Threading: ir.ThreadingNeverYield},
	)
	done.Append(ir.Do(ir.Call("flush")))
	return f
}
