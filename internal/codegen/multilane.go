package codegen

import (
	"strconv"
	"strings"
)

// emitMultiLane writes the cooperative scheduler. The whole body is one
// dispatch loop: each lane's resume point lives in weave_state, blocks are
// reached only through the dispatch switch (or directly for NeverYield
// branches), and the loop ends once every lane has gone dormant.
func (g *generator) emitMultiLane() {
	threads := g.fields(ClassThread)
	lanes := g.fields(ClassLane)
	g.emitDecls(threads, lanes)

	w := &g.body
	w.open("{")
	w.line("int %s = 0;", LaneVar)
	w.line("int %s = %d;", RunningVar, g.lanes)
	w.line("unsigned long %s = 0;", StepsVar)
	w.line("int %s[%d];", StateVar, g.lanes)
	if g.rot.warms() {
		w.line("static const int %s[%d] = {%s};", StrideVar, len(g.rot.Strides), joinInts(g.rot.table(g.lanes)))
	}
	g.emitPrologue(threads)

	// Per-lane construction runs on every invocation.
	w.open("for (%s = 0; %s < %d; %s++) {", LaneVar, LaneVar, g.lanes, LaneVar)
	w.line("%s[%s] = %d;", StateVar, LaneVar, StateEnter)
	for _, v := range lanes {
		g.construct(w, v)
	}
	w.close("}")
	w.line("%s = 0;", LaneVar)
	g.emitDeferred()

	g.emitDispatch()
	g.emitYield()

	w.line("%s:", EnterLabel)
	if entry := g.frag.Entry(); entry != nil {
		w.line("%s[%s] = %d;", StateVar, LaneVar, FirstBlockState)
		w.line("goto %s;", BlockLabel(0))
	} else {
		w.line("%s[%s] = %d;", StateVar, LaneVar, StateTerminate)
		w.line("goto %s;", DispatchLabel)
	}

	w.line("%s:", TerminateLabel)
	w.line("%s--;", RunningVar)
	w.line("%s[%s] = %d;", StateVar, LaneVar, StateDormant)
	w.line("goto %s;", YieldLabel)

	w.line("%s:", DormantLabel)
	w.line("if (%s == 0) goto %s;", RunningVar, EpilogueLabel)
	w.line("goto %s;", YieldLabel)

	for _, b := range g.frag.Blocks() {
		g.emitBlock(b)
	}
	w.line("%s:;", EpilogueLabel)
	w.close("}")
}

// emitDispatch writes the dispatch switch over the current lane's state.
func (g *generator) emitDispatch() {
	w := &g.body
	w.line("%s:", DispatchLabel)
	w.open("switch (%s[%s]) {", StateVar, LaneVar)
	w.line("case %d: goto %s;", StateEnter, EnterLabel)
	w.line("case %d: goto %s;", StateTerminate, TerminateLabel)
	w.line("case %d: goto %s;", StateDormant, DormantLabel)
	for i := range g.frag.Blocks() {
		w.line("case %d: goto %s;", FirstBlockState+i, BlockLabel(i))
	}
	w.line("default: __builtin_unreachable();")
	w.close("}")
}

// emitYield writes the lane rotation, mirroring Rotation.Next.
func (g *generator) emitYield() {
	w := &g.body
	w.line("%s:", YieldLabel)
	w.line("%s++;", StepsVar)
	if g.rot.warms() {
		w.open("if (%s <= %d) {", StepsVar, g.rot.Warmup)
		w.line("%s = (%s + %s[%s %% %d]) %% %d;", LaneVar, LaneVar, StrideVar, StepsVar, len(g.rot.Strides), g.lanes)
		w.close("} else {")
		w.depth++
		w.line("%s = (%s + 1) %% %d;", LaneVar, LaneVar, g.lanes)
		w.close("}")
	} else {
		w.line("%s = (%s + 1) %% %d;", LaneVar, LaneVar, g.lanes)
	}
	w.line("goto %s;", DispatchLabel)
}

func joinInts(xs []int) string {
	parts := make([]string, len(xs))
	for i, x := range xs {
		parts[i] = strconv.Itoa(x)
	}
	return strings.Join(parts, ", ")
}
