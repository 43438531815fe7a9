package codegen

// emitSequential writes a plain function body: every surviving block is a
// label, branches are jumps, and exits jump to the shared epilogue.
func (g *generator) emitSequential() {
	threads := g.fields(ClassThread)
	lanes := g.fields(ClassLane)
	g.emitDecls(threads, lanes)

	g.body.open("{")
	g.emitPrologue(threads)
	for _, v := range lanes {
		g.construct(&g.body, v)
	}
	g.emitDeferred()
	for _, b := range g.frag.Blocks() {
		g.emitBlock(b)
	}
	g.body.line("%s:;", EpilogueLabel)
	g.body.close("}")
}
