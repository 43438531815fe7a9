package codegen

import (
	"fmt"
	"strings"

	"github.com/roach88/weave/internal/ir"
)

// generator is the state of one emission. Nothing outlives it, so
// generation is reentrant.
type generator struct {
	frag  *ir.Fragment
	lanes int
	rot   Rotation
	place *Placement

	// position of every surviving block in the dispatch table
	dispatch map[*ir.Block]int

	decls writer
	body  writer
}

func newGenerator(f *ir.Fragment, lanes int, rot Rotation) *generator {
	g := &generator{
		frag:     f,
		lanes:    lanes,
		rot:      rot,
		place:    Place(f),
		dispatch: make(map[*ir.Block]int, len(f.Blocks())),
	}
	for i, b := range f.Blocks() {
		g.dispatch[b] = i
	}
	return g
}

func (g *generator) multi() bool {
	return g.lanes > 1
}

// name spells a variable reference according to its placement.
func (g *generator) name(v *ir.Variable) string {
	if v == nil {
		panic(ir.Invariantf(ir.ErrUnknownNode, "reference to a nil variable"))
	}
	if g.multi() && g.place.Class(v) == ClassLane {
		return fmt.Sprintf("%s[%s]", v.Name, LaneVar)
	}
	return v.Name
}

func (g *generator) expr(e ir.Expr) string {
	return ir.FormatExpr(e, g.name)
}

// condition renders e wrapped in exactly one pair of parentheses.
func (g *generator) condition(e ir.Expr) string {
	if fn, ok := e.(*ir.Func); ok && fn.Infix {
		return g.expr(e)
	}
	return "(" + g.expr(e) + ")"
}

// hinted renders a branch condition with its static likelihood.
func (g *generator) hinted(e ir.Expr, l ir.Likelihood) string {
	switch l {
	case ir.LikelihoodLikely, ir.LikelihoodAlways:
		return fmt.Sprintf("(__builtin_expect(!!%s, 1))", g.condition(e))
	case ir.LikelihoodUnlikely, ir.LikelihoodNever:
		return fmt.Sprintf("(__builtin_expect(!!%s, 0))", g.condition(e))
	default:
		return g.condition(e)
	}
}

// target returns the dispatch position of a branch target.
func (g *generator) target(b *ir.Block) int {
	n, ok := g.dispatch[b]
	if !ok {
		panic(ir.Invariantf(ir.ErrMissingDispatch, "branch to %s, which has no dispatch target in fragment %q",
			ir.BlockName(b), g.frag.Name))
	}
	return n
}

func (g *generator) stmts(w *writer, stmts []ir.Stmt) {
	for _, s := range stmts {
		g.stmt(w, s)
	}
}

func (g *generator) stmt(w *writer, s ir.Stmt) {
	switch st := s.(type) {
	case *ir.Assign:
		w.line("%s = %s;", g.expr(st.Dst), g.expr(st.Value))
	case *ir.Effect:
		w.line("%s;", g.expr(st.X))
	case *ir.Scope:
		w.open("{")
		g.stmts(w, st.Body)
		w.close("}")
	case *ir.Predicated:
		w.open("if %s {", g.condition(st.Cond))
		g.stmts(w, st.Body)
		w.close("}")
	case *ir.Branch:
		if st.Unconditional() {
			g.transfer(w, st)
			return
		}
		w.open("if %s {", g.hinted(st.Cond, st.Likelihood))
		g.transfer(w, st)
		w.close("}")
	case *ir.Comment:
		w.line("/* %s */", strings.ReplaceAll(st.Text, "*/", "* /"))
	case *ir.Plain:
		w.line("%s", st.Text)
	case *ir.InlineTarget:
	default:
		panic(ir.Invariantf(ir.ErrUnknownNode, "unknown statement node %T", s))
	}
}

// transfer lowers the control transfer of a taken branch.
func (g *generator) transfer(w *writer, br *ir.Branch) {
	if !g.multi() {
		if br.Exit {
			w.line("goto %s;", EpilogueLabel)
			return
		}
		w.line("goto %s;", BlockLabel(g.target(br.Target)))
		return
	}

	if br.Exit {
		w.line("%s[%s] = %d;", StateVar, LaneVar, StateTerminate)
		w.line("goto %s;", DispatchLabel)
		return
	}
	n := g.target(br.Target)
	w.line("%s[%s] = %d;", StateVar, LaneVar, FirstBlockState+n)
	switch br.Threading {
	case ir.ThreadingMustYield:
		w.line("goto %s;", YieldLabel)
	case ir.ThreadingNeverYield:
		w.line("goto %s;", BlockLabel(n))
	default:
		w.line("goto %s;", DispatchLabel)
	}
}

// initial is the construction-time value of v, or nil.
func initial(v *ir.Variable) ir.Expr {
	if v.Init != nil {
		return v.Init
	}
	return v.Default
}

// declareLocal declares a stack variable and runs its construction.
func (g *generator) declareLocal(w *writer, v *ir.Variable) {
	qual := ""
	if v.Const {
		qual = "const "
	}
	if val := initial(v); val != nil {
		w.line("%s%s %s = %s;", qual, v.Type, v.Name, g.expr(val))
	} else {
		w.line("%s%s %s;", qual, v.Type, v.Name)
	}
	g.stmts(w, v.Ctor)
}

// construct (re)initializes a field and runs its constructor body.
func (g *generator) construct(w *writer, v *ir.Variable) {
	if val := initial(v); val != nil {
		w.line("%s = %s;", g.name(v), g.expr(val))
	}
	g.stmts(w, v.Ctor)
}

func (g *generator) fields(class Class) []*ir.Variable {
	return g.place.Select(g.frag, func(v *ir.Variable) bool {
		return g.place.Class(v) == class
	})
}

// constants returns the function-scope constants, either those built
// only from other constants or, when deferred, those that read fields.
func (g *generator) constants(deferred bool) []*ir.Variable {
	return g.place.Select(g.frag, func(v *ir.Variable) bool {
		return g.place.functionConst(v) && g.place.Deferred(v) == deferred
	})
}

// emitDecls writes the declaration stream: per-thread fields, then
// per-lane fields.
func (g *generator) emitDecls(threads, lanes []*ir.Variable) {
	if needsGuard(threads) {
		g.decls.line("int %s;", ConstructedVar)
	}
	for _, v := range threads {
		g.decls.line("%s %s;", v.Type, v.Name)
	}
	for _, v := range lanes {
		if g.multi() {
			g.decls.line("%s %s[%d];", v.Type, v.Name, g.lanes)
		} else {
			g.decls.line("%s %s;", v.Type, v.Name)
		}
	}
}

// emitPrologue writes the field-independent constants and the
// once-per-thread construction of thread fields. Lane construction and
// emitDeferred follow it.
func (g *generator) emitPrologue(threads []*ir.Variable) {
	for _, v := range g.constants(false) {
		g.declareLocal(&g.body, v)
	}
	if !needsGuard(threads) {
		return
	}
	g.body.open("if (!%s) {", ConstructedVar)
	g.body.line("%s = 1;", ConstructedVar)
	for _, v := range threads {
		g.construct(&g.body, v)
	}
	g.body.close("}")
}

// emitDeferred declares the constants that read thread fields, once every
// field holds its value.
func (g *generator) emitDeferred() {
	for _, v := range g.constants(true) {
		g.declareLocal(&g.body, v)
	}
}

// emitBlock writes one surviving block: its label, its stack variables
// and its statements, then the implicit exit when control can fall off
// the end.
func (g *generator) emitBlock(b *ir.Block) {
	g.body.open("%s: {", BlockLabel(g.dispatch[b]))
	g.stmt(&g.body, ir.Note(ir.BlockName(b)))
	for _, v := range g.place.BlockLocals(b) {
		g.declareLocal(&g.body, v)
	}
	g.stmts(&g.body, b.Stmts)
	if !ir.Terminates(b.Stmts) {
		g.transfer(&g.body, ir.Exit())
	}
	g.body.close("}")
}

func needsGuard(threads []*ir.Variable) bool {
	for _, v := range threads {
		if initial(v) != nil || len(v.Ctor) > 0 {
			return true
		}
	}
	return false
}
