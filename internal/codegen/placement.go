package codegen

import (
	"github.com/roach88/weave/internal/ir"
	"github.com/roach88/weave/internal/visit"
)

// Class is the storage class of a variable in emitted code.
type Class int

const (
	// ClassStack is a block-local (or, for constants, function-local)
	// stack variable.
	ClassStack Class = iota
	// ClassLane is a persistent field with one slot per lane.
	ClassLane
	// ClassThread is a field shared by every lane on a hardware thread.
	ClassThread
)

func (c Class) String() string {
	switch c {
	case ClassStack:
		return "stack"
	case ClassLane:
		return "lane"
	case ClassThread:
		return "thread"
	default:
		return "unknown"
	}
}

// Placement records the storage class of every variable of a fragment
// and, for block-local variables, the block that declares them.
type Placement struct {
	class map[*ir.Variable]Class
	home  map[*ir.Variable]*ir.Block
	late  map[*ir.Variable]bool
	usage *visit.BlockUsage
}

// Place decides storage classes for the surviving blocks of f:
//
//   - ThreadWide variables are thread fields.
//   - Constants are stack variables declared once at function scope.
//   - A Local variable touched (deeply) by exactly one block is a stack
//     variable of that block, unless it is marked NoPromote.
//   - Every other Local variable is a lane field.
//
// Variables referenced from the construction of a constant or of a field
// are constructed outside any block, so they become lane fields too.
//
// Constants are evaluated once per invocation. A constant constructed
// from a lane field has a value per lane and becomes a lane field. One
// constructed from thread fields is declared after field construction
// (see Deferred), unless a field is constructed from it, in which case it
// joins that field's class, thread first.
func Place(f *ir.Fragment) *Placement {
	p := &Placement{
		class: make(map[*ir.Variable]Class, len(f.Vars())),
		home:  make(map[*ir.Variable]*ir.Block),
		late:  make(map[*ir.Variable]bool),
		usage: visit.CollectUsage(f, true),
	}

	for _, v := range f.Vars() {
		switch {
		case v.Scope == ir.ScopeThreadWide:
			p.class[v] = ClassThread
		case v.Const:
			p.class[v] = ClassStack
		case v.NoPromote:
			p.class[v] = ClassLane
		case len(p.usage.Blocks[v]) == 1:
			p.class[v] = ClassStack
			p.home[v] = p.usage.Blocks[v][0]
		default:
			p.class[v] = ClassLane
		}
	}

	// Promote what out-of-block construction depends on. Dependencies
	// are transitive, so one pass suffices.
	for _, v := range f.Vars() {
		if p.home[v] != nil {
			continue
		}
		for _, dep := range visit.Dependencies(v).Slice() {
			if p.home[dep] != nil {
				delete(p.home, dep)
				p.class[dep] = ClassLane
			}
		}
	}
	p.stageConstants(f)
	return p
}

// stageConstants runs to a fixed point: promoting a constant can make the
// constants built from it field-dependent in turn.
func (p *Placement) stageConstants(f *ir.Fragment) {
	for changed := true; changed; {
		changed = false
		for _, v := range f.Vars() {
			if !p.functionConst(v) {
				continue
			}
			for _, dep := range visit.Dependencies(v).Slice() {
				if p.class[dep] == ClassLane {
					p.promote(v, ClassLane)
					changed = true
					break
				}
				if (p.class[dep] == ClassThread || p.late[dep]) && !p.late[v] {
					p.late[v] = true
					changed = true
				}
			}
		}
		// Thread fields claim first: they are constructed before lane
		// fields, which may then read the same value.
		for _, class := range []Class{ClassThread, ClassLane} {
			for _, v := range f.Vars() {
				if p.class[v] != class {
					continue
				}
				for _, dep := range visit.Dependencies(v).Slice() {
					if p.late[dep] {
						p.promote(dep, class)
						changed = true
					}
				}
			}
		}
	}
}

// functionConst reports whether v is a constant declared at function
// scope.
func (p *Placement) functionConst(v *ir.Variable) bool {
	return v.Const && p.class[v] == ClassStack && p.home[v] == nil
}

func (p *Placement) promote(v *ir.Variable, class Class) {
	delete(p.late, v)
	p.class[v] = class
}

// Class returns the storage class of v.
func (p *Placement) Class(v *ir.Variable) Class {
	return p.class[v]
}

// Home returns the block declaring a block-local variable, or nil for
// constants and fields.
func (p *Placement) Home(v *ir.Variable) *ir.Block {
	return p.home[v]
}

// Deferred reports whether v is a function-scope constant constructed
// from thread fields, and so declared after field construction.
func (p *Placement) Deferred(v *ir.Variable) bool {
	return p.late[v]
}

// BlockLocals returns the variables declared by b, dependencies first.
func (p *Placement) BlockLocals(b *ir.Block) []*ir.Variable {
	var out []*ir.Variable
	if set := p.usage.ByBlock[b]; set != nil {
		for _, v := range set.Slice() {
			if p.home[v] == b {
				out = append(out, v)
			}
		}
	}
	return dependencyOrder(out)
}

// Select returns the variables of f matching keep, dependencies first.
func (p *Placement) Select(f *ir.Fragment, keep func(*ir.Variable) bool) []*ir.Variable {
	var out []*ir.Variable
	for _, v := range f.Vars() {
		if keep(v) {
			out = append(out, v)
		}
	}
	return dependencyOrder(out)
}

// dependencyOrder sorts vars so that every variable follows the members
// of vars it is constructed from. Otherwise the input order is kept.
func dependencyOrder(vars []*ir.Variable) []*ir.Variable {
	member := make(map[*ir.Variable]bool, len(vars))
	for _, v := range vars {
		member[v] = true
	}
	done := make(map[*ir.Variable]bool, len(vars))
	out := make([]*ir.Variable, 0, len(vars))
	var visitVar func(v *ir.Variable)
	visitVar = func(v *ir.Variable) {
		if done[v] {
			return
		}
		done[v] = true
		for _, dep := range visit.Dependencies(v).Slice() {
			if member[dep] {
				visitVar(dep)
			}
		}
		out = append(out, v)
	}
	for _, v := range vars {
		visitVar(v)
	}
	return out
}
