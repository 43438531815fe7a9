package visit

import "github.com/roach88/weave/internal/ir"

// VarSet is an insertion-ordered set of variables.
type VarSet struct {
	index map[*ir.Variable]int
	order []*ir.Variable
}

// NewVarSet creates an empty set.
func NewVarSet() *VarSet {
	return &VarSet{index: make(map[*ir.Variable]int)}
}

// Add inserts v and reports whether it was new.
func (s *VarSet) Add(v *ir.Variable) bool {
	if _, ok := s.index[v]; ok {
		return false
	}
	s.index[v] = len(s.order)
	s.order = append(s.order, v)
	return true
}

// Has reports whether v is in the set.
func (s *VarSet) Has(v *ir.Variable) bool {
	_, ok := s.index[v]
	return ok
}

// Len returns the number of variables in the set.
func (s *VarSet) Len() int {
	return len(s.order)
}

// Slice returns the variables in first-encounter order.
func (s *VarSet) Slice() []*ir.Variable {
	return s.order
}

// Uses returns the variables referenced directly by stmts, in
// first-encounter order.
func Uses(stmts []ir.Stmt) *VarSet {
	set := NewVarSet()
	Walk(refCollector(set, nil), stmts)
	return set
}

// DeepUses is Uses plus, transitively, every variable referenced from a
// collected variable's default, initializer and constructor body. Those
// expressions can name variables that never appear in the statement
// stream itself.
func DeepUses(stmts []ir.Stmt) *VarSet {
	set := NewVarSet()
	var collector Visitor
	collector = refCollector(set, func(v *ir.Variable) {
		WalkExpr(collector, v.Default)
		WalkExpr(collector, v.Init)
		Walk(collector, v.Ctor)
	})
	Walk(collector, stmts)
	return set
}

// Dependencies returns the variables v's construction references
// (default, initializer, constructor body), transitively, excluding v.
func Dependencies(v *ir.Variable) *VarSet {
	set := NewVarSet()
	set.Add(v)
	var collector Visitor
	collector = refCollector(set, func(dep *ir.Variable) {
		WalkExpr(collector, dep.Default)
		WalkExpr(collector, dep.Init)
		Walk(collector, dep.Ctor)
	})
	WalkExpr(collector, v.Default)
	WalkExpr(collector, v.Init)
	Walk(collector, v.Ctor)

	out := NewVarSet()
	for _, dep := range set.Slice()[1:] {
		out.Add(dep)
	}
	return out
}

// refCollector adds every referenced variable to set. onNew runs once per
// newly added variable.
func refCollector(set *VarSet, onNew func(*ir.Variable)) Visitor {
	return Funcs{
		OnExpression: func(e ir.Expr) bool {
			if ref, ok := e.(*ir.Ref); ok && ref.Var != nil {
				if set.Add(ref.Var) && onNew != nil {
					onNew(ref.Var)
				}
			}
			return true
		},
	}
}

// BlockUsage maps each block of a fragment to the variables it touches.
type BlockUsage struct {
	ByBlock map[*ir.Block]*VarSet
	// Blocks lists, per variable, the blocks touching it in block order.
	Blocks map[*ir.Variable][]*ir.Block
}

// CollectUsage computes per-block usage for every block of f. With deep
// set, usage follows variable construction transitively (see DeepUses).
func CollectUsage(f *ir.Fragment, deep bool) *BlockUsage {
	u := &BlockUsage{
		ByBlock: make(map[*ir.Block]*VarSet),
		Blocks:  make(map[*ir.Variable][]*ir.Block),
	}
	for _, b := range f.Blocks() {
		var set *VarSet
		if deep {
			set = DeepUses(b.Stmts)
		} else {
			set = Uses(b.Stmts)
		}
		u.ByBlock[b] = set
		for _, v := range set.Slice() {
			u.Blocks[v] = append(u.Blocks[v], b)
		}
	}
	return u
}
