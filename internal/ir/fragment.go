package ir

// Variable is a named storage location owned by a Fragment.
//
// Default is the value a fresh instance starts with; Init, when set, is
// evaluated at construction time instead. Ctor statements run at
// construction time right after the variable is initialized. The code
// generator decides where the variable lives (see codegen.Placement).
type Variable struct {
	Name  string
	Type  string
	Scope VarScope
	Const bool

	// NoPromote keeps the variable off the block-local stack even when a
	// single block touches it, because its value must survive a yield.
	NoPromote bool

	Default Expr
	Init    Expr
	Ctor    []Stmt

	// Label is a free-form debug description.
	Label string
}

// HasConstruction reports whether the variable has an initializer or
// constructor statements.
func (v *Variable) HasConstruction() bool {
	return v.Init != nil || len(v.Ctor) > 0
}

// Block is a basic block. Its identity is its address.
type Block struct {
	Label string
	Stmts []Stmt

	id int
}

// ID returns the creation index of the block within its Fragment.
func (b *Block) ID() int {
	return b.id
}

// Append adds statements to the end of the block.
func (b *Block) Append(stmts ...Stmt) {
	b.Stmts = append(b.Stmts, stmts...)
}

// VarSpec describes a variable to create.
type VarSpec struct {
	Name      string
	Type      string
	Scope     VarScope
	Const     bool
	NoPromote bool
	Default   Expr
	Label     string
}

// Fragment owns the blocks and variables of one compiled pipeline.
//
// The first block created is the entry block. Block order is creation
// order and is preserved by the optimizer, which only ever removes blocks.
type Fragment struct {
	Name string

	blocks []*Block
	vars   map[string]*Variable
	order  []*Variable
	nextID int
}

// NewFragment creates an empty fragment.
func NewFragment(name string) *Fragment {
	return &Fragment{
		Name: name,
		vars: make(map[string]*Variable),
	}
}

// NewBlock always allocates a new block and registers it.
func (f *Fragment) NewBlock(label string) *Block {
	b := &Block{Label: label, id: f.nextID}
	f.nextID++
	f.blocks = append(f.blocks, b)
	return b
}

// Entry returns the entry block, or nil for an empty fragment.
func (f *Fragment) Entry() *Block {
	if len(f.blocks) == 0 {
		return nil
	}
	return f.blocks[0]
}

// Blocks returns the registered blocks in creation order.
// The returned slice must not be modified.
func (f *Fragment) Blocks() []*Block {
	return f.blocks
}

// Owns reports whether b is currently registered with the fragment.
func (f *Fragment) Owns(b *Block) bool {
	for _, fb := range f.blocks {
		if fb == b {
			return true
		}
	}
	return false
}

// RemoveBlocks drops every block for which drop returns true and returns
// the number dropped. The entry block is never dropped.
func (f *Fragment) RemoveBlocks(drop func(*Block) bool) int {
	kept := f.blocks[:0]
	removed := 0
	for i, b := range f.blocks {
		if i > 0 && drop(b) {
			removed++
			continue
		}
		kept = append(kept, b)
	}
	for i := len(kept); i < len(f.blocks); i++ {
		f.blocks[i] = nil
	}
	f.blocks = kept
	return removed
}

// NewVar creates and registers a variable. A duplicate name is a
// programmer error and panics with ErrDuplicateVariable.
func (f *Fragment) NewVar(spec VarSpec) *Variable {
	if _, exists := f.vars[spec.Name]; exists {
		panic(Invariantf(ErrDuplicateVariable, "variable %q already declared in fragment %q", spec.Name, f.Name))
	}
	return f.register(spec)
}

// TryNewVar returns the registered variable named spec.Name, or creates
// it. This lets independent producers share state declared on first use.
// The existing variable is returned as-is even when spec differs.
func (f *Fragment) TryNewVar(spec VarSpec) *Variable {
	if v, exists := f.vars[spec.Name]; exists {
		return v
	}
	return f.register(spec)
}

// CloneVar creates a variable named name with the static shape of source
// (type, scope, constness, default) and an empty initializer and
// constructor body.
func (f *Fragment) CloneVar(name string, source *Variable) *Variable {
	return f.NewVar(VarSpec{
		Name:      name,
		Type:      source.Type,
		Scope:     source.Scope,
		Const:     source.Const,
		NoPromote: source.NoPromote,
		Default:   source.Default,
		Label:     source.Label,
	})
}

// Var looks up a variable by name.
func (f *Fragment) Var(name string) (*Variable, bool) {
	v, ok := f.vars[name]
	return v, ok
}

// Vars returns the variables in declaration order.
// The returned slice must not be modified.
func (f *Fragment) Vars() []*Variable {
	return f.order
}

func (f *Fragment) register(spec VarSpec) *Variable {
	v := &Variable{
		Name:      spec.Name,
		Type:      spec.Type,
		Scope:     spec.Scope,
		Const:     spec.Const,
		NoPromote: spec.NoPromote,
		Default:   spec.Default,
		Label:     spec.Label,
	}
	f.vars[v.Name] = v
	f.order = append(f.order, v)
	return v
}
