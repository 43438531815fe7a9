package ir

// Stmt is a statement in a block's instruction stream.
//
// This is a sealed interface - only types in this package implement it.
// Unlike expressions, a statement belongs to exactly one statement list;
// use CloneStmts when a list must appear in more than one place.
type Stmt interface {
	stmtNode() // Marker method - seals interface to this package
}

// Assign stores Value into Dst.
type Assign struct {
	Dst   Expr
	Value Expr
}

// Effect evaluates X for its side effect.
type Effect struct {
	X Expr
}

// Scope is a nested statement list with its own lexical scope.
type Scope struct {
	Body []Stmt
}

// Predicated runs Body only when Cond holds.
type Predicated struct {
	Cond Expr
	Body []Stmt
}

// Branch transfers control to Target. A nil Cond makes the branch
// unconditional. Exit branches leave the pipeline and have no Target.
type Branch struct {
	Cond       Expr
	Target     *Block
	Likelihood Likelihood
	Threading  Threading
	Exit       bool
}

// Comment is emitted as a source comment.
type Comment struct {
	Text string
}

// Plain is raw text passed through to the emitted code unchanged.
type Plain struct {
	Text string
}

// InlineTarget marks the enclosing block as a forced-inlining target for
// copy-inline rounds. It emits nothing.
type InlineTarget struct{}

func (*Assign) stmtNode()       {}
func (*Effect) stmtNode()       {}
func (*Scope) stmtNode()        {}
func (*Predicated) stmtNode()   {}
func (*Branch) stmtNode()       {}
func (*Comment) stmtNode()      {}
func (*Plain) stmtNode()        {}
func (*InlineTarget) stmtNode() {}

// Unconditional reports whether the branch always transfers control.
func (b *Branch) Unconditional() bool {
	return b.Cond == nil
}

// Jump builds an unconditional branch to target.
func Jump(target *Block) *Branch {
	return &Branch{Target: target, Likelihood: LikelihoodAlways}
}

// JumpIf builds a conditional branch to target.
func JumpIf(cond Expr, target *Block, likelihood Likelihood) *Branch {
	return &Branch{Cond: cond, Target: target, Likelihood: likelihood}
}

// Exit builds an unconditional exit branch.
func Exit() *Branch {
	return &Branch{Exit: true, Likelihood: LikelihoodAlways}
}

// ExitIf builds a conditional exit branch.
func ExitIf(cond Expr, likelihood Likelihood) *Branch {
	return &Branch{Cond: cond, Exit: true, Likelihood: likelihood}
}

// Set builds an Assign to v.
func Set(v *Variable, value Expr) *Assign {
	return &Assign{Dst: RefOf(v), Value: value}
}

// Do builds an Effect.
func Do(x Expr) *Effect {
	return &Effect{X: x}
}

// If builds a Predicated statement.
func If(cond Expr, body ...Stmt) *Predicated {
	return &Predicated{Cond: cond, Body: body}
}

// Note builds a Comment.
func Note(text string) *Comment {
	return &Comment{Text: text}
}

// CloneStmts deep-copies a statement list. Nested statement lists are
// copied; expressions and block handles are shared.
func CloneStmts(stmts []Stmt) []Stmt {
	if stmts == nil {
		return nil
	}
	out := make([]Stmt, len(stmts))
	for i, s := range stmts {
		out[i] = CloneStmt(s)
	}
	return out
}

// CloneStmt deep-copies a single statement.
func CloneStmt(s Stmt) Stmt {
	switch st := s.(type) {
	case *Assign:
		c := *st
		return &c
	case *Effect:
		c := *st
		return &c
	case *Scope:
		return &Scope{Body: CloneStmts(st.Body)}
	case *Predicated:
		return &Predicated{Cond: st.Cond, Body: CloneStmts(st.Body)}
	case *Branch:
		c := *st
		return &c
	case *Comment:
		c := *st
		return &c
	case *Plain:
		c := *st
		return &c
	case *InlineTarget:
		return &InlineTarget{}
	default:
		panic(Invariantf(ErrUnknownNode, "unknown statement node %T", s))
	}
}

// CountStmts returns the recursive number of statements in stmts.
// Containers count themselves plus their bodies.
func CountStmts(stmts []Stmt) int {
	n := 0
	for _, s := range stmts {
		n++
		switch st := s.(type) {
		case *Scope:
			n += CountStmts(st.Body)
		case *Predicated:
			n += CountStmts(st.Body)
		}
	}
	return n
}

// Terminates reports whether control can never fall off the end of stmts:
// the list contains an unconditional Branch, or a Scope whose body
// terminates.
func Terminates(stmts []Stmt) bool {
	for _, s := range stmts {
		switch st := s.(type) {
		case *Branch:
			if st.Unconditional() {
				return true
			}
		case *Scope:
			if Terminates(st.Body) {
				return true
			}
		}
	}
	return false
}

// HasInlineTarget reports whether stmts carries a top-level InlineTarget
// marker.
func HasInlineTarget(stmts []Stmt) bool {
	for _, s := range stmts {
		if _, ok := s.(*InlineTarget); ok {
			return true
		}
	}
	return false
}

// Branches calls fn for every Branch in stmts, recursing into nested
// statement lists.
func Branches(stmts []Stmt, fn func(*Branch)) {
	for _, s := range stmts {
		switch st := s.(type) {
		case *Branch:
			fn(st)
		case *Scope:
			Branches(st.Body, fn)
		case *Predicated:
			Branches(st.Body, fn)
		}
	}
}
