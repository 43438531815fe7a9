package visit

import "github.com/roach88/weave/internal/ir"

// Visitor receives every statement and expression reached by Walk.
// Returning false from either method skips the node's children.
type Visitor interface {
	Statement(s ir.Stmt) bool
	Expression(e ir.Expr) bool
}

// Funcs adapts plain functions to Visitor. A nil function visits every
// child.
type Funcs struct {
	OnStatement  func(ir.Stmt) bool
	OnExpression func(ir.Expr) bool
}

// Statement implements Visitor.
func (f Funcs) Statement(s ir.Stmt) bool {
	if f.OnStatement == nil {
		return true
	}
	return f.OnStatement(s)
}

// Expression implements Visitor.
func (f Funcs) Expression(e ir.Expr) bool {
	if f.OnExpression == nil {
		return true
	}
	return f.OnExpression(e)
}

// Walk visits stmts in order.
//
// Default recursion per statement kind:
//   - Assign: destination, then value
//   - Effect: expression
//   - Scope: body
//   - Predicated: condition, then body
//   - Branch: condition only (the target is never entered)
//   - Comment, Plain, InlineTarget: no children
func Walk(v Visitor, stmts []ir.Stmt) {
	for _, s := range stmts {
		WalkStmt(v, s)
	}
}

// WalkStmt visits a single statement and its children.
func WalkStmt(v Visitor, s ir.Stmt) {
	if !v.Statement(s) {
		return
	}
	switch st := s.(type) {
	case *ir.Assign:
		WalkExpr(v, st.Dst)
		WalkExpr(v, st.Value)
	case *ir.Effect:
		WalkExpr(v, st.X)
	case *ir.Scope:
		Walk(v, st.Body)
	case *ir.Predicated:
		WalkExpr(v, st.Cond)
		Walk(v, st.Body)
	case *ir.Branch:
		WalkExpr(v, st.Cond)
	case *ir.Comment, *ir.Plain, *ir.InlineTarget:
	default:
		panic(ir.Invariantf(ir.ErrUnknownNode, "unknown statement node %T", s))
	}
}

// WalkExpr visits an expression tree. A nil expression is skipped.
func WalkExpr(v Visitor, e ir.Expr) {
	if e == nil || !v.Expression(e) {
		return
	}
	switch x := e.(type) {
	case *ir.Func:
		for _, arg := range x.Args {
			WalkExpr(v, arg)
		}
	case *ir.Cast:
		WalkExpr(v, x.X)
	case *ir.Index:
		WalkExpr(v, x.Array)
		WalkExpr(v, x.Index)
	case *ir.Ref, *ir.Literal:
	default:
		panic(ir.Invariantf(ir.ErrUnknownNode, "unknown expression node %T", e))
	}
}
