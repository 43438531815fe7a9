package ir

import (
	"fmt"
	"strconv"
	"strings"
)

// Expr is an immutable expression node.
//
// This is a sealed interface - only types in this package implement it.
// Expression nodes may be shared between statements and blocks; they are
// re-emitted at every use and never mutated after construction.
//
// Expr types:
//   - Func: named function or operator application
//   - Cast: conversion to a target type
//   - Ref: reference to a Variable
//   - Index: array element access
//   - Literal: raw literal text, optionally a string literal
type Expr interface {
	exprNode() // Marker method - seals interface to this package
}

// Func applies Name to Args. When Infix is set, Name is an operator and the
// node renders as "(a op b)" (or "(op a)" with a single argument).
type Func struct {
	Name  string
	Args  []Expr
	Infix bool
}

// Cast converts X to Type.
type Cast struct {
	Type string
	X    Expr
}

// Ref reads or writes a Variable.
type Ref struct {
	Var *Variable
}

// Index is Array[Index].
type Index struct {
	Array Expr
	Index Expr
}

// Literal is raw literal text. String literals carry their unquoted text
// and are quoted by the emitter.
type Literal struct {
	Text     string
	IsString bool
}

func (*Func) exprNode()    {}
func (*Cast) exprNode()    {}
func (*Ref) exprNode()     {}
func (*Index) exprNode()   {}
func (*Literal) exprNode() {}

// Call builds a prefix function application.
func Call(name string, args ...Expr) *Func {
	return &Func{Name: name, Args: args}
}

// Op builds an infix operator application.
func Op(op string, args ...Expr) *Func {
	return &Func{Name: op, Args: args, Infix: true}
}

// CastTo builds a Cast.
func CastTo(typ string, x Expr) *Cast {
	return &Cast{Type: typ, X: x}
}

// RefOf builds a Ref to v.
func RefOf(v *Variable) *Ref {
	return &Ref{Var: v}
}

// At builds an Index.
func At(array, index Expr) *Index {
	return &Index{Array: array, Index: index}
}

// Lit builds a non-string literal.
func Lit(text string) *Literal {
	return &Literal{Text: text}
}

// Int builds an integer literal.
func Int(n int64) *Literal {
	return &Literal{Text: strconv.FormatInt(n, 10)}
}

// Str builds a string literal.
func Str(text string) *Literal {
	return &Literal{Text: text, IsString: true}
}

// FormatExpr renders e in the emitted C-like syntax, using name to spell
// variable references. The code generator passes its placement-aware
// spelling; debug dumps pass the plain variable name.
func FormatExpr(e Expr, name func(*Variable) string) string {
	var b strings.Builder
	writeExpr(&b, e, name)
	return b.String()
}

func writeExpr(b *strings.Builder, e Expr, name func(*Variable) string) {
	switch x := e.(type) {
	case nil:
		b.WriteString("/*nil*/")
	case *Func:
		if x.Infix {
			b.WriteByte('(')
			if len(x.Args) == 1 {
				b.WriteString(x.Name)
				writeExpr(b, x.Args[0], name)
			} else {
				for i, arg := range x.Args {
					if i > 0 {
						b.WriteByte(' ')
						b.WriteString(x.Name)
						b.WriteByte(' ')
					}
					writeExpr(b, arg, name)
				}
			}
			b.WriteByte(')')
			return
		}
		b.WriteString(x.Name)
		b.WriteByte('(')
		for i, arg := range x.Args {
			if i > 0 {
				b.WriteString(", ")
			}
			writeExpr(b, arg, name)
		}
		b.WriteByte(')')
	case *Cast:
		b.WriteString("((")
		b.WriteString(x.Type)
		b.WriteByte(')')
		writeExpr(b, x.X, name)
		b.WriteByte(')')
	case *Ref:
		b.WriteString(name(x.Var))
	case *Index:
		writeExpr(b, x.Array, name)
		b.WriteByte('[')
		writeExpr(b, x.Index, name)
		b.WriteByte(']')
	case *Literal:
		if x.IsString {
			b.WriteString(QuoteC(x.Text))
			return
		}
		b.WriteString(x.Text)
	default:
		panic(Invariantf(ErrUnknownNode, "unknown expression node %T", e))
	}
}

// QuoteC quotes s as a C string literal.
func QuoteC(s string) string {
	var b strings.Builder
	b.WriteByte('"')
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch c {
		case '"':
			b.WriteString(`\"`)
		case '\\':
			b.WriteString(`\\`)
		case '\n':
			b.WriteString(`\n`)
		case '\t':
			b.WriteString(`\t`)
		case '\r':
			b.WriteString(`\r`)
		default:
			if c < 0x20 || c == 0x7f {
				fmt.Fprintf(&b, "\\%03o", c)
				continue
			}
			b.WriteByte(c)
		}
	}
	b.WriteByte('"')
	return b.String()
}

// PlainName spells a variable by its name. Used by dumps and traces.
func PlainName(v *Variable) string {
	if v == nil {
		return "/*nil var*/"
	}
	return v.Name
}
