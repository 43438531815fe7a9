package loader

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"github.com/roach88/weave/internal/ir"
)

// binaryPrec is the C precedence of each binary operator (higher binds
// tighter).
var binaryPrec = map[string]int{
	"||": 1,
	"&&": 2,
	"|":  3,
	"^":  4,
	"&":  5,
	"==": 6, "!=": 6,
	"<": 7, "<=": 7, ">": 7, ">=": 7,
	"<<": 8, ">>": 8,
	"+": 9, "-": 9,
	"*": 10, "/": 10, "%": 10,
}

// Two-character operators, tried before single characters.
var longOps = []string{"||", "&&", "==", "!=", "<=", ">=", "<<", ">>"}

type tokenKind int

const (
	tokEOF tokenKind = iota
	tokIdent
	tokNumber
	tokString
	tokOp
)

type exprToken struct {
	kind tokenKind
	text string
	pos  int
}

// ExprError is an expression syntax error at a byte offset.
type ExprError struct {
	Expr    string
	Offset  int
	Message string
}

func (e *ExprError) Error() string {
	return fmt.Sprintf("expression %q at offset %d: %s", e.Expr, e.Offset, e.Message)
}

// ParseExpr parses src. lookup resolves identifiers to variables; an
// identifier it does not know becomes a literal.
func ParseExpr(src string, lookup func(string) (*ir.Variable, bool)) (ir.Expr, error) {
	toks, err := tokenize(src)
	if err != nil {
		return nil, err
	}
	p := &exprParser{src: src, toks: toks, lookup: lookup}
	e, err := p.binary(1)
	if err != nil {
		return nil, err
	}
	if t := p.peek(); t.kind != tokEOF {
		return nil, p.errorf(t, "unexpected %q", t.text)
	}
	return e, nil
}

func tokenize(src string) ([]exprToken, error) {
	var toks []exprToken
	i := 0
	for i < len(src) {
		c := rune(src[i])
		switch {
		case c == ' ' || c == '\t' || c == '\n' || c == '\r':
			i++
		case c == '_' || unicode.IsLetter(c):
			start := i
			for i < len(src) && (src[i] == '_' || src[i] >= 0x80 || isAlnum(src[i])) {
				i++
			}
			toks = append(toks, exprToken{kind: tokIdent, text: src[start:i], pos: start})
		case c >= '0' && c <= '9':
			start := i
			for i < len(src) && (isAlnum(src[i]) || src[i] == '.') {
				i++
			}
			toks = append(toks, exprToken{kind: tokNumber, text: src[start:i], pos: start})
		case c == '"':
			start := i
			i++
			for i < len(src) && src[i] != '"' {
				if src[i] == '\\' {
					i++
				}
				i++
			}
			if i >= len(src) {
				return nil, &ExprError{Expr: src, Offset: start, Message: "unterminated string"}
			}
			i++
			toks = append(toks, exprToken{kind: tokString, text: src[start:i], pos: start})
		default:
			op := ""
			for _, l := range longOps {
				if strings.HasPrefix(src[i:], l) {
					op = l
					break
				}
			}
			if op == "" {
				if !strings.ContainsRune("+-*/%<>!~&|^()[],", c) {
					return nil, &ExprError{Expr: src, Offset: i, Message: fmt.Sprintf("unexpected character %q", c)}
				}
				op = string(c)
			}
			toks = append(toks, exprToken{kind: tokOp, text: op, pos: i})
			i += len(op)
		}
	}
	return append(toks, exprToken{kind: tokEOF, pos: len(src)}), nil
}

func isAlnum(c byte) bool {
	return c == '_' || (c >= '0' && c <= '9') || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

type exprParser struct {
	src    string
	toks   []exprToken
	i      int
	lookup func(string) (*ir.Variable, bool)
}

func (p *exprParser) peek() exprToken {
	return p.toks[p.i]
}

func (p *exprParser) next() exprToken {
	t := p.toks[p.i]
	if t.kind != tokEOF {
		p.i++
	}
	return t
}

func (p *exprParser) isOp(text string) bool {
	t := p.peek()
	return t.kind == tokOp && t.text == text
}

func (p *exprParser) expect(text string) error {
	if !p.isOp(text) {
		t := p.peek()
		if t.kind == tokEOF {
			return p.errorf(t, "expected %q, got end of input", text)
		}
		return p.errorf(t, "expected %q, got %q", text, t.text)
	}
	p.next()
	return nil
}

func (p *exprParser) errorf(t exprToken, format string, args ...any) error {
	return &ExprError{Expr: p.src, Offset: t.pos, Message: fmt.Sprintf(format, args...)}
}

// binary parses operators binding at least as tightly as minPrec.
func (p *exprParser) binary(minPrec int) (ir.Expr, error) {
	left, err := p.unary()
	if err != nil {
		return nil, err
	}
	for {
		t := p.peek()
		prec, ok := binaryPrec[t.text]
		if t.kind != tokOp || !ok || prec < minPrec {
			return left, nil
		}
		p.next()
		right, err := p.binary(prec + 1)
		if err != nil {
			return nil, err
		}
		left = ir.Op(t.text, left, right)
	}
}

func (p *exprParser) unary() (ir.Expr, error) {
	t := p.peek()
	if t.kind == tokOp && (t.text == "!" || t.text == "-" || t.text == "~") {
		p.next()
		x, err := p.unary()
		if err != nil {
			return nil, err
		}
		return ir.Op(t.text, x), nil
	}
	return p.postfix()
}

func (p *exprParser) postfix() (ir.Expr, error) {
	x, err := p.primary()
	if err != nil {
		return nil, err
	}
	for p.isOp("[") {
		p.next()
		idx, err := p.binary(1)
		if err != nil {
			return nil, err
		}
		if err := p.expect("]"); err != nil {
			return nil, err
		}
		x = ir.At(x, idx)
	}
	return x, nil
}

func (p *exprParser) primary() (ir.Expr, error) {
	t := p.next()
	switch t.kind {
	case tokNumber:
		return ir.Lit(t.text), nil
	case tokString:
		s, err := strconv.Unquote(t.text)
		if err != nil {
			return nil, p.errorf(t, "invalid string literal: %v", err)
		}
		return ir.Str(s), nil
	case tokIdent:
		if t.text == "cast" && p.isOp("<") {
			return p.cast(t)
		}
		if p.isOp("(") {
			args, err := p.args()
			if err != nil {
				return nil, err
			}
			return ir.Call(t.text, args...), nil
		}
		if v, ok := p.lookup(t.text); ok {
			return ir.RefOf(v), nil
		}
		return ir.Lit(t.text), nil
	case tokOp:
		if t.text == "(" {
			x, err := p.binary(1)
			if err != nil {
				return nil, err
			}
			if err := p.expect(")"); err != nil {
				return nil, err
			}
			return x, nil
		}
		return nil, p.errorf(t, "unexpected %q", t.text)
	default:
		return nil, p.errorf(t, "unexpected end of input")
	}
}

// args parses a parenthesized, comma-separated argument list.
func (p *exprParser) args() ([]ir.Expr, error) {
	if err := p.expect("("); err != nil {
		return nil, err
	}
	var args []ir.Expr
	if p.isOp(")") {
		p.next()
		return args, nil
	}
	for {
		a, err := p.binary(1)
		if err != nil {
			return nil, err
		}
		args = append(args, a)
		if p.isOp(",") {
			p.next()
			continue
		}
		if err := p.expect(")"); err != nil {
			return nil, err
		}
		return args, nil
	}
}

// cast parses cast<T>(x). The type is taken verbatim from the source
// between the angle brackets.
func (p *exprParser) cast(kw exprToken) (ir.Expr, error) {
	open := p.next()
	depth := 1
	start := open.pos + 1
	end := -1
	for end < 0 {
		t := p.next()
		switch {
		case t.kind == tokEOF:
			return nil, p.errorf(kw, "unterminated cast type")
		case t.kind == tokOp && t.text == "<":
			depth++
		case t.kind == tokOp && t.text == ">":
			depth--
			if depth == 0 {
				end = t.pos
			}
		case t.kind == tokOp && t.text == ">>" && depth <= 2:
			return nil, p.errorf(t, "write nested cast types with a space: \"> >\"")
		}
	}
	typ := strings.TrimSpace(p.src[start:end])
	if typ == "" {
		return nil, p.errorf(kw, "empty cast type")
	}
	args, err := p.args()
	if err != nil {
		return nil, err
	}
	if len(args) != 1 {
		return nil, p.errorf(kw, "cast takes one operand, got %d", len(args))
	}
	return ir.CastTo(typ, args[0]), nil
}
