package ir

import (
	"fmt"
	"strings"
)

// Dump renders the fragment in a stable, human-readable text form.
// Used by the optimize command, by tests, and as fingerprint input.
func Dump(f *Fragment) string {
	var b strings.Builder
	fmt.Fprintf(&b, "fragment %s\n", f.Name)
	for _, v := range f.Vars() {
		dumpVar(&b, v)
	}
	for _, blk := range f.Blocks() {
		fmt.Fprintf(&b, "block %s:\n", BlockName(blk))
		dumpStmts(&b, blk.Stmts, 1)
	}
	return b.String()
}

// BlockName is the stable debug name of a block: its creation index and
// label.
func BlockName(b *Block) string {
	if b == nil {
		return "<nil>"
	}
	if b.Label == "" {
		return fmt.Sprintf("b%d", b.id)
	}
	return fmt.Sprintf("b%d.%s", b.id, b.Label)
}

// DumpStmts renders a statement list at the given indentation depth.
func DumpStmts(stmts []Stmt, depth int) string {
	var b strings.Builder
	dumpStmts(&b, stmts, depth)
	return b.String()
}

// DumpStmt renders a single statement on one line (nested lists are
// flattened into braces).
func DumpStmt(s Stmt) string {
	return strings.Join(strings.Fields(DumpStmts([]Stmt{s}, 0)), " ")
}

func dumpVar(b *strings.Builder, v *Variable) {
	fmt.Fprintf(b, "var %s %s %s", v.Name, v.Type, v.Scope)
	if v.Const {
		b.WriteString(" const")
	}
	if v.NoPromote {
		b.WriteString(" nopromote")
	}
	if v.Default != nil {
		fmt.Fprintf(b, " = %s", FormatExpr(v.Default, PlainName))
	}
	if v.Init != nil {
		fmt.Fprintf(b, " init %s", FormatExpr(v.Init, PlainName))
	}
	b.WriteByte('\n')
	if len(v.Ctor) > 0 {
		b.WriteString("  ctor:\n")
		dumpStmts(b, v.Ctor, 2)
	}
}

func dumpStmts(b *strings.Builder, stmts []Stmt, depth int) {
	indent := strings.Repeat("  ", depth)
	for _, s := range stmts {
		b.WriteString(indent)
		switch st := s.(type) {
		case *Assign:
			fmt.Fprintf(b, "%s = %s\n", FormatExpr(st.Dst, PlainName), FormatExpr(st.Value, PlainName))
		case *Effect:
			fmt.Fprintf(b, "do %s\n", FormatExpr(st.X, PlainName))
		case *Scope:
			b.WriteString("{\n")
			dumpStmts(b, st.Body, depth+1)
			b.WriteString(indent)
			b.WriteString("}\n")
		case *Predicated:
			fmt.Fprintf(b, "if %s {\n", FormatExpr(st.Cond, PlainName))
			dumpStmts(b, st.Body, depth+1)
			b.WriteString(indent)
			b.WriteString("}\n")
		case *Branch:
			b.WriteString(dumpBranch(st))
			b.WriteByte('\n')
		case *Comment:
			fmt.Fprintf(b, "// %s\n", st.Text)
		case *Plain:
			fmt.Fprintf(b, "plain %s\n", st.Text)
		case *InlineTarget:
			b.WriteString("inline_target\n")
		default:
			panic(Invariantf(ErrUnknownNode, "unknown statement node %T", s))
		}
	}
}

func dumpBranch(br *Branch) string {
	var b strings.Builder
	if br.Exit {
		b.WriteString("exit")
	} else {
		fmt.Fprintf(&b, "br %s", BlockName(br.Target))
	}
	if br.Cond != nil {
		fmt.Fprintf(&b, " if %s", FormatExpr(br.Cond, PlainName))
	}
	fmt.Fprintf(&b, " [%s", br.Likelihood)
	if br.Threading != ThreadingIrrelevant {
		fmt.Fprintf(&b, " %s", br.Threading)
	}
	b.WriteByte(']')
	return b.String()
}
