package loader

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/roach88/weave/internal/ir"
)

// ReservedPrefix starts the identifiers of the emitted scheduler.
const ReservedPrefix = "weave_"

var identPattern = regexp.MustCompile(`^[\p{L}_][\p{L}\p{N}_]*$`)

// builder turns one FragmentDesc into an ir.Fragment.
type builder struct {
	desc   *FragmentDesc
	frag   *ir.Fragment
	blocks map[string]*ir.Block
}

// Build constructs the fragment desc describes. Names and labels are
// NFC-normalized first, so visually identical spellings build identical
// fragments.
func Build(desc FragmentDesc) (*ir.Fragment, error) {
	desc.Name = norm.NFC.String(desc.Name)
	if desc.Name == "" {
		return nil, &LoadError{Code: ErrCodeIdentifier, Message: "fragment name is required"}
	}
	if len(desc.Blocks) == 0 {
		return nil, &LoadError{Code: ErrCodeNoBlocks, Fragment: desc.Name, Message: "fragment has no blocks"}
	}

	b := &builder{
		desc:   &desc,
		frag:   ir.NewFragment(desc.Name),
		blocks: make(map[string]*ir.Block, len(desc.Blocks)),
	}
	for i, bd := range desc.Blocks {
		label := norm.NFC.String(bd.Label)
		path := fmt.Sprintf("blocks[%d]", i)
		if err := b.checkIdent(label, path, "block label"); err != nil {
			return nil, err
		}
		if _, dup := b.blocks[label]; dup {
			return nil, b.errorf(ErrCodeDuplicate, path, "duplicate block label %q", label)
		}
		b.blocks[label] = b.frag.NewBlock(label)
	}

	// Declare every variable before building any expression, so defaults
	// may refer to variables declared later.
	vars := make([]*ir.Variable, len(desc.Vars))
	for i, vd := range desc.Vars {
		v, err := b.declare(vd, fmt.Sprintf("vars[%d]", i))
		if err != nil {
			return nil, err
		}
		vars[i] = v
	}
	for i, vd := range desc.Vars {
		if err := b.construct(vars[i], vd, fmt.Sprintf("vars[%d]", i)); err != nil {
			return nil, err
		}
	}

	for i, bd := range desc.Blocks {
		stmts, err := b.stmts(bd.Stmts, fmt.Sprintf("blocks[%d].stmts", i))
		if err != nil {
			return nil, err
		}
		b.frag.Blocks()[i].Append(stmts...)
	}
	return b.frag, nil
}

func (b *builder) errorf(code, path, format string, args ...any) *LoadError {
	return &LoadError{Code: code, Fragment: b.desc.Name, Path: path, Message: fmt.Sprintf(format, args...)}
}

func (b *builder) checkIdent(name, path, what string) error {
	switch {
	case !identPattern.MatchString(name):
		return b.errorf(ErrCodeIdentifier, path, "invalid %s %q", what, name)
	case strings.HasPrefix(name, ReservedPrefix):
		return b.errorf(ErrCodeIdentifier, path, "%s %q uses the reserved prefix %q", what, name, ReservedPrefix)
	}
	return nil
}

func (b *builder) declare(vd VarDesc, path string) (*ir.Variable, error) {
	name := norm.NFC.String(vd.Name)
	if err := b.checkIdent(name, path, "variable name"); err != nil {
		return nil, err
	}
	if _, dup := b.frag.Var(name); dup {
		return nil, b.errorf(ErrCodeDuplicate, path, "duplicate variable %q", name)
	}
	if strings.TrimSpace(vd.Type) == "" {
		return nil, b.errorf(ErrCodeIdentifier, path, "variable %q has no type", name)
	}
	scope, err := ir.ParseScope(vd.Scope)
	if err != nil {
		return nil, b.errorf(ErrCodeEnum, path, "%v", err)
	}
	return b.frag.NewVar(ir.VarSpec{
		Name:      name,
		Type:      vd.Type,
		Scope:     scope,
		Const:     vd.Const,
		NoPromote: vd.NoPromote,
		Label:     vd.Label,
	}), nil
}

func (b *builder) construct(v *ir.Variable, vd VarDesc, path string) error {
	var err error
	if vd.Default != "" {
		if v.Default, err = b.expr(vd.Default, path+".default"); err != nil {
			return err
		}
	}
	if vd.Init != "" {
		if v.Init, err = b.expr(vd.Init, path+".init"); err != nil {
			return err
		}
	}
	if len(vd.Ctor) > 0 {
		if v.Ctor, err = b.stmts(vd.Ctor, path+".ctor"); err != nil {
			return err
		}
	}
	return nil
}

func (b *builder) lookup(name string) (*ir.Variable, bool) {
	return b.frag.Var(norm.NFC.String(name))
}

func (b *builder) expr(src, path string) (ir.Expr, error) {
	e, err := ParseExpr(src, b.lookup)
	if err != nil {
		var ee *ExprError
		if errors.As(err, &ee) {
			return nil, b.errorf(ErrCodeExpression, path, "%s", ee.Error())
		}
		return nil, b.errorf(ErrCodeExpression, path, "%v", err)
	}
	return e, nil
}

func (b *builder) stmts(descs []StmtDesc, path string) ([]ir.Stmt, error) {
	out := make([]ir.Stmt, 0, len(descs))
	for i := range descs {
		s, err := b.stmt(&descs[i], fmt.Sprintf("%s[%d]", path, i))
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

func (b *builder) stmt(sd *StmtDesc, path string) (ir.Stmt, error) {
	kinds := sd.kinds()
	if len(kinds) != 1 {
		if len(kinds) == 0 {
			return nil, b.errorf(ErrCodeStatement, path, "statement has no kind")
		}
		return nil, b.errorf(ErrCodeStatement, path, "statement mixes kinds %s", strings.Join(kinds, ", "))
	}
	if kinds[0] != "set" && sd.Value != "" {
		return nil, b.errorf(ErrCodeStatement, path, "value belongs to set")
	}
	if kinds[0] != "guard" && len(sd.Then) > 0 {
		return nil, b.errorf(ErrCodeStatement, path, "then belongs to guard")
	}
	if kinds[0] != "br" && kinds[0] != "exit" && (sd.When != "" || sd.Likelihood != "" || sd.Threading != "") {
		return nil, b.errorf(ErrCodeStatement, path, "when, likelihood and threading belong to br or exit")
	}

	switch kinds[0] {
	case "do":
		x, err := b.expr(sd.Do, path+".do")
		if err != nil {
			return nil, err
		}
		return ir.Do(x), nil
	case "set":
		if sd.Value == "" {
			return nil, b.errorf(ErrCodeStatement, path, "set needs a value")
		}
		dst, err := b.expr(sd.Set, path+".set")
		if err != nil {
			return nil, err
		}
		val, err := b.expr(sd.Value, path+".value")
		if err != nil {
			return nil, err
		}
		return &ir.Assign{Dst: dst, Value: val}, nil
	case "guard":
		cond, err := b.expr(sd.Guard, path+".guard")
		if err != nil {
			return nil, err
		}
		body, err := b.stmts(sd.Then, path+".then")
		if err != nil {
			return nil, err
		}
		return &ir.Predicated{Cond: cond, Body: body}, nil
	case "scope":
		body, err := b.stmts(sd.Scope, path+".scope")
		if err != nil {
			return nil, err
		}
		return &ir.Scope{Body: body}, nil
	case "br", "exit":
		return b.branch(sd, path)
	case "note":
		return ir.Note(sd.Note), nil
	case "plain":
		return &ir.Plain{Text: sd.Plain}, nil
	default:
		return &ir.InlineTarget{}, nil
	}
}

func (b *builder) branch(sd *StmtDesc, path string) (ir.Stmt, error) {
	br := &ir.Branch{Exit: sd.Exit}
	if !sd.Exit {
		label := norm.NFC.String(sd.Br)
		target, ok := b.blocks[label]
		if !ok {
			return nil, b.errorf(ErrCodeUnknownBlock, path, "branch to unknown block %q", label)
		}
		br.Target = target
	}
	if sd.When != "" {
		cond, err := b.expr(sd.When, path+".when")
		if err != nil {
			return nil, err
		}
		br.Cond = cond
	}

	var err error
	switch {
	case sd.Likelihood != "":
		if br.Likelihood, err = ir.ParseLikelihood(sd.Likelihood); err != nil {
			return nil, b.errorf(ErrCodeEnum, path, "%v", err)
		}
	case br.Cond == nil:
		br.Likelihood = ir.LikelihoodAlways
	default:
		br.Likelihood = ir.LikelihoodUnknown
	}
	if br.Threading, err = ir.ParseThreading(sd.Threading); err != nil {
		return nil, b.errorf(ErrCodeEnum, path, "%v", err)
	}
	return br, nil
}
