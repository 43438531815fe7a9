package loader

import (
	_ "embed"
	"fmt"
	"sort"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/load"
	"golang.org/x/text/unicode/norm"
)

//go:embed schema.cue
var schemaSource string

// FragmentsField is the top-level CUE field holding fragment
// descriptions, keyed by fragment name.
const FragmentsField = "fragments"

// cueLoader decodes CUE values against the embedded schema.
type cueLoader struct {
	ctx    *cue.Context
	schema cue.Value
}

func newCUELoader() (*cueLoader, error) {
	ctx := cuecontext.New()
	schema := ctx.CompileString(schemaSource, cue.Filename("weave-schema.cue"))
	if err := schema.Err(); err != nil {
		return nil, fmt.Errorf("compiling embedded schema: %w", err)
	}
	return &cueLoader{ctx: ctx, schema: schema.LookupPath(cue.ParsePath("#Fragment"))}, nil
}

// DecodeCUE compiles src (named filename in positions) and decodes every
// entry of its fragments struct, sorted by name. An entry without a name
// field takes its label.
func DecodeCUE(filename string, src []byte) ([]FragmentDesc, error) {
	l, err := newCUELoader()
	if err != nil {
		return nil, err
	}
	v := l.ctx.CompileBytes(src, cue.Filename(filename))
	if err := v.Err(); err != nil {
		return nil, cueError(ErrCodeSyntax, err)
	}
	return l.decode(v)
}

// DecodeCUEDir loads the CUE package in dir with the CUE loader, so
// fragments may be spread over several files of one package.
func DecodeCUEDir(dir string) ([]FragmentDesc, error) {
	l, err := newCUELoader()
	if err != nil {
		return nil, err
	}
	instances := load.Instances([]string{"."}, &load.Config{Dir: dir})
	if len(instances) == 0 {
		return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("no CUE instances in %s", dir)}
	}
	inst := instances[0]
	if inst.Err != nil {
		return nil, cueError(ErrCodeNotFound, inst.Err)
	}
	v := l.ctx.BuildInstance(inst)
	if err := v.Err(); err != nil {
		return nil, cueError(ErrCodeSyntax, err)
	}
	return l.decode(v)
}

func (l *cueLoader) decode(v cue.Value) ([]FragmentDesc, error) {
	frags := v.LookupPath(cue.ParsePath(FragmentsField))
	if !frags.Exists() {
		return nil, &LoadError{Code: ErrCodeNoFragments, Message: fmt.Sprintf("no %q field", FragmentsField), Pos: v.Pos()}
	}
	iter, err := frags.Fields()
	if err != nil {
		return nil, cueError(ErrCodeSchema, err)
	}

	var descs []FragmentDesc
	for iter.Next() {
		name := norm.NFC.String(iter.Label())
		fv := l.schema.Unify(iter.Value())
		if err := fv.Validate(cue.Concrete(true)); err != nil {
			le := cueError(ErrCodeSchema, err)
			le.Fragment = name
			return nil, le
		}
		var desc FragmentDesc
		if err := fv.Decode(&desc); err != nil {
			le := cueError(ErrCodeSchema, err)
			le.Fragment = name
			return nil, le
		}
		if desc.Name == "" {
			desc.Name = name
		}
		descs = append(descs, desc)
	}
	if len(descs) == 0 {
		return nil, &LoadError{Code: ErrCodeNoFragments, Message: "fragments struct is empty", Pos: frags.Pos()}
	}
	sort.SliceStable(descs, func(i, j int) bool { return descs[i].Name < descs[j].Name })
	return descs, nil
}

// cueError converts a CUE error into a LoadError carrying the position of
// the first error, when CUE reports one.
func cueError(code string, err error) *LoadError {
	le := &LoadError{Code: code, Message: err.Error()}
	errs := errors.Errors(err)
	if len(errs) == 0 {
		return le
	}
	first := errs[0]
	le.Message = first.Error()
	if positions := errors.Positions(first); len(positions) > 0 {
		le.Pos = positions[0]
	}
	return le
}
