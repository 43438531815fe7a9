package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/roach88/weave/internal/interp"
	"github.com/roach88/weave/internal/ir"
	"github.com/roach88/weave/internal/loader"
)

// loadFragment loads the fragment description at path and selects the
// named fragment (the only one when name is empty). Load problems are
// reported through the formatter and become exit code 2.
func loadFragment(formatter *OutputFormatter, path, name string) (*ir.Fragment, error) {
	frags, err := loader.Load(path)
	if err != nil {
		if le, ok := loader.IsLoadError(err); ok {
			var details any
			if le.Pos.IsValid() {
				details = map[string]any{
					"file":   le.Pos.Filename(),
					"line":   le.Pos.Line(),
					"column": le.Pos.Column(),
				}
			}
			_ = formatter.Error(le.Code, le.Error(), details)
			return nil, WrapExitError(ExitCommandError, "failed to load fragment", err)
		}
		return nil, fail(formatter, ExitCommandError, ErrCodeGeneric, err.Error())
	}
	f, err := loader.Select(frags, name)
	if err != nil {
		return nil, fail(formatter, ExitCommandError, ErrCodeGeneric, err.Error())
	}
	formatter.VerboseLog("Loaded fragment %s: %d block(s), %d variable(s)", f.Name, len(f.Blocks()), len(f.Vars()))
	return f, nil
}

// parseOutcomes parses --outcomes values of the form
//
//	cond=true,false,1,0
//
// where cond is the condition as the interpreter prints it, e.g.
// "(i < limit)". A condition given twice keeps the later sequence.
func parseOutcomes(specs []string) (interp.Outcomes, error) {
	out := interp.Outcomes{}
	for _, spec := range specs {
		i := strings.LastIndex(spec, "=")
		if i <= 0 {
			return nil, fmt.Errorf("outcome %q: want cond=bool[,bool...]", spec)
		}
		cond, list := strings.TrimSpace(spec[:i]), spec[i+1:]
		var seq []bool
		for _, s := range strings.Split(list, ",") {
			b, err := strconv.ParseBool(strings.TrimSpace(s))
			if err != nil {
				return nil, fmt.Errorf("outcome %q: %w", spec, err)
			}
			seq = append(seq, b)
		}
		out[cond] = seq
	}
	return out, nil
}
