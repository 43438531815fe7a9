package interp

import (
	"errors"
	"fmt"

	"github.com/roach88/weave/internal/ir"
)

// DefaultMaxSteps bounds the number of block executions of one run.
const DefaultMaxSteps = 100_000

// StepLimitError is returned when a run executes more blocks than its
// limit allows, usually because the oracle keeps a loop going.
type StepLimitError struct {
	Fragment string
	Limit    int
}

// Error implements the error interface.
func (e *StepLimitError) Error() string {
	return fmt.Sprintf("fragment %s: step limit %d exceeded", e.Fragment, e.Limit)
}

// IsStepLimitError returns true if err is a StepLimitError.
func IsStepLimitError(err error) bool {
	var se *StepLimitError
	return errors.As(err, &se)
}

// Option configures Run and Simulate.
type Option func(*config)

type config struct {
	maxSteps int
}

// WithMaxSteps sets the block-execution limit.
//
// Default: 100000 steps (DefaultMaxSteps)
func WithMaxSteps(n int) Option {
	return func(c *config) {
		c.maxSteps = n
	}
}

func newConfig(opts []Option) config {
	c := config{maxSteps: DefaultMaxSteps}
	for _, opt := range opts {
		opt(&c)
	}
	return c
}

// Result is the outcome of a single-lane run.
type Result struct {
	Trace []string `json:"trace"`
	// Steps is the number of block executions.
	Steps int `json:"steps"`
	// Path lists the executed blocks by ir.BlockName.
	Path []string `json:"path"`
}

// Run interprets f from its entry block until it exits.
func Run(f *ir.Fragment, oracle Oracle, opts ...Option) (*Result, error) {
	cfg := newConfig(opts)
	res := &Result{}
	entry := f.Entry()
	if entry == nil {
		return res, nil
	}

	lane := newLane(f, oracle)
	b := entry
	for b != nil {
		res.Steps++
		if res.Steps > cfg.maxSteps {
			res.Trace = lane.trace
			return res, &StepLimitError{Fragment: f.Name, Limit: cfg.maxSteps}
		}
		res.Path = append(res.Path, ir.BlockName(b))
		tr, err := lane.execBlock(b)
		if err != nil {
			res.Trace = lane.trace
			return res, err
		}
		b = tr.target
	}
	res.Trace = lane.trace
	return res, nil
}

// transfer is where control goes when a block finishes. A nil target
// means the lane exits.
type transfer struct {
	target    *ir.Block
	threading ir.Threading
}

// lane is the execution state of one logical lane.
type lane struct {
	frag   *ir.Fragment
	oracle Oracle
	asked  map[string]int
	trace  []string
}

func newLane(f *ir.Fragment, oracle Oracle) *lane {
	return &lane{
		frag:   f,
		oracle: oracle,
		asked:  make(map[string]int),
	}
}

// execBlock runs b and returns the control transfer it ends with.
// Falling off the end of a block exits.
func (l *lane) execBlock(b *ir.Block) (transfer, error) {
	tr, done, err := l.execList(b.Stmts)
	if err != nil || done {
		return tr, err
	}
	return transfer{}, nil
}

// execList runs stmts. done reports that a taken branch ended the list.
func (l *lane) execList(stmts []ir.Stmt) (transfer, bool, error) {
	for _, s := range stmts {
		switch st := s.(type) {
		case *ir.Assign, *ir.Effect, *ir.Plain:
			l.trace = append(l.trace, ir.DumpStmt(st))
		case *ir.Comment, *ir.InlineTarget:
		case *ir.Scope:
			tr, done, err := l.execList(st.Body)
			if err != nil || done {
				return tr, done, err
			}
		case *ir.Predicated:
			if !l.ask(st.Cond) {
				continue
			}
			tr, done, err := l.execList(st.Body)
			if err != nil || done {
				return tr, done, err
			}
		case *ir.Branch:
			if st.Cond != nil && !l.ask(st.Cond) {
				continue
			}
			if st.Exit {
				return transfer{threading: st.Threading}, true, nil
			}
			if st.Target == nil || !l.frag.Owns(st.Target) {
				return transfer{}, true, fmt.Errorf("branch to unknown block %s", ir.BlockName(st.Target))
			}
			return transfer{target: st.Target, threading: st.Threading}, true, nil
		default:
			panic(ir.Invariantf(ir.ErrUnknownNode, "unknown statement node %T", s))
		}
	}
	return transfer{}, false, nil
}

func (l *lane) ask(cond ir.Expr) bool {
	text := ir.FormatExpr(cond, ir.PlainName)
	n := l.asked[text]
	l.asked[text] = n + 1
	return l.oracle.Outcome(text, n)
}
