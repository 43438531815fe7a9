package cfg

import (
	"fmt"
	"log/slog"

	"github.com/roach88/weave/internal/ir"
)

// Violation codes (W100-W199).
const (
	ErrSealedBlock    = "W101" // statement after unconditional branch
	ErrForeignTarget  = "W102" // branch target not owned by the fragment
	ErrMissingTarget  = "W103" // non-exit branch without target
	ErrExitWithTarget = "W104" // exit branch with a target
)

// Violation is one structural finding.
type Violation struct {
	Code    string `json:"code"`
	Block   string `json:"block"`
	Path    string `json:"path"` // statement path inside the block, e.g. "3" or "2.0.1"
	Message string `json:"message"`
}

// Error implements the error interface.
func (v Violation) Error() string {
	return fmt.Sprintf("[%s] %s@%s: %s", v.Code, v.Block, v.Path, v.Message)
}

// Result holds the findings of one validation pass.
type Result struct {
	Violations []Violation `json:"violations,omitempty"`
}

// OK reports whether the pass found nothing.
func (r Result) OK() bool {
	return len(r.Violations) == 0
}

// Count returns the number of findings.
func (r Result) Count() int {
	return len(r.Violations)
}

// Option configures the validator.
type Option func(*validator)

// WithLogger routes findings to logger instead of slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(v *validator) {
		v.logger = logger
	}
}

// WithPhase tags log records with the optimizer phase that requested the
// pass (e.g. "before round 3").
func WithPhase(phase string) Option {
	return func(v *validator) {
		v.phase = phase
	}
}

// Validate checks every block of f. Findings are logged at Warn and
// returned; Validate never panics on malformed input.
func Validate(f *ir.Fragment, opts ...Option) Result {
	v := &validator{
		frag:   f,
		logger: slog.Default(),
		owned:  make(map[*ir.Block]bool, len(f.Blocks())),
	}
	for _, opt := range opts {
		opt(v)
	}
	for _, b := range f.Blocks() {
		v.owned[b] = true
	}

	for _, b := range f.Blocks() {
		v.block = ir.BlockName(b)
		v.validateList(b.Stmts, "")
	}

	for _, viol := range v.violations {
		v.logger.Warn("cfg violation",
			"fragment", f.Name,
			"phase", v.phase,
			"code", viol.Code,
			"block", viol.Block,
			"path", viol.Path,
			"message", viol.Message,
		)
	}

	return Result{Violations: v.violations}
}

// validator accumulates violations during traversal.
type validator struct {
	frag       *ir.Fragment
	logger     *slog.Logger
	phase      string
	owned      map[*ir.Block]bool
	block      string
	violations []Violation
}

func (v *validator) add(code, path, format string, args ...any) {
	v.violations = append(v.violations, Violation{
		Code:    code,
		Block:   v.block,
		Path:    path,
		Message: fmt.Sprintf(format, args...),
	})
}

// validateList checks one statement list and recurses into nested lists.
func (v *validator) validateList(stmts []ir.Stmt, prefix string) {
	sealed := false
	for i, s := range stmts {
		path := fmt.Sprintf("%s%d", prefix, i)

		if sealed {
			if _, isComment := s.(*ir.Comment); !isComment {
				v.add(ErrSealedBlock, path, "%T follows an unconditional branch", s)
			}
		}

		switch st := s.(type) {
		case *ir.Branch:
			v.validateBranch(st, path)
			if st.Unconditional() {
				sealed = true
			}
		case *ir.Scope:
			v.validateList(st.Body, path+".")
		case *ir.Predicated:
			v.validateList(st.Body, path+".")
		}
	}
}

func (v *validator) validateBranch(br *ir.Branch, path string) {
	switch {
	case br.Exit && br.Target != nil:
		v.add(ErrExitWithTarget, path, "exit branch also targets %s", ir.BlockName(br.Target))
	case !br.Exit && br.Target == nil:
		v.add(ErrMissingTarget, path, "branch has no target and is not an exit")
	case !br.Exit && !v.owned[br.Target]:
		v.add(ErrForeignTarget, path, "branch targets %s which is not registered with fragment %q",
			ir.BlockName(br.Target), v.frag.Name)
	}
}
