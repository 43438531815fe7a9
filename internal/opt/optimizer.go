package opt

import (
	"fmt"
	"log/slog"

	"github.com/roach88/weave/internal/cfg"
	"github.com/roach88/weave/internal/ir"
)

// Default tunables.
const (
	DefaultMaxRounds     = 64
	DefaultCopyRounds    = 4
	DefaultCopyLimit     = 4
	DefaultMaxDepth      = 10
	DefaultMaxInlineSize = 100
)

// Limits bound what a single fold may do.
type Limits struct {
	// MaxDepth is the deepest statement nesting level searched for
	// candidate branches.
	MaxDepth int
	// MaxInlineSize is the largest recursive statement count a target
	// may have.
	MaxInlineSize int
	// CopyLimit is how many call sites a block may be folded into over
	// all copy rounds of a run.
	CopyLimit int
}

// DefaultLimits returns the default folding limits.
func DefaultLimits() Limits {
	return Limits{
		MaxDepth:      DefaultMaxDepth,
		MaxInlineSize: DefaultMaxInlineSize,
		CopyLimit:     DefaultCopyLimit,
	}
}

// Stats summarizes one optimization run.
type Stats struct {
	NormalRounds     int  `json:"normal_rounds"`
	CopyRounds       int  `json:"copy_rounds"`
	FinalRounds      int  `json:"final_rounds"`
	BlocksBefore     int  `json:"blocks_before"`
	BlocksAfter      int  `json:"blocks_after"`
	Removed          int  `json:"removed"`
	Folds            int  `json:"folds"`
	DeadStmts        int  `json:"dead_stmts"`
	ViolationsBefore int  `json:"violations_before"`
	ViolationsAfter  int  `json:"violations_after"`
	QuotaExceeded    bool `json:"quota_exceeded,omitempty"`
}

// Optimizer drives inlining rounds to a fixed point.
type Optimizer struct {
	logger     *slog.Logger
	maxRounds  int
	copyRounds int
	limits     Limits
	validate   bool
}

// Option configures an Optimizer.
type Option func(*Optimizer)

// WithLogger sets the logger for round and validator output.
func WithLogger(logger *slog.Logger) Option {
	return func(o *Optimizer) {
		o.logger = logger
	}
}

// WithMaxRounds sets the round quota of each fixed-point phase.
//
// Default: 64 rounds (DefaultMaxRounds)
func WithMaxRounds(n int) Option {
	return func(o *Optimizer) {
		o.maxRounds = n
	}
}

// WithCopyRounds sets how many copy-inline rounds run between the two
// normal phases. Zero disables copy-inlining.
func WithCopyRounds(n int) Option {
	return func(o *Optimizer) {
		o.copyRounds = n
	}
}

// WithLimits overrides the folding limits.
func WithLimits(l Limits) Option {
	return func(o *Optimizer) {
		o.limits = l
	}
}

// WithoutValidation skips the cfg validator between rounds.
func WithoutValidation() Option {
	return func(o *Optimizer) {
		o.validate = false
	}
}

// New creates an Optimizer with default tunables.
func New(opts ...Option) *Optimizer {
	o := &Optimizer{
		logger:     slog.Default(),
		maxRounds:  DefaultMaxRounds,
		copyRounds: DefaultCopyRounds,
		limits:     DefaultLimits(),
		validate:   true,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Run optimizes f in place:
//
//	normal rounds to a fixed point, CopyRounds copy rounds, normal rounds
//	to a fixed point again.
func (o *Optimizer) Run(f *ir.Fragment) Stats {
	s := o.newSession(f)
	s.stats.BlocksBefore = len(f.Blocks())

	s.stats.NormalRounds = s.fixedPoint("normal")
	for i := 0; i < o.copyRounds; i++ {
		s.round(ModeCopy)
		s.stats.CopyRounds++
	}
	s.stats.FinalRounds = s.fixedPoint("final")

	s.stats.BlocksAfter = len(f.Blocks())
	o.logger.Info("fragment optimized",
		"fragment", f.Name,
		"blocks_before", s.stats.BlocksBefore,
		"blocks_after", s.stats.BlocksAfter,
		"removed", s.stats.Removed,
		"folds", s.stats.Folds,
		"rounds", s.stats.NormalRounds+s.stats.CopyRounds+s.stats.FinalRounds,
	)
	return *s.stats
}

// Round runs a single round on f with fresh copy counts and returns the
// number of blocks removed.
func (o *Optimizer) Round(f *ir.Fragment, mode Mode) int {
	return o.newSession(f).round(mode)
}

// session carries the state of one optimization run across rounds.
type session struct {
	o      *Optimizer
	frag   *ir.Fragment
	copies map[*ir.Block]int
	stats  *Stats
	rounds int
}

func (o *Optimizer) newSession(f *ir.Fragment) *session {
	return &session{
		o:      o,
		frag:   f,
		copies: make(map[*ir.Block]int),
		stats:  &Stats{},
	}
}

// fixedPoint repeats normal rounds until one removes nothing or the quota
// runs out, and returns the number of rounds run.
func (s *session) fixedPoint(phase string) int {
	quota := NewRoundQuota(s.o.maxRounds)
	for {
		if err := quota.Check(phase); err != nil {
			s.stats.QuotaExceeded = true
			s.o.logger.Warn("optimizer phase stopped", "fragment", s.frag.Name, "error", err)
			return quota.Current() - 1
		}
		if s.round(ModeNormal) == 0 {
			return quota.Current()
		}
	}
}

// round runs one round and returns the number of blocks removed.
func (s *session) round(mode Mode) int {
	s.rounds++
	s.check(fmt.Sprintf("before round %d", s.rounds), s.rounds == 1)

	s.stats.DeadStmts += EliminateDeadCode(s.frag)

	in := &inliner{
		frag:    s.frag,
		mode:    mode,
		limits:  s.o.limits,
		logger:  s.o.logger,
		deg:     AnalyzeDegrees(s.frag),
		reach:   newReachability(s.frag),
		removed: make(map[*ir.Block]bool),
		copies:  s.copies,
	}
	in.run()

	emptied := foldEmptyBlocks(s.frag, in.removed)
	removed := s.frag.RemoveBlocks(func(b *ir.Block) bool {
		return in.removed[b] || emptied[b]
	})
	verifyNoDangling(s.frag, in.removed, emptied)

	s.stats.Removed += removed
	s.stats.Folds += in.folds
	s.check(fmt.Sprintf("after round %d", s.rounds), false)

	s.o.logger.Debug("optimizer round",
		"fragment", s.frag.Name,
		"round", s.rounds,
		"mode", mode.String(),
		"folds", in.folds,
		"removed", removed,
		"blocks", len(s.frag.Blocks()),
	)
	return removed
}

// check runs the validator oracle. first records the count as the
// "before" figure of the run; every pass updates the "after" figure.
func (s *session) check(phase string, first bool) {
	if !s.o.validate {
		return
	}
	res := cfg.Validate(s.frag, cfg.WithLogger(s.o.logger), cfg.WithPhase(phase))
	if first {
		s.stats.ViolationsBefore = res.Count()
	}
	s.stats.ViolationsAfter = res.Count()
}

// foldEmptyBlocks finds surviving non-entry blocks with an empty statement
// list and turns every branch to them into an exit branch: falling off an
// empty block leaves the pipeline. It returns the emptied set.
func foldEmptyBlocks(f *ir.Fragment, removed map[*ir.Block]bool) map[*ir.Block]bool {
	empty := make(map[*ir.Block]bool)
	for i, b := range f.Blocks() {
		if i > 0 && !removed[b] && len(b.Stmts) == 0 {
			empty[b] = true
		}
	}
	if len(empty) == 0 {
		return empty
	}
	for _, b := range f.Blocks() {
		if removed[b] {
			continue
		}
		ir.Branches(b.Stmts, func(br *ir.Branch) {
			if !br.Exit && empty[br.Target] {
				br.Target = nil
				br.Exit = true
			}
		})
	}
	return empty
}

// verifyNoDangling panics if a surviving block still branches to a
// dropped block.
func verifyNoDangling(f *ir.Fragment, sets ...map[*ir.Block]bool) {
	for _, b := range f.Blocks() {
		ir.Branches(b.Stmts, func(br *ir.Branch) {
			for _, set := range sets {
				if br.Target != nil && set[br.Target] {
					panic(ir.Invariantf(ir.ErrRemovedReference,
						"block %s branches to removed block %s", ir.BlockName(b), ir.BlockName(br.Target)))
				}
			}
		})
	}
}
