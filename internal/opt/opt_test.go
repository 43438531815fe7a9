package opt

import (
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/weave/internal/cfg"
	"github.com/roach88/weave/internal/interp"
	"github.com/roach88/weave/internal/ir"
	"github.com/roach88/weave/internal/testutil"
)

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func quiet(opts ...Option) *Optimizer {
	return New(append([]Option{WithLogger(discard())}, opts...)...)
}

// code drops comments, leaving the statements that do something.
func code(stmts []ir.Stmt) []string {
	var out []string
	for _, s := range stmts {
		if _, ok := s.(*ir.Comment); ok {
			continue
		}
		out = append(out, ir.DumpStmt(s))
	}
	return out
}

func blockNames(f *ir.Fragment) []string {
	var out []string
	for _, b := range f.Blocks() {
		out = append(out, ir.BlockName(b))
	}
	return out
}

func TestEliminateDeadCode(t *testing.T) {
	f := ir.NewFragment("dce")
	b0 := f.NewBlock("entry")
	b0.Append(
		ir.Note("kept"),
		ir.If(ir.Lit("c"), ir.Exit(), ir.Do(ir.Call("dead1")), ir.Do(ir.Call("dead2"))),
		ir.ExitIf(ir.Lit("d"), ir.LikelihoodUnknown),
		ir.Do(ir.Call("live")),
		ir.Exit(),
		ir.Note("dropped too"),
		ir.Do(ir.Call("dead3")),
	)

	assert.Equal(t, 4, EliminateDeadCode(f))
	assert.Equal(t, []string{
		"// kept",
		"if c { exit [always] }",
		"exit if d [unknown]",
		"do live()",
		"exit [always]",
	}, func() []string {
		var out []string
		for _, s := range b0.Stmts {
			out = append(out, ir.DumpStmt(s))
		}
		return out
	}())
}

func TestEliminateDeadCode_Idempotent(t *testing.T) {
	for seed := int64(0); seed < 50; seed++ {
		f := testutil.RandomFragment(seed)
		EliminateDeadCode(f)
		once := ir.Dump(f)
		assert.Zero(t, EliminateDeadCode(f), "seed %d", seed)
		assert.Equal(t, once, ir.Dump(f), "seed %d", seed)
	}
}

func TestAnalyzeDegrees(t *testing.T) {
	f := testutil.Diamond()
	entry, left, right, join := f.Blocks()[0], f.Blocks()[1], f.Blocks()[2], f.Blocks()[3]
	other := ir.NewFragment("other").NewBlock("x")

	d := AnalyzeDegrees(f)
	assert.Equal(t, 0, d.In(entry))
	assert.Equal(t, 2, d.Out(entry))
	assert.Equal(t, 1, d.In(left))
	assert.Equal(t, 1, d.In(right))
	assert.Equal(t, 2, d.In(join))
	assert.Equal(t, 0, d.Out(join), "falling off the end is not an edge")
	assert.True(t, d.Known(join))
	assert.False(t, d.Known(other))
}

func TestReachability(t *testing.T) {
	f := testutil.Loop(ir.ThreadingIrrelevant)
	entry, loop, done := f.Blocks()[0], f.Blocks()[1], f.Blocks()[2]

	r := newReachability(f)
	assert.True(t, r.reaches(entry, done))
	assert.False(t, r.reaches(done, entry))
	assert.True(t, r.onCycle(loop))
	assert.False(t, r.onCycle(entry))
}

// Scenario: B0 jumps unconditionally to B1 (in-degree 1), which exits.
// One round removes B1 and leaves B0's statements followed directly by
// the exit.
func TestRound_FoldsSinglePredecessor(t *testing.T) {
	f := ir.NewFragment("fold")
	x := f.NewVar(ir.VarSpec{Name: "x", Type: "int"})
	b0 := f.NewBlock("b0")
	b1 := f.NewBlock("b1")
	b0.Append(ir.Do(ir.Call("scan")), ir.Set(x, ir.Int(1)), ir.Jump(b1))
	b1.Append(ir.Exit())

	removed := quiet().Round(f, ModeNormal)

	assert.Equal(t, 1, removed)
	assert.Equal(t, []*ir.Block{b0}, f.Blocks())
	assert.Equal(t, []string{"do scan()", "x = 1", "exit [always]"}, code(b0.Stmts))
	assert.Equal(t, "// begin inline b1.b1", ir.DumpStmt(b0.Stmts[2]))
	assert.Equal(t, "// end inline b1.b1", ir.DumpStmt(b0.Stmts[len(b0.Stmts)-1]))
	assert.True(t, cfg.Validate(f, cfg.WithLogger(discard())).OK())
}

// Scenario: a MustYield branch is a real scheduling transition and is
// never folded, even when its target has a single predecessor.
func TestRound_KeepsYieldPoints(t *testing.T) {
	f := testutil.Chain(2, ir.ThreadingMustYield)
	before := ir.Dump(f)

	assert.Zero(t, quiet().Round(f, ModeNormal))
	assert.Zero(t, quiet().Round(f, ModeCopy))
	assert.Len(t, f.Blocks(), 2)
	assert.Equal(t, before, ir.Dump(f))
}

// A single-predecessor block behind a yield point survives its caller,
// so it still folds its own successor in the same round.
func TestRound_FoldsBehindYieldPoint(t *testing.T) {
	f := ir.NewFragment("behind-yield")
	entry := f.NewBlock("entry")
	scan := f.NewBlock("scan")
	done := f.NewBlock("done")
	toScan := ir.Jump(scan)
	toScan.Threading = ir.ThreadingMustYield
	entry.Append(toScan)
	scan.Append(ir.Do(ir.Call("scan")), ir.Jump(done))
	done.Append(ir.Do(ir.Call("flush")), ir.Exit())

	assert.Equal(t, 1, quiet().Round(f, ModeNormal))
	assert.Equal(t, []*ir.Block{entry, scan}, f.Blocks())
	assert.Equal(t, []string{"do scan()", "do flush()", "exit [always]"}, code(scan.Stmts))
}

func TestRound_ConditionalFoldKeepsGuard(t *testing.T) {
	f := testutil.Diamond()
	removed := quiet().Round(f, ModeNormal)

	assert.Equal(t, 2, removed)
	assert.Equal(t, []string{"b0.entry", "b3.join"}, blockNames(f))
	assert.Equal(t, []string{
		"do begin()",
		"if c { do l() br b3.join [always] }",
		"do r()",
		"br b3.join [always]",
	}, code(f.Entry().Stmts))
}

func TestRound_AppendsExitToFallthroughBody(t *testing.T) {
	f := ir.NewFragment("fallthrough")
	b0 := f.NewBlock("entry")
	b1 := f.NewBlock("tail")
	b0.Append(ir.JumpIf(ir.Lit("c"), b1, ir.LikelihoodLikely), ir.Do(ir.Call("other")))
	b1.Append(ir.Do(ir.Call("tail")))

	require.Equal(t, 1, quiet().Round(f, ModeNormal))
	assert.Equal(t, []string{
		"if c { do tail() exit [always] }",
		"do other()",
	}, code(b0.Stmts))
}

func TestRound_JoinPointsStay(t *testing.T) {
	f := testutil.Diamond()
	o := quiet()
	o.Round(f, ModeNormal)
	assert.Zero(t, o.Round(f, ModeNormal), "join is reached twice from the same block")
	assert.Zero(t, o.Round(f, ModeCopy))
	assert.Len(t, f.Blocks(), 2)
}

func TestRound_NeverInlinesCycles(t *testing.T) {
	f := ir.NewFragment("cycle")
	entry := f.NewBlock("entry")
	head := f.NewBlock("head")
	body := f.NewBlock("body")
	entry.Append(ir.JumpIf(ir.Lit("go"), head, ir.LikelihoodLikely))
	head.Append(ir.Do(ir.Call("h")), ir.Jump(body))
	body.Append(ir.Do(ir.Call("b")), ir.JumpIf(ir.Lit("again"), head, ir.LikelihoodLikely))

	assert.Zero(t, quiet().Round(f, ModeNormal))
	assert.Zero(t, quiet().Round(f, ModeCopy))
	assert.Len(t, f.Blocks(), 3)
}

func TestRound_SelfLoopStays(t *testing.T) {
	f := testutil.Loop(ir.ThreadingIrrelevant)
	quiet().Run(f)
	assert.Equal(t, []string{"b0.entry", "b1.loop"}, blockNames(f))
}

func TestRound_EmptyBlocksBecomeExits(t *testing.T) {
	f := ir.NewFragment("empty")
	entry := f.NewBlock("entry")
	empty := f.NewBlock("empty")
	entry.Append(
		ir.JumpIf(ir.Lit("c"), empty, ir.LikelihoodUnlikely),
		ir.Do(ir.Call("work")),
		ir.JumpIf(ir.Lit("d"), empty, ir.LikelihoodUnknown),
	)

	assert.Equal(t, 1, quiet().Round(f, ModeNormal))
	assert.Equal(t, []*ir.Block{entry}, f.Blocks())
	assert.Equal(t, []string{"exit if c [unlikely]", "do work()", "exit if d [unknown]"}, code(entry.Stmts))
}

func TestRound_DepthLimit(t *testing.T) {
	build := func() *ir.Fragment {
		f := ir.NewFragment("deep")
		entry := f.NewBlock("entry")
		target := f.NewBlock("target")
		entry.Append(&ir.Scope{Body: []ir.Stmt{&ir.Scope{Body: []ir.Stmt{ir.Jump(target)}}}})
		target.Append(ir.Do(ir.Call("t")))
		return f
	}
	shallow := Limits{MaxDepth: 1, MaxInlineSize: DefaultMaxInlineSize, CopyLimit: DefaultCopyLimit}
	assert.Zero(t, quiet(WithLimits(shallow)).Round(build(), ModeNormal))
	assert.Equal(t, 1, quiet().Round(build(), ModeNormal))
}

func TestRound_SizeLimit(t *testing.T) {
	f := ir.NewFragment("big")
	entry := f.NewBlock("entry")
	big := f.NewBlock("big")
	entry.Append(ir.Jump(big))
	for i := 0; i <= DefaultMaxInlineSize; i++ {
		big.Append(ir.Do(ir.Call("work", ir.Int(int64(i)))))
	}

	assert.Zero(t, quiet().Round(f, ModeNormal))
	big.Stmts = big.Stmts[:DefaultMaxInlineSize]
	assert.Equal(t, 1, quiet().Round(f, ModeNormal))
}

// buildShared has a marked trampoline reached from two callers that
// themselves cannot be folded (their incoming branches yield).
func buildShared() (*ir.Fragment, *ir.Block, *ir.Block, *ir.Block) {
	f := ir.NewFragment("shared")
	entry := f.NewBlock("entry")
	a := f.NewBlock("a")
	b := f.NewBlock("b")
	tramp := f.NewBlock("tramp")

	entry.Append(
		&ir.Branch{Cond: ir.Lit("c"), Target: a, Likelihood: ir.LikelihoodLikely, Threading: ir.ThreadingMustYield},
		&ir.Branch{Target: b, Likelihood: ir.LikelihoodAlways, Threading: ir.ThreadingMustYield},
	)
	a.Append(ir.Do(ir.Call("a")), ir.Jump(tramp))
	b.Append(ir.Do(ir.Call("b")), ir.Jump(tramp))
	tramp.Append(&ir.InlineTarget{}, ir.Do(ir.Call("t")))
	return f, a, b, tramp
}

func TestRound_CopyInline(t *testing.T) {
	f, a, b, _ := buildShared()
	assert.Zero(t, quiet().Round(f, ModeNormal), "normal mode never duplicates")

	assert.Equal(t, 1, quiet().Round(f, ModeCopy))
	assert.Equal(t, []string{"b0.entry", "b1.a", "b2.b"}, blockNames(f))
	assert.Equal(t, []string{"do a()", "do t()", "exit [always]"}, code(a.Stmts))
	assert.Equal(t, []string{"do b()", "do t()", "exit [always]"}, code(b.Stmts))
	assert.NotContains(t, ir.Dump(f), "inline_target", "markers are not copied")
}

func TestRound_CopyLimit(t *testing.T) {
	f, a, b, tramp := buildShared()
	one := Limits{MaxDepth: DefaultMaxDepth, MaxInlineSize: DefaultMaxInlineSize, CopyLimit: 1}

	assert.Zero(t, quiet(WithLimits(one)).Round(f, ModeCopy))
	assert.True(t, f.Owns(tramp))
	copied := 0
	for _, blk := range []*ir.Block{a, b} {
		if strings.Contains(ir.DumpStmts(blk.Stmts, 0), "do t()") {
			copied++
		}
	}
	assert.Equal(t, 1, copied)
}

func TestBestCandidate_Preference(t *testing.T) {
	f := ir.NewFragment("prefer")
	entry := f.NewBlock("entry")
	likely := f.NewBlock("likely")
	marked := f.NewBlock("marked")
	entry.Append(
		ir.JumpIf(ir.Lit("p"), likely, ir.LikelihoodLikely),
		ir.JumpIf(ir.Lit("q"), marked, ir.LikelihoodUnlikely),
	)
	likely.Append(ir.Do(ir.Call("l")))
	marked.Append(&ir.InlineTarget{}, ir.Do(ir.Call("m")))

	pick := func(mode Mode) *ir.Block {
		in := &inliner{
			frag:    f,
			mode:    mode,
			limits:  DefaultLimits(),
			logger:  discard(),
			deg:     AnalyzeDegrees(f),
			reach:   newReachability(f),
			removed: make(map[*ir.Block]bool),
			copies:  make(map[*ir.Block]int),
		}
		c := in.bestCandidate(entry)
		require.NotNil(t, c)
		return c.branch.Target
	}
	assert.Same(t, likely, pick(ModeNormal))
	assert.Same(t, marked, pick(ModeCopy))
}

func TestRun_FixedPoint(t *testing.T) {
	for _, f := range []*ir.Fragment{
		testutil.Loop(ir.ThreadingIrrelevant),
		testutil.Chain(8, ir.ThreadingIrrelevant),
		testutil.Diamond(),
		testutil.Probe(),
	} {
		t.Run(f.Name, func(t *testing.T) {
			o := quiet()
			stats := o.Run(f)
			assert.False(t, stats.QuotaExceeded)
			assert.Positive(t, stats.NormalRounds)
			assert.Equal(t, DefaultCopyRounds, stats.CopyRounds)
			assert.Zero(t, o.Round(f, ModeNormal), "already at a fixed point")
			assert.Equal(t, stats.BlocksBefore-stats.Removed, stats.BlocksAfter)
		})
	}
}

func TestRun_ChainCollapses(t *testing.T) {
	f := testutil.Chain(8, ir.ThreadingNeverYield)
	stats := quiet().Run(f)
	assert.Equal(t, 7, stats.Removed)
	assert.Len(t, f.Blocks(), 1)
	assert.Equal(t, 2, stats.NormalRounds, "one productive round, then one idle round")
	assert.Equal(t, 1, stats.FinalRounds)
}

func TestRun_Probe(t *testing.T) {
	f := testutil.Probe()
	stats := quiet().Run(f)

	// Only the loop exit folds: every other block lies on the scan loop.
	assert.Equal(t, []string{"b0.entry", "b1.scan", "b2.lookup", "b3.match", "b4.next"}, blockNames(f))
	assert.Equal(t, 1, stats.Removed)
	assert.Zero(t, stats.ViolationsAfter)
	assert.Contains(t, ir.DumpStmts(f.Blocks()[1].Stmts, 0), "do flush()")
}

func TestRun_QuotaStopsPhase(t *testing.T) {
	f := testutil.Chain(5, ir.ThreadingIrrelevant)
	stats := quiet(WithMaxRounds(0)).Run(f)
	assert.True(t, stats.QuotaExceeded)
	assert.Zero(t, stats.NormalRounds)
}

func TestRun_ReportsViolations(t *testing.T) {
	f := ir.NewFragment("sealed")
	f.NewBlock("entry").Append(ir.Exit(), ir.Do(ir.Call("dead")))

	stats := quiet().Run(f)
	assert.Equal(t, 1, stats.ViolationsBefore)
	assert.Zero(t, stats.ViolationsAfter, "dead code is gone after the first round")
	assert.Equal(t, 1, stats.DeadStmts)

	stats = quiet(WithoutValidation()).Run(testutil.Diamond())
	assert.Zero(t, stats.ViolationsBefore)
}

// Safety and semantic equivalence over random fragments: no surviving
// branch targets a dropped block after any round, and the side-effect
// trace under a fixed oracle is unchanged by optimization.
func TestRun_PreservesBehaviour(t *testing.T) {
	oracle := interp.OracleFunc(testutil.BoundedOracle(3))
	for seed := int64(0); seed < 300; seed++ {
		f := testutil.RandomFragment(seed)
		before, err := interp.Run(f, oracle)
		require.NoError(t, err, "seed %d", seed)

		require.NotPanics(t, func() { quiet().Run(f) }, "seed %d", seed)
		for _, b := range f.Blocks() {
			ir.Branches(b.Stmts, func(br *ir.Branch) {
				if !br.Exit {
					assert.True(t, f.Owns(br.Target), "seed %d: %s branches to a dropped block", seed, ir.BlockName(b))
				}
			})
		}

		after, err := interp.Run(f, oracle)
		require.NoError(t, err, "seed %d", seed)
		assert.Equal(t, before.Trace, after.Trace, "seed %d", seed)
	}
}

func TestRoundQuota(t *testing.T) {
	q := NewRoundQuota(2)
	require.NoError(t, q.Check("normal"))
	require.NoError(t, q.Check("normal"))

	err := q.Check("normal")
	require.Error(t, err)
	var re *RoundsExceededError
	require.ErrorAs(t, err, &re)
	assert.Equal(t, "normal", re.Phase)
	assert.Equal(t, 3, re.Rounds)
	assert.Equal(t, 2, re.Limit)
	assert.True(t, IsRoundsExceededError(err))
	assert.Contains(t, err.Error(), "did not converge")
}
