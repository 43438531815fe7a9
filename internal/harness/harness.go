package harness

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/roach88/weave/internal/cfg"
	"github.com/roach88/weave/internal/codegen"
	"github.com/roach88/weave/internal/interp"
	"github.com/roach88/weave/internal/ir"
	"github.com/roach88/weave/internal/loader"
	"github.com/roach88/weave/internal/opt"
	"github.com/roach88/weave/internal/store"
	"github.com/roach88/weave/internal/testutil"
)

// Harness is the scenario execution engine. It runs every scenario with
// a deterministic clock and run ID against its own in-memory store.
type Harness struct {
	store  *store.Store
	clock  *testutil.DeterministicClock
	logger *slog.Logger
}

// Run executes a scenario and returns the result.
//
// Execution flow:
//  1. Load the fragment description and build it twice (baseline and
//     working copy)
//  2. Interpret the baseline
//  3. Optimize the working copy (unless disabled) and validate it
//  4. Emit code and record the artifact and the run
//  5. Interpret the working copy, simulate the lanes
//  6. Evaluate assertions
func Run(scenario *Scenario) (*Result, error) {
	clock := testutil.NewDeterministicClock()
	st, err := store.Open(":memory:",
		store.WithClock(clock.Now),
		store.WithRunIDGenerator(testutil.NewFixedRunIDGenerator(scenario.RunID)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	h := &Harness{
		store:  st,
		clock:  clock,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)), // Suppress logs in tests
	}
	return h.run(context.Background(), scenario)
}

func (h *Harness) run(ctx context.Context, scenario *Scenario) (*Result, error) {
	descs, err := loader.Decode(scenario.Fragment)
	if err != nil {
		return nil, fmt.Errorf("failed to load fragment: %w", err)
	}
	baseline, err := h.build(descs, scenario.Select)
	if err != nil {
		return nil, err
	}
	f, err := h.build(descs, scenario.Select)
	if err != nil {
		return nil, err
	}

	oracle := interp.Outcomes(scenario.Oracle)
	lanes := scenario.LaneCount()
	result := NewResult()
	result.Fragment = f.Name
	result.Lanes = lanes
	result.Fingerprint = ir.Fingerprint(f)

	base, err := interp.Run(baseline, oracle)
	if err != nil {
		return nil, fmt.Errorf("failed to interpret baseline: %w", err)
	}
	result.Baseline = base.Trace

	if scenario.Optimized() {
		result.Stats = opt.New(opt.WithLogger(h.logger)).Run(f)
	}
	result.Violations = cfg.Validate(f, cfg.WithLogger(h.logger), cfg.WithPhase("emit")).Violations
	result.IR = ir.Dump(f)
	result.Blocks = len(f.Blocks())

	em, err := codegen.Emit(f, lanes, codegen.WithLogger(h.logger))
	if err != nil {
		return nil, fmt.Errorf("failed to emit: %w", err)
	}
	result.Decls = em.Decls
	result.Body = em.Body

	place := codegen.Place(f)
	for _, v := range f.Vars() {
		result.Placement[v.Name] = place.Class(v).String()
	}

	if err := h.record(ctx, result); err != nil {
		return nil, err
	}

	trace, err := interp.Run(f, oracle)
	if err != nil {
		return nil, fmt.Errorf("failed to interpret: %w", err)
	}
	result.Trace = trace.Trace

	if lanes > 1 {
		sched, err := interp.Simulate(f, lanes, oracle, codegen.DefaultRotation(lanes))
		if err != nil {
			return nil, fmt.Errorf("failed to simulate %d lanes: %w", lanes, err)
		}
		result.Schedule = sched
	}

	for _, msg := range EvaluateAssertions(result, scenario.Assertions) {
		result.AddError(msg)
	}

	h.logger.Info("scenario completed",
		"scenario", scenario.Name,
		"fragment", result.Fragment,
		"lanes", lanes,
		"pass", result.Pass,
	)
	return result, nil
}

func (h *Harness) build(descs []loader.FragmentDesc, name string) (*ir.Fragment, error) {
	frags, err := loader.BuildAll(descs)
	if err != nil {
		return nil, fmt.Errorf("failed to build fragment: %w", err)
	}
	f, err := loader.Select(frags, name)
	if err != nil {
		return nil, fmt.Errorf("failed to select fragment: %w", err)
	}
	return f, nil
}

// record stores the emitted artifact and the run, as the compile command
// does.
func (h *Harness) record(ctx context.Context, result *Result) error {
	art := store.NewArtifact(result.Fragment, result.Fingerprint, result.Lanes, result.Decls, result.Body)
	if _, err := h.store.PutArtifact(ctx, art); err != nil {
		return fmt.Errorf("failed to store artifact: %w", err)
	}
	run, _, err := h.store.RecordRun(ctx, store.Run{
		Fragment:    result.Fragment,
		Fingerprint: result.Fingerprint,
		Lanes:       result.Lanes,
		ArtifactKey: art.Key,
		Stats:       result.Stats,
	})
	if err != nil {
		return fmt.Errorf("failed to record run: %w", err)
	}
	result.RunID = run.ID
	return nil
}
