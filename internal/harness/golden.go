package harness

import (
	"fmt"
	"strings"
	"testing"

	"github.com/sebdah/goldie/v2"
)

// Snapshot renders the deterministic parts of a result as text: the
// optimizer figures, the optimized IR, the trace and both emitted
// streams.
func Snapshot(name string, r *Result) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "scenario: %s\n", name)
	fmt.Fprintf(&b, "fragment: %s\n", r.Fragment)
	fmt.Fprintf(&b, "lanes: %d\n", r.Lanes)
	fmt.Fprintf(&b, "stats: blocks %d -> %d, removed %d, folds %d, dead %d, rounds %d+%d+%d\n",
		r.Stats.BlocksBefore, r.Stats.BlocksAfter, r.Stats.Removed, r.Stats.Folds, r.Stats.DeadStmts,
		r.Stats.NormalRounds, r.Stats.CopyRounds, r.Stats.FinalRounds)
	b.WriteString("-- ir --\n")
	b.WriteString(r.IR)
	b.WriteString("-- trace --\n")
	for _, s := range r.Trace {
		b.WriteString(s)
		b.WriteByte('\n')
	}
	b.WriteString("-- decls --\n")
	b.WriteString(r.Decls)
	b.WriteString("-- body --\n")
	b.WriteString(r.Body)
	return []byte(b.String())
}

// RunWithGolden executes a scenario and compares its snapshot against a
// golden file stored in testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// Returns error if scenario execution fails.
// Test failure (via goldie) occurs if the snapshot doesn't match.
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return nil, err
	}
	AssertGolden(t, scenario.Name, result)
	return result, nil
}

// AssertGolden compares an existing result against a golden file without
// re-running the scenario.
func AssertGolden(t *testing.T, name string, result *Result) {
	t.Helper()

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, name, Snapshot(name, result))
}
