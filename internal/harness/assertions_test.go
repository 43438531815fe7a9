package harness

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/weave/internal/cfg"
	"github.com/roach88/weave/internal/interp"
)

func sampleResult() *Result {
	r := NewResult()
	r.Lanes = 2
	r.Blocks = 2
	r.Trace = []string{"x = 1", "do a()", "do b()", "do a()"}
	r.Baseline = []string{"x = 1", "do a()", "do b()", "do a()"}
	r.Placement = map[string]string{"x": "lane", "k": "stack"}
	r.Decls = "int x[2];\n"
	r.Body = "{\n  goto weave_yield;\n}\n"
	r.Schedule = &interp.Schedule{Lanes: [][]string{r.Trace, r.Trace}}
	return r
}

func TestEvaluateAssertions_Pass(t *testing.T) {
	errs := EvaluateAssertions(sampleResult(), []Assertion{
		{Type: AssertBlocksAfter, Count: intPtr(2)},
		{Type: AssertRemoved, Count: intPtr(0)},
		{Type: AssertTraceContains, Stmt: "do b()"},
		{Type: AssertTraceOrder, Stmts: []string{"x = 1", "do b()", "do a()"}},
		{Type: AssertTraceCount, Stmt: "do a()", Count: intPtr(2)},
		{Type: AssertPlacement, Var: "k", Class: "stack"},
		{Type: AssertEmittedContains, Text: "weave_yield"},
		{Type: AssertEmittedContains, Stream: "decls", Text: "x[2]"},
		{Type: AssertValid},
		{Type: AssertEquivalent},
		{Type: AssertLanesTerminate},
	})
	assert.Empty(t, errs)
}

func TestEvaluateAssertions_Failures(t *testing.T) {
	r := sampleResult()
	r.Violations = []cfg.Violation{{Code: cfg.ErrSealedBlock, Block: "b0", Path: "1", Message: "dead"}}
	r.Baseline = []string{"x = 1"}
	r.Schedule.Lanes[1] = []string{"x = 1"}

	tests := []struct {
		assertion Assertion
		want      string
	}{
		{Assertion{Type: AssertBlocksAfter, Count: intPtr(3)}, "Actual: 2"},
		{Assertion{Type: AssertTraceContains, Stmt: "do c()"}, "not found in trace"},
		{Assertion{Type: AssertTraceOrder, Stmts: []string{"do b()", "x = 1"}}, `"x = 1" not found`},
		{Assertion{Type: AssertTraceCount, Stmt: "do a()", Count: intPtr(1)}, "appears 2 times"},
		{Assertion{Type: AssertPlacement, Var: "y", Class: "lane"}, "no such variable"},
		{Assertion{Type: AssertPlacement, Var: "x", Class: "thread"}, "Actual: lane"},
		{Assertion{Type: AssertEmittedContains, Stream: "decls", Text: "weave_yield"}, "decls stream"},
		{Assertion{Type: AssertValid}, "[W101]"},
		{Assertion{Type: AssertEquivalent}, "unoptimized"},
		{Assertion{Type: AssertLanesTerminate}, "lane 1 produced"},
		{Assertion{Type: "vibes"}, "unknown assertion type"},
	}
	for _, tt := range tests {
		t.Run(tt.assertion.Type, func(t *testing.T) {
			errs := EvaluateAssertions(r, []Assertion{tt.assertion})
			require.Len(t, errs, 1)
			assert.Contains(t, errs[0], tt.want)
			assert.Contains(t, errs[0], "assertions[0]")
		})
	}
}

func TestAssertionError_IncludesTrace(t *testing.T) {
	err := &AssertionError{Type: "trace_contains", Expected: "e", Actual: "a", Trace: []string{"do a()"}}
	assert.Contains(t, err.Error(), "  [1] do a()\n")

	bare := &AssertionError{Type: "removed", Expected: "1", Actual: "0"}
	assert.NotContains(t, bare.Error(), "Full trace")
}

func TestResult_AddError(t *testing.T) {
	r := NewResult()
	assert.True(t, r.Pass)
	r.AddError("boom")
	assert.False(t, r.Pass)
	assert.Equal(t, []string{"boom"}, r.Errors)
}
