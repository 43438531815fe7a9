package harness

import (
	"fmt"
	"reflect"
	"strings"
)

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string   // Assertion type for categorization
	Expected string   // Human-readable expected outcome
	Actual   string   // Human-readable actual outcome
	Trace    []string // Full trace for debugging context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if len(e.Trace) > 0 {
		fmt.Fprintf(&buf, "\nFull trace:\n")
		for i, stmt := range e.Trace {
			fmt.Fprintf(&buf, "  [%d] %s\n", i+1, stmt)
		}
	}

	return buf.String()
}

func assertCount(kind string, got int, a Assertion) error {
	if got == *a.Count {
		return nil
	}
	return &AssertionError{
		Type:     kind,
		Expected: fmt.Sprintf("%d", *a.Count),
		Actual:   fmt.Sprintf("%d", got),
	}
}

// assertTraceContains checks that the trace holds the statement.
func assertTraceContains(trace []string, a Assertion) error {
	for _, s := range trace {
		if s == a.Stmt {
			return nil
		}
	}
	return &AssertionError{
		Type:     AssertTraceContains,
		Expected: fmt.Sprintf("statement %q", a.Stmt),
		Actual:   "not found in trace",
		Trace:    trace,
	}
}

// assertTraceOrder checks that statements appear in the specified order.
// They need not be consecutive; each match starts after the previous one.
func assertTraceOrder(trace []string, a Assertion) error {
	pos := 0
	for _, want := range a.Stmts {
		found := false
		for pos < len(trace) {
			pos++
			if trace[pos-1] == want {
				found = true
				break
			}
		}
		if !found {
			return &AssertionError{
				Type:     AssertTraceOrder,
				Expected: fmt.Sprintf("statements in order: %q", a.Stmts),
				Actual:   fmt.Sprintf("%q not found after position %d", want, pos),
				Trace:    trace,
			}
		}
	}
	return nil
}

// assertTraceCount checks that the statement appears exactly N times.
func assertTraceCount(trace []string, a Assertion) error {
	count := 0
	for _, s := range trace {
		if s == a.Stmt {
			count++
		}
	}
	if count == *a.Count {
		return nil
	}
	return &AssertionError{
		Type:     AssertTraceCount,
		Expected: fmt.Sprintf("%q appears %d times", a.Stmt, *a.Count),
		Actual:   fmt.Sprintf("appears %d times", count),
		Trace:    trace,
	}
}

func assertPlacement(result *Result, a Assertion) error {
	class, ok := result.Placement[a.Var]
	if !ok {
		return &AssertionError{
			Type:     AssertPlacement,
			Expected: fmt.Sprintf("variable %s placed as %s", a.Var, a.Class),
			Actual:   "no such variable",
		}
	}
	if class != a.Class {
		return &AssertionError{
			Type:     AssertPlacement,
			Expected: fmt.Sprintf("variable %s placed as %s", a.Var, a.Class),
			Actual:   class,
		}
	}
	return nil
}

func assertEmittedContains(result *Result, a Assertion) error {
	stream, text := "body", result.Body
	if a.Stream == "decls" {
		stream, text = "decls", result.Decls
	}
	if strings.Contains(text, a.Text) {
		return nil
	}
	return &AssertionError{
		Type:     AssertEmittedContains,
		Expected: fmt.Sprintf("%s stream contains %q", stream, a.Text),
		Actual:   "not found",
	}
}

func assertValid(result *Result) error {
	if len(result.Violations) == 0 {
		return nil
	}
	msgs := make([]string, len(result.Violations))
	for i, v := range result.Violations {
		msgs[i] = v.Error()
	}
	return &AssertionError{
		Type:     AssertValid,
		Expected: "no validator findings",
		Actual:   strings.Join(msgs, "; "),
	}
}

func assertEquivalent(result *Result) error {
	if reflect.DeepEqual(result.Trace, result.Baseline) {
		return nil
	}
	return &AssertionError{
		Type:     AssertEquivalent,
		Expected: fmt.Sprintf("trace of the unoptimized fragment: %q", result.Baseline),
		Actual:   fmt.Sprintf("%q", result.Trace),
		Trace:    result.Trace,
	}
}

func assertLanesTerminate(result *Result) error {
	if result.Schedule == nil {
		return &AssertionError{
			Type:     AssertLanesTerminate,
			Expected: "a multi-lane simulation",
			Actual:   fmt.Sprintf("scenario runs %d lane", result.Lanes),
		}
	}
	for i, lane := range result.Schedule.Lanes {
		if !reflect.DeepEqual(lane, result.Trace) {
			return &AssertionError{
				Type:     AssertLanesTerminate,
				Expected: "every lane produces the single-lane trace",
				Actual:   fmt.Sprintf("lane %d produced %q", i, lane),
				Trace:    result.Trace,
			}
		}
	}
	return nil
}

// EvaluateAssertions checks every assertion against the result and
// returns the failure messages.
func EvaluateAssertions(result *Result, assertions []Assertion) []string {
	var errs []string
	for i, a := range assertions {
		var err error
		switch a.Type {
		case AssertBlocksAfter:
			err = assertCount(a.Type, result.Blocks, a)
		case AssertRemoved:
			err = assertCount(a.Type, result.Stats.Removed, a)
		case AssertTraceContains:
			err = assertTraceContains(result.Trace, a)
		case AssertTraceOrder:
			err = assertTraceOrder(result.Trace, a)
		case AssertTraceCount:
			err = assertTraceCount(result.Trace, a)
		case AssertPlacement:
			err = assertPlacement(result, a)
		case AssertEmittedContains:
			err = assertEmittedContains(result, a)
		case AssertValid:
			err = assertValid(result)
		case AssertEquivalent:
			err = assertEquivalent(result)
		case AssertLanesTerminate:
			err = assertLanesTerminate(result)
		default:
			err = fmt.Errorf("unknown assertion type %q", a.Type)
		}
		if err != nil {
			errs = append(errs, fmt.Sprintf("assertions[%d]: %v", i, err))
		}
	}
	return errs
}
