package ir

import "fmt"

// VarScope is the lifetime class of a Variable.
type VarScope int

const (
	// ScopeLocal variables live for one pipeline invocation of one lane.
	ScopeLocal VarScope = iota
	// ScopeThreadWide variables are shared by every lane on one hardware
	// thread and outlive a single pipeline invocation.
	ScopeThreadWide
)

var scopeNames = map[VarScope]string{
	ScopeLocal:      "local",
	ScopeThreadWide: "thread",
}

func (s VarScope) String() string {
	if name, ok := scopeNames[s]; ok {
		return name
	}
	return fmt.Sprintf("VarScope(%d)", int(s))
}

// ParseScope converts the textual form used in fragment descriptions.
// The empty string parses as ScopeLocal.
func ParseScope(s string) (VarScope, error) {
	switch s {
	case "", "local":
		return ScopeLocal, nil
	case "thread", "thread_wide":
		return ScopeThreadWide, nil
	}
	return ScopeLocal, fmt.Errorf("unknown scope %q: must be local or thread", s)
}

// Likelihood is a static branch-probability hint. It is forwarded into the
// emitted code and ranks inlining candidates (higher is preferred).
type Likelihood int

const (
	LikelihoodNever Likelihood = iota
	LikelihoodUnlikely
	LikelihoodUnknown
	LikelihoodLikely
	LikelihoodAlways
)

var likelihoodNames = map[Likelihood]string{
	LikelihoodNever:    "never",
	LikelihoodUnlikely: "unlikely",
	LikelihoodUnknown:  "unknown",
	LikelihoodLikely:   "likely",
	LikelihoodAlways:   "always",
}

func (l Likelihood) String() string {
	if name, ok := likelihoodNames[l]; ok {
		return name
	}
	return fmt.Sprintf("Likelihood(%d)", int(l))
}

// ParseLikelihood converts the textual form used in fragment descriptions.
// The empty string parses as LikelihoodUnknown.
func ParseLikelihood(s string) (Likelihood, error) {
	if s == "" {
		return LikelihoodUnknown, nil
	}
	for l, name := range likelihoodNames {
		if name == s {
			return l, nil
		}
	}
	return LikelihoodUnknown, fmt.Errorf("unknown likelihood %q", s)
}

// Threading is a scheduling contract attached to a Branch by its producer.
// It only matters to the multi-lane code generator.
type Threading int

const (
	// ThreadingIrrelevant lets the scheduler pick: the transition goes
	// through the dispatcher without rotating lanes.
	ThreadingIrrelevant Threading = iota
	// ThreadingMustYield marks a real scheduling transition. Such a
	// branch is never inlined away.
	ThreadingMustYield
	// ThreadingNeverYield falls straight through to the target.
	ThreadingNeverYield
)

var threadingNames = map[Threading]string{
	ThreadingIrrelevant: "irrelevant",
	ThreadingMustYield:  "must_yield",
	ThreadingNeverYield: "never_yield",
}

func (t Threading) String() string {
	if name, ok := threadingNames[t]; ok {
		return name
	}
	return fmt.Sprintf("Threading(%d)", int(t))
}

// ParseThreading converts the textual form used in fragment descriptions.
// The empty string parses as ThreadingIrrelevant.
func ParseThreading(s string) (Threading, error) {
	switch s {
	case "", "irrelevant":
		return ThreadingIrrelevant, nil
	case "must_yield", "yield":
		return ThreadingMustYield, nil
	case "never_yield", "never":
		return ThreadingNeverYield, nil
	}
	return ThreadingIrrelevant, fmt.Errorf("unknown threading hint %q", s)
}
