package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Scenario defines one compiler scenario.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Fragment is the path of a fragment description (.yaml, .cue or a
	// CUE package directory), relative to the scenario file.
	Fragment string `yaml:"fragment"`

	// Select names the fragment to use when the description holds
	// several.
	Select string `yaml:"select,omitempty"`

	// Lanes is the lane count to emit and simulate. Defaults to 1.
	Lanes int `yaml:"lanes,omitempty"`

	// Optimize runs the optimizer before emission. Defaults to true.
	Optimize *bool `yaml:"optimize,omitempty"`

	// Oracle answers branch conditions, keyed by condition text.
	Oracle map[string][]bool `yaml:"oracle,omitempty"`

	// Assertions validate the result.
	Assertions []Assertion `yaml:"assertions"`

	// RunID is an optional fixed run ID for deterministic tests.
	// If empty, defaults to "test-run-default".
	RunID string `yaml:"run_id,omitempty"`
}

// Optimized reports whether the scenario runs the optimizer.
func (s *Scenario) Optimized() bool {
	return s.Optimize == nil || *s.Optimize
}

// LaneCount returns the lane count, defaulting to one.
func (s *Scenario) LaneCount() int {
	if s.Lanes == 0 {
		return 1
	}
	return s.Lanes
}

// Assertion validates part of a scenario result.
type Assertion struct {
	// Type specifies the assertion type (see package documentation).
	Type string `yaml:"type"`

	// Count is the expected number (blocks_after, removed, trace_count).
	Count *int `yaml:"count,omitempty"`

	// Stmt is a statement as it appears in the trace (trace_contains,
	// trace_count).
	Stmt string `yaml:"stmt,omitempty"`

	// Stmts is the expected statement order (trace_order).
	Stmts []string `yaml:"stmts,omitempty"`

	// Var and Class name a variable and its expected storage class
	// (placement).
	Var   string `yaml:"var,omitempty"`
	Class string `yaml:"class,omitempty"`

	// Text is the expected substring and Stream is "body" (default) or
	// "decls" (emitted_contains).
	Text   string `yaml:"text,omitempty"`
	Stream string `yaml:"stream,omitempty"`
}

// Assertion type constants.
const (
	AssertBlocksAfter     = "blocks_after"
	AssertRemoved         = "removed"
	AssertTraceContains   = "trace_contains"
	AssertTraceOrder      = "trace_order"
	AssertTraceCount      = "trace_count"
	AssertPlacement       = "placement"
	AssertEmittedContains = "emitted_contains"
	AssertValid           = "valid"
	AssertEquivalent      = "equivalent"
	AssertLanesTerminate  = "lanes_terminate"
)

// LoadScenario reads and parses a scenario YAML file. The fragment path
// is resolved relative to the scenario file's directory.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	return LoadScenarioWithBasePath(path, filepath.Dir(path))
}

// LoadScenarioWithBasePath reads and parses a scenario YAML file,
// resolving the fragment path relative to basePath.
func LoadScenarioWithBasePath(path, basePath string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	// Strict field validation catches typos like "assertion:" vs "assertions:"
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	// Resolve the fragment path BEFORE validation
	if scenario.Fragment != "" && !filepath.IsAbs(scenario.Fragment) && basePath != "" {
		scenario.Fragment = filepath.Join(basePath, scenario.Fragment)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}

	if s.Description == "" {
		return fmt.Errorf("description is required")
	}

	if s.Fragment == "" {
		return fmt.Errorf("fragment is required")
	}

	if _, err := os.Stat(s.Fragment); os.IsNotExist(err) {
		return fmt.Errorf("fragment file not found: %s", s.Fragment)
	}

	if s.Lanes < 0 {
		return fmt.Errorf("lanes must be positive, got %d", s.Lanes)
	}

	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}

	for i, assertion := range s.Assertions {
		if err := validateAssertion(i, &assertion); err != nil {
			return err
		}
	}

	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	needCount := func() error {
		if a.Count == nil {
			return fmt.Errorf("assertions[%d]: count is required for %s", index, a.Type)
		}
		if *a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for %s", index, a.Type)
		}
		return nil
	}

	switch a.Type {
	case AssertBlocksAfter, AssertRemoved:
		return needCount()
	case AssertTraceContains:
		if a.Stmt == "" {
			return fmt.Errorf("assertions[%d]: stmt is required for trace_contains", index)
		}
	case AssertTraceOrder:
		if len(a.Stmts) == 0 {
			return fmt.Errorf("assertions[%d]: stmts list is required for trace_order", index)
		}
	case AssertTraceCount:
		if a.Stmt == "" {
			return fmt.Errorf("assertions[%d]: stmt is required for trace_count", index)
		}
		return needCount()
	case AssertPlacement:
		if a.Var == "" {
			return fmt.Errorf("assertions[%d]: var is required for placement", index)
		}
		switch a.Class {
		case "stack", "lane", "thread":
		default:
			return fmt.Errorf("assertions[%d]: class must be stack, lane or thread, got %q", index, a.Class)
		}
	case AssertEmittedContains:
		if a.Text == "" {
			return fmt.Errorf("assertions[%d]: text is required for emitted_contains", index)
		}
		if a.Stream != "" && a.Stream != "body" && a.Stream != "decls" {
			return fmt.Errorf("assertions[%d]: stream must be body or decls, got %q", index, a.Stream)
		}
	case AssertValid, AssertEquivalent, AssertLanesTerminate:
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}

	return nil
}
