package harness

import (
	"github.com/roach88/weave/internal/cfg"
	"github.com/roach88/weave/internal/interp"
	"github.com/roach88/weave/internal/opt"
)

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass indicates overall success: every assertion held.
	Pass bool `json:"pass"`

	// Errors contains assertion failure messages.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`

	Fragment    string `json:"fragment"`
	Fingerprint string `json:"fingerprint"`
	RunID       string `json:"run_id"`
	Lanes       int    `json:"lanes"`

	// Blocks is the number of blocks emitted.
	Blocks int `json:"blocks"`

	// Stats are the optimizer statistics (zero when optimization is off).
	Stats opt.Stats `json:"stats"`

	// IR is the ir.Dump of the fragment as emitted.
	IR string `json:"ir"`

	// Trace is the single-lane side-effect trace of the emitted fragment;
	// Baseline is the trace of the fragment as loaded.
	Trace    []string `json:"trace"`
	Baseline []string `json:"baseline"`

	// Schedule is the multi-lane simulation (nil for one lane).
	Schedule *interp.Schedule `json:"schedule,omitempty"`

	// Placement maps every variable to its storage class.
	Placement map[string]string `json:"placement"`

	// Violations are the validator findings on the emitted fragment.
	Violations []cfg.Violation `json:"violations,omitempty"`

	Decls string `json:"decls"`
	Body  string `json:"body"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:      true,
		Errors:    []string{},
		Trace:     []string{},
		Baseline:  []string{},
		Placement: make(map[string]string),
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}
