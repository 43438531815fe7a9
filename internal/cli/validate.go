package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/weave/internal/cfg"
	"github.com/roach88/weave/internal/ir"
	"github.com/roach88/weave/internal/opt"
)

// ValidateOptions holds flags for the validate command.
type ValidateOptions struct {
	*RootOptions
	Name      string
	Optimized bool // validate after running the optimizer
}

// ValidationResult holds validation results.
type ValidationResult struct {
	Fragment   string          `json:"fragment"`
	Phase      string          `json:"phase"`
	Valid      bool            `json:"valid"`
	Violations []cfg.Violation `json:"violations,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ValidateOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "validate <fragment>",
		Short: "Check a fragment's control-flow graph",
		Long: `Check that every block of a fragment is well formed.

Reports statements that follow an unconditional branch, branches to
blocks the fragment does not own, non-exit branches without a target and
exit branches that name one. Findings are reported, not fixed.

Exit codes:
  0 - No findings
  1 - One or more findings
  2 - Command error (unreadable fragment, etc.)`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true, // Don't print usage on errors
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			formatter := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())
			return guard(formatter, func() error {
				return runValidate(opts, args[0], formatter)
			})
		},
	}

	cmd.Flags().StringVar(&opts.Name, "name", "", "fragment to validate when the file holds several")
	cmd.Flags().BoolVar(&opts.Optimized, "optimized", false, "validate the fragment after optimization")

	return cmd
}

func runValidate(opts *ValidateOptions, path string, formatter *OutputFormatter) error {
	f, err := loadFragment(formatter, path, opts.Name)
	if err != nil {
		return err
	}

	phase := "load"
	if opts.Optimized {
		phase = "optimized"
		opt.New(opt.WithLogger(opts.Logger()), opt.WithoutValidation()).Run(f)
	}
	res := cfg.Validate(f, cfg.WithLogger(opts.Logger()), cfg.WithPhase(phase))

	result := ValidationResult{
		Fragment:   f.Name,
		Phase:      phase,
		Valid:      res.OK(),
		Violations: res.Violations,
	}
	if err := outputValidation(formatter, f, result); err != nil {
		return err
	}
	if !result.Valid {
		return NewExitError(ExitFailure, fmt.Sprintf("%d finding(s) in %s", len(result.Violations), f.Name))
	}
	return nil
}

func outputValidation(formatter *OutputFormatter, f *ir.Fragment, result ValidationResult) error {
	if formatter.Format == "json" {
		return formatter.Success(result)
	}

	w := formatter.Writer
	if result.Valid {
		fmt.Fprintf(w, "✓ %s: %d block(s) valid\n", result.Fragment, len(f.Blocks()))
		return nil
	}
	fmt.Fprintf(w, "✗ %s: %d finding(s)\n\n", result.Fragment, len(result.Violations))
	for _, v := range result.Violations {
		fmt.Fprintf(w, "  %s\n", v.Error())
	}
	return nil
}
